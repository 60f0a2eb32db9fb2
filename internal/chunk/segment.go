package chunk

import "context"

// UnitSegmenter decomposes one file into units no larger than a token cap,
// placing cuts where the detector says the least structure breaks.
type UnitSegmenter struct {
	est *SizeEstimator
}

// NewUnitSegmenter builds a segmenter over the given estimator.
func NewUnitSegmenter(est *SizeEstimator) *UnitSegmenter {
	return &UnitSegmenter{est: est}
}

// WholeFile returns the file as a single unit, bypassing boundary analysis.
func (s *UnitSegmenter) WholeFile(ctx context.Context, file *SourceFile) (Unit, error) {
	n, err := s.est.Count(ctx, file.Content)
	if err != nil {
		return Unit{}, err
	}
	return Unit{
		Path:   file.Path,
		Start:  0,
		End:    len(file.Content),
		Kind:   UnitWholeFile,
		Tokens: n,
	}, nil
}

// Segment cuts a file into units of at most maxUnitTokens. Each unit runs
// from the previous cut to the furthest boundary still within the cap; among
// the boundaries in that reach, the cut lands on the lowest cost, and on
// equal cost the latest offset wins, keeping units large. When not even the
// first boundary is reachable under the cap, the unit is force-cut at the
// cap and flagged. The oracle's monotonicity makes the reach binary-searchable.
func (s *UnitSegmenter) Segment(ctx context.Context, file *SourceFile, maxUnitTokens int) ([]Unit, error) {
	text := file.Content
	if text == "" {
		return nil, nil
	}
	bounds := findBoundaries(text, file.Language)

	var units []Unit
	start := 0
	startDecl := true // offset 0 opens the file's first top-level form
	lo := 0           // index of the first boundary past start

	emit := func(end int, forced bool) error {
		n, err := s.est.Count(ctx, text[start:end])
		if err != nil {
			return err
		}
		kind := UnitBlock
		if startDecl {
			kind = UnitDeclaration
		}
		units = append(units, Unit{
			Path:   file.Path,
			Start:  start,
			End:    end,
			Kind:   kind,
			Tokens: n,
			Forced: forced,
		})
		start = end
		return nil
	}

	for start < len(text) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for lo < len(bounds) && bounds[lo].Offset <= start {
			lo++
		}

		n, err := s.est.Count(ctx, text[start:])
		if err != nil {
			return nil, err
		}
		if n <= maxUnitTokens {
			if err := emit(len(text), false); err != nil {
				return nil, err
			}
			break
		}

		// Furthest boundary whose prefix still fits the cap.
		reach := -1
		for l, h := lo, len(bounds)-1; l <= h; {
			mid := (l + h) / 2
			n, err := s.est.Count(ctx, text[start:bounds[mid].Offset])
			if err != nil {
				return nil, err
			}
			if n <= maxUnitTokens {
				reach = mid
				l = mid + 1
			} else {
				h = mid - 1
			}
		}

		if reach < lo {
			cutLen, err := s.est.CutAt(ctx, text[start:], maxUnitTokens)
			if err != nil {
				return nil, err
			}
			if err := emit(start+cutLen, true); err != nil {
				return nil, err
			}
			startDecl = false
			continue
		}

		best := lo
		for j := lo + 1; j <= reach; j++ {
			if bounds[j].Cost <= bounds[best].Cost {
				best = j
			}
		}
		if err := emit(bounds[best].Offset, false); err != nil {
			return nil, err
		}
		startDecl = bounds[best].Decl
	}
	return units, nil
}

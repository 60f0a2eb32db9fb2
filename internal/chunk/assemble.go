package chunk

import "context"

// unitGroup is a run of units the assembler packs together. The planner
// marks a group atomic when it must land inside a single chunk, and sealed
// when its chunks may not be shared with other groups' content.
type unitGroup struct {
	units  []Unit
	tokens int // unit tokens plus one file header per file
	atomic bool
	sealed bool
}

// ChunkAssembler greedily packs units into chunks: single pass, no
// backtracking, unit order preserved. Reordering for packing density is
// forbidden; declaration and file order carry meaning downstream. Chunk N's
// overlap seed comes from chunk N-1's tail, so assembly is sequential.
type ChunkAssembler struct {
	est           *SizeEstimator
	fs            fileSet
	maxTokens     int
	overlapTokens int
}

// NewChunkAssembler builds an assembler for one run.
func NewChunkAssembler(est *SizeEstimator, fs fileSet, maxTokens, overlapTokens int) *ChunkAssembler {
	return &ChunkAssembler{
		est:           est,
		fs:            fs,
		maxTokens:     maxTokens,
		overlapTokens: overlapTokens,
	}
}

// buffer accumulates units for the chunk being built. tokens carries the
// running estimate for the rendered form: banner, headers, seed, units.
type buffer struct {
	units  []Unit
	seed   []Unit // overlap copied from the previous chunk
	tokens int
}

// Assemble packs the planned groups into chunks. On context cancellation it
// returns the chunks finalized so far together with the context's error.
func (a *ChunkAssembler) Assemble(ctx context.Context, groups []unitGroup) ([]Chunk, error) {
	var chunks []Chunk
	cur := &buffer{}

	// flush finalizes the current buffer, then starts the next one seeded
	// with the finalized chunk's tail. A buffer holding only seed is kept,
	// never emitted as an overlap-only chunk.
	flush := func(seedNext bool) error {
		if len(cur.units) == 0 {
			return nil
		}
		ch := a.finalize(cur, len(chunks))
		chunks = append(chunks, ch)
		var seed []Unit
		if seedNext && !ch.Oversized {
			seed = a.overlapSeed(cur.units)
		}
		cost, err := a.seedCost(ctx, seed)
		if err != nil {
			return err
		}
		cur = &buffer{seed: seed, tokens: cost}
		return nil
	}

	// shrinkSeed drops seed units oldest-first until extra more tokens fit.
	// A shorter suffix is still a suffix.
	shrinkSeed := func(extra int) error {
		for len(cur.seed) > 0 && cur.tokens+extra > a.maxTokens {
			cur.seed = cur.seed[1:]
			cost, err := a.seedCost(ctx, cur.seed)
			if err != nil {
				return err
			}
			cur.tokens = cost
		}
		return nil
	}

	place := func(u Unit) error {
		cost, err := a.addCost(ctx, cur, u)
		if err != nil {
			return err
		}
		if len(cur.units) > 0 && cur.tokens+cost > a.maxTokens {
			if err := flush(true); err != nil {
				return err
			}
			if cost, err = a.addCost(ctx, cur, u); err != nil {
				return err
			}
		}
		if len(cur.units) == 0 {
			if err := shrinkSeed(cost); err != nil {
				return err
			}
		}
		cur.units = append(cur.units, u)
		cur.tokens += cost
		return nil
	}

	for _, g := range groups {
		if err := ctx.Err(); err != nil {
			return chunks, err
		}

		if g.sealed && len(cur.units) > 0 {
			if err := flush(true); err != nil {
				return chunks, err
			}
		}
		if g.atomic {
			if len(cur.units) > 0 && cur.tokens+g.tokens > a.maxTokens {
				if err := flush(true); err != nil {
					return chunks, err
				}
			}
			if err := shrinkSeed(g.tokens); err != nil {
				return chunks, err
			}
		}

		for _, u := range g.units {
			if err := ctx.Err(); err != nil {
				return chunks, err
			}
			if u.Tokens > a.maxTokens {
				// Nothing can split this further: it becomes its own
				// flagged chunk with no overlap on either side.
				if err := flush(false); err != nil {
					return chunks, err
				}
				h, err := a.est.Count(ctx, fileHeader(u.Path, u.Start > 0))
				if err != nil {
					return chunks, err
				}
				over := &buffer{units: []Unit{u}, tokens: u.Tokens + h}
				chunks = append(chunks, a.finalize(over, len(chunks)))
				cur = &buffer{}
				continue
			}
			if err := place(u); err != nil {
				return chunks, err
			}
		}

		if g.sealed {
			if err := flush(true); err != nil {
				return chunks, err
			}
		}
	}

	if err := flush(false); err != nil {
		return chunks, err
	}
	return chunks, nil
}

// finalize renders the buffer into an immutable Chunk.
func (a *ChunkAssembler) finalize(buf *buffer, index int) Chunk {
	segs := mergeSegments(unitSegments(buf.units))
	overlap := mergeSegments(unitSegments(buf.seed))
	overlapTokens := 0
	for _, u := range buf.seed {
		overlapTokens += u.Tokens
	}
	return Chunk{
		Index:           index,
		Segments:        segs,
		Overlap:         overlap,
		Content:         renderChunk(overlap, segs, a.fs),
		Files:           segmentFiles(segs),
		TokenCount:      buf.tokens,
		OverlapTokens:   overlapTokens,
		PrimaryLanguage: dominantLanguage(segs, a.fs),
		Oversized:       buf.tokens > a.maxTokens,
	}
}

// overlapSeed picks the trailing whole units whose tokens fit the overlap
// budget. Overlap never splits a unit; when even the last unit is too big
// the seed is empty.
func (a *ChunkAssembler) overlapSeed(units []Unit) []Unit {
	if a.overlapTokens <= 0 {
		return nil
	}
	total := 0
	i := len(units)
	for i > 0 {
		t := units[i-1].Tokens
		if total+t > a.overlapTokens {
			break
		}
		total += t
		i--
	}
	if i == len(units) {
		return nil
	}
	seed := make([]Unit, len(units)-i)
	copy(seed, units[i:])
	return seed
}

// seedCost estimates the rendered overlap section: banner line, file
// headers, and the copied units.
func (a *ChunkAssembler) seedCost(ctx context.Context, seed []Unit) (int, error) {
	if len(seed) == 0 {
		return 0, nil
	}
	cost, err := a.est.Count(ctx, overlapBanner+"\n")
	if err != nil {
		return 0, err
	}
	for _, s := range mergeSegments(unitSegments(seed)) {
		h, err := a.est.Count(ctx, fileHeader(s.Path, s.Start > 0))
		if err != nil {
			return 0, err
		}
		cost += h
	}
	for _, u := range seed {
		cost += u.Tokens
	}
	return cost, nil
}

// addCost is the token price of appending u to the buffer: the unit itself,
// plus a file header unless u continues the buffer's last unit seamlessly.
func (a *ChunkAssembler) addCost(ctx context.Context, buf *buffer, u Unit) (int, error) {
	cost := u.Tokens
	n := len(buf.units)
	if n == 0 || buf.units[n-1].Path != u.Path || buf.units[n-1].End != u.Start {
		h, err := a.est.Count(ctx, fileHeader(u.Path, u.Start > 0))
		if err != nil {
			return 0, err
		}
		cost += h
	}
	return cost, nil
}

func unitSegments(units []Unit) []Segment {
	if len(units) == 0 {
		return nil
	}
	segs := make([]Segment, 0, len(units))
	for _, u := range units {
		segs = append(segs, Segment{Path: u.Path, Start: u.Start, End: u.End})
	}
	return segs
}

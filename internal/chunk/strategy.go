package chunk

import (
	"context"
	"fmt"
	"path"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"
)

// Strategy selects chunking granularity and grouping. The set is closed;
// ParseStrategy rejects anything else before a run starts.
type Strategy string

const (
	StrategyFile      Strategy = "file"
	StrategyDirectory Strategy = "directory"
	StrategySemantic  Strategy = "semantic"
	StrategyHybrid    Strategy = "hybrid"
)

// DefaultStrategy balances directory locality against budget enforcement.
const DefaultStrategy = StrategyHybrid

// ParseStrategy maps a name to a Strategy; empty selects the default.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case "":
		return DefaultStrategy, nil
	case StrategyFile, StrategyDirectory, StrategySemantic, StrategyHybrid:
		return Strategy(s), nil
	default:
		return "", fmt.Errorf("%w: unknown strategy %q", ErrInvalidConfig, s)
	}
}

// planner turns the ordered file set into assembly-ready unit groups.
type planner interface {
	groupingOrder(files []SourceFile) []SourceFile
	planUnits(ctx context.Context, files []SourceFile) ([]unitGroup, error)
}

func plannerFor(st Strategy, seg *UnitSegmenter, est *SizeEstimator, maxTokens, workers int) (planner, error) {
	switch st {
	case StrategyFile:
		return &filePlanner{seg: seg, workers: workers}, nil
	case StrategySemantic:
		return &semanticPlanner{seg: seg, maxTokens: maxTokens, workers: workers}, nil
	case StrategyDirectory:
		return &dirPlanner{seg: seg, est: est, maxTokens: maxTokens, workers: workers, sealed: true}, nil
	case StrategyHybrid:
		return &dirPlanner{seg: seg, est: est, maxTokens: maxTokens, workers: workers, sealed: false}, nil
	default:
		return nil, fmt.Errorf("%w: unknown strategy %q", ErrInvalidConfig, st)
	}
}

// forEachFile runs fn per file with bounded parallelism and error
// propagation. fn writes into caller-owned per-index storage, so no locking
// is needed; results feed assembly in deterministic order regardless of
// completion order.
func forEachFile(ctx context.Context, files []SourceFile, workers int, fn func(ctx context.Context, i int) error) error {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return fn(gctx, i)
		})
	}
	return g.Wait()
}

func sortByPath(files []SourceFile) []SourceFile {
	ordered := make([]SourceFile, len(files))
	copy(ordered, files)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].Path < ordered[j].Path
	})
	return ordered
}

// compactUnits drops empty units; zero-byte files contribute no content.
func compactUnits(units []Unit) []Unit {
	var out []Unit
	for _, u := range units {
		if u.End > u.Start {
			out = append(out, u)
		}
	}
	return out
}

// filePlanner emits one whole-file unit per file in lexicographic path
// order. Files never split unless a single file exceeds the budget.
type filePlanner struct {
	seg     *UnitSegmenter
	workers int
}

func (p *filePlanner) groupingOrder(files []SourceFile) []SourceFile {
	return sortByPath(files)
}

func (p *filePlanner) planUnits(ctx context.Context, files []SourceFile) ([]unitGroup, error) {
	units := make([]Unit, len(files))
	err := forEachFile(ctx, files, p.workers, func(ctx context.Context, i int) error {
		u, err := p.seg.WholeFile(ctx, &files[i])
		if err != nil {
			return err
		}
		units[i] = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	units = compactUnits(units)
	if len(units) == 0 {
		return nil, nil
	}
	return []unitGroup{{units: units}}, nil
}

// semanticPlanner cuts every file at declaration/block granularity and lets
// the assembler pack units freely across file boundaries, in order.
type semanticPlanner struct {
	seg       *UnitSegmenter
	maxTokens int
	workers   int
}

func (p *semanticPlanner) groupingOrder(files []SourceFile) []SourceFile {
	return sortByPath(files)
}

func (p *semanticPlanner) planUnits(ctx context.Context, files []SourceFile) ([]unitGroup, error) {
	perFile := make([][]Unit, len(files))
	err := forEachFile(ctx, files, p.workers, func(ctx context.Context, i int) error {
		us, err := p.seg.Segment(ctx, &files[i], p.maxTokens)
		if err != nil {
			return err
		}
		perFile[i] = us
		return nil
	})
	if err != nil {
		return nil, err
	}
	var units []Unit
	for _, us := range perFile {
		units = append(units, us...)
	}
	if len(units) == 0 {
		return nil, nil
	}
	return []unitGroup{{units: units}}, nil
}

// dirPlanner groups files by parent directory, directories in lexicographic
// order and filenames in order within each. A group fitting the budget is
// atomic: all of it lands in one chunk. A group over budget falls through to
// declaration-level segmentation of just its files; sealed keeps those
// fallback chunks exclusive to the directory, unsealed lets packing resume
// in the same stream.
type dirPlanner struct {
	seg       *UnitSegmenter
	est       *SizeEstimator
	maxTokens int
	workers   int
	sealed    bool
}

func (p *dirPlanner) groupingOrder(files []SourceFile) []SourceFile {
	ordered := make([]SourceFile, len(files))
	copy(ordered, files)
	sort.Slice(ordered, func(i, j int) bool {
		di, dj := path.Dir(ordered[i].Path), path.Dir(ordered[j].Path)
		if di != dj {
			return di < dj
		}
		return ordered[i].Path < ordered[j].Path
	})
	return ordered
}

func (p *dirPlanner) planUnits(ctx context.Context, files []SourceFile) ([]unitGroup, error) {
	whole := make([]Unit, len(files))
	headers := make([]int, len(files))
	err := forEachFile(ctx, files, p.workers, func(ctx context.Context, i int) error {
		u, err := p.seg.WholeFile(ctx, &files[i])
		if err != nil {
			return err
		}
		whole[i] = u
		h, err := p.est.Count(ctx, fileHeader(files[i].Path, false))
		if err != nil {
			return err
		}
		headers[i] = h
		return nil
	})
	if err != nil {
		return nil, err
	}

	var groups []unitGroup
	for s := 0; s < len(files); {
		dir := path.Dir(files[s].Path)
		e := s
		total := 0
		for e < len(files) && path.Dir(files[e].Path) == dir {
			if whole[e].End > whole[e].Start {
				total += whole[e].Tokens + headers[e]
			}
			e++
		}

		g := unitGroup{tokens: total}
		if total <= p.maxTokens {
			g.units = compactUnits(whole[s:e])
			g.atomic = true
		} else {
			g.sealed = p.sealed
			perFile := make([][]Unit, e-s)
			err := forEachFile(ctx, files[s:e], p.workers, func(ctx context.Context, j int) error {
				us, err := p.seg.Segment(ctx, &files[s+j], p.maxTokens)
				if err != nil {
					return err
				}
				perFile[j] = us
				return nil
			})
			if err != nil {
				return nil, err
			}
			for _, us := range perFile {
				g.units = append(g.units, us...)
			}
		}
		if len(g.units) > 0 {
			groups = append(groups, g)
		}
		s = e
	}
	return groups, nil
}

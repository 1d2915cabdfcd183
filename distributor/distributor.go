// Package distributor streams the points of every input file into the tiles
// they belong to, one worker per file.
package distributor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"slices"
	"time"

	"github.com/dot5enko/pointcloud-retiler/cache"
	"github.com/dot5enko/pointcloud-retiler/catalog"
	"github.com/dot5enko/pointcloud-retiler/codec"
	"github.com/dot5enko/pointcloud-retiler/errs"
	"github.com/dot5enko/pointcloud-retiler/grid"
	"github.com/dot5enko/pointcloud-retiler/planner"
	"github.com/dot5enko/pointcloud-retiler/progress"
	"github.com/dot5enko/pointcloud-retiler/schema"
	"golang.org/x/exp/constraints"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultBatchSize = 64 * 1024
	DefaultWorkers   = 4

	// one batch per worker, bounded by the batch pool
	MaxWorkers = 1 << 16
)

type TileWriter interface {
	WritePoints(t grid.TileIndex, points []schema.Point) error
}

type Completion interface {
	FileFinished(id int) error
}

type Config struct {
	Workers   int
	BatchSize int
}

type Distributor struct {
	plan     *planner.Plan
	opener   codec.Opener
	sink     TileWriter
	tracker  Completion
	reporter progress.Reporter

	workers int
	batches *cache.TypedRingBuffer[[]schema.Point]
}

func New(cfg Config, plan *planner.Plan, opener codec.Opener, sink TileWriter, tracker Completion, reporter progress.Reporter) *Distributor {

	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	cfg.Workers = min(cfg.Workers, MaxWorkers)
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if reporter == nil {
		reporter = progress.Nop{}
	}

	batchSize := cfg.BatchSize

	return &Distributor{
		plan:     plan,
		opener:   opener,
		sink:     sink,
		tracker:  tracker,
		reporter: reporter,
		workers:  cfg.Workers,
		batches: cache.NewTypedRingBuffer(cfg.Workers, func() []schema.Point {
			return make([]schema.Point, batchSize)
		}),
	}
}

// Schedule orders inputs by the first tile they touch, row by row, so the
// tiles of a row are released before the next row is opened. Inputs without
// points go last.
func Schedule(plan *planner.Plan, records []catalog.InputRecord) []catalog.InputRecord {

	out := slices.Clone(records)

	slices.SortStableFunc(out, func(a, b catalog.InputRecord) int {
		spanA, okA := plan.Span(a.ID)
		spanB, okB := plan.Span(b.ID)

		switch {
		case okA && !okB:
			return -1
		case !okA && okB:
			return 1
		case !okA && !okB:
			return 0
		}
		return grid.Compare(spanA.Min, spanB.Min)
	})

	return out
}

// Run distributes every input. The first failure cancels the remaining
// workers and is returned.
func (d *Distributor) Run(ctx context.Context, records []catalog.InputRecord) error {

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.workers)

	slog.Info("distributing points", "inputs", len(records), "workers", d.workers)

	for _, rec := range Schedule(d.plan, records) {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			return d.distributeFile(gctx, rec)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	// cancelled before any worker noticed
	return ctx.Err()
}

// tolerance absorbs rounding between header bounds and quantized points.
func tolerance(h schema.CloudHeader) float64 {
	return math.Max(h.Scale.X, h.Scale.Y)
}

func clamp[T constraints.Ordered](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// fold keeps a point inside the tiles an input covers. It applies only to
// points that index into a tile no input covers with nonzero area, such as
// the closing edge of the outermost input.
func fold(span grid.Span, t grid.TileIndex) grid.TileIndex {
	return grid.TileIndex{
		X: clamp(t.X, span.Min.X, span.Max.X),
		Y: clamp(t.Y, span.Min.Y, span.Max.Y),
	}
}

func (d *Distributor) distributeFile(ctx context.Context, rec catalog.InputRecord) error {

	started := time.Now()

	reader, err := d.opener.Open(rec.Path)
	if err != nil {
		return fmt.Errorf("%w: open %s: %w", errs.ErrDecodeFailure, rec.Path, err)
	}
	defer reader.Close()

	batch, batchId, err := d.batches.Get(ctx)
	if err != nil {
		return err
	}
	defer d.batches.Return(batchId)

	d.reporter.Report(progress.Event{Kind: progress.FileStarted, Path: rec.Path, Points: rec.PointCount()})

	finished := false
	defer func() {
		if !finished {
			d.reporter.Report(progress.Event{Kind: progress.FileFailed, Path: rec.Path})
		}
	}()

	span, covered := d.plan.Span(rec.ID)
	accept := rec.Box().Grow(tolerance(rec.Header))

	var streamed uint64

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, readErr := reader.Read(batch)

		if n > 0 {
			if !covered {
				return fmt.Errorf("%w: %s announces no points but holds point data", errs.ErrDecodeFailure, rec.Path)
			}
			if err := d.route(rec, span, accept, batch[:n]); err != nil {
				return err
			}
			streamed += uint64(n)
		}

		if errors.Is(readErr, io.EOF) {
			break
		}
		if readErr != nil {
			return fmt.Errorf("%w: %s: %w", errs.ErrDecodeFailure, rec.Path, readErr)
		}
	}

	if streamed != rec.PointCount() {
		return fmt.Errorf("%w: %s: streamed %d points, header announces %d", errs.ErrDecodeFailure, rec.Path, streamed, rec.PointCount())
	}

	slog.Debug("input streamed", "path", rec.Path, "points", streamed, "took", time.Since(started).String())

	finished = true
	d.reporter.Report(progress.Event{Kind: progress.FileFinished, Path: rec.Path, Points: streamed})

	return d.tracker.FileFinished(rec.ID)
}

// route sends consecutive points sharing a tile as one write.
func (d *Distributor) route(rec catalog.InputRecord, span grid.Span, accept schema.Box, points []schema.Point) error {

	var (
		start int
		cur   grid.TileIndex
	)

	for i := range points {
		p := &points[i]

		if !accept.Contains(p.X, p.Y) {
			return fmt.Errorf("%w: %s: point (%g, %g) outside declared bounds %s", errs.ErrDecodeFailure, rec.Path, p.X, p.Y, rec.Box())
		}

		t := d.plan.Grid.Index(p.X, p.Y)
		if !span.Contains(t) && !d.plan.Contributes(rec.ID, t) {
			t = fold(span, t)
		}

		if i == 0 {
			cur = t
			continue
		}

		if t != cur {
			if err := d.sink.WritePoints(cur, points[start:i]); err != nil {
				return err
			}
			start = i
			cur = t
		}
	}

	return d.sink.WritePoints(cur, points[start:])
}

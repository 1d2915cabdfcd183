// Package retile runs the whole pipeline: catalog, overlap validation, tile
// plan, then parallel distribution into the output tiles.
package retile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dot5enko/pointcloud-retiler/catalog"
	"github.com/dot5enko/pointcloud-retiler/codec"
	"github.com/dot5enko/pointcloud-retiler/config"
	"github.com/dot5enko/pointcloud-retiler/distributor"
	"github.com/dot5enko/pointcloud-retiler/errs"
	"github.com/dot5enko/pointcloud-retiler/grid"
	"github.com/dot5enko/pointcloud-retiler/limits"
	"github.com/dot5enko/pointcloud-retiler/overlap"
	"github.com/dot5enko/pointcloud-retiler/planner"
	"github.com/dot5enko/pointcloud-retiler/progress"
	"github.com/dot5enko/pointcloud-retiler/schema"
	"github.com/dot5enko/pointcloud-retiler/sink"
	"github.com/dot5enko/pointcloud-retiler/tracker"
)

type Summary struct {
	Inputs      int
	InputPoints uint64
	Bounds      schema.Box

	PlannedTiles  int
	TilesWritten  int
	PointsWritten uint64

	PeakOpenHandles int
	Took            time.Duration
}

// Run re-tiles cfg.InputDir into cfg.OutputDir. It is all or nothing: on
// failure every tile that was not finalized is removed.
func Run(ctx context.Context, cfg config.Config, reporter progress.Reporter) (*Summary, error) {

	started := time.Now()

	if reporter == nil {
		reporter = progress.Nop{}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	comp, err := cfg.CompressionType()
	if err != nil {
		return nil, err
	}
	c := codec.New(comp)

	g, err := grid.New(cfg.TileSize)
	if err != nil {
		return nil, err
	}

	paths, err := catalog.Discover(cfg.InputDir)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: no point cloud files in %s", errs.ErrEmptyInput, cfg.InputDir)
	}

	records, err := catalog.Scan(c, paths)
	if err != nil {
		return nil, err
	}

	summary := &Summary{
		Inputs:      len(records),
		InputPoints: catalog.TotalPoints(records),
	}
	summary.Bounds, _ = catalog.GlobalBounds(records)

	slog.Info("inputs scanned", "files", summary.Inputs, "points", summary.InputPoints, "bounds", summary.Bounds.String())

	if err := overlap.Validate(records); err != nil {
		var overlapErr *errs.OverlapError
		if errors.As(err, &overlapErr) {
			for _, p := range overlapErr.Pairs {
				slog.Error("overlapping inputs", "a", p.PathA, "a_bounds", p.BoxA.String(), "b", p.PathB, "b_bounds", p.BoxB.String())
			}
		}
		return nil, err
	}

	plan, err := planner.Planner{Grid: g, Reconciler: c, MaxTiles: cfg.MaxTiles}.Build(records)
	if err != nil {
		return nil, err
	}
	summary.PlannedTiles = plan.Len()

	if limit, needed, ok := limits.CheckOpenFiles(plan.Len(), cfg.Workers); !ok {
		slog.Warn("open file limit may be reached if many tiles stay active", "limit", limit, "worst_case", needed)
	}

	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("%w: create output directory %s: %w", errs.ErrWriteFailure, cfg.OutputDir, err)
	}

	reporter.Report(progress.Event{
		Kind:   progress.RunPlanned,
		Files:  len(records),
		Tiles:  plan.Len(),
		Points: summary.InputPoints,
	})

	tiles := sink.New(cfg.OutputDir, c, plan, reporter)
	counts := tracker.New(plan, tiles.Finalize)

	dist := distributor.New(distributor.Config{
		Workers:   cfg.Workers,
		BatchSize: cfg.BatchSize,
	}, plan, c, tiles, counts, reporter)

	runErr := dist.Run(ctx, records)

	if runErr == nil && counts.ActiveTiles() != 0 {
		runErr = fmt.Errorf("%w: %d tiles were never finalized", errs.ErrWriteFailure, counts.ActiveTiles())
	}
	if runErr == nil && tiles.PointsWritten() != summary.InputPoints {
		runErr = fmt.Errorf("%w: wrote %d points, inputs announce %d", errs.ErrDecodeFailure, tiles.PointsWritten(), summary.InputPoints)
	}

	summary.TilesWritten = tiles.TilesWritten()
	summary.PointsWritten = tiles.PointsWritten()
	summary.PeakOpenHandles = tiles.PeakOpenHandles()
	summary.Took = time.Since(started)

	if runErr != nil {
		if abortErr := tiles.Abort(); abortErr != nil {
			slog.Error("unable to remove partial tiles", "err", abortErr)
			runErr = errors.Join(runErr, abortErr)
		}
		return summary, runErr
	}

	slog.Info("retile finished",
		"tiles_written", summary.TilesWritten,
		"points", summary.PointsWritten,
		"peak_open_tiles", summary.PeakOpenHandles,
		"took", summary.Took.String(),
	)

	return summary, nil
}

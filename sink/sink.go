// Package sink owns the output tiles of a run. Every planned tile gets a
// guarded state; its file is created on the first point and closed as soon
// as the tile is finalized.
package sink

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/dot5enko/pointcloud-retiler/codec"
	"github.com/dot5enko/pointcloud-retiler/errs"
	"github.com/dot5enko/pointcloud-retiler/grid"
	"github.com/dot5enko/pointcloud-retiler/planner"
	"github.com/dot5enko/pointcloud-retiler/progress"
	"github.com/dot5enko/pointcloud-retiler/schema"
)

var (
	ErrUnplannedTile = errors.New("tile is not part of the plan")
	ErrTileFinalized = errors.New("tile already finalized")
	ErrCountMismatch = errors.New("written point count does not match header")
)

type tileState struct {
	mu sync.Mutex

	index    grid.TileIndex
	path     string
	template schema.CloudHeader

	writer codec.PointWriter

	count  uint64
	bounds schema.Bounds

	finalized bool
}

type Sink struct {
	dir     string
	creator codec.Creator

	// built in New, never mutated afterwards
	tiles map[grid.TileIndex]*tileState

	reporter progress.Reporter

	open          atomic.Int32
	peakOpen      atomic.Int32
	pointsWritten atomic.Uint64
	tilesWritten  atomic.Int32
}

func New(dir string, creator codec.Creator, plan *planner.Plan, reporter progress.Reporter) *Sink {

	if reporter == nil {
		reporter = progress.Nop{}
	}

	s := &Sink{
		dir:      dir,
		creator:  creator,
		tiles:    make(map[grid.TileIndex]*tileState, plan.Len()),
		reporter: reporter,
	}

	for _, t := range plan.Tiles() {
		template, _ := plan.Template(t)
		s.tiles[t] = &tileState{
			index:    t,
			path:     filepath.Join(dir, t.FileName(creator.Extension())),
			template: template,
			bounds:   schema.EmptyBounds(),
		}
	}

	return s
}

func (s *Sink) state(t grid.TileIndex) (*tileState, error) {
	st, ok := s.tiles[t]
	if !ok {
		return nil, fmt.Errorf("%w: %s: %w", errs.ErrWriteFailure, t, ErrUnplannedTile)
	}
	return st, nil
}

func (s *Sink) trackOpen() {
	n := s.open.Add(1)
	for {
		peak := s.peakOpen.Load()
		if n <= peak || s.peakOpen.CompareAndSwap(peak, n) {
			return
		}
	}
}

// WritePoints appends points to tile t. Calls for the same tile are
// serialized; points keep the order of each call.
func (s *Sink) WritePoints(t grid.TileIndex, points []schema.Point) error {

	if len(points) == 0 {
		return nil
	}

	st, err := s.state(t)
	if err != nil {
		return err
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	if st.finalized {
		return fmt.Errorf("%w: %s: %w", errs.ErrWriteFailure, st.path, ErrTileFinalized)
	}

	if st.writer == nil {
		w, err := s.creator.Create(st.path, st.template)
		if err != nil {
			return fmt.Errorf("%w: create %s: %w", errs.ErrWriteFailure, st.path, err)
		}
		st.writer = w
		s.trackOpen()

		slog.Debug("tile opened", "tile", t.String(), "path", st.path)
	}

	if err := st.writer.Write(points); err != nil {
		return fmt.Errorf("%w: %s: %w", errs.ErrWriteFailure, st.path, err)
	}

	for i := range points {
		st.bounds.Morph(points[i].Position())
	}
	st.count += uint64(len(points))

	s.pointsWritten.Add(uint64(len(points)))
	s.reporter.Report(progress.Event{Kind: progress.PointsWritten, Path: st.path, Tile: t, Points: uint64(len(points))})

	return nil
}

// Finalize writes the true header of t and releases its file. A tile that
// never received a point leaves no file. Finalizing twice is a no-op.
func (s *Sink) Finalize(t grid.TileIndex) error {

	st, err := s.state(t)
	if err != nil {
		return err
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	if st.finalized {
		return nil
	}
	st.finalized = true

	if st.writer == nil {
		slog.Debug("tile finalized without points", "tile", t.String())
		s.reporter.Report(progress.Event{Kind: progress.TileFinalized, Tile: t})
		return nil
	}

	w := st.writer
	st.writer = nil
	defer s.open.Add(-1)

	header, err := w.Finish()
	if err != nil {
		w.Discard()
		return fmt.Errorf("%w: finalize %s: %w", errs.ErrWriteFailure, st.path, err)
	}

	if header.PointCount != st.count {
		w.Discard()
		return fmt.Errorf("%w: %s: %w: %d written, header says %d", errs.ErrWriteFailure, st.path, ErrCountMismatch, st.count, header.PointCount)
	}

	s.tilesWritten.Add(1)

	slog.Info("tile finalized", "tile", t.String(), "points", header.PointCount, "bounds", header.Box().String())

	s.reporter.Report(progress.Event{Kind: progress.TileFinalized, Path: st.path, Tile: t, Points: header.PointCount})

	return nil
}

// Abort closes every tile still open and deletes its partial file. Tiles
// finalized before the abort stay on disk, they are complete.
func (s *Sink) Abort() error {

	var abortErrs []error

	for _, st := range s.tiles {
		st.mu.Lock()

		if !st.finalized {
			st.finalized = true

			if st.writer != nil {
				if err := st.writer.Discard(); err != nil {
					abortErrs = append(abortErrs, fmt.Errorf("discard %s: %w", st.path, err))
				}
				st.writer = nil
				s.open.Add(-1)

				slog.Warn("partial tile removed", "tile", st.index.String(), "path", st.path)
			}
		}

		st.mu.Unlock()
	}

	return errors.Join(abortErrs...)
}

// OpenHandles is the number of tile files currently open.
func (s *Sink) OpenHandles() int {
	return int(s.open.Load())
}

func (s *Sink) PeakOpenHandles() int {
	return int(s.peakOpen.Load())
}

func (s *Sink) PointsWritten() uint64 {
	return s.pointsWritten.Load()
}

func (s *Sink) TilesWritten() int {
	return int(s.tilesWritten.Load())
}

// Bounds returns the bounds observed so far for t and its point count.
func (s *Sink) Bounds(t grid.TileIndex) (schema.Bounds, uint64, bool) {
	st, ok := s.tiles[t]
	if !ok {
		return schema.Bounds{}, 0, false
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	return st.bounds, st.count, true
}

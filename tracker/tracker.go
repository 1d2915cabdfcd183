// Package tracker counts, per tile, the contributing inputs that have not
// finished streaming yet, and finalizes a tile when its count drops to zero.
package tracker

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/dot5enko/pointcloud-retiler/grid"
	"github.com/dot5enko/pointcloud-retiler/planner"
)

var ErrAlreadyFinished = errors.New("input already reported as finished")

type FinalizeFunc func(t grid.TileIndex) error

type tileCounter struct {
	pending atomic.Int32
}

type Tracker struct {
	counters map[grid.TileIndex]*tileCounter
	tilesOf  [][]grid.TileIndex
	finished []atomic.Bool

	// tiles not finalized yet; decremented only after finalize returned
	active atomic.Int32

	finalize FinalizeFunc
}

func New(plan *planner.Plan, finalize FinalizeFunc) *Tracker {

	t := &Tracker{
		counters: make(map[grid.TileIndex]*tileCounter, plan.Len()),
		tilesOf:  make([][]grid.TileIndex, plan.Inputs()),
		finished: make([]atomic.Bool, plan.Inputs()),
		finalize: finalize,
	}

	for _, tile := range plan.Tiles() {
		c := &tileCounter{}
		c.pending.Store(int32(len(plan.Contributors(tile))))
		t.counters[tile] = c
	}

	for id := range t.tilesOf {
		t.tilesOf[id] = plan.TilesOf(id)
	}

	t.active.Store(int32(len(t.counters)))

	return t
}

// FileFinished releases every tile the input contributes to. The decrement
// that reaches zero is the only one that finalizes, so a tile is finalized
// exactly once no matter how many inputs finish concurrently.
func (t *Tracker) FileFinished(id int) error {

	if id < 0 || id >= len(t.finished) {
		return fmt.Errorf("unknown input %d", id)
	}
	if t.finished[id].Swap(true) {
		return fmt.Errorf("input %d: %w", id, ErrAlreadyFinished)
	}

	var finalizeErrs []error

	for _, tile := range t.tilesOf[id] {
		c := t.counters[tile]

		left := c.pending.Add(-1)
		if left < 0 {
			panic(fmt.Sprintf("tile %s released more often than it has contributors", tile))
		}
		if left > 0 {
			continue
		}

		if err := t.finalize(tile); err != nil {
			finalizeErrs = append(finalizeErrs, fmt.Errorf("finalize tile %s: %w", tile, err))
		}
		t.active.Add(-1)
	}

	return errors.Join(finalizeErrs...)
}

// PendingCount is the number of contributors of tile still streaming.
func (t *Tracker) PendingCount(tile grid.TileIndex) int {
	c, ok := t.counters[tile]
	if !ok {
		return 0
	}
	return int(c.pending.Load())
}

// ActiveTiles is the number of planned tiles not finalized yet.
func (t *Tracker) ActiveTiles() int {
	return int(t.active.Load())
}

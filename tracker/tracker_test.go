package tracker

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/dot5enko/pointcloud-retiler/catalog"
	"github.com/dot5enko/pointcloud-retiler/grid"
	"github.com/dot5enko/pointcloud-retiler/planner"
	"github.com/dot5enko/pointcloud-retiler/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildPlan(t *testing.T, size float64, boxes ...schema.Box) *planner.Plan {
	t.Helper()

	records := make([]catalog.InputRecord, len(boxes))
	for i, b := range boxes {
		h := schema.NewCloudHeader(schema.XYZFormat, schema.Vector{X: 1, Y: 1, Z: 1}, schema.Vector{}, 0)
		h.PointCount = 1
		h.Bounds = schema.Bounds{Min: schema.Vector{X: b.MinX, Y: b.MinY}, Max: schema.Vector{X: b.MaxX, Y: b.MaxY}}
		records[i] = catalog.InputRecord{ID: i, Path: fmt.Sprint(i), Header: h}
	}

	g, err := grid.New(size)
	require.NoError(t, err)

	plan, err := planner.Planner{Grid: g}.Build(records)
	require.NoError(t, err)
	return plan
}

func TestFinalizeWhenLastContributorFinishes(t *testing.T) {

	plan := buildPlan(t, 100,
		schema.Box{MinX: 0, MinY: 0, MaxX: 150, MaxY: 80},
		schema.Box{MinX: 150, MinY: 0, MaxX: 300, MaxY: 80},
	)

	var finalized []grid.TileIndex
	tr := New(plan, func(tile grid.TileIndex) error {
		finalized = append(finalized, tile)
		return nil
	})

	shared := grid.TileIndex{X: 1, Y: 0}

	assert.Equal(t, 3, tr.ActiveTiles())
	assert.Equal(t, 2, tr.PendingCount(shared))

	require.NoError(t, tr.FileFinished(0))
	assert.Equal(t, []grid.TileIndex{{X: 0, Y: 0}}, finalized)
	assert.Equal(t, 1, tr.PendingCount(shared))
	assert.Equal(t, 2, tr.ActiveTiles())

	require.NoError(t, tr.FileFinished(1))
	assert.Equal(t, []grid.TileIndex{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 2, Y: 0}}, finalized)
	assert.Equal(t, 0, tr.ActiveTiles())
}

func TestFinishTwice(t *testing.T) {

	plan := buildPlan(t, 10, schema.Box{MinX: 0, MinY: 0, MaxX: 5, MaxY: 5})
	tr := New(plan, func(grid.TileIndex) error { return nil })

	require.NoError(t, tr.FileFinished(0))
	assert.ErrorIs(t, tr.FileFinished(0), ErrAlreadyFinished)
	assert.Error(t, tr.FileFinished(7))
}

func TestFinalizeErrorIsReturned(t *testing.T) {

	plan := buildPlan(t, 10, schema.Box{MinX: 0, MinY: 0, MaxX: 15, MaxY: 5})
	boom := errors.New("disk full")

	tr := New(plan, func(grid.TileIndex) error { return boom })

	err := tr.FileFinished(0)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, tr.ActiveTiles())
}

func TestConcurrentFinishFinalizesOnce(t *testing.T) {

	// 64 inputs in a column, every one touching the same tile
	var boxes []schema.Box
	for i := 0; i < 64; i++ {
		boxes = append(boxes, schema.Box{MinX: float64(i), MinY: 0, MaxX: float64(i) + 1, MaxY: 1})
	}
	plan := buildPlan(t, 1000, boxes...)
	require.Equal(t, 1, plan.Len())

	var calls atomic.Int32
	tr := New(plan, func(grid.TileIndex) error {
		calls.Add(1)
		return nil
	})

	var wg sync.WaitGroup
	for id := range boxes {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, tr.FileFinished(id))
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, calls.Load())
	assert.Equal(t, 0, tr.ActiveTiles())
}

package sink

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/dot5enko/pointcloud-retiler/catalog"
	"github.com/dot5enko/pointcloud-retiler/codec"
	"github.com/dot5enko/pointcloud-retiler/compression"
	"github.com/dot5enko/pointcloud-retiler/errs"
	"github.com/dot5enko/pointcloud-retiler/grid"
	"github.com/dot5enko/pointcloud-retiler/planner"
	"github.com/dot5enko/pointcloud-retiler/progress"
	"github.com/dot5enko/pointcloud-retiler/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	tileA = grid.TileIndex{X: 0, Y: 0}
	tileB = grid.TileIndex{X: 1, Y: 0}
)

type fixture struct {
	dir      string
	codec    *codec.Native
	sink     *Sink
	recorder *progress.Recorder
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	h := schema.NewCloudHeader(schema.XYZIntensityFormat, schema.Vector{X: 0.01, Y: 0.01, Z: 0.01}, schema.Vector{}, 25832)
	h.PointCount = 4
	h.Bounds = schema.Bounds{Min: schema.Vector{X: 10, Y: 10}, Max: schema.Vector{X: 150, Y: 50}}

	g, err := grid.New(100)
	require.NoError(t, err)

	plan, err := planner.Planner{Grid: g}.Build([]catalog.InputRecord{{ID: 0, Path: "in.spz", Header: h}})
	require.NoError(t, err)

	f := fixture{
		dir:      t.TempDir(),
		codec:    codec.New(compression.Lz4),
		recorder: &progress.Recorder{},
	}
	f.sink = New(f.dir, f.codec, plan, f.recorder)
	return f
}

func (f fixture) path(t grid.TileIndex) string {
	return filepath.Join(f.dir, t.FileName(f.codec.Extension()))
}

func TestTileLifecycle(t *testing.T) {

	f := newFixture(t)

	_, err := os.Stat(f.path(tileA))
	assert.True(t, os.IsNotExist(err), "no file before the first point")

	require.NoError(t, f.sink.WritePoints(tileA, []schema.Point{{X: 10, Y: 10, Intensity: 1}, {X: 20, Y: 50, Z: 3, Intensity: 2}}))
	require.NoError(t, f.sink.WritePoints(tileA, []schema.Point{{X: 99.5, Y: 12}}))

	assert.Equal(t, 1, f.sink.OpenHandles())
	assert.FileExists(t, f.path(tileA))

	bounds, count, ok := f.sink.Bounds(tileA)
	require.True(t, ok)
	assert.EqualValues(t, 3, count)
	assert.Equal(t, schema.Vector{X: 99.5, Y: 50, Z: 3}, bounds.Max)

	require.NoError(t, f.sink.Finalize(tileA))
	assert.Equal(t, 0, f.sink.OpenHandles())
	assert.Equal(t, 1, f.sink.TilesWritten())
	assert.EqualValues(t, 3, f.sink.PointsWritten())

	header, err := f.codec.ReadHeader(f.path(tileA))
	require.NoError(t, err)
	assert.EqualValues(t, 3, header.PointCount)
	assert.Equal(t, schema.XYZIntensityFormat, header.Format)
	assert.EqualValues(t, 25832, header.CRS)
	assert.InDelta(t, 10, header.Bounds.Min.X, 1e-9)
	assert.InDelta(t, 99.5, header.Bounds.Max.X, 1e-9)

	r, err := f.codec.Open(f.path(tileA))
	require.NoError(t, err)
	defer r.Close()

	buf := make([]schema.Point, 10)
	n, err := r.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.EqualValues(t, 2, buf[1].Intensity)

	_, err = r.Read(buf)
	assert.ErrorIs(t, err, io.EOF)

	assert.Equal(t, 1, f.recorder.Count(progress.TileFinalized))
	assert.Equal(t, 2, f.recorder.Count(progress.PointsWritten))
}

func TestWriteAfterFinalize(t *testing.T) {

	f := newFixture(t)

	require.NoError(t, f.sink.WritePoints(tileB, []schema.Point{{X: 120, Y: 20}}))
	require.NoError(t, f.sink.Finalize(tileB))
	require.NoError(t, f.sink.Finalize(tileB), "finalize is idempotent")

	err := f.sink.WritePoints(tileB, []schema.Point{{X: 130, Y: 20}})
	assert.ErrorIs(t, err, ErrTileFinalized)
	assert.ErrorIs(t, err, errs.ErrWriteFailure)
	assert.Equal(t, 1, f.sink.TilesWritten())
}

func TestUnplannedTile(t *testing.T) {

	f := newFixture(t)

	err := f.sink.WritePoints(grid.TileIndex{X: 9, Y: 9}, []schema.Point{{X: 950, Y: 950}})
	assert.ErrorIs(t, err, ErrUnplannedTile)
	assert.ErrorIs(t, f.sink.Finalize(grid.TileIndex{X: -1}), ErrUnplannedTile)
}

func TestFinalizeWithoutPoints(t *testing.T) {

	f := newFixture(t)

	require.NoError(t, f.sink.Finalize(tileB))

	_, err := os.Stat(f.path(tileB))
	assert.True(t, os.IsNotExist(err))
	assert.Equal(t, 0, f.sink.TilesWritten())
	assert.Equal(t, 1, f.recorder.Count(progress.TileFinalized))
}

func TestAbortRemovesPartialTiles(t *testing.T) {

	f := newFixture(t)

	require.NoError(t, f.sink.WritePoints(tileA, []schema.Point{{X: 10, Y: 10}}))
	require.NoError(t, f.sink.Finalize(tileA))
	require.NoError(t, f.sink.WritePoints(tileB, []schema.Point{{X: 110, Y: 10}}))

	assert.Equal(t, 1, f.sink.PeakOpenHandles())
	assert.Equal(t, 1, f.sink.OpenHandles())

	require.NoError(t, f.sink.Abort())

	assert.FileExists(t, f.path(tileA))
	_, err := os.Stat(f.path(tileB))
	assert.True(t, errors.Is(err, os.ErrNotExist))
	assert.Equal(t, 0, f.sink.OpenHandles())

	assert.ErrorIs(t, f.sink.WritePoints(tileB, []schema.Point{{X: 110, Y: 10}}), ErrTileFinalized)
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dot5enko/pointcloud-retiler/compression"
	"github.com/dot5enko/pointcloud-retiler/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func valid() Config {
	c := Default()
	c.InputDir = "in"
	c.OutputDir = "out"
	c.TileSize = 100
	return c
}

func TestDefaults(t *testing.T) {

	c := valid()
	require.NoError(t, c.Validate())

	comp, err := c.CompressionType()
	require.NoError(t, err)
	assert.Equal(t, compression.Lz4, comp)
	assert.Positive(t, c.Workers)
}

func TestLoad(t *testing.T) {

	path := filepath.Join(t.TempDir(), "retiler.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
input_dir: /data/in
output_dir: /data/out
tile_size: 250.5
workers: 3
compression: none
`), 0644))

	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/data/in", c.InputDir)
	assert.Equal(t, 250.5, c.TileSize)
	assert.Equal(t, 3, c.Workers)
	assert.Equal(t, "none", c.Compression)
	assert.Equal(t, Default().BatchSize, c.BatchSize, "unset fields keep defaults")
	assert.NoError(t, c.Validate())
}

func TestLoadEmptyFile(t *testing.T) {

	path := filepath.Join(t.TempDir(), "empty.yaml")
	require.NoError(t, os.WriteFile(path, nil, 0644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Default(), c)
}

func TestLoadUnknownField(t *testing.T) {

	path := filepath.Join(t.TempDir(), "typo.yaml")
	require.NoError(t, os.WriteFile(path, []byte("tilesize: 10\n"), 0644))

	_, err := Load(path)
	assert.ErrorContains(t, err, "tilesize")
}

func TestValidate(t *testing.T) {

	c := valid()
	c.TileSize = 0
	assert.ErrorIs(t, c.Validate(), errs.ErrEmptyInput)

	c = valid()
	c.Compression = "zstd"
	assert.ErrorContains(t, c.Validate(), "zstd")

	c = valid()
	c.Workers = 1<<16 + 1
	assert.ErrorContains(t, c.Validate(), "workers must be at most 65536")

	c = valid()
	c.Workers = 1 << 16
	assert.NoError(t, c.Validate())

	c = valid()
	c.OutputDir = "./in/"
	assert.ErrorContains(t, c.Validate(), "must differ")

	err := Config{}.Validate()
	assert.ErrorContains(t, err, "input directory is required")
	assert.ErrorContains(t, err, "workers must be positive")
}

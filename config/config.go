package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"runtime"

	"github.com/dot5enko/pointcloud-retiler/compression"
	"github.com/dot5enko/pointcloud-retiler/errs"
	"gopkg.in/yaml.v3"
)

// matches the batch pool capacity of the distributor
const maxWorkers = 1 << 16

// Config describes one re-tiling run. Values come from defaults, then an
// optional YAML file, then command line flags.
type Config struct {
	InputDir  string  `yaml:"input_dir"`
	OutputDir string  `yaml:"output_dir"`
	TileSize  float64 `yaml:"tile_size"`

	Workers   int `yaml:"workers"`
	BatchSize int `yaml:"batch_size"`
	MaxTiles  int `yaml:"max_tiles"`

	Compression string `yaml:"compression"`

	LogLevel   string `yaml:"log_level"`
	LogConsole bool   `yaml:"log_console"`

	MetricsFile string `yaml:"metrics_file"`
	Quiet       bool   `yaml:"quiet"`
}

func Default() Config {
	return Config{
		Workers:     runtime.NumCPU(),
		BatchSize:   64 * 1024,
		MaxTiles:    1 << 22,
		Compression: "lz4",
		LogLevel:    "info",
	}
}

// Load reads path over the defaults. Fields missing from the file keep
// their default value.
func Load(path string) (Config, error) {

	cfg := Default()

	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("unable to read config %s: %w", path, err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)

	// an empty file decodes to io.EOF
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("unable to parse config %s: %w", path, err)
	}

	return cfg, nil
}

func sameDir(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return absA == absB
}

func (c Config) CompressionType() (compression.Type, error) {
	return compression.Parse(c.Compression)
}

func (c Config) Validate() error {

	var problems []error

	if c.InputDir == "" {
		problems = append(problems, errors.New("input directory is required"))
	}
	if c.OutputDir == "" {
		problems = append(problems, errors.New("output directory is required"))
	}
	if c.InputDir != "" && c.OutputDir != "" && sameDir(c.InputDir, c.OutputDir) {
		problems = append(problems, fmt.Errorf("output directory %s must differ from the input directory", c.OutputDir))
	}
	if math.IsNaN(c.TileSize) || math.IsInf(c.TileSize, 0) || c.TileSize <= 0 {
		problems = append(problems, fmt.Errorf("%w: tile size must be a positive number, got %g", errs.ErrEmptyInput, c.TileSize))
	}
	if c.Workers <= 0 {
		problems = append(problems, fmt.Errorf("workers must be positive, got %d", c.Workers))
	}
	if c.Workers > maxWorkers {
		problems = append(problems, fmt.Errorf("workers must be at most %d, got %d", maxWorkers, c.Workers))
	}
	if c.BatchSize <= 0 {
		problems = append(problems, fmt.Errorf("batch size must be positive, got %d", c.BatchSize))
	}
	if c.MaxTiles <= 0 {
		problems = append(problems, fmt.Errorf("max tiles must be positive, got %d", c.MaxTiles))
	}
	if _, err := c.CompressionType(); err != nil {
		problems = append(problems, err)
	}

	return errors.Join(problems...)
}

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/dot5enko/pointcloud-retiler/config"
	"github.com/dot5enko/pointcloud-retiler/errs"
	"github.com/dot5enko/pointcloud-retiler/logger"
	"github.com/dot5enko/pointcloud-retiler/progress"
	"github.com/dot5enko/pointcloud-retiler/retile"
	"github.com/fatih/color"
	"github.com/google/uuid"
)

const (
	exitOK    = 0
	exitFatal = 1
	exitUsage = 2
)

func usage(fs *flag.FlagSet, out io.Writer) func() {
	return func() {
		fmt.Fprintf(out, "Usage: %s [flags] <input folder> <output folder> <tile size>\n", fs.Name())
		fs.PrintDefaults()
	}
}

// parseArgs layers defaults, the optional config file and flags.
func parseArgs(args []string, stderr io.Writer) (config.Config, error) {

	fs := flag.NewFlagSet(args[0], flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = usage(fs, stderr)

	var (
		configPath  = fs.String("config", "", "YAML config file")
		workers     = fs.Int("workers", 0, "parallel input files (default: number of CPUs)")
		batchSize   = fs.Int("batch-size", 0, "points read per batch")
		comp        = fs.String("compression", "", "output compression: lz4 or none")
		logLevel    = fs.String("log-level", "", "debug, info, warn or error")
		metricsFile = fs.String("metrics-file", "", "write Prometheus metrics to this file when done")
		quiet       = fs.Bool("quiet", false, "disable the progress line")
	)

	if err := fs.Parse(args[1:]); err != nil {
		return config.Config{}, err
	}

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}

	positional := fs.Args()
	switch {
	case len(positional) == 3:
		cfg.InputDir = positional[0]
		cfg.OutputDir = positional[1]

		tileSize, err := strconv.ParseFloat(positional[2], 64)
		if err != nil {
			return cfg, fmt.Errorf("parse tile size %q: %w", positional[2], err)
		}
		cfg.TileSize = tileSize
	case len(positional) == 0 && *configPath != "":
		// everything comes from the config file
	default:
		fs.Usage()
		return cfg, fmt.Errorf("expected 3 arguments, got %d", len(positional))
	}

	if *workers > 0 {
		cfg.Workers = *workers
	}
	if *batchSize > 0 {
		cfg.BatchSize = *batchSize
	}
	if *comp != "" {
		cfg.Compression = *comp
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if *metricsFile != "" {
		cfg.MetricsFile = *metricsFile
	}
	if *quiet {
		cfg.Quiet = true
	}

	return cfg, cfg.Validate()
}

func run(ctx context.Context, args []string, stdout, stderr *os.File) int {

	cfg, err := parseArgs(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		color.New(color.FgRed).Fprintf(stderr, "Error: %s\n", err)
		return exitUsage
	}

	runID := uuid.New().String()

	slog.SetDefault(logger.New(logger.Config{
		Level:   cfg.LogLevel,
		Console: cfg.LogConsole || logger.IsTerminal(stderr),
		RunID:   runID,
	}, stderr))

	metrics := progress.NewMetrics()

	var terminal *progress.Terminal
	if !cfg.Quiet {
		terminal = progress.NewTerminal(stdout)
	}

	var reporter progress.Reporter = metrics
	if terminal != nil {
		reporter = progress.Multi(metrics, terminal)
	}

	summary, runErr := retile.Run(ctx, cfg, reporter)

	if terminal != nil {
		terminal.Finish()
	}

	if cfg.MetricsFile != "" {
		if err := metrics.WriteTextfile(cfg.MetricsFile); err != nil {
			slog.Error("unable to write metrics file", "path", cfg.MetricsFile, "err", err)
		}
	}

	if runErr != nil {
		kind := errs.Kind(runErr)
		if kind == nil {
			kind = errors.New("retile failed")
		}
		slog.Error("retile failed", "kind", kind.Error(), "err", runErr)
		color.New(color.FgRed, color.Bold).Fprintf(stderr, "Error (%s): %s\n", kind, runErr)
		return exitFatal
	}

	color.New(color.FgGreen).Fprintf(stdout, "Wrote %d tiles with %d points from %d input files in %s.\n",
		summary.TilesWritten, summary.PointsWritten, summary.Inputs, summary.Took.Round(1e6))

	return exitOK
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

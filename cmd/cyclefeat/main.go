// Command cyclefeat runs the cyclical time feature study on the Bike
// Sharing Demand dataset and prints the cross-validated errors of each
// pipeline.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/YuminosukeSato/cyclefeat/dataset"
	"github.com/YuminosukeSato/cyclefeat/internal/config"
	"github.com/YuminosukeSato/cyclefeat/internal/experiment"
	"github.com/YuminosukeSato/cyclefeat/internal/store"
	"github.com/YuminosukeSato/cyclefeat/pkg/errors"
	"github.com/YuminosukeSato/cyclefeat/pkg/log"
)

type options struct {
	configPath string
	pipelines  string
	data       string
	out        string
	db         string
	logLevel   string
	plots      bool
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "YAML configuration file")
	flag.StringVar(&opts.pipelines, "pipelines", "", "comma separated pipelines to evaluate (default all)")
	flag.StringVar(&opts.data, "data", "", "local ARFF or CSV file instead of the OpenML download")
	flag.StringVar(&opts.out, "out", "", "output directory for plots and weights")
	flag.StringVar(&opts.db, "db", "", "SQLite database for run results (default <out>/runs.db, \"none\" disables)")
	flag.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error")
	flag.BoolVar(&opts.plots, "plots", true, "write charts")
	flag.Parse()

	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts, set, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "cyclefeat: %v\n", err)
		os.Exit(1)
	}
}

// applyFlags overrides the loaded configuration with explicitly set flags.
func applyFlags(cfg *config.Experiment, opts options, set map[string]bool) {
	if set["pipelines"] {
		cfg.Pipelines = nil
		for _, name := range strings.Split(opts.pipelines, ",") {
			if name = strings.TrimSpace(name); name != "" {
				cfg.Pipelines = append(cfg.Pipelines, name)
			}
		}
	}
	if set["data"] {
		cfg.Data.Path = opts.data
	}
	if set["out"] {
		cfg.Output.Dir = opts.out
	}
	if set["db"] {
		cfg.Output.Database = opts.db
	}
	if set["log-level"] {
		cfg.Logging.Level = opts.logLevel
	}
	if set["plots"] {
		cfg.Output.Plots = opts.plots
	}
}

func setupLogging(cfg config.LoggingConfig) error {
	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		return err
	}
	switch cfg.Format {
	case "json":
		log.SetProvider(log.NewZerologProviderWithWriter(os.Stderr, level))
	default:
		log.SetProvider(log.NewConsoleProvider(os.Stderr, level))
	}
	return nil
}

// openStore opens the run database; an empty path disables persistence.
func openStore(ctx context.Context, path string) (*store.Store, error) {
	if path == "" {
		return nil, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrapf(err, "failed to create database directory for %s", path)
	}
	return store.Open(ctx, path)
}

func run(ctx context.Context, opts options, set map[string]bool, stdout io.Writer) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	applyFlags(cfg, opts, set)
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := setupLogging(cfg.Logging); err != nil {
		return err
	}
	logger := log.GetLoggerWithName("cyclefeat")

	frame, err := dataset.LoadBikeSharing(ctx, dataset.Source{
		Path:     cfg.Data.Path,
		CacheDir: cfg.Data.CacheDir,
		BaseURL:  cfg.Data.BaseURL,
	})
	if err != nil {
		return err
	}
	source := cfg.Data.Path
	if source == "" {
		source = "openml:" + strconv.Itoa(dataset.BikeSharingDataID)
	}

	st, err := openStore(ctx, cfg.Output.DatabasePath())
	if err != nil {
		return err
	}
	if st != nil {
		defer st.Close()
	}

	report, err := experiment.NewStudy(*cfg).Run(ctx, frame, st, source)
	if err != nil {
		return err
	}

	for _, ev := range report.Evaluations {
		fmt.Fprintf(stdout, "%s\n%s\n\n", ev.Pipeline, ev.Summary)
	}
	for _, s := range report.Shapes {
		fmt.Fprintf(stdout, "%s features: (%d, %d)\n", s.Pipeline, s.Rows, s.Cols)
	}
	logger.Info("Study finished",
		log.RunIDKey, report.RunID.String(),
		"charts", len(report.Charts),
		"weights", len(report.Weights),
	)
	return nil
}

// Package config loads the experiment configuration: built-in defaults,
// then an optional YAML file, then CYCLEFEAT_* environment variables.
package config

import (
	"os"
	"path/filepath"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/YuminosukeSato/cyclefeat/pkg/errors"
	"github.com/YuminosukeSato/cyclefeat/pkg/log"
	"github.com/YuminosukeSato/cyclefeat/sklearn/kernel_approximation"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "CYCLEFEAT"

// Experiment is the complete configuration of one study run.
//
// Environment keys are derived from field names, e.g. CYCLEFEAT_CV_GAP
// or CYCLEFEAT_MODELS_NYSTROEM_COMPONENTS.
type Experiment struct {
	Data      DataConfig    `yaml:"data"`
	CV        CVConfig      `yaml:"cv"`
	Models    ModelConfig   `yaml:"models"`
	Output    OutputConfig  `yaml:"output"`
	Logging   LoggingConfig `yaml:"logging"`
	Pipelines []string      `yaml:"pipelines"`
}

// DataConfig locates the Bike Sharing Demand data.
type DataConfig struct {
	// Path reads a local ARFF or CSV file instead of fetching from OpenML.
	Path     string `yaml:"path"`
	CacheDir string `yaml:"cache_dir" split_words:"true"`
	BaseURL  string `yaml:"base_url" split_words:"true"`
}

// CVConfig parameterises the time series cross-validation.
type CVConfig struct {
	NSplits      int `yaml:"n_splits" split_words:"true"`
	Gap          int `yaml:"gap"`
	MaxTrainSize int `yaml:"max_train_size" split_words:"true"`
	TestSize     int `yaml:"test_size" split_words:"true"`
	NJobs        int `yaml:"n_jobs" split_words:"true"`
}

// ModelConfig holds the estimator hyperparameters shared by the pipelines.
type ModelConfig struct {
	AlphaLogStart      float64 `yaml:"alpha_log_start" split_words:"true"`
	AlphaLogStop       float64 `yaml:"alpha_log_stop" split_words:"true"`
	AlphaCount         int     `yaml:"alpha_count" split_words:"true"`
	NystroemKernel     string  `yaml:"nystroem_kernel" split_words:"true"`
	NystroemDegree     float64 `yaml:"nystroem_degree" split_words:"true"`
	NystroemComponents int     `yaml:"nystroem_components" split_words:"true"`
	NystroemSeed       uint64  `yaml:"nystroem_seed" split_words:"true"`
	BoostingSeed       uint64  `yaml:"boosting_seed" split_words:"true"`
	BoostingMaxIter    int     `yaml:"boosting_max_iter" split_words:"true"`
	BoostingMaxBins    int     `yaml:"boosting_max_bins" split_words:"true"`
	MergeHeavyRain     bool    `yaml:"merge_heavy_rain" split_words:"true"`
	PredictionWindow   int     `yaml:"prediction_window" split_words:"true"`
}

// OutputConfig controls where results are written.
type OutputConfig struct {
	Dir         string `yaml:"dir"`
	Database    string `yaml:"database"`
	PlotFormat  string `yaml:"plot_format" split_words:"true"`
	Plots       bool   `yaml:"plots"`
	ExportModel bool   `yaml:"export_model" split_words:"true"`
}

// DatabasePath resolves the run database location. An empty Database
// means runs.db inside Dir and "none" disables persistence, which is
// reported as "".
func (o OutputConfig) DatabasePath() string {
	switch o.Database {
	case "":
		return filepath.Join(o.Dir, "runs.db")
	case "none":
		return ""
	default:
		return o.Database
	}
}

// LoggingConfig selects the log level and format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration of the reference study.
func Default() Experiment {
	return Experiment{
		Data: DataConfig{
			CacheDir: "data",
			BaseURL:  "https://api.openml.org",
		},
		CV: CVConfig{
			NSplits:      5,
			Gap:          48,
			MaxTrainSize: 10000,
			TestSize:     1000,
		},
		Models: ModelConfig{
			AlphaLogStart:      -6,
			AlphaLogStop:       6,
			AlphaCount:         25,
			NystroemKernel:     "poly",
			NystroemDegree:     2,
			NystroemComponents: 300,
			NystroemSeed:       0,
			BoostingSeed:       42,
			BoostingMaxIter:    100,
			BoostingMaxBins:    255,
			MergeHeavyRain:     true,
			PredictionWindow:   96,
		},
		Output: OutputConfig{
			Dir:         "out",
			PlotFormat:  "png",
			Plots:       true,
			ExportModel: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load builds the configuration from defaults, the YAML file at path
// (skipped when path is empty) and the environment.
func Load(path string) (*Experiment, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read config file %s", path)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, errors.Wrapf(err, "failed to parse config file %s", path)
		}
	}
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to load config from env")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}
	return &cfg, nil
}

// Encode returns the configuration as YAML.
func (e *Experiment) Encode() (string, error) {
	data, err := yaml.Marshal(e)
	if err != nil {
		return "", errors.Wrap(err, "failed to encode config")
	}
	return string(data), nil
}

// WriteYAML serialises the configuration.
func (e *Experiment) WriteYAML(path string) error {
	data, err := e.Encode()
	if err != nil {
		return err
	}
	return os.WriteFile(path, []byte(data), 0o644)
}

// Validate checks value ranges.
func (e *Experiment) Validate() error {
	switch {
	case e.CV.NSplits < 2:
		return errors.NewValidationError("cv.n_splits", "must be at least 2", e.CV.NSplits)
	case e.CV.Gap < 0:
		return errors.NewValidationError("cv.gap", "must be non-negative", e.CV.Gap)
	case e.CV.MaxTrainSize < 0:
		return errors.NewValidationError("cv.max_train_size", "must be non-negative", e.CV.MaxTrainSize)
	case e.CV.TestSize < 0:
		return errors.NewValidationError("cv.test_size", "must be non-negative", e.CV.TestSize)
	case e.Models.AlphaCount < 1:
		return errors.NewValidationError("models.alpha_count", "must be at least 1", e.Models.AlphaCount)
	case e.Models.AlphaLogStart > e.Models.AlphaLogStop:
		return errors.NewValidationError("models.alpha_log_start", "must not exceed alpha_log_stop", e.Models.AlphaLogStart)
	case !kernel_approximation.Kernel(e.Models.NystroemKernel).Valid():
		return errors.NewValidationError("models.nystroem_kernel", "must be poly, rbf, linear, sigmoid or cosine", e.Models.NystroemKernel)
	case e.Models.NystroemComponents < 1:
		return errors.NewValidationError("models.nystroem_components", "must be positive", e.Models.NystroemComponents)
	case e.Models.BoostingMaxIter < 1:
		return errors.NewValidationError("models.boosting_max_iter", "must be positive", e.Models.BoostingMaxIter)
	case e.Models.BoostingMaxBins < 2 || e.Models.BoostingMaxBins > 255:
		return errors.NewValidationError("models.boosting_max_bins", "must be in [2, 255]", e.Models.BoostingMaxBins)
	case e.Models.PredictionWindow < 1:
		return errors.NewValidationError("models.prediction_window", "must be positive", e.Models.PredictionWindow)
	}
	switch e.Output.PlotFormat {
	case "png", "svg", "pdf":
	default:
		return errors.NewValidationError("output.plot_format", "must be png, svg or pdf", e.Output.PlotFormat)
	}
	switch e.Logging.Format {
	case "console", "json":
	default:
		return errors.NewValidationError("logging.format", "must be console or json", e.Logging.Format)
	}
	if _, err := log.ParseLevel(e.Logging.Level); err != nil {
		return errors.NewValidationError("logging.level", "must be debug, info, warn or error", e.Logging.Level)
	}
	return nil
}

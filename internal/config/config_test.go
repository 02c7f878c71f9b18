package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.CV.NSplits)
	assert.Equal(t, 48, cfg.CV.Gap)
	assert.Equal(t, 10000, cfg.CV.MaxTrainSize)
	assert.Equal(t, 1000, cfg.CV.TestSize)
	assert.Equal(t, 25, cfg.Models.AlphaCount)
	assert.Equal(t, 300, cfg.Models.NystroemComponents)
	assert.Equal(t, "png", cfg.Output.PlotFormat)
}

func TestOutputDatabasePath(t *testing.T) {
	out := OutputConfig{Dir: "results"}
	assert.Equal(t, filepath.Join("results", "runs.db"), out.DatabasePath())

	out.Database = "none"
	assert.Empty(t, out.DatabasePath())

	out.Database = "/var/lib/cyclefeat/runs.db"
	assert.Equal(t, "/var/lib/cyclefeat/runs.db", out.DatabasePath())
}

func TestLoad_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "experiment.yaml")
	yaml := `
cv:
  gap: 24
  n_jobs: 2
models:
  nystroem_components: 50
pipelines: [gbrt, naive_linear]
output:
  plot_format: svg
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))
	t.Setenv("CYCLEFEAT_CV_N_JOBS", "3")
	t.Setenv("CYCLEFEAT_DATA_CACHE_DIR", "/tmp/openml")

	cfg, err := Load(path)
	require.NoError(t, err)

	// ファイルの値がデフォルトを上書きし、環境変数がさらに上書きする
	assert.Equal(t, 24, cfg.CV.Gap)
	assert.Equal(t, 3, cfg.CV.NJobs)
	assert.Equal(t, 5, cfg.CV.NSplits)
	assert.Equal(t, 50, cfg.Models.NystroemComponents)
	assert.Equal(t, []string{"gbrt", "naive_linear"}, cfg.Pipelines)
	assert.Equal(t, "svg", cfg.Output.PlotFormat)
	assert.Equal(t, "/tmp/openml", cfg.Data.CacheDir)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("cv: [1, 2"), 0o644))
	_, err = Load(path)
	assert.Error(t, err)

	t.Setenv("CYCLEFEAT_CV_GAP", "forty")
	_, err = Load("")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Experiment)
	}{
		{"splits", func(e *Experiment) { e.CV.NSplits = 1 }},
		{"gap", func(e *Experiment) { e.CV.Gap = -1 }},
		{"alphas", func(e *Experiment) { e.Models.AlphaLogStart = 7 }},
		{"components", func(e *Experiment) { e.Models.NystroemComponents = 0 }},
		{"bins", func(e *Experiment) { e.Models.BoostingMaxBins = 256 }},
		{"plot format", func(e *Experiment) { e.Output.PlotFormat = "gif" }},
		{"log format", func(e *Experiment) { e.Logging.Format = "xml" }},
		{"log level", func(e *Experiment) { e.Logging.Level = "verbose" }},
		{"kernel", func(e *Experiment) { e.Models.NystroemKernel = "laplacian" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			require.NoError(t, cfg.Validate())
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestWriteYAMLRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Pipelines = []string{"cyclic_spline_linear"}
	path := filepath.Join(t.TempDir(), "out.yaml")
	require.NoError(t, cfg.WriteYAML(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, *loaded)
}

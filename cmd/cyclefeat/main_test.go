package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/cyclefeat/internal/config"
)

func TestApplyFlags(t *testing.T) {
	cfg := config.Default()
	opts := options{pipelines: "gbrt, naive_linear,,", out: "results", db: "none", plots: false, data: "bike.csv"}

	applyFlags(&cfg, opts, map[string]bool{"pipelines": true, "out": true, "db": true, "plots": true})
	assert.Equal(t, []string{"gbrt", "naive_linear"}, cfg.Pipelines)
	assert.Equal(t, "results", cfg.Output.Dir)
	assert.Equal(t, "none", cfg.Output.Database)
	assert.Empty(t, cfg.Output.DatabasePath())
	assert.False(t, cfg.Output.Plots)
	// data was not set on the command line
	assert.Empty(t, cfg.Data.Path)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestApplyFlags_OutMovesDefaultDatabase(t *testing.T) {
	cfg := config.Default()
	applyFlags(&cfg, options{out: "results"}, map[string]bool{"out": true})
	assert.Equal(t, filepath.Join("results", "runs.db"), cfg.Output.DatabasePath())

	// an explicit -db wins over -out
	applyFlags(&cfg, options{out: "results", db: "elsewhere.db"}, map[string]bool{"out": true, "db": true})
	assert.Equal(t, "elsewhere.db", cfg.Output.DatabasePath())
}

func TestOpenStore(t *testing.T) {
	ctx := context.Background()
	st, err := openStore(ctx, "")
	require.NoError(t, err)
	assert.Nil(t, st)

	st, err = openStore(ctx, filepath.Join(t.TempDir(), "nested", "runs.db"))
	require.NoError(t, err)
	require.NotNil(t, st)
	assert.NoError(t, st.Close())
}

func TestSetupLogging(t *testing.T) {
	assert.NoError(t, setupLogging(config.LoggingConfig{Level: "debug", Format: "json"}))
	assert.NoError(t, setupLogging(config.LoggingConfig{Level: "info", Format: "console"}))
	assert.Error(t, setupLogging(config.LoggingConfig{Level: "loud"}))
}

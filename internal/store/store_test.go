package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/cyclefeat/metrics"
	"github.com/YuminosukeSato/cyclefeat/sklearn/model_selection"
)

func cvResult(maes, rmses []float64) *model_selection.CVResult {
	res := &model_selection.CVResult{
		Scoring: []string{metrics.NegMeanAbsoluteError, metrics.NegRootMeanSquaredError},
	}
	for i := range maes {
		res.Folds = append(res.Folds, model_selection.FoldResult{
			Fold:      i,
			TrainSize: 10000,
			TestSize:  1000,
			FitTime:   1500 * time.Millisecond,
			ScoreTime: 20 * time.Millisecond,
			Scores: map[string]float64{
				metrics.NegMeanAbsoluteError:    -maes[i],
				metrics.NegRootMeanSquaredError: -rmses[i],
			},
		})
	}
	return res
}

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_RunsAndFolds(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)

	run, err := s.CreateRun(ctx, "bike.arff", "cv:\n  n_splits: 5\n")
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, run.ID)

	require.NoError(t, s.RecordFolds(ctx, run.ID, "gbrt", cvResult([]float64{0.04, 0.05}, []float64{0.06, 0.07})))
	require.NoError(t, s.RecordFolds(ctx, run.ID, "naive_linear", cvResult([]float64{0.14, 0.16}, []float64{0.19, 0.21})))

	runs, err := s.Runs(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, run.ID, runs[0].ID)
	assert.Equal(t, "bike.arff", runs[0].Source)
	assert.True(t, run.StartedAt.Equal(runs[0].StartedAt))

	folds, err := s.Folds(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, folds, 4)
	assert.Equal(t, "gbrt", folds[0].Pipeline)
	assert.Equal(t, 0, folds[0].Fold)
	assert.InDelta(t, 0.04, folds[0].MAE, 1e-12)
	assert.InDelta(t, 0.06, folds[0].RMSE, 1e-12)
	assert.InDelta(t, 1.5, folds[0].FitSeconds, 1e-12)
	assert.Equal(t, 10000, folds[0].TrainSize)
	assert.Equal(t, "naive_linear", folds[3].Pipeline)
	assert.Equal(t, 1, folds[3].Fold)

	summaries, err := s.Summaries(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, "gbrt", summaries[0].Pipeline)
	assert.Equal(t, 2, summaries[0].Folds)
	assert.InDelta(t, 0.045, summaries[0].MeanMAE, 1e-12)
	assert.InDelta(t, 0.20, summaries[1].MeanRMSE, 1e-12)
}

func TestStore_DuplicateFoldFails(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)

	run, err := s.CreateRun(ctx, "bike.arff", "")
	require.NoError(t, err)
	res := cvResult([]float64{0.1}, []float64{0.2})
	require.NoError(t, s.RecordFolds(ctx, run.ID, "gbrt", res))
	assert.Error(t, s.RecordFolds(ctx, run.ID, "gbrt", res))

	folds, err := s.Folds(ctx, run.ID)
	require.NoError(t, err)
	assert.Len(t, folds, 1)
}

func TestStore_MissingScorerRollsBack(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)

	run, err := s.CreateRun(ctx, "bike.arff", "")
	require.NoError(t, err)
	res := cvResult([]float64{0.1, 0.2}, []float64{0.2, 0.3})
	delete(res.Folds[1].Scores, metrics.NegRootMeanSquaredError)

	assert.Error(t, s.RecordFolds(ctx, run.ID, "gbrt", res))
	folds, err := s.Folds(ctx, run.ID)
	require.NoError(t, err)
	assert.Empty(t, folds)
}

func TestStore_InMemory(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, ":memory:")
	require.NoError(t, err)
	defer s.Close()

	run, err := s.CreateRun(ctx, "synthetic", "")
	require.NoError(t, err)
	require.NoError(t, s.RecordFolds(ctx, run.ID, "ridge", cvResult([]float64{1}, []float64{2})))

	summaries, err := s.Summaries(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, "ridge", summaries[0].Pipeline)
}

func TestStore_UnknownRunIsEmpty(t *testing.T) {
	s := openTemp(t)
	folds, err := s.Folds(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Empty(t, folds)
}

package ensemble_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	cfErrors "github.com/YuminosukeSato/cyclefeat/pkg/errors"
	"github.com/YuminosukeSato/cyclefeat/sklearn/ensemble"
)

func stepProblem(n int) (*mat.Dense, *mat.Dense) {
	X := mat.NewDense(n, 2, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		x := float64(i) / float64(n)
		X.Set(i, 0, x)
		X.Set(i, 1, math.Mod(float64(i)*0.37, 1))
		if x > 0.5 {
			y.Set(i, 0, 2)
		}
	}
	return X, y
}

func TestHistGradientBoosting_FitsStep(t *testing.T) {
	X, y := stepProblem(400)
	hgb := ensemble.NewHistGradientBoostingRegressor()
	require.NoError(t, hgb.Fit(X, y))

	assert.Equal(t, 100, hgb.NIter)
	score, err := hgb.Score(X, y)
	require.NoError(t, err)
	assert.Greater(t, score, 0.99)

	// 学習曲線は単調に減少する
	for i := 1; i < len(hgb.TrainScore); i++ {
		assert.GreaterOrEqual(t, hgb.TrainScore[i], hgb.TrainScore[i-1]-1e-12)
	}
}

// カテゴリ変数の1回の分割で {1,3,5} とそれ以外を完全に分離できる
func TestHistGradientBoosting_CategoricalSplit(t *testing.T) {
	n := 60
	X := mat.NewDense(n, 1, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		code := i % 6
		X.Set(i, 0, float64(code))
		if code%2 == 1 {
			y.Set(i, 0, 1)
		}
	}

	hgb := ensemble.NewHistGradientBoostingRegressor().
		WithCategoricalFeatures(0).
		WithMaxIter(1).
		WithLearningRate(1).
		WithMaxLeafNodes(2).
		WithMinSamplesLeaf(1)
	require.NoError(t, hgb.Fit(X, y))

	root := hgb.Trees[0].Nodes[0]
	require.False(t, root.IsLeaf)
	assert.True(t, root.IsCategorical)

	pred, err := hgb.Predict(X)
	require.NoError(t, err)
	for i := 0; i < n; i++ {
		assert.InDelta(t, y.At(i, 0), pred.At(i, 0), 1e-9)
	}

	// 学習時に現れなかったカテゴリは右の子に進む
	unseen, err := hgb.Predict(mat.NewDense(1, 1, []float64{9}))
	require.NoError(t, err)
	right := hgb.Trees[0].Nodes[root.Right].Value
	assert.InDelta(t, hgb.BaselinePrediction+right, unseen.At(0, 0), 1e-12)
}

func TestHistGradientBoosting_EarlyStopping(t *testing.T) {
	n := 200
	X := mat.NewDense(n, 1, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		X.Set(i, 0, float64(i))
		y.Set(i, 0, 3)
	}

	hgb := ensemble.NewHistGradientBoostingRegressor().WithEarlyStopping(ensemble.EarlyStoppingOn)
	require.NoError(t, hgb.Fit(X, y))

	// 定数の目的変数では改善が起きず n_iter_no_change 回で停止する
	assert.Equal(t, hgb.NIterNoChange, hgb.NIter)
	assert.Len(t, hgb.ValidationScore, hgb.NIter+1)
	assert.InDelta(t, 3.0, hgb.BaselinePrediction, 1e-12)

	off := ensemble.NewHistGradientBoostingRegressor().WithEarlyStopping(ensemble.EarlyStoppingOff).WithMaxIter(15)
	require.NoError(t, off.Fit(X, y))
	assert.Equal(t, 15, off.NIter)
	assert.Nil(t, off.ValidationScore)
}

func TestHistGradientBoosting_Deterministic(t *testing.T) {
	X, y := stepProblem(300)
	fit := func() mat.Matrix {
		hgb := ensemble.NewHistGradientBoostingRegressor().
			WithEarlyStopping(ensemble.EarlyStoppingOn).
			WithRandomState(42)
		require.NoError(t, hgb.Fit(X, y))
		pred, err := hgb.Predict(X)
		require.NoError(t, err)
		return pred
	}
	assert.True(t, mat.Equal(fit(), fit()))
}

func TestHistGradientBoosting_Errors(t *testing.T) {
	X, y := stepProblem(50)

	hgb := ensemble.NewHistGradientBoostingRegressor()
	_, err := hgb.Predict(X)
	var nf *cfErrors.NotFittedError
	assert.True(t, cfErrors.As(err, &nf))

	require.NoError(t, hgb.Fit(X, y))
	_, err = hgb.Predict(mat.NewDense(2, 3, nil))
	var de *cfErrors.DimensionError
	assert.True(t, cfErrors.As(err, &de))

	tests := []struct {
		name string
		hgb  *ensemble.HistGradientBoostingRegressor
	}{
		{"categorical index", ensemble.NewHistGradientBoostingRegressor().WithCategoricalFeatures(5)},
		{"negative categorical code", ensemble.NewHistGradientBoostingRegressor().WithCategoricalFeatures(1)},
		{"max iter", ensemble.NewHistGradientBoostingRegressor().WithMaxIter(0)},
		{"leaf nodes", ensemble.NewHistGradientBoostingRegressor().WithMaxLeafNodes(1)},
		{"early stopping mode", ensemble.NewHistGradientBoostingRegressor().WithEarlyStopping("sometimes")},
	}
	Xneg := mat.DenseCopyOf(X)
	Xneg.Set(0, 1, -1)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.hgb.Fit(Xneg, y))
		})
	}
}

func TestHistGradientBoosting_NonFiniteTarget(t *testing.T) {
	X, y := stepProblem(50)
	y.Set(7, 0, math.NaN())

	err := ensemble.NewHistGradientBoostingRegressor().WithMaxIter(3).Fit(X, y)
	require.Error(t, err)
	var numErr *cfErrors.NumericalInstabilityError
	require.True(t, cfErrors.As(err, &numErr), "err = %v", err)
	assert.Equal(t, "HistGradientBoostingRegressor.Fit", numErr.Operation)
	assert.Equal(t, 0, numErr.Iteration)
}

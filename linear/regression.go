// Package linear は最小二乗系の線形回帰モデル（LinearRegression, Ridge, RidgeCV）を提供する。
package linear

import (
	"fmt"

	"github.com/YuminosukeSato/cyclefeat/core/model"
	"github.com/YuminosukeSato/cyclefeat/core/parallel"
	"github.com/YuminosukeSato/cyclefeat/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// 並列処理の閾値（この値以下の行数では逐次処理を使用）
const parallelThreshold = 1000

// checkFitInput は X (n×p) と y (n×1) の形を検証する
func checkFitInput(op string, X, y mat.Matrix) (int, int, error) {
	r, c := X.Dims()
	ry, cy := y.Dims()
	if r == 0 || c == 0 {
		return 0, 0, errors.NewModelError(op, "empty data", errors.ErrEmptyData)
	}
	if ry != r {
		return 0, 0, errors.NewDimensionError(op, r, ry, 0)
	}
	if cy != 1 {
		return 0, 0, errors.NewValueError(op, "y must be a column vector")
	}
	return r, c, nil
}

// predictLinear は X * coef + intercept を n×1 で返す
func predictLinear(X mat.Matrix, coef []float64, intercept float64) *mat.Dense {
	r, c := X.Dims()
	predictions := mat.NewDense(r, 1, nil)
	parallel.ParallelizeWithThreshold(r, parallelThreshold, func(start, end int) {
		for i := start; i < end; i++ {
			pred := intercept
			for j := 0; j < c; j++ {
				pred += X.At(i, j) * coef[j]
			}
			predictions.Set(i, 0, pred)
		}
	})
	return predictions
}

// LinearRegression は正則化なしの最小二乗線形回帰
type LinearRegression struct {
	model.BaseEstimator

	coef      []float64
	intercept float64
}

// NewLinearRegression は新しい線形回帰モデルを作成する
func NewLinearRegression() *LinearRegression {
	return &LinearRegression{}
}

// Fit は [1, X] w = y を最小二乗（QR分解）で解く
func (lr *LinearRegression) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "LinearRegression.Fit")

	r, c, err := checkFitInput("LinearRegression.Fit", X, y)
	if err != nil {
		return err
	}
	if r < c+1 {
		return errors.NewModelError("LinearRegression.Fit", "underdetermined system", errors.ErrTooFewSamples)
	}

	// 切片項のために X に 1 の列を追加
	XWithIntercept := mat.NewDense(r, c+1, nil)
	parallel.ParallelizeWithThreshold(r, parallelThreshold, func(start, end int) {
		for i := start; i < end; i++ {
			XWithIntercept.Set(i, 0, 1.0)
			for j := 0; j < c; j++ {
				XWithIntercept.Set(i, j+1, X.At(i, j))
			}
		}
	})

	var w mat.Dense
	if err := w.Solve(XWithIntercept, y); err != nil {
		return errors.NewModelError("LinearRegression.Fit", "singular matrix", errors.ErrSingularMatrix)
	}

	lr.intercept = w.At(0, 0)
	lr.coef = make([]float64, c)
	for j := 0; j < c; j++ {
		lr.coef[j] = w.At(j+1, 0)
	}
	lr.SetFittedWith(c)
	return nil
}

// Predict は入力データに対する予測を n×1 で返す
func (lr *LinearRegression) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := lr.CheckInput("LinearRegression", "Predict", X); err != nil {
		return nil, err
	}
	return predictLinear(X, lr.coef, lr.intercept), nil
}

// Weights は学習された係数のコピーを返す
func (lr *LinearRegression) Weights() []float64 { return append([]float64(nil), lr.coef...) }

// Intercept は学習された切片を返す
func (lr *LinearRegression) Intercept() float64 { return lr.intercept }

// Score は決定係数（R²）を返す
func (lr *LinearRegression) Score(X, y mat.Matrix) (float64, error) {
	return r2(lr, X, y)
}

func (lr *LinearRegression) String() string {
	return fmt.Sprintf("LinearRegression(n_features=%d)", lr.NFeaturesIn())
}

// r2 は任意の Predictor について R² を計算する
func r2(p model.Predictor, X, y mat.Matrix) (float64, error) {
	yPred, err := p.Predict(X)
	if err != nil {
		return 0, err
	}
	r, _ := y.Dims()
	var yMean float64
	for i := 0; i < r; i++ {
		yMean += y.At(i, 0)
	}
	yMean /= float64(r)

	var tss, rss float64
	for i := 0; i < r; i++ {
		d := y.At(i, 0) - yMean
		e := y.At(i, 0) - yPred.At(i, 0)
		tss += d * d
		rss += e * e
	}
	if tss == 0 {
		return 0, errors.Newf("total sum of squares is zero")
	}
	return 1 - rss/tss, nil
}

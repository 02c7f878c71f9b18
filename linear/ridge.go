package linear

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/cyclefeat/core/model"
	"github.com/YuminosukeSato/cyclefeat/core/parallel"
	"github.com/YuminosukeSato/cyclefeat/pkg/errors"
	"github.com/YuminosukeSato/cyclefeat/pkg/log"
)

// LogSpace は 10^start から 10^stop までの n 個の対数等間隔な値を返す（np.logspace 相当）
func LogSpace(start, stop float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	exps := make([]float64, n)
	if n == 1 {
		exps[0] = start
	} else {
		floats.Span(exps, start, stop)
	}
	out := make([]float64, n)
	for i, e := range exps {
		out[i] = math.Pow(10, e)
	}
	return out
}

// center は X と y の列平均を引いたコピーと平均を返す。fitIntercept が false なら平均は0
func center(X, y mat.Matrix, fitIntercept bool) (*mat.Dense, *mat.VecDense, []float64, float64) {
	r, c := X.Dims()
	xMean := make([]float64, c)
	yMean := 0.0
	if fitIntercept {
		for i := 0; i < r; i++ {
			for j := 0; j < c; j++ {
				xMean[j] += X.At(i, j)
			}
			yMean += y.At(i, 0)
		}
		floats.Scale(1/float64(r), xMean)
		yMean /= float64(r)
	}

	Xc := mat.NewDense(r, c, nil)
	yc := mat.NewVecDense(r, nil)
	parallel.ParallelizeWithThreshold(r, parallelThreshold, func(start, end int) {
		for i := start; i < end; i++ {
			for j := 0; j < c; j++ {
				Xc.Set(i, j, X.At(i, j)-xMean[j])
			}
			yc.SetVec(i, y.At(i, 0)-yMean)
		}
	})
	return Xc, yc, xMean, yMean
}

// Ridge は L2 正則化付き線形回帰。
// 中心化したデータに対して (XᵀX + αI) w = Xᵀy をコレスキー分解で解く
type Ridge struct {
	model.BaseEstimator
	config

	Alpha     float64
	coef      []float64
	intercept float64
}

// NewRidge は正則化パラメータ alpha の Ridge を作成する
func NewRidge(alpha float64, opts ...Option) *Ridge {
	r := &Ridge{Alpha: alpha, config: defaultConfig()}
	for _, opt := range opts {
		opt(&r.config)
	}
	return r
}

// Fit はリッジ回帰を学習する
func (r *Ridge) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "Ridge.Fit")

	_, c, err := checkFitInput("Ridge.Fit", X, y)
	if err != nil {
		return err
	}
	if r.Alpha < 0 {
		return errors.NewValidationError("alpha", "must be non-negative", r.Alpha)
	}

	Xc, yc, xMean, yMean := center(X, y, r.fitIntercept)

	var gram mat.SymDense
	gram.SymOuterK(1, Xc.T())
	for j := 0; j < c; j++ {
		gram.SetSym(j, j, gram.At(j, j)+r.Alpha)
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(&gram); !ok {
		return errors.NewModelError("Ridge.Fit", "gram matrix is not positive definite", errors.ErrSingularMatrix)
	}

	var xty, w mat.VecDense
	xty.MulVec(Xc.T(), yc)
	if err := chol.SolveVecTo(&w, &xty); err != nil {
		return errors.NewModelError("Ridge.Fit", "cholesky solve failed", err)
	}

	r.coef = make([]float64, c)
	for j := 0; j < c; j++ {
		r.coef[j] = w.AtVec(j)
	}
	r.intercept = yMean - floats.Dot(xMean, r.coef)
	r.SetFittedWith(c)
	return nil
}

// Predict は n×1 の予測値を返す
func (r *Ridge) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := r.CheckInput("Ridge", "Predict", X); err != nil {
		return nil, err
	}
	return predictLinear(X, r.coef, r.intercept), nil
}

// Weights は学習された係数のコピーを返す
func (r *Ridge) Weights() []float64 { return append([]float64(nil), r.coef...) }

// Intercept は学習された切片を返す
func (r *Ridge) Intercept() float64 { return r.intercept }

// Score は決定係数（R²）を返す
func (r *Ridge) Score(X, y mat.Matrix) (float64, error) { return r2(r, X, y) }

// GetParams はハイパーパラメータを返す
func (r *Ridge) GetParams() map[string]interface{} {
	return map[string]interface{}{"alpha": r.Alpha, "fit_intercept": r.fitIntercept}
}

func (r *Ridge) String() string {
	return fmt.Sprintf("Ridge(alpha=%g)", r.Alpha)
}

// RidgeCV は効率的な leave-one-out 交差検証で alpha を選ぶリッジ回帰。
//
// 中心化した X の薄い特異値分解 X = U S Vᵀ を一度だけ計算し、各 alpha について
// ハット行列 H = U diag(s²/(s²+α)) Uᵀ + 11ᵀ/n の対角と予測値から
// LOO 残差 (y_i - ŷ_i) / (1 - H_ii) を閉形式で求める。切片方向は正則化しない。
type RidgeCV struct {
	model.BaseEstimator
	config

	// Alpha は選択された正則化パラメータ
	Alpha float64
	// BestScore は選択された alpha の LOO 平均二乗誤差の符号反転
	BestScore float64
	// CVMeanSquaredErrors は Alphas と同じ順の LOO 平均二乗誤差
	CVMeanSquaredErrors []float64

	coef      []float64
	intercept float64

	logger log.Logger
}

// NewRidgeCV は RidgeCV を作成する
//
// 使用例:
//
//	model := linear.NewRidgeCV(linear.WithAlphas(linear.LogSpace(-6, 6, 25)...))
//	err := model.Fit(X, y)
func NewRidgeCV(opts ...Option) *RidgeCV {
	r := &RidgeCV{config: defaultConfig(), logger: log.GetLoggerWithName("linear.RidgeCV")}
	for _, opt := range opts {
		opt(&r.config)
	}
	return r
}

// Alphas は候補の正則化パラメータを返す
func (r *RidgeCV) Alphas() []float64 { return append([]float64(nil), r.alphas...) }

// Fit は LOO 誤差が最小の alpha を選び、その alpha で係数を求める
func (r *RidgeCV) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "RidgeCV.Fit")

	n, c, err := checkFitInput("RidgeCV.Fit", X, y)
	if err != nil {
		return err
	}
	if len(r.alphas) == 0 {
		return errors.NewValidationError("alphas", "at least one alpha is required", r.alphas)
	}
	for _, a := range r.alphas {
		if a <= 0 || math.IsNaN(a) || math.IsInf(a, 0) {
			return errors.NewValidationError("alphas", "must be strictly positive and finite", a)
		}
	}

	Xc, yc, xMean, yMean := center(X, y, r.fitIntercept)

	var svd mat.SVD
	if ok := svd.Factorize(Xc, mat.SVDThin); !ok {
		return errors.NewModelError("RidgeCV.Fit", "SVD factorization failed", errors.ErrSingularMatrix)
	}
	s := svd.Values(nil)
	var U, V mat.Dense
	svd.UTo(&U)
	svd.VTo(&V)
	k := len(s)

	// Uᵀ yc と U の各行の二乗
	uty := make([]float64, k)
	for q := 0; q < k; q++ {
		uty[q] = mat.Dot(U.ColView(q), yc)
	}
	uSq := mat.NewDense(n, k, nil)
	uSq.Apply(func(_, _ int, v float64) float64 { return v * v }, &U)

	var intercept float64
	if r.fitIntercept {
		intercept = 1 / float64(n)
	}

	r.CVMeanSquaredErrors = make([]float64, len(r.alphas))
	parallel.Parallelize(len(r.alphas), func(start, end int) {
		f := make([]float64, k)
		fy := make([]float64, k)
		for a := start; a < end; a++ {
			alpha := r.alphas[a]
			for q := 0; q < k; q++ {
				s2 := s[q] * s[q]
				f[q] = s2 / (s2 + alpha)
				fy[q] = f[q] * uty[q]
			}
			sse := 0.0
			for i := 0; i < n; i++ {
				var hii, yhat float64
				for q := 0; q < k; q++ {
					u := U.At(i, q)
					hii += f[q] * uSq.At(i, q)
					yhat += u * fy[q]
				}
				hii += intercept
				denom := 1 - hii
				if denom < 1e-12 {
					denom = 1e-12
				}
				e := (yc.AtVec(i) - yhat) / denom
				sse += e * e
			}
			r.CVMeanSquaredErrors[a] = sse / float64(n)
		}
	})

	best := 0
	for a, mse := range r.CVMeanSquaredErrors {
		if mse < r.CVMeanSquaredErrors[best] {
			best = a
		}
	}
	r.Alpha = r.alphas[best]
	r.BestScore = -r.CVMeanSquaredErrors[best]

	// w = V diag(s/(s²+α)) Uᵀ yc
	r.coef = make([]float64, c)
	for q := 0; q < k; q++ {
		scale := s[q] / (s[q]*s[q] + r.Alpha) * uty[q]
		for j := 0; j < c; j++ {
			r.coef[j] += V.At(j, q) * scale
		}
	}
	r.intercept = yMean - floats.Dot(xMean, r.coef)

	if err := errors.CheckSlice("RidgeCV.Fit", r.coef, 0); err != nil {
		return err
	}

	r.logger.Debug("alpha selected",
		log.OperationKey, log.OperationFit,
		log.AlphaKey, r.Alpha,
		log.SamplesKey, n,
		log.FeaturesKey, c,
		log.LossKey, r.CVMeanSquaredErrors[best],
	)
	r.SetFittedWith(c)
	return nil
}

// Predict は n×1 の予測値を返す
func (r *RidgeCV) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := r.CheckInput("RidgeCV", "Predict", X); err != nil {
		return nil, err
	}
	return predictLinear(X, r.coef, r.intercept), nil
}

// Weights は学習された係数のコピーを返す
func (r *RidgeCV) Weights() []float64 { return append([]float64(nil), r.coef...) }

// Intercept は学習された切片を返す
func (r *RidgeCV) Intercept() float64 { return r.intercept }

// Score は決定係数（R²）を返す
func (r *RidgeCV) Score(X, y mat.Matrix) (float64, error) { return r2(r, X, y) }

// GetParams はハイパーパラメータを返す
func (r *RidgeCV) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"alphas":        r.Alphas(),
		"fit_intercept": r.fitIntercept,
		"alpha_":        r.Alpha,
	}
}

func (r *RidgeCV) String() string {
	return fmt.Sprintf("RidgeCV(n_alphas=%d)", len(r.alphas))
}

package preprocessing

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/cyclefeat/core/model"
	cfErrors "github.com/YuminosukeSato/cyclefeat/pkg/errors"
)

// KnotStrategy はノット位置の決め方
type KnotStrategy string

const (
	// KnotsUniform は学習データの最小値から最大値まで等間隔
	KnotsUniform KnotStrategy = "uniform"
	// KnotsQuantile は学習データの分位点
	KnotsQuantile KnotStrategy = "quantile"
)

// Extrapolation は学習範囲外の値の扱い
type Extrapolation string

const (
	ExtrapolateError    Extrapolation = "error"
	ExtrapolateConstant Extrapolation = "constant"
	ExtrapolateLinear   Extrapolation = "linear"
	ExtrapolateContinue Extrapolation = "continue"
	// ExtrapolatePeriodic は周期 knots[last]-knots[0] で値を折り返す
	ExtrapolatePeriodic Extrapolation = "periodic"
)

// SplineTransformer は各特徴量を一変数B-スプライン基底に展開する。
//
// 出力列数は特徴量あたり NKnots-1+Degree（periodic の場合は NKnots-1）で、
// IncludeBias が false の場合はさらに1列少ない。
// periodic の場合、x と x+period は同じ行を返し、各行の和は1になる。
type SplineTransformer struct {
	model.BaseEstimator

	Degree int
	NKnots int
	// Knots を指定した場合は全特徴量で共通のノットとして使う（NKnots は無視）
	Knots         []float64
	KnotStrategy  KnotStrategy
	Extrapolation Extrapolation
	IncludeBias   bool

	NFeatures int
	// BaseKnots は特徴量ごとの境界ノット
	BaseKnots [][]float64

	fullKnots [][]float64
	nBasis    int
	nPerFeat  int
}

// NewSplineTransformer は sklearn と同じ既定値（degree=3, n_knots=5, uniform,
// constant, include_bias）の SplineTransformer を作成する
func NewSplineTransformer() *SplineTransformer {
	return &SplineTransformer{
		Degree:        3,
		NKnots:        5,
		KnotStrategy:  KnotsUniform,
		Extrapolation: ExtrapolateConstant,
		IncludeBias:   true,
	}
}

// PeriodicSplineTransformer は [0, period] に等間隔のノットを置いた周期スプラインを作る。
// nSplines が 0 以下の場合は period を丸めた値を使う
func PeriodicSplineTransformer(period float64, nSplines, degree int) *SplineTransformer {
	if nSplines <= 0 {
		nSplines = int(math.Round(period))
	}
	nKnots := nSplines + 1
	knots := make([]float64, nKnots)
	floats.Span(knots, 0, period)
	return &SplineTransformer{
		Degree:        degree,
		NKnots:        nKnots,
		Knots:         knots,
		KnotStrategy:  KnotsUniform,
		Extrapolation: ExtrapolatePeriodic,
		IncludeBias:   true,
	}
}

func (s *SplineTransformer) validate() error {
	if s.Degree < 0 {
		return cfErrors.NewValidationError("degree", "must be a non-negative integer", s.Degree)
	}
	if s.Knots == nil && s.NKnots < 2 {
		return cfErrors.NewValidationError("n_knots", "must be at least 2", s.NKnots)
	}
	switch s.KnotStrategy {
	case "":
		s.KnotStrategy = KnotsUniform
	case KnotsUniform, KnotsQuantile:
	default:
		return cfErrors.NewValidationError("knots", "must be 'uniform' or 'quantile'", s.KnotStrategy)
	}
	switch s.Extrapolation {
	case "":
		s.Extrapolation = ExtrapolateConstant
	case ExtrapolateError, ExtrapolateConstant, ExtrapolateLinear, ExtrapolateContinue, ExtrapolatePeriodic:
	default:
		return cfErrors.NewValidationError("extrapolation", "unsupported mode", s.Extrapolation)
	}
	return nil
}

// Fit は特徴量ごとにノットを決め、基底を構成する
func (s *SplineTransformer) Fit(X mat.Matrix) (err error) {
	defer cfErrors.Recover(&err, "SplineTransformer.Fit")

	if err := s.validate(); err != nil {
		return err
	}
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return cfErrors.NewModelError("SplineTransformer.Fit", "empty data", cfErrors.ErrEmptyData)
	}

	s.NFeatures = c
	s.BaseKnots = make([][]float64, c)
	s.fullKnots = make([][]float64, c)

	col := make([]float64, r)
	for j := 0; j < c; j++ {
		var base []float64
		if s.Knots != nil {
			base = append([]float64(nil), s.Knots...)
		} else {
			mat.Col(col, j, X)
			base = dataKnots(col, s.NKnots, s.KnotStrategy)
		}
		if len(base) < 2 {
			return cfErrors.NewValidationError("knots", "at least 2 knots are required", len(base))
		}
		for k := 1; k < len(base); k++ {
			if base[k] <= base[k-1] {
				return cfErrors.NewValidationError("knots", "must be strictly increasing", base)
			}
		}
		if s.Extrapolation == ExtrapolatePeriodic && len(base) <= s.Degree {
			return cfErrors.NewValidationError("n_knots",
				fmt.Sprintf("periodic splines require degree < n_knots, got degree=%d", s.Degree), len(base))
		}
		s.BaseKnots[j] = base
		s.fullKnots[j] = extendKnots(base, s.Degree, s.Extrapolation == ExtrapolatePeriodic)
	}

	m := len(s.BaseKnots[0])
	s.nBasis = len(s.fullKnots[0]) - s.Degree - 1
	if s.Extrapolation == ExtrapolatePeriodic {
		s.nPerFeat = m - 1
	} else {
		s.nPerFeat = s.nBasis
	}
	if !s.IncludeBias {
		s.nPerFeat--
	}

	s.SetFitted()
	return nil
}

// dataKnots は学習データから境界ノットを計算する
func dataKnots(values []float64, nKnots int, strategy KnotStrategy) []float64 {
	knots := make([]float64, nKnots)
	if strategy == KnotsQuantile {
		sorted := append([]float64(nil), values...)
		sort.Float64s(sorted)
		for i := range knots {
			pos := float64(i) / float64(nKnots-1) * float64(len(sorted)-1)
			lo := int(math.Floor(pos))
			hi := int(math.Ceil(pos))
			frac := pos - float64(lo)
			knots[i] = sorted[lo]*(1-frac) + sorted[hi]*frac
		}
		return knots
	}
	floats.Span(knots, floats.Min(values), floats.Max(values))
	return knots
}

// extendKnots は境界ノットの両側に degree 個ずつノットを追加する。
// periodic の場合は周期的に、それ以外は端の区間幅で等間隔に延長する
func extendKnots(base []float64, degree int, periodic bool) []float64 {
	m := len(base)
	full := make([]float64, 0, m+2*degree)
	if periodic {
		period := base[m-1] - base[0]
		for i := m - 1 - degree; i < m-1; i++ {
			full = append(full, base[i]-period)
		}
		full = append(full, base...)
		for i := 1; i <= degree; i++ {
			full = append(full, base[i]+period)
		}
		return full
	}
	distMin := base[1] - base[0]
	distMax := base[m-1] - base[m-2]
	for i := degree; i >= 1; i-- {
		full = append(full, base[0]-float64(i)*distMin)
	}
	full = append(full, base...)
	for i := 1; i <= degree; i++ {
		full = append(full, base[m-1]+float64(i)*distMax)
	}
	return full
}

// findSpan は t[l] <= x を満たす最大の l を [k, n-1] の範囲で返す
func findSpan(t []float64, k, n int, x float64) int {
	if x < t[k] {
		return k
	}
	// t[k..n] の中で x を超える最初の位置
	l := k + sort.Search(n-k, func(i int) bool { return t[k+i+1] > x })
	if l > n-1 {
		l = n - 1
	}
	return l
}

// basisFuns は区間 l で非零となる k+1 個の基底関数 N_{l-k..l} の x における値を返す。
// x が区間外でもその区間の多項式をそのまま評価する
func basisFuns(t []float64, l, k int, x float64) []float64 {
	N := make([]float64, k+1)
	left := make([]float64, k+1)
	right := make([]float64, k+1)
	N[0] = 1
	for j := 1; j <= k; j++ {
		left[j] = x - t[l+1-j]
		right[j] = t[l+j] - x
		saved := 0.0
		for r := 0; r < j; r++ {
			denom := right[r+1] + left[j-r]
			temp := 0.0
			if denom != 0 {
				temp = N[r] / denom
			}
			N[r] = saved + right[r+1]*temp
			saved = left[j-r] * temp
		}
		N[j] = saved
	}
	return N
}

// basisDerivs は basisFuns と同じ k+1 個の基底関数の一階微分を返す
func basisDerivs(t []float64, l, k int, x float64) []float64 {
	d := make([]float64, k+1)
	if k == 0 {
		return d
	}
	lower := basisFuns(t, l, k-1, x)
	for r := 0; r <= k; r++ {
		i := l - k + r
		if r >= 1 {
			if den := t[i+k] - t[i]; den != 0 {
				d[r] += float64(k) * lower[r-1] / den
			}
		}
		if r <= k-1 {
			if den := t[i+k+1] - t[i+1]; den != 0 {
				d[r] -= float64(k) * lower[r] / den
			}
		}
	}
	return d
}

// Transform は各特徴量をスプライン基底の値に展開する
func (s *SplineTransformer) Transform(X mat.Matrix) (_ mat.Matrix, err error) {
	defer cfErrors.Recover(&err, "SplineTransformer.Transform")
	if err := checkInput(s.IsFitted(), "SplineTransformer", "Transform", X, s.NFeatures); err != nil {
		return nil, err
	}

	r, _ := X.Dims()
	out := mat.NewDense(r, s.NFeatures*s.nPerFeat, nil)
	row := make([]float64, s.nBasis)
	for j := 0; j < s.NFeatures; j++ {
		for i := 0; i < r; i++ {
			if err := s.evaluate(j, X.At(i, j), row); err != nil {
				return nil, err
			}
			for b := 0; b < s.nPerFeat; b++ {
				out.Set(i, j*s.nPerFeat+b, row[b])
			}
		}
	}
	if err := cfErrors.CheckMatrix("SplineTransformer.Transform", out); err != nil {
		return nil, err
	}
	return out, nil
}

// evaluate は特徴量 j の値 x に対する出力を dst に書き込む。
// periodic の場合は折り返した基底を先頭 Degree 列に加算した後の値になる
func (s *SplineTransformer) evaluate(j int, x float64, dst []float64) error {
	for i := range dst {
		dst[i] = 0
	}
	t := s.fullKnots[j]
	base := s.BaseKnots[j]
	k := s.Degree
	lo, hi := base[0], base[len(base)-1]

	add := func(xx float64, scale float64, deriv bool) {
		l := findSpan(t, k, s.nBasis, xx)
		var vals []float64
		if deriv {
			vals = basisDerivs(t, l, k, xx)
		} else {
			vals = basisFuns(t, l, k, xx)
		}
		for r, v := range vals {
			idx := l - k + r
			if s.Extrapolation == ExtrapolatePeriodic {
				idx %= len(base) - 1
			}
			dst[idx] += scale * v
		}
	}

	switch s.Extrapolation {
	case ExtrapolatePeriodic:
		period := hi - lo
		xx := lo + math.Mod(x-lo, period)
		if xx < lo {
			xx += period
		}
		add(xx, 1, false)
	case ExtrapolateError:
		if x < lo || x > hi {
			return cfErrors.NewValueError("SplineTransformer.Transform",
				fmt.Sprintf("value %g of feature %d is outside the fitted range [%g, %g]", x, j, lo, hi))
		}
		add(x, 1, false)
	case ExtrapolateConstant:
		add(math.Min(math.Max(x, lo), hi), 1, false)
	case ExtrapolateContinue:
		add(x, 1, false)
	case ExtrapolateLinear:
		switch {
		case x < lo:
			add(lo, 1, false)
			add(lo, x-lo, true)
		case x > hi:
			add(hi, 1, false)
			add(hi, x-hi, true)
		default:
			add(x, 1, false)
		}
	}
	return nil
}

// FitTransform は学習と変換を同時に行う
func (s *SplineTransformer) FitTransform(X mat.Matrix) (mat.Matrix, error) {
	if err := s.Fit(X); err != nil {
		return nil, err
	}
	return s.Transform(X)
}

// NOutputs は出力列数を返す
func (s *SplineTransformer) NOutputs() int { return s.NFeatures * s.nPerFeat }

// GetFeatureNamesOut は "特徴量名_sp_i" 形式の出力列名を返す
func (s *SplineTransformer) GetFeatureNamesOut(inputFeatures []string) []string {
	if !s.IsFitted() {
		return nil
	}
	out := make([]string, 0, s.NOutputs())
	for j := 0; j < s.NFeatures; j++ {
		name := featureName(inputFeatures, j)
		for b := 0; b < s.nPerFeat; b++ {
			out = append(out, fmt.Sprintf("%s_sp_%d", name, b))
		}
	}
	return out
}

// GetParams はハイパーパラメータを返す
func (s *SplineTransformer) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"degree":        s.Degree,
		"n_knots":       s.NKnots,
		"knots":         s.KnotStrategy,
		"extrapolation": s.Extrapolation,
		"include_bias":  s.IncludeBias,
	}
}

package preprocessing

import (
	"fmt"
	"math"

	"github.com/YuminosukeSato/cyclefeat/core/model"
	cfErrors "github.com/YuminosukeSato/cyclefeat/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// 分散・範囲がこの値未満の特徴量は定数とみなしスケール1で扱う
const constantFeatureTol = 1e-8

// checkInput はTransform系メソッドの共通前提（学習済み、列数一致）を検証する
func checkInput(fitted bool, name, method string, X mat.Matrix, nFeatures int) error {
	if !fitted {
		return cfErrors.NewNotFittedError(name, method)
	}
	if _, c := X.Dims(); c != nFeatures {
		return cfErrors.NewDimensionError(name+"."+method, nFeatures, c, 1)
	}
	return nil
}

// StandardScaler はデータを平均0、標準偏差1に変換する
type StandardScaler struct {
	model.BaseEstimator

	// Mean は各特徴量の平均値
	Mean []float64
	// Scale は各特徴量の標準偏差（定数特徴量は1）
	Scale []float64

	NFeatures int
	WithMean  bool
	WithStd   bool
}

// NewStandardScaler は新しいStandardScalerを作成する
//
// 使用例:
//
//	scaler := preprocessing.NewStandardScaler(true, true)
//	XScaled, err := scaler.FitTransform(X)
func NewStandardScaler(withMean, withStd bool) *StandardScaler {
	return &StandardScaler{WithMean: withMean, WithStd: withStd}
}

// NewStandardScalerDefault は平均・標準偏差の両方を使うStandardScalerを作成する
func NewStandardScalerDefault() *StandardScaler {
	return NewStandardScaler(true, true)
}

// Fit は列ごとの平均と母標準偏差を計算する
func (s *StandardScaler) Fit(X mat.Matrix) (err error) {
	defer cfErrors.Recover(&err, "StandardScaler.Fit")

	r, c := X.Dims()
	if r == 0 || c == 0 {
		return cfErrors.NewModelError("StandardScaler.Fit", "empty data", cfErrors.ErrEmptyData)
	}

	s.NFeatures = c
	s.Mean = make([]float64, c)
	s.Scale = make([]float64, c)

	col := make([]float64, r)
	for j := 0; j < c; j++ {
		mat.Col(col, j, X)
		mean := 0.0
		for _, v := range col {
			mean += v
		}
		mean /= float64(r)

		if s.WithMean {
			s.Mean[j] = mean
		}

		s.Scale[j] = 1.0
		if s.WithStd {
			ss := 0.0
			for _, v := range col {
				ss += (v - mean) * (v - mean)
			}
			if std := math.Sqrt(ss / float64(r)); std >= constantFeatureTol {
				s.Scale[j] = std
			}
		}
	}

	s.SetFitted()
	return nil
}

// Transform は (x - mean) / scale を返す
func (s *StandardScaler) Transform(X mat.Matrix) (mat.Matrix, error) {
	if err := checkInput(s.IsFitted(), "StandardScaler", "Transform", X, s.NFeatures); err != nil {
		return nil, err
	}
	r, c := X.Dims()
	result := mat.NewDense(r, c, nil)
	result.Apply(func(i, j int, v float64) float64 {
		return (v - s.Mean[j]) / s.Scale[j]
	}, X)
	return result, nil
}

// FitTransform は学習と変換を同時に行う
func (s *StandardScaler) FitTransform(X mat.Matrix) (mat.Matrix, error) {
	if err := s.Fit(X); err != nil {
		return nil, err
	}
	return s.Transform(X)
}

// InverseTransform は標準化を元に戻す
func (s *StandardScaler) InverseTransform(X mat.Matrix) (mat.Matrix, error) {
	if err := checkInput(s.IsFitted(), "StandardScaler", "InverseTransform", X, s.NFeatures); err != nil {
		return nil, err
	}
	r, c := X.Dims()
	result := mat.NewDense(r, c, nil)
	result.Apply(func(i, j int, v float64) float64 {
		return v*s.Scale[j] + s.Mean[j]
	}, X)
	return result, nil
}

// NOutputs は出力列数を返す
func (s *StandardScaler) NOutputs() int { return s.NFeatures }

// GetParams はハイパーパラメータを返す
func (s *StandardScaler) GetParams() map[string]interface{} {
	return map[string]interface{}{"with_mean": s.WithMean, "with_std": s.WithStd}
}

func (s *StandardScaler) String() string {
	return fmt.Sprintf("StandardScaler(with_mean=%t, with_std=%t)", s.WithMean, s.WithStd)
}

// MinMaxScaler は各特徴量を FeatureRange（デフォルト[0,1]）に線形変換する
type MinMaxScaler struct {
	model.BaseEstimator

	// DataMin, DataMax は学習データの列ごとの最小値・最大値
	DataMin []float64
	DataMax []float64
	// Scale は DataMax - DataMin（定数特徴量は1）
	Scale []float64

	NFeatures    int
	FeatureRange [2]float64
}

// NewMinMaxScaler は指定範囲にスケーリングするMinMaxScalerを作成する
func NewMinMaxScaler(featureRange [2]float64) *MinMaxScaler {
	return &MinMaxScaler{FeatureRange: featureRange}
}

// NewMinMaxScalerDefault は[0,1]にスケーリングするMinMaxScalerを作成する
func NewMinMaxScalerDefault() *MinMaxScaler {
	return NewMinMaxScaler([2]float64{0, 1})
}

// Fit は列ごとの最小値・最大値を記録する
func (m *MinMaxScaler) Fit(X mat.Matrix) (err error) {
	defer cfErrors.Recover(&err, "MinMaxScaler.Fit")

	r, c := X.Dims()
	if r == 0 || c == 0 {
		return cfErrors.NewModelError("MinMaxScaler.Fit", "empty data", cfErrors.ErrEmptyData)
	}
	if m.FeatureRange[0] >= m.FeatureRange[1] {
		return cfErrors.NewValidationError("feature_range", "minimum must be smaller than maximum", m.FeatureRange)
	}

	m.NFeatures = c
	m.DataMin = make([]float64, c)
	m.DataMax = make([]float64, c)
	m.Scale = make([]float64, c)

	for j := 0; j < c; j++ {
		lo, hi := math.Inf(1), math.Inf(-1)
		for i := 0; i < r; i++ {
			v := X.At(i, j)
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
		m.DataMin[j] = lo
		m.DataMax[j] = hi
		m.Scale[j] = hi - lo
		if m.Scale[j] < constantFeatureTol {
			m.Scale[j] = 1.0
		}
	}

	m.SetFitted()
	return nil
}

// Transform は (x - min) / scale * (hi - lo) + lo を返す。
// 学習範囲外の値は FeatureRange の外にはみ出す（クリップしない）
func (m *MinMaxScaler) Transform(X mat.Matrix) (mat.Matrix, error) {
	if err := checkInput(m.IsFitted(), "MinMaxScaler", "Transform", X, m.NFeatures); err != nil {
		return nil, err
	}
	r, c := X.Dims()
	width := m.FeatureRange[1] - m.FeatureRange[0]
	result := mat.NewDense(r, c, nil)
	result.Apply(func(i, j int, v float64) float64 {
		return (v-m.DataMin[j])/m.Scale[j]*width + m.FeatureRange[0]
	}, X)
	return result, nil
}

// FitTransform は学習と変換を同時に行う
func (m *MinMaxScaler) FitTransform(X mat.Matrix) (mat.Matrix, error) {
	if err := m.Fit(X); err != nil {
		return nil, err
	}
	return m.Transform(X)
}

// InverseTransform はスケーリングを元に戻す
func (m *MinMaxScaler) InverseTransform(X mat.Matrix) (mat.Matrix, error) {
	if err := checkInput(m.IsFitted(), "MinMaxScaler", "InverseTransform", X, m.NFeatures); err != nil {
		return nil, err
	}
	r, c := X.Dims()
	width := m.FeatureRange[1] - m.FeatureRange[0]
	result := mat.NewDense(r, c, nil)
	result.Apply(func(i, j int, v float64) float64 {
		return (v-m.FeatureRange[0])/width*m.Scale[j] + m.DataMin[j]
	}, X)
	return result, nil
}

// NOutputs は出力列数を返す
func (m *MinMaxScaler) NOutputs() int { return m.NFeatures }

// GetParams はハイパーパラメータを返す
func (m *MinMaxScaler) GetParams() map[string]interface{} {
	return map[string]interface{}{"feature_range": m.FeatureRange}
}

func (m *MinMaxScaler) String() string {
	return fmt.Sprintf("MinMaxScaler(feature_range=[%g, %g])", m.FeatureRange[0], m.FeatureRange[1])
}

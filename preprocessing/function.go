package preprocessing

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/cyclefeat/core/model"
	cfErrors "github.com/YuminosukeSato/cyclefeat/pkg/errors"
)

// FunctionTransformer は数値行列の各要素に Func を適用するステートレスな変換器。
// Fit は入力列数を記録するだけ
type FunctionTransformer struct {
	model.BaseEstimator

	Name      string
	Func      func(float64) float64
	NFeatures int
}

// NewFunctionTransformer は要素ごとの関数 fn を適用する変換器を作成する
func NewFunctionTransformer(name string, fn func(float64) float64) *FunctionTransformer {
	return &FunctionTransformer{Name: name, Func: fn}
}

// SinTransformer は sin(2πx / period) を返す
func SinTransformer(period float64) *FunctionTransformer {
	return NewFunctionTransformer("sin", func(x float64) float64 {
		return math.Sin(x / period * 2 * math.Pi)
	})
}

// CosTransformer は cos(2πx / period) を返す
func CosTransformer(period float64) *FunctionTransformer {
	return NewFunctionTransformer("cos", func(x float64) float64 {
		return math.Cos(x / period * 2 * math.Pi)
	})
}

// Fit は入力の列数を記録する。Func が nil の場合はエラー
func (f *FunctionTransformer) Fit(X mat.Matrix) error {
	if f.Func == nil {
		return cfErrors.NewValidationError("func", "must not be nil", nil)
	}
	_, f.NFeatures = X.Dims()
	f.SetFitted()
	return nil
}

// Transform は各要素に Func を適用した新しい行列を返す
func (f *FunctionTransformer) Transform(X mat.Matrix) (mat.Matrix, error) {
	if err := checkInput(f.IsFitted(), "FunctionTransformer", "Transform", X, f.NFeatures); err != nil {
		return nil, err
	}
	r, c := X.Dims()
	out := mat.NewDense(r, c, nil)
	out.Apply(func(_, _ int, v float64) float64 { return f.Func(v) }, X)
	return out, nil
}

// FitTransform は学習と変換を同時に行う
func (f *FunctionTransformer) FitTransform(X mat.Matrix) (mat.Matrix, error) {
	if err := f.Fit(X); err != nil {
		return nil, err
	}
	return f.Transform(X)
}

// NOutputs は出力列数（入力と同じ）を返す
func (f *FunctionTransformer) NOutputs() int { return f.NFeatures }

// StringFunctionTransformer は文字列の各要素を数値に写像する。
// 例: workingday == "True" を 1/0 に変換する
type StringFunctionTransformer struct {
	model.BaseEstimator

	Func      func(string) float64
	NFeatures int
}

// NewStringFunctionTransformer は fn を要素ごとに適用する変換器を作成する
func NewStringFunctionTransformer(fn func(string) float64) *StringFunctionTransformer {
	return &StringFunctionTransformer{Func: fn}
}

// EqualsTransformer は値が want と等しければ1、そうでなければ0を返す
func EqualsTransformer(want string) *StringFunctionTransformer {
	return NewStringFunctionTransformer(func(s string) float64 {
		if s == want {
			return 1
		}
		return 0
	})
}

// Fit は入力の列数を記録する
func (f *StringFunctionTransformer) Fit(data [][]string) error {
	if f.Func == nil {
		return cfErrors.NewValidationError("func", "must not be nil", nil)
	}
	if len(data) == 0 {
		return cfErrors.NewModelError("StringFunctionTransformer.Fit", "empty data", cfErrors.ErrEmptyData)
	}
	f.NFeatures = len(data[0])
	f.SetFitted()
	return nil
}

// Transform は各要素に Func を適用して数値行列にする
func (f *StringFunctionTransformer) Transform(data [][]string) (mat.Matrix, error) {
	if !f.IsFitted() {
		return nil, cfErrors.NewNotFittedError("StringFunctionTransformer", "Transform")
	}
	if len(data) == 0 {
		return nil, cfErrors.NewModelError("StringFunctionTransformer.Transform", "empty data", cfErrors.ErrEmptyData)
	}
	out := mat.NewDense(len(data), f.NFeatures, nil)
	for i, row := range data {
		if len(row) != f.NFeatures {
			return nil, cfErrors.NewDimensionError("StringFunctionTransformer.Transform", f.NFeatures, len(row), 1)
		}
		for j, v := range row {
			out.Set(i, j, f.Func(v))
		}
	}
	return out, nil
}

// FitTransform は学習と変換を同時に行う
func (f *StringFunctionTransformer) FitTransform(data [][]string) (mat.Matrix, error) {
	if err := f.Fit(data); err != nil {
		return nil, err
	}
	return f.Transform(data)
}

// NOutputs は出力列数（入力と同じ）を返す
func (f *StringFunctionTransformer) NOutputs() int { return f.NFeatures }

// Identity は入力をそのまま返す（passthrough）
type Identity struct {
	model.BaseEstimator
	NFeatures int
}

// NewIdentity は Identity 変換器を作成する
func NewIdentity() *Identity { return &Identity{} }

// Fit は入力の列数を記録する
func (t *Identity) Fit(X mat.Matrix) error {
	_, t.NFeatures = X.Dims()
	t.SetFitted()
	return nil
}

// Transform は X のコピーを返す
func (t *Identity) Transform(X mat.Matrix) (mat.Matrix, error) {
	if err := checkInput(t.IsFitted(), "Identity", "Transform", X, t.NFeatures); err != nil {
		return nil, err
	}
	return mat.DenseCopyOf(X), nil
}

// FitTransform は学習と変換を同時に行う
func (t *Identity) FitTransform(X mat.Matrix) (mat.Matrix, error) {
	if err := t.Fit(X); err != nil {
		return nil, err
	}
	return t.Transform(X)
}

// NOutputs は出力列数（入力と同じ）を返す
func (t *Identity) NOutputs() int { return t.NFeatures }

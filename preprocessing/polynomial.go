package preprocessing

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/cyclefeat/core/model"
	cfErrors "github.com/YuminosukeSato/cyclefeat/pkg/errors"
)

// PolynomialFeatures は次数 Degree までの多項式・交互作用特徴量を生成する。
//
// 列の順序はバイアス（IncludeBias の場合）、1次、2次、... の順で、各次数の中では
// 重複組合せ（InteractionOnly の場合は重複なし組合せ）の辞書順になる。
type PolynomialFeatures struct {
	model.BaseEstimator

	Degree          int
	InteractionOnly bool
	IncludeBias     bool

	NFeatures int
	// Powers は各出力列を構成する入力列のインデックス（バイアス列は空）
	Powers [][]int
}

// NewPolynomialFeatures は PolynomialFeatures を作成する
func NewPolynomialFeatures(degree int, interactionOnly, includeBias bool) *PolynomialFeatures {
	return &PolynomialFeatures{Degree: degree, InteractionOnly: interactionOnly, IncludeBias: includeBias}
}

// Fit は出力列の組合せを列挙する
func (p *PolynomialFeatures) Fit(X mat.Matrix) error {
	if p.Degree < 1 {
		return cfErrors.NewValidationError("degree", "must be at least 1", p.Degree)
	}
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return cfErrors.NewModelError("PolynomialFeatures.Fit", "empty data", cfErrors.ErrEmptyData)
	}
	p.NFeatures = c
	p.Powers = p.Powers[:0]
	if p.IncludeBias {
		p.Powers = append(p.Powers, []int{})
	}
	for d := 1; d <= p.Degree; d++ {
		p.combinations(nil, 0, d)
	}
	p.SetFitted()
	return nil
}

func (p *PolynomialFeatures) combinations(prefix []int, start, remaining int) {
	if remaining == 0 {
		p.Powers = append(p.Powers, append([]int(nil), prefix...))
		return
	}
	for i := start; i < p.NFeatures; i++ {
		next := i
		if p.InteractionOnly {
			next = i + 1
		}
		p.combinations(append(prefix, i), next, remaining-1)
	}
}

// Transform は各組合せの積を列として並べる
func (p *PolynomialFeatures) Transform(X mat.Matrix) (mat.Matrix, error) {
	if err := checkInput(p.IsFitted(), "PolynomialFeatures", "Transform", X, p.NFeatures); err != nil {
		return nil, err
	}
	r, _ := X.Dims()
	out := mat.NewDense(r, len(p.Powers), nil)
	for i := 0; i < r; i++ {
		for k, comb := range p.Powers {
			v := 1.0
			for _, j := range comb {
				v *= X.At(i, j)
			}
			out.Set(i, k, v)
		}
	}
	return out, nil
}

// FitTransform は学習と変換を同時に行う
func (p *PolynomialFeatures) FitTransform(X mat.Matrix) (mat.Matrix, error) {
	if err := p.Fit(X); err != nil {
		return nil, err
	}
	return p.Transform(X)
}

// NOutputs は出力列数を返す
func (p *PolynomialFeatures) NOutputs() int { return len(p.Powers) }

// GetFeatureNamesOut は "x0 x1" や "x0^2" 形式の出力列名を返す
func (p *PolynomialFeatures) GetFeatureNamesOut(inputFeatures []string) []string {
	if !p.IsFitted() {
		return nil
	}
	out := make([]string, len(p.Powers))
	for k, comb := range p.Powers {
		if len(comb) == 0 {
			out[k] = "1"
			continue
		}
		var parts []string
		for i := 0; i < len(comb); {
			j := i
			for j < len(comb) && comb[j] == comb[i] {
				j++
			}
			name := featureName(inputFeatures, comb[i])
			if j-i > 1 {
				name = fmt.Sprintf("%s^%d", name, j-i)
			}
			parts = append(parts, name)
			i = j
		}
		out[k] = strings.Join(parts, " ")
	}
	return out
}

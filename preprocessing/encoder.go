package preprocessing

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/cyclefeat/core/model"
	cfErrors "github.com/YuminosukeSato/cyclefeat/pkg/errors"
)

// HandleUnknown は変換時に未知カテゴリが現れた場合の扱い
type HandleUnknown string

const (
	// HandleUnknownError は UnknownCategoryError を返す
	HandleUnknownError HandleUnknown = "error"
	// HandleUnknownIgnore はその特徴量のブロックを全て0にする
	HandleUnknownIgnore HandleUnknown = "ignore"
)

// categoryIndex は特徴量ごとのカテゴリ一覧と逆引きマップ
type categoryIndex struct {
	Categories    [][]string
	CategoryToIdx []map[string]int
	NFeatures     int
}

// fitCategories は explicit が与えられればその順序を、なければソート済みユニーク値を採用する
func (ci *categoryIndex) fitCategories(op string, data [][]string, explicit [][]string) error {
	if len(data) == 0 {
		return cfErrors.NewModelError(op, "empty data", cfErrors.ErrEmptyData)
	}
	nFeatures := len(data[0])
	if nFeatures == 0 {
		return cfErrors.NewModelError(op, "empty features", cfErrors.ErrEmptyData)
	}
	for _, row := range data {
		if len(row) != nFeatures {
			return cfErrors.NewDimensionError(op, nFeatures, len(row), 1)
		}
	}
	if explicit != nil && len(explicit) != nFeatures {
		return cfErrors.NewDimensionError(op, len(explicit), nFeatures, 1)
	}

	ci.NFeatures = nFeatures
	ci.Categories = make([][]string, nFeatures)
	ci.CategoryToIdx = make([]map[string]int, nFeatures)

	for j := 0; j < nFeatures; j++ {
		var categories []string
		if explicit != nil {
			categories = append([]string(nil), explicit[j]...)
		} else {
			seen := make(map[string]bool)
			for _, row := range data {
				if !seen[row[j]] {
					seen[row[j]] = true
					categories = append(categories, row[j])
				}
			}
			sort.Strings(categories)
		}

		idx := make(map[string]int, len(categories))
		for k, c := range categories {
			if _, dup := idx[c]; dup {
				return cfErrors.NewValidationError("categories", "duplicated category", c)
			}
			idx[c] = k
		}
		ci.Categories[j] = categories
		ci.CategoryToIdx[j] = idx

		// 明示カテゴリ指定時は学習データに未知の値があってはならない
		if explicit != nil {
			for _, row := range data {
				if _, ok := idx[row[j]]; !ok {
					return cfErrors.NewUnknownCategoryError(op, j, row[j])
				}
			}
		}
	}
	return nil
}

func featureName(inputFeatures []string, i int) string {
	if i < len(inputFeatures) {
		return inputFeatures[i]
	}
	return fmt.Sprintf("x%d", i)
}

// OneHotEncoder はカテゴリカルな文字列データを0/1の密なブロックに変換する
type OneHotEncoder struct {
	model.BaseEstimator
	categoryIndex

	// ExplicitCategories を指定した場合、学習データからカテゴリを推定しない
	ExplicitCategories [][]string

	HandleUnknown HandleUnknown

	nOutputs int
}

// NewOneHotEncoder は新しいOneHotEncoderを作成する。未知カテゴリはエラーになる
//
// 使用例:
//
//	encoder := preprocessing.NewOneHotEncoder()
//	encoder.HandleUnknown = preprocessing.HandleUnknownIgnore
//	encoded, err := encoder.FitTransform(data)
func NewOneHotEncoder() *OneHotEncoder {
	return &OneHotEncoder{HandleUnknown: HandleUnknownError}
}

// Fit は訓練データ (n_samples × n_features) からカテゴリを学習する
func (e *OneHotEncoder) Fit(data [][]string) (err error) {
	defer cfErrors.Recover(&err, "OneHotEncoder.Fit")

	switch e.HandleUnknown {
	case "":
		e.HandleUnknown = HandleUnknownError
	case HandleUnknownError, HandleUnknownIgnore:
	default:
		return cfErrors.NewValidationError("handle_unknown", "must be 'error' or 'ignore'", e.HandleUnknown)
	}

	if err := e.fitCategories("OneHotEncoder.Fit", data, e.ExplicitCategories); err != nil {
		return err
	}
	e.nOutputs = 0
	for _, categories := range e.Categories {
		e.nOutputs += len(categories)
	}

	e.SetFitted()
	return nil
}

// Transform は各特徴量をカテゴリ数ぶんの0/1列に展開する
func (e *OneHotEncoder) Transform(data [][]string) (_ mat.Matrix, err error) {
	defer cfErrors.Recover(&err, "OneHotEncoder.Transform")
	if !e.IsFitted() {
		return nil, cfErrors.NewNotFittedError("OneHotEncoder", "Transform")
	}
	if len(data) == 0 {
		return nil, cfErrors.NewModelError("OneHotEncoder.Transform", "empty data", cfErrors.ErrEmptyData)
	}

	result := mat.NewDense(len(data), e.nOutputs, nil)
	for i, row := range data {
		if len(row) != e.NFeatures {
			return nil, cfErrors.NewDimensionError("OneHotEncoder.Transform", e.NFeatures, len(row), 1)
		}
		offset := 0
		for j, category := range row {
			if idx, ok := e.CategoryToIdx[j][category]; ok {
				result.Set(i, offset+idx, 1.0)
			} else if e.HandleUnknown == HandleUnknownError {
				return nil, cfErrors.NewUnknownCategoryError("OneHotEncoder.Transform", j, category)
			}
			offset += len(e.Categories[j])
		}
	}
	return result, nil
}

// FitTransform は学習と変換を同時に行う
func (e *OneHotEncoder) FitTransform(data [][]string) (mat.Matrix, error) {
	if err := e.Fit(data); err != nil {
		return nil, err
	}
	return e.Transform(data)
}

// NOutputs は出力列数（全特徴量のカテゴリ数の合計）を返す
func (e *OneHotEncoder) NOutputs() int { return e.nOutputs }

// GetFeatureNamesOut は "特徴量名_カテゴリ" 形式の出力列名を返す
func (e *OneHotEncoder) GetFeatureNamesOut(inputFeatures []string) []string {
	if !e.IsFitted() {
		return nil
	}
	var out []string
	for i, categories := range e.Categories {
		name := featureName(inputFeatures, i)
		for _, category := range categories {
			out = append(out, name+"_"+category)
		}
	}
	return out
}

// OrdinalEncoder はカテゴリを 0, 1, 2, ... の整数コードに変換する。
// 勾配ブースティングのカテゴリ特徴量の前処理に使う
type OrdinalEncoder struct {
	model.BaseEstimator
	categoryIndex

	// ExplicitCategories を指定した場合その順序でコードを割り当てる
	ExplicitCategories [][]string
}

// NewOrdinalEncoder は OrdinalEncoder を作成する。categories が nil なら学習データから推定する
func NewOrdinalEncoder(categories [][]string) *OrdinalEncoder {
	return &OrdinalEncoder{ExplicitCategories: categories}
}

// Fit は特徴量ごとのカテゴリ順序を決定する
func (e *OrdinalEncoder) Fit(data [][]string) (err error) {
	defer cfErrors.Recover(&err, "OrdinalEncoder.Fit")
	if err := e.fitCategories("OrdinalEncoder.Fit", data, e.ExplicitCategories); err != nil {
		return err
	}
	e.SetFitted()
	return nil
}

// Transform は各値をカテゴリのインデックスに置き換える。未知カテゴリはエラー
func (e *OrdinalEncoder) Transform(data [][]string) (_ mat.Matrix, err error) {
	defer cfErrors.Recover(&err, "OrdinalEncoder.Transform")
	if !e.IsFitted() {
		return nil, cfErrors.NewNotFittedError("OrdinalEncoder", "Transform")
	}
	if len(data) == 0 {
		return nil, cfErrors.NewModelError("OrdinalEncoder.Transform", "empty data", cfErrors.ErrEmptyData)
	}

	result := mat.NewDense(len(data), e.NFeatures, nil)
	for i, row := range data {
		if len(row) != e.NFeatures {
			return nil, cfErrors.NewDimensionError("OrdinalEncoder.Transform", e.NFeatures, len(row), 1)
		}
		for j, category := range row {
			idx, ok := e.CategoryToIdx[j][category]
			if !ok {
				return nil, cfErrors.NewUnknownCategoryError("OrdinalEncoder.Transform", j, category)
			}
			result.Set(i, j, float64(idx))
		}
	}
	return result, nil
}

// FitTransform は学習と変換を同時に行う
func (e *OrdinalEncoder) FitTransform(data [][]string) (mat.Matrix, error) {
	if err := e.Fit(data); err != nil {
		return nil, err
	}
	return e.Transform(data)
}

// NOutputs は入力と同じ列数を返す
func (e *OrdinalEncoder) NOutputs() int { return e.NFeatures }

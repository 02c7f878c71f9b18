package model

import (
	"encoding/json"
	"fmt"
	"io"
)

// ModelWeights は学習済み線形モデルの重みを表す構造体（JSONエクスポート用）
type ModelWeights struct {
	// ModelType はモデルの種類（RidgeCV, Ridge, LinearRegression）
	ModelType string `json:"model_type"`

	// Version はフォーマットのバージョン
	Version string `json:"version"`

	// Coefficients は重み係数
	Coefficients []float64 `json:"coefficients"`

	// Intercept は切片
	Intercept float64 `json:"intercept"`

	// Features は特徴量の名前（オプション）
	Features []string `json:"features,omitempty"`

	// Hyperparameters は選択されたハイパーパラメータ（alpha等）
	Hyperparameters map[string]interface{} `json:"hyperparameters"`

	// IsFitted はモデルが学習済みかどうか
	IsFitted bool `json:"is_fitted"`
}

// WeightsVersion は現在のエクスポート形式
const WeightsVersion = "1.0"

// NewModelWeights は LinearModel から ModelWeights を作成する
func NewModelWeights(modelType string, m LinearModel, params map[string]interface{}) *ModelWeights {
	coef := m.Weights()
	return &ModelWeights{
		ModelType:       modelType,
		Version:         WeightsVersion,
		Coefficients:    append([]float64(nil), coef...),
		Intercept:       m.Intercept(),
		Hyperparameters: params,
		IsFitted:        len(coef) > 0,
	}
}

// Validate はModelWeightsの妥当性を検証
func (mw *ModelWeights) Validate() error {
	if mw.ModelType == "" {
		return fmt.Errorf("model_type is required")
	}
	if mw.Version == "" {
		return fmt.Errorf("version is required")
	}
	if !mw.IsFitted && len(mw.Coefficients) > 0 {
		return fmt.Errorf("unfitted model should not have coefficients")
	}
	if mw.IsFitted && len(mw.Coefficients) == 0 {
		return fmt.Errorf("fitted model must have coefficients")
	}
	if len(mw.Features) > 0 && len(mw.Features) != len(mw.Coefficients) {
		return fmt.Errorf("features (%d) and coefficients (%d) differ in length", len(mw.Features), len(mw.Coefficients))
	}
	return nil
}

// WriteJSON はインデント付きJSONとして書き出す
func (mw *ModelWeights) WriteJSON(w io.Writer) error {
	if err := mw.Validate(); err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(mw); err != nil {
		return fmt.Errorf("failed to encode weights: %w", err)
	}
	return nil
}

// ReadModelWeights はJSONからModelWeightsを読み込む
func ReadModelWeights(r io.Reader) (*ModelWeights, error) {
	var mw ModelWeights
	if err := json.NewDecoder(r).Decode(&mw); err != nil {
		return nil, fmt.Errorf("failed to decode weights: %w", err)
	}
	if err := mw.Validate(); err != nil {
		return nil, err
	}
	return &mw, nil
}

package model

import "gonum.org/v1/gonum/mat"

// Transformer は数値データ変換のインターフェース
type Transformer interface {
	// Fit は変換に必要なパラメータを学習する
	Fit(X mat.Matrix) error

	// Transform はデータを変換する
	Transform(X mat.Matrix) (mat.Matrix, error)

	// FitTransform はFitとTransformを同時に実行する
	FitTransform(X mat.Matrix) (mat.Matrix, error)
}

// StringTransformer はカテゴリカルな文字列データを数値行列に変換するインターフェース
// 入力は行優先 (n_samples × n_features)
type StringTransformer interface {
	Fit(data [][]string) error
	Transform(data [][]string) (mat.Matrix, error)
	FitTransform(data [][]string) (mat.Matrix, error)
}

// OutputCounter は学習後の出力列数を報告する変換器
type OutputCounter interface {
	NOutputs() int
}

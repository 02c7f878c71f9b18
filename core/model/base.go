package model

import (
	"github.com/YuminosukeSato/cyclefeat/pkg/errors"
)

// EstimatorState はモデルの学習状態を表す
type EstimatorState int

const (
	// NotFitted はモデルが未学習の状態
	NotFitted EstimatorState = iota
	// Fitted はモデルが学習済みの状態
	Fitted
)

// BaseEstimator は全ての推定器・変換器に埋め込む基底構造体。
// 学習状態と学習時の入力列数を持つ
type BaseEstimator struct {
	state       EstimatorState
	nFeaturesIn int
}

// IsFitted はモデルが学習済みかどうかを返す
func (e *BaseEstimator) IsFitted() bool {
	return e.state == Fitted
}

// SetFitted はモデルを学習済み状態に設定する
func (e *BaseEstimator) SetFitted() {
	e.state = Fitted
}

// SetFittedWith は学習時の入力列数を記録して学習済み状態に設定する
func (e *BaseEstimator) SetFittedWith(nFeatures int) {
	e.nFeaturesIn = nFeatures
	e.state = Fitted
}

// NFeaturesIn は学習時の入力列数を返す。SetFittedWith を使わない推定器では 0
func (e *BaseEstimator) NFeaturesIn() int {
	return e.nFeaturesIn
}

// CheckInput は学習済みであることと X の列数が学習時と一致することを確かめる。
// name と method はエラーメッセージに使う
func (e *BaseEstimator) CheckInput(name, method string, X interface{ Dims() (int, int) }) error {
	if !e.IsFitted() {
		return errors.NewNotFittedError(name, method)
	}
	if _, c := X.Dims(); c != e.nFeaturesIn {
		return errors.NewDimensionError(name+"."+method, e.nFeaturesIn, c, 1)
	}
	return nil
}

// Reset はモデルを初期状態にリセットする
func (e *BaseEstimator) Reset() {
	e.state = NotFitted
	e.nFeaturesIn = 0
}

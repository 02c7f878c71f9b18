// Package model_selection provides cross-validation splitters and a
// parallel cross_validate driver.
package model_selection

import (
	"math/rand/v2"

	cfErrors "github.com/YuminosukeSato/cyclefeat/pkg/errors"
)

// Fold holds the row indices of one train/test split.
type Fold struct {
	TrainIndices []int
	TestIndices  []int
}

// Splitter generates folds for a dataset of nSamples rows.
type Splitter interface {
	Split(nSamples int) ([]Fold, error)
	GetNSplits() int
}

func span(start, end int) []int {
	out := make([]int, 0, end-start)
	for i := start; i < end; i++ {
		out = append(out, i)
	}
	return out
}

// TimeSeriesSplit yields NSplits consecutive test windows at the end of
// the series. Each training set ends Gap rows before its test window and
// keeps at most MaxTrainSize of the most recent rows.
type TimeSeriesSplit struct {
	NSplits      int
	Gap          int
	MaxTrainSize int // 0 means unlimited
	TestSize     int // 0 means n_samples / (NSplits + 1)
}

// NewTimeSeriesSplit creates a splitter with the given number of folds.
func NewTimeSeriesSplit(nSplits int) *TimeSeriesSplit {
	return &TimeSeriesSplit{NSplits: nSplits}
}

// GetNSplits returns the number of splits.
func (ts *TimeSeriesSplit) GetNSplits() int { return ts.NSplits }

// Split generates the folds in chronological order.
func (ts *TimeSeriesSplit) Split(nSamples int) ([]Fold, error) {
	if ts.NSplits < 2 {
		return nil, cfErrors.NewValidationError("n_splits", "must be at least 2", ts.NSplits)
	}
	if ts.Gap < 0 || ts.MaxTrainSize < 0 || ts.TestSize < 0 {
		return nil, cfErrors.NewValidationError("gap/max_train_size/test_size", "must be non-negative",
			[]int{ts.Gap, ts.MaxTrainSize, ts.TestSize})
	}
	nFolds := ts.NSplits + 1
	if nFolds > nSamples {
		return nil, cfErrors.Wrapf(cfErrors.ErrTooFewSamples,
			"cannot have number of folds=%d greater than the number of samples=%d", nFolds, nSamples)
	}
	testSize := ts.TestSize
	if testSize == 0 {
		testSize = nSamples / nFolds
	}
	if nSamples-ts.Gap-testSize*ts.NSplits <= 0 {
		return nil, cfErrors.Wrapf(cfErrors.ErrTooFewSamples,
			"too many splits=%d for number of samples=%d with test_size=%d and gap=%d",
			ts.NSplits, nSamples, testSize, ts.Gap)
	}

	folds := make([]Fold, 0, ts.NSplits)
	for testStart := nSamples - ts.NSplits*testSize; testStart < nSamples; testStart += testSize {
		trainEnd := testStart - ts.Gap
		trainStart := 0
		if ts.MaxTrainSize > 0 && ts.MaxTrainSize < trainEnd {
			trainStart = trainEnd - ts.MaxTrainSize
		}
		folds = append(folds, Fold{
			TrainIndices: span(trainStart, trainEnd),
			TestIndices:  span(testStart, testStart+testSize),
		})
	}
	return folds, nil
}

// KFold splits the rows into NSplits folds of near-equal size, the
// first n % NSplits folds holding one extra row.
type KFold struct {
	NSplits    int
	Shuffle    bool
	RandomSeed uint64
}

// NewKFold creates a new k-fold splitter.
func NewKFold(nSplits int, shuffle bool, randomSeed uint64) *KFold {
	return &KFold{NSplits: nSplits, Shuffle: shuffle, RandomSeed: randomSeed}
}

// GetNSplits returns the number of splits.
func (kf *KFold) GetNSplits() int { return kf.NSplits }

// Split generates train/test indices for each fold.
func (kf *KFold) Split(nSamples int) ([]Fold, error) {
	if kf.NSplits < 2 {
		return nil, cfErrors.NewValidationError("n_splits", "must be at least 2", kf.NSplits)
	}
	if kf.NSplits > nSamples {
		return nil, cfErrors.Wrapf(cfErrors.ErrTooFewSamples,
			"cannot have number of splits=%d greater than the number of samples=%d", kf.NSplits, nSamples)
	}

	indices := span(0, nSamples)
	if kf.Shuffle {
		r := rand.New(rand.NewPCG(kf.RandomSeed, kf.RandomSeed))
		r.Shuffle(len(indices), func(i, j int) {
			indices[i], indices[j] = indices[j], indices[i]
		})
	}

	folds := make([]Fold, kf.NSplits)
	foldSize := nSamples / kf.NSplits
	remainder := nSamples % kf.NSplits
	inTest := make([]bool, nSamples)

	current := 0
	for i := 0; i < kf.NSplits; i++ {
		testSize := foldSize
		if i < remainder {
			testSize++
		}
		test := append([]int(nil), indices[current:current+testSize]...)
		for _, idx := range test {
			inTest[idx] = true
		}
		train := make([]int, 0, nSamples-testSize)
		for _, idx := range indices {
			if !inTest[idx] {
				train = append(train, idx)
			}
		}
		for _, idx := range test {
			inTest[idx] = false
		}
		folds[i] = Fold{TrainIndices: train, TestIndices: test}
		current += testSize
	}
	return folds, nil
}

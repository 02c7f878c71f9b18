package model_selection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cfErrors "github.com/YuminosukeSato/cyclefeat/pkg/errors"
)

func TestTimeSeriesSplit_Default(t *testing.T) {
	ts := NewTimeSeriesSplit(3)
	folds, err := ts.Split(8)
	require.NoError(t, err)
	require.Len(t, folds, 3)

	assert.Equal(t, []int{0, 1}, folds[0].TrainIndices)
	assert.Equal(t, []int{2, 3}, folds[0].TestIndices)
	assert.Equal(t, []int{0, 1, 2, 3}, folds[1].TrainIndices)
	assert.Equal(t, []int{4, 5}, folds[1].TestIndices)
	assert.Equal(t, []int{6, 7}, folds[2].TestIndices)
}

func TestTimeSeriesSplit_GapAndMaxTrain(t *testing.T) {
	ts := &TimeSeriesSplit{NSplits: 5, Gap: 48, MaxTrainSize: 10000, TestSize: 1000}
	n := 17379
	folds, err := ts.Split(n)
	require.NoError(t, err)
	require.Len(t, folds, 5)

	for k, f := range folds {
		testStart := n - (5-k)*1000
		assert.Equal(t, testStart, f.TestIndices[0])
		assert.Len(t, f.TestIndices, 1000)
		trainEnd := f.TrainIndices[len(f.TrainIndices)-1] + 1
		assert.Equal(t, testStart-48, trainEnd)
		assert.LessOrEqual(t, len(f.TrainIndices), 10000)
	}
	// 最後の分割の学習期間は最大長で打ち切られる
	last := folds[4]
	assert.Len(t, last.TrainIndices, 10000)
	assert.Equal(t, n-1000-48-10000, last.TrainIndices[0])
}

func TestTimeSeriesSplit_TooFewSamples(t *testing.T) {
	tests := []struct {
		name string
		ts   *TimeSeriesSplit
		n    int
	}{
		{"folds exceed samples", NewTimeSeriesSplit(5), 4},
		{"test windows exceed samples", &TimeSeriesSplit{NSplits: 3, TestSize: 4}, 12},
		{"gap exhausts train", &TimeSeriesSplit{NSplits: 2, TestSize: 3, Gap: 4}, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.ts.Split(tt.n)
			require.Error(t, err)
			assert.True(t, cfErrors.Is(err, cfErrors.ErrTooFewSamples))
		})
	}

	_, err := NewTimeSeriesSplit(1).Split(10)
	assert.Error(t, err)
}

func TestKFold(t *testing.T) {
	kf := NewKFold(3, false, 0)
	folds, err := kf.Split(10)
	require.NoError(t, err)
	require.Len(t, folds, 3)

	assert.Equal(t, []int{0, 1, 2, 3}, folds[0].TestIndices)
	assert.Equal(t, []int{4, 5, 6}, folds[1].TestIndices)
	assert.Equal(t, []int{7, 8, 9}, folds[2].TestIndices)
	assert.Equal(t, []int{0, 1, 2, 3, 7, 8, 9}, folds[1].TrainIndices)

	shuffled, err := NewKFold(3, true, 42).Split(10)
	require.NoError(t, err)
	seen := map[int]int{}
	for _, f := range shuffled {
		assert.Len(t, f.TrainIndices, 10-len(f.TestIndices))
		for _, i := range f.TestIndices {
			seen[i]++
		}
	}
	assert.Len(t, seen, 10)
	for _, c := range seen {
		assert.Equal(t, 1, c)
	}

	_, err = NewKFold(11, false, 0).Split(10)
	assert.Error(t, err)
}

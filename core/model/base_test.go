package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/cyclefeat/pkg/errors"
)

func TestBaseEstimatorCheckInput(t *testing.T) {
	var e BaseEstimator

	err := e.CheckInput("RidgeCV", "Predict", mat.NewDense(2, 3, nil))
	var nf *errors.NotFittedError
	require.True(t, errors.As(err, &nf), "err = %v", err)
	assert.Equal(t, "Predict", nf.Method)

	e.SetFittedWith(3)
	assert.True(t, e.IsFitted())
	assert.Equal(t, 3, e.NFeaturesIn())
	assert.NoError(t, e.CheckInput("RidgeCV", "Predict", mat.NewDense(2, 3, nil)))

	err = e.CheckInput("RidgeCV", "Predict", mat.NewDense(2, 4, nil))
	var de *errors.DimensionError
	require.True(t, errors.As(err, &de), "err = %v", err)
	assert.Equal(t, "RidgeCV.Predict", de.Op)
	assert.Equal(t, 3, de.Expected)
	assert.Equal(t, 4, de.Got)

	e.Reset()
	assert.False(t, e.IsFitted())
	assert.Equal(t, 0, e.NFeaturesIn())
}

package model

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedLinear struct {
	w []float64
	b float64
}

func (f fixedLinear) Weights() []float64 { return f.w }
func (f fixedLinear) Intercept() float64 { return f.b }

func TestModelWeightsRoundTrip(t *testing.T) {
	mw := NewModelWeights("RidgeCV", fixedLinear{w: []float64{0.5, -1.25}, b: 3}, map[string]interface{}{"alpha": 0.1})
	mw.Features = []string{"temp", "humidity"}

	var buf bytes.Buffer
	require.NoError(t, mw.WriteJSON(&buf))

	got, err := ReadModelWeights(&buf)
	require.NoError(t, err)
	assert.Equal(t, "RidgeCV", got.ModelType)
	assert.Equal(t, WeightsVersion, got.Version)
	assert.Equal(t, []float64{0.5, -1.25}, got.Coefficients)
	assert.Equal(t, 3.0, got.Intercept)
	assert.Equal(t, 0.1, got.Hyperparameters["alpha"])
}

func TestModelWeightsValidate(t *testing.T) {
	tests := []struct {
		name    string
		mw      ModelWeights
		wantErr bool
	}{
		{"missing type", ModelWeights{Version: "1.0"}, true},
		{"missing version", ModelWeights{ModelType: "Ridge"}, true},
		{"fitted without coefficients", ModelWeights{ModelType: "Ridge", Version: "1.0", IsFitted: true}, true},
		{"feature mismatch", ModelWeights{ModelType: "Ridge", Version: "1.0", IsFitted: true, Coefficients: []float64{1}, Features: []string{"a", "b"}}, true},
		{"unfitted", ModelWeights{ModelType: "Ridge", Version: "1.0"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.mw.Validate()
			assert.Equal(t, tt.wantErr, err != nil, "err = %v", err)
		})
	}
}

func TestBaseEstimatorState(t *testing.T) {
	var e BaseEstimator
	assert.False(t, e.IsFitted())
	e.SetFitted()
	assert.True(t, e.IsFitted())
	e.Reset()
	assert.False(t, e.IsFitted())
}

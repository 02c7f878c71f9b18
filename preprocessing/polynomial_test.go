package preprocessing_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/cyclefeat/preprocessing"
)

func TestPolynomialFeatures(t *testing.T) {
	X := mat.NewDense(1, 3, []float64{2, 3, 5})

	tests := []struct {
		name            string
		interactionOnly bool
		includeBias     bool
		want            []float64
		names           []string
	}{
		{
			name:  "full degree 2",
			want:  []float64{2, 3, 5, 4, 6, 10, 9, 15, 25},
			names: []string{"x0", "x1", "x2", "x0^2", "x0 x1", "x0 x2", "x1^2", "x1 x2", "x2^2"},
		},
		{
			name:            "interaction only",
			interactionOnly: true,
			want:            []float64{2, 3, 5, 6, 10, 15},
			names:           []string{"x0", "x1", "x2", "x0 x1", "x0 x2", "x1 x2"},
		},
		{
			name:            "interaction only with bias",
			interactionOnly: true,
			includeBias:     true,
			want:            []float64{1, 2, 3, 5, 6, 10, 15},
			names:           []string{"1", "x0", "x1", "x2", "x0 x1", "x0 x2", "x1 x2"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := preprocessing.NewPolynomialFeatures(2, tt.interactionOnly, tt.includeBias)
			out, err := p.FitTransform(X)
			require.NoError(t, err)
			assert.Equal(t, tt.want, mat.Row(nil, 0, out))
			assert.Equal(t, len(tt.want), p.NOutputs())
			assert.Equal(t, tt.names, p.GetFeatureNamesOut(nil))
		})
	}
}

func TestPolynomialFeatures_Errors(t *testing.T) {
	assert.Error(t, preprocessing.NewPolynomialFeatures(0, false, false).Fit(mat.NewDense(1, 1, nil)))

	p := preprocessing.NewPolynomialFeatures(2, true, false)
	require.NoError(t, p.Fit(mat.NewDense(1, 2, nil)))
	_, err := p.Transform(mat.NewDense(1, 3, nil))
	assert.Error(t, err)
}

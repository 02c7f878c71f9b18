package kernel_approximation

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestPairwiseKernel(t *testing.T) {
	X := mat.NewDense(2, 2, []float64{1, 0, 0, 2})
	Y := mat.NewDense(1, 2, []float64{1, 1})

	tests := []struct {
		name   string
		params KernelParams
		want   []float64
	}{
		{"linear", KernelParams{Kernel: KernelLinear}, []float64{1, 2}},
		{"poly", KernelParams{Kernel: KernelPoly, Gamma: 1, Degree: 2, Coef0: 1}, []float64{4, 9}},
		{"poly default gamma", KernelParams{Kernel: KernelPoly, Degree: 2, Coef0: 1}, []float64{2.25, 4}},
		{"rbf", KernelParams{Kernel: KernelRBF, Gamma: 0.5}, []float64{math.Exp(-0.5), math.Exp(-1)}},
		{"sigmoid", KernelParams{Kernel: KernelSigmoid, Gamma: 1, Coef0: 0}, []float64{math.Tanh(1), math.Tanh(2)}},
		{"cosine", KernelParams{Kernel: KernelCosine}, []float64{1 / math.Sqrt2, 2 / (2 * math.Sqrt2)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			K, err := PairwiseKernel(X, Y, tt.params)
			require.NoError(t, err)
			r, c := K.Dims()
			require.Equal(t, 2, r)
			require.Equal(t, 1, c)
			for i, w := range tt.want {
				assert.InDelta(t, w, K.At(i, 0), 1e-12)
			}
		})
	}
}

func TestKernelValid(t *testing.T) {
	for _, k := range []Kernel{KernelPoly, KernelRBF, KernelLinear, KernelSigmoid, KernelCosine} {
		assert.True(t, k.Valid(), k)
	}
	assert.False(t, Kernel("laplacian").Valid())
	assert.False(t, Kernel("").Valid())
}

func TestPairwiseKernel_Errors(t *testing.T) {
	X := mat.NewDense(2, 2, nil)
	_, err := PairwiseKernel(X, mat.NewDense(2, 3, nil), KernelParams{Kernel: KernelLinear})
	assert.Error(t, err)

	_, err = PairwiseKernel(X, X, KernelParams{Kernel: "laplacian"})
	assert.Error(t, err)
}

func TestPairwiseKernel_RBFSymmetric(t *testing.T) {
	X := mat.NewDense(3, 1, []float64{0, 1, 3})
	K, err := PairwiseKernel(X, X, KernelParams{Kernel: KernelRBF, Gamma: 1})
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		assert.InDelta(t, 1.0, K.At(i, i), 1e-12)
		for j := 0; j < 3; j++ {
			assert.InDelta(t, K.At(i, j), K.At(j, i), 1e-12)
		}
	}
}

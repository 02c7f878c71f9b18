// Package kernel_approximation provides low rank feature maps that
// approximate kernel methods, mirroring sklearn.kernel_approximation.
package kernel_approximation

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/cyclefeat/core/parallel"
	"github.com/YuminosukeSato/cyclefeat/pkg/errors"
)

// Kernel names a pairwise kernel function.
type Kernel string

const (
	KernelPoly    Kernel = "poly"
	KernelRBF     Kernel = "rbf"
	KernelLinear  Kernel = "linear"
	KernelSigmoid Kernel = "sigmoid"
	KernelCosine  Kernel = "cosine"
)

// Valid reports whether k is one of the supported kernels.
func (k Kernel) Valid() bool {
	switch k {
	case KernelPoly, KernelRBF, KernelLinear, KernelSigmoid, KernelCosine:
		return true
	}
	return false
}

// KernelParams holds the kernel hyperparameters.
// Gamma <= 0 means 1/n_features.
type KernelParams struct {
	Kernel Kernel
	Gamma  float64
	Degree float64
	Coef0  float64
}

func (p KernelParams) gamma(nFeatures int) float64 {
	if p.Gamma > 0 {
		return p.Gamma
	}
	return 1 / float64(nFeatures)
}

// PairwiseKernel returns the dense kernel matrix K[i][j] = k(X_i, Y_j).
func PairwiseKernel(X, Y mat.Matrix, p KernelParams) (*mat.Dense, error) {
	nx, cx := X.Dims()
	ny, cy := Y.Dims()
	if cx != cy {
		return nil, errors.NewDimensionError("PairwiseKernel", cx, cy, 1)
	}
	if nx == 0 || ny == 0 {
		return nil, errors.ErrEmptyData
	}

	var K mat.Dense
	K.Mul(X, Y.T())
	gamma := p.gamma(cx)

	switch p.Kernel {
	case KernelLinear:
		return &K, nil
	case KernelPoly:
		applyRows(&K, func(_, _ int, v float64) float64 {
			return math.Pow(gamma*v+p.Coef0, p.Degree)
		})
	case KernelSigmoid:
		applyRows(&K, func(_, _ int, v float64) float64 {
			return math.Tanh(gamma*v + p.Coef0)
		})
	case KernelRBF:
		xn := squaredNorms(X)
		yn := squaredNorms(Y)
		applyRows(&K, func(i, j int, v float64) float64 {
			d := xn[i] + yn[j] - 2*v
			if d < 0 {
				d = 0
			}
			return math.Exp(-gamma * d)
		})
	case KernelCosine:
		xn := squaredNorms(X)
		yn := squaredNorms(Y)
		applyRows(&K, func(i, j int, v float64) float64 {
			den := math.Sqrt(xn[i] * yn[j])
			if den == 0 {
				return 0
			}
			return v / den
		})
	default:
		return nil, errors.NewValidationError("kernel", "unsupported kernel", p.Kernel)
	}
	return &K, nil
}

// applyRows applies fn to every element of m in place, split across rows.
func applyRows(m *mat.Dense, fn func(i, j int, v float64) float64) {
	r, c := m.Dims()
	parallel.ParallelizeWithThreshold(r, 256, func(start, end int) {
		for i := start; i < end; i++ {
			row := m.RawRowView(i)
			for j := 0; j < c; j++ {
				row[j] = fn(i, j, row[j])
			}
		}
	})
}

func squaredNorms(X mat.Matrix) []float64 {
	r, c := X.Dims()
	out := make([]float64, r)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			v := X.At(i, j)
			out[i] += v * v
		}
	}
	return out
}

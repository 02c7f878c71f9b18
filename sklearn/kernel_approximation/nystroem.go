package kernel_approximation

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/cyclefeat/core/model"
	"github.com/YuminosukeSato/cyclefeat/pkg/errors"
	"github.com/YuminosukeSato/cyclefeat/pkg/log"
)

// minSingularValue floors the basis kernel spectrum before inversion.
const minSingularValue = 1e-12

// Nystroem approximates a kernel map using a subset of the training
// rows as basis.
//
// Fit samples min(n_samples, NComponents) rows without replacement,
// computes the basis kernel K_b = U S Vᵀ and keeps the normalization
// U diag(1/sqrt(max(S, 1e-12))) Vᵀ. Transform returns
// k(X, basis) · normalizationᵀ. The same RandomState gives the same map.
type Nystroem struct {
	model.BaseEstimator
	KernelParams

	NComponents int
	RandomState uint64

	// ComponentIndices are the training row indices used as basis.
	ComponentIndices []int
	Components       *mat.Dense
	Normalization    *mat.Dense

	logger log.Logger
}

// NewNystroem creates a Nystroem map with sklearn defaults
// (rbf kernel, 100 components, coef0 = 1, degree 3).
func NewNystroem(opts ...Option) *Nystroem {
	n := &Nystroem{
		KernelParams: KernelParams{Kernel: KernelRBF, Degree: 3, Coef0: 1},
		NComponents:  100,
		logger:       log.GetLoggerWithName("kernel_approximation.Nystroem"),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Option configures a Nystroem map.
type Option func(*Nystroem)

// WithKernel sets the kernel function.
func WithKernel(k Kernel) Option { return func(n *Nystroem) { n.Kernel = k } }

// WithDegree sets the polynomial degree.
func WithDegree(d float64) Option { return func(n *Nystroem) { n.Degree = d } }

// WithGamma sets gamma; values <= 0 mean 1/n_features.
func WithGamma(g float64) Option { return func(n *Nystroem) { n.Gamma = g } }

// WithCoef0 sets the independent term of the poly and sigmoid kernels.
func WithCoef0(c float64) Option { return func(n *Nystroem) { n.Coef0 = c } }

// WithNComponents sets the number of basis rows.
func WithNComponents(k int) Option { return func(n *Nystroem) { n.NComponents = k } }

// WithRandomState sets the sampling seed.
func WithRandomState(seed uint64) Option { return func(n *Nystroem) { n.RandomState = seed } }

// Fit chooses the basis rows and computes the normalization.
func (n *Nystroem) Fit(X mat.Matrix) (err error) {
	defer errors.Recover(&err, "Nystroem.Fit")

	rows, cols := X.Dims()
	if rows == 0 || cols == 0 {
		return errors.NewModelError("Nystroem.Fit", "empty data", errors.ErrEmptyData)
	}
	if n.NComponents < 1 {
		return errors.NewValidationError("n_components", "must be positive", n.NComponents)
	}

	k := n.NComponents
	if k > rows {
		errors.Warn(errors.Newf("n_components > n_samples; n_components was set to n_samples (%d)", rows))
		k = rows
	}

	rng := rand.New(rand.NewPCG(n.RandomState, n.RandomState))
	n.ComponentIndices = rng.Perm(rows)[:k]

	n.Components = mat.NewDense(k, cols, nil)
	for i, idx := range n.ComponentIndices {
		for j := 0; j < cols; j++ {
			n.Components.Set(i, j, X.At(idx, j))
		}
	}

	basis, err := PairwiseKernel(n.Components, n.Components, n.KernelParams)
	if err != nil {
		return err
	}

	var svd mat.SVD
	if ok := svd.Factorize(basis, mat.SVDFull); !ok {
		return errors.NewModelError("Nystroem.Fit", "SVD of the basis kernel failed", errors.ErrSingularMatrix)
	}
	s := svd.Values(nil)
	var U, V mat.Dense
	svd.UTo(&U)
	svd.VTo(&V)

	clamped := 0
	for i := range s {
		if s[i] < minSingularValue {
			s[i] = minSingularValue
			clamped++
		}
		s[i] = 1 / math.Sqrt(s[i])
	}
	if clamped > 0 {
		errors.Warn(errors.NewConvergenceWarning("Nystroem", 0,
			fmt.Sprintf("%d of %d singular values of the basis kernel were below %g and clamped; the sampled rows are nearly collinear", clamped, k, minSingularValue)))
	}
	var us mat.Dense
	us.Apply(func(_, j int, v float64) float64 { return v * s[j] }, &U)
	n.Normalization = mat.NewDense(k, k, nil)
	n.Normalization.Mul(&us, V.T())

	n.logger.Debug("basis sampled",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, rows,
		log.OutputsKey, k,
		log.RandomSeedKey, n.RandomState,
	)
	n.SetFittedWith(cols)
	return nil
}

// Transform maps X onto the approximate kernel feature space.
func (n *Nystroem) Transform(X mat.Matrix) (mat.Matrix, error) {
	if err := n.CheckInput("Nystroem", "Transform", X); err != nil {
		return nil, err
	}
	embedded, err := PairwiseKernel(X, n.Components, n.KernelParams)
	if err != nil {
		return nil, err
	}
	r, _ := X.Dims()
	out := mat.NewDense(r, n.NOutputs(), nil)
	out.Mul(embedded, n.Normalization.T())
	if err := errors.CheckMatrix("Nystroem.Transform", out); err != nil {
		return nil, err
	}
	return out, nil
}

// FitTransform fits the map on X and transforms it.
func (n *Nystroem) FitTransform(X mat.Matrix) (mat.Matrix, error) {
	if err := n.Fit(X); err != nil {
		return nil, err
	}
	return n.Transform(X)
}

// NOutputs returns the number of basis rows actually used.
func (n *Nystroem) NOutputs() int { return len(n.ComponentIndices) }

// GetParams returns the hyperparameters.
func (n *Nystroem) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"kernel":       n.Kernel,
		"degree":       n.Degree,
		"gamma":        n.Gamma,
		"coef0":        n.Coef0,
		"n_components": n.NComponents,
		"random_state": n.RandomState,
	}
}

func (n *Nystroem) String() string {
	return fmt.Sprintf("Nystroem(kernel=%s, n_components=%d)", n.Kernel, n.NComponents)
}

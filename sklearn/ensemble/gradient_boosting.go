package ensemble

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/cyclefeat/core/model"
	"github.com/YuminosukeSato/cyclefeat/core/parallel"
	"github.com/YuminosukeSato/cyclefeat/metrics"
	cfErrors "github.com/YuminosukeSato/cyclefeat/pkg/errors"
	"github.com/YuminosukeSato/cyclefeat/pkg/log"
)

// EarlyStopping selects when validation-based early stopping is used.
type EarlyStopping string

const (
	EarlyStoppingAuto EarlyStopping = "auto"
	EarlyStoppingOn   EarlyStopping = "on"
	EarlyStoppingOff  EarlyStopping = "off"
)

// autoEarlyStoppingMinSamples is the sample count above which "auto"
// enables early stopping.
const autoEarlyStoppingMinSamples = 10000

// HistGradientBoostingRegressor is a least-squares gradient boosting
// regressor over binned features.
type HistGradientBoostingRegressor struct {
	model.BaseEstimator

	// Hyperparameters
	LearningRate        float64
	MaxIter             int
	MaxLeafNodes        int
	MaxDepth            int // 0 means no limit
	MinSamplesLeaf      int
	L2Regularization    float64
	MaxBins             int
	CategoricalFeatures []int
	EarlyStopping       EarlyStopping
	ValidationFraction  float64
	NIterNoChange       int
	Tol                 float64
	RandomState         uint64

	// Learned state
	BaselinePrediction float64
	Trees              []*Tree
	Mapper             *BinMapper
	NIter              int
	// TrainScore and ValidationScore hold the negated half squared error
	// before the first tree and after every iteration.
	TrainScore      []float64
	ValidationScore []float64

	logger log.Logger
}

// NewHistGradientBoostingRegressor creates a regressor with sklearn defaults.
func NewHistGradientBoostingRegressor() *HistGradientBoostingRegressor {
	return &HistGradientBoostingRegressor{
		LearningRate:       0.1,
		MaxIter:            100,
		MaxLeafNodes:       31,
		MinSamplesLeaf:     20,
		MaxBins:            DefaultMaxBins,
		EarlyStopping:      EarlyStoppingAuto,
		ValidationFraction: 0.1,
		NIterNoChange:      10,
		Tol:                1e-7,
		logger:             log.GetLoggerWithName("ensemble.HistGradientBoostingRegressor"),
	}
}

// WithCategoricalFeatures marks feature indices as categorical codes.
func (h *HistGradientBoostingRegressor) WithCategoricalFeatures(idx ...int) *HistGradientBoostingRegressor {
	h.CategoricalFeatures = append([]int(nil), idx...)
	return h
}

// WithMaxIter sets the number of boosting iterations.
func (h *HistGradientBoostingRegressor) WithMaxIter(n int) *HistGradientBoostingRegressor {
	h.MaxIter = n
	return h
}

// WithLearningRate sets the shrinkage applied to leaf values.
func (h *HistGradientBoostingRegressor) WithLearningRate(lr float64) *HistGradientBoostingRegressor {
	h.LearningRate = lr
	return h
}

// WithMaxLeafNodes sets the leaf budget of each tree.
func (h *HistGradientBoostingRegressor) WithMaxLeafNodes(n int) *HistGradientBoostingRegressor {
	h.MaxLeafNodes = n
	return h
}

// WithMaxDepth sets the depth limit, 0 for none.
func (h *HistGradientBoostingRegressor) WithMaxDepth(d int) *HistGradientBoostingRegressor {
	h.MaxDepth = d
	return h
}

// WithMinSamplesLeaf sets the minimum rows per leaf.
func (h *HistGradientBoostingRegressor) WithMinSamplesLeaf(n int) *HistGradientBoostingRegressor {
	h.MinSamplesLeaf = n
	return h
}

// WithEarlyStopping sets the early stopping mode.
func (h *HistGradientBoostingRegressor) WithEarlyStopping(mode EarlyStopping) *HistGradientBoostingRegressor {
	h.EarlyStopping = mode
	return h
}

// WithRandomState sets the seed for binning subsamples and the validation split.
func (h *HistGradientBoostingRegressor) WithRandomState(seed uint64) *HistGradientBoostingRegressor {
	h.RandomState = seed
	return h
}

func (h *HistGradientBoostingRegressor) validate(nFeatures int) error {
	switch {
	case h.LearningRate <= 0:
		return cfErrors.NewValidationError("learning_rate", "must be positive", h.LearningRate)
	case h.MaxIter < 1:
		return cfErrors.NewValidationError("max_iter", "must be at least 1", h.MaxIter)
	case h.MaxLeafNodes < 2:
		return cfErrors.NewValidationError("max_leaf_nodes", "must be at least 2", h.MaxLeafNodes)
	case h.MaxDepth < 0:
		return cfErrors.NewValidationError("max_depth", "must be non-negative", h.MaxDepth)
	case h.MinSamplesLeaf < 1:
		return cfErrors.NewValidationError("min_samples_leaf", "must be at least 1", h.MinSamplesLeaf)
	case h.L2Regularization < 0:
		return cfErrors.NewValidationError("l2_regularization", "must be non-negative", h.L2Regularization)
	case h.ValidationFraction <= 0 || h.ValidationFraction >= 1:
		return cfErrors.NewValidationError("validation_fraction", "must be in (0, 1)", h.ValidationFraction)
	case h.NIterNoChange < 1:
		return cfErrors.NewValidationError("n_iter_no_change", "must be at least 1", h.NIterNoChange)
	}
	switch h.EarlyStopping {
	case EarlyStoppingAuto, EarlyStoppingOn, EarlyStoppingOff, "":
	default:
		return cfErrors.NewValidationError("early_stopping", "must be auto, on or off", h.EarlyStopping)
	}
	for _, j := range h.CategoricalFeatures {
		if j < 0 || j >= nFeatures {
			return cfErrors.NewValidationError("categorical_features", "index out of range", j)
		}
	}
	return nil
}

func (h *HistGradientBoostingRegressor) earlyStoppingEnabled(nSamples int) bool {
	switch h.EarlyStopping {
	case EarlyStoppingOn:
		return true
	case EarlyStoppingOff:
		return false
	default:
		return nSamples > autoEarlyStoppingMinSamples
	}
}

// Fit trains the ensemble on X (n×p) and y (n×1).
func (h *HistGradientBoostingRegressor) Fit(X, y mat.Matrix) (err error) {
	defer cfErrors.Recover(&err, "HistGradientBoostingRegressor.Fit")

	rows, cols := X.Dims()
	ry, cy := y.Dims()
	if rows == 0 || cols == 0 {
		return cfErrors.NewModelError("HistGradientBoostingRegressor.Fit", "empty data", cfErrors.ErrEmptyData)
	}
	if ry != rows {
		return cfErrors.NewDimensionError("HistGradientBoostingRegressor.Fit", rows, ry, 0)
	}
	if cy != 1 {
		return cfErrors.NewValueError("HistGradientBoostingRegressor.Fit", "y must be a column vector")
	}
	if err := h.validate(cols); err != nil {
		return err
	}
	if h.logger == nil {
		h.logger = log.GetLoggerWithName("ensemble.HistGradientBoostingRegressor")
	}

	target := mat.Col(nil, 0, y)
	categorical := make([]bool, cols)
	for _, j := range h.CategoricalFeatures {
		categorical[j] = true
	}

	h.Mapper = NewBinMapper(h.MaxBins, categorical, h.RandomState)
	if err := h.Mapper.Fit(X); err != nil {
		return err
	}
	binned, err := h.Mapper.Transform(X)
	if err != nil {
		return err
	}

	train := make([]int, rows)
	for i := range train {
		train[i] = i
	}
	var valid []int
	early := h.earlyStoppingEnabled(rows)
	if early {
		rng := rand.New(rand.NewPCG(h.RandomState, h.RandomState+1))
		perm := rng.Perm(rows)
		nValid := int(math.Ceil(h.ValidationFraction * float64(rows)))
		if nValid < 1 || nValid >= rows {
			return cfErrors.NewModelError("HistGradientBoostingRegressor.Fit",
				"validation split leaves no training data", cfErrors.ErrTooFewSamples)
		}
		valid, train = perm[:nValid], perm[nValid:]
	}

	h.BaselinePrediction = 0
	for _, i := range train {
		h.BaselinePrediction += target[i]
	}
	h.BaselinePrediction /= float64(len(train))

	raw := make([]float64, rows)
	for i := range raw {
		raw[i] = h.BaselinePrediction
	}
	gradients := make([]float64, rows)
	hessians := make([]float64, rows)
	for i := range hessians {
		hessians[i] = 1
	}

	grower := NewTreeGrower(binned, h.Mapper, gradients, hessians, GrowerParams{
		MaxLeafNodes:     h.MaxLeafNodes,
		MaxDepth:         h.MaxDepth,
		MinSamplesLeaf:   h.MinSamplesLeaf,
		L2Regularization: h.L2Regularization,
		MinHessianToLeaf: 1e-3,
		Shrinkage:        h.LearningRate,
	})

	h.Trees = h.Trees[:0]
	h.TrainScore = []float64{-halfSquaredError(target, raw, train)}
	if err := cfErrors.CheckScalar("HistGradientBoostingRegressor.Fit", h.TrainScore[0], 0); err != nil {
		return err
	}
	h.ValidationScore = nil
	if early {
		h.ValidationScore = []float64{-halfSquaredError(target, raw, valid)}
	}

	for iter := 0; iter < h.MaxIter; iter++ {
		for _, i := range train {
			gradients[i] = raw[i] - target[i]
		}
		tree := grower.Grow(train)
		h.Trees = append(h.Trees, tree)
		h.updateRaw(tree, binned, raw)

		h.TrainScore = append(h.TrainScore, -halfSquaredError(target, raw, train))
		if err := cfErrors.CheckScalar("HistGradientBoostingRegressor.Fit", h.TrainScore[iter+1], iter+1); err != nil {
			return err
		}
		if early {
			h.ValidationScore = append(h.ValidationScore, -halfSquaredError(target, raw, valid))
			if h.shouldStop(h.ValidationScore) {
				h.logger.Debug("early stopping",
					log.IterationKey, iter+1,
					log.LossKey, -h.ValidationScore[len(h.ValidationScore)-1],
				)
				break
			}
		}
	}
	h.NIter = len(h.Trees)

	h.logger.Debug("boosting completed",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, rows,
		log.FeaturesKey, cols,
		log.IterationKey, h.NIter,
		log.LearningRateKey, h.LearningRate,
	)
	h.SetFittedWith(cols)
	return nil
}

// shouldStop reports whether none of the last NIterNoChange scores
// improved on the score before them by more than Tol.
func (h *HistGradientBoostingRegressor) shouldStop(scores []float64) bool {
	if len(scores) <= h.NIterNoChange {
		return false
	}
	reference := scores[len(scores)-h.NIterNoChange-1] + h.Tol
	for _, s := range scores[len(scores)-h.NIterNoChange:] {
		if s > reference {
			return false
		}
	}
	return true
}

// updateRaw adds the tree output to every row using the binned data.
func (h *HistGradientBoostingRegressor) updateRaw(tree *Tree, binned [][]uint8, raw []float64) {
	parallel.ParallelizeWithThreshold(len(raw), 1000, func(start, end int) {
		for i := start; i < end; i++ {
			idx := 0
			for {
				node := &tree.Nodes[idx]
				if node.IsLeaf {
					raw[i] += node.Value
					break
				}
				b := binned[node.Feature][i]
				var left bool
				if node.IsCategorical {
					left = node.LeftCategories[b]
				} else {
					left = b <= node.BinThreshold
				}
				if left {
					idx = node.Left
				} else {
					idx = node.Right
				}
			}
		}
	})
}

func halfSquaredError(target, raw []float64, rows []int) float64 {
	if len(rows) == 0 {
		return 0
	}
	loss := 0.0
	for _, i := range rows {
		d := raw[i] - target[i]
		loss += d * d
	}
	return 0.5 * loss / float64(len(rows))
}

// Predict returns the n×1 predictions for raw feature values.
func (h *HistGradientBoostingRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := h.CheckInput("HistGradientBoostingRegressor", "Predict", X); err != nil {
		return nil, err
	}
	rows, cols := X.Dims()

	out := mat.NewDense(rows, 1, nil)
	parallel.ParallelizeWithThreshold(rows, 1000, func(start, end int) {
		row := make([]float64, cols)
		for i := start; i < end; i++ {
			mat.Row(row, i, X)
			pred := h.BaselinePrediction
			for _, tree := range h.Trees {
				pred += tree.PredictRow(row)
			}
			out.Set(i, 0, pred)
		}
	})
	return out, nil
}

// Score returns the coefficient of determination R^2 of the prediction.
func (h *HistGradientBoostingRegressor) Score(X, y mat.Matrix) (float64, error) {
	pred, err := h.Predict(X)
	if err != nil {
		return 0, err
	}
	return metrics.R2ScoreMatrix(y, pred)
}

// GetParams returns the hyperparameters.
func (h *HistGradientBoostingRegressor) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"learning_rate":        h.LearningRate,
		"max_iter":             h.MaxIter,
		"max_leaf_nodes":       h.MaxLeafNodes,
		"max_depth":            h.MaxDepth,
		"min_samples_leaf":     h.MinSamplesLeaf,
		"l2_regularization":    h.L2Regularization,
		"max_bins":             h.MaxBins,
		"categorical_features": h.CategoricalFeatures,
		"early_stopping":       h.EarlyStopping,
		"validation_fraction":  h.ValidationFraction,
		"n_iter_no_change":     h.NIterNoChange,
		"tol":                  h.Tol,
		"random_state":         h.RandomState,
	}
}

func (h *HistGradientBoostingRegressor) String() string {
	if !h.IsFitted() {
		return fmt.Sprintf("HistGradientBoostingRegressor(max_iter=%d, fitted=false)", h.MaxIter)
	}
	return fmt.Sprintf("HistGradientBoostingRegressor(n_iter=%d, n_features=%d)", h.NIter, h.NFeaturesIn())
}

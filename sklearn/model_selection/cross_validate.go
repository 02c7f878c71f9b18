package model_selection

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/cyclefeat/core/model"
	"github.com/YuminosukeSato/cyclefeat/metrics"
	cfErrors "github.com/YuminosukeSato/cyclefeat/pkg/errors"
	"github.com/YuminosukeSato/cyclefeat/pkg/log"
)

// Rower is a dataset that can be subset by row indices.
type Rower[D any] interface {
	Len() int
	Rows(indices []int) (D, error)
}

// Estimator is a regressor fitted on data of type D.
type Estimator[D any] interface {
	Fit(X D, y mat.Matrix) error
	Predict(X D) (mat.Matrix, error)
}

// Matrix adapts a dense matrix to Rower.
type Matrix struct {
	*mat.Dense
}

// Len returns the number of rows.
func (m Matrix) Len() int {
	r, _ := m.Dims()
	return r
}

// Rows copies the given rows in order.
func (m Matrix) Rows(indices []int) (Matrix, error) {
	_, c := m.Dims()
	out := mat.NewDense(len(indices), c, nil)
	for k, i := range indices {
		out.SetRow(k, m.RawRowView(i))
	}
	return Matrix{out}, nil
}

type regressorAdapter struct {
	model.Regressor
}

func (a regressorAdapter) Fit(X Matrix, y mat.Matrix) error { return a.Regressor.Fit(X.Dense, y) }
func (a regressorAdapter) Predict(X Matrix) (mat.Matrix, error) { return a.Regressor.Predict(X.Dense) }

// RegressorFactory wraps a matrix regressor factory for CrossValidate.
func RegressorFactory(newModel func() model.Regressor) func() Estimator[Matrix] {
	return func() Estimator[Matrix] { return regressorAdapter{newModel()} }
}

// FoldResult holds the outcome of one fold.
type FoldResult struct {
	Fold      int
	TrainSize int
	TestSize  int
	FitTime   time.Duration
	ScoreTime time.Duration
	// Scores maps scorer names to test scores (greater is better).
	Scores map[string]float64
}

// CVResult collects fold results in fold order.
type CVResult struct {
	Scoring []string
	Folds   []FoldResult
}

// TestScores returns the per-fold scores of one scorer.
func (r *CVResult) TestScores(name string) []float64 {
	out := make([]float64, len(r.Folds))
	for i, f := range r.Folds {
		out[i] = f.Scores[name]
	}
	return out
}

// FitTimes returns the per-fold fit durations in seconds.
func (r *CVResult) FitTimes() []float64 {
	out := make([]float64, len(r.Folds))
	for i, f := range r.Folds {
		out[i] = f.FitTime.Seconds()
	}
	return out
}

// Summary holds the mean and population standard deviation of the
// fold errors.
type Summary struct {
	MAEMean, MAEStd   float64
	RMSEMean, RMSEStd float64
}

// Summary negates the neg_* scores back into errors.
func (r *CVResult) Summary() (Summary, error) {
	var s Summary
	mae, err := r.errors(metrics.NegMeanAbsoluteError)
	if err != nil {
		return s, err
	}
	rmse, err := r.errors(metrics.NegRootMeanSquaredError)
	if err != nil {
		return s, err
	}
	s.MAEMean, s.MAEStd = stat.PopMeanStdDev(mae, nil)
	s.RMSEMean, s.RMSEStd = stat.PopMeanStdDev(rmse, nil)
	return s, nil
}

func (r *CVResult) errors(name string) ([]float64, error) {
	if len(r.Folds) == 0 {
		return nil, cfErrors.NewValueError("CVResult.Summary", "no folds")
	}
	out := make([]float64, len(r.Folds))
	for i, f := range r.Folds {
		v, ok := f.Scores[name]
		if !ok {
			return nil, cfErrors.NewValidationError("scoring", "scorer was not evaluated", name)
		}
		out[i] = -v
	}
	return out, nil
}

func (s Summary) String() string {
	return fmt.Sprintf("Mean Absolute Error:     %.3f +/- %.3f\nRoot Mean Squared Error: %.3f +/- %.3f",
		s.MAEMean, s.MAEStd, s.RMSEMean, s.RMSEStd)
}

type cvConfig struct {
	nJobs   int
	scoring []string
	logger  log.Logger
}

// Option configures CrossValidate.
type Option func(*cvConfig)

// WithNJobs bounds the number of folds evaluated concurrently.
// Values below 1 mean runtime.NumCPU().
func WithNJobs(n int) Option { return func(c *cvConfig) { c.nJobs = n } }

// WithScoring replaces the scorer names.
func WithScoring(names ...string) Option {
	return func(c *cvConfig) { c.scoring = append([]string(nil), names...) }
}

// WithLogger sets the logger used for per-fold records.
func WithLogger(l log.Logger) Option { return func(c *cvConfig) { c.logger = l } }

// CrossValidate fits a fresh estimator from factory on every fold
// and scores it on the fold's test rows. Folds run concurrently up to
// NJobs; the first error or a cancelled context stops the remaining folds.
func CrossValidate[D Rower[D]](ctx context.Context, factory func() Estimator[D], X D, y []float64,
	splitter Splitter, opts ...Option,
) (*CVResult, error) {
	cfg := cvConfig{
		scoring: []string{metrics.NegMeanAbsoluteError, metrics.NegRootMeanSquaredError},
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.nJobs < 1 {
		cfg.nJobs = runtime.NumCPU()
	}
	if cfg.logger == nil {
		cfg.logger = log.GetLoggerWithName("model_selection.CrossValidate")
	}

	if X.Len() != len(y) {
		return nil, cfErrors.NewDimensionError("CrossValidate", X.Len(), len(y), 0)
	}
	scorers := make([]metrics.Scorer, len(cfg.scoring))
	for i, name := range cfg.scoring {
		s, err := metrics.GetScorer(name)
		if err != nil {
			return nil, err
		}
		scorers[i] = s
	}

	folds, err := splitter.Split(X.Len())
	if err != nil {
		return nil, err
	}

	results := make([]FoldResult, len(folds))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.nJobs)
	for k, fold := range folds {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			var res FoldResult
			err := cfErrors.SafeExecute("CrossValidate", func() (err error) {
				res, err = runFold(factory, X, y, fold, cfg.scoring, scorers)
				return err
			})
			if err != nil {
				return cfErrors.Wrapf(err, "fold %d", k)
			}
			res.Fold = k
			results[k] = res
			cfg.logger.Debug("fold evaluated",
				log.FoldKey, k,
				log.TrainSizeKey, res.TrainSize,
				log.TestSizeKey, res.TestSize,
				log.DurationMsKey, res.FitTime.Milliseconds(),
			)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &CVResult{Scoring: cfg.scoring, Folds: results}, nil
}

func runFold[D Rower[D]](factory func() Estimator[D], X D, y []float64, fold Fold,
	names []string, scorers []metrics.Scorer,
) (FoldResult, error) {
	res := FoldResult{
		TrainSize: len(fold.TrainIndices),
		TestSize:  len(fold.TestIndices),
		Scores:    make(map[string]float64, len(names)),
	}
	Xtrain, err := X.Rows(fold.TrainIndices)
	if err != nil {
		return res, err
	}
	Xtest, err := X.Rows(fold.TestIndices)
	if err != nil {
		return res, err
	}

	est := factory()
	start := time.Now()
	if err := est.Fit(Xtrain, take(y, fold.TrainIndices)); err != nil {
		return res, err
	}
	res.FitTime = time.Since(start)

	start = time.Now()
	pred, err := est.Predict(Xtest)
	if err != nil {
		return res, err
	}
	yTest := take(y, fold.TestIndices)
	for i, s := range scorers {
		v, err := s(yTest, pred)
		if err != nil {
			return res, err
		}
		res.Scores[names[i]] = v
	}
	res.ScoreTime = time.Since(start)
	return res, nil
}

func take(y []float64, indices []int) *mat.Dense {
	out := mat.NewDense(len(indices), 1, nil)
	for k, i := range indices {
		out.Set(k, 0, y[i])
	}
	return out
}

package experiment

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/cyclefeat/dataset"
	"github.com/YuminosukeSato/cyclefeat/internal/config"
	"github.com/YuminosukeSato/cyclefeat/pkg/errors"
	"github.com/YuminosukeSato/cyclefeat/pkg/log"
	"github.com/YuminosukeSato/cyclefeat/sklearn/model_selection"
	"github.com/YuminosukeSato/cyclefeat/sklearn/pipeline"
)

// Study は設定に従ってパイプラインを評価する
type Study struct {
	Config config.Experiment

	logger log.Logger
}

// NewStudy は Study を作成する
func NewStudy(cfg config.Experiment) *Study {
	return &Study{Config: cfg, logger: log.GetLoggerWithName("experiment.Study")}
}

// Splitter は設定の TimeSeriesSplit を返す
func (s *Study) Splitter() *model_selection.TimeSeriesSplit {
	cv := s.Config.CV
	return &model_selection.TimeSeriesSplit{
		NSplits:      cv.NSplits,
		Gap:          cv.Gap,
		MaxTrainSize: cv.MaxTrainSize,
		TestSize:     cv.TestSize,
	}
}

// Factory は fold ごとに新しいパイプラインを作る関数を返す
func (s *Study) Factory(name string) (func() model_selection.Estimator[*dataset.Frame], error) {
	if _, err := Build(name, s.Config.Models); err != nil {
		return nil, err
	}
	return func() model_selection.Estimator[*dataset.Frame] {
		// 名前は検証済み
		p, _ := Build(name, s.Config.Models)
		return p
	}, nil
}

// Evaluation は 1 パイプラインの交差検証結果
type Evaluation struct {
	Pipeline string
	Result   *model_selection.CVResult
	Summary  model_selection.Summary
}

// Evaluate は names のパイプラインを順に時系列交差検証する
func (s *Study) Evaluate(ctx context.Context, X *dataset.Frame, y []float64, names []string) ([]Evaluation, error) {
	names, err := ResolveNames(names)
	if err != nil {
		return nil, err
	}
	out := make([]Evaluation, 0, len(names))
	for _, name := range names {
		factory, err := s.Factory(name)
		if err != nil {
			return nil, err
		}
		logger := s.logger.With(log.PipelineKey, name)
		res, err := model_selection.CrossValidate(ctx, factory, X, y, s.Splitter(),
			model_selection.WithNJobs(s.Config.CV.NJobs),
			model_selection.WithLogger(logger),
		)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to evaluate %s", name)
		}
		summary, err := res.Summary()
		if err != nil {
			return nil, err
		}
		logger.Info("Pipeline evaluated",
			log.MAEKey, summary.MAEMean,
			log.RMSEKey, summary.RMSEMean,
			"mae_std", summary.MAEStd,
			"rmse_std", summary.RMSEStd,
		)
		out = append(out, Evaluation{Pipeline: name, Result: res, Summary: summary})
	}
	return out, nil
}

// Shape は特徴量行列の形
type Shape struct {
	Pipeline string
	Rows     int
	Cols     int
}

// FeatureShapes は names のうち線形パイプラインについて、X 全体で
// 特徴量部分を学習・変換した行列の形を返す
func (s *Study) FeatureShapes(X *dataset.Frame, names []string) ([]Shape, error) {
	names, err := ResolveNames(names)
	if err != nil {
		return nil, err
	}
	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[n] = true
	}
	var out []Shape
	for _, name := range LinearPipelines {
		if !wanted[name] {
			continue
		}
		p, err := Build(name, s.Config.Models)
		if err != nil {
			return nil, err
		}
		Xt, err := p.FitTransformFeatures(X)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to transform features of %s", name)
		}
		r, c := Xt.Dims()
		s.logger.Info("Feature matrix", log.PipelineKey, name, log.SamplesKey, r, log.FeaturesKey, c)
		out = append(out, Shape{Pipeline: name, Rows: r, Cols: c})
	}
	return out, nil
}

// Predictions は最初の分割で学習したパイプラインのテスト区間の予測
type Predictions struct {
	TestIndices []int
	YTrue       []float64
	Values      map[string][]float64
	Models      map[string]*pipeline.Pipeline
}

// FirstSplitPredictions は最初の fold の訓練区間で各パイプラインを学習し、
// テスト区間を予測する
func (s *Study) FirstSplitPredictions(ctx context.Context, X *dataset.Frame, y []float64, names []string) (*Predictions, error) {
	names, err := ResolveNames(names)
	if err != nil {
		return nil, err
	}
	if X.Len() != len(y) {
		return nil, errors.NewDimensionError("FirstSplitPredictions", X.Len(), len(y), 0)
	}
	folds, err := s.Splitter().Split(X.Len())
	if err != nil {
		return nil, err
	}
	fold := folds[0]
	Xtrain, err := X.Rows(fold.TrainIndices)
	if err != nil {
		return nil, err
	}
	Xtest, err := X.Rows(fold.TestIndices)
	if err != nil {
		return nil, err
	}
	ytrain := columnOf(y, fold.TrainIndices)

	preds := &Predictions{
		TestIndices: fold.TestIndices,
		YTrue:       mat.Col(nil, 0, columnOf(y, fold.TestIndices)),
		Values:      make(map[string][]float64, len(names)),
		Models:      make(map[string]*pipeline.Pipeline, len(names)),
	}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	nJobs := s.Config.CV.NJobs
	if nJobs < 1 {
		nJobs = len(names)
	}
	g.SetLimit(nJobs)
	for _, name := range names {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			p, err := Build(name, s.Config.Models)
			if err != nil {
				return err
			}
			if err := p.Fit(Xtrain, ytrain); err != nil {
				return errors.Wrapf(err, "failed to fit %s", name)
			}
			pred, err := p.Predict(Xtest)
			if err != nil {
				return errors.Wrapf(err, "failed to predict %s", name)
			}
			mu.Lock()
			preds.Values[name] = mat.Col(nil, 0, pred)
			preds.Models[name] = p
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return preds, nil
}

func columnOf(y []float64, idx []int) *mat.Dense {
	out := mat.NewDense(len(idx), 1, nil)
	for k, i := range idx {
		out.Set(k, 0, y[i])
	}
	return out
}

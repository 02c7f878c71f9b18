package experiment

import (
	"context"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/cyclefeat/core/model"
	"github.com/YuminosukeSato/cyclefeat/dataset"
	"github.com/YuminosukeSato/cyclefeat/internal/store"
	"github.com/YuminosukeSato/cyclefeat/internal/viz"
	"github.com/YuminosukeSato/cyclefeat/pkg/errors"
	"github.com/YuminosukeSato/cyclefeat/pkg/log"
	"github.com/YuminosukeSato/cyclefeat/preprocessing"
	"github.com/YuminosukeSato/cyclefeat/sklearn/pipeline"
)

// NonLinearPipelines は非線形モデルの予測グラフに並べるパイプライン
var NonLinearPipelines = []string{OneHotPoly, CyclicSplinePoly, GBRT}

// demandColumn は週平均の集計に使う一時列
const demandColumn = "demand"

// Report は Run の結果
type Report struct {
	RunID       uuid.UUID
	Evaluations []Evaluation
	Shapes      []Shape
	Predictions *Predictions
	Charts      []string
	Weights     []string
}

// Run はデータの前処理、評価、結果の保存、グラフと重みの書き出しを順に行う。
// st が nil の場合は結果を保存しない
func (s *Study) Run(ctx context.Context, frame *dataset.Frame, st *store.Store, source string) (*Report, error) {
	var err error
	if s.Config.Models.MergeHeavyRain {
		if frame, err = dataset.MergeRareWeather(frame); err != nil {
			return nil, err
		}
	}
	X, y, err := dataset.SplitTarget(frame)
	if err != nil {
		return nil, err
	}
	names, err := ResolveNames(s.Config.Pipelines)
	if err != nil {
		return nil, err
	}
	report := &Report{}

	var w *viz.Writer
	if s.Config.Output.Plots {
		if w, err = viz.NewWriter(filepath.Join(s.Config.Output.Dir, "plots"), s.Config.Output.PlotFormat); err != nil {
			return nil, err
		}
		charts, err := exploratoryCharts(w, X, y)
		if err != nil {
			return nil, err
		}
		report.Charts = append(report.Charts, charts...)
	}

	if st != nil {
		raw, err := s.Config.Encode()
		if err != nil {
			return nil, err
		}
		run, err := st.CreateRun(ctx, source, raw)
		if err != nil {
			return nil, err
		}
		report.RunID = run.ID
		s.logger.Info("Run started", log.RunIDKey, run.ID.String(), log.SourceKey, source)
	}

	if report.Evaluations, err = s.Evaluate(ctx, X, y, names); err != nil {
		return nil, err
	}
	if st != nil {
		for _, ev := range report.Evaluations {
			if err := st.RecordFolds(ctx, report.RunID, ev.Pipeline, ev.Result); err != nil {
				return nil, err
			}
		}
	}

	if report.Shapes, err = s.FeatureShapes(X, names); err != nil {
		return nil, err
	}
	if report.Predictions, err = s.FirstSplitPredictions(ctx, X, y, names); err != nil {
		return nil, err
	}

	if w != nil {
		charts, err := s.predictionCharts(w, report.Predictions)
		if err != nil {
			return nil, err
		}
		report.Charts = append(report.Charts, charts...)
	}
	if s.Config.Output.ExportModel {
		if report.Weights, err = exportWeights(filepath.Join(s.Config.Output.Dir, "weights"), report.Predictions.Models); err != nil {
			return nil, err
		}
	}
	return report, nil
}

func exploratoryCharts(w *viz.Writer, X *dataset.Frame, y []float64) ([]string, error) {
	var paths []string

	withDemand, err := X.WithColumn(dataset.NewNumericColumn(demandColumn, y))
	if err != nil {
		return nil, err
	}
	groups, err := withDemand.GroupByMean([]string{dataset.ColWeekday, dataset.ColHour}, demandColumn)
	if err != nil {
		return nil, err
	}
	means := make([]float64, len(groups))
	for i, g := range groups {
		means[i] = g.Mean
	}
	p, err := w.WeeklyDemand(means)
	if err != nil {
		return nil, err
	}
	paths = append(paths, p)

	if p, err = w.TargetHistogram(y, 30); err != nil {
		return nil, err
	}
	paths = append(paths, p)

	hours := make([]float64, 26)
	floats.Span(hours, 0, 25)
	hourCol := mat.NewDense(len(hours), 1, hours)
	sin, err := preprocessing.SinTransformer(24).FitTransform(hourCol)
	if err != nil {
		return nil, err
	}
	cos, err := preprocessing.CosTransformer(24).FitTransform(hourCol)
	if err != nil {
		return nil, err
	}
	enc, err := w.HourEncoding(hours, mat.Col(nil, 0, sin), mat.Col(nil, 0, cos))
	if err != nil {
		return nil, err
	}
	paths = append(paths, enc...)

	grid := make([]float64, 1000)
	floats.Span(grid, 0, 26)
	basis, err := preprocessing.PeriodicSplineTransformer(24, 12, 3).FitTransform(mat.NewDense(len(grid), 1, grid))
	if err != nil {
		return nil, err
	}
	if p, err = w.SplineBasis("periodic_spline_basis", "Periodic spline-based encoding for the 'hour' feature", grid, basis); err != nil {
		return nil, err
	}
	return append(paths, p), nil
}

func (s *Study) series(preds *Predictions, names []string) []viz.Series {
	var out []viz.Series
	for _, name := range names {
		if v, ok := preds.Values[name]; ok {
			out = append(out, viz.Series{Name: Labels[name], Values: v})
		}
	}
	return out
}

func (s *Study) predictionCharts(w *viz.Writer, preds *Predictions) ([]string, error) {
	window := s.Config.Models.PredictionWindow
	groups := []struct {
		suffix string
		title  string
		names  []string
	}{
		{"linear", "Predictions by linear models", LinearPipelines},
		{"non_linear", "Predictions by non-linear regression models", NonLinearPipelines},
	}

	var paths []string
	for _, g := range groups {
		series := s.series(preds, g.names)
		if len(series) == 0 {
			continue
		}
		p, err := w.Predictions("predictions_"+g.suffix, g.title, preds.YTrue, series, window)
		if err != nil {
			return nil, err
		}
		paths = append(paths, p)
		if p, err = w.TrueVsPredicted("true_vs_predicted_"+g.suffix, preds.YTrue, series); err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, nil
}

// exportWeights は線形モデルを最終段に持つパイプラインの重みを JSON で書き出す
func exportWeights(dir string, models map[string]*pipeline.Pipeline) ([]string, error) {
	var paths []string
	for _, name := range PipelineNames {
		p, ok := models[name]
		if !ok {
			continue
		}
		lm, ok := p.Model.(model.LinearModel)
		if !ok {
			continue
		}
		var params map[string]interface{}
		if pg, ok := p.Model.(model.ParameterGetter); ok {
			params = pg.GetParams()
		}
		if len(paths) == 0 {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, errors.Wrapf(err, "failed to create %s", dir)
			}
		}
		path := filepath.Join(dir, name+".json")
		if err := writeWeights(path, model.NewModelWeights("RidgeCV", lm, params)); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeWeights(path string, mw *model.ModelWeights) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "failed to create %s", path)
	}
	if err := mw.WriteJSON(f); err != nil {
		f.Close()
		return errors.Wrapf(err, "failed to write %s", path)
	}
	return errors.Wrap(f.Close(), "failed to close weights file")
}

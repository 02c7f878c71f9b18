// Package experiment は Bike Sharing Demand を使った周期的な時間特徴量の比較実験を組み立てて実行する
package experiment

import (
	"github.com/YuminosukeSato/cyclefeat/core/model"
	"github.com/YuminosukeSato/cyclefeat/dataset"
	"github.com/YuminosukeSato/cyclefeat/internal/config"
	"github.com/YuminosukeSato/cyclefeat/linear"
	"github.com/YuminosukeSato/cyclefeat/pkg/errors"
	"github.com/YuminosukeSato/cyclefeat/preprocessing"
	"github.com/YuminosukeSato/cyclefeat/sklearn/ensemble"
	"github.com/YuminosukeSato/cyclefeat/sklearn/kernel_approximation"
	"github.com/YuminosukeSato/cyclefeat/sklearn/pipeline"
)

// パイプライン名
const (
	GBRT                     = "gbrt"
	NaiveLinear              = "naive_linear"
	OneHotLinear             = "one_hot_linear"
	CyclicCossinLinear       = "cyclic_cossin_linear"
	CyclicSplineLinear       = "cyclic_spline_linear"
	CyclicSplineInteractions = "cyclic_spline_interactions"
	CyclicSplinePoly         = "cyclic_spline_poly"
	OneHotPoly               = "one_hot_poly"
)

// PipelineNames は評価する全パイプライン（評価順）
var PipelineNames = []string{
	GBRT,
	NaiveLinear,
	OneHotLinear,
	CyclicCossinLinear,
	CyclicSplineLinear,
	CyclicSplineInteractions,
	CyclicSplinePoly,
	OneHotPoly,
}

// LinearPipelines は特徴量の形を報告する線形モデルのパイプライン
var LinearPipelines = []string{NaiveLinear, OneHotLinear, CyclicCossinLinear, CyclicSplineLinear}

// Labels はグラフの凡例に使う名前
var Labels = map[string]string{
	GBRT:                     "Gradient Boosted Trees",
	NaiveLinear:              "Ordinal time features",
	OneHotLinear:             "One-hot time features",
	CyclicCossinLinear:       "Trigonometric time features",
	CyclicSplineLinear:       "Spline-based time features",
	CyclicSplineInteractions: "Splines + hour x workingday",
	CyclicSplinePoly:         "Splines + polynomial kernel",
	OneHotPoly:               "One hot + polynomial kernel",
}

var timeColumns = []string{dataset.ColHour, dataset.ColWeekday, dataset.ColMonth}

// categories は OrdinalEncoder に渡す論理的な順序のカテゴリ一覧（CategoricalColumns の順）
func categories(mergeRain bool) [][]string {
	weather := []string{"clear", "misty", "rain"}
	if !mergeRain {
		weather = append(weather, "heavy_rain")
	}
	return [][]string{
		weather,
		{"spring", "summer", "fall", "winter"},
		{"False", "True"},
		{"False", "True"},
	}
}

func oneHotIgnore() *preprocessing.OneHotEncoder {
	enc := preprocessing.NewOneHotEncoder()
	enc.HandleUnknown = preprocessing.HandleUnknownIgnore
	return enc
}

func categoricalOneHot() pipeline.Entry {
	return pipeline.Categorical("categorical", oneHotIgnore(), dataset.CategoricalColumns...)
}

func minMaxRemainder() pipeline.Entry {
	return pipeline.Numeric("remainder", preprocessing.NewMinMaxScalerDefault())
}

func ridgeCV(cfg config.ModelConfig) model.Regressor {
	alphas := linear.LogSpace(cfg.AlphaLogStart, cfg.AlphaLogStop, cfg.AlphaCount)
	return linear.NewRidgeCV(linear.WithAlphas(alphas...))
}

func nystroem(cfg config.ModelConfig) *kernel_approximation.Nystroem {
	return kernel_approximation.NewNystroem(
		kernel_approximation.WithKernel(kernel_approximation.Kernel(cfg.NystroemKernel)),
		kernel_approximation.WithDegree(cfg.NystroemDegree),
		kernel_approximation.WithNComponents(cfg.NystroemComponents),
		kernel_approximation.WithRandomState(cfg.NystroemSeed),
	)
}

func cyclicSplineColumns() *pipeline.ColumnTransformer {
	return pipeline.NewColumnTransformer(
		categoricalOneHot(),
		pipeline.Numeric("cyclic_month", preprocessing.PeriodicSplineTransformer(12, 6, 3), dataset.ColMonth),
		pipeline.Numeric("cyclic_weekday", preprocessing.PeriodicSplineTransformer(7, 3, 3), dataset.ColWeekday),
		pipeline.Numeric("cyclic_hour", preprocessing.PeriodicSplineTransformer(24, 12, 3), dataset.ColHour),
	).WithRemainder(minMaxRemainder())
}

func oneHotTimeColumns(remainder pipeline.Entry) *pipeline.ColumnTransformer {
	return pipeline.NewColumnTransformer(
		categoricalOneHot(),
		pipeline.Categorical("one_hot_time", oneHotIgnore(), timeColumns...),
	).WithRemainder(remainder)
}

// Build は名前に対応する未学習のパイプラインを新しく作る
func Build(name string, cfg config.ModelConfig) (*pipeline.Pipeline, error) {
	var (
		features  *pipeline.FeaturePipeline
		regressor model.Regressor
	)
	switch name {
	case GBRT:
		ct := pipeline.NewColumnTransformer(
			pipeline.Categorical("categorical", preprocessing.NewOrdinalEncoder(categories(cfg.MergeHeavyRain)),
				dataset.CategoricalColumns...),
		).WithRemainder(pipeline.Passthrough("remainder"))
		features = pipeline.NewFeaturePipeline(ct)
		hgbr := ensemble.NewHistGradientBoostingRegressor().
			WithCategoricalFeatures(0, 1, 2, 3).
			WithMaxIter(cfg.BoostingMaxIter).
			WithRandomState(cfg.BoostingSeed)
		hgbr.MaxBins = cfg.BoostingMaxBins
		regressor = hgbr

	case NaiveLinear:
		ct := pipeline.NewColumnTransformer(categoricalOneHot()).WithRemainder(minMaxRemainder())
		features = pipeline.NewFeaturePipeline(ct)
		regressor = ridgeCV(cfg)

	case OneHotLinear:
		features = pipeline.NewFeaturePipeline(oneHotTimeColumns(minMaxRemainder()))
		regressor = ridgeCV(cfg)

	case CyclicCossinLinear:
		ct := pipeline.NewColumnTransformer(
			categoricalOneHot(),
			pipeline.Numeric("month_sin", preprocessing.SinTransformer(12), dataset.ColMonth),
			pipeline.Numeric("month_cos", preprocessing.CosTransformer(12), dataset.ColMonth),
			pipeline.Numeric("weekday_sin", preprocessing.SinTransformer(7), dataset.ColWeekday),
			pipeline.Numeric("weekday_cos", preprocessing.CosTransformer(7), dataset.ColWeekday),
			pipeline.Numeric("hour_sin", preprocessing.SinTransformer(24), dataset.ColHour),
			pipeline.Numeric("hour_cos", preprocessing.CosTransformer(24), dataset.ColHour),
		).WithRemainder(minMaxRemainder())
		features = pipeline.NewFeaturePipeline(ct)
		regressor = ridgeCV(cfg)

	case CyclicSplineLinear:
		features = pipeline.NewFeaturePipeline(cyclicSplineColumns())
		regressor = ridgeCV(cfg)

	case CyclicSplineInteractions:
		hourWorkday := pipeline.NewFeaturePipeline(
			pipeline.NewColumnTransformer(
				pipeline.Numeric("cyclic_hour", preprocessing.PeriodicSplineTransformer(24, 8, 3), dataset.ColHour),
				pipeline.Categorical("workingday", preprocessing.EqualsTransformer("True"), dataset.ColWorkingDay),
			),
			preprocessing.NewPolynomialFeatures(2, true, false),
		)
		union := pipeline.NewFeatureUnion(cyclicSplineColumns(), hourWorkday)
		features = pipeline.NewFeaturePipeline(union)
		regressor = ridgeCV(cfg)

	case CyclicSplinePoly:
		features = pipeline.NewFeaturePipeline(cyclicSplineColumns(), nystroem(cfg))
		regressor = ridgeCV(cfg)

	case OneHotPoly:
		features = pipeline.NewFeaturePipeline(oneHotTimeColumns(pipeline.Passthrough("remainder")), nystroem(cfg))
		regressor = ridgeCV(cfg)

	default:
		return nil, errors.NewValidationError("pipeline", "unknown pipeline name", name)
	}
	return pipeline.New(name, features, regressor), nil
}

// ResolveNames は空なら全パイプラインを返し、未知の名前や重複はエラーにする
func ResolveNames(names []string) ([]string, error) {
	if len(names) == 0 {
		return append([]string(nil), PipelineNames...), nil
	}
	known := make(map[string]bool, len(PipelineNames))
	for _, n := range PipelineNames {
		known[n] = true
	}
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if !known[n] {
			return nil, errors.NewValidationError("pipelines", "unknown pipeline name", n)
		}
		if seen[n] {
			return nil, errors.NewValidationError("pipelines", "duplicate pipeline name", n)
		}
		seen[n] = true
		out = append(out, n)
	}
	return out, nil
}

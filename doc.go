// Package cyclefeat compares encodings of cyclical time features for
// hourly demand regression on the Bike Sharing Demand dataset.
//
// The library offers a scikit-learn-like API on top of gonum: a small
// tabular frame, column-wise preprocessing, linear and gradient boosted
// regressors, kernel approximation and time ordered cross-validation.
//
// # Packages
//
//   - dataset: Frame, CSV and ARFF readers, the cached OpenML fetcher
//   - preprocessing: scalers, one-hot and ordinal encoders, sin/cos and
//     periodic spline transformers, polynomial features
//   - linear: LinearRegression, Ridge and RidgeCV with efficient
//     leave-one-out selection of alpha
//   - sklearn/ensemble: HistGradientBoostingRegressor with native
//     categorical splits
//   - sklearn/kernel_approximation: Nystroem and pairwise kernels
//   - sklearn/model_selection: TimeSeriesSplit, KFold, CrossValidate
//   - sklearn/pipeline: ColumnTransformer, FeatureUnion, Pipeline
//   - metrics: regression metrics and named scorers
//
// # Quick Start
//
//	newPipeline := func() model_selection.Estimator[*dataset.Frame] {
//	    ct := pipeline.NewColumnTransformer(
//	        pipeline.Categorical("categorical", preprocessing.NewOneHotEncoder(), dataset.CategoricalColumns...),
//	        pipeline.Numeric("cyclic_hour", preprocessing.PeriodicSplineTransformer(24, 12, 3), dataset.ColHour),
//	    ).WithRemainder(pipeline.Numeric("remainder", preprocessing.NewMinMaxScalerDefault()))
//	    return pipeline.New("cyclic_spline_linear", pipeline.NewFeaturePipeline(ct),
//	        linear.NewRidgeCV(linear.WithAlphas(linear.LogSpace(-6, 6, 25)...)))
//	}
//
//	res, err := model_selection.CrossValidate(ctx, newPipeline, X, y, model_selection.NewTimeSeriesSplit(5))
//
// The cyclefeat command runs the whole study: it evaluates every
// pipeline, stores the fold scores in SQLite and writes the charts.
//
// # Performance
//
// Histogram construction, split finding and kernel evaluation are
// parallelised over features or rows through core/parallel; folds are
// evaluated concurrently with errgroup.
package cyclefeat

// Package log defines standard attribute keys for machine learning operations.
//
// Keys follow a hierarchical naming convention ("model.name",
// "data.samples", "cv.fold") so records from encoders, estimators and the
// cross-validation driver can be filtered together.

package log

// Model and Operation Context
const (
	// ModelNameKey identifies the type of model or transformer.
	// Examples: "RidgeCV", "SplineTransformer", "HistGradientBoostingRegressor"
	ModelNameKey = "model.name"

	// PipelineKey identifies a named pipeline of the study.
	// Examples: "cyclic_spline_linear", "gbrt"
	PipelineKey = "model.pipeline"

	// RunIDKey identifies one evaluation run.
	RunIDKey = "run.id"

	// OperationKey specifies the operation being performed.
	// Standard values: "fit", "predict", "transform", "fit_transform", "score"
	OperationKey = "ml.operation"

	// ComponentKey identifies which package is performing the operation.
	ComponentKey = "ml.component"

	// PhaseKey indicates the phase of model lifecycle.
	PhaseKey = "ml.phase"
)

// Data Shape and Characteristics
const (
	// SamplesKey indicates the number of samples (rows).
	SamplesKey = "data.samples"

	// FeaturesKey indicates the number of features (columns).
	FeaturesKey = "data.features"

	// OutputsKey indicates the number of columns produced by a transformer.
	OutputsKey = "data.outputs"

	// SourceKey records where a dataset was read from (URL or path).
	SourceKey = "data.source"

	// ColumnKey names a frame column.
	ColumnKey = "data.column"
)

// Cross-validation
const (
	// FoldKey records the zero-based fold index.
	FoldKey = "cv.fold"

	// TrainSizeKey records the number of training rows in a fold.
	TrainSizeKey = "cv.train_size"

	// TestSizeKey records the number of test rows in a fold.
	TestSizeKey = "cv.test_size"
)

// Performance Metrics
const (
	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"

	// MAEKey records mean absolute error.
	MAEKey = "metrics.mae"

	// RMSEKey records root mean squared error.
	RMSEKey = "metrics.rmse"

	// LossKey records loss value during training or evaluation.
	LossKey = "metrics.loss"

	// IterationKey records the current boosting iteration.
	IterationKey = "training.iteration"
)

// Hyperparameters
const (
	// AlphaKey records the regularization strength picked by RidgeCV.
	AlphaKey = "hyperparams.alpha"

	// LearningRateKey records the learning rate for boosting.
	LearningRateKey = "hyperparams.learning_rate"

	// RandomSeedKey records the random seed for reproducibility.
	RandomSeedKey = "config.random_seed"
)

// Error Context
const (
	// ErrorCodeKey provides a structured error code for programmatic handling.
	ErrorCodeKey = "error.code"

	// SuggestionKey provides helpful suggestions for resolving issues.
	SuggestionKey = "error.suggestion"
)

// Standard attribute values.
const (
	OperationFit          = "fit"
	OperationPredict      = "predict"
	OperationTransform    = "transform"
	OperationFitTransform = "fit_transform"
	OperationScore        = "score"

	PhaseTraining      = "training"
	PhaseValidation    = "validation"
	PhaseInference     = "inference"
	PhasePreprocessing = "preprocessing"

	ErrorNotFitted         = "NOT_FITTED"
	ErrorDimensionMismatch = "DIMENSION_MISMATCH"
	ErrorEmptyData         = "EMPTY_DATA"
	ErrorUnknownCategory   = "UNKNOWN_CATEGORY"
)

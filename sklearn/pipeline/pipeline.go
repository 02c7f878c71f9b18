// Package pipeline chains frame-level column transformers, matrix
// transformers and a final regressor, following sklearn.pipeline and
// sklearn.compose.
package pipeline

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/cyclefeat/core/model"
	"github.com/YuminosukeSato/cyclefeat/dataset"
	"github.com/YuminosukeSato/cyclefeat/pkg/errors"
	"github.com/YuminosukeSato/cyclefeat/pkg/log"
)

// FeaturePipeline is a FrameTransformer followed by matrix transformers
// such as PolynomialFeatures or Nystroem.
type FeaturePipeline struct {
	model.BaseEstimator

	Frame FrameTransformer
	Steps []model.Transformer
}

// NewFeaturePipeline creates a FeaturePipeline.
func NewFeaturePipeline(frame FrameTransformer, steps ...model.Transformer) *FeaturePipeline {
	return &FeaturePipeline{Frame: frame, Steps: steps}
}

// Fit fits the frame transformer then every step on the output of the
// previous one.
func (fp *FeaturePipeline) Fit(f *dataset.Frame) error {
	_, err := fp.fitTransform(f)
	return err
}

func (fp *FeaturePipeline) fitTransform(f *dataset.Frame) (mat.Matrix, error) {
	if fp.Frame == nil {
		return nil, errors.NewValidationError("frame", "feature pipeline needs a frame transformer", nil)
	}
	Xt, err := FitTransform(fp.Frame, f)
	if err != nil {
		return nil, err
	}
	for i, step := range fp.Steps {
		Xt, err = step.FitTransform(Xt)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to fit step %d", i)
		}
	}
	fp.SetFitted()
	return Xt, nil
}

// Transform applies every fitted step.
func (fp *FeaturePipeline) Transform(f *dataset.Frame) (mat.Matrix, error) {
	if !fp.IsFitted() {
		return nil, errors.NewNotFittedError("FeaturePipeline", "Transform")
	}
	Xt, err := fp.Frame.Transform(f)
	if err != nil {
		return nil, err
	}
	for i, step := range fp.Steps {
		Xt, err = step.Transform(Xt)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to transform at step %d", i)
		}
	}
	return Xt, nil
}

// NOutputs returns the width of the last step output.
func (fp *FeaturePipeline) NOutputs() int {
	for i := len(fp.Steps) - 1; i >= 0; i-- {
		if c, ok := fp.Steps[i].(model.OutputCounter); ok {
			return c.NOutputs()
		}
	}
	if fp.Frame == nil {
		return 0
	}
	return fp.Frame.NOutputs()
}

// Pipeline is a FeaturePipeline followed by a regressor.
type Pipeline struct {
	model.BaseEstimator

	name     string
	Features *FeaturePipeline
	Model    model.Regressor

	logger log.Logger
}

// New creates a named pipeline.
func New(name string, features *FeaturePipeline, regressor model.Regressor) *Pipeline {
	return &Pipeline{
		name:     name,
		Features: features,
		Model:    regressor,
		logger:   log.GetLoggerWithName("Pipeline").With(log.PipelineKey, name),
	}
}

// Name returns the pipeline name.
func (p *Pipeline) Name() string { return p.name }

// Fit fits the feature steps then the regressor on y (n×1).
func (p *Pipeline) Fit(f *dataset.Frame, y mat.Matrix) error {
	if p.Features == nil || p.Model == nil {
		return errors.NewValidationError("pipeline", "features and model are required", p.name)
	}
	Xt, err := p.Features.fitTransform(f)
	if err != nil {
		return errors.Wrap(err, fmt.Sprintf("pipeline '%s': failed to fit features", p.name))
	}
	if err := p.Model.Fit(Xt, y); err != nil {
		return errors.Wrap(err, fmt.Sprintf("pipeline '%s': failed to fit final step", p.name))
	}
	rows, cols := Xt.Dims()
	p.logger.Debug("pipeline fitted",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, rows,
		log.FeaturesKey, cols,
	)
	p.SetFitted()
	return nil
}

// Predict transforms f and predicts with the regressor.
func (p *Pipeline) Predict(f *dataset.Frame) (mat.Matrix, error) {
	if !p.IsFitted() {
		return nil, errors.NewNotFittedError("Pipeline", "Predict")
	}
	Xt, err := p.Features.Transform(f)
	if err != nil {
		return nil, err
	}
	return p.Model.Predict(Xt)
}

// TransformFeatures applies all steps but the final regressor.
func (p *Pipeline) TransformFeatures(f *dataset.Frame) (mat.Matrix, error) {
	if !p.IsFitted() {
		return nil, errors.NewNotFittedError("Pipeline", "TransformFeatures")
	}
	return p.Features.Transform(f)
}

// FitTransformFeatures fits only the feature steps and returns their
// output on f.
func (p *Pipeline) FitTransformFeatures(f *dataset.Frame) (mat.Matrix, error) {
	return p.Features.fitTransform(f)
}

func (p *Pipeline) String() string {
	return fmt.Sprintf("Pipeline(name=%s, model=%T)", p.name, p.Model)
}

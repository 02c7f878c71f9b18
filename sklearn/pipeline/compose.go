package pipeline

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/cyclefeat/core/model"
	"github.com/YuminosukeSato/cyclefeat/dataset"
	"github.com/YuminosukeSato/cyclefeat/pkg/errors"
)

// FrameTransformer turns a frame into a numeric feature matrix.
type FrameTransformer interface {
	Fit(f *dataset.Frame) error
	Transform(f *dataset.Frame) (mat.Matrix, error)
	NOutputs() int
}

// FitTransform fits t on f and transforms f.
func FitTransform(t FrameTransformer, f *dataset.Frame) (mat.Matrix, error) {
	if err := t.Fit(f); err != nil {
		return nil, err
	}
	return t.Transform(f)
}

// hstack concatenates blocks with the same number of rows.
func hstack(op string, rows int, blocks []mat.Matrix) (*mat.Dense, error) {
	total := 0
	for _, b := range blocks {
		r, c := b.Dims()
		if r != rows {
			return nil, errors.NewDimensionError(op, rows, r, 0)
		}
		total += c
	}
	if total == 0 {
		return nil, errors.NewValueError(op, "no output columns")
	}
	out := mat.NewDense(rows, total, nil)
	offset := 0
	for _, b := range blocks {
		_, c := b.Dims()
		if c == 0 {
			continue
		}
		out.Slice(0, rows, offset, offset+c).(*mat.Dense).Copy(b)
		offset += c
	}
	return out, nil
}

// Entry is one (columns, transformer) pair of a ColumnTransformer.
// Exactly one of Numeric, Categorical or Passthrough is set.
type Entry struct {
	Name        string
	Columns     []string
	Numeric     model.Transformer
	Categorical model.StringTransformer
	Passthrough bool
}

// Numeric applies a matrix transformer to numeric columns.
func Numeric(name string, t model.Transformer, columns ...string) Entry {
	return Entry{Name: name, Columns: columns, Numeric: t}
}

// Categorical applies a string transformer to columns of any kind.
func Categorical(name string, t model.StringTransformer, columns ...string) Entry {
	return Entry{Name: name, Columns: columns, Categorical: t}
}

// Passthrough copies numeric columns unchanged.
func Passthrough(name string, columns ...string) Entry {
	return Entry{Name: name, Columns: columns, Passthrough: true}
}

func (e Entry) validate() error {
	set := 0
	if e.Numeric != nil {
		set++
	}
	if e.Categorical != nil {
		set++
	}
	if e.Passthrough {
		set++
	}
	if set != 1 {
		return errors.NewValidationError("entry", "exactly one transformer kind must be set", e.Name)
	}
	if !e.Passthrough {
		if _, ok := e.transformer().(model.OutputCounter); !ok {
			return errors.NewValidationError("entry", "transformer must report NOutputs", e.Name)
		}
	}
	return nil
}

func (e Entry) transformer() interface{} {
	if e.Numeric != nil {
		return e.Numeric
	}
	return e.Categorical
}

func (e Entry) nOutputs() int {
	if e.Passthrough {
		return len(e.Columns)
	}
	return e.transformer().(model.OutputCounter).NOutputs()
}

func (e Entry) fit(f *dataset.Frame) error {
	switch {
	case e.Numeric != nil:
		X, err := f.Numeric(e.Columns...)
		if err != nil {
			return err
		}
		return e.Numeric.Fit(X)
	case e.Categorical != nil:
		data, err := f.Strings(e.Columns...)
		if err != nil {
			return err
		}
		return e.Categorical.Fit(data)
	default:
		_, err := f.Numeric(e.Columns...)
		return err
	}
}

func (e Entry) transform(f *dataset.Frame) (mat.Matrix, error) {
	switch {
	case e.Numeric != nil:
		X, err := f.Numeric(e.Columns...)
		if err != nil {
			return nil, err
		}
		return e.Numeric.Transform(X)
	case e.Categorical != nil:
		data, err := f.Strings(e.Columns...)
		if err != nil {
			return nil, err
		}
		return e.Categorical.Transform(data)
	default:
		return f.Numeric(e.Columns...)
	}
}

// ColumnTransformer applies each entry to its columns and stacks the
// outputs horizontally in entry order. Columns not named by any entry
// go to Remainder when it is set (its Columns are filled at Fit, in
// frame order) and are dropped otherwise.
type ColumnTransformer struct {
	model.BaseEstimator

	Entries   []Entry
	Remainder *Entry

	remainder *Entry
	nOutputs  int
}

// NewColumnTransformer creates a ColumnTransformer.
func NewColumnTransformer(entries ...Entry) *ColumnTransformer {
	return &ColumnTransformer{Entries: entries}
}

// WithRemainder sets the entry applied to unnamed columns.
func (ct *ColumnTransformer) WithRemainder(e Entry) *ColumnTransformer {
	ct.Remainder = &e
	return ct
}

func (ct *ColumnTransformer) active() []Entry {
	entries := append([]Entry(nil), ct.Entries...)
	if ct.remainder != nil {
		entries = append(entries, *ct.remainder)
	}
	return entries
}

// Fit fits every entry on its columns.
func (ct *ColumnTransformer) Fit(f *dataset.Frame) (err error) {
	defer errors.Recover(&err, "ColumnTransformer.Fit")

	used := map[string]bool{}
	for _, e := range ct.Entries {
		if err := e.validate(); err != nil {
			return err
		}
		for _, c := range e.Columns {
			used[c] = true
		}
	}

	ct.remainder = nil
	if ct.Remainder != nil {
		rest := *ct.Remainder
		rest.Columns = nil
		for _, name := range f.Names() {
			if !used[name] {
				rest.Columns = append(rest.Columns, name)
			}
		}
		if len(rest.Columns) > 0 {
			if err := rest.validate(); err != nil {
				return err
			}
			ct.remainder = &rest
		}
	}

	ct.nOutputs = 0
	for _, e := range ct.active() {
		if err := e.fit(f); err != nil {
			return errors.Wrap(err, fmt.Sprintf("failed to fit entry '%s'", e.Name))
		}
		ct.nOutputs += e.nOutputs()
	}
	ct.SetFitted()
	return nil
}

// Transform transforms every entry and stacks the blocks.
func (ct *ColumnTransformer) Transform(f *dataset.Frame) (mat.Matrix, error) {
	if !ct.IsFitted() {
		return nil, errors.NewNotFittedError("ColumnTransformer", "Transform")
	}
	entries := ct.active()
	blocks := make([]mat.Matrix, len(entries))
	for i, e := range entries {
		b, err := e.transform(f)
		if err != nil {
			return nil, errors.Wrap(err, fmt.Sprintf("failed to transform entry '%s'", e.Name))
		}
		blocks[i] = b
	}
	return hstack("ColumnTransformer.Transform", f.Len(), blocks)
}

// NOutputs returns the total number of output columns.
func (ct *ColumnTransformer) NOutputs() int { return ct.nOutputs }

// RemainderColumns returns the columns routed to the remainder at Fit.
func (ct *ColumnTransformer) RemainderColumns() []string {
	if ct.remainder == nil {
		return nil
	}
	return append([]string(nil), ct.remainder.Columns...)
}

// FeatureUnion stacks the outputs of several frame transformers.
type FeatureUnion struct {
	model.BaseEstimator

	Parts []FrameTransformer
}

// NewFeatureUnion creates a FeatureUnion.
func NewFeatureUnion(parts ...FrameTransformer) *FeatureUnion {
	return &FeatureUnion{Parts: parts}
}

// Fit fits every part.
func (fu *FeatureUnion) Fit(f *dataset.Frame) error {
	if len(fu.Parts) == 0 {
		return errors.NewValidationError("parts", "feature union needs at least one part", 0)
	}
	for i, p := range fu.Parts {
		if err := p.Fit(f); err != nil {
			return errors.Wrapf(err, "failed to fit union part %d", i)
		}
	}
	fu.SetFitted()
	return nil
}

// Transform stacks the part outputs in order.
func (fu *FeatureUnion) Transform(f *dataset.Frame) (mat.Matrix, error) {
	if !fu.IsFitted() {
		return nil, errors.NewNotFittedError("FeatureUnion", "Transform")
	}
	blocks := make([]mat.Matrix, len(fu.Parts))
	for i, p := range fu.Parts {
		b, err := p.Transform(f)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to transform union part %d", i)
		}
		blocks[i] = b
	}
	return hstack("FeatureUnion.Transform", f.Len(), blocks)
}

// NOutputs returns the sum of the part outputs.
func (fu *FeatureUnion) NOutputs() int {
	n := 0
	for _, p := range fu.Parts {
		n += p.NOutputs()
	}
	return n
}

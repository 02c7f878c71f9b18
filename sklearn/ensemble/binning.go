// Package ensemble implements histogram-based gradient boosting for
// regression, following sklearn.ensemble.HistGradientBoostingRegressor.
package ensemble

import (
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/cyclefeat/core/parallel"
	cfErrors "github.com/YuminosukeSato/cyclefeat/pkg/errors"
)

const (
	// DefaultMaxBins is the largest number of bins a feature may use.
	DefaultMaxBins = 255

	// binningSubsample caps the rows used to compute quantile thresholds.
	binningSubsample = 200000
)

// BinMapper maps raw feature values onto small integer bins.
//
// Numerical features get at most MaxBins bins delimited by quantile
// thresholds. A value x falls in bin i when
// Thresholds[i-1] < x <= Thresholds[i]. Categorical features must hold
// non-negative integer codes below MaxBins and use the code as bin.
type BinMapper struct {
	MaxBins     int
	Categorical []bool
	Subsample   int
	RandomState uint64

	// Thresholds holds the bin upper bounds of numerical features.
	Thresholds [][]float64
	// NBins holds the bin count of every feature.
	NBins []int
}

// NewBinMapper creates a mapper; categorical may be nil.
func NewBinMapper(maxBins int, categorical []bool, seed uint64) *BinMapper {
	return &BinMapper{
		MaxBins:     maxBins,
		Categorical: categorical,
		Subsample:   binningSubsample,
		RandomState: seed,
	}
}

func (bm *BinMapper) isCategorical(j int) bool {
	return j < len(bm.Categorical) && bm.Categorical[j]
}

// Fit computes bin thresholds from X.
func (bm *BinMapper) Fit(X mat.Matrix) error {
	rows, cols := X.Dims()
	if rows == 0 || cols == 0 {
		return cfErrors.NewModelError("BinMapper.Fit", "empty data", cfErrors.ErrEmptyData)
	}
	if bm.MaxBins < 2 || bm.MaxBins > DefaultMaxBins {
		return cfErrors.NewValidationError("max_bins", "must be in [2, 255]", bm.MaxBins)
	}
	if len(bm.Categorical) > cols {
		return cfErrors.NewDimensionError("BinMapper.Fit", cols, len(bm.Categorical), 1)
	}

	sample := make([]int, rows)
	for i := range sample {
		sample[i] = i
	}
	if bm.Subsample > 0 && rows > bm.Subsample {
		rng := rand.New(rand.NewPCG(bm.RandomState, bm.RandomState))
		sample = rng.Perm(rows)[:bm.Subsample]
	}

	bm.Thresholds = make([][]float64, cols)
	bm.NBins = make([]int, cols)
	errs := make([]error, cols)

	parallel.Parallelize(cols, func(start, end int) {
		for j := start; j < end; j++ {
			if bm.isCategorical(j) {
				bm.NBins[j], errs[j] = bm.categoricalBins(X, j)
				continue
			}
			values := make([]float64, len(sample))
			for k, i := range sample {
				values[k] = X.At(i, j)
			}
			bm.Thresholds[j] = findThresholds(values, bm.MaxBins)
			bm.NBins[j] = len(bm.Thresholds[j]) + 1
		}
	})
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func (bm *BinMapper) categoricalBins(X mat.Matrix, j int) (int, error) {
	rows, _ := X.Dims()
	maxCode := 0
	for i := 0; i < rows; i++ {
		code, err := bm.categoryCode(X.At(i, j))
		if err != nil {
			return 0, err
		}
		if code > maxCode {
			maxCode = code
		}
	}
	return maxCode + 1, nil
}

func (bm *BinMapper) categoryCode(v float64) (int, error) {
	if v < 0 || v != math.Trunc(v) || math.IsNaN(v) {
		return 0, cfErrors.NewValueError("BinMapper", "categorical values must be non-negative integer codes")
	}
	if int(v) >= bm.MaxBins {
		return 0, cfErrors.NewValueError("BinMapper", "categorical codes must be lower than max_bins")
	}
	return int(v), nil
}

// findThresholds returns midpoints between distinct values when there
// are few of them, and interpolated quantiles otherwise.
func findThresholds(values []float64, maxBins int) []float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	distinct := sorted[:0:0]
	for i, v := range sorted {
		if i == 0 || v != sorted[i-1] {
			distinct = append(distinct, v)
		}
	}

	if len(distinct) <= maxBins {
		thresholds := make([]float64, 0, len(distinct)-1)
		for i := 0; i+1 < len(distinct); i++ {
			thresholds = append(thresholds, (distinct[i]+distinct[i+1])/2)
		}
		return thresholds
	}

	thresholds := make([]float64, 0, maxBins-1)
	for k := 1; k < maxBins; k++ {
		q := stat.Quantile(float64(k)/float64(maxBins), stat.LinInterp, sorted, nil)
		if n := len(thresholds); n == 0 || q > thresholds[n-1] {
			thresholds = append(thresholds, q)
		}
	}
	return thresholds
}

// BinValue returns the bin of a single value of feature j.
func (bm *BinMapper) BinValue(j int, v float64) (uint8, error) {
	if bm.isCategorical(j) {
		code, err := bm.categoryCode(v)
		if err != nil {
			return 0, err
		}
		return uint8(code), nil
	}
	return uint8(sort.SearchFloat64s(bm.Thresholds[j], v)), nil
}

// Transform bins X column by column.
func (bm *BinMapper) Transform(X mat.Matrix) ([][]uint8, error) {
	if bm.NBins == nil {
		return nil, cfErrors.NewNotFittedError("BinMapper", "Transform")
	}
	rows, cols := X.Dims()
	if cols != len(bm.NBins) {
		return nil, cfErrors.NewDimensionError("BinMapper.Transform", len(bm.NBins), cols, 1)
	}

	binned := make([][]uint8, cols)
	errs := make([]error, cols)
	parallel.Parallelize(cols, func(start, end int) {
		for j := start; j < end; j++ {
			col := make([]uint8, rows)
			for i := 0; i < rows; i++ {
				b, err := bm.BinValue(j, X.At(i, j))
				if err != nil {
					errs[j] = err
					break
				}
				col[i] = b
			}
			binned[j] = col
		}
	})
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return binned, nil
}

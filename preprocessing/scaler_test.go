package preprocessing_test

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	cfErrors "github.com/YuminosukeSato/cyclefeat/pkg/errors"
	"github.com/YuminosukeSato/cyclefeat/preprocessing"
)

func TestStandardScaler_BasicFunctionality(t *testing.T) {
	X := mat.NewDense(4, 2, []float64{
		1, 10,
		2, 20,
		3, 30,
		4, 40,
	})
	scaler := preprocessing.NewStandardScalerDefault()
	scaled, err := scaler.FitTransform(X)
	if err != nil {
		t.Fatalf("FitTransform failed: %v", err)
	}

	// 各列の平均は0、母標準偏差は1
	for j := 0; j < 2; j++ {
		col := mat.Col(nil, j, scaled)
		mean, ss := 0.0, 0.0
		for _, v := range col {
			mean += v
		}
		mean /= float64(len(col))
		for _, v := range col {
			ss += (v - mean) * (v - mean)
		}
		if math.Abs(mean) > 1e-12 {
			t.Errorf("column %d: mean = %v, want 0", j, mean)
		}
		if math.Abs(math.Sqrt(ss/float64(len(col)))-1) > 1e-12 {
			t.Errorf("column %d: std = %v, want 1", j, math.Sqrt(ss/float64(len(col))))
		}
	}

	back, err := scaler.InverseTransform(scaled)
	if err != nil {
		t.Fatalf("InverseTransform failed: %v", err)
	}
	if !mat.EqualApprox(back, X, 1e-12) {
		t.Errorf("InverseTransform did not restore the input")
	}
}

func TestStandardScaler_ConstantFeature(t *testing.T) {
	X := mat.NewDense(3, 1, []float64{5, 5, 5})
	scaler := preprocessing.NewStandardScalerDefault()
	scaled, err := scaler.FitTransform(X)
	if err != nil {
		t.Fatalf("FitTransform failed: %v", err)
	}
	if scaler.Scale[0] != 1 {
		t.Errorf("constant feature scale = %v, want 1", scaler.Scale[0])
	}
	if scaled.At(0, 0) != 0 {
		t.Errorf("constant feature scaled to %v, want 0", scaled.At(0, 0))
	}
}

func TestMinMaxScaler_BasicFunctionality(t *testing.T) {
	X := mat.NewDense(3, 2, []float64{
		0, 10,
		5, 20,
		10, 30,
	})
	scaler := preprocessing.NewMinMaxScalerDefault()
	scaled, err := scaler.FitTransform(X)
	if err != nil {
		t.Fatalf("FitTransform failed: %v", err)
	}
	want := mat.NewDense(3, 2, []float64{
		0, 0,
		0.5, 0.5,
		1, 1,
	})
	if !mat.EqualApprox(scaled, want, 1e-12) {
		t.Errorf("scaled = %v, want %v", mat.Formatted(scaled), mat.Formatted(want))
	}

	// 学習範囲外の値はクリップされない
	out, err := scaler.Transform(mat.NewDense(1, 2, []float64{20, 0}))
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}
	if out.At(0, 0) != 2 || out.At(0, 1) != -0.5 {
		t.Errorf("out of range values = [%v %v], want [2 -0.5]", out.At(0, 0), out.At(0, 1))
	}
}

func TestMinMaxScaler_CustomRangeInverse(t *testing.T) {
	X := mat.NewDense(3, 1, []float64{1, 2, 3})
	scaler := preprocessing.NewMinMaxScaler([2]float64{-1, 1})
	scaled, err := scaler.FitTransform(X)
	if err != nil {
		t.Fatalf("FitTransform failed: %v", err)
	}
	if scaled.At(0, 0) != -1 || scaled.At(2, 0) != 1 {
		t.Errorf("scaled bounds = [%v, %v], want [-1, 1]", scaled.At(0, 0), scaled.At(2, 0))
	}
	back, err := scaler.InverseTransform(scaled)
	if err != nil {
		t.Fatalf("InverseTransform failed: %v", err)
	}
	if !mat.EqualApprox(back, X, 1e-12) {
		t.Errorf("InverseTransform did not restore the input")
	}
}

func TestScalers_ErrorCases(t *testing.T) {
	var notFitted *cfErrors.NotFittedError
	if _, err := preprocessing.NewMinMaxScalerDefault().Transform(mat.NewDense(1, 1, nil)); !cfErrors.As(err, &notFitted) {
		t.Errorf("expected NotFittedError, got %v", err)
	}

	scaler := preprocessing.NewStandardScalerDefault()
	if err := scaler.Fit(mat.NewDense(2, 2, []float64{1, 2, 3, 4})); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	var dimErr *cfErrors.DimensionError
	if _, err := scaler.Transform(mat.NewDense(2, 3, nil)); !cfErrors.As(err, &dimErr) {
		t.Errorf("expected DimensionError, got %v", err)
	}

	if err := preprocessing.NewMinMaxScaler([2]float64{1, 0}).Fit(mat.NewDense(1, 1, []float64{1})); err == nil {
		t.Error("expected error for inverted feature range")
	}
}

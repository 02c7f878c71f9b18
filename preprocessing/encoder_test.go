package preprocessing_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	cfErrors "github.com/YuminosukeSato/cyclefeat/pkg/errors"
	"github.com/YuminosukeSato/cyclefeat/preprocessing"
)

func TestOneHotEncoder_Fit(t *testing.T) {
	data := [][]string{
		{"cat", "red"},
		{"dog", "blue"},
		{"cat", "red"},
		{"fish", "green"},
	}

	encoder := preprocessing.NewOneHotEncoder()
	require.NoError(t, encoder.Fit(data))

	assert.True(t, encoder.IsFitted())
	assert.Equal(t, 2, encoder.NFeatures)
	// カテゴリはソート済み
	assert.Equal(t, [][]string{{"cat", "dog", "fish"}, {"blue", "green", "red"}}, encoder.Categories)
	assert.Equal(t, 6, encoder.NOutputs())
}

func TestOneHotEncoder_Transform(t *testing.T) {
	encoder := preprocessing.NewOneHotEncoder()
	out, err := encoder.FitTransform([][]string{{"a"}, {"b"}, {"a"}})
	require.NoError(t, err)

	want := mat.NewDense(3, 2, []float64{
		1, 0,
		0, 1,
		1, 0,
	})
	assert.True(t, mat.Equal(out, want))
}

func TestOneHotEncoder_UnknownCategory(t *testing.T) {
	train := [][]string{{"clear"}, {"misty"}}
	test := [][]string{{"rain"}}

	strict := preprocessing.NewOneHotEncoder()
	require.NoError(t, strict.Fit(train))
	_, err := strict.Transform(test)
	var unknown *cfErrors.UnknownCategoryError
	require.True(t, cfErrors.As(err, &unknown), "err = %v", err)
	assert.Equal(t, "rain", unknown.Category)

	lenient := preprocessing.NewOneHotEncoder()
	lenient.HandleUnknown = preprocessing.HandleUnknownIgnore
	require.NoError(t, lenient.Fit(train))
	out, err := lenient.Transform(test)
	require.NoError(t, err)
	// 未知カテゴリのブロックは全て0
	assert.Equal(t, []float64{0, 0}, mat.Row(nil, 0, out))
}

func TestOneHotEncoder_ExplicitCategories(t *testing.T) {
	encoder := preprocessing.NewOneHotEncoder()
	encoder.ExplicitCategories = [][]string{{"z", "a"}}
	out, err := encoder.FitTransform([][]string{{"a"}})
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1}, mat.Row(nil, 0, out))
	assert.Equal(t, []string{"x0_z", "x0_a"}, encoder.GetFeatureNamesOut(nil))
}

func TestOneHotEncoder_Errors(t *testing.T) {
	var notFitted *cfErrors.NotFittedError
	_, err := preprocessing.NewOneHotEncoder().Transform([][]string{{"a"}})
	assert.True(t, cfErrors.As(err, &notFitted))

	assert.Error(t, preprocessing.NewOneHotEncoder().Fit(nil))

	encoder := preprocessing.NewOneHotEncoder()
	require.NoError(t, encoder.Fit([][]string{{"a", "b"}}))
	var dimErr *cfErrors.DimensionError
	_, err = encoder.Transform([][]string{{"a"}})
	assert.True(t, cfErrors.As(err, &dimErr))

	bad := preprocessing.NewOneHotEncoder()
	bad.HandleUnknown = "drop"
	assert.Error(t, bad.Fit([][]string{{"a"}}))
}

func TestOrdinalEncoder(t *testing.T) {
	categories := [][]string{
		{"clear", "misty", "rain"},
		{"spring", "summer", "fall", "winter"},
	}
	encoder := preprocessing.NewOrdinalEncoder(categories)
	out, err := encoder.FitTransform([][]string{
		{"rain", "spring"},
		{"clear", "winter"},
		{"misty", "fall"},
	})
	require.NoError(t, err)

	// 明示したカテゴリの順序でコードが振られる
	want := mat.NewDense(3, 2, []float64{
		2, 0,
		0, 3,
		1, 2,
	})
	assert.True(t, mat.Equal(out, want), "got %v", mat.Formatted(out))
	assert.Equal(t, 2, encoder.NOutputs())

	_, err = encoder.Transform([][]string{{"heavy_rain", "spring"}})
	var unknown *cfErrors.UnknownCategoryError
	assert.True(t, cfErrors.As(err, &unknown))
}

func TestOrdinalEncoder_LearnedCategories(t *testing.T) {
	encoder := preprocessing.NewOrdinalEncoder(nil)
	out, err := encoder.FitTransform([][]string{{"b"}, {"a"}, {"c"}})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 0, 2}, mat.Col(nil, 0, out))
}

func TestOrdinalEncoder_ExplicitRejectsUnseenTrainingValue(t *testing.T) {
	encoder := preprocessing.NewOrdinalEncoder([][]string{{"False", "True"}})
	assert.Error(t, encoder.Fit([][]string{{"maybe"}}))
}

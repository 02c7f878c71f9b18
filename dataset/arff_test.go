package dataset

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// bikeARFF は bike sharing と同じスキーマの ARFF を n 行分生成する
func bikeARFF(n int) string {
	var b strings.Builder
	b.WriteString("% synthetic bike sharing sample\n")
	b.WriteString("@relation 'Bike_Sharing_Demand'\n\n")
	b.WriteString("@attribute season {spring,summer,fall,winter}\n")
	b.WriteString("@attribute year numeric\n")
	b.WriteString("@attribute month numeric\n")
	b.WriteString("@attribute hour numeric\n")
	b.WriteString("@attribute holiday {False,True}\n")
	b.WriteString("@attribute weekday numeric\n")
	b.WriteString("@attribute workingday {False,True}\n")
	b.WriteString("@attribute weather {clear,misty,rain,heavy_rain}\n")
	b.WriteString("@attribute temp numeric\n")
	b.WriteString("@attribute feel_temp numeric\n")
	b.WriteString("@attribute humidity numeric\n")
	b.WriteString("@attribute windspeed numeric\n")
	b.WriteString("@attribute count numeric\n\n")
	b.WriteString("@data\n")

	seasons := []string{"spring", "summer", "fall", "winter"}
	weathers := []string{"clear", "misty", "rain", "heavy_rain"}
	for i := 0; i < n; i++ {
		hour := i % 24
		day := i / 24
		weekday := day % 7
		month := (day/30)%12 + 1
		working := "True"
		if weekday == 0 || weekday == 6 {
			working = "False"
		}
		fmt.Fprintf(&b, "%s,%d,%d,%d,False,%d,%s,'%s',%.2f,%.2f,%.2f,%.2f,%d\n",
			seasons[(month-1)/3], day/365, month, hour, weekday, working,
			weathers[i%len(weathers)], 10+float64(hour)/2, 12+float64(hour)/2,
			0.5, 8.0, 20+10*hour%7)
	}
	return b.String()
}

func TestParseARFF(t *testing.T) {
	a, err := ParseARFF(strings.NewReader(bikeARFF(48)))
	require.NoError(t, err)

	assert.Equal(t, "Bike_Sharing_Demand", a.Relation)
	require.Len(t, a.Attributes, 13)
	assert.Equal(t, []string{"clear", "misty", "rain", "heavy_rain"}, a.Attributes[7].Nominal)
	assert.False(t, a.Attributes[1].IsNominal())

	assert.Equal(t, 48, a.Frame.Len())
	weather, err := a.Frame.Column("weather")
	require.NoError(t, err)
	assert.False(t, weather.IsNumeric())
	assert.Equal(t, "heavy_rain", weather.Str[3])

	hour, err := a.Frame.Column("hour")
	require.NoError(t, err)
	assert.Equal(t, 23.0, hour.Float[23])
}

func TestParseARFFErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"no data", "@relation x\n@attribute a numeric\n"},
		{"data before attributes", "@relation x\n@data\n1\n"},
		{"wrong arity", "@attribute a numeric\n@attribute b numeric\n@data\n1\n"},
		{"unknown nominal", "@attribute a {x,y}\n@data\nz\n"},
		{"missing value", "@attribute a numeric\n@data\n?\n"},
		{"non numeric", "@attribute a numeric\n@data\nabc\n"},
		{"unsupported type", "@attribute a date\n@data\n2020\n"},
		{"quoted name without type", "@relation r\n@attribute 'x'\n@data\n1\n"},
		{"unterminated quoted name", "@attribute 'x numeric\n@data\n1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseARFF(strings.NewReader(tt.input))
			assert.Error(t, err)
		})
	}
}

func TestSplitFieldsQuoted(t *testing.T) {
	assert.Equal(t, []string{"a", "b,c", "d"}, splitFields(`a,'b,c', "d"`))
	assert.Equal(t, []string{"it's"}, splitFields(`'it\'s'`))
}

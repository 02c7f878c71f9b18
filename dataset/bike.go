package dataset

import (
	"context"
	"os"

	"github.com/YuminosukeSato/cyclefeat/pkg/errors"
	"github.com/YuminosukeSato/cyclefeat/pkg/log"
)

// BikeSharingDataID は OpenML 上の Bike_Sharing_Demand (version 2) の data id
const BikeSharingDataID = 42713

// bike sharing の列名
const (
	ColSeason     = "season"
	ColYear       = "year"
	ColMonth      = "month"
	ColHour       = "hour"
	ColHoliday    = "holiday"
	ColWeekday    = "weekday"
	ColWorkingDay = "workingday"
	ColWeather    = "weather"
	ColTemp       = "temp"
	ColFeelTemp   = "feel_temp"
	ColHumidity   = "humidity"
	ColWindspeed  = "windspeed"
	ColCount      = "count"
)

// CategoricalColumns はカテゴリとして扱う列
var CategoricalColumns = []string{ColWeather, ColSeason, ColHoliday, ColWorkingDay}

// TargetScale は count を「フリートの何割が貸し出されているか」に変換する係数
const TargetScale = 1000.0

// Source はデータの取得元。Path が空でなければローカルの ARFF/CSV を読む
type Source struct {
	Path     string
	CacheDir string
	BaseURL  string
}

// LoadBikeSharing はデータを読み込み、列の型を検証して返す
func LoadBikeSharing(ctx context.Context, src Source) (*Frame, error) {
	logger := log.GetLoggerWithName("dataset.bike")

	var frame *Frame
	switch {
	case src.Path != "":
		f, err := LoadFile(src.Path)
		if err != nil {
			return nil, err
		}
		frame = f
	default:
		fetcher := NewFetcher(src.CacheDir)
		if src.BaseURL != "" {
			fetcher.BaseURL = src.BaseURL
		}
		arff, err := fetcher.Fetch(ctx, BikeSharingDataID)
		if err != nil {
			return nil, err
		}
		frame = arff.Frame
	}

	if err := validateBikeSchema(frame); err != nil {
		return nil, err
	}
	logger.Info("bike sharing demand loaded",
		log.SamplesKey, frame.Len(),
		log.FeaturesKey, frame.NCols()-1,
	)
	return frame, nil
}

// LoadFile は拡張子から形式を判断して ARFF か CSV を読み込む
func LoadFile(path string) (*Frame, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cyclefeat: open %s", path)
	}
	defer file.Close()

	if len(path) > 5 && path[len(path)-5:] == ".arff" {
		a, err := ParseARFF(file)
		if err != nil {
			return nil, err
		}
		return a.Frame, nil
	}
	return ReadCSV(file)
}

func validateBikeSchema(f *Frame) error {
	categorical := map[string]bool{}
	for _, name := range CategoricalColumns {
		categorical[name] = true
	}
	for _, name := range []string{
		ColSeason, ColYear, ColMonth, ColHour, ColHoliday, ColWeekday, ColWorkingDay,
		ColWeather, ColTemp, ColFeelTemp, ColHumidity, ColWindspeed, ColCount,
	} {
		c, err := f.Column(name)
		if err != nil {
			return err
		}
		if categorical[name] == c.IsNumeric() {
			return errors.NewColumnError("LoadBikeSharing", name, "has kind "+c.Kind.String())
		}
	}
	return nil
}

// SplitTarget は count を目的変数 y (= count / 1000) として切り出し、残りを特徴量として返す
func SplitTarget(f *Frame) (*Frame, []float64, error) {
	c, err := f.Column(ColCount)
	if err != nil {
		return nil, nil, err
	}
	if !c.IsNumeric() {
		return nil, nil, errors.NewColumnError("SplitTarget", ColCount, "is categorical")
	}
	y := make([]float64, len(c.Float))
	for i, v := range c.Float {
		y[i] = v / TargetScale
	}
	X, err := f.Drop(ColCount)
	if err != nil {
		return nil, nil, err
	}
	return X, y, nil
}

// MergeRareWeather は件数の極端に少ない heavy_rain を rain にまとめる
func MergeRareWeather(f *Frame) (*Frame, error) {
	return f.ReplaceValue(ColWeather, "heavy_rain", "rain")
}

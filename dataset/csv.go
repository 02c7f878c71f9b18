package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/YuminosukeSato/cyclefeat/pkg/errors"
)

// ReadCSV はヘッダー付き CSV を読み込む。
// すべての値が float として解釈できる列は数値列、それ以外はカテゴリ列になる
func ReadCSV(r io.Reader) (*Frame, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "cyclefeat: failed to read csv")
	}
	if len(records) == 0 {
		return nil, errors.ErrEmptyData
	}

	header := records[0]
	body := records[1:]
	raw := make([][]string, len(header))
	for j := range header {
		raw[j] = make([]string, len(body))
		for i, rec := range body {
			raw[j][i] = rec[j]
		}
	}
	return framesFromStrings(header, raw, nil)
}

// framesFromStrings は列ごとの生文字列から Frame を作る。
// nominal[j] が true の列は常にカテゴリ列として扱う
func framesFromStrings(names []string, raw [][]string, nominal []bool) (*Frame, error) {
	cols := make([]Column, len(names))
	for j, name := range names {
		if nominal != nil && nominal[j] {
			cols[j] = NewCategoricalColumn(name, raw[j])
			continue
		}
		values, bad := parseFloats(raw[j])
		switch {
		case bad < 0:
			cols[j] = NewNumericColumn(name, values)
		case nominal != nil:
			return nil, errors.NewColumnError("parse", name, "is declared numeric but holds non-numeric values")
		default:
			if bad > 0 {
				// 先頭の値は数値として読めた
				errors.Warn(errors.NewDataConversionWarning(name, "float64", "string",
					fmt.Sprintf("non-numeric value %q in row %d", raw[j][bad], bad)))
			}
			cols[j] = NewCategoricalColumn(name, raw[j])
		}
	}
	return NewFrame(cols...)
}

// parseFloats は全要素を float として解釈する。
// 解釈できない要素があればその位置を返し、すべて解釈できた場合は -1 を返す
func parseFloats(values []string) ([]float64, int) {
	out := make([]float64, len(values))
	for i, v := range values {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, i
		}
		out[i] = f
	}
	return out, -1
}

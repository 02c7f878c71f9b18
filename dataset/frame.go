// Package dataset はカラム指向の表データ（Frame）と、Bike Sharing Demand
// データセットの読み込みを提供する。
//
// Frame は pandas.DataFrame のごく一部（列選択、行の位置指定抽出、値置換、
// 集計）だけを実装した不変な構造体で、変換操作は常に新しい Frame を返す。
package dataset

import (
	"sort"
	"strconv"

	"github.com/YuminosukeSato/cyclefeat/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Kind は列の型
type Kind int

const (
	// Numeric は float64 の列
	Numeric Kind = iota
	// Categorical は文字列カテゴリの列
	Categorical
)

func (k Kind) String() string {
	if k == Categorical {
		return "categorical"
	}
	return "numeric"
}

// Column は名前付きの列。Kind に応じて Float か Str のどちらかだけを持つ
type Column struct {
	Name  string
	Kind  Kind
	Float []float64
	Str   []string
}

// NewNumericColumn は数値列を作成する
func NewNumericColumn(name string, values []float64) Column {
	return Column{Name: name, Kind: Numeric, Float: values}
}

// NewCategoricalColumn はカテゴリ列を作成する
func NewCategoricalColumn(name string, values []string) Column {
	return Column{Name: name, Kind: Categorical, Str: values}
}

// Len は列の長さを返す
func (c Column) Len() int {
	if c.Kind == Categorical {
		return len(c.Str)
	}
	return len(c.Float)
}

// IsNumeric は数値列かどうかを返す
func (c Column) IsNumeric() bool { return c.Kind == Numeric }

// StringAt は i 行目の値を文字列で返す
func (c Column) StringAt(i int) string {
	if c.Kind == Categorical {
		return c.Str[i]
	}
	return strconv.FormatFloat(c.Float[i], 'f', -1, 64)
}

func (c Column) take(indices []int) Column {
	out := Column{Name: c.Name, Kind: c.Kind}
	if c.Kind == Categorical {
		out.Str = make([]string, len(indices))
		for i, idx := range indices {
			out.Str[i] = c.Str[idx]
		}
		return out
	}
	out.Float = make([]float64, len(indices))
	for i, idx := range indices {
		out.Float[i] = c.Float[idx]
	}
	return out
}

// Frame は長さの揃った列の順序付き集合
type Frame struct {
	cols  []Column
	index map[string]int
	nRows int
}

// NewFrame は列の長さと名前の一意性を検証して Frame を作成する
func NewFrame(cols ...Column) (*Frame, error) {
	f := &Frame{cols: cols, index: make(map[string]int, len(cols))}
	for i, c := range cols {
		if c.Name == "" {
			return nil, errors.NewColumnError("NewFrame", c.Name, "has an empty name")
		}
		if _, dup := f.index[c.Name]; dup {
			return nil, errors.NewColumnError("NewFrame", c.Name, "is duplicated")
		}
		if i == 0 {
			f.nRows = c.Len()
		} else if c.Len() != f.nRows {
			return nil, errors.NewDimensionError("NewFrame", f.nRows, c.Len(), 0)
		}
		f.index[c.Name] = i
	}
	return f, nil
}

// Len は行数を返す
func (f *Frame) Len() int { return f.nRows }

// NCols は列数を返す
func (f *Frame) NCols() int { return len(f.cols) }

// Names は列名を順序どおりに返す
func (f *Frame) Names() []string {
	names := make([]string, len(f.cols))
	for i, c := range f.cols {
		names[i] = c.Name
	}
	return names
}

// Has は列が存在するかを返す
func (f *Frame) Has(name string) bool {
	_, ok := f.index[name]
	return ok
}

// Column は名前で列を取得する
func (f *Frame) Column(name string) (Column, error) {
	i, ok := f.index[name]
	if !ok {
		return Column{}, errors.NewColumnError("Frame.Column", name, "does not exist")
	}
	return f.cols[i], nil
}

func (f *Frame) columns(op string, names []string) ([]Column, error) {
	if len(names) == 0 {
		return f.cols, nil
	}
	out := make([]Column, len(names))
	for i, name := range names {
		idx, ok := f.index[name]
		if !ok {
			return nil, errors.NewColumnError(op, name, "does not exist")
		}
		out[i] = f.cols[idx]
	}
	return out, nil
}

// Select は指定した列だけからなる Frame を返す
func (f *Frame) Select(names ...string) (*Frame, error) {
	cols, err := f.columns("Frame.Select", names)
	if err != nil {
		return nil, err
	}
	return NewFrame(append([]Column(nil), cols...)...)
}

// Drop は指定した列を除いた Frame を返す
func (f *Frame) Drop(names ...string) (*Frame, error) {
	drop := make(map[string]bool, len(names))
	for _, name := range names {
		if !f.Has(name) {
			return nil, errors.NewColumnError("Frame.Drop", name, "does not exist")
		}
		drop[name] = true
	}
	kept := make([]Column, 0, len(f.cols))
	for _, c := range f.cols {
		if !drop[c.Name] {
			kept = append(kept, c)
		}
	}
	return NewFrame(kept...)
}

// Rows は位置指定で行を抽出した Frame を返す（iloc 相当）。順序は indices のとおり
func (f *Frame) Rows(indices []int) (*Frame, error) {
	for _, idx := range indices {
		if idx < 0 || idx >= f.nRows {
			return nil, errors.NewValueError("Frame.Rows", "row index "+strconv.Itoa(idx)+" out of range")
		}
	}
	cols := make([]Column, len(f.cols))
	for i, c := range f.cols {
		cols[i] = c.take(indices)
	}
	out, err := NewFrame(cols...)
	if err != nil {
		return nil, err
	}
	out.nRows = len(indices)
	return out, nil
}

// Slice は [start, end) の行を返す
func (f *Frame) Slice(start, end int) (*Frame, error) {
	if start < 0 || end > f.nRows || start > end {
		return nil, errors.NewValueError("Frame.Slice", "invalid range ["+strconv.Itoa(start)+", "+strconv.Itoa(end)+")")
	}
	indices := make([]int, end-start)
	for i := range indices {
		indices[i] = start + i
	}
	return f.Rows(indices)
}

// WithColumn は列を追加または置換した Frame を返す
func (f *Frame) WithColumn(c Column) (*Frame, error) {
	cols := append([]Column(nil), f.cols...)
	if i, ok := f.index[c.Name]; ok {
		cols[i] = c
	} else {
		cols = append(cols, c)
	}
	return NewFrame(cols...)
}

// Numeric は数値列から n×k の密行列を作る。names が空なら全列
func (f *Frame) Numeric(names ...string) (*mat.Dense, error) {
	cols, err := f.columns("Frame.Numeric", names)
	if err != nil {
		return nil, err
	}
	if f.nRows == 0 || len(cols) == 0 {
		return nil, errors.ErrEmptyData
	}
	m := mat.NewDense(f.nRows, len(cols), nil)
	for j, c := range cols {
		if !c.IsNumeric() {
			return nil, errors.NewColumnError("Frame.Numeric", c.Name, "is categorical")
		}
		m.SetCol(j, c.Float)
	}
	return m, nil
}

// Strings は行優先の文字列ビューを返す。数値は最短表現で文字列化される
func (f *Frame) Strings(names ...string) ([][]string, error) {
	cols, err := f.columns("Frame.Strings", names)
	if err != nil {
		return nil, err
	}
	out := make([][]string, f.nRows)
	for i := range out {
		row := make([]string, len(cols))
		for j, c := range cols {
			row[j] = c.StringAt(i)
		}
		out[i] = row
	}
	return out, nil
}

// ReplaceValue はカテゴリ列の from を to に置き換えた Frame を返す
func (f *Frame) ReplaceValue(name, from, to string) (*Frame, error) {
	c, err := f.Column(name)
	if err != nil {
		return nil, err
	}
	if c.IsNumeric() {
		return nil, errors.NewColumnError("Frame.ReplaceValue", name, "is numeric")
	}
	values := make([]string, len(c.Str))
	for i, v := range c.Str {
		if v == from {
			v = to
		}
		values[i] = v
	}
	return f.WithColumn(NewCategoricalColumn(name, values))
}

// ValueCount は値とその出現回数
type ValueCount struct {
	Value string
	Count int
}

// ValueCounts は出現回数の降順（同数なら値の昇順）で値を数える
func (f *Frame) ValueCounts(name string) ([]ValueCount, error) {
	c, err := f.Column(name)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int)
	for i := 0; i < c.Len(); i++ {
		counts[c.StringAt(i)]++
	}
	out := make([]ValueCount, 0, len(counts))
	for v, n := range counts {
		out = append(out, ValueCount{Value: v, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Value < out[j].Value
	})
	return out, nil
}

// Group はキーの組ごとの集計結果
type Group struct {
	Keys  []string
	Mean  float64
	Count int
}

// GroupByMean はキー列の組ごとに target の平均を求める。
// 数値キーは数値として、カテゴリキーは文字列として昇順に並べる
func (f *Frame) GroupByMean(keys []string, target string) ([]Group, error) {
	keyCols, err := f.columns("Frame.GroupByMean", keys)
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, errors.NewValueError("Frame.GroupByMean", "at least one key column is required")
	}
	tc, err := f.Column(target)
	if err != nil {
		return nil, err
	}
	if !tc.IsNumeric() {
		return nil, errors.NewColumnError("Frame.GroupByMean", target, "is categorical")
	}

	type acc struct {
		row   int
		sum   float64
		count int
	}
	groups := make(map[string]*acc)
	order := make([]string, 0)
	for i := 0; i < f.nRows; i++ {
		id := ""
		for j, c := range keyCols {
			if j > 0 {
				id += "\x00"
			}
			id += c.StringAt(i)
		}
		g, ok := groups[id]
		if !ok {
			g = &acc{row: i}
			groups[id] = g
			order = append(order, id)
		}
		g.sum += tc.Float[i]
		g.count++
	}

	out := make([]Group, 0, len(order))
	rows := make([]int, 0, len(order))
	for _, id := range order {
		g := groups[id]
		k := make([]string, len(keyCols))
		for j, c := range keyCols {
			k[j] = c.StringAt(g.row)
		}
		out = append(out, Group{Keys: k, Mean: g.sum / float64(g.count), Count: g.count})
		rows = append(rows, g.row)
	}

	perm := make([]int, len(out))
	for i := range perm {
		perm[i] = i
	}
	sort.SliceStable(perm, func(a, b int) bool {
		ra, rb := rows[perm[a]], rows[perm[b]]
		for _, c := range keyCols {
			if c.IsNumeric() {
				if c.Float[ra] != c.Float[rb] {
					return c.Float[ra] < c.Float[rb]
				}
				continue
			}
			if c.Str[ra] != c.Str[rb] {
				return c.Str[ra] < c.Str[rb]
			}
		}
		return false
	})
	sorted := make([]Group, len(out))
	for i, p := range perm {
		sorted[i] = out[p]
	}
	return sorted, nil
}

package dataset

import (
	"bufio"
	"io"
	"strings"

	"github.com/YuminosukeSato/cyclefeat/pkg/errors"
)

// Attribute は ARFF の @attribute 宣言
type Attribute struct {
	Name string
	// Nominal は {a,b,c} 形式で宣言された値。数値属性では nil
	Nominal []string
}

// IsNominal はカテゴリ属性かどうかを返す
func (a Attribute) IsNominal() bool { return a.Nominal != nil }

// ARFF は解析済みの ARFF ファイル
type ARFF struct {
	Relation   string
	Attributes []Attribute
	Frame      *Frame
}

// ParseARFF は OpenML が配布する dense ARFF を解析する。
// nominal 属性はカテゴリ列に、numeric/real/integer 属性は数値列になる。
// 欠損値 "?" はサポートしない
func ParseARFF(r io.Reader) (*ARFF, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	out := &ARFF{}
	var raw [][]string
	inData := false
	lineNo := 0

	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "%") {
			continue
		}

		if !inData {
			lower := strings.ToLower(line)
			switch {
			case strings.HasPrefix(lower, "@relation"):
				out.Relation = unquote(strings.TrimSpace(line[len("@relation"):]))
			case strings.HasPrefix(lower, "@attribute"):
				attr, err := parseAttribute(strings.TrimSpace(line[len("@attribute"):]))
				if err != nil {
					return nil, errors.Wrapf(err, "cyclefeat: arff line %d", lineNo)
				}
				out.Attributes = append(out.Attributes, attr)
			case strings.HasPrefix(lower, "@data"):
				if len(out.Attributes) == 0 {
					return nil, errors.Newf("cyclefeat: arff line %d: @data before any @attribute", lineNo)
				}
				inData = true
				raw = make([][]string, len(out.Attributes))
			default:
				return nil, errors.Newf("cyclefeat: arff line %d: unexpected header line %q", lineNo, line)
			}
			continue
		}

		values := splitFields(line)
		if len(values) != len(out.Attributes) {
			return nil, errors.Wrapf(
				errors.NewDimensionError("ParseARFF", len(out.Attributes), len(values), 1),
				"cyclefeat: arff line %d", lineNo)
		}
		for j, v := range values {
			if v == "?" {
				return nil, errors.Newf("cyclefeat: arff line %d: missing values are not supported", lineNo)
			}
			if attr := out.Attributes[j]; attr.IsNominal() && !contains(attr.Nominal, v) {
				return nil, errors.NewUnknownCategoryError("ParseARFF", j, v)
			}
			raw[j] = append(raw[j], v)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, "cyclefeat: failed to read arff")
	}
	if !inData {
		return nil, errors.New("cyclefeat: arff has no @data section")
	}

	names := make([]string, len(out.Attributes))
	nominal := make([]bool, len(out.Attributes))
	for j, a := range out.Attributes {
		names[j] = a.Name
		nominal[j] = a.IsNominal()
	}
	frame, err := framesFromStrings(names, raw, nominal)
	if err != nil {
		return nil, err
	}
	out.Frame = frame
	return out, nil
}

func parseAttribute(decl string) (Attribute, error) {
	var name, rest string
	if strings.HasPrefix(decl, "'") || strings.HasPrefix(decl, "\"") {
		q := decl[0]
		end := strings.IndexByte(decl[1:], q)
		if end < 0 {
			return Attribute{}, errors.Newf("unterminated attribute name in %q", decl)
		}
		name = decl[1 : end+1]
		rest = strings.TrimSpace(decl[end+2:])
	} else {
		fields := strings.Fields(decl)
		if len(fields) < 2 {
			return Attribute{}, errors.Newf("malformed attribute %q", decl)
		}
		name = fields[0]
		rest = strings.TrimSpace(decl[len(fields[0]):])
	}

	if strings.HasPrefix(rest, "{") {
		end := strings.LastIndexByte(rest, '}')
		if end < 0 {
			return Attribute{}, errors.Newf("unterminated nominal list for %q", name)
		}
		values := splitFields(rest[1:end])
		return Attribute{Name: name, Nominal: values}, nil
	}

	kind := strings.Fields(rest)
	if len(kind) == 0 {
		return Attribute{}, errors.Newf("malformed attribute %q", decl)
	}
	switch strings.ToLower(kind[0]) {
	case "numeric", "real", "integer":
		return Attribute{Name: name}, nil
	default:
		return Attribute{}, errors.Newf("unsupported attribute type %q for %q", rest, name)
	}
}

// splitFields はカンマ区切りの値を分割する。クォートされた値の中のカンマは区切らない
func splitFields(s string) []string {
	var out []string
	var b strings.Builder
	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0 && c == '\\' && i+1 < len(s):
			i++
			b.WriteByte(s[i])
		case quote != 0 && c == quote:
			quote = 0
		case quote == 0 && (c == '\'' || c == '"'):
			quote = c
		case quote == 0 && c == ',':
			out = append(out, strings.TrimSpace(b.String()))
			b.Reset()
		default:
			b.WriteByte(c)
		}
	}
	out = append(out, strings.TrimSpace(b.String()))
	return out
}

func unquote(s string) string {
	if len(s) >= 2 && (s[0] == '\'' || s[0] == '"') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}

func contains(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}

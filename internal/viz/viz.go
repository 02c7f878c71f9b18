// Package viz は gonum/plot で分析用のグラフを描画してファイルに書き出す
package viz

import (
	"image/color"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/YuminosukeSato/cyclefeat/pkg/errors"
	"github.com/YuminosukeSato/cyclefeat/pkg/log"
)

// 対応する出力フォーマット
const (
	FormatPNG = "png"
	FormatSVG = "svg"
	FormatPDF = "pdf"
)

// Series は名前付きの値の列
type Series struct {
	Name   string
	Values []float64
}

// Writer はグラフを Dir 以下に Format 形式で保存する
type Writer struct {
	Dir    string
	Format string
	Width  vg.Length
	Height vg.Length

	logger log.Logger
}

// NewWriter は出力先ディレクトリを作成して Writer を返す
func NewWriter(dir, format string) (*Writer, error) {
	switch format {
	case FormatPNG, FormatSVG, FormatPDF:
	default:
		return nil, errors.NewValidationError("format", "must be png, svg or pdf", format)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "failed to create plot directory %s", dir)
	}
	return &Writer{
		Dir:    dir,
		Format: format,
		Width:  10 * vg.Inch,
		Height: 4 * vg.Inch,
		logger: log.GetLoggerWithName("viz.Writer"),
	}, nil
}

func (w *Writer) path(name string) string {
	return filepath.Join(w.Dir, name+"."+w.Format)
}

func (w *Writer) save(p *plot.Plot, name string) (string, error) {
	path := w.path(name)
	if err := p.Save(w.Width, w.Height, path); err != nil {
		return "", errors.Wrapf(err, "failed to save plot %s", name)
	}
	w.logger.Debug("Chart written", "chart", name, "path", path)
	return path, nil
}

// saveTiles は plots を横一列に並べて 1 枚に保存する
func (w *Writer) saveTiles(plots []*plot.Plot, name string) (string, error) {
	width := w.Width
	if n := vg.Length(len(plots)); n > 2 {
		width = w.Height * n
	}
	c, err := draw.NewFormattedCanvas(width, w.Height, w.Format)
	if err != nil {
		return "", errors.Wrap(err, "failed to create canvas")
	}
	tiles := draw.Tiles{
		Rows:      1,
		Cols:      len(plots),
		PadX:      vg.Millimeter * 4,
		PadY:      vg.Millimeter * 2,
		PadTop:    vg.Millimeter * 2,
		PadBottom: vg.Millimeter * 2,
		PadLeft:   vg.Millimeter * 2,
		PadRight:  vg.Millimeter * 2,
	}
	canvases := plot.Align([][]*plot.Plot{plots}, tiles, draw.New(c))
	for j, p := range plots {
		p.Draw(canvases[0][j])
	}

	path := w.path(name)
	f, err := os.Create(path)
	if err != nil {
		return "", errors.Wrapf(err, "failed to create %s", path)
	}
	if _, err := c.WriteTo(f); err != nil {
		f.Close()
		return "", errors.Wrapf(err, "failed to write %s", path)
	}
	if err := f.Close(); err != nil {
		return "", errors.Wrapf(err, "failed to close %s", path)
	}
	w.logger.Debug("Chart written", "chart", name, "path", path, "panels", len(plots))
	return path, nil
}

func xys(x, y []float64) plotter.XYs {
	pts := make(plotter.XYs, len(y))
	for i := range y {
		pts[i].X = x[i]
		pts[i].Y = y[i]
	}
	return pts
}

func indexXYs(y []float64) plotter.XYs {
	pts := make(plotter.XYs, len(y))
	for i, v := range y {
		pts[i].X = float64(i)
		pts[i].Y = v
	}
	return pts
}

func checkLen(op string, want int, got []float64) error {
	if want == 0 {
		return errors.Wrap(errors.ErrEmptyData, op)
	}
	if len(got) != want {
		return errors.NewDimensionError(op, want, len(got), 0)
	}
	return nil
}

func addLine(p *plot.Plot, i int, name string, pts plotter.XYs) error {
	l, err := plotter.NewLine(pts)
	if err != nil {
		return errors.Wrapf(err, "failed to create line %s", name)
	}
	l.Color = plotutil.Color(i)
	l.Width = vg.Points(1.5)
	p.Add(l)
	if name != "" {
		p.Legend.Add(name, l)
	}
	return nil
}

var gray = color.Gray{Y: 128}

func tail(v []float64, n int) []float64 {
	if n <= 0 || n >= len(v) {
		return v
	}
	return v[len(v)-n:]
}

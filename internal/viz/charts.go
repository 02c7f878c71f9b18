package viz

import (
	"fmt"
	"image/color"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/YuminosukeSato/cyclefeat/pkg/errors"
)

// HoursPerWeek は週平均需要の点数
const HoursPerWeek = 7 * 24

var weekdayNames = []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// WeeklyDemand は曜日×時間ごとの平均需要を折れ線で描く。
// means は weekday*24+hour の順に並んだ 168 点
func (w *Writer) WeeklyDemand(means []float64) (string, error) {
	if err := checkLen("viz.WeeklyDemand", HoursPerWeek, means); err != nil {
		return "", err
	}
	p := plot.New()
	p.Title.Text = "Average hourly bike demand during the week"
	p.Y.Label.Text = "Fraction of rented fleet demand"

	ticks := make([]plot.Tick, len(weekdayNames))
	for d, name := range weekdayNames {
		ticks[d] = plot.Tick{Value: float64(d * 24), Label: name}
	}
	p.X.Tick.Marker = plot.ConstantTicks(ticks)

	if err := addLine(p, 0, "", indexXYs(means)); err != nil {
		return "", err
	}
	return w.save(p, "average_weekly_demand")
}

// TargetHistogram は目的変数の分布を bins 本のヒストグラムで描く
func (w *Writer) TargetHistogram(y []float64, bins int) (string, error) {
	if len(y) == 0 {
		return "", errors.Wrap(errors.ErrEmptyData, "viz.TargetHistogram")
	}
	if bins < 1 {
		return "", errors.NewValidationError("bins", "must be positive", bins)
	}
	p := plot.New()
	p.Title.Text = "Target distribution"
	p.X.Label.Text = "Fraction of rented fleet demand"
	p.Y.Label.Text = "Number of hours"

	h, err := plotter.NewHist(plotter.Values(y), bins)
	if err != nil {
		return "", errors.Wrap(err, "failed to create histogram")
	}
	h.FillColor = plotutil.Color(0)
	p.Add(h)
	return w.save(p, "target_histogram")
}

// HourEncoding は時間の sin/cos 変換を折れ線と散布図の 2 枚で描く
func (w *Writer) HourEncoding(hours, sin, cos []float64) ([]string, error) {
	n := len(hours)
	if err := checkLen("viz.HourEncoding", n, sin); err != nil {
		return nil, err
	}
	if err := checkLen("viz.HourEncoding", n, cos); err != nil {
		return nil, err
	}

	lines := plot.New()
	lines.Title.Text = "Trigonometric encoding for the 'hour' feature"
	lines.X.Label.Text = "hour"
	lines.Legend.Top = true
	if err := addLine(lines, 0, "hour_sin", xys(hours, sin)); err != nil {
		return nil, err
	}
	if err := addLine(lines, 1, "hour_cos", xys(hours, cos)); err != nil {
		return nil, err
	}
	linesPath, err := w.save(lines, "trigonometric_hour_encoding")
	if err != nil {
		return nil, err
	}

	scatter := plot.New()
	scatter.Title.Text = "hour_sin vs hour_cos"
	scatter.X.Label.Text = "hour_sin"
	scatter.Y.Label.Text = "hour_cos"
	s, err := plotter.NewScatter(xys(sin, cos))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create scatter")
	}
	cm := moreland.SmoothBlueRed()
	cm.SetMin(floats.Min(hours))
	cm.SetMax(floats.Max(hours) + 1e-9)
	s.GlyphStyleFunc = func(i int) draw.GlyphStyle {
		gs := draw.GlyphStyle{Shape: draw.CircleGlyph{}, Radius: vg.Points(4)}
		c, err := cm.At(hours[i])
		if err != nil {
			c = gray
		}
		gs.Color = c
		return gs
	}
	scatter.Add(s)

	prev := w.Width
	w.Width = w.Height
	scatterPath, err := w.save(scatter, "hour_sin_cos_scatter")
	w.Width = prev
	if err != nil {
		return nil, err
	}
	return []string{linesPath, scatterPath}, nil
}

// SplineBasis はスプライン基底の各列を x に対する折れ線で描く
func (w *Writer) SplineBasis(name, title string, x []float64, basis mat.Matrix) (string, error) {
	r, c := basis.Dims()
	if err := checkLen("viz.SplineBasis", r, x); err != nil {
		return "", err
	}
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "hour"
	p.Legend.Top = true
	p.Legend.Left = true

	col := make([]float64, r)
	for j := 0; j < c; j++ {
		mat.Col(col, j, basis)
		if err := addLine(p, j, fmt.Sprintf("spline %d", j), xys(x, col)); err != nil {
			return "", err
		}
	}
	return w.save(p, name)
}

// Predictions は直近 window 時間の実測値と各モデルの予測を重ねて描く
func (w *Writer) Predictions(name, title string, y []float64, preds []Series, window int) (string, error) {
	y = tail(y, window)
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "hours"
	p.Y.Label.Text = "Fraction of rented fleet demand"
	p.Legend.Top = true

	actual, err := plotter.NewLine(indexXYs(y))
	if err != nil {
		return "", errors.Wrap(err, "failed to create actual line")
	}
	actual.Color = color.Black
	actual.Dashes = plotutil.Dashes(1)
	p.Add(actual)
	p.Legend.Add("Actual demand", actual)

	for i, s := range preds {
		v := tail(s.Values, window)
		if err := checkLen("viz.Predictions", len(y), v); err != nil {
			return "", errors.Wrapf(err, "series %s", s.Name)
		}
		if err := addLine(p, i, s.Name, indexXYs(v)); err != nil {
			return "", err
		}
	}
	return w.save(p, name)
}

// TrueVsPredicted は各モデルの実測値対予測値の散布図を横に並べ、
// 完全なモデルを表す対角線を重ねる
func (w *Writer) TrueVsPredicted(name string, y []float64, preds []Series) (string, error) {
	if len(preds) == 0 {
		return "", errors.NewValueError("viz.TrueVsPredicted", "at least one series is required")
	}
	if len(y) == 0 {
		return "", errors.Wrap(errors.ErrEmptyData, "viz.TrueVsPredicted")
	}
	lo, hi := floats.Min(y), floats.Max(y)

	panels := make([]*plot.Plot, len(preds))
	for i, s := range preds {
		if err := checkLen("viz.TrueVsPredicted", len(y), s.Values); err != nil {
			return "", errors.Wrapf(err, "series %s", s.Name)
		}
		p := plot.New()
		p.Title.Text = s.Name
		p.X.Label.Text = "True values"
		if i == 0 {
			p.Y.Label.Text = "Predicted values"
		}

		sc, err := plotter.NewScatter(xys(y, s.Values))
		if err != nil {
			return "", errors.Wrapf(err, "failed to create scatter %s", s.Name)
		}
		sc.GlyphStyle.Color = color.RGBA{R: 31, G: 119, B: 180, A: 80}
		sc.GlyphStyle.Radius = vg.Points(1.5)
		p.Add(sc)

		diag, err := plotter.NewLine(plotter.XYs{{X: lo, Y: lo}, {X: hi, Y: hi}})
		if err != nil {
			return "", errors.Wrap(err, "failed to create diagonal")
		}
		diag.Color = color.Black
		diag.Dashes = plotutil.Dashes(1)
		p.Add(diag)

		p.X.Min, p.X.Max = lo, hi
		p.Y.Min, p.Y.Max = lo, hi
		panels[i] = p
	}
	return w.saveTiles(panels, name)
}

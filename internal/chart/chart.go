// Package chart renders snapshot views to PNG with go-chart.
package chart

import (
	"bytes"
	"errors"
	"fmt"
	"math"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/KaramelBytes/covidlens-cli/internal/analysis"
	"github.com/KaramelBytes/covidlens-cli/internal/report"
)

// ErrEmptyData is returned when a chart has nothing to draw.
var ErrEmptyData = errors.New("nothing to chart")

// Options sizes and titles a chart.
type Options struct {
	Title  string
	Width  int
	Height int
}

func (o Options) size() (int, int) {
	w, h := o.Width, o.Height
	if w <= 0 {
		w = 1024
	}
	if h <= 0 {
		h = 512
	}
	return w, h
}

var palette = []drawing.Color{
	gochart.ColorBlue,
	gochart.ColorOrange,
	gochart.ColorGreen,
	gochart.ColorRed,
	gochart.ColorCyan,
	gochart.ColorAlternateGray,
}

func color(i int) drawing.Color { return palette[i%len(palette)] }

// pointStyle renders points only.
func pointStyle(col drawing.Color) gochart.Style {
	return gochart.Style{
		StrokeWidth: 0,
		StrokeColor: drawing.ColorTransparent,
		DotWidth:    4,
		DotColor:    col,
	}
}

func lineStyle(col drawing.Color) gochart.Style {
	return gochart.Style{StrokeColor: col, StrokeWidth: 2}
}

// Line plots each present metric among confirmed, recovered and active
// against deaths, one point per row of r.
func Line(r *analysis.Ranking, opt Options) ([]byte, error) {
	xs, err := r.Values(report.Deaths)
	if err != nil {
		return nil, err
	}
	if len(xs) < 2 {
		return nil, fmt.Errorf("%w: line chart needs at least 2 points, have %d", ErrEmptyData, len(xs))
	}
	var series []gochart.Series
	lo, hi := math.Inf(1), math.Inf(-1)
	for i, k := range []report.Key{report.Confirmed, report.Recovered, report.Active} {
		ys, err := r.Values(k)
		if err != nil {
			continue
		}
		for _, y := range ys {
			lo, hi = math.Min(lo, y), math.Max(hi, y)
		}
		idx, _ := r.MetricIndex(k)
		series = append(series, gochart.ContinuousSeries{
			Name:    r.MetricNames[idx],
			XValues: xs,
			YValues: ys,
			Style:   lineStyle(color(i)),
		})
	}
	if len(series) == 0 {
		return nil, fmt.Errorf("%w: no confirmed, recovered or active column", ErrEmptyData)
	}
	w, h := opt.size()
	ch := gochart.Chart{
		Title:      opt.Title,
		Width:      w,
		Height:     h,
		Background: gochart.Style{Padding: gochart.Box{Top: 40, Left: 16, Right: 12, Bottom: 16}},
		XAxis:      gochart.XAxis{Name: "Deaths", Range: padded(minOf(xs), maxOf(xs))},
		YAxis:      gochart.YAxis{Range: padded(math.Min(lo, 0), hi)},
		Series:     series,
	}
	ch.Elements = []gochart.Renderable{gochart.Legend(&ch)}
	return render(&ch)
}

// Bar draws one labelled bar per value.
func Bar(labels []string, values []float64, opt Options) ([]byte, error) {
	if len(values) == 0 || len(labels) != len(values) {
		return nil, fmt.Errorf("%w: %d labels for %d bars", ErrEmptyData, len(labels), len(values))
	}
	bars := make([]gochart.Value, len(values))
	for i, v := range values {
		if math.IsNaN(v) {
			v = 0
		}
		bars[i] = gochart.Value{Label: labels[i], Value: v, Style: gochart.Style{FillColor: color(0), StrokeColor: color(0)}}
	}
	w, h := opt.size()
	barWidth := 30
	if need := len(bars)*(barWidth+10) + 120; need > w {
		barWidth = int(math.Max(4, float64(w-120)/float64(len(bars))-4))
	}
	bc := gochart.BarChart{
		Title:      opt.Title,
		Width:      w,
		Height:     h,
		BarWidth:   barWidth,
		BarSpacing: int(math.Max(2, float64(barWidth)/3)),
		Background: gochart.Style{Padding: gochart.Box{Top: 40, Left: 16, Right: 12, Bottom: 16}},
		XAxis:      gochart.Style{TextRotationDegrees: 45},
		YAxis:      gochart.YAxis{Range: padded(0, maxOf(values))},
		Bars:       bars,
	}
	var buf bytes.Buffer
	if err := bc.Render(gochart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("render bar chart: %w", err)
	}
	return buf.Bytes(), nil
}

// Pie draws each value's share of the total.
func Pie(labels []string, values []float64, opt Options) ([]byte, error) {
	var total float64
	var slices []gochart.Value
	for i, v := range values {
		if math.IsNaN(v) || v <= 0 {
			continue
		}
		total += v
		slices = append(slices, gochart.Value{Label: labels[i], Value: v})
	}
	if total == 0 {
		return nil, fmt.Errorf("%w: pie total is zero", ErrEmptyData)
	}
	w, h := opt.size()
	pc := gochart.PieChart{
		Title:  opt.Title,
		Width:  w,
		Height: h,
		Values: slices,
	}
	var buf bytes.Buffer
	if err := pc.Render(gochart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("render pie chart: %w", err)
	}
	return buf.Bytes(), nil
}

// Histogram buckets values into n equal-width bins drawn as bars.
func Histogram(values []float64, n int, opt Options) ([]byte, error) {
	bins, err := analysis.Bins(values, n)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmptyData, err)
	}
	labels := make([]string, len(bins))
	counts := make([]float64, len(bins))
	for i, b := range bins {
		labels[i] = analysis.FormatNumber(math.Round(b.Lo))
		counts[i] = float64(b.Count)
	}
	return Bar(labels, counts, opt)
}

// Boxplot draws one box per column: the quartile box, a median line,
// whiskers to the furthest inliers and outlier points.
func Boxplot(names []string, columns [][]float64, opt Options) ([]byte, error) {
	var series []gochart.Series
	var ticks []gochart.Tick
	lo, hi := math.Inf(1), math.Inf(-1)
	for i, vals := range columns {
		f, err := analysis.Summarize(vals)
		if err != nil {
			continue
		}
		x := float64(i + 1)
		col := color(i)
		ticks = append(ticks, gochart.Tick{Value: x, Label: names[i]})
		lo, hi = math.Min(lo, f.Min), math.Max(hi, f.Max)
		series = append(series,
			gochart.ContinuousSeries{
				Name:    names[i],
				XValues: []float64{x - 0.3, x + 0.3, x + 0.3, x - 0.3, x - 0.3},
				YValues: []float64{f.Q1, f.Q1, f.Q3, f.Q3, f.Q1},
				Style:   lineStyle(col),
			},
			gochart.ContinuousSeries{XValues: []float64{x - 0.3, x + 0.3}, YValues: []float64{f.Median, f.Median}, Style: lineStyle(col)},
			gochart.ContinuousSeries{XValues: []float64{x, x}, YValues: []float64{f.LowWhisker, f.Q1}, Style: lineStyle(col)},
			gochart.ContinuousSeries{XValues: []float64{x, x}, YValues: []float64{f.Q3, f.HighWhisker}, Style: lineStyle(col)},
		)
		if len(f.Outliers) > 0 {
			xs := make([]float64, len(f.Outliers))
			for j := range xs {
				xs[j] = x
			}
			series = append(series, gochart.ContinuousSeries{XValues: xs, YValues: f.Outliers, Style: pointStyle(col)})
		}
	}
	if len(series) == 0 {
		return nil, fmt.Errorf("%w: no values for a box plot", ErrEmptyData)
	}
	w, h := opt.size()
	ch := gochart.Chart{
		Title:      opt.Title,
		Width:      w,
		Height:     h,
		Background: gochart.Style{Padding: gochart.Box{Top: 40, Left: 16, Right: 12, Bottom: 16}},
		XAxis:      gochart.XAxis{Ticks: edgeTicks(ticks, len(columns)), Range: &gochart.ContinuousRange{Min: 0, Max: float64(len(columns) + 1)}},
		YAxis:      gochart.YAxis{Range: padded(lo, hi)},
		Series:     series,
	}
	return render(&ch)
}

// edgeTicks adds blank ticks at both ends so the axis covers the padding.
func edgeTicks(ticks []gochart.Tick, n int) []gochart.Tick {
	out := make([]gochart.Tick, 0, len(ticks)+2)
	out = append(out, gochart.Tick{Value: 0})
	out = append(out, ticks...)
	return append(out, gochart.Tick{Value: float64(n + 1)})
}

func render(ch *gochart.Chart) ([]byte, error) {
	var buf bytes.Buffer
	if err := ch.Render(gochart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("render chart: %w", err)
	}
	return buf.Bytes(), nil
}

// padded returns a range that is never empty.
func padded(lo, hi float64) *gochart.ContinuousRange {
	if math.IsInf(lo, 0) || math.IsNaN(lo) {
		lo = 0
	}
	if math.IsInf(hi, 0) || math.IsNaN(hi) {
		hi = lo
	}
	if hi <= lo {
		hi = lo + 1
	}
	return &gochart.ContinuousRange{Min: lo, Max: hi + (hi-lo)*0.05}
}

func minOf(vals []float64) float64 {
	out := math.Inf(1)
	for _, v := range vals {
		out = math.Min(out, v)
	}
	return out
}

func maxOf(vals []float64) float64 {
	out := math.Inf(-1)
	for _, v := range vals {
		if !math.IsNaN(v) {
			out = math.Max(out, v)
		}
	}
	return out
}

package chart

import (
	"fmt"
	"math"
	"strings"

	"github.com/KaramelBytes/covidlens-cli/internal/analysis"
	"github.com/KaramelBytes/covidlens-cli/internal/report"
)

// Kind names a snapshot chart.
type Kind string

const (
	KindLine      Kind = "line"
	KindBar       Kind = "bar"
	KindPie       Kind = "pie"
	KindHistogram Kind = "histogram"
	KindBoxplot   Kind = "boxplot"
)

// Kinds lists every chart kind.
var Kinds = []Kind{KindLine, KindBar, KindPie, KindHistogram, KindBoxplot}

// ParseKind matches a chart kind case-insensitively.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Kinds {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown chart kind %q (want one of line, bar, pie, histogram, boxplot)", s)
}

// Params selects what a snapshot chart shows.
type Params struct {
	Options
	// DeathsThreshold filters rows for the line chart.
	DeathsThreshold float64
	// Country switches the bar chart to provinces of that country.
	Country string
	// Metric is the bar chart measure; deaths when empty.
	Metric report.Key
	// TopN bounds bar and pie slices.
	TopN int
	// PieCountries selects pie slices; the top countries by deaths when empty.
	PieCountries []string
	Bins         int
	BoxplotRows  int
}

// DefaultParams matches the dashboard defaults.
func DefaultParams() Params {
	return Params{
		DeathsThreshold: 2500,
		Country:         "US",
		Metric:          report.Deaths,
		TopN:            10,
		Bins:            20,
		BoxplotRows:     25,
	}
}

// Render draws chart kind for snap.
func Render(snap *report.Snapshot, kind Kind, p Params) ([]byte, error) {
	if p.Metric == "" {
		p.Metric = report.Deaths
	}
	if p.TopN <= 0 {
		p.TopN = 10
	}
	opt := p.Options
	switch kind {
	case KindLine:
		r, err := analysis.DeathsAbove(snap, p.DeathsThreshold)
		if err != nil {
			return nil, err
		}
		if opt.Title == "" {
			opt.Title = fmt.Sprintf("Countries with more than %s deaths (%s)", analysis.FormatNumber(p.DeathsThreshold), snap.Key)
		}
		return Line(r, opt)
	case KindBar:
		var r *analysis.Ranking
		var err error
		if p.Country != "" {
			r, err = analysis.ByProvince(snap, p.Country)
		} else {
			r, err = analysis.ByCountry(snap)
		}
		if err != nil {
			return nil, err
		}
		if err := r.SortBy(p.Metric, true); err != nil {
			return nil, err
		}
		top := r.Top(p.TopN)
		vals, _ := top.Values(p.Metric)
		if opt.Title == "" {
			scope := "countries"
			if p.Country != "" {
				scope = p.Country
			}
			opt.Title = fmt.Sprintf("Top %d %s by %s (%s)", top.Len(), scope, p.Metric, snap.Key)
		}
		return Bar(lastKeys(top), vals, opt)
	case KindPie:
		r, err := analysis.ByCountry(snap)
		if err != nil {
			return nil, err
		}
		if err := r.SortBy(report.Deaths, true); err != nil {
			return nil, err
		}
		if len(p.PieCountries) > 0 {
			r = only(r, p.PieCountries)
		} else {
			r = r.Top(p.TopN)
		}
		vals, _ := r.Values(report.Deaths)
		if opt.Title == "" {
			opt.Title = fmt.Sprintf("Share of deaths (%s)", snap.Key)
		}
		return Pie(r.Labels(), vals, opt)
	case KindHistogram:
		r, err := analysis.ByCountry(snap)
		if err != nil {
			return nil, err
		}
		vals, err := r.Values(report.Deaths)
		if err != nil {
			return nil, err
		}
		if opt.Title == "" {
			opt.Title = fmt.Sprintf("Deaths per country (%s)", snap.Key)
		}
		return Histogram(vals, p.Bins, opt)
	case KindBoxplot:
		names, cols := boxColumns(snap, p.BoxplotRows)
		if opt.Title == "" {
			opt.Title = fmt.Sprintf("Distribution of the first %d rows (%s)", p.BoxplotRows, snap.Key)
		}
		return Boxplot(names, cols, opt)
	}
	return nil, fmt.Errorf("unknown chart kind %q", kind)
}

// boxColumns returns the metric columns of the first n rows with nulls as 0.
func boxColumns(snap *report.Snapshot, n int) ([]string, [][]float64) {
	cols := snap.Columns()
	df := snap.Frame()
	if n <= 0 || n > df.Nrow() {
		n = df.Nrow()
	}
	var names []string
	var out [][]float64
	for _, k := range cols.Metrics(report.MetricKeys...) {
		name, _ := cols.Lookup(k)
		vals := df.Col(name).Float()[:n]
		for i, v := range vals {
			if math.IsNaN(v) {
				vals[i] = 0
			}
		}
		names = append(names, name)
		out = append(out, vals)
	}
	return names, out
}

func only(r *analysis.Ranking, countries []string) *analysis.Ranking {
	want := map[string]bool{}
	for _, c := range countries {
		want[strings.TrimSpace(c)] = true
	}
	out := r.Top(0)
	for _, row := range r.Rows {
		if want[row.Keys[0]] {
			out.Rows = append(out.Rows, row)
		}
	}
	return out
}

// lastKeys labels rows by their innermost key: the province in a province
// ranking, the country otherwise.
func lastKeys(r *analysis.Ranking) []string {
	out := make([]string, len(r.Rows))
	for i, row := range r.Rows {
		out[i] = analysis.FormatKey(row.Keys[len(row.Keys)-1:])
	}
	return out
}

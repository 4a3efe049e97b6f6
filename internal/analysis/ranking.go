package analysis

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/KaramelBytes/covidlens-cli/internal/report"
)

// ErrNoMetrics is returned when none of the requested metric columns is published.
var ErrNoMetrics = errors.New("no metric columns published for this date")

// CountryNotFoundError is returned when a country has no rows in a snapshot.
type CountryNotFoundError struct {
	Country string
	Date    string
}

func (e *CountryNotFoundError) Error() string {
	return fmt.Sprintf("no rows for country %q on %s", e.Country, e.Date)
}

// Row is one group of a Ranking.
type Row struct {
	Keys   []string
	Values []float64
}

// Ranking is a grouped, summed and ordered view over a snapshot.
type Ranking struct {
	KeyNames    []string
	Metrics     []report.Key
	MetricNames []string
	Rows        []Row
}

// Len returns the number of groups.
func (r *Ranking) Len() int { return len(r.Rows) }

// MetricIndex returns the position of k among the ranking metrics.
func (r *Ranking) MetricIndex(k report.Key) (int, bool) {
	for i, m := range r.Metrics {
		if m == k {
			return i, true
		}
	}
	return 0, false
}

// Values returns the column of values for k.
func (r *Ranking) Values(k report.Key) ([]float64, error) {
	i, ok := r.MetricIndex(k)
	if !ok {
		return nil, &report.MissingColumnError{Key: k}
	}
	out := make([]float64, len(r.Rows))
	for j, row := range r.Rows {
		out[j] = row.Values[i]
	}
	return out, nil
}

// Labels returns the joined group keys of each row.
func (r *Ranking) Labels() []string {
	out := make([]string, len(r.Rows))
	for i, row := range r.Rows {
		out[i] = label(row.Keys)
	}
	return out
}

// Top returns the first n rows. n <= 0 yields an empty ranking.
func (r *Ranking) Top(n int) *Ranking {
	if n < 0 {
		n = 0
	}
	if n > len(r.Rows) {
		n = len(r.Rows)
	}
	out := r.shell()
	out.Rows = append(out.Rows, r.Rows[:n]...)
	return out
}

// Column keeps only metric k.
func (r *Ranking) Column(k report.Key) (*Ranking, error) {
	i, ok := r.MetricIndex(k)
	if !ok {
		return nil, &report.MissingColumnError{Key: k}
	}
	out := &Ranking{
		KeyNames:    append([]string(nil), r.KeyNames...),
		Metrics:     []report.Key{k},
		MetricNames: []string{r.MetricNames[i]},
	}
	for _, row := range r.Rows {
		out.Rows = append(out.Rows, Row{Keys: row.Keys, Values: []float64{row.Values[i]}})
	}
	return out, nil
}

// SortBy reorders rows by metric k; ties keep key order.
func (r *Ranking) SortBy(k report.Key, descending bool) error {
	i, ok := r.MetricIndex(k)
	if !ok {
		return &report.MissingColumnError{Key: k}
	}
	sort.SliceStable(r.Rows, func(a, b int) bool {
		va, vb := r.Rows[a].Values[i], r.Rows[b].Values[i]
		if va != vb {
			if descending {
				return va > vb
			}
			return va < vb
		}
		return label(r.Rows[a].Keys) < label(r.Rows[b].Keys)
	})
	return nil
}

// Frame converts the ranking into a table (group columns then metrics).
func (r *Ranking) Frame() dataframe.DataFrame {
	cols := make([]series.Series, 0, len(r.KeyNames)+len(r.MetricNames))
	for i, name := range r.KeyNames {
		vals := make([]string, len(r.Rows))
		for j, row := range r.Rows {
			vals[j] = row.Keys[i]
		}
		cols = append(cols, series.New(vals, series.String, name))
	}
	for i, name := range r.MetricNames {
		vals := make([]float64, len(r.Rows))
		for j, row := range r.Rows {
			vals[j] = row.Values[i]
		}
		cols = append(cols, series.New(vals, series.Float, name))
	}
	return dataframe.New(cols...)
}

func (r *Ranking) shell() *Ranking {
	return &Ranking{
		KeyNames:    append([]string(nil), r.KeyNames...),
		Metrics:     append([]report.Key(nil), r.Metrics...),
		MetricNames: append([]string(nil), r.MetricNames...),
	}
}

// ByCountry sums every published metric per country, ordered descending by
// the first published metric (confirmed when present).
func ByCountry(snap *report.Snapshot) (*Ranking, error) {
	cols := snap.Columns()
	country, err := cols.Require(report.Country)
	if err != nil {
		return nil, err
	}
	metrics := cols.Metrics(report.MetricKeys...)
	if len(metrics) == 0 {
		return nil, ErrNoMetrics
	}
	df := snap.Frame()
	r := group(df, cols, []string{country}, metrics, nil)
	if err := r.SortBy(metrics[0], true); err != nil {
		return nil, err
	}
	return r, nil
}

// ByProvince groups the rows of one country by province/state, summing
// confirmed, deaths and recovered when published. A country with no rows
// yields *CountryNotFoundError.
func ByProvince(snap *report.Snapshot, country string) (*Ranking, error) {
	cols := snap.Columns()
	countryCol, err := cols.Require(report.Country)
	if err != nil {
		return nil, err
	}
	provinceCol, err := cols.Require(report.Province)
	if err != nil {
		return nil, err
	}
	metrics := cols.Metrics(report.Confirmed, report.Deaths, report.Recovered)
	if len(metrics) == 0 {
		return nil, ErrNoMetrics
	}
	df := snap.Frame()
	countries := Strings(df, countryCol)
	keep := func(i int) bool { return countries[i] == country }
	r := group(df, cols, []string{countryCol, provinceCol}, metrics, keep)
	if r.Len() == 0 {
		return nil, &CountryNotFoundError{Country: country, Date: snap.Key}
	}
	if err := r.SortBy(metrics[0], true); err != nil {
		return nil, err
	}
	return r, nil
}

// DeathsAbove keeps rows whose deaths exceed threshold, sums them per
// country and orders the result ascending by deaths.
func DeathsAbove(snap *report.Snapshot, threshold float64) (*Ranking, error) {
	cols := snap.Columns()
	country, err := cols.Require(report.Country)
	if err != nil {
		return nil, err
	}
	deathsCol, err := cols.Require(report.Deaths)
	if err != nil {
		return nil, err
	}
	df := snap.Frame()
	deaths := df.Col(deathsCol).Float()
	keep := func(i int) bool { return !math.IsNaN(deaths[i]) && deaths[i] > threshold }
	r := group(df, cols, []string{country}, cols.Metrics(report.MetricKeys...), keep)
	if err := r.SortBy(report.Deaths, false); err != nil {
		return nil, err
	}
	return r, nil
}

// Extremes returns the rows achieving the maximum and the minimum of k.
// Ties are all included, in ranking order.
func Extremes(r *Ranking, k report.Key) (maxRows, minRows *Ranking, err error) {
	i, ok := r.MetricIndex(k)
	if !ok {
		return nil, nil, &report.MissingColumnError{Key: k}
	}
	maxRows, minRows = r.shell(), r.shell()
	if len(r.Rows) == 0 {
		return maxRows, minRows, nil
	}
	hi, lo := math.Inf(-1), math.Inf(1)
	for _, row := range r.Rows {
		hi = math.Max(hi, row.Values[i])
		lo = math.Min(lo, row.Values[i])
	}
	for _, row := range r.Rows {
		if row.Values[i] == hi {
			maxRows.Rows = append(maxRows.Rows, row)
		}
		if row.Values[i] == lo {
			minRows.Rows = append(minRows.Rows, row)
		}
	}
	return maxRows, minRows, nil
}

// Countries returns the sorted distinct non-null country values.
func Countries(snap *report.Snapshot) []string {
	name, ok := snap.Columns().Lookup(report.Country)
	if !ok {
		return nil
	}
	seen := map[string]struct{}{}
	var out []string
	for _, v := range Strings(snap.Frame(), name) {
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// group sums metrics per distinct key tuple in order of first appearance.
// Null metric cells count as zero; null keys form their own group.
func group(df dataframe.DataFrame, cols report.ColumnIndex, keyCols []string, metrics []report.Key, keep func(int) bool) *Ranking {
	r := &Ranking{KeyNames: keyCols, Metrics: metrics}
	keys := make([][]string, len(keyCols))
	for i, name := range keyCols {
		keys[i] = Strings(df, name)
	}
	vals := make([][]float64, len(metrics))
	for i, k := range metrics {
		name, _ := cols.Lookup(k)
		r.MetricNames = append(r.MetricNames, name)
		vals[i] = df.Col(name).Float()
	}
	pos := map[string]int{}
	for row := 0; row < df.Nrow(); row++ {
		if keep != nil && !keep(row) {
			continue
		}
		tuple := make([]string, len(keyCols))
		for i := range keyCols {
			tuple[i] = keys[i][row]
		}
		id := strings.Join(tuple, "\x00")
		at, ok := pos[id]
		if !ok {
			at = len(r.Rows)
			pos[id] = at
			r.Rows = append(r.Rows, Row{Keys: tuple, Values: make([]float64, len(metrics))})
		}
		for i := range metrics {
			if v := vals[i][row]; !math.IsNaN(v) {
				r.Rows[at].Values[i] += v
			}
		}
	}
	return r
}

// Strings returns the column as strings with nulls as "".
func Strings(df dataframe.DataFrame, name string) []string {
	s := df.Col(name)
	out := make([]string, s.Len())
	for i := range out {
		e := s.Elem(i)
		if e.IsNA() {
			continue
		}
		out[i] = e.String()
	}
	return out
}

func label(keys []string) string {
	parts := make([]string, len(keys))
	for i, k := range keys {
		if k == "" {
			k = "(missing)"
		}
		parts[i] = k
	}
	return strings.Join(parts, " / ")
}

// FormatKey returns a printable name for a group key tuple.
func FormatKey(keys []string) string { return label(keys) }

func (r *Ranking) String() string {
	return fmt.Sprintf("Ranking{%s by %s, %d rows}", strings.Join(r.MetricNames, ","), strings.Join(r.KeyNames, ","), len(r.Rows))
}

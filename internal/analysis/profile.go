package analysis

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/KaramelBytes/covidlens-cli/internal/report"
)

// Profile is a markdown-friendly description of a snapshot: schema, missing
// values per column and the resolved semantic columns.
type Profile struct {
	Date     string
	Source   string
	Rows     int
	Cols     []ColumnSummary
	Index    map[report.Key]string
	Head     dataframe.DataFrame
	Tail     dataframe.DataFrame
	Warnings []string
}

// ColumnSummary captures inferred kind and statistics per column.
type ColumnSummary struct {
	Name    string
	Kind    string // numeric|datetime|categorical|text|unknown
	NonNull int
	Missing int
	Unique  int
	// Numeric stats
	Min  float64
	Max  float64
	Mean float64
	Std  float64
	// Categorical top values
	TopValues    []CategoryCount
	ExampleTexts []string
}

type CategoryCount struct {
	Value string
	Count int
}

// ProfileOptions controls how much of the table is echoed.
type ProfileOptions struct {
	// SampleRows is the number of head and tail rows kept; 0 keeps none.
	SampleRows int
	// MaxCategories bounds distinct values tracked per text column.
	MaxCategories int
}

// DefaultProfileOptions mirrors the overview page: ten rows each end.
func DefaultProfileOptions() ProfileOptions {
	return ProfileOptions{SampleRows: 10, MaxCategories: 10000}
}

// ProfileSnapshot summarizes every column of the snapshot.
func ProfileSnapshot(snap *report.Snapshot, opt ProfileOptions) *Profile {
	df := snap.Frame()
	p := ProfileFrame(df, opt)
	p.Date = snap.Key
	p.Source = snap.Location
	p.Index = snap.Columns().Map()
	for _, k := range []report.Key{report.Confirmed, report.Deaths} {
		if _, ok := p.Index[k]; !ok {
			p.Warnings = append(p.Warnings, fmt.Sprintf("expected column %q is not published for this date", string(k)))
		}
	}
	return p
}

// ProfileFrame summarizes every column of df.
func ProfileFrame(df dataframe.DataFrame, opt ProfileOptions) *Profile {
	if opt.MaxCategories <= 0 {
		opt.MaxCategories = 10000
	}
	p := &Profile{Rows: df.Nrow()}
	names := df.Names()
	for _, name := range names {
		p.Cols = append(p.Cols, summarize(df.Col(name), opt))
	}
	if opt.SampleRows > 0 && df.Ncol() > 0 {
		p.Head = Head(df, opt.SampleRows)
		p.Tail = Tail(df, opt.SampleRows)
	}
	return p
}

// MissingCounts returns the null count per column, in column order.
func (p *Profile) MissingCounts() []CategoryCount {
	out := make([]CategoryCount, len(p.Cols))
	for i, c := range p.Cols {
		out[i] = CategoryCount{Value: c.Name, Count: c.Missing}
	}
	return out
}

func summarize(s series.Series, opt ProfileOptions) ColumnSummary {
	cs := ColumnSummary{Name: s.Name}
	switch s.Type() {
	case series.Float, series.Int:
		var n int
		var mean, m2 float64
		lo, hi := math.Inf(1), math.Inf(-1)
		for _, x := range s.Float() {
			if math.IsNaN(x) {
				cs.Missing++
				continue
			}
			cs.NonNull++
			// Welford update
			n++
			if x < lo {
				lo = x
			}
			if x > hi {
				hi = x
			}
			delta := x - mean
			mean += delta / float64(n)
			m2 += delta * (x - mean)
		}
		if n == 0 {
			cs.Kind = "unknown"
			return cs
		}
		cs.Kind = "numeric"
		cs.Min, cs.Max, cs.Mean = lo, hi, mean
		if n > 1 {
			cs.Std = math.Sqrt(m2 / float64(n-1))
		}
		return cs
	}

	cats := map[string]int{}
	var dtCnt, txtCnt int
	for i := 0; i < s.Len(); i++ {
		e := s.Elem(i)
		if e.IsNA() {
			cs.Missing++
			continue
		}
		v := e.String()
		cs.NonNull++
		if _, ok := parseTimeMaybe(v); ok {
			dtCnt++
			continue
		}
		txtCnt++
		if len(cats) <= opt.MaxCategories && len(v) <= 64 {
			cats[v]++
		}
		if len(cs.ExampleTexts) < 3 {
			cs.ExampleTexts = append(cs.ExampleTexts, v)
		}
	}
	switch {
	case cs.NonNull == 0:
		cs.Kind = "unknown"
	case dtCnt >= txtCnt:
		cs.Kind = "datetime"
		cs.ExampleTexts = nil
	case len(cats) > 0 && len(cats) < cs.NonNull:
		cs.Kind = "categorical"
		tops := make([]CategoryCount, 0, len(cats))
		for k, v := range cats {
			tops = append(tops, CategoryCount{Value: k, Count: v})
		}
		sort.Slice(tops, func(i, j int) bool {
			if tops[i].Count == tops[j].Count {
				return tops[i].Value < tops[j].Value
			}
			return tops[i].Count > tops[j].Count
		})
		if len(tops) > 8 {
			tops = tops[:8]
		}
		cs.TopValues = tops
		cs.Unique = len(cats)
		cs.ExampleTexts = nil
	default:
		cs.Kind = "text"
		cs.Unique = len(cats)
	}
	return cs
}

func parseTimeMaybe(s string) (time.Time, bool) {
	layouts := []string{
		time.RFC3339, "2006-01-02", "2006/01/02", "02/01/2006", "01/02/2006",
		"2006-01-02 15:04", "2006-01-02 15:04:05", "2006-01-02T15:04:05", "1/2/2006 15:04", "1/2/06 15:04", "1/2/2006 15:04:05",
	}
	for _, l := range layouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Markdown renders the profile as the dataset overview.
func (p *Profile) Markdown() string {
	var b strings.Builder
	b.WriteString("[DATASET SUMMARY]\n")
	if p.Date != "" {
		b.WriteString(fmt.Sprintf("Date: %s\n", p.Date))
	}
	if p.Source != "" {
		b.WriteString(fmt.Sprintf("Source: %s\n", p.Source))
	}
	b.WriteString(fmt.Sprintf("Rows: %s\n", formatCount(p.Rows)))
	b.WriteString(fmt.Sprintf("Columns: %d\n", len(p.Cols)))

	if p.Index != nil {
		b.WriteString("\n[COLUMN INDEX]\n")
		for _, k := range report.Keys {
			name, ok := p.Index[k]
			if !ok {
				name = "(not published)"
			}
			b.WriteString(fmt.Sprintf("- %s: %s\n", k, name))
		}
	}

	b.WriteString("\n[SCHEMA]\n")
	for _, c := range p.Cols {
		total := c.NonNull + c.Missing
		missPct := 0.0
		if total > 0 {
			missPct = float64(c.Missing) * 100.0 / float64(total)
		}
		b.WriteString(fmt.Sprintf("- %s: %s (non-null %d, missing %d = %.1f%%)", safeName(c.Name), c.Kind, c.NonNull, c.Missing, missPct))
		switch c.Kind {
		case "numeric":
			b.WriteString(fmt.Sprintf("; min %.4g, max %.4g, mean %.4g, std %.4g", c.Min, c.Max, c.Mean, c.Std))
		case "categorical":
			if len(c.TopValues) > 0 {
				b.WriteString("; top: ")
				for i, kv := range c.TopValues {
					if i > 0 {
						b.WriteString(", ")
					}
					b.WriteString(fmt.Sprintf("%s(%d)", safeVal(kv.Value), kv.Count))
				}
				if c.Unique > len(c.TopValues) {
					b.WriteString(fmt.Sprintf("; unique=%d", c.Unique))
				}
			}
		case "text":
			if len(c.ExampleTexts) > 0 {
				b.WriteString("; e.g., ")
				for i, ex := range c.ExampleTexts {
					if i > 0 {
						b.WriteString(" | ")
					}
					b.WriteString(safeVal(ex))
				}
			}
		}
		b.WriteString("\n")
	}
	if p.Head.Ncol() > 0 {
		b.WriteString(fmt.Sprintf("\n[FIRST %d ROWS]\n", p.Head.Nrow()))
		b.WriteString(FrameMarkdown(p.Head, 0))
	}
	if p.Tail.Ncol() > 0 {
		b.WriteString(fmt.Sprintf("\n[LAST %d ROWS]\n", p.Tail.Nrow()))
		b.WriteString(FrameMarkdown(p.Tail, 0))
	}
	if len(p.Warnings) > 0 {
		b.WriteString("\n[NOTES]\n")
		for _, w := range p.Warnings {
			b.WriteString("- ")
			b.WriteString(w)
			b.WriteString("\n")
		}
	}
	return b.String()
}

func safeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(unnamed)"
	}
	return s
}
func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }

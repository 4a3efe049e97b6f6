package analysis

import (
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

func formatCount(n int) string { return printer.Sprintf("%d", n) }

// FormatNumber renders v with thousands separators; whole numbers drop the fraction.
func FormatNumber(v float64) string {
	switch {
	case math.IsNaN(v):
		return ""
	case v == math.Trunc(v) && math.Abs(v) < 1e15:
		return printer.Sprintf("%d", int64(v))
	default:
		return printer.Sprintf("%.2f", v)
	}
}

// Markdown renders the ranking as a markdown table.
func (r *Ranking) Markdown() string {
	head := append(append([]string(nil), r.KeyNames...), r.MetricNames...)
	rows := make([][]string, len(r.Rows))
	for i, row := range r.Rows {
		cells := make([]string, 0, len(head))
		for _, k := range row.Keys {
			if k == "" {
				k = "(missing)"
			}
			cells = append(cells, k)
		}
		for _, v := range row.Values {
			cells = append(cells, FormatNumber(v))
		}
		rows[i] = cells
	}
	return markdownTable(head, rows)
}

// Records returns one map per row keyed by column name, for JSON output.
func (r *Ranking) Records() []map[string]any {
	out := make([]map[string]any, len(r.Rows))
	for i, row := range r.Rows {
		m := make(map[string]any, len(r.KeyNames)+len(r.MetricNames))
		for j, name := range r.KeyNames {
			m[name] = row.Keys[j]
		}
		for j, name := range r.MetricNames {
			m[name] = row.Values[j]
		}
		out[i] = m
	}
	return out
}

// FrameMarkdown renders df as a markdown table. maxRows <= 0 renders every row.
func FrameMarkdown(df dataframe.DataFrame, maxRows int) string {
	n := df.Nrow()
	if maxRows > 0 && n > maxRows {
		n = maxRows
	}
	names := df.Names()
	rows := make([][]string, n)
	for i := range rows {
		rows[i] = make([]string, len(names))
	}
	for j, name := range names {
		col := df.Col(name)
		for i := 0; i < n; i++ {
			e := col.Elem(i)
			if e.IsNA() {
				continue
			}
			rows[i][j] = cellString(e)
		}
	}
	return markdownTable(names, rows)
}

// FrameRecords returns the rows of df as maps with nulls as nil.
func FrameRecords(df dataframe.DataFrame) []map[string]any {
	names := df.Names()
	out := make([]map[string]any, df.Nrow())
	for i := range out {
		out[i] = make(map[string]any, len(names))
	}
	for _, name := range names {
		col := df.Col(name)
		for i := range out {
			e := col.Elem(i)
			if e.IsNA() {
				out[i][name] = nil
				continue
			}
			out[i][name] = e.Val()
		}
	}
	return out
}

// cellString renders floats in their shortest form instead of gota's %f.
func cellString(e series.Element) string {
	if e.Type() == series.Float {
		return strconv.FormatFloat(e.Float(), 'f', -1, 64)
	}
	return e.String()
}

// truncate shortens s to at most n runes, marking the cut with "...".
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-3]) + "..."
}

func markdownTable(head []string, rows [][]string) string {
	var b strings.Builder
	b.WriteString("| ")
	for i, h := range head {
		if i > 0 {
			b.WriteString(" | ")
		}
		b.WriteString(safeName(h))
	}
	b.WriteString(" |\n| ")
	for i := range head {
		if i > 0 {
			b.WriteString(" | ")
		}
		b.WriteString("---")
	}
	b.WriteString(" |\n")
	for _, row := range rows {
		b.WriteString("| ")
		for i := range head {
			if i > 0 {
				b.WriteString(" | ")
			}
			val := ""
			if i < len(row) {
				val = row[i]
			}
			val = truncate(val, 80)
			b.WriteString(safeVal(val))
		}
		b.WriteString(" |\n")
	}
	return b.String()
}

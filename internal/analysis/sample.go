package analysis

import (
	"math/rand"
	"sort"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/spf13/cast"
)

// DefaultDropPositions are the column positions removed from samples when
// the user input holds no usable index.
var DefaultDropPositions = []int{0, 1, 5, 6, 11}

// Sample draws min(n, rows) rows uniformly without replacement. The same
// seed and input always yield the same rows in the same order.
func Sample(df dataframe.DataFrame, n int, seed int64) dataframe.DataFrame {
	m := df.Nrow()
	if n > m {
		n = m
	}
	if n <= 0 {
		return empty(df)
	}
	rng := rand.New(rand.NewSource(seed))
	idx := rng.Perm(m)[:n]
	return df.Subset(idx)
}

// Head returns the first n rows.
func Head(df dataframe.DataFrame, n int) dataframe.DataFrame {
	m := df.Nrow()
	if n >= m {
		return df.Copy()
	}
	if n <= 0 {
		return empty(df)
	}
	return df.Subset(seq(0, n))
}

// Tail returns the last n rows.
func Tail(df dataframe.DataFrame, n int) dataframe.DataFrame {
	m := df.Nrow()
	if n >= m {
		return df.Copy()
	}
	if n <= 0 {
		return empty(df)
	}
	return df.Subset(seq(m-n, m))
}

// DropPositions drops the columns at the given positions of df itself.
func DropPositions(df dataframe.DataFrame, positions []int) dataframe.DataFrame {
	return DropColumns(df, positions, df.Names())
}

// DropColumns drops the columns named at the given positions of reference.
// Positions outside reference and names df no longer has are ignored.
func DropColumns(df dataframe.DataFrame, positions []int, reference []string) dataframe.DataFrame {
	present := map[string]bool{}
	for _, n := range df.Names() {
		present[n] = true
	}
	var names []string
	seen := map[string]bool{}
	for _, p := range positions {
		if p < 0 || p >= len(reference) {
			continue
		}
		name := reference[p]
		if !present[name] || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	if len(names) == 0 {
		return df.Copy()
	}
	if len(names) == len(present) {
		return dataframe.New()
	}
	return df.Drop(names)
}

// ParseIndices reads a comma-separated list of column positions.
// Tokens that are not plain non-negative integers are skipped. Blank input
// selects nothing; input with tokens but no valid one falls back to defaults.
func ParseIndices(text string, defaults []int) []int {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	set := map[int]struct{}{}
	for _, tok := range strings.Split(text, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" || strings.Trim(tok, "0123456789") != "" {
			continue
		}
		// leading zeros would otherwise be read as octal
		tok = strings.TrimLeft(tok, "0")
		if tok == "" {
			tok = "0"
		}
		n, err := cast.ToIntE(tok)
		if err != nil {
			continue
		}
		set[n] = struct{}{}
	}
	if len(set) == 0 {
		out := append([]int(nil), defaults...)
		sort.Ints(out)
		return out
	}
	out := make([]int, 0, len(set))
	for n := range set {
		out = append(out, n)
	}
	sort.Ints(out)
	return out
}

func seq(from, to int) []int {
	out := make([]int, 0, to-from)
	for i := from; i < to; i++ {
		out = append(out, i)
	}
	return out
}

// empty keeps the columns of df with no rows.
func empty(df dataframe.DataFrame) dataframe.DataFrame {
	names, types := df.Names(), df.Types()
	cols := make([]series.Series, len(names))
	for i := range names {
		cols[i] = series.New([]string{}, types[i], names[i])
	}
	return dataframe.New(cols...)
}

package analysis

import (
	"testing"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func frame(rows int) dataframe.DataFrame {
	ids := make([]int, rows)
	names := make([]string, rows)
	for i := range ids {
		ids[i] = i
		names[i] = string(rune('a' + i%26))
	}
	return dataframe.New(
		series.New(ids, series.Int, "id"),
		series.New(names, series.String, "name"),
		series.New(ids, series.Int, "x"),
		series.New(ids, series.Int, "y"),
	)
}

func TestSampleDeterministic(t *testing.T) {
	df := frame(100)
	a := Sample(df, 10, 42)
	b := Sample(df, 10, 42)
	require.Equal(t, 10, a.Nrow())
	assert.Equal(t, a.Col("id").Records(), b.Col("id").Records())

	seen := map[int]bool{}
	ids, err := a.Col("id").Int()
	require.NoError(t, err)
	for _, id := range ids {
		assert.False(t, seen[id], "sample must not repeat rows")
		seen[id] = true
	}
}

func TestSampleBounds(t *testing.T) {
	df := frame(5)
	assert.Equal(t, 5, Sample(df, 50, 1).Nrow())
	empty := Sample(df, 0, 1)
	assert.Equal(t, 0, empty.Nrow())
	assert.Equal(t, df.Names(), empty.Names())
}

func TestHeadTail(t *testing.T) {
	df := frame(30)
	h := Head(df, 3)
	ids, _ := h.Col("id").Int()
	assert.Equal(t, []int{0, 1, 2}, ids)
	tl := Tail(df, 2)
	ids, _ = tl.Col("id").Int()
	assert.Equal(t, []int{28, 29}, ids)
	assert.Equal(t, 30, Head(df, 100).Nrow())
}

func TestDropPositionsIgnoresOutOfRange(t *testing.T) {
	df := frame(3)
	out := DropPositions(df, DefaultDropPositions)
	// only 0 and 1 exist among the defaults
	assert.Equal(t, []string{"x", "y"}, out.Names())
	assert.Equal(t, 3, out.Nrow())

	assert.Equal(t, df.Names(), DropPositions(df, nil).Names())
	assert.Equal(t, 0, DropPositions(df, []int{0, 1, 2, 3}).Ncol())
}

func TestDropColumnsAgainstReference(t *testing.T) {
	df := frame(3).Drop([]string{"name"})
	ref := []string{"id", "name", "x", "y"}
	out := DropColumns(df, []int{1, 2}, ref)
	assert.Equal(t, []string{"id", "y"}, out.Names())
}

func TestParseIndices(t *testing.T) {
	defaults := []int{11, 0, 5}
	tests := []struct {
		in   string
		want []int
	}{
		{"", nil},
		{"   ", nil},
		{"3, 1,1", []int{1, 3}},
		{"2,x,-1,4.5,07", []int{2, 7}},
		{"abc, -2", []int{0, 5, 11}},
		{"0", []int{0}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseIndices(tt.in, defaults), tt.in)
	}
	assert.Equal(t, []int{11, 0, 5}, defaults, "defaults must not be reordered in place")
}

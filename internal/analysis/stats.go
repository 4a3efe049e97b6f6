package analysis

import (
	"errors"
	"math"
	"sort"
)

// ErrNoValues is returned by the summaries when every value is null.
var ErrNoValues = errors.New("no values")

// FiveNumber is the box plot summary of a distribution. Outliers lie beyond
// 1.5 IQR from the quartiles; the whiskers end at the furthest inlier.
type FiveNumber struct {
	Min, Q1, Median, Q3, Max float64
	LowWhisker, HighWhisker  float64
	Outliers                 []float64
	N                        int
}

// IQR is the interquartile range.
func (f FiveNumber) IQR() float64 { return f.Q3 - f.Q1 }

// Summarize computes the five number summary of the non-NaN values.
func Summarize(vals []float64) (FiveNumber, error) {
	cp := finite(vals)
	if len(cp) == 0 {
		return FiveNumber{}, ErrNoValues
	}
	sort.Float64s(cp)
	f := FiveNumber{
		Min:    cp[0],
		Q1:     quantile(cp, 0.25),
		Median: quantile(cp, 0.5),
		Q3:     quantile(cp, 0.75),
		Max:    cp[len(cp)-1],
		N:      len(cp),
	}
	lo, hi := f.Q1-1.5*f.IQR(), f.Q3+1.5*f.IQR()
	f.LowWhisker, f.HighWhisker = f.Max, f.Min
	for _, v := range cp {
		if v < lo || v > hi {
			f.Outliers = append(f.Outliers, v)
			continue
		}
		f.LowWhisker = math.Min(f.LowWhisker, v)
		f.HighWhisker = math.Max(f.HighWhisker, v)
	}
	return f, nil
}

// Bin is one histogram bucket, [Lo, Hi) except the last which is closed.
type Bin struct {
	Lo, Hi float64
	Count  int
}

// Bins buckets the non-NaN values into n equal-width bins spanning their range.
func Bins(vals []float64, n int) ([]Bin, error) {
	if n <= 0 {
		n = 1
	}
	cp := finite(vals)
	if len(cp) == 0 {
		return nil, ErrNoValues
	}
	lo, hi := cp[0], cp[0]
	for _, v := range cp {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if lo == hi {
		return []Bin{{Lo: lo, Hi: hi, Count: len(cp)}}, nil
	}
	width := (hi - lo) / float64(n)
	out := make([]Bin, n)
	for i := range out {
		out[i].Lo = lo + float64(i)*width
		out[i].Hi = lo + float64(i+1)*width
	}
	out[n-1].Hi = hi
	for _, v := range cp {
		i := int((v - lo) / width)
		if i >= n {
			i = n - 1
		}
		out[i].Count++
	}
	return out, nil
}

func finite(vals []float64) []float64 {
	out := make([]float64, 0, len(vals))
	for _, v := range vals {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			out = append(out, v)
		}
	}
	return out
}

func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

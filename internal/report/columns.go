package report

import (
	"fmt"
	"strings"
)

// Key is a semantic field of a daily report, independent of how the
// published header happens to be spelled on a given date.
type Key string

const (
	Country   Key = "country"
	Province  Key = "province"
	County    Key = "county"
	FIPS      Key = "fips"
	Confirmed Key = "confirmed"
	Deaths    Key = "deaths"
	Recovered Key = "recovered"
	Active    Key = "active"
)

// Keys lists every semantic key in display order.
var Keys = []Key{Country, Province, County, FIPS, Confirmed, Deaths, Recovered, Active}

// MetricKeys are the cumulative case counters, in ranking priority.
var MetricKeys = []Key{Confirmed, Deaths, Recovered, Active}

// headerSpellings is the closed set of published header names accepted per key.
// Matching is case-insensitive and exact. The slash spellings come from the
// earliest daily reports (before 2020-03-22).
var headerSpellings = map[Key][]string{
	Country:   {"Country_Region", "Country/Region"},
	Province:  {"Province_State", "Province/State"},
	County:    {"Admin2"},
	FIPS:      {"FIPS"},
	Confirmed: {"Confirmed"},
	Deaths:    {"Deaths"},
	Recovered: {"Recovered"},
	Active:    {"Active"},
}

// ParseKey maps a user supplied name ("deaths", "Deaths") onto a Key.
func ParseKey(s string) (Key, bool) {
	k := Key(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := headerSpellings[k]; ok {
		return k, true
	}
	return "", false
}

// ColumnIndex maps semantic keys to the header actually present in a
// snapshot. It is built once and read-only afterwards.
type ColumnIndex struct {
	cols map[Key]string
}

// ResolveColumns builds the index for the given header row.
func ResolveColumns(header []string) ColumnIndex {
	byLower := make(map[string]string, len(header))
	for _, h := range header {
		l := strings.ToLower(strings.TrimSpace(h))
		if _, dup := byLower[l]; !dup {
			byLower[l] = h
		}
	}
	idx := ColumnIndex{cols: make(map[Key]string, len(Keys))}
	for _, k := range Keys {
		for _, spelling := range headerSpellings[k] {
			if actual, ok := byLower[strings.ToLower(spelling)]; ok {
				idx.cols[k] = actual
				break
			}
		}
	}
	return idx
}

// Lookup returns the header for k, if the snapshot publishes it.
func (c ColumnIndex) Lookup(k Key) (string, bool) {
	name, ok := c.cols[k]
	return name, ok
}

// Has reports whether k resolved to a header.
func (c ColumnIndex) Has(k Key) bool {
	_, ok := c.cols[k]
	return ok
}

// Require is Lookup for views that cannot work without the column.
func (c ColumnIndex) Require(k Key) (string, error) {
	if name, ok := c.cols[k]; ok {
		return name, nil
	}
	return "", &MissingColumnError{Key: k}
}

// Metrics returns the present metric keys among want, keeping the order of want.
func (c ColumnIndex) Metrics(want ...Key) []Key {
	if len(want) == 0 {
		want = MetricKeys
	}
	var out []Key
	for _, k := range want {
		if c.Has(k) {
			out = append(out, k)
		}
	}
	return out
}

// Map returns a copy of the resolved entries.
func (c ColumnIndex) Map() map[Key]string {
	out := make(map[Key]string, len(c.cols))
	for k, v := range c.cols {
		out[k] = v
	}
	return out
}

func (c ColumnIndex) String() string {
	var parts []string
	for _, k := range Keys {
		if name, ok := c.cols[k]; ok {
			parts = append(parts, fmt.Sprintf("%s=%s", k, name))
		} else {
			parts = append(parts, fmt.Sprintf("%s=-", k))
		}
	}
	return strings.Join(parts, " ")
}

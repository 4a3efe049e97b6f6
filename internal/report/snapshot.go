package report

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// DateLayout is the cache key layout and the accepted user date format.
const DateLayout = "2006-01-02"

// DateKey renders the cache key for a date.
func DateKey(date time.Time) string { return date.Format(DateLayout) }

// ParseDate parses a YYYY-MM-DD date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD): %w", s, err)
	}
	return t, nil
}

// Snapshot is the parsed daily report for one date. It is immutable once
// built; accessors hand out copies.
type Snapshot struct {
	Date      time.Time
	Key       string
	Location  string
	FetchID   string
	FetchedAt time.Time

	header  []string
	frame   dataframe.DataFrame
	columns ColumnIndex
}

// Frame returns a copy of the table.
func (s *Snapshot) Frame() dataframe.DataFrame { return s.frame.Copy() }

// Columns returns the semantic column index.
func (s *Snapshot) Columns() ColumnIndex { return s.columns }

// Header returns the published header, in order.
func (s *Snapshot) Header() []string {
	out := make([]string, len(s.header))
	copy(out, s.header)
	return out
}

// Rows returns the number of data rows.
func (s *Snapshot) Rows() int { return s.frame.Nrow() }

// nullValues are the cell spellings treated as missing.
var nullValues = []string{"", "NA", "NaN", "<nil>"}

// Parse builds a Snapshot from raw daily report content without a source.
func Parse(date time.Time, location string, content []byte) (*Snapshot, error) {
	return newSnapshot(date, location, content)
}

// newSnapshot parses content into a Snapshot. It never returns a partially
// built snapshot.
func newSnapshot(date time.Time, location string, content []byte) (*Snapshot, error) {
	key := DateKey(date)
	records, err := readRecords(content)
	if err != nil {
		return nil, &MalformedDataError{Date: key, Location: location, Err: err}
	}
	header := records[0]
	cols := ResolveColumns(header)
	if !cols.Has(Country) {
		return nil, &CountryColumnMissingError{Date: key, Location: location, Header: header}
	}

	types := map[string]series.Type{}
	for _, k := range []Key{Country, Province, County, FIPS} {
		if name, ok := cols.Lookup(k); ok {
			types[name] = series.String
		}
	}
	for _, k := range MetricKeys {
		if name, ok := cols.Lookup(k); ok {
			types[name] = series.Float
		}
	}
	df := dataframe.LoadRecords(records,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(true),
		dataframe.DefaultType(series.String),
		dataframe.NaNValues(nullValues),
		dataframe.WithTypes(types),
	)
	if df.Err != nil {
		return nil, &MalformedDataError{Date: key, Location: location, Err: fmt.Errorf("build frame: %w", df.Err)}
	}
	return &Snapshot{
		Date:     date,
		Key:      key,
		Location: location,
		header:   header,
		frame:    df,
		columns:  cols,
	}, nil
}

// readRecords splits CSV content into a header and rectangular rows.
// Short rows are padded with empty cells; rows wider than the header are an error.
func readRecords(content []byte) ([][]string, error) {
	content = bytes.TrimPrefix(content, []byte("\xef\xbb\xbf"))
	if len(bytes.TrimSpace(content)) == 0 {
		return nil, errors.New("empty content")
	}
	r := csv.NewReader(bytes.NewReader(content))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	header = uniqueHeader(header)
	ncol := len(header)
	if ncol == 0 || (ncol == 1 && header[0] == "Unnamed: 0") {
		return nil, errors.New("empty header")
	}
	records := [][]string{header}
	for line := 2; ; line++ {
		rec, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("read row %d: %w", line, err)
		}
		if len(rec) > ncol {
			return nil, fmt.Errorf("row %d has %d fields, header has %d", line, len(rec), ncol)
		}
		row := make([]string, ncol)
		copy(row, rec)
		for i := range row {
			row[i] = strings.TrimSpace(row[i])
		}
		records = append(records, row)
	}
	if len(records) == 1 {
		return nil, errors.New("no data rows")
	}
	return records, nil
}

// uniqueHeader trims names, names blank columns and suffixes duplicates so
// every column is addressable by name.
func uniqueHeader(in []string) []string {
	out := make([]string, len(in))
	seen := make(map[string]int, len(in))
	for i, h := range in {
		name := strings.TrimSpace(h)
		if name == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		if n, dup := seen[name]; dup {
			base := name
			for {
				name = fmt.Sprintf("%s.%d", base, n)
				n++
				if _, taken := seen[name]; !taken {
					break
				}
			}
			seen[base] = n
		}
		seen[name] = 1
		out[i] = name
	}
	return out
}

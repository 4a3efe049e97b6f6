package report

import (
	"errors"
	"fmt"
)

// DataUnavailableError indicates there is no published report for the date
// (future date, gap in the series, unreachable source, 404).
type DataUnavailableError struct {
	Date     string
	Location string
	Status   int
	Err      error
}

func (e *DataUnavailableError) Error() string {
	switch {
	case e.Status != 0:
		return fmt.Sprintf("data unavailable for %s: %s returned status %d", e.Date, e.Location, e.Status)
	case e.Err != nil:
		return fmt.Sprintf("data unavailable for %s: %v", e.Date, e.Err)
	}
	return fmt.Sprintf("data unavailable for %s", e.Date)
}

func (e *DataUnavailableError) Unwrap() error { return e.Err }

// MalformedDataError indicates content was retrieved but is not a usable table.
type MalformedDataError struct {
	Date     string
	Location string
	Err      error
}

func (e *MalformedDataError) Error() string {
	return fmt.Sprintf("malformed data for %s (%s): %v", e.Date, e.Location, e.Err)
}

func (e *MalformedDataError) Unwrap() error { return e.Err }

// CountryColumnMissingError indicates the table parsed but has no
// recognizable country/region column.
type CountryColumnMissingError struct {
	Date     string
	Location string
	Header   []string
}

func (e *CountryColumnMissingError) Error() string {
	return fmt.Sprintf("country column missing for %s (%s): header has %d columns, none is Country_Region", e.Date, e.Location, len(e.Header))
}

// MissingColumnError is returned by views that need an optional semantic
// column the snapshot does not publish.
type MissingColumnError struct {
	Key Key
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("column %q is not published for this date", string(e.Key))
}

// Failure kinds reported to users.
const (
	KindDataUnavailable      = "data_unavailable"
	KindMalformedData        = "malformed_data"
	KindCountryColumnMissing = "country_column_missing"
)

// Kind classifies a load error; empty for anything else.
func Kind(err error) string {
	var du *DataUnavailableError
	var md *MalformedDataError
	var cm *CountryColumnMissingError
	switch {
	case errors.As(err, &du):
		return KindDataUnavailable
	case errors.As(err, &md):
		return KindMalformedData
	case errors.As(err, &cm):
		return KindCountryColumnMissing
	}
	return ""
}

// Hint returns short advice for a load error.
func Hint(err error) string {
	switch Kind(err) {
	case KindDataUnavailable:
		return "no report was published for this date; pick another date"
	case KindMalformedData:
		return "the source returned content that is not a CSV table; retry later or pick another date"
	case KindCountryColumnMissing:
		return "the report for this date has no Country_Region column and cannot be aggregated"
	}
	return ""
}

// Package export writes snapshot tables to spreadsheets.
package export

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/xuri/excelize/v2"
)

const (
	// FileName is the attachment name of a sample export.
	FileName = "muestra.xlsx"
	// MIMEType is the content type of an XLSX workbook.
	MIMEType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	// DefaultSheet is the sheet a sample is written to.
	DefaultSheet = "hoja1"
)

// WriteXLSX writes df to a workbook with a single sheet: the header row then
// every data row. Numbers stay numeric and nulls become empty cells.
func WriteXLSX(df dataframe.DataFrame, sheet string) ([]byte, error) {
	if sheet == "" {
		sheet = DefaultSheet
	}
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, fmt.Errorf("name sheet: %w", err)
	}
	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return nil, fmt.Errorf("open sheet: %w", err)
	}

	names := df.Names()
	header := make([]interface{}, len(names))
	for i, n := range names {
		header[i] = n
	}
	if err := sw.SetRow("A1", header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	cols := make([]series.Series, len(names))
	for i, n := range names {
		cols[i] = df.Col(n)
	}
	for r := 0; r < df.Nrow(); r++ {
		row := make([]interface{}, len(cols))
		for c, s := range cols {
			row[c] = cellValue(s, r)
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return nil, err
		}
		if err := sw.SetRow(cell, row); err != nil {
			return nil, fmt.Errorf("write row %d: %w", r+1, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return nil, fmt.Errorf("flush sheet: %w", err)
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("encode workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func cellValue(s series.Series, i int) interface{} {
	e := s.Elem(i)
	if e.IsNA() {
		return nil
	}
	switch s.Type() {
	case series.Float:
		v := e.Float()
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil
		}
		return v
	case series.Int:
		v, err := e.Int()
		if err != nil {
			return nil
		}
		return v
	case series.Bool:
		v, err := e.Bool()
		if err != nil {
			return nil
		}
		return v
	}
	return e.String()
}

// ReadXLSX returns the header and data rows of sheet. Short rows are padded
// to the header width.
func ReadXLSX(data []byte, sheet string) ([]string, [][]string, error) {
	if sheet == "" {
		sheet = DefaultSheet
	}
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()
	// GetRows trims trailing rows without cells, which is how an all-null
	// row is stored, so walk every row element instead.
	it, err := f.Rows(sheet)
	if err != nil {
		return nil, nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	var rows [][]string
	for it.Next() {
		cells, err := it.Columns()
		if err != nil {
			_ = it.Close()
			return nil, nil, fmt.Errorf("read sheet %q: %w", sheet, err)
		}
		rows = append(rows, cells)
	}
	if err := it.Error(); err != nil {
		_ = it.Close()
		return nil, nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if err := it.Close(); err != nil {
		return nil, nil, fmt.Errorf("close sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, nil, errors.New("sheet is empty")
	}
	header := rows[0]
	body := make([][]string, 0, len(rows)-1)
	for _, r := range rows[1:] {
		row := make([]string, len(header))
		copy(row, r)
		body = append(body, row)
	}
	return header, body, nil
}

// ParseNumber reads a numeric cell back; ok is false for text or empty cells.
func ParseNumber(cell string) (float64, bool) {
	v, err := strconv.ParseFloat(cell, 64)
	return v, err == nil
}

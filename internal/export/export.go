// Package export writes a dashboard's visible list to a spreadsheet, JSON or
// CSV file.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/blackwell-systems/bookdesk/internal/entity"
)

// SerialHeader heads the leading row-number column of spreadsheet exports.
const SerialHeader = "SRno"

// Format is an output file format.
type Format string

const (
	XLSXFormat Format = "xlsx"
	JSONFormat Format = "json"
	CSVFormat  Format = "csv"
)

// ParseFormat accepts a format name, case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case XLSXFormat, JSONFormat, CSVFormat:
		return f, nil
	}
	return "", fmt.Errorf("unknown export format %q (want xlsx, json or csv)", s)
}

// Column is one exported or displayed field.
type Column struct {
	Header string
	Path   string // dotted record path
	Width  int    // preferred display width, 0 for automatic
	// Value overrides Path when set.
	Value func(entity.Record) string
}

// Cell renders the column for one record.
func (c Column) Cell(r entity.Record) string {
	if c.Value != nil {
		return c.Value(r)
	}
	return r.String(c.Path)
}

// Filename returns "<title>_<YYYY-MM-DD>.<ext>" for the local date of now.
func Filename(title string, f Format, now time.Time) string {
	title = strings.Join(strings.Fields(title), "_")
	return fmt.Sprintf("%s_%s.%s", title, now.Format("2006-01-02"), f)
}

// Write dispatches to the writer for f. sheet names the XLSX worksheet.
func Write(w io.Writer, f Format, sheet string, cols []Column, rows []entity.Record) error {
	switch f {
	case XLSXFormat:
		return XLSX(w, sheet, cols, rows)
	case JSONFormat:
		return JSON(w, rows)
	case CSVFormat:
		return CSV(w, cols, rows)
	}
	return fmt.Errorf("unknown export format %q", f)
}

// maxSheetName is the worksheet name limit enforced by spreadsheet readers.
const maxSheetName = 31

// XLSX writes one worksheet with a bold header row and a leading SRno
// column numbering rows from 1.
func XLSX(w io.Writer, sheet string, cols []Column, rows []entity.Record) error {
	if sheet == "" {
		sheet = "Sheet1"
	}
	if len(sheet) > maxSheetName {
		sheet = sheet[:maxSheetName]
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}

	header := make([]any, 0, len(cols)+1)
	header = append(header, SerialHeader)
	for _, c := range cols {
		header = append(header, c.Header)
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("creating header style: %w", err)
	}
	if err := f.SetRowStyle(sheet, 1, 1, bold); err != nil {
		return fmt.Errorf("styling header: %w", err)
	}

	for i, r := range rows {
		row := make([]any, 0, len(cols)+1)
		row = append(row, i+1)
		for _, c := range cols {
			row = append(row, c.Cell(r))
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("writing row %d: %w", i+1, err)
		}
	}

	for i, c := range cols {
		if c.Width <= 0 {
			continue
		}
		name, err := excelize.ColumnNumberToName(i + 2)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sheet, name, name, float64(c.Width)); err != nil {
			return fmt.Errorf("sizing column %s: %w", name, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

// JSON writes the full records, indented.
func JSON(w io.Writer, rows []entity.Record) error {
	if rows == nil {
		rows = []entity.Record{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}

// CSV writes a header row and one line per record.
func CSV(w io.Writer, cols []Column, rows []entity.Record) error {
	cw := csv.NewWriter(w)
	header := make([]string, len(cols))
	for i, c := range cols {
		header[i] = c.Header
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, r := range rows {
		line := make([]string, len(cols))
		for i, c := range cols {
			line[i] = c.Cell(r)
		}
		if err := cw.Write(line); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

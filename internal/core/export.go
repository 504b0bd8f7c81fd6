package core

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ExportFormat selects the encoding of an export.
type ExportFormat string

const (
	FormatCSV  ExportFormat = "csv"
	FormatXLSX ExportFormat = "xlsx"
)

// ParseExportFormat validates a format name; empty means CSV.
func ParseExportFormat(s string) (ExportFormat, error) {
	switch f := ExportFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatCSV, nil
	case FormatCSV, FormatXLSX:
		return f, nil
	}
	return "", fmt.Errorf("%w: unknown export format %q", ErrInvalidSelection, s)
}

// ContentType returns the MIME type of the format.
func (f ExportFormat) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// exportSheet is the sheet name of spreadsheet exports.
const exportSheet = "export"

// Projection resolves the export columns of a view: the requested columns,
// or the view's display columns when none are given.
func Projection(v *View, columns []string) ([]string, error) {
	if len(columns) == 0 {
		return v.DisplayColumns(), nil
	}
	out := make([]string, 0, len(columns))
	for _, c := range columns {
		col, ok := v.ResolveColumn(strings.TrimSpace(c))
		if !ok {
			return nil, &UnknownColumnError{Column: c}
		}
		out = append(out, col)
	}
	return out, nil
}

// ProjectRows returns the header and the cells of the chosen columns.
func ProjectRows(v *View, columns []string) ([]string, [][]string, error) {
	cols, err := Projection(v, columns)
	if err != nil {
		return nil, nil, err
	}
	rows := make([][]string, 0, v.Len())
	if v != nil {
		for _, r := range v.Records {
			row := make([]string, len(cols))
			for i, c := range cols {
				row[i] = r.Value(c)
			}
			rows = append(rows, row)
		}
	}
	return cols, rows, nil
}

// ExportProjection writes the chosen columns of a view, header first.
// Parsing a CSV export back yields the same rows in the same column order.
func ExportProjection(w io.Writer, v *View, columns []string, format ExportFormat) error {
	header, rows, err := ProjectRows(v, columns)
	if err != nil {
		return err
	}
	switch format {
	case FormatXLSX:
		return writeXLSX(w, header, rows)
	case FormatCSV, "":
		return writeCSV(w, header, rows)
	}
	return fmt.Errorf("%w: unknown export format %q", ErrInvalidSelection, format)
}

func writeCSV(w io.Writer, header []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("write rows: %w", err)
	}
	return nil
}

func writeXLSX(w io.Writer, header []string, rows [][]string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}

	headerStyleID, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#D9E1F2"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	writeRow := func(rowNum int, cells []string) error {
		cell, err := excelize.CoordinatesToCellName(1, rowNum)
		if err != nil {
			return err
		}
		values := make([]interface{}, len(cells))
		for i, c := range cells {
			values[i] = c
		}
		return f.SetSheetRow(exportSheet, cell, &values)
	}

	if err := writeRow(1, header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if len(header) > 0 {
		last, err := excelize.CoordinatesToCellName(len(header), 1)
		if err != nil {
			return fmt.Errorf("style header: %w", err)
		}
		if err := f.SetCellStyle(exportSheet, "A1", last, headerStyleID); err != nil {
			return fmt.Errorf("style header: %w", err)
		}
	}
	for i, row := range rows {
		if err := writeRow(i+2, row); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// Package ingest reads source files into core tables.
//
// Three formats are accepted, chosen by file extension:
//
//   - CSV (.csv, .txt): comma, semicolon or tab separated, lazy quotes
//   - XLSX (.xlsx, .xlsm): first sheet, or every sheet for sources whose
//     definition sets AllSheets
//   - JSON (.json): an array of flat objects
//
// Every cell is read as text. Header detection, alias resolution and cell
// cleaning follow the source definitions registered in package core.
package ingest

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/JonMunkholm/catalogrecon/internal/core"
)

var (
	ErrFileTooLarge       = errors.New("file too large")
	ErrEmptyFile          = errors.New("empty file")
	ErrUnsupportedFormat  = errors.New("unsupported file format")
	ErrInvalidSpreadsheet = errors.New("invalid spreadsheet")
	ErrInvalidJSON        = errors.New("invalid json")
	ErrInvalidCSV         = errors.New("invalid csv")
	ErrNoFile             = errors.New("no file provided")
)

// DefaultMaxFileSize caps a source file when no limit is configured.
const DefaultMaxFileSize int64 = 100 << 20

// maxHeaderSearchRows is how far down a sheet the header row is looked for.
const maxHeaderSearchRows = 10

// Format is a source file encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatJSON Format = "json"
)

// DetectFormat picks the format from a file name.
func DetectFormat(name string) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".txt":
		return FormatCSV, nil
	case ".xlsx", ".xlsm":
		return FormatXLSX, nil
	case ".json":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(name))
}

// Parse decodes a source file held in memory.
func Parse(kind core.SourceKind, name string, data []byte) (*core.Table, error) {
	def, ok := core.Definition(kind)
	if !ok {
		return nil, fmt.Errorf("%w: %q", core.ErrUnknownSource, kind)
	}
	format, err := DetectFormat(name)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyFile, name)
	}

	var t *core.Table
	switch format {
	case FormatCSV:
		t, err = parseCSV(def, name, data)
	case FormatXLSX:
		t, err = parseXLSX(def, name, data)
	case FormatJSON:
		t, err = parseJSON(def, name, data)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	if len(t.Header) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyFile, name)
	}
	return t, nil
}

// Read decodes a source file from r, failing once more than limit bytes
// are read. A limit <= 0 uses DefaultMaxFileSize.
func Read(kind core.SourceKind, name string, r io.Reader, limit int64) (*core.Table, error) {
	if limit <= 0 {
		limit = DefaultMaxFileSize
	}
	if _, err := DetectFormat(name); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(newLimitReader(r, limit))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return Parse(kind, name, data)
}

// tableFromRecords locates the header row and builds a table from the rows
// below it. The header is the first row, within the first few non-empty
// rows, that names every required field of the definition; failing that,
// the first non-empty row.
func tableFromRecords(def core.SourceDefinition, name string, records [][]string) *core.Table {
	first := -1
	header := -1
	required := requiredFields(def)
	seen := 0
	for i, row := range records {
		if isEmptyRow(row) {
			continue
		}
		if first < 0 {
			first = i
		}
		if len(required) > 0 && hasFields(def, row, required) {
			header = i
			break
		}
		seen++
		if seen >= maxHeaderSearchRows {
			break
		}
	}
	if header < 0 {
		header = first
	}
	if header < 0 {
		return core.NewTable(name, def.Kind, nil, nil)
	}
	return core.NewTable(name, def.Kind, records[header], records[header+1:])
}

func requiredFields(def core.SourceDefinition) []core.Field {
	var out []core.Field
	for _, f := range def.Fields {
		if f.Required {
			out = append(out, f.Name)
		}
	}
	return out
}

func hasFields(def core.SourceDefinition, row []string, fields []core.Field) bool {
	resolved := def.Resolve(core.MakeHeaderIndex(row))
	for _, f := range fields {
		if _, ok := resolved[f]; !ok {
			return false
		}
	}
	return true
}

func isEmptyRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

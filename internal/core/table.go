package core

import (
	"strconv"
	"strings"
)

// HeaderIndex maps column names (lowercase) to their position in a row.
type HeaderIndex map[string]int

// Table is a raw source as read from a file: a header and string cells.
// An empty cell is a null value. Tables are read-only once built.
type Table struct {
	Name   string
	Kind   SourceKind
	Header []string
	Rows   [][]string
}

// NewTable builds a table from a header and data rows.
// Header cells are cleaned and duplicate names get a numeric suffix
// ("color", "color_2"). Rows are padded or cut to the header width, cells are
// cleaned, and rows with no non-empty cell are dropped.
func NewTable(name string, kind SourceKind, header []string, rows [][]string) *Table {
	t := &Table{Name: name, Kind: kind, Header: uniqueHeader(header)}
	width := len(t.Header)
	t.Rows = make([][]string, 0, len(rows))
	for _, row := range rows {
		out := make([]string, width)
		empty := true
		for i := 0; i < width && i < len(row); i++ {
			out[i] = CleanCell(row[i])
			if out[i] != "" {
				empty = false
			}
		}
		if !empty {
			t.Rows = append(t.Rows, out)
		}
	}
	return t
}

// Index returns the header index of the table.
func (t *Table) Index() HeaderIndex {
	return MakeHeaderIndex(t.Header)
}

// Len returns the number of data rows, treating a nil table as empty.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// ConcatTables stacks tables vertically under the union of their headers.
// Column order follows first appearance; missing cells are empty.
func ConcatTables(name string, kind SourceKind, tables ...*Table) *Table {
	var header []string
	pos := make(map[string]int)
	for _, t := range tables {
		if t == nil {
			continue
		}
		for _, h := range t.Header {
			key := strings.ToLower(h)
			if _, ok := pos[key]; !ok {
				pos[key] = len(header)
				header = append(header, h)
			}
		}
	}

	var rows [][]string
	for _, t := range tables {
		if t == nil {
			continue
		}
		for _, row := range t.Rows {
			out := make([]string, len(header))
			for i, h := range t.Header {
				out[pos[strings.ToLower(h)]] = row[i]
			}
			rows = append(rows, out)
		}
	}
	return NewTable(name, kind, header, rows)
}

// uniqueHeader cleans header cells and disambiguates repeated names.
func uniqueHeader(header []string) []string {
	out := make([]string, len(header))
	seen := make(map[string]int, len(header))
	for i, h := range header {
		h = CleanCell(h)
		if h == "" {
			h = "column_" + strconv.Itoa(i+1)
		}
		key := strings.ToLower(h)
		seen[key]++
		if n := seen[key]; n > 1 {
			h = h + "_" + strconv.Itoa(n)
			seen[strings.ToLower(h)]++
		}
		out[i] = h
	}
	return out
}

// MakeHeaderIndex creates a HeaderIndex from a header row.
// Keys are lowercased for case-insensitive matching; the first occurrence wins.
func MakeHeaderIndex(header []string) HeaderIndex {
	idx := make(HeaderIndex, len(header))
	for i, h := range header {
		key := strings.ToLower(CleanCell(h))
		if _, ok := idx[key]; !ok {
			idx[key] = i
		}
	}
	return idx
}

// CleanCell removes common spreadsheet artifacts from a cell value:
// - Trims whitespace
// - Removes Excel formula prefix (="...")
// - Removes surrounding quotes
// - Maps the textual nulls pandas-style exports write ("nan", "None") to empty
func CleanCell(s string) string {
	s = strings.TrimSpace(s)

	// Remove leading '='
	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}

	// Remove any surrounding quotes
	s = strings.TrimSpace(strings.Trim(s, `"'`))

	switch s {
	case "nan", "NaN", "None", "null", "NULL":
		return ""
	}
	return s
}

package ingest

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/catalogrecon/internal/core"
)

// parseXLSX reads the first sheet of a workbook. For definitions with
// AllSheets set, every non-empty sheet is read and the sheets are stacked
// under the union of their headers.
func parseXLSX(def core.SourceDefinition, name string, data []byte) (*core.Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSpreadsheet, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook has no sheets", ErrInvalidSpreadsheet)
	}
	if !def.AllSheets {
		sheets = sheets[:1]
	}

	tables := make([]*core.Table, 0, len(sheets))
	for _, sheet := range sheets {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("%w: sheet %q: %v", ErrInvalidSpreadsheet, sheet, err)
		}
		t := tableFromRecords(def, name+"#"+sheet, rows)
		if len(t.Header) == 0 {
			continue
		}
		tables = append(tables, t)
	}

	switch len(tables) {
	case 0:
		return core.NewTable(name, def.Kind, nil, nil), nil
	case 1:
		t := tables[0]
		t.Name = name
		return t, nil
	}
	return core.ConcatTables(name, def.Kind, tables...), nil
}

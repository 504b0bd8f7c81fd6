package ingest

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"

	"github.com/JonMunkholm/catalogrecon/internal/core"
)

func parseCSV(def core.SourceDefinition, name string, data []byte) (*core.Table, error) {
	r := csv.NewReader(newTextReader(bytes.NewReader(data)))
	r.Comma = sniffDelimiter(data)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCSV, err)
	}
	return tableFromRecords(def, name, records), nil
}

// sniffDelimiter picks the separator of the first non-empty line: semicolon
// or tab when either outnumbers commas, comma otherwise.
func sniffDelimiter(data []byte) rune {
	sc := bufio.NewScanner(bytes.NewReader(bytes.TrimPrefix(data, bom)))
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		line := sc.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		commas := bytes.Count(line, []byte{','})
		semis := bytes.Count(line, []byte{';'})
		tabs := bytes.Count(line, []byte{'\t'})
		switch {
		case semis > commas && semis >= tabs:
			return ';'
		case tabs > commas && tabs > semis:
			return '\t'
		}
		return ','
	}
	return ','
}

package ingest

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/JonMunkholm/catalogrecon/internal/core"
)

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name    string
		want    Format
		wantErr bool
	}{
		{"prodotti.csv", FormatCSV, false},
		{"PRODOTTI.XLSX", FormatXLSX, false},
		{"macro.xlsm", FormatXLSX, false},
		{"codes.json", FormatJSON, false},
		{"export.txt", FormatCSV, false},
		{"old.xls", "", true},
		{"noext", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DetectFormat(tt.name)
			if (err != nil) != tt.wantErr {
				t.Fatalf("DetectFormat(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, ErrUnsupportedFormat) {
				t.Errorf("error = %v, want ErrUnsupportedFormat", err)
			}
			if got != tt.want {
				t.Errorf("DetectFormat(%q) = %q, want %q", tt.name, got, tt.want)
			}
		})
	}
}

func TestParse_CSV(t *testing.T) {
	tests := []struct {
		name       string
		data       string
		wantHeader []string
		wantRows   int
		firstRow   []string
	}{
		{
			name:       "simple",
			data:       "product_code,title\nA12,Filtro\nB7,Pastiglie\n",
			wantHeader: []string{"product_code", "title"},
			wantRows:   2,
			firstRow:   []string{"A12", "Filtro"},
		},
		{
			name:       "semicolon with decimal comma",
			data:       "codice;titolo;prezzo\nA12;Filtro;12,50\n",
			wantHeader: []string{"codice", "titolo", "prezzo"},
			wantRows:   1,
			firstRow:   []string{"A12", "Filtro", "12,50"},
		},
		{
			name:       "bom and blank lines",
			data:       "\xEF\xBB\xBFproduct_code,title\n\n,\nA12,Filtro\n",
			wantHeader: []string{"product_code", "title"},
			wantRows:   1,
			firstRow:   []string{"A12", "Filtro"},
		},
		{
			name:       "preamble rows before header",
			data:       "Export 2024\nGenerated by ERP\nsku,title\nA12,Filtro\n",
			wantHeader: []string{"sku", "title"},
			wantRows:   1,
			firstRow:   []string{"A12", "Filtro"},
		},
		{
			name:       "ragged rows padded",
			data:       "product_code,title,colore\nA12\nB7,Pastiglie,rosso,extra\n",
			wantHeader: []string{"product_code", "title", "colore"},
			wantRows:   2,
			firstRow:   []string{"A12", "", ""},
		},
		{
			name:       "lazy quotes",
			data:       "product_code,title\nA12,Filtro 3\" pollici\n",
			wantHeader: []string{"product_code", "title"},
			wantRows:   1,
			firstRow:   []string{"A12", `Filtro 3" pollici`},
		},
		{
			name:       "excel text formulas",
			data:       "product_code,title\n=\"00123\",nan\n",
			wantHeader: []string{"product_code", "title"},
			wantRows:   1,
			firstRow:   []string{"00123", ""},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl, err := Parse(core.SourcePrimary, "prodotti.csv", []byte(tt.data))
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if tbl.Kind != core.SourcePrimary || tbl.Name != "prodotti.csv" {
				t.Errorf("Kind, Name = %q, %q", tbl.Kind, tbl.Name)
			}
			if !equalStrings(tbl.Header, tt.wantHeader) {
				t.Errorf("Header = %q, want %q", tbl.Header, tt.wantHeader)
			}
			if tbl.Len() != tt.wantRows {
				t.Fatalf("Len() = %d, want %d", tbl.Len(), tt.wantRows)
			}
			if !equalStrings(tbl.Rows[0], tt.firstRow) {
				t.Errorf("Rows[0] = %q, want %q", tbl.Rows[0], tt.firstRow)
			}
		})
	}
}

func TestParse_CSVHeaderOnly(t *testing.T) {
	tbl, err := Parse(core.SourceB2B, "b2b.csv", []byte("sku,title\n"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if tbl.Len() != 0 || len(tbl.Header) != 2 {
		t.Errorf("table = %+v, want header only", tbl)
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		kind    core.SourceKind
		file    string
		data    string
		wantErr error
	}{
		{"empty data", core.SourcePrimary, "p.csv", "", ErrEmptyFile},
		{"only blank lines", core.SourcePrimary, "p.csv", "\n\n,,\n", ErrEmptyFile},
		{"unsupported format", core.SourcePrimary, "p.ods", "x", ErrUnsupportedFormat},
		{"unknown source", core.SourceKind("supplier"), "p.csv", "a\n1\n", core.ErrUnknownSource},
		{"not a workbook", core.SourcePrimary, "p.xlsx", "plain text", ErrInvalidSpreadsheet},
		{"json object", core.SourcePrimary, "p.json", `{"sku":"A1"}`, ErrInvalidJSON},
		{"json truncated", core.SourcePrimary, "p.json", `[{"sku":"A1"`, ErrInvalidJSON},
		{"json empty array", core.SourcePrimary, "p.json", `[]`, ErrEmptyFile},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.kind, tt.file, []byte(tt.data))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Parse() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestParse_JSON(t *testing.T) {
	data := `[
		{"sku": "A12", "brand_1": "Fiat, Lancia", "reference_1": ["Panda", "Ypsilon"], "qty": 5},
		{"sku": 7, "reference_1": null, "brand_1": "Ford", "brand_2": "BMW", "flag": true},
		{"sku": "C3", "brand_1": "", "meta": {"a": 1}}
	]`

	tbl, err := Parse(core.SourceCrossReference, "codes.json", []byte(data))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	wantHeader := []string{"sku", "brand_1", "reference_1", "qty", "brand_2", "flag", "meta"}
	if !equalStrings(tbl.Header, wantHeader) {
		t.Fatalf("Header = %q, want %q", tbl.Header, wantHeader)
	}
	want := [][]string{
		{"A12", "Fiat, Lancia", "Panda, Ypsilon", "5", "", "", ""},
		{"7", "Ford", "", "", "BMW", "true", ""},
		{"C3", "", "", "", "", "", `{"a": 1}`},
	}
	if tbl.Len() != len(want) {
		t.Fatalf("Len() = %d, want %d", tbl.Len(), len(want))
	}
	for i := range want {
		if !equalStrings(tbl.Rows[i], want[i]) {
			t.Errorf("Rows[%d] = %q, want %q", i, tbl.Rows[i], want[i])
		}
	}
}

func TestParse_JSONNumbersVerbatim(t *testing.T) {
	tbl, err := Parse(core.SourcePrimary, "p.json", []byte(`[{"product_code": 00012, "price": 1.50}]`))
	if err == nil {
		// leading zeros are not valid JSON numbers
		t.Fatalf("Parse() = %+v, want error", tbl)
	}

	tbl, err = Parse(core.SourcePrimary, "p.json", []byte(`[{"product_code": "00012", "price": 1.50}]`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if got := tbl.Rows[0]; got[0] != "00012" || got[1] != "1.50" {
		t.Errorf("Rows[0] = %q, want code and price kept verbatim", got)
	}
}

func TestRead_Limit(t *testing.T) {
	data := "product_code,title\n" + strings.Repeat("A12,Filtro\n", 100)

	if _, err := Read(core.SourcePrimary, "p.csv", strings.NewReader(data), int64(len(data))); err != nil {
		t.Errorf("Read() at the limit error = %v", err)
	}
	_, err := Read(core.SourcePrimary, "p.csv", strings.NewReader(data), 64)
	if !errors.Is(err, ErrFileTooLarge) {
		t.Errorf("Read() error = %v, want ErrFileTooLarge", err)
	}
	if core.MapError(err).Code != "FILE001" {
		t.Errorf("MapError code = %q, want FILE001", core.MapError(err).Code)
	}
}

func TestRead_RejectsFormatBeforeReading(t *testing.T) {
	var r bytes.Buffer
	r.WriteString("data")
	if _, err := Read(core.SourcePrimary, "p.pdf", &r, 0); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("Read() error = %v, want ErrUnsupportedFormat", err)
	}
	if r.Len() != 4 {
		t.Error("reader consumed for an unsupported format")
	}
}

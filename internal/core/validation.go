package core

// validation.go reports data quality problems of a raw source table.
//
// Reconciliation never rejects a row for bad content: a code that normalizes
// to nothing never joins, a malformed number only fails numeric filters.
// The report makes those rows visible before they silently drop out:
//  1. Header validation: required logical fields without a column
//  2. Row validation: empty or unusable product codes, malformed numbers
//
// The RowValidator returns every problem of a row; ValidateTable keeps
// per-field counts plus the first few issues as samples.

import (
	"fmt"
	"sort"
)

// DefaultValidationSamples is the number of issues kept by ValidateTable.
const DefaultValidationSamples = 20

// ValidationIssue is one invalid cell.
type ValidationIssue struct {
	Row     int    `json:"row"` // 1-based data row
	Field   Field  `json:"field"`
	Value   string `json:"value,omitempty"`
	Message string `json:"message"`
}

func (e ValidationIssue) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("row %d: %s: %s", e.Row, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationReport summarizes the problems of one source table.
type ValidationReport struct {
	Source         SourceKind        `json:"source"`
	Rows           int               `json:"rows"`
	InvalidRows    int               `json:"invalidRows"`
	MissingColumns []Field           `json:"missingColumns,omitempty"`
	Counts         map[Field]int     `json:"counts,omitempty"`
	Samples        []ValidationIssue `json:"samples,omitempty"`
}

// Valid reports whether the table has no issue at all.
func (r ValidationReport) Valid() bool {
	return r.InvalidRows == 0 && len(r.MissingColumns) == 0
}

// RowValidator validates rows against a source's field specifications.
type RowValidator struct {
	specs     []FieldSpec
	positions map[Field]int
}

// NewRowValidator creates a validator for a source definition and the
// header index of its table.
func NewRowValidator(def SourceDefinition, idx HeaderIndex) *RowValidator {
	return &RowValidator{
		specs:     def.Fields,
		positions: def.Resolve(idx),
	}
}

// Missing returns the required fields that have no column.
func (v *RowValidator) Missing() []Field {
	var out []Field
	for _, spec := range v.specs {
		if _, ok := v.positions[spec.Name]; !ok && spec.Required {
			out = append(out, spec.Name)
		}
	}
	return out
}

// ValidateRow validates a single row and returns all of its issues.
// rowNum is carried into the issues as is.
func (v *RowValidator) ValidateRow(rowNum int, row []string) []ValidationIssue {
	var issues []ValidationIssue
	for _, spec := range v.specs {
		pos, ok := v.positions[spec.Name]
		if !ok || pos >= len(row) {
			continue
		}
		raw := CleanCell(row[pos])

		if raw == "" {
			if spec.Required {
				issues = append(issues, ValidationIssue{Row: rowNum, Field: spec.Name, Message: "required field is empty"})
			}
			continue
		}
		if err := ValidateCell(raw, spec); err != nil {
			issues = append(issues, ValidationIssue{Row: rowNum, Field: spec.Name, Value: raw, Message: err.Error()})
		}
	}
	return issues
}

// ValidateCell validates a single non-empty cell against a field
// specification.
func ValidateCell(value string, spec FieldSpec) error {
	if value == "" {
		return nil
	}
	switch {
	case spec.Type == FieldTypeNumeric:
		if _, ok := ParseNumber(value); !ok {
			return fmt.Errorf("invalid %s format", spec.Type)
		}
	case isCodeField(spec.Name):
		if Normalize(value).IsZero() {
			return fmt.Errorf("code normalizes to an empty identifier")
		}
	}
	return nil
}

func isCodeField(f Field) bool {
	return f == FieldProductCode || f == FieldSKU
}

// ValidateTable checks every row of a table. At most samples issues are kept
// (DefaultValidationSamples when samples <= 0); counts cover all of them.
func ValidateTable(t *Table, samples int) ValidationReport {
	if samples <= 0 {
		samples = DefaultValidationSamples
	}
	report := ValidationReport{Rows: t.Len()}
	if t == nil {
		return report
	}
	report.Source = t.Kind

	v := NewRowValidator(mustDefinition(t.Kind), t.Index())
	report.MissingColumns = v.Missing()
	for i, row := range t.Rows {
		issues := v.ValidateRow(i+1, row)
		if len(issues) == 0 {
			continue
		}
		report.InvalidRows++
		if report.Counts == nil {
			report.Counts = make(map[Field]int)
		}
		for _, issue := range issues {
			report.Counts[issue.Field]++
			if len(report.Samples) < samples {
				report.Samples = append(report.Samples, issue)
			}
		}
	}
	return report
}

// Fields returns the fields with issues in name order.
func (r ValidationReport) Fields() []Field {
	out := make([]Field, 0, len(r.Counts))
	for f := range r.Counts {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Validate checks every table of the sources and returns the reports of the
// tables with issues.
func (s Sources) Validate(samples int) []ValidationReport {
	var out []ValidationReport
	for _, t := range s.tables() {
		if report := ValidateTable(t, samples); !report.Valid() {
			out = append(out, report)
		}
	}
	return out
}

package core

import (
	"fmt"
	"strings"
)

// SourceKind identifies one of the input catalogs.
type SourceKind string

const (
	SourcePrimary        SourceKind = "primary"
	SourceMapping        SourceKind = "mapping"
	SourceCrossReference SourceKind = "cross_reference"
	SourceApplications   SourceKind = "applications"
	SourceB2B            SourceKind = "b2b"
	SourceERP            SourceKind = "erp"
)

// ParseSourceKind resolves a source kind from user input.
// Accepts the kind itself or its hyphenated form ("cross-reference").
func ParseSourceKind(s string) (SourceKind, error) {
	k := SourceKind(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_"))
	if _, ok := Definition(k); !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownSource, s)
	}
	return k, nil
}

// CanonicalID is the normalized product identifier used for every join.
// The zero value never matches anything.
type CanonicalID string

// IsZero reports whether the identifier is empty.
func (c CanonicalID) IsZero() bool { return c == "" }

// FieldType represents the expected data type of a column.
type FieldType int

const (
	FieldTypeText FieldType = iota
	FieldTypeNumeric
	FieldTypeMulti
)

// String returns the lowercase type name used in API responses.
func (t FieldType) String() string {
	switch t {
	case FieldTypeNumeric:
		return "numeric"
	case FieldTypeMulti:
		return "multi"
	default:
		return "text"
	}
}

// BrandGroup is one index-aligned brand/reference pair of a record.
// References at index i belong to the brands at the same index only.
type BrandGroup struct {
	Index      int
	Brand      MultiValue
	References MultiValue
}

// Record is one product row of a catalog view.
// Records are shared between views and must be treated as read-only.
type Record struct {
	Source      SourceKind
	Row         int // 0-based data row in the source table
	ProductCode string
	Canonical   CanonicalID
	Title       string
	Category    string
	Values      map[string]string
	Pairs       []BrandGroup
}

// Value returns the cell for a column, or "" when absent.
func (r *Record) Value(column string) string {
	return r.Values[column]
}

// View is an ordered collection of records with a known column schema.
// Query operations return new views; they never alter the records.
type View struct {
	Source  SourceKind
	Columns []string
	Display []string // default projection; all columns when empty
	Schema  Schema
	Records []*Record
}

// Len returns the number of records, treating a nil view as empty.
func (v *View) Len() int {
	if v == nil {
		return 0
	}
	return len(v.Records)
}

// HasColumn reports whether the view carries a column with this exact name.
func (v *View) HasColumn(name string) bool {
	if v == nil {
		return false
	}
	for _, c := range v.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// ResolveColumn finds a column by exact name, then case-insensitively.
func (v *View) ResolveColumn(name string) (string, bool) {
	if v == nil {
		return "", false
	}
	if v.HasColumn(name) {
		return name, true
	}
	for _, c := range v.Columns {
		if strings.EqualFold(c, name) {
			return c, true
		}
	}
	return "", false
}

// DisplayColumns returns the default projection columns.
func (v *View) DisplayColumns() []string {
	if v == nil {
		return nil
	}
	if len(v.Display) > 0 {
		return append([]string(nil), v.Display...)
	}
	return append([]string(nil), v.Columns...)
}

// subset returns a view over the given records with the same schema.
func (v *View) subset(records []*Record, display []string) *View {
	return &View{
		Source:  v.Source,
		Columns: v.Columns,
		Display: display,
		Schema:  v.Schema,
		Records: records,
	}
}

// emptyView returns a view with no records and no columns.
func emptyView(kind SourceKind) *View {
	return &View{Source: kind, Records: []*Record{}}
}

// CompatibilityEntry is one (product, brand, reference) fact.
// Brand and Reference are never empty.
type CompatibilityEntry struct {
	SKU          string      `json:"sku"`
	SKUCanonical CanonicalID `json:"skuCanonical"`
	Brand        string      `json:"brand"`
	Reference    string      `json:"reference"`
	Title        string      `json:"title"`
}

// Warning records a feature disabled during reconciliation.
type Warning struct {
	Source  SourceKind `json:"source"`
	Column  string     `json:"column,omitempty"`
	Feature string     `json:"feature"`
}

func (w Warning) String() string {
	if w.Column == "" {
		return fmt.Sprintf("%s: %s", w.Source, w.Feature)
	}
	return fmt.Sprintf("%s: column %q: %s", w.Source, w.Column, w.Feature)
}

// FilterOperator represents a comparison operator for attribute filters.
type FilterOperator string

const (
	OpIn        FilterOperator = "in"
	OpEquals    FilterOperator = "eq" // token equality with Text
	OpContains  FilterOperator = "contains"
	OpGreaterEq FilterOperator = "gte"
	OpLessEq    FilterOperator = "lte"
	OpGreater   FilterOperator = "gt"
	OpLess      FilterOperator = "lt"
)

// IsNumeric reports whether the operator compares numbers.
func (op FilterOperator) IsNumeric() bool {
	switch op {
	case OpGreaterEq, OpLessEq, OpGreater, OpLess:
		return true
	}
	return false
}

// ParseFilterOperator validates an operator name; empty means OpIn.
func ParseFilterOperator(s string) (FilterOperator, error) {
	switch op := FilterOperator(strings.ToLower(strings.TrimSpace(s))); op {
	case "":
		return OpIn, nil
	case OpIn, OpEquals, OpContains, OpGreaterEq, OpLessEq, OpGreater, OpLess:
		return op, nil
	}
	return "", fmt.Errorf("%w: unknown operator %q", ErrInvalidSelection, s)
}

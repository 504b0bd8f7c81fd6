package core

import (
	"strconv"
	"strings"
)

// xrefSuffix is appended to auxiliary columns whose name is already taken.
const xrefSuffix = "_xref"

const ignoredPairFeature = "brand/reference index above limit ignored"

// BuildView turns a catalog table into a view. Columns resolved to a logical
// field are renamed to the field name; every other column keeps its header.
// Missing optional fields produce warnings and leave the record field empty.
func BuildView(t *Table, maxPairs int) (*View, []Warning) {
	def := mustDefinition(t.Kind)
	resolved := def.Resolve(t.Index())

	var warnings []Warning
	columns := append([]string(nil), t.Header...)
	for _, f := range def.Fields {
		pos, ok := resolved[f.Name]
		if !ok {
			if f.Required || f.Name == FieldCategory {
				err := &MissingColumnError{Source: t.Kind, Column: string(f.Name), Feature: fieldFeature(f.Name)}
				warnings = append(warnings, err.Warning())
			}
			continue
		}
		columns[pos] = string(f.Name)
	}
	columns = uniqueHeader(columns)

	schema := DiscoverSchema(columns, maxPairs)
	for _, col := range schema.Ignored {
		warnings = append(warnings, Warning{Source: t.Kind, Column: col, Feature: ignoredPairFeature})
	}

	v := &View{
		Source:  t.Kind,
		Columns: columns,
		Schema:  schema,
		Records: make([]*Record, 0, len(t.Rows)),
	}
	for i, row := range t.Rows {
		values := make(map[string]string, len(columns))
		for c, name := range columns {
			values[name] = row[c]
		}
		v.Records = append(v.Records, newRecord(t.Kind, i, values, schema))
	}
	v.Display = defaultDisplay(v)
	return v, warnings
}

// newRecord fills the typed fields of a record from its values.
func newRecord(kind SourceKind, row int, values map[string]string, schema Schema) *Record {
	code := values[string(FieldProductCode)]
	return &Record{
		Source:      kind,
		Row:         row,
		ProductCode: code,
		Canonical:   Normalize(code),
		Title:       values[string(FieldTitle)],
		Category:    values[string(FieldCategory)],
		Values:      values,
		Pairs:       pairsOf(schema, values),
	}
}

// defaultDisplay picks the base columns present in a view.
func defaultDisplay(v *View) []string {
	var out []string
	for _, f := range []Field{FieldProductCode, FieldTitle, FieldCategory} {
		if v.HasColumn(string(f)) {
			out = append(out, string(f))
		}
	}
	return out
}

func fieldFeature(f Field) string {
	switch f {
	case FieldProductCode:
		return "identifier joins"
	case FieldCategory:
		return "category partitioning"
	case FieldAttribute:
		return "attribute mapping"
	case FieldSKU:
		return "cross-reference join"
	}
	return string(f) + " lookups"
}

// MergeOptions controls a left join of an auxiliary table onto a view.
type MergeOptions struct {
	// PreAggregated marks an auxiliary table known to carry one row per
	// canonical key (regrouped from the long layout). Duplicate keys are
	// then resolved to the first row instead of failing.
	PreAggregated bool

	// MaxPairs caps the brand_i/reference_i index read from the auxiliary
	// table; <= 0 reads every group. The base view keeps its own schema.
	MaxPairs int
}

// Merge left-joins an auxiliary table onto a view by canonical identifier.
// Every base record survives exactly once; records without a match get empty
// auxiliary values. The auxiliary key column is dropped and colliding column
// names get the "_xref" suffix. Auxiliary brand/reference groups whose index
// the base already uses are renumbered after the highest index present, so
// they stay searchable. More than one auxiliary row per canonical key
// fails with *DuplicateKeyError unless opts.PreAggregated is set. Auxiliary
// rows whose key normalizes to empty are never joined.
func Merge(base *View, aux *Table, opts MergeOptions) (*View, error) {
	cols := mustDefinition(crossReferenceKind(aux.Kind)).Resolve(aux.Index())
	keyCol, ok := cols[FieldSKU]
	if !ok {
		return nil, &MissingColumnError{Source: aux.Kind, Column: string(FieldSKU), Feature: "cross-reference join"}
	}

	rowsByKey := make(map[CanonicalID][]int)
	for i, row := range aux.Rows {
		key := Normalize(row[keyCol])
		if key.IsZero() {
			continue
		}
		rowsByKey[key] = append(rowsByKey[key], i)
	}
	if !opts.PreAggregated {
		// Report the first duplicate in row order for a stable error.
		for i, row := range aux.Rows {
			key := Normalize(row[keyCol])
			if rows := rowsByKey[key]; len(rows) > 1 && rows[0] == i {
				return nil, &DuplicateKeyError{Source: aux.Kind, Key: key, Rows: rows}
			}
		}
	}

	auxSchema := DiscoverSchema(aux.Header, opts.MaxPairs)
	usedIndex := make(map[int]bool)
	next := 0
	for _, c := range base.Columns {
		if i, ok := pairIndex(c); ok {
			usedIndex[i] = true
			next = max(next, i)
		}
	}
	for _, h := range aux.Header {
		if i, ok := pairIndex(h); ok {
			next = max(next, i)
		}
	}
	rename := make(map[string]string)
	pairs := append([]PairColumns(nil), base.Schema.Pairs...)
	for _, p := range auxSchema.Pairs {
		if usedIndex[p.Index] {
			next++
			n := strconv.Itoa(next)
			if p.Brand != "" {
				rename[p.Brand] = "brand_" + n
				p.Brand = rename[p.Brand]
			}
			if p.Reference != "" {
				rename[p.Reference] = "reference_" + n
				p.Reference = rename[p.Reference]
			}
			p.Index = next
		}
		pairs = append(pairs, p)
	}
	auxIgnored := make(map[string]bool, len(auxSchema.Ignored))
	for _, c := range auxSchema.Ignored {
		auxIgnored[c] = true
	}

	taken := make(map[string]bool, len(base.Columns))
	for _, c := range base.Columns {
		taken[c] = true
	}
	type auxCol struct {
		pos  int
		name string
	}
	var auxCols []auxCol
	ignored := append([]string(nil), base.Schema.Ignored...)
	columns := append([]string(nil), base.Columns...)
	for i, h := range aux.Header {
		if i == keyCol {
			continue
		}
		name, renamed := rename[h]
		if !renamed {
			name = h
			if taken[name] {
				name += xrefSuffix
			}
		}
		if auxIgnored[h] {
			ignored = append(ignored, name)
		}
		taken[name] = true
		auxCols = append(auxCols, auxCol{pos: i, name: name})
		columns = append(columns, name)
	}

	schema := newSchema(pairs, ignored)
	out := &View{
		Source:  base.Source,
		Columns: columns,
		Display: base.Display,
		Schema:  schema,
		Records: make([]*Record, 0, len(base.Records)),
	}
	for _, r := range base.Records {
		values := make(map[string]string, len(columns))
		for k, val := range r.Values {
			values[k] = val
		}
		var match []string
		if !r.Canonical.IsZero() {
			if rows := rowsByKey[r.Canonical]; len(rows) > 0 {
				match = aux.Rows[rows[0]]
			}
		}
		for _, ac := range auxCols {
			if match != nil {
				values[ac.name] = match[ac.pos]
			} else {
				values[ac.name] = ""
			}
		}
		merged := newRecord(r.Source, r.Row, values, schema)
		out.Records = append(out.Records, merged)
	}
	return out, nil
}

// CategoryMapping lists the attributes relevant to each category.
// Attribute order follows the source rows; duplicates keep the first position.
type CategoryMapping struct {
	order []string
	attrs map[string][]string
}

// NewCategoryMapping builds a mapping from ordered category/attribute pairs.
func NewCategoryMapping(pairs [][2]string) CategoryMapping {
	m := CategoryMapping{attrs: make(map[string][]string)}
	seen := make(map[string]map[string]bool)
	for _, p := range pairs {
		cat, attr := strings.TrimSpace(p[0]), strings.TrimSpace(p[1])
		if cat == "" || attr == "" {
			continue
		}
		if _, ok := m.attrs[cat]; !ok {
			m.order = append(m.order, cat)
			m.attrs[cat] = nil
			seen[cat] = make(map[string]bool)
		}
		if seen[cat][attr] {
			continue
		}
		seen[cat][attr] = true
		m.attrs[cat] = append(m.attrs[cat], attr)
	}
	return m
}

// Categories returns the mapped categories in encounter order.
func (m CategoryMapping) Categories() []string {
	return append([]string(nil), m.order...)
}

// Attributes returns the mapped attributes of a category, or nil.
func (m CategoryMapping) Attributes(category string) []string {
	return append([]string(nil), m.attrs[strings.TrimSpace(category)]...)
}

// Len returns the number of mapped categories.
func (m CategoryMapping) Len() int {
	return len(m.order)
}

// BuildMapping groups a mapping table on its category column.
// A table lacking the category or attribute column yields an empty mapping
// and a warning.
func BuildMapping(t *Table) (CategoryMapping, []Warning) {
	cols := mustDefinition(SourceMapping).Resolve(t.Index())
	catCol, hasCat := cols[FieldCategory]
	attrCol, hasAttr := cols[FieldAttribute]
	if !hasCat || !hasAttr {
		missing := FieldCategory
		if hasCat {
			missing = FieldAttribute
		}
		err := &MissingColumnError{Source: SourceMapping, Column: string(missing), Feature: "attribute mapping"}
		return NewCategoryMapping(nil), []Warning{err.Warning()}
	}

	pairs := make([][2]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		pairs = append(pairs, [2]string{row[catCol], row[attrCol]})
	}
	return NewCategoryMapping(pairs), nil
}

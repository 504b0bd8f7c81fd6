package core

import (
	"strconv"
	"strings"
)

// Layout is the encoding of a cross-reference table.
type Layout int

const (
	// LayoutWide has one row per product with brand_i/reference_i columns.
	LayoutWide Layout = iota
	// LayoutLong has one row per (product, brand, reference) fact.
	LayoutLong
)

func (l Layout) String() string {
	if l == LayoutLong {
		return "long"
	}
	return "wide"
}

// DetectLayout reports whether a cross-reference table is wide or long.
// A table with plain brand and reference columns and no indexed groups is long.
func DetectLayout(t *Table) Layout {
	if DiscoverSchema(t.Header, 0).HasPairs() {
		return LayoutWide
	}
	cols := mustDefinition(crossReferenceKind(t.Kind)).Resolve(t.Index())
	_, hasBrand := cols[FieldBrand]
	_, hasRef := cols[FieldReference]
	if hasBrand && hasRef {
		return LayoutLong
	}
	return LayoutWide
}

// ToWide regroups a long table into the wide layout: one row per canonical
// SKU, one brand_i/reference_i group per distinct brand. Groups keep the order
// of first appearance and references keep encounter order, so expanding the
// result yields the original facts. Rows with an empty brand are dropped, and
// SKUs that normalize to empty are grouped by their raw value.
func ToWide(t *Table) (*Table, error) {
	def := mustDefinition(crossReferenceKind(t.Kind))
	cols := def.Resolve(t.Index())
	skuCol, ok := cols[FieldSKU]
	if !ok {
		return nil, &MissingColumnError{Source: t.Kind, Column: string(FieldSKU), Feature: "cross-reference regrouping"}
	}
	brandCol, hasBrand := cols[FieldBrand]
	refCol, hasRef := cols[FieldReference]
	if !hasBrand || !hasRef {
		missing := FieldBrand
		if hasBrand {
			missing = FieldReference
		}
		return nil, &MissingColumnError{Source: t.Kind, Column: string(missing), Feature: "cross-reference regrouping"}
	}

	type brandRefs struct {
		brand string
		refs  []string
	}
	type product struct {
		sku    string
		brands []*brandRefs
		byKey  map[string]*brandRefs
	}

	var order []*product
	bySKU := make(map[string]*product)
	maxBrands := 0
	for _, row := range t.Rows {
		sku := row[skuCol]
		brand := strings.TrimSpace(row[brandCol])
		if brand == "" {
			continue
		}
		key := string(Normalize(sku))
		if key == "" {
			key = "\x00" + sku
		}
		p, ok := bySKU[key]
		if !ok {
			p = &product{sku: sku, byKey: make(map[string]*brandRefs)}
			bySKU[key] = p
			order = append(order, p)
		}
		bk := tokenKey(brand)
		br, ok := p.byKey[bk]
		if !ok {
			br = &brandRefs{brand: brand}
			p.byKey[bk] = br
			p.brands = append(p.brands, br)
		}
		if ref := strings.TrimSpace(row[refCol]); ref != "" {
			br.refs = append(br.refs, ref)
		}
		if len(p.brands) > maxBrands {
			maxBrands = len(p.brands)
		}
	}

	header := []string{string(FieldSKU)}
	for i := 1; i <= maxBrands; i++ {
		n := strconv.Itoa(i)
		header = append(header, "brand_"+n, "reference_"+n)
	}
	rows := make([][]string, 0, len(order))
	for _, p := range order {
		row := make([]string, len(header))
		row[0] = p.sku
		for i, br := range p.brands {
			row[1+2*i] = br.brand
			row[2+2*i] = string(JoinValues(br.refs))
		}
		rows = append(rows, row)
	}
	return NewTable(t.Name, t.Kind, header, rows), nil
}

// PrepareCrossReference returns a wide table and whether it was regrouped
// from the long layout.
func PrepareCrossReference(t *Table) (*Table, bool, error) {
	if DetectLayout(t) == LayoutWide {
		return t, false, nil
	}
	wide, err := ToWide(t)
	if err != nil {
		return nil, false, err
	}
	return wide, true, nil
}

// Expand converts a cross-reference table into compatibility entries.
// Long tables are regrouped first and all of their groups are read, since
// regrouping creates one index per distinct brand. Wide tables are read up to
// maxPairs. For every row and group index, the trimmed brand cell is paired
// with every reference token of the same index; groups without a brand or
// without references produce nothing. Entries are not de-duplicated, and SKUs
// that normalize to empty are kept (they never join).
func Expand(t *Table, maxPairs int) ([]CompatibilityEntry, error) {
	wide, regrouped, err := PrepareCrossReference(t)
	if err != nil {
		return nil, err
	}
	cols := mustDefinition(crossReferenceKind(t.Kind)).Resolve(wide.Index())
	skuCol, ok := cols[FieldSKU]
	if !ok {
		return nil, &MissingColumnError{Source: t.Kind, Column: string(FieldSKU), Feature: "compatibility expansion"}
	}

	if regrouped {
		maxPairs = 0
	}
	schema := DiscoverSchema(wide.Header, maxPairs)
	idx := wide.Index()
	type pairPos struct{ brand, ref int }
	positions := make([]pairPos, 0, len(schema.Pairs))
	for _, p := range schema.Pairs {
		if p.Brand == "" || p.Reference == "" {
			continue
		}
		positions = append(positions, pairPos{idx[strings.ToLower(p.Brand)], idx[strings.ToLower(p.Reference)]})
	}

	var entries []CompatibilityEntry
	for _, row := range wide.Rows {
		sku := row[skuCol]
		canonical := Normalize(sku)
		for _, pos := range positions {
			brand := strings.TrimSpace(row[pos.brand])
			if brand == "" {
				continue
			}
			for _, r := range MultiValue(row[pos.ref]).Split() {
				entries = append(entries, CompatibilityEntry{
					SKU:          sku,
					SKUCanonical: canonical,
					Brand:        brand,
					Reference:    r,
				})
			}
		}
	}
	return entries, nil
}

// crossReferenceKind picks the definition used to read a cross-reference table.
func crossReferenceKind(kind SourceKind) SourceKind {
	if kind == SourceCrossReference || kind == SourceApplications {
		return kind
	}
	return SourceApplications
}

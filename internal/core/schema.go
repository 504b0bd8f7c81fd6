package core

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// pairColumnRegex matches indexed brand/reference columns such as
// "brand_1", "Reference 2" or "brand3".
var pairColumnRegex = regexp.MustCompile(`(?i)^(brand|reference)[_ ]?(\d+)$`)

// PairColumns names the brand and reference columns sharing one index.
// Either side may be empty when the source lacks it.
type PairColumns struct {
	Index     int    `json:"index"`
	Brand     string `json:"brand,omitempty"`
	Reference string `json:"reference,omitempty"`
}

// Schema groups the discovered columns of a view by semantic role.
type Schema struct {
	Pairs            []PairColumns `json:"pairs"`
	BrandColumns     []string      `json:"brandColumns"`
	ReferenceColumns []string      `json:"referenceColumns"`
	Ignored          []string      `json:"ignored,omitempty"` // indexed beyond the configured cap
}

// IsPairColumn reports whether the column belongs to a brand or reference group.
func (s Schema) IsPairColumn(column string) bool {
	for _, p := range s.Pairs {
		if p.Brand == column || p.Reference == column {
			return true
		}
	}
	return false
}

// HasPairs reports whether any brand/reference group was found.
func (s Schema) HasPairs() bool {
	return len(s.Pairs) > 0
}

// DiscoverSchema finds the brand_i/reference_i groups in a column list.
// Indices above maxPairs are listed in Ignored; maxPairs <= 0 means no cap.
// Pairs are ordered by index.
func DiscoverSchema(columns []string, maxPairs int) Schema {
	byIndex := make(map[int]*PairColumns)
	var ignored []string
	for _, col := range columns {
		m := pairColumnRegex.FindStringSubmatch(col)
		if m == nil {
			continue
		}
		idx, err := strconv.Atoi(m[2])
		if err != nil || idx < 1 {
			continue
		}
		if maxPairs > 0 && idx > maxPairs {
			ignored = append(ignored, col)
			continue
		}
		p, ok := byIndex[idx]
		if !ok {
			p = &PairColumns{Index: idx}
			byIndex[idx] = p
		}
		if strings.EqualFold(m[1], "brand") {
			if p.Brand == "" {
				p.Brand = col
			}
		} else if p.Reference == "" {
			p.Reference = col
		}
	}

	pairs := make([]PairColumns, 0, len(byIndex))
	for _, p := range byIndex {
		pairs = append(pairs, *p)
	}
	return newSchema(pairs, ignored)
}

// newSchema orders pairs by index and lists their brand and reference columns.
func newSchema(pairs []PairColumns, ignored []string) Schema {
	s := Schema{Pairs: pairs, Ignored: ignored}
	if len(s.Pairs) == 0 {
		s.Pairs = nil
	}
	sort.Slice(s.Pairs, func(i, j int) bool { return s.Pairs[i].Index < s.Pairs[j].Index })
	for _, p := range s.Pairs {
		if p.Brand != "" {
			s.BrandColumns = append(s.BrandColumns, p.Brand)
		}
		if p.Reference != "" {
			s.ReferenceColumns = append(s.ReferenceColumns, p.Reference)
		}
	}
	return s
}

// pairIndex returns the index of a brand_i or reference_i column.
func pairIndex(column string) (int, bool) {
	m := pairColumnRegex.FindStringSubmatch(column)
	if m == nil {
		return 0, false
	}
	idx, err := strconv.Atoi(m[2])
	if err != nil || idx < 1 {
		return 0, false
	}
	return idx, true
}

// pairsOf extracts the non-empty brand groups of a row.
func pairsOf(s Schema, values map[string]string) []BrandGroup {
	var groups []BrandGroup
	for _, p := range s.Pairs {
		g := BrandGroup{Index: p.Index}
		if p.Brand != "" {
			g.Brand = MultiValue(values[p.Brand])
		}
		if p.Reference != "" {
			g.References = MultiValue(values[p.Reference])
		}
		if g.Brand.IsEmpty() && g.References.IsEmpty() {
			continue
		}
		groups = append(groups, g)
	}
	return groups
}

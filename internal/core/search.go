package core

import (
	"fmt"
	"sort"
	"strings"
)

// Columns added to search projections.
const (
	ColumnMatchBrand     = "Brand"
	ColumnMatchReference = "Reference"
)

// vocabulary collects distinct tokens by tokenKey, keeping the first spelling.
type vocabulary struct {
	seen  map[string]bool
	words []string
}

func newVocabulary() *vocabulary {
	return &vocabulary{seen: make(map[string]bool)}
}

func (v *vocabulary) add(token string) {
	key := tokenKey(token)
	if key == "" || v.seen[key] {
		return
	}
	v.seen[key] = true
	v.words = append(v.words, strings.TrimSpace(token))
}

// sorted returns the words ordered by their folded key.
func (v *vocabulary) sorted() []string {
	out := append([]string{}, v.words...)
	sort.SliceStable(out, func(i, j int) bool {
		ki, kj := tokenKey(out[i]), tokenKey(out[j])
		if ki != kj {
			return ki < kj
		}
		return out[i] < out[j]
	})
	return out
}

// brandVocabulary lists every brand of the paired columns and application table.
func brandVocabulary(v *View, apps []CompatibilityEntry) []string {
	vocab := newVocabulary()
	if v != nil {
		for _, r := range v.Records {
			for _, g := range r.Pairs {
				for _, b := range g.Brand.Split() {
					vocab.add(b)
				}
			}
		}
	}
	for _, e := range apps {
		for _, b := range MultiValue(e.Brand).Split() {
			vocab.add(b)
		}
	}
	return vocab.sorted()
}

// referencesFor lists the references co-occurring with a brand at the same
// group index, unioned with the application entries of that brand.
func referencesFor(v *View, apps []CompatibilityEntry, brand string) []string {
	vocab := newVocabulary()
	if tokenKey(brand) == "" {
		return vocab.sorted()
	}
	if v != nil {
		for _, r := range v.Records {
			for _, g := range r.Pairs {
				if !g.Brand.Contains(brand) {
					continue
				}
				for _, ref := range g.References.Split() {
					vocab.add(ref)
				}
			}
		}
	}
	for _, e := range apps {
		if MultiValue(e.Brand).Contains(brand) {
			vocab.add(e.Reference)
		}
	}
	return vocab.sorted()
}

// SearchResult is the outcome of a brand/reference search.
type SearchResult struct {
	Brand      string   `json:"brand"`
	Reference  string   `json:"reference,omitempty"`
	References []string `json:"references"` // candidates for the brand
	Rows       *View    `json:"-"`
}

// searchByBrandReference returns the records carrying the brand in some
// group and, when reference is set, the reference in that same group. A
// reference found only under a different index does not match. Results carry
// Brand and Reference columns with the matched spelling.
func searchByBrandReference(v *View, apps []CompatibilityEntry, brand, reference string) (*SearchResult, error) {
	if tokenKey(brand) == "" {
		return nil, fmt.Errorf("%w: brand is required", ErrInvalidSelection)
	}
	res := &SearchResult{
		Brand:      strings.TrimSpace(brand),
		Reference:  strings.TrimSpace(reference),
		References: referencesFor(v, apps, brand),
	}
	if v == nil {
		v = emptyView(SourcePrimary)
	}

	columns := append(append([]string(nil), v.Columns...), ColumnMatchBrand, ColumnMatchReference)
	var out []*Record
	for _, r := range v.Records {
		gotBrand, gotRef, ok := matchPairs(r.Pairs, brand, reference)
		if !ok {
			continue
		}
		values := make(map[string]string, len(r.Values)+2)
		for k, val := range r.Values {
			values[k] = val
		}
		values[ColumnMatchBrand] = gotBrand
		values[ColumnMatchReference] = gotRef
		hit := *r
		hit.Values = values
		out = append(out, &hit)
	}

	display := append(defaultDisplay(v), ColumnMatchBrand, ColumnMatchReference)
	res.Rows = &View{
		Source:  v.Source,
		Columns: columns,
		Display: display,
		Schema:  v.Schema,
		Records: out,
	}
	if res.Rows.Records == nil {
		res.Rows.Records = []*Record{}
	}
	return res, nil
}

// matchPairs finds the first group matching brand (and reference when set).
// Without a reference, the group's references are reported comma-joined.
func matchPairs(groups []BrandGroup, brand, reference string) (string, string, bool) {
	wantRef := tokenKey(reference) != ""
	for _, g := range groups {
		b, ok := g.Brand.Match(brand)
		if !ok {
			continue
		}
		if !wantRef {
			return b, string(JoinValues(g.References.Split())), true
		}
		if ref, ok := g.References.Match(reference); ok {
			return b, ref, true
		}
	}
	return "", "", false
}

// ApplicationQuery selects entries of the application table. Empty fields
// do not filter.
type ApplicationQuery struct {
	SKU       string `json:"sku,omitempty"`
	Brand     string `json:"brand,omitempty"`
	Reference string `json:"reference,omitempty"`
}

// ApplicationResult is a cascading SKU → brand → reference selection over
// the application table. Each candidate list is computed from the entries
// left by the selections before it.
type ApplicationResult struct {
	SKUs       []string             `json:"skus"`
	Brands     []string             `json:"brands"`
	References []string             `json:"references"`
	Entries    []CompatibilityEntry `json:"entries"`
}

// applicationsFor runs the cascade. The SKU matches by canonical identifier,
// brand and reference by token.
func applicationsFor(apps []CompatibilityEntry, q ApplicationQuery) *ApplicationResult {
	res := &ApplicationResult{}

	skus := newVocabulary()
	for _, e := range apps {
		skus.add(e.SKU)
	}
	res.SKUs = skus.sorted()

	working := apps
	if strings.TrimSpace(q.SKU) != "" {
		want := Normalize(q.SKU)
		working = filterEntries(working, func(e CompatibilityEntry) bool {
			return !want.IsZero() && e.SKUCanonical == want
		})
	}

	brands := newVocabulary()
	for _, e := range working {
		brands.add(e.Brand)
	}
	res.Brands = brands.sorted()
	if tokenKey(q.Brand) != "" {
		working = filterEntries(working, func(e CompatibilityEntry) bool { return tokenEqual(e.Brand, q.Brand) })
	}

	refs := newVocabulary()
	for _, e := range working {
		refs.add(e.Reference)
	}
	res.References = refs.sorted()
	if tokenKey(q.Reference) != "" {
		working = filterEntries(working, func(e CompatibilityEntry) bool { return tokenEqual(e.Reference, q.Reference) })
	}

	res.Entries = append([]CompatibilityEntry{}, working...)
	return res
}

func filterEntries(entries []CompatibilityEntry, keep func(CompatibilityEntry) bool) []CompatibilityEntry {
	out := make([]CompatibilityEntry, 0, len(entries))
	for _, e := range entries {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}

// ApplicationColumns is the projection of an application result.
var ApplicationColumns = []string{string(FieldSKU), string(FieldTitle), string(FieldBrand), string(FieldReference)}

// View converts the entries into a view for export.
func (r *ApplicationResult) View() *View {
	v := &View{
		Source:  SourceApplications,
		Columns: append([]string(nil), ApplicationColumns...),
		Display: append([]string(nil), ApplicationColumns...),
		Records: make([]*Record, 0, len(r.Entries)),
	}
	for i, e := range r.Entries {
		v.Records = append(v.Records, &Record{
			Source:      SourceApplications,
			Row:         i,
			ProductCode: e.SKU,
			Canonical:   e.SKUCanonical,
			Title:       e.Title,
			Values: map[string]string{
				string(FieldSKU):       e.SKU,
				string(FieldTitle):     e.Title,
				string(FieldBrand):     e.Brand,
				string(FieldReference): e.Reference,
			},
		})
	}
	return v
}

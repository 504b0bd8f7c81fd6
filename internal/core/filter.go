package core

import (
	"fmt"
	"sort"
	"strings"
)

// Phase is the lifecycle stage of a filter session.
type Phase string

const (
	PhaseNoCategory       Phase = "no_category"
	PhaseCategorySelected Phase = "category_selected"
	PhaseAttributesActive Phase = "attributes_active"
)

// Selection is one attribute filter.
type Selection struct {
	Attribute string         `json:"attribute"`
	Op        FilterOperator `json:"op"`
	Values    []string       `json:"values,omitempty"` // candidate set for OpIn
	Text      string         `json:"text,omitempty"`   // operand for every other operator
}

// Validate checks that the selection can be evaluated.
func (s Selection) Validate() error {
	if strings.TrimSpace(s.Attribute) == "" {
		return fmt.Errorf("%w: attribute is required", ErrInvalidSelection)
	}
	switch {
	case s.Op == OpIn:
		if len(s.Values) == 0 {
			return fmt.Errorf("%w: %s: at least one value is required", ErrInvalidSelection, s.Attribute)
		}
	case s.Op.IsNumeric():
		if _, ok := ParseNumber(s.Text); !ok {
			return fmt.Errorf("%w: %s: %q is not a number", ErrInvalidSelection, s.Attribute, s.Text)
		}
	case s.Op == OpEquals, s.Op == OpContains:
	default:
		return fmt.Errorf("%w: unknown operator %q", ErrInvalidSelection, s.Op)
	}
	return nil
}

// match reports whether a cell passes the selection.
// A cell that cannot be coerced fails every numeric comparison.
func (s Selection) match(cell string) bool {
	switch s.Op {
	case OpIn:
		for _, v := range s.Values {
			if tokenEqual(cell, v) {
				return true
			}
		}
		return false
	case OpEquals:
		return tokenEqual(cell, s.Text)
	case OpContains:
		return containsFold(cell, s.Text)
	}

	n, ok := ParseNumber(cell)
	if !ok {
		return false
	}
	want, _ := ParseNumber(s.Text)
	switch s.Op {
	case OpGreaterEq:
		return n >= want
	case OpLessEq:
		return n <= want
	case OpGreater:
		return n > want
	case OpLess:
		return n < want
	}
	return false
}

// FilterState is the per-session filter selection. It is an immutable value:
// every transition returns a new state and leaves the receiver unchanged.
type FilterState struct {
	category     string
	hasCategory  bool
	extra        string
	includeStock bool
	selections   []Selection
}

// NewFilterState returns a state with no category selected.
func NewFilterState() FilterState {
	return FilterState{}
}

// Phase returns the lifecycle stage of the state.
func (s FilterState) Phase() Phase {
	switch {
	case !s.hasCategory:
		return PhaseNoCategory
	case len(s.selections) > 0:
		return PhaseAttributesActive
	default:
		return PhaseCategorySelected
	}
}

// Category returns the selected category and whether one is selected.
func (s FilterState) Category() (string, bool) { return s.category, s.hasCategory }

// ExtraAttribute returns the optional unmapped attribute, or "".
func (s FilterState) ExtraAttribute() string { return s.extra }

// IncludeStock reports whether stock and price columns are projected.
func (s FilterState) IncludeStock() bool { return s.includeStock }

// Selections returns the active filters in application order.
func (s FilterState) Selections() []Selection {
	return append([]Selection(nil), s.selections...)
}

// WithCategory selects a category. Changing category is a hard reset: all
// filters and the extra attribute are cleared, even for the same category.
func (s FilterState) WithCategory(category string) FilterState {
	return FilterState{
		category:     strings.TrimSpace(category),
		hasCategory:  true,
		includeStock: s.includeStock,
	}
}

// WithExtraAttribute sets the single unmapped attribute; "" removes it.
// A filter on the previous extra attribute is dropped with it.
func (s FilterState) WithExtraAttribute(attribute string) FilterState {
	attribute = strings.TrimSpace(attribute)
	out := s.clone()
	if out.extra != "" && out.extra != attribute {
		out.selections = removeSelection(out.selections, out.extra)
	}
	out.extra = attribute
	return out
}

// WithStock toggles the stock and price columns in the projection.
func (s FilterState) WithStock(on bool) FilterState {
	out := s.clone()
	out.includeStock = on
	return out
}

// WithFilter adds a filter, replacing any filter on the same attribute in place.
func (s FilterState) WithFilter(sel Selection) FilterState {
	out := s.clone()
	for i, existing := range out.selections {
		if existing.Attribute == sel.Attribute {
			out.selections[i] = sel
			return out
		}
	}
	out.selections = append(out.selections, sel)
	return out
}

// WithoutFilter removes the filter on an attribute.
func (s FilterState) WithoutFilter(attribute string) FilterState {
	out := s.clone()
	out.selections = removeSelection(out.selections, attribute)
	return out
}

// Cleared removes every filter but keeps the category and extra attribute.
func (s FilterState) Cleared() FilterState {
	out := s.clone()
	out.selections = nil
	return out
}

func (s FilterState) clone() FilterState {
	out := s
	out.selections = append([]Selection(nil), s.selections...)
	return out
}

func removeSelection(sels []Selection, attribute string) []Selection {
	out := sels[:0]
	for _, sel := range sels {
		if sel.Attribute != attribute {
			out = append(out, sel)
		}
	}
	return out
}

// StepResult describes one filter application.
type StepResult struct {
	Attribute  string   `json:"attribute"`
	Before     int      `json:"before"`
	After      int      `json:"after"`
	Candidates []string `json:"candidates"` // distinct values in the working set before this step
}

// CandidateList holds the values offered for one filterable column.
type CandidateList struct {
	Attribute string   `json:"attribute"`
	Values    []string `json:"values"` // distinct values left by the columns before it
	Selected  bool     `json:"selected,omitempty"`
}

// FilterResult is the evaluation of a FilterState against a snapshot.
type FilterResult struct {
	Phase            Phase           `json:"phase"`
	Category         string          `json:"category,omitempty"`
	ActiveAttributes []string        `json:"activeAttributes"`
	ExtraCandidates  []string        `json:"extraCandidates"`
	Candidates       []CandidateList `json:"candidates"` // one per filterable column, in cascade order
	Steps            []StepResult    `json:"steps"`
	Ignored          []string     `json:"ignored,omitempty"` // filters on attributes outside the active set
	Rows             *View        `json:"-"`
}

// filterableBase lists the columns always filterable regardless of category.
var filterableBase = []Field{FieldProductCode, FieldTitle}

// evaluate applies a filter state to a view. Filterable columns are walked
// in cascade order; each one lists the values left by the columns before it
// and then applies its own selections.
func evaluate(v *View, mapping CategoryMapping, st FilterState) (*FilterResult, error) {
	for _, sel := range st.selections {
		if err := sel.Validate(); err != nil {
			return nil, err
		}
	}

	res := &FilterResult{Phase: st.Phase(), Category: st.category}
	if v == nil {
		v = emptyView(SourcePrimary)
	}

	working := v.Records
	if st.hasCategory && v.HasColumn(string(FieldCategory)) {
		working = partition(v, st.category)
	}

	res.ActiveAttributes = activeAttributes(v, working, mapping.Attributes(st.category))
	extra := ""
	if st.extra != "" {
		if col, ok := v.ResolveColumn(st.extra); ok && !contains(res.ActiveAttributes, col) && !isBaseColumn(col) {
			extra = col
		}
	}
	res.ExtraCandidates = extraCandidates(v, res.ActiveAttributes)

	// Cascade order: base columns, then the active attributes, then the extra.
	var cascade []string
	for _, f := range filterableBase {
		if v.HasColumn(string(f)) {
			cascade = append(cascade, string(f))
		}
	}
	cascade = append(cascade, res.ActiveAttributes...)
	if extra != "" {
		cascade = append(cascade, extra)
	}

	byColumn := make(map[string][]Selection)
	for _, sel := range st.selections {
		col := sel.Attribute
		if !contains(cascade, col) {
			resolved, found := v.ResolveColumn(sel.Attribute)
			if !found || !contains(cascade, resolved) {
				res.Ignored = append(res.Ignored, sel.Attribute)
				continue
			}
			col = resolved
		}
		byColumn[col] = append(byColumn[col], sel)
	}

	res.Candidates = make([]CandidateList, 0, len(cascade))
	for _, col := range cascade {
		sels := byColumn[col]
		res.Candidates = append(res.Candidates, CandidateList{
			Attribute: col,
			Values:    distinctValues(working, col),
			Selected:  len(sels) > 0,
		})
		for _, sel := range sels {
			step := StepResult{Attribute: col, Before: len(working), Candidates: distinctValues(working, col)}
			next := make([]*Record, 0, len(working))
			for _, r := range working {
				if sel.match(r.Value(col)) {
					next = append(next, r)
				}
			}
			working = next
			step.After = len(working)
			res.Steps = append(res.Steps, step)
		}
	}

	display := defaultDisplay(v)
	display = append(display, res.ActiveAttributes...)
	if extra != "" {
		display = append(display, extra)
	}
	if st.includeStock {
		for _, f := range []Field{FieldStock, FieldPrice} {
			if v.HasColumn(string(f)) && !contains(display, string(f)) {
				display = append(display, string(f))
			}
		}
	}
	res.Rows = v.subset(working, display)
	return res, nil
}

// partition returns the records of a category.
func partition(v *View, category string) []*Record {
	out := make([]*Record, 0, len(v.Records)/4)
	for _, r := range v.Records {
		if r.Category == category {
			out = append(out, r)
		}
	}
	return out
}

// activeAttributes keeps the mapped attributes that exist in the view and
// have at least one non-null value in the partition, in mapping order.
func activeAttributes(v *View, records []*Record, mapped []string) []string {
	var out []string
	for _, attr := range mapped {
		col, ok := v.ResolveColumn(attr)
		if !ok || contains(out, col) || isBaseColumn(col) {
			continue
		}
		for _, r := range records {
			if r.Value(col) != "" {
				out = append(out, col)
				break
			}
		}
	}
	return out
}

// extraCandidates lists the columns eligible as the extra attribute.
func extraCandidates(v *View, active []string) []string {
	out := []string{}
	for _, c := range v.Columns {
		if isBaseColumn(c) || contains(active, c) {
			continue
		}
		out = append(out, c)
	}
	return out
}

func isBaseColumn(col string) bool {
	switch Field(col) {
	case FieldProductCode, FieldTitle, FieldCategory:
		return true
	}
	return false
}

// distinctValues returns the sorted distinct non-null values of a column.
func distinctValues(records []*Record, col string) []string {
	seen := make(map[string]bool)
	out := []string{}
	for _, r := range records {
		val := r.Value(col)
		if val == "" || seen[val] {
			continue
		}
		seen[val] = true
		out = append(out, val)
	}
	sort.Strings(out)
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

package core

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// DefaultMaxPairs is the brand_i/reference_i index cap when none is configured.
const DefaultMaxPairs = 10

// Sources is the raw input of a reconciliation pass.
// Primary and Mapping are required; the rest are optional.
type Sources struct {
	Primary        *Table
	Mapping        *Table
	CrossReference *Table
	Applications   []*Table
	B2B            *Table
	ERP            *Table
}

// Set stores a table under its kind. Application tables accumulate; every
// other kind replaces the previous table.
func (s *Sources) Set(t *Table) error {
	switch t.Kind {
	case SourcePrimary:
		s.Primary = t
	case SourceMapping:
		s.Mapping = t
	case SourceCrossReference:
		s.CrossReference = t
	case SourceApplications:
		s.Applications = append(s.Applications, t)
	case SourceB2B:
		s.B2B = t
	case SourceERP:
		s.ERP = t
	default:
		return fmt.Errorf("%w: %q", ErrUnknownSource, t.Kind)
	}
	return nil
}

// Missing returns the required kinds that are absent.
func (s Sources) Missing() []SourceKind {
	var out []SourceKind
	if s.Primary == nil {
		out = append(out, SourcePrimary)
	}
	if s.Mapping == nil {
		out = append(out, SourceMapping)
	}
	return out
}

// tables returns every source in a fixed order for hashing.
func (s Sources) tables() []*Table {
	out := []*Table{s.Primary, s.Mapping, s.CrossReference, s.B2B, s.ERP}
	return append(out, s.Applications...)
}

// Options tunes a reconciliation pass.
type Options struct {
	MaxPairs int
}

func (o Options) maxPairs() int {
	if o.MaxPairs <= 0 {
		return DefaultMaxPairs
	}
	return o.MaxPairs
}

// Snapshot is the immutable result of a reconciliation pass. Every query
// reads it without locking; a new pass produces a new snapshot.
type Snapshot struct {
	ID           string
	Fingerprint  uint64
	CreatedAt    time.Time
	Primary      *View
	B2B          *View
	ERP          *View
	Applications []CompatibilityEntry
	Mapping      CategoryMapping
	Warnings     []Warning

	brands []string
}

// Reconcile runs a full pass over the sources. It fails when a required
// source is missing or a merge finds duplicate keys; missing optional
// columns become warnings.
func Reconcile(ctx context.Context, src Sources, opts Options) (*Snapshot, error) {
	return reconcile(ctx, src, opts, src.Fingerprint())
}

func reconcile(ctx context.Context, src Sources, opts Options, fingerprint uint64) (*Snapshot, error) {
	if missing := src.Missing(); len(missing) > 0 {
		return nil, &MissingSourceError{Source: missing[0]}
	}
	maxPairs := opts.maxPairs()
	snap := &Snapshot{
		ID:          uuid.NewString(),
		Fingerprint: fingerprint,
		CreatedAt:   time.Now(),
	}

	var xref *Table
	preAggregated := false
	if src.CrossReference != nil {
		wide, pre, err := PrepareCrossReference(src.CrossReference)
		if err := snap.absorb(err); err != nil {
			return nil, fmt.Errorf("prepare cross-reference: %w", err)
		}
		xref, preAggregated = wide, pre
	}
	xrefPairs := maxPairs
	if xref != nil {
		if preAggregated {
			xrefPairs = 0
		} else {
			snap.warnIgnored(xref, maxPairs)
		}
	}

	catalog := func(t *Table) (*View, error) {
		if t == nil {
			return nil, nil
		}
		v, warnings := BuildView(t, maxPairs)
		snap.Warnings = append(snap.Warnings, warnings...)
		if xref == nil || t.Kind == SourceERP {
			return v, nil
		}
		merged, err := Merge(v, xref, MergeOptions{PreAggregated: preAggregated, MaxPairs: xrefPairs})
		if err := snap.absorb(err); err != nil {
			return nil, fmt.Errorf("merge %s: %w", t.Kind, err)
		}
		if merged == nil {
			return v, nil
		}
		return merged, nil
	}

	var err error
	if snap.Primary, err = catalog(src.Primary); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if snap.B2B, err = catalog(src.B2B); err != nil {
		return nil, err
	}
	if snap.ERP, err = catalog(src.ERP); err != nil {
		return nil, err
	}

	var warnings []Warning
	snap.Mapping, warnings = BuildMapping(src.Mapping)
	snap.Warnings = append(snap.Warnings, warnings...)

	titles := make(map[CanonicalID]string, snap.Primary.Len())
	for _, r := range snap.Primary.Records {
		if _, ok := titles[r.Canonical]; !ok && !r.Canonical.IsZero() {
			titles[r.Canonical] = r.Title
		}
	}
	for _, t := range src.Applications {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if DetectLayout(t) == LayoutWide {
			snap.warnIgnored(t, maxPairs)
		}
		entries, err := Expand(t, maxPairs)
		if err := snap.absorb(err); err != nil {
			return nil, fmt.Errorf("expand %s: %w", t.Name, err)
		}
		for _, e := range entries {
			e.Title = titles[e.SKUCanonical]
			snap.Applications = append(snap.Applications, e)
		}
	}

	snap.brands = brandVocabulary(snap.Primary, snap.Applications)
	return snap, nil
}

// warnIgnored records a warning for every brand/reference column of a wide
// table indexed above the cap.
func (s *Snapshot) warnIgnored(t *Table, maxPairs int) {
	for _, col := range DiscoverSchema(t.Header, maxPairs).Ignored {
		s.Warnings = append(s.Warnings, Warning{Source: t.Kind, Column: col, Feature: ignoredPairFeature})
	}
}

// absorb records a missing-column error as a warning and returns any other error.
func (s *Snapshot) absorb(err error) error {
	if err == nil {
		return nil
	}
	var mc *MissingColumnError
	if errors.As(err, &mc) {
		s.Warnings = append(s.Warnings, mc.Warning())
		return nil
	}
	return err
}

// View returns the catalog view of a source kind. Absent optional sources
// yield an empty view.
func (s *Snapshot) View(kind SourceKind) (*View, error) {
	var v *View
	switch kind {
	case SourcePrimary:
		v = s.Primary
	case SourceB2B:
		v = s.B2B
	case SourceERP:
		v = s.ERP
	default:
		return nil, fmt.Errorf("%w: %q is not a catalog", ErrUnknownSource, kind)
	}
	if v == nil {
		return emptyView(kind), nil
	}
	return v, nil
}

// Categories returns the sorted distinct categories of the primary catalog.
func (s *Snapshot) Categories() []string {
	if !s.Primary.HasColumn(string(FieldCategory)) {
		return []string{}
	}
	return distinctValues(s.Primary.Records, string(FieldCategory))
}

// AttributesFor returns the mapped attributes of a category that exist in
// the primary catalog and carry at least one value in that category.
func (s *Snapshot) AttributesFor(category string) []string {
	records := s.Primary.Records
	if s.Primary.HasColumn(string(FieldCategory)) {
		records = partition(s.Primary, category)
	}
	out := activeAttributes(s.Primary, records, s.Mapping.Attributes(category))
	if out == nil {
		return []string{}
	}
	return out
}

// Filter evaluates a session filter state against the primary catalog.
func (s *Snapshot) Filter(st FilterState) (*FilterResult, error) {
	return evaluate(s.Primary, s.Mapping, st)
}

// Brands returns the brand vocabulary, sorted case-insensitively.
func (s *Snapshot) Brands() []string {
	return append([]string{}, s.brands...)
}

// ReferencesFor returns the references that co-occur with a brand.
func (s *Snapshot) ReferencesFor(brand string) []string {
	return referencesFor(s.Primary, s.Applications, brand)
}

// SearchByBrandReference finds the primary records carrying a brand and,
// optionally, a reference in the same group.
func (s *Snapshot) SearchByBrandReference(brand, reference string) (*SearchResult, error) {
	return searchByBrandReference(s.Primary, s.Applications, brand, reference)
}

// ApplicationsFor runs the SKU → brand → reference cascade over the application table.
func (s *Snapshot) ApplicationsFor(q ApplicationQuery) *ApplicationResult {
	return applicationsFor(s.Applications, q)
}

// RankBrands ranks the brand vocabulary against a free-text query.
func (s *Snapshot) RankBrands(query string, limit int) []BrandScore {
	return RankBrands(s.brands, query, limit)
}

// ExclusiveOf returns the records of catalog a absent from catalog b.
func (s *Snapshot) ExclusiveOf(a, b SourceKind) (*View, error) {
	va, err := s.View(a)
	if err != nil {
		return nil, err
	}
	vb, err := s.View(b)
	if err != nil {
		return nil, err
	}
	return ExclusiveOf(va, vb), nil
}

// Summary describes a snapshot for status endpoints.
type Summary struct {
	ID           string                `json:"id"`
	Fingerprint  string                `json:"fingerprint"`
	CreatedAt    time.Time             `json:"createdAt"`
	Records      map[SourceKind]int    `json:"records"`
	Categories   int                   `json:"categories"`
	Mapped       int                   `json:"mappedCategories"`
	Brands       int                   `json:"brands"`
	Schemas      map[SourceKind]Schema `json:"schemas"`
	Warnings     []Warning             `json:"warnings"`
	Applications int                   `json:"applications"`
}

// Summary reports counts and warnings of the snapshot.
func (s *Snapshot) Summary() Summary {
	sum := Summary{
		ID:           s.ID,
		Fingerprint:  strconv.FormatUint(s.Fingerprint, 16),
		CreatedAt:    s.CreatedAt,
		Records:      make(map[SourceKind]int),
		Schemas:      make(map[SourceKind]Schema),
		Categories:   len(s.Categories()),
		Mapped:       s.Mapping.Len(),
		Brands:       len(s.brands),
		Warnings:     append([]Warning{}, s.Warnings...),
		Applications: len(s.Applications),
	}
	for _, kind := range []SourceKind{SourcePrimary, SourceB2B, SourceERP} {
		v, _ := s.View(kind)
		sum.Records[kind] = v.Len()
		sum.Schemas[kind] = v.Schema
	}
	return sum
}

// RecordCounts returns the number of records per catalog.
func (s *Snapshot) RecordCounts() map[SourceKind]int {
	return s.Summary().Records
}

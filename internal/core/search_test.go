package core

import (
	"context"
	"errors"
	"testing"
)

func TestSearchByBrandReference(t *testing.T) {
	snap := fixtureSnapshot(t)

	tests := []struct {
		name      string
		brand     string
		reference string
		wantCodes []string
		wantRefs  []string // Reference column per row
	}{
		{"brand and same-index reference", "Ford", "Fiesta", []string{"00A-12"}, []string{"Fiesta"}},
		{"reference under another brand index", "Ford", "Serie 3", []string{}, nil},
		{"brand only", "ford", "", []string{"00A-12", "C3"}, []string{"Fiesta", ""}},
		{"multi-valued brand cell", "LANCIA", "ypsilon", []string{"00A-12"}, []string{"Ypsilon"}},
		{"brand only joins group references", "Fiat", "", []string{"00A-12"}, []string{"Panda, Ypsilon"}},
		{"unknown brand", "Opel", "", []string{}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := snap.SearchByBrandReference(tt.brand, tt.reference)
			if err != nil {
				t.Fatalf("SearchByBrandReference() error = %v", err)
			}
			if got := codes(res.Rows); !equalStrings(got, tt.wantCodes) {
				t.Fatalf("rows = %q, want %q", got, tt.wantCodes)
			}
			for i, r := range res.Rows.Records {
				if got := r.Value(ColumnMatchReference); got != tt.wantRefs[i] {
					t.Errorf("row %d Reference = %q, want %q", i, got, tt.wantRefs[i])
				}
				if r.Value(ColumnMatchBrand) == "" {
					t.Errorf("row %d has empty Brand column", i)
				}
			}
		})
	}
}

func TestSearchByBrandReference_MatchedSpelling(t *testing.T) {
	snap := fixtureSnapshot(t)
	res, err := snap.SearchByBrandReference("  fiat ", "")
	if err != nil {
		t.Fatalf("SearchByBrandReference() error = %v", err)
	}
	if got := res.Rows.Records[0].Value(ColumnMatchBrand); got != "Fiat" {
		t.Errorf("Brand = %q, want cell spelling %q", got, "Fiat")
	}
	want := []string{"product_code", "title", "category", ColumnMatchBrand, ColumnMatchReference}
	if !equalStrings(res.Rows.DisplayColumns(), want) {
		t.Errorf("DisplayColumns() = %q, want %q", res.Rows.DisplayColumns(), want)
	}
	if snap.Primary.Records[0].Value(ColumnMatchBrand) != "" {
		t.Error("search modified the snapshot records")
	}
}

func TestSearchByBrandReference_EmptyBrand(t *testing.T) {
	snap := fixtureSnapshot(t)
	_, err := snap.SearchByBrandReference("  ", "Panda")
	if !errors.Is(err, ErrInvalidSelection) {
		t.Errorf("error = %v, want ErrInvalidSelection", err)
	}
}

func TestBrands(t *testing.T) {
	snap := fixtureSnapshot(t)

	// ZZ9 (Audi) has no primary record; Renault comes from the application table
	want := []string{"BMW", "Fiat", "Ford", "Lancia", "Renault"}
	if got := snap.Brands(); !equalStrings(got, want) {
		t.Errorf("Brands() = %q, want %q", got, want)
	}
}

func TestReferencesFor(t *testing.T) {
	snap := fixtureSnapshot(t)

	tests := []struct {
		brand string
		want  []string
	}{
		{"Ford", []string{"Fiesta"}},
		{"fiat", []string{"Panda", "Punto", "Ypsilon"}},
		{"BMW", []string{"Serie 3"}},
		{"Renault", []string{"Clio"}},
		{"", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.brand, func(t *testing.T) {
			if got := snap.ReferencesFor(tt.brand); !equalStrings(got, tt.want) {
				t.Errorf("ReferencesFor(%q) = %q, want %q", tt.brand, got, tt.want)
			}
		})
	}
}

func TestApplicationsFor(t *testing.T) {
	snap := fixtureSnapshot(t)

	if len(snap.Applications) != 3 {
		t.Fatalf("len(Applications) = %d, want 3", len(snap.Applications))
	}
	for _, e := range snap.Applications {
		if e.SKUCanonical == "A12" && e.Title != "Filtro olio A12" {
			t.Errorf("entry %+v: title not taken from the primary catalog", e)
		}
	}

	tests := []struct {
		name       string
		q          ApplicationQuery
		wantBrands []string
		wantRefs   []string
		wantLen    int
	}{
		{"no selection", ApplicationQuery{}, []string{"Fiat", "Renault"}, []string{"Clio", "Panda", "Punto"}, 3},
		{"sku by canonical id", ApplicationQuery{SKU: "00A-12"}, []string{"Fiat"}, []string{"Panda", "Punto"}, 2},
		{"sku and reference", ApplicationQuery{SKU: "A12", Brand: "FIAT", Reference: "punto"}, []string{"Fiat"}, []string{"Panda", "Punto"}, 1},
		{"brand narrows references", ApplicationQuery{Brand: "renault"}, []string{"Fiat", "Renault"}, []string{"Clio"}, 1},
		{"unknown sku", ApplicationQuery{SKU: "Q1"}, []string{}, []string{}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := snap.ApplicationsFor(tt.q)
			if !equalStrings(res.SKUs, []string{"A12", "B7"}) {
				t.Errorf("SKUs = %q", res.SKUs)
			}
			if !equalStrings(res.Brands, tt.wantBrands) {
				t.Errorf("Brands = %q, want %q", res.Brands, tt.wantBrands)
			}
			if !equalStrings(res.References, tt.wantRefs) {
				t.Errorf("References = %q, want %q", res.References, tt.wantRefs)
			}
			if len(res.Entries) != tt.wantLen {
				t.Errorf("len(Entries) = %d, want %d", len(res.Entries), tt.wantLen)
			}
		})
	}
}

func TestApplicationResult_View(t *testing.T) {
	snap := fixtureSnapshot(t)
	v := snap.ApplicationsFor(ApplicationQuery{Brand: "Renault"}).View()

	if v.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", v.Len())
	}
	r := v.Records[0]
	if r.Value("sku") != "B7" || r.Value("title") != "Filtro aria B7" || r.Value("reference") != "Clio" {
		t.Errorf("record values = %v", r.Values)
	}
	if !equalStrings(v.DisplayColumns(), ApplicationColumns) {
		t.Errorf("DisplayColumns() = %q", v.DisplayColumns())
	}
}

func TestReconcile_LongSourcesNotCapped(t *testing.T) {
	xref := manyBrandsLong(12)
	xref.Kind = SourceCrossReference
	snap, err := Reconcile(context.Background(), Sources{
		Primary:        primaryTable(),
		Mapping:        mappingTable(),
		CrossReference: xref,
		Applications:   []*Table{manyBrandsLong(12)},
	}, Options{MaxPairs: 10})
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if len(snap.Warnings) != 0 {
		t.Errorf("Warnings = %v, want none", snap.Warnings)
	}
	if len(snap.Applications) != 12 {
		t.Errorf("len(Applications) = %d, want 12", len(snap.Applications))
	}

	res, err := snap.SearchByBrandReference("brand12", "model12")
	if err != nil {
		t.Fatalf("SearchByBrandReference() error = %v", err)
	}
	if got := codes(res.Rows); !equalStrings(got, []string{"00A-12"}) {
		t.Errorf("Brand12 rows = %q, want %q", got, []string{"00A-12"})
	}
	if got := len(snap.Brands()); got != 12 {
		t.Errorf("len(Brands()) = %d, want 12", got)
	}
}

func TestReconcile_WideCapWarns(t *testing.T) {
	xref := NewTable("x", SourceCrossReference,
		[]string{"sku", "brand_1", "reference_1", "brand_2", "reference_2"},
		[][]string{{"B7", "Fiat", "Uno", "Ford", "Ka"}})
	snap, err := Reconcile(context.Background(), Sources{
		Primary:        primaryTable(),
		Mapping:        mappingTable(),
		CrossReference: xref,
	}, Options{MaxPairs: 1})
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	var cols []string
	for _, w := range snap.Warnings {
		if w.Source == SourceCrossReference {
			cols = append(cols, w.Column)
		}
	}
	if !equalStrings(cols, []string{"brand_2", "reference_2"}) {
		t.Errorf("cross-reference warnings = %q, want brand_2 and reference_2", cols)
	}
}

func TestBrands_SplitsApplicationBrandCells(t *testing.T) {
	apps := NewTable("apps", SourceApplications,
		[]string{"sku", "brand_1", "reference_1"},
		[][]string{{"B7", "Case, New Holland", "T5"}})
	snap, err := Reconcile(context.Background(), Sources{
		Primary:      primaryTable(),
		Mapping:      mappingTable(),
		Applications: []*Table{apps},
	}, Options{})
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if got := snap.Brands(); !equalStrings(got, []string{"Case", "New Holland"}) {
		t.Errorf("Brands() = %q, want %q", got, []string{"Case", "New Holland"})
	}
	if got := snap.ReferencesFor("new holland"); !equalStrings(got, []string{"T5"}) {
		t.Errorf("ReferencesFor() = %q, want %q", got, []string{"T5"})
	}
}

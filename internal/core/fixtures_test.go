package core

import (
	"context"
	"testing"
)

func primaryTable() *Table {
	return NewTable("prodotti.xlsx", SourcePrimary,
		[]string{"product_code", "titolo_prodotto", "value_it", "colore", "materiale", "ama_stock_b2c", "sellout_ivato"},
		[][]string{
			{"00A-12", "Filtro olio A12", "Filtri", "nero", "", "5", "12,50"},
			{"B7", "Filtro aria B7", "Filtri", "", "carta", "0", "9.90"},
			{"C3", "Pastiglie C3", "Freni", "rosso", "ceramica", "n/a", "30"},
			{"D4", "Pastiglie D4", "Freni", "", "metallo", "2", "25"},
			{"---", "Senza codice", "Freni", "", "", "", ""},
		})
}

func mappingTable() *Table {
	return NewTable("split.xlsx", SourceMapping,
		[]string{"categoria", "attributo"},
		[][]string{
			{"Filtri", "colore"},
			{"Filtri", "materiale"},
			{"Filtri", "colore"},
			{"Filtri", "inesistente"},
			{"Freni", "materiale"},
			{"Freni", "colore"},
		})
}

func crossReferenceTable() *Table {
	return NewTable("codes.json", SourceCrossReference,
		[]string{"sku", "brand_1", "reference_1", "brand_2", "reference_2"},
		[][]string{
			{"A12", "Fiat, Lancia", "Panda, Ypsilon", "Ford", "Fiesta"},
			{"C3", "Ford", "", "BMW", "Serie 3"},
			{"ZZ9", "Audi", "A4", "", ""},
		})
}

func applicationsTable() *Table {
	return NewTable("apps.json", SourceApplications,
		[]string{"sku", "brand", "reference"},
		[][]string{
			{"A12", "Fiat", "Punto"},
			{"A12", "Fiat", "Panda"},
			{"B7", "Renault", "Clio"},
			{"B7", "", "X"},
		})
}

func b2bTable() *Table {
	return NewTable("b2b.csv", SourceB2B,
		[]string{"sku", "title"},
		[][]string{
			{"A12", "Filtro olio"},
			{"Q1", "Solo B2B"},
			{"...", "Senza codice"},
		})
}

func erpTable() *Table {
	return NewTable("erp.csv", SourceERP,
		[]string{"material_code", "descrizione"},
		[][]string{
			{"000D4", "Pastiglie"},
			{"E5", "Solo ERP"},
		})
}

func fixtureSources() Sources {
	return Sources{
		Primary:        primaryTable(),
		Mapping:        mappingTable(),
		CrossReference: crossReferenceTable(),
		Applications:   []*Table{applicationsTable()},
		B2B:            b2bTable(),
		ERP:            erpTable(),
	}
}

func fixtureSnapshot(t *testing.T) *Snapshot {
	t.Helper()
	snap, err := Reconcile(context.Background(), fixtureSources(), Options{MaxPairs: 10})
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	return snap
}

func codes(v *View) []string {
	out := make([]string, 0, v.Len())
	for _, r := range v.Records {
		out = append(out, r.ProductCode)
	}
	return out
}

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

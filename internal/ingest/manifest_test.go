package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/JonMunkholm/catalogrecon/internal/core"
)

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestManifest_Load(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"manifest.yaml": strings.Join([]string{
			"primary: prodotti.csv",
			"mapping: split.csv",
			"cross_reference: data/codici.json",
			"applications:",
			"  - app1.csv",
			"  - app2.csv",
			"b2b: b2b.csv",
		}, "\n"),
		"prodotti.csv":     "sku,titolo,value_it\nA12,Filtro,Filtri\nB7,Pastiglie,Freni\n",
		"split.csv":        "categoria;attributo\nFiltri;colore\n",
		"data/codici.json": `[{"sku":"A12","marca":"Ford","modello":"Fiesta"}]`,
		"app1.csv":         "sku,marca\nA12,Fiat\n",
		"app2.csv":         "sku,marca\nB7,BMW\n",
		"b2b.csv":          "sku,titolo\nQ1,Extra\n",
	})

	m, err := LoadManifest(filepath.Join(dir, "manifest.yaml"))
	if err != nil {
		t.Fatalf("LoadManifest() error = %v", err)
	}
	src, err := m.Load(t.Context())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	apps := 0
	for _, a := range src.Applications {
		apps += a.Len()
	}
	tests := []struct {
		name string
		tbl  *core.Table
		rows int
	}{
		{"primary", src.Primary, 2},
		{"mapping", src.Mapping, 1},
		{"cross_reference", src.CrossReference, 1},
		{"b2b", src.B2B, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.tbl == nil {
				t.Fatalf("source %s not loaded", tt.name)
			}
			if tt.tbl.Len() != tt.rows {
				t.Errorf("%s Len() = %d, want %d", tt.name, tt.tbl.Len(), tt.rows)
			}
		})
	}
	if len(src.Applications) != 2 || apps != 2 {
		t.Errorf("applications = %d tables, %d rows, want 2 and 2", len(src.Applications), apps)
	}
	if len(src.Applications) > 0 && src.Applications[0].Name != "app1.csv" {
		t.Errorf("applications kept out of manifest order: first is %q", src.Applications[0].Name)
	}
	if src.ERP != nil {
		t.Error("ERP source loaded but not named in the manifest")
	}

	// reconciliation accepts the loaded sources
	if _, err := core.Reconcile(context.Background(), src, core.Options{}); err != nil {
		t.Errorf("Reconcile() error = %v", err)
	}
}

func TestManifest_LoadMissingFile(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"prodotti.csv": "sku\nA12\n",
	})
	m := &Manifest{Primary: "prodotti.csv", Mapping: "split.csv", dir: dir}

	_, err := m.Load(t.Context())
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Load() error = %v, want os.ErrNotExist", err)
	}
	if err != nil && !strings.Contains(err.Error(), "load mapping source") {
		t.Errorf("Load() error = %q, want it to name the source", err)
	}
}

func TestManifest_FileSizeLimit(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"prodotti.csv": "sku,titolo\n" + strings.Repeat("A12,Filtro\n", 50),
		"split.csv":    "categoria,attributo\nFiltri,colore\n",
	})
	m := &Manifest{Primary: "prodotti.csv", Mapping: "split.csv", MaxFileSize: 100, dir: dir}

	if _, err := m.Load(t.Context()); !errors.Is(err, ErrFileTooLarge) {
		t.Errorf("Load() error = %v, want ErrFileTooLarge", err)
	}
}

func TestDecodeManifest(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr bool
	}{
		{"minimal", "primary: p.csv\nmapping: m.csv\n", false},
		{"with limit", "primary: p.csv\nmapping: m.csv\nmax_file_size: 1024\n", false},
		{"missing primary", "mapping: m.csv\n", true},
		{"missing mapping", "primary: p.csv\n", true},
		{"unknown key", "primary: p.csv\nmapping: m.csv\nsupplier: s.csv\n", true},
		{"not yaml", "primary: [unclosed", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeManifest([]byte(tt.yaml))
			if (err != nil) != tt.wantErr {
				t.Errorf("DecodeManifest() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestManifest_RelativePaths(t *testing.T) {
	m, err := DecodeManifest([]byte("primary: p.csv\nmapping: /abs/m.csv\napplications: [a.csv]\n"))
	if err != nil {
		t.Fatalf("DecodeManifest() error = %v", err)
	}
	m.dir = "/data/run"

	want := []manifestEntry{
		{core.SourcePrimary, "/data/run/p.csv"},
		{core.SourceMapping, "/abs/m.csv"},
		{core.SourceApplications, "/data/run/a.csv"},
	}
	got := m.entries()
	if len(got) != len(want) {
		t.Fatalf("entries() = %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("entries()[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}

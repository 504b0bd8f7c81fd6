package ingest

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/JonMunkholm/catalogrecon/internal/core"
)

// manifestConcurrency bounds the files parsed at once by Manifest.Load.
const manifestConcurrency = 4

// Manifest names the files of one reconciliation run:
//
//	primary: prodotti.xlsx
//	mapping: split.xlsx
//	cross_reference: codici_originali.json
//	applications:
//	  - applicazioni.json
//	b2b: b2b.csv
//	erp: erp.csv
//
// Relative paths are resolved against the manifest's directory.
type Manifest struct {
	Primary        string   `yaml:"primary"`
	Mapping        string   `yaml:"mapping"`
	CrossReference string   `yaml:"cross_reference"`
	Applications   []string `yaml:"applications"`
	B2B            string   `yaml:"b2b"`
	ERP            string   `yaml:"erp"`

	// MaxFileSize caps each file; <= 0 uses DefaultMaxFileSize.
	MaxFileSize int64 `yaml:"max_file_size"`

	dir string
}

// LoadManifest reads a YAML manifest. Unknown keys are rejected.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	m, err := DecodeManifest(data)
	if err != nil {
		return nil, fmt.Errorf("manifest %s: %w", path, err)
	}
	m.dir = filepath.Dir(path)
	return m, nil
}

// DecodeManifest parses manifest YAML. Relative paths resolve against the
// working directory.
func DecodeManifest(data []byte) (*Manifest, error) {
	var m Manifest
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	if m.Primary == "" || m.Mapping == "" {
		return nil, fmt.Errorf("manifest must name the primary and mapping files")
	}
	return &m, nil
}

type manifestEntry struct {
	kind core.SourceKind
	path string
}

func (m *Manifest) entries() []manifestEntry {
	var out []manifestEntry
	add := func(kind core.SourceKind, path string) {
		if path == "" {
			return
		}
		if !filepath.IsAbs(path) && m.dir != "" {
			path = filepath.Join(m.dir, path)
		}
		out = append(out, manifestEntry{kind: kind, path: path})
	}
	add(core.SourcePrimary, m.Primary)
	add(core.SourceMapping, m.Mapping)
	add(core.SourceCrossReference, m.CrossReference)
	for _, p := range m.Applications {
		add(core.SourceApplications, p)
	}
	add(core.SourceB2B, m.B2B)
	add(core.SourceERP, m.ERP)
	return out
}

// Load parses every file of the manifest concurrently. The first failure
// cancels the remaining parses.
func (m *Manifest) Load(ctx context.Context) (core.Sources, error) {
	entries := m.entries()
	tables := make([]*core.Table, len(entries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(manifestConcurrency)
	for i, e := range entries {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			t, err := readFile(e.kind, e.path, m.MaxFileSize)
			if err != nil {
				return fmt.Errorf("load %s source: %w", e.kind, err)
			}
			slog.Debug("source loaded", "source", e.kind, "file", e.path, "rows", t.Len(), "columns", len(t.Header))
			tables[i] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return core.Sources{}, err
	}

	var src core.Sources
	for _, t := range tables {
		if err := src.Set(t); err != nil {
			return core.Sources{}, err
		}
	}
	return src, nil
}

func readFile(kind core.SourceKind, path string, limit int64) (*core.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(kind, filepath.Base(path), f, limit)
}

package core

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Field is a logical column name shared by every source layout.
type Field string

const (
	FieldProductCode Field = "product_code"
	FieldTitle       Field = "title"
	FieldCategory    Field = "category"
	FieldStock       Field = "stock"
	FieldPrice       Field = "price"
	FieldAttribute   Field = "attribute"
	FieldSKU         Field = "sku"
	FieldBrand       Field = "brand"
	FieldReference   Field = "reference"
)

// FieldSpec describes one logical field of a source and how to find it.
type FieldSpec struct {
	Name     Field     // Logical name; resolved columns are renamed to it
	Aliases  []string  // Accepted header names, matched case-insensitively
	Type     FieldType // Expected data type
	Required bool      // Reconciliation warns when the column is absent
}

// SourceDefinition contains everything needed to read one source kind.
type SourceDefinition struct {
	Kind      SourceKind
	Label     string
	Required  bool // Reconciliation fails without this source
	AllSheets bool // Spreadsheet sources concatenate every sheet
	Fields    []FieldSpec
}

// Field returns the spec for a logical field.
func (d SourceDefinition) Field(name Field) (FieldSpec, bool) {
	for _, f := range d.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// Resolve maps each logical field to its column position in the header.
// The first alias present wins; the logical name itself is always accepted.
func (d SourceDefinition) Resolve(idx HeaderIndex) map[Field]int {
	out := make(map[Field]int, len(d.Fields))
	for _, f := range d.Fields {
		candidates := append([]string{string(f.Name)}, f.Aliases...)
		for _, alias := range candidates {
			if pos, ok := idx[strings.ToLower(alias)]; ok {
				out[f.Name] = pos
				break
			}
		}
	}
	return out
}

var (
	registry   = make(map[SourceKind]SourceDefinition)
	registryMu sync.RWMutex
)

// Register adds a source definition to the registry.
// Panics if a definition with the same kind is already registered.
func Register(def SourceDefinition) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[def.Kind]; exists {
		panic(fmt.Sprintf("source already registered: %s", def.Kind))
	}
	if def.Label == "" {
		def.Label = string(def.Kind)
	}

	registry[def.Kind] = def
}

// Definition returns a source definition by kind.
// Returns false if not found.
func Definition(kind SourceKind) (SourceDefinition, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	def, ok := registry[kind]
	return def, ok
}

// Definitions returns all registered source definitions.
// Required sources come first, then by kind for consistent ordering.
func Definitions() []SourceDefinition {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]SourceDefinition, 0, len(registry))
	for _, def := range registry {
		result = append(result, def)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Required != result[j].Required {
			return result[i].Required
		}
		return result[i].Kind < result[j].Kind
	})

	return result
}

// mustDefinition returns a registered definition or a bare one for unknown kinds.
func mustDefinition(kind SourceKind) SourceDefinition {
	if def, ok := Definition(kind); ok {
		return def
	}
	return SourceDefinition{Kind: kind, Label: string(kind)}
}

package core

// Built-in source definitions. Aliases cover the English headers and the
// Italian headers of the marketplace exports.

var (
	productCodeField = FieldSpec{Name: FieldProductCode, Aliases: []string{"sku", "codice", "codice_prodotto"}, Required: true}
	titleField       = FieldSpec{Name: FieldTitle, Aliases: []string{"titolo_prodotto", "titolo", "description", "descrizione"}}
	categoryField    = FieldSpec{Name: FieldCategory, Aliases: []string{"value_it", "categoria"}}
	stockField       = FieldSpec{Name: FieldStock, Aliases: []string{"ama_stock_b2c", "qty", "quantity", "giacenza"}, Type: FieldTypeNumeric}
	priceField       = FieldSpec{Name: FieldPrice, Aliases: []string{"sellout_ivato", "prezzo"}, Type: FieldTypeNumeric}

	crossReferenceFields = []FieldSpec{
		{Name: FieldSKU, Aliases: []string{"product_code", "codice"}, Required: true},
		{Name: FieldBrand, Aliases: []string{"marca"}, Type: FieldTypeMulti},
		{Name: FieldReference, Aliases: []string{"riferimento", "modello"}, Type: FieldTypeMulti},
	}
)

func init() {
	Register(SourceDefinition{
		Kind:     SourcePrimary,
		Label:    "Primary catalog",
		Required: true,
		Fields:   []FieldSpec{productCodeField, titleField, categoryField, stockField, priceField},
	})
	Register(SourceDefinition{
		Kind:      SourceMapping,
		Label:     "Category attributes",
		Required:  true,
		AllSheets: true,
		Fields: []FieldSpec{
			{Name: FieldCategory, Aliases: []string{"categoria", "value_it"}, Required: true},
			{Name: FieldAttribute, Aliases: []string{"attributo", "attributes"}, Required: true},
		},
	})
	Register(SourceDefinition{
		Kind:   SourceCrossReference,
		Label:  "Cross-reference codes",
		Fields: crossReferenceFields,
	})
	Register(SourceDefinition{
		Kind:   SourceApplications,
		Label:  "Applications",
		Fields: crossReferenceFields,
	})
	Register(SourceDefinition{
		Kind:   SourceB2B,
		Label:  "B2B catalog",
		Fields: []FieldSpec{productCodeField, titleField, categoryField, stockField, priceField},
	})
	Register(SourceDefinition{
		Kind:  SourceERP,
		Label: "ERP extract",
		Fields: []FieldSpec{
			{Name: FieldProductCode, Aliases: []string{"material_code", "material", "materiale", "sku"}, Required: true},
			titleField,
			stockField,
			priceField,
		},
	})
}

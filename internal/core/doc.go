// Package core provides the catalog reconciliation logic.
//
// This package holds all domain logic independent of any transport or
// presentation layer. It can be used by the HTTP adapter, the CLI, or tests
// without modification.
//
// # Architecture
//
// A reconciliation pass turns raw [Table] values into an immutable [Snapshot]:
//
//  1. [Normalize] derives a [CanonicalID] from every product code.
//  2. [BuildView] turns each catalog table into a [View] of [Record] values.
//  3. [ToWide] and [Expand] convert cross-reference tables between the wide
//     brand_i/reference_i layout and the long [CompatibilityEntry] layout.
//  4. [Merge] left-joins the cross-reference table onto the catalog views.
//  5. [BuildMapping] groups the category→attribute mapping table.
//
// Queries run against the snapshot through [Service] and never modify it.
// Per-session filter selections are carried in a [FilterState] value owned by
// the caller; [Snapshot.Filter] evaluates a state into a [FilterResult].
//
// # Source Registry
//
// Each [SourceKind] has a [SourceDefinition] listing its logical fields and
// the header aliases accepted for them. Built-in definitions are registered at
// init time; additional ones can be added with [Register]:
//
//	core.Register(SourceDefinition{
//	    Kind:  "supplier",
//	    Label: "Supplier catalog",
//	    Fields: []FieldSpec{
//	        {Name: FieldProductCode, Aliases: []string{"supplier_code"}, Required: true},
//	        {Name: FieldTitle, Aliases: []string{"name"}},
//	    },
//	})
//
// # Error Handling
//
// Structural failures are typed: [MissingSourceError], [MissingColumnError],
// [DuplicateKeyError], [UnknownColumnError]. A missing optional column never
// fails a pass; it becomes a [Warning] on the snapshot and disables the
// feature that needed it. Technical errors are mapped to user-friendly
// messages with [MapError]:
//
//   - SRC001-SRC003: Source errors (missing, duplicate keys, unknown kind)
//   - COL001-COL002: Column errors (missing, unknown)
//   - QRY001-QRY002: Query errors (no snapshot, invalid selection)
//   - FILE001-FILE008: File errors (size, encoding, format)
//   - UPL001-UPL003: Upload errors (busy, cancelled, timeout)
//   - SES001-SES002: Session errors
package core

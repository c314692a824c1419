// =============================================================================
// Accounting Export Mapper - Field Catalogs
// =============================================================================
//
// A catalog lists the target fields of one document subtype. This package
// holds the read-only catalog registry and the built-in JPK_V7 catalogs used
// when no catalog file is configured.
//
// The built-in field names follow the element names of the JPK_V7 schema
// (SprzedazWiersz and ZakupWiersz). Labels and synonyms are the column
// captions commonly found in Polish accounting exports.
//
// =============================================================================

package catalog

import (
	"sort"

	"github.com/ginjaninja78/jpk-mapper/internal/types"
)

// Built-in subtypes.
const (
	SubtypeSales    = "sales"
	SubtypePurchase = "purchase"
)

// Registry maps document subtypes to catalogs. It is built once and only
// read afterwards.
type Registry struct {
	catalogs map[string]*types.Catalog
}

// NewRegistry wraps a set of catalogs.
func NewRegistry(catalogs map[string]*types.Catalog) *Registry {
	r := &Registry{catalogs: make(map[string]*types.Catalog, len(catalogs))}
	for subtype, c := range catalogs {
		r.catalogs[subtype] = c
	}
	return r
}

// Builtin returns a registry with the sales and purchase catalogs.
func Builtin() *Registry {
	return NewRegistry(map[string]*types.Catalog{
		SubtypeSales:    Sales(),
		SubtypePurchase: Purchase(),
	})
}

// Get returns the catalog of a subtype.
func (r *Registry) Get(subtype string) (*types.Catalog, bool) {
	if r == nil {
		return nil, false
	}
	c, ok := r.catalogs[subtype]
	return c, ok
}

// Catalogs returns a copy of the subtype to catalog association.
func (r *Registry) Catalogs() map[string]*types.Catalog {
	if r == nil {
		return nil
	}
	out := make(map[string]*types.Catalog, len(r.catalogs))
	for subtype, c := range r.catalogs {
		out[subtype] = c
	}
	return out
}

// Subtypes lists the registered subtypes in sorted order.
func (r *Registry) Subtypes() []string {
	if r == nil {
		return nil
	}
	out := make([]string, 0, len(r.catalogs))
	for s := range r.catalogs {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// =============================================================================
// BUILT-IN CATALOGS
// =============================================================================

// Sales is the JPK_V7 sales register row.
func Sales() *types.Catalog {
	return types.NewCatalog(SubtypeSales, []types.FieldDefinition{
		{Name: "LpSprzedazy", Label: "Lp", Type: types.FieldInteger,
			Synonyms: []string{"lp", "l.p.", "numer wiersza"}},
		{Name: "KodKrajuNadaniaTIN", Label: "Kod kraju", Type: types.FieldCountry,
			Synonyms: []string{"kraj", "kod kraju nabywcy", "country"}},
		{Name: "NrKontrahenta", Label: "NIP kontrahenta", Type: types.FieldNIP,
			Synonyms: []string{"nip", "nip nabywcy", "nr nip"}},
		{Name: "NazwaKontrahenta", Label: "Nazwa kontrahenta", Type: types.FieldString, Required: true,
			Synonyms: []string{"kontrahent", "nabywca", "nazwa nabywcy", "odbiorca"}},
		{Name: "DowodSprzedazy", Label: "Numer faktury", Type: types.FieldString, Required: true,
			Synonyms: []string{"nr faktury", "numer dokumentu", "dokument", "faktura"}},
		{Name: "DataWystawienia", Label: "Data wystawienia", Type: types.FieldDate, Required: true,
			Synonyms: []string{"data faktury", "data dokumentu"}},
		{Name: "DataSprzedazy", Label: "Data sprzedaży", Type: types.FieldDate,
			Synonyms: []string{"data dostawy"}},
		{Name: "K_19", Label: "Netto 23%", Type: types.FieldDecimal,
			Synonyms: []string{"netto 23", "podstawa 23", "kwota netto"}},
		{Name: "K_20", Label: "VAT 23%", Type: types.FieldDecimal,
			Synonyms: []string{"vat 23", "podatek 23", "kwota vat"}},
		{Name: "K_17", Label: "Netto 8%", Type: types.FieldDecimal,
			Synonyms: []string{"netto 8", "podstawa 8"}},
		{Name: "K_18", Label: "VAT 8%", Type: types.FieldDecimal,
			Synonyms: []string{"vat 8", "podatek 8"}},
		{Name: "K_15", Label: "Netto 5%", Type: types.FieldDecimal,
			Synonyms: []string{"netto 5", "podstawa 5"}},
		{Name: "K_16", Label: "VAT 5%", Type: types.FieldDecimal,
			Synonyms: []string{"vat 5", "podatek 5"}},
		{Name: "K_13", Label: "Netto 0%", Type: types.FieldDecimal,
			Synonyms: []string{"netto 0", "podstawa 0"}},
		{Name: "K_10", Label: "Zwolnione", Type: types.FieldDecimal,
			Synonyms: []string{"sprzedaz zwolniona", "zw"}},
		{Name: "GTU_01", Label: "GTU 01", Type: types.FieldBoolean},
		{Name: "MPP", Label: "Podzielona płatność", Type: types.FieldBoolean,
			Synonyms: []string{"split payment", "mpp"}},
		{Name: "TypDokumentu", Label: "Typ dokumentu", Type: types.FieldString,
			Pattern: `^(RO|WEW|FP)$`},
	})
}

// Purchase is the JPK_V7 purchase register row.
func Purchase() *types.Catalog {
	return types.NewCatalog(SubtypePurchase, []types.FieldDefinition{
		{Name: "LpZakupu", Label: "Lp", Type: types.FieldInteger,
			Synonyms: []string{"lp", "l.p.", "numer wiersza"}},
		{Name: "KodKrajuNadaniaTIN", Label: "Kod kraju", Type: types.FieldCountry,
			Synonyms: []string{"kraj", "kod kraju dostawcy", "country"}},
		{Name: "NrDostawcy", Label: "NIP dostawcy", Type: types.FieldNIP, Required: true,
			Synonyms: []string{"nip", "nip sprzedawcy", "nr nip"}},
		{Name: "NazwaDostawcy", Label: "Nazwa dostawcy", Type: types.FieldString, Required: true,
			Synonyms: []string{"dostawca", "sprzedawca", "kontrahent"}},
		{Name: "DowodZakupu", Label: "Numer faktury", Type: types.FieldString, Required: true,
			Synonyms: []string{"nr faktury", "numer dokumentu", "dokument", "faktura"}},
		{Name: "DataZakupu", Label: "Data zakupu", Type: types.FieldDate, Required: true,
			Synonyms: []string{"data faktury", "data wystawienia"}},
		{Name: "DataWplywu", Label: "Data wpływu", Type: types.FieldDate,
			Synonyms: []string{"data otrzymania", "data ksiegowania"}},
		{Name: "K_42", Label: "Netto pozostałe", Type: types.FieldDecimal,
			Synonyms: []string{"netto", "kwota netto", "wartosc netto"}},
		{Name: "K_43", Label: "VAT pozostałe", Type: types.FieldDecimal,
			Synonyms: []string{"vat", "kwota vat", "podatek"}},
		{Name: "K_40", Label: "Netto środki trwałe", Type: types.FieldDecimal,
			Synonyms: []string{"netto st", "netto srodki trwale"}},
		{Name: "K_41", Label: "VAT środki trwałe", Type: types.FieldDecimal,
			Synonyms: []string{"vat st", "vat srodki trwale"}},
		{Name: "MPP", Label: "Podzielona płatność", Type: types.FieldBoolean,
			Synonyms: []string{"split payment", "mpp"}},
		{Name: "IMP", Label: "Import", Type: types.FieldBoolean,
			Synonyms: []string{"import uslug"}},
	})
}

// Package mapping proposes which source column feeds each import field.
package mapping

import (
	"strings"

	"github.com/kosarica/import-wizard/internal/types"
)

// aliases lists normalized header spellings per field, most specific first.
// Croatian headers are common in retailer exports.
var aliases = map[types.FieldKey][]string{
	types.FieldProductName: {"product_name", "productname", "name", "product", "naziv_proizvoda", "naziv_artikla", "naziv", "artikl", "proizvod", "title", "description", "opis"},
	types.FieldExpiryDate:  {"expiry_date", "expirydate", "expiry", "expires", "expiration_date", "best_before", "bbd", "rok_trajanja", "rok_upotrebe", "datum_isteka", "rok", "istek"},
	types.FieldQuantity:    {"quantity", "qty", "stock", "count", "amount", "kolicina", "zaliha", "kom"},
	types.FieldPrice:       {"price", "unit_price", "retail_price", "mpc", "cijena", "maloprodajna_cijena", "cijena_eur", "vpc"},
	types.FieldBarcode:     {"barcode", "ean", "ean13", "ean_13", "gtin", "upc", "barkod", "bar_kod"},
	types.FieldSKU:         {"sku", "article_code", "item_code", "code", "sifra", "sifra_artikla", "sifra_proizvoda", "id_artikla"},
	types.FieldBrand:       {"brand", "manufacturer", "marka", "proizvodjac", "robna_marka"},
	types.FieldCategory:    {"category", "group", "kategorija", "grupa", "grupa_proizvoda", "odjel"},
	types.FieldUnit:        {"unit", "uom", "measure", "jedinica", "jedinica_mjere", "jmj", "jm"},
}

// Suggest proposes a column for every field it can recognise. Exact alias
// matches win over substring matches, each column feeds at most one field,
// and fields are resolved in AllFields order so required fields claim their
// column first.
func Suggest(columns []string) types.ColumnMapping {
	normalized := make([]string, len(columns))
	for i, c := range columns {
		normalized[i] = NormalizeHeader(c)
	}

	mapping := types.ColumnMapping{}
	used := make(map[int]bool, len(columns))

	claim := func(field types.FieldKey, match func(header, alias string) bool) {
		if _, done := mapping[field]; done {
			return
		}
		for _, alias := range aliases[field] {
			for i, header := range normalized {
				if used[i] || header == "" {
					continue
				}
				if match(header, alias) {
					mapping[field] = columns[i]
					used[i] = true
					return
				}
			}
		}
	}

	exact := func(header, alias string) bool { return header == alias }
	partial := func(header, alias string) bool {
		// Short aliases only match whole underscore-separated words.
		if len(alias) <= 3 {
			for _, word := range strings.Split(header, "_") {
				if word == alias {
					return true
				}
			}
			return false
		}
		return strings.Contains(header, alias)
	}

	for _, field := range types.AllFields() {
		claim(field, exact)
	}
	for _, field := range types.AllFields() {
		claim(field, partial)
	}
	return mapping
}

// Merge applies explicit overrides on top of a suggested mapping. An override
// with an empty column removes the field.
func Merge(suggested types.ColumnMapping, overrides map[types.FieldKey]string) types.ColumnMapping {
	out := suggested.Clone()
	for field, column := range overrides {
		if column == "" {
			delete(out, field)
			continue
		}
		out[field] = column
	}
	return out
}

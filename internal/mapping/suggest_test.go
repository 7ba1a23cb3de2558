package mapping

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kosarica/import-wizard/internal/types"
)

func TestNormalizeHeader(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Rok trajanja (DD.MM.)", "rok_trajanja_dd_mm"},
		{"  Količina ", "kolicina"},
		{"Proizvođač", "proizvodjac"},
		{"Unit-Price", "unit_price"},
		{"---", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeHeader(tt.input))
		})
	}
}

func TestRemoveDiacritics(t *testing.T) {
	assert.Equal(t, "Cokolada", RemoveDiacritics("Čokolada"))
	assert.Equal(t, "Djuro", RemoveDiacritics("Đuro"))
	assert.Equal(t, "Creme brulee", RemoveDiacritics("Crème brûlée"))
}

func TestSuggest(t *testing.T) {
	tests := []struct {
		name     string
		columns  []string
		expected types.ColumnMapping
	}{
		{
			name:    "croatian export",
			columns: []string{"Naziv", "Rok trajanja", "Količina", "Cijena", "EAN", "Šifra", "Marka"},
			expected: types.ColumnMapping{
				types.FieldProductName: "Naziv",
				types.FieldExpiryDate:  "Rok trajanja",
				types.FieldQuantity:    "Količina",
				types.FieldPrice:       "Cijena",
				types.FieldBarcode:     "EAN",
				types.FieldSKU:         "Šifra",
				types.FieldBrand:       "Marka",
			},
		},
		{
			name:    "substring fallback",
			columns: []string{"Product Name", "Expiry", "Qty", "Unit Price (EUR)"},
			expected: types.ColumnMapping{
				types.FieldProductName: "Product Name",
				types.FieldExpiryDate:  "Expiry",
				types.FieldQuantity:    "Qty",
				types.FieldPrice:       "Unit Price (EUR)",
			},
		},
		{
			name:     "nothing recognisable",
			columns:  []string{"Col A", "Col B"},
			expected: types.ColumnMapping{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Suggest(tt.columns))
		})
	}
}

func TestSuggestColumnFeedsOneField(t *testing.T) {
	got := Suggest([]string{"price"})
	assert.Equal(t, types.ColumnMapping{types.FieldPrice: "price"}, got)
}

func TestMerge(t *testing.T) {
	suggested := types.ColumnMapping{
		types.FieldProductName: "Naziv",
		types.FieldBrand:       "Marka",
	}

	merged := Merge(suggested, map[types.FieldKey]string{
		types.FieldPrice: "MPC",
		types.FieldBrand: "",
	})

	assert.Equal(t, types.ColumnMapping{
		types.FieldProductName: "Naziv",
		types.FieldPrice:       "MPC",
	}, merged)
	assert.Equal(t, "Marka", suggested[types.FieldBrand])
}

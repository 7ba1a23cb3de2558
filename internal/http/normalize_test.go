package http

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kosarica/import-wizard/internal/types"
)

func decode(t *testing.T, body string) map[string]any {
	t.Helper()
	root, err := decodeObject([]byte(body))
	require.NoError(t, err)
	return root
}

func TestNormalizePreviewNamingConventions(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{
			name: "camelCase",
			body: `{"totalRows":10,"retained":6,"expired":2,"skippedZeroQty":1,"dealCount":2,
				"totalOriginal":20.5,"totalFinal":14.25,
				"deals":[{"id":"d1","productName":"Mlijeko","daysLeft":1,"quantity":3,"originalPrice":1.5,"finalPrice":0.75,"discountPct":50},
				         {"id":"d2","productName":"Sir","daysLeft":4,"quantity":2,"originalPrice":9.5,"finalPrice":6.65,"discountPct":30}]}`,
		},
		{
			name: "snake_case nested summary",
			body: `{"summary":{"total_rows":10,"retained":6,"expired":2,"skipped_zero_qty":1,"deal_count":2,
				"total_original":"20.5","total_final":14.25},
				"items":[{"deal_id":"d1","product_name":"Mlijeko","days_left":1,"qty":"3","original_price":1.5,"final_price":0.75,"discount_pct":50},
				         {"deal_id":"d2","product_name":"Sir","days_left":4,"qty":2,"original_price":9.5,"final_price":6.65,"discount_pct":30}]}`,
		},
	}

	expected := &types.ImportPreview{
		TotalRows: 10, Retained: 6, Expired: 2, Ignored: 1, DealCount: 2,
		TotalOriginal: 20.5, TotalFinal: 14.25,
		Items: []types.ImportPreviewItem{
			{ID: "d1", ProductName: "Mlijeko", DaysLeft: 1, Quantity: 3, OriginalPrice: 1.5, FinalPrice: 0.75, DiscountPct: 50},
			{ID: "d2", ProductName: "Sir", DaysLeft: 4, Quantity: 2, OriginalPrice: 9.5, FinalPrice: 6.65, DiscountPct: 30},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, expected, normalizePreview(decode(t, tt.body)))
		})
	}
}

func TestNormalizePreviewDefaults(t *testing.T) {
	preview := normalizePreview(decode(t, `{"deals":[{"productName":null},{"product_name":"Kruh"}],"expired":null}`))

	assert.Equal(t, 0, preview.TotalRows)
	assert.Equal(t, 0, preview.Expired)
	assert.Equal(t, 0.0, preview.TotalFinal)
	require.Len(t, preview.Items, 2)
	assert.Equal(t, "1", preview.Items[0].ID)
	assert.Equal(t, "", preview.Items[0].ProductName)
	assert.Equal(t, "Kruh", preview.Items[1].ProductName)
	assert.Equal(t, 0.0, preview.Items[1].FinalPrice)

	empty := normalizePreview(decode(t, `{}`))
	assert.NotNil(t, empty.Items)
	assert.Empty(t, empty.Items)
}

func TestNormalizeParseDefaults(t *testing.T) {
	result := normalizeParse(decode(t, `{}`))

	assert.NotNil(t, result.Columns)
	assert.NotNil(t, result.Rows)
	assert.NotNil(t, result.Errors)
	assert.Empty(t, result.Rows)
}

func TestNormalizeConfirm(t *testing.T) {
	assert.Equal(t, &types.ConfirmResult{ImportID: "imp_1", Created: 12},
		normalizeConfirm(decode(t, `{"import_id":"imp_1","created_count":12}`)))
	assert.Equal(t, &types.ConfirmResult{ImportID: "7"},
		normalizeConfirm(decode(t, `{"id":7}`)))
}

func TestAsFloat(t *testing.T) {
	tests := []struct {
		in       any
		expected float64
	}{
		{2.5, 2.5},
		{"3,75", 3.75},
		{" 4 ", 4},
		{"abc", 0},
		{json.Number("1.5"), 1.5},
		{true, 0},
		{nil, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, asFloat(tt.in))
	}
}

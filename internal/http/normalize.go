package http

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/kosarica/import-wizard/internal/types"
)

// The remote service has shipped several spellings per logical field. The
// lists below are tried in order; absent numbers become 0, absent lists empty.
var (
	parseColumnKeys = []string{"columns", "headers", "columnNames", "column_names"}
	parseRowKeys    = []string{"rows", "data", "records"}
	parseErrorKeys  = []string{"errors", "parseErrors", "parse_errors", "issues"}

	issueRowKeys     = []string{"row", "rowNumber", "row_number", "line"}
	issueFieldKeys   = []string{"field", "column"}
	issueMessageKeys = []string{"message", "issue", "error", "reason"}

	summaryKeys       = []string{"summary", "stats"}
	totalRowsKeys     = []string{"totalRows", "total_rows", "total"}
	retainedKeys      = []string{"retained", "retainedRows", "retained_rows"}
	expiredKeys       = []string{"expired", "expiredRows", "expired_rows"}
	ignoredKeys       = []string{"skippedZeroQty", "skipped_zero_qty", "ignored"}
	dealCountKeys     = []string{"dealCount", "deal_count", "deals_count"}
	totalOriginalKeys = []string{"totalOriginal", "total_original", "originalTotal", "original_total"}
	totalFinalKeys    = []string{"totalFinal", "total_final", "finalTotal", "final_total"}
	dealListKeys      = []string{"deals", "items", "preview"}

	dealIDKeys       = []string{"id", "dealId", "deal_id", "sku"}
	dealNameKeys     = []string{"productName", "product_name", "name"}
	dealBrandKeys    = []string{"brand"}
	dealCategoryKeys = []string{"category"}
	dealBarcodeKeys  = []string{"barcode", "ean"}
	dealExpiryKeys   = []string{"expiryDate", "expiry_date", "expiresAt", "expires_at"}
	dealDaysKeys     = []string{"daysLeft", "days_left", "daysToExpiry", "days_to_expiry"}
	dealQtyKeys      = []string{"quantity", "qty", "stock"}
	dealOrigKeys     = []string{"originalPrice", "original_price", "price"}
	dealFinalKeys    = []string{"finalPrice", "final_price", "discountedPrice", "discounted_price"}
	dealDiscountKeys = []string{"discountPct", "discount_pct", "discountPercent", "discount"}

	confirmIDKeys      = []string{"importId", "import_id", "id"}
	confirmCreatedKeys = []string{"created", "createdCount", "created_count", "dealCount", "deal_count"}
)

func normalizeParse(root map[string]any) *types.ParseResult {
	result := &types.ParseResult{
		Columns: []string{},
		Rows:    []types.RawRow{},
		Errors:  []types.RowIssue{},
	}
	sources := []map[string]any{root}

	for _, v := range lookupList(sources, parseColumnKeys) {
		if s := asString(v); s != "" {
			result.Columns = append(result.Columns, s)
		}
	}
	for _, v := range lookupList(sources, parseRowKeys) {
		if m, ok := v.(map[string]any); ok {
			result.Rows = append(result.Rows, types.RawRow(m))
		}
	}
	for _, v := range lookupList(sources, parseErrorKeys) {
		m, ok := v.(map[string]any)
		if !ok {
			if s := asString(v); s != "" {
				result.Errors = append(result.Errors, types.RowIssue{Issue: s})
			}
			continue
		}
		item := []map[string]any{m}
		result.Errors = append(result.Errors, types.RowIssue{
			Row:   lookupInt(item, issueRowKeys),
			Field: lookupString(item, issueFieldKeys),
			Issue: lookupString(item, issueMessageKeys),
		})
	}
	return result
}

func normalizePreview(root map[string]any) *types.ImportPreview {
	sources := []map[string]any{root}
	for _, key := range summaryKeys {
		if nested, ok := root[key].(map[string]any); ok {
			sources = append(sources, nested)
		}
	}

	preview := &types.ImportPreview{
		TotalRows:     lookupInt(sources, totalRowsKeys),
		Retained:      lookupInt(sources, retainedKeys),
		Expired:       lookupInt(sources, expiredKeys),
		Ignored:       lookupInt(sources, ignoredKeys),
		DealCount:     lookupInt(sources, dealCountKeys),
		TotalOriginal: lookupFloat(sources, totalOriginalKeys),
		TotalFinal:    lookupFloat(sources, totalFinalKeys),
		Items:         []types.ImportPreviewItem{},
	}

	for i, v := range lookupList(sources, dealListKeys) {
		m, ok := v.(map[string]any)
		if !ok {
			continue
		}
		deal := []map[string]any{m}
		id := lookupString(deal, dealIDKeys)
		if id == "" {
			id = strconv.Itoa(i + 1)
		}
		preview.Items = append(preview.Items, types.ImportPreviewItem{
			ID:            id,
			ProductName:   lookupString(deal, dealNameKeys),
			Brand:         lookupString(deal, dealBrandKeys),
			Category:      lookupString(deal, dealCategoryKeys),
			Barcode:       lookupString(deal, dealBarcodeKeys),
			ExpiryDate:    lookupString(deal, dealExpiryKeys),
			DaysLeft:      lookupInt(deal, dealDaysKeys),
			Quantity:      lookupFloat(deal, dealQtyKeys),
			OriginalPrice: lookupFloat(deal, dealOrigKeys),
			FinalPrice:    lookupFloat(deal, dealFinalKeys),
			DiscountPct:   lookupFloat(deal, dealDiscountKeys),
		})
	}
	return preview
}

func normalizeConfirm(root map[string]any) *types.ConfirmResult {
	sources := []map[string]any{root}
	return &types.ConfirmResult{
		ImportID: lookupString(sources, confirmIDKeys),
		Created:  lookupInt(sources, confirmCreatedKeys),
	}
}

// lookup returns the first non-null value found for any key, searching the
// sources in order
func lookup(sources []map[string]any, keys []string) (any, bool) {
	for _, src := range sources {
		for _, k := range keys {
			if v, ok := src[k]; ok && v != nil {
				return v, true
			}
		}
	}
	return nil, false
}

func lookupList(sources []map[string]any, keys []string) []any {
	v, ok := lookup(sources, keys)
	if !ok {
		return nil
	}
	list, _ := v.([]any)
	return list
}

func lookupString(sources []map[string]any, keys []string) string {
	v, ok := lookup(sources, keys)
	if !ok {
		return ""
	}
	return asString(v)
}

func lookupFloat(sources []map[string]any, keys []string) float64 {
	v, ok := lookup(sources, keys)
	if !ok {
		return 0
	}
	return asFloat(v)
}

func lookupInt(sources []map[string]any, keys []string) int {
	return int(math.Round(lookupFloat(sources, keys)))
}

func asString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case json.Number:
		return t.String()
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}

func asFloat(v any) float64 {
	switch t := v.(type) {
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return 0
		}
		return t
	case string:
		f, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(t), ",", "."), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0
		}
		return f
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

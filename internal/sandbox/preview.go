// Package sandbox is a local stand-in for the remote import service. It
// issues tokens, computes previews and records confirmed imports.
package sandbox

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/kosarica/import-wizard/internal/types"
)

// ErrInvalidRequest marks a preview or confirm request the engine cannot
// evaluate
var ErrInvalidRequest = errors.New("invalid import request")

// Compute evaluates req against today. Rows expiring after the window are
// dropped silently; rows that cannot be read or have no stock are counted as
// ignored. Expired rows are counted and, with IncludeExpired, kept and priced
// like any other row. Each kept row takes the discount of the rule with the
// smallest threshold that still covers its days left.
func Compute(req types.PreviewRequest, today time.Time) (*types.ImportPreview, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	rules := append([]types.WireDiscountRule(nil), req.DiscountRules...)
	sort.SliceStable(rules, func(a, b int) bool { return rules[a].DaysLTE < rules[b].DaysLTE })
	day := truncateDay(today)

	preview := &types.ImportPreview{
		TotalRows: len(req.RawRows),
		Items:     []types.ImportPreviewItem{},
	}
	col := func(row types.RawRow, field types.FieldKey) string {
		column := req.ColumnMapping[string(field)]
		if column == "" {
			return ""
		}
		return cellString(row[column])
	}

	for i, row := range req.RawRows {
		expiry, err := ParseDate(col(row, types.FieldExpiryDate))
		if err != nil {
			preview.Ignored++
			continue
		}
		qty, err := ParseAmount(col(row, types.FieldQuantity))
		if err != nil || qty <= 0 {
			preview.Ignored++
			continue
		}
		price, err := ParseAmount(col(row, types.FieldPrice))
		if err != nil || price < 0 {
			preview.Ignored++
			continue
		}

		daysLeft := int(expiry.Sub(day).Hours() / 24)
		if daysLeft < 0 {
			preview.Expired++
			if !req.IncludeExpired {
				continue
			}
		}
		if daysLeft > req.WindowDays {
			continue
		}

		pct := matchRule(rules, daysLeft)
		final := price * (1 - pct/100)
		if req.RoundPrices && pct > 0 {
			final = charmPrice(final)
		} else {
			final = roundCents(final)
		}

		preview.Items = append(preview.Items, types.ImportPreviewItem{
			ID:            itemID(col(row, types.FieldSKU), col(row, types.FieldBarcode), i),
			ProductName:   col(row, types.FieldProductName),
			Brand:         col(row, types.FieldBrand),
			Category:      col(row, types.FieldCategory),
			Barcode:       col(row, types.FieldBarcode),
			ExpiryDate:    expiry.Format("2006-01-02"),
			DaysLeft:      daysLeft,
			Quantity:      qty,
			OriginalPrice: roundCents(price),
			FinalPrice:    final,
			DiscountPct:   pct,
		})
		preview.Retained++
		if pct > 0 {
			preview.DealCount++
		}
		preview.TotalOriginal += price * qty
		preview.TotalFinal += final * qty
	}

	preview.TotalOriginal = roundCents(preview.TotalOriginal)
	preview.TotalFinal = roundCents(preview.TotalFinal)
	return preview, nil
}

func validate(req types.PreviewRequest) error {
	var missing []string
	for _, f := range types.RequiredFields {
		if req.ColumnMapping[string(f)] == "" {
			missing = append(missing, string(f))
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: unmapped fields %s", ErrInvalidRequest, strings.Join(missing, ", "))
	}
	if req.WindowDays < 1 {
		return fmt.Errorf("%w: window_days must be at least 1", ErrInvalidRequest)
	}
	for _, r := range req.DiscountRules {
		if r.DaysLTE < 0 || r.DiscountPct < 0 || r.DiscountPct > 100 {
			return fmt.Errorf("%w: rule {days_lte: %d, discount_pct: %g} out of range", ErrInvalidRequest, r.DaysLTE, r.DiscountPct)
		}
	}
	return nil
}

// matchRule expects rules sorted by threshold. Ties keep request order.
func matchRule(rules []types.WireDiscountRule, daysLeft int) float64 {
	for _, r := range rules {
		if daysLeft <= r.DaysLTE {
			return r.DiscountPct
		}
	}
	return 0
}

func itemID(sku, barcode string, index int) string {
	switch {
	case sku != "":
		return sku
	case barcode != "":
		return barcode
	default:
		return fmt.Sprintf("row-%d", index+1)
	}
}

package types

// DiscountRule is a tier: items with days-to-expiry <= Days get Discount percent off.
// Rule matching is owned by the remote engine.
type DiscountRule struct {
	ID       int     `json:"id"`
	Days     int     `json:"days"`
	Discount float64 `json:"discount"`
}

// WireDiscountRule is the rule shape sent to the remote engine
type WireDiscountRule struct {
	DaysLTE     int     `json:"days_lte"`
	DiscountPct float64 `json:"discount_pct"`
}

// PreviewRequest is the parameter set of a preview computation
type PreviewRequest struct {
	ColumnMapping  map[string]string  `json:"column_mapping"`
	WindowDays     int                `json:"window_days"`
	IncludeExpired bool               `json:"include_expired"`
	DiscountRules  []WireDiscountRule `json:"discount_rules"`
	RoundPrices    bool               `json:"round_prices"`
	RawRows        []RawRow           `json:"raw_rows"`
}

// ConfirmRequest is a preview request plus the publish decision
type ConfirmRequest struct {
	PreviewRequest
	Publish bool `json:"publish"`
}

// ImportPreview is a disposable snapshot of what an import would produce.
// A preview is never modified after it has been built.
type ImportPreview struct {
	TotalRows     int                 `json:"totalRows"`
	Retained      int                 `json:"retained"`
	Expired       int                 `json:"expired"`
	Ignored       int                 `json:"ignored"`
	DealCount     int                 `json:"dealCount"`
	TotalOriginal float64             `json:"totalOriginal"`
	TotalFinal    float64             `json:"totalFinal"`
	Items         []ImportPreviewItem `json:"items"`
}

// ImportPreviewItem is one computed row of a preview
type ImportPreviewItem struct {
	ID            string  `json:"id"`
	ProductName   string  `json:"productName"`
	Brand         string  `json:"brand,omitempty"`
	Category      string  `json:"category,omitempty"`
	Barcode       string  `json:"barcode,omitempty"`
	ExpiryDate    string  `json:"expiryDate,omitempty"`
	DaysLeft      int     `json:"daysLeft"`
	Quantity      float64 `json:"quantity"`
	OriginalPrice float64 `json:"originalPrice"`
	FinalPrice    float64 `json:"finalPrice"`
	DiscountPct   float64 `json:"discountPct"`
}

// ConfirmResult is the normalized outcome of a successful confirm call
type ConfirmResult struct {
	ImportID string `json:"importId,omitempty"`
	Created  int    `json:"created"`
}

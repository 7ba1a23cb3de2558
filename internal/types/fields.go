package types

// FieldKey identifies a logical import field that a source column maps onto
type FieldKey string

const (
	FieldProductName FieldKey = "product_name"
	FieldExpiryDate  FieldKey = "expiry_date"
	FieldQuantity    FieldKey = "quantity"
	FieldPrice       FieldKey = "price"
	FieldBarcode     FieldKey = "barcode"
	FieldSKU         FieldKey = "sku"
	FieldBrand       FieldKey = "brand"
	FieldCategory    FieldKey = "category"
	FieldUnit        FieldKey = "unit"
)

// RequiredFields must all be mapped before the wizard leaves the upload step
var RequiredFields = []FieldKey{
	FieldProductName,
	FieldExpiryDate,
	FieldQuantity,
	FieldPrice,
}

// OptionalFields may be mapped to enrich the preview
var OptionalFields = []FieldKey{
	FieldBarcode,
	FieldSKU,
	FieldBrand,
	FieldCategory,
	FieldUnit,
}

// AllFields returns required fields followed by optional fields
func AllFields() []FieldKey {
	out := make([]FieldKey, 0, len(RequiredFields)+len(OptionalFields))
	out = append(out, RequiredFields...)
	return append(out, OptionalFields...)
}

// IsKnownField reports whether key is a required or optional field
func IsKnownField(key FieldKey) bool {
	for _, f := range AllFields() {
		if f == key {
			return true
		}
	}
	return false
}

// ColumnMapping maps a field key to the source column that feeds it
type ColumnMapping map[FieldKey]string

// Clone returns an independent copy of the mapping
func (m ColumnMapping) Clone() ColumnMapping {
	out := make(ColumnMapping, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Missing returns the required fields that have no (non-empty) mapping
func (m ColumnMapping) Missing() []FieldKey {
	var missing []FieldKey
	for _, f := range RequiredFields {
		if m[f] == "" {
			missing = append(missing, f)
		}
	}
	return missing
}

// Wire converts the mapping to the string-keyed form sent to the remote side
func (m ColumnMapping) Wire() map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		if v != "" {
			out[string(k)] = v
		}
	}
	return out
}

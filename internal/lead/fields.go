package lead

// KnownFields is the fixed allowlist that gates what survives finalization
// into the validated lead versus the preserved unknown-field bucket.
var KnownFields = map[string]bool{
	"side":              true,
	"product":           true,
	"price":             true,
	"quantity":          true,
	"paymentTerms":      true,
	"incoterm":          true,
	"loadingLocation":   true,
	"deliveryLocation":  true,
	"loadingCountry":    true,
	"deliveryCountry":   true,
	"packaging":         true,
	"transportMode":     true,
	"priceValidity":     true,
	"availabilityTime":  true,
	"availabilityQty":   true,
	"deliveryTimeframe": true,
	"summary":           true,
	"notes":             true,
	"specialNotes":      true,
	"traderName":        true,
}

// RequiredFields are the core fields every lead needs, in reporting order.
var RequiredFields = []string{"side", "product", "price", "quantity", "paymentTerms", "incoterm"}

// LocationRequirement is the composite entry reported when neither location
// field is present. The literal wording is part of the tool contract.
const LocationRequirement = "loadingLocation OR deliveryLocation"

// Truthy mirrors the presence check used throughout the capture flow: nil,
// false, zero numbers and empty strings count as absent, everything else
// (including empty objects) as present.
func Truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case float64:
		return x != 0
	case float32:
		return x != 0
	case int:
		return x != 0
	case int64:
		return x != 0
	default:
		return true
	}
}

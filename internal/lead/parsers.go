package lead

import (
	"regexp"
	"strconv"
	"strings"
)

// Price is a normalized price fragment.
type Price struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
	Per      string  `json:"per"`
}

// Quantity is a normalized quantity fragment.
type Quantity struct {
	Amount float64 `json:"amount"`
	Unit   string  `json:"unit"`
}

var (
	currencyCode = regexp.MustCompile(`(?i)\b(USD|EUR|GBP|CHF|JPY|CNY|AUD|CAD|INR|AED|SAR|ZAR)\b`)
	unitWord     = regexp.MustCompile(`(?i)\b(mt|metric ton|tonnes|tons|kg|kilograms?)\b`)
	numberPart   = regexp.MustCompile(`\d+(?:\.\d+)?`)
	perSlash     = regexp.MustCompile(`(?i)/\s*(mt|kg)\b`)
	perWord      = regexp.MustCompile(`(?i)per\s*(mt|kg)\b`)
)

var currencySymbols = map[rune]string{
	'$': "USD",
	'€': "EUR",
	'£': "GBP",
	'¥': "JPY",
}

func parseNumber(raw string) (float64, bool) {
	cleaned := strings.NewReplacer(",", "", " ", "", "\t", "").Replace(raw)
	m := numberPart.FindString(cleaned)
	if m == "" {
		return 0, false
	}
	n, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// ParsePrice coerces a fragment value into a structured price. Objects that
// already carry a numeric amount and a currency pass through; free text like
// "$350 per mt" or "CHF 420/mt" is parsed. Returns nil when no amount or
// currency can be found.
func ParsePrice(raw any) *Price {
	if raw == nil {
		return nil
	}

	if obj, ok := raw.(map[string]any); ok {
		amount, amountOK := toNumber(obj["amount"])
		currency, _ := obj["currency"].(string)
		if amountOK && currency != "" {
			per, _ := obj["per"].(string)
			if per == "" {
				per = "mt"
			}
			return &Price{Amount: amount, Currency: strings.ToUpper(currency), Per: strings.ToLower(per)}
		}
		return nil
	}

	text := strings.TrimSpace(toString(raw))
	if text == "" {
		return nil
	}

	var currency string
	for _, r := range text {
		if c, ok := currencySymbols[r]; ok {
			currency = c
			break
		}
	}
	if currency == "" {
		if m := currencyCode.FindStringSubmatch(text); m != nil {
			currency = strings.ToUpper(m[1])
		}
	}

	amount, ok := parseNumber(text)
	if !ok || currency == "" {
		return nil
	}

	per := "mt"
	if m := perSlash.FindStringSubmatch(text); m != nil {
		per = strings.ToLower(m[1])
	} else if m := perWord.FindStringSubmatch(text); m != nil {
		per = strings.ToLower(m[1])
	}

	return &Price{Amount: amount, Currency: currency, Per: per}
}

// ParseQuantity coerces a fragment value into a structured quantity, defaulting
// the unit to metric tons when none is stated.
func ParseQuantity(raw any) *Quantity {
	if raw == nil {
		return nil
	}

	if obj, ok := raw.(map[string]any); ok {
		amount, amountOK := toNumber(obj["amount"])
		if !amountOK {
			return nil
		}
		unit, _ := obj["unit"].(string)
		if unit == "" {
			unit = "mt"
		}
		return &Quantity{Amount: amount, Unit: strings.ToLower(unit)}
	}

	text := strings.TrimSpace(toString(raw))
	if text == "" {
		return nil
	}

	amount, ok := parseNumber(text)
	if !ok {
		return nil
	}

	unit := "mt"
	if m := unitWord.FindString(text); m != "" {
		if strings.HasPrefix(strings.ToLower(m), "kg") || strings.HasPrefix(strings.ToLower(m), "kilogram") {
			unit = "kg"
		}
	}

	return &Quantity{Amount: amount, Unit: unit}
}

// NormalizePayload rewrites free-text price and quantity values into their
// structured forms in place, leaving unparseable values untouched for the
// schema validator to reject.
func NormalizePayload(payload map[string]any) map[string]any {
	if payload == nil {
		return payload
	}

	if p := ParsePrice(firstPresent(payload, "price", "priceRaw", "rawPrice")); p != nil {
		payload["price"] = map[string]any{"amount": p.Amount, "currency": p.Currency, "per": p.Per}
	}
	if q := ParseQuantity(firstPresent(payload, "quantity", "qty", "rawQuantity")); q != nil {
		payload["quantity"] = map[string]any{"amount": q.Amount, "unit": q.Unit}
	}
	return payload
}

func firstPresent(payload map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := payload[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func toNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func toString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case int:
		return strconv.Itoa(s)
	default:
		return ""
	}
}

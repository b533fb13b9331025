// Package email renders finalized leads into the notification message handed
// to the delivery sink.
package email

import (
	"fmt"
	"strings"
)

// Message is a rendered lead notification.
type Message struct {
	Subject string
	HTML    string
}

// Build renders the lead email in the requested template version ("v1" table
// layout or "v2" compact layout).
func Build(leadData map[string]any, persona, template string) Message {
	subject := fmt.Sprintf("New Lead: %s %s @ %s",
		str(leadData, "side"), str(leadData, "product"), priceLine(leadData))

	var html string
	if template == "v2" {
		html = buildV2(leadData, persona)
	} else {
		html = buildV1(leadData, persona)
	}
	return Message{Subject: subject, HTML: html}
}

func buildV1(l map[string]any, persona string) string {
	var b strings.Builder
	b.WriteString(`<div style="font-family:Inter,system-ui,sans-serif;max-width:720px;margin:0 auto;">`)
	b.WriteString(`<h2 style="margin:0;">New Trading Lead</h2>`)
	fmt.Fprintf(&b, `<p style="color:#666;">Captured by TAMI · Persona: %s</p>`, persona)
	b.WriteString(`<table style="width:100%;border-collapse:collapse;"><tbody>`)
	for _, row := range rows(l) {
		fmt.Fprintf(&b, `<tr><td style="padding:6px 0;color:#999;">%s</td><td style="padding:6px 0;">%s</td></tr>`, row[0], row[1])
	}
	b.WriteString(`</tbody></table></div>`)
	return b.String()
}

func buildV2(l map[string]any, persona string) string {
	var b strings.Builder
	fmt.Fprintf(&b, `<div style="font-family:Inter,system-ui;max-width:760px;margin:0 auto;"><h1 style="font-size:20px;">Lead: %s %s</h1>`,
		str(l, "side"), str(l, "product"))
	fmt.Fprintf(&b, `<p style="color:#9aa;">Captured by TAMI • Persona: %s</p><ul>`, persona)
	for _, row := range rows(l) {
		fmt.Fprintf(&b, `<li><b>%s</b>: %s</li>`, row[0], row[1])
	}
	b.WriteString(`</ul></div>`)
	return b.String()
}

func rows(l map[string]any) [][2]string {
	return [][2]string{
		{"Side", str(l, "side")},
		{"Product", str(l, "product")},
		{"Price", priceLine(l)},
		{"Quantity", quantityLine(l)},
		{"Terms", termsLine(l)},
		{"Locations", LocationsLine(l)},
		{"Packaging", dash(str(l, "packaging"))},
		{"Transport", dash(str(l, "transportMode"))},
		{"Validity", dash(str(l, "priceValidity"))},
		{"Availability", dash(str(l, "availabilityTime")) + " / " + dash(str(l, "availabilityQty"))},
		{"Delivery", dash(str(l, "deliveryTimeframe"))},
		{"Summary", dash(str(l, "summary"))},
		{"Notes", notesLine(l)},
	}
}

// LocationsLine joins whichever of the loading and delivery locations are set.
func LocationsLine(l map[string]any) string {
	loading := str(l, "loadingLocation")
	delivery := str(l, "deliveryLocation")
	switch {
	case loading != "" && delivery != "":
		return loading + " → " + delivery
	case loading != "":
		return loading
	case delivery != "":
		return delivery
	default:
		return "-"
	}
}

func priceLine(l map[string]any) string {
	p, ok := l["price"].(map[string]any)
	if !ok {
		return "-"
	}
	return fmt.Sprintf("%v %v/%v", p["amount"], p["currency"], p["per"])
}

func quantityLine(l map[string]any) string {
	q, ok := l["quantity"].(map[string]any)
	if !ok {
		return "-"
	}
	return fmt.Sprintf("%v %v", q["amount"], q["unit"])
}

func termsLine(l map[string]any) string {
	parts := make([]string, 0, 2)
	for _, key := range []string{"paymentTerms", "incoterm"} {
		if s := str(l, key); s != "" {
			parts = append(parts, s)
		}
	}
	return dash(strings.Join(parts, ", "))
}

func notesLine(l map[string]any) string {
	if s := str(l, "specialNotes"); s != "" {
		return s
	}
	return dash(str(l, "notes"))
}

func str(l map[string]any, key string) string {
	if s, ok := l[key].(string); ok {
		return s
	}
	return ""
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

package conversation

import (
	"fmt"
	"strings"

	"github.com/MikeSquared-Agency/tami/internal/lead"
	"github.com/MikeSquared-Agency/tami/internal/telemetry"
)

// Recap renders a one-line-per-lead summary of accumulated leads. "Complete"
// here only requires side, product and price together, a looser signal than
// the accumulator's required-field list. Empty input yields an empty string.
func (t *Tracker) Recap(leads []map[string]any) string {
	t.emitter.Emit(telemetry.RecapRequested())

	lines := make([]string, 0, len(leads))
	for i, l := range leads {
		status := "Incomplete"
		if lead.Truthy(l["side"]) && lead.Truthy(l["product"]) && lead.Truthy(l["price"]) {
			status = "Complete"
		}
		side := stringOr(l["side"], "Unknown")
		product := stringOr(l["product"], "Product")
		lines = append(lines, fmt.Sprintf("Lead %d: %s %s - %s", i+1, side, product, status))
	}
	recap := strings.Join(lines, "\n")

	t.emitter.Emit(telemetry.RecapProvided())
	return recap
}

func stringOr(v any, fallback string) string {
	if s, ok := v.(string); ok && s != "" {
		return s
	}
	return fallback
}

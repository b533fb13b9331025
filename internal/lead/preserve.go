package lead

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/MikeSquared-Agency/tami/internal/telemetry"
)

// PreserveUnknownFields folds unknown finalize output into the specialNotes
// field so trader-provided information that missed the fixed schema is never
// silently dropped. Returns finalData with the summary applied.
func PreserveUnknownFields(finalData, unknown map[string]any, em telemetry.Emitter) map[string]any {
	if len(unknown) == 0 {
		return finalData
	}
	if finalData == nil {
		finalData = map[string]any{}
	}
	if em == nil {
		em = telemetry.Nop{}
	}

	keys := make([]string, 0, len(unknown))
	for k := range unknown {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, compactValue(unknown[k])))
	}
	summary := "Additional details: " + strings.Join(parts, "; ")

	if existing, ok := finalData["specialNotes"].(string); ok && existing != "" {
		finalData["specialNotes"] = existing + " | " + summary
	} else {
		finalData["specialNotes"] = summary
	}

	em.Emit(telemetry.UnknownFieldsPreserved(len(keys), keys))
	return finalData
}

func compactValue(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}

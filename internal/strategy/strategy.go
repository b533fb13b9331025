// Package strategy resolves the A–E lead-capture experiment arms into
// concrete behavior flags.
package strategy

import (
	"math/rand"

	"github.com/MikeSquared-Agency/tami/internal/telemetry"
)

// Config is the resolved behavior of one experiment arm.
type Config struct {
	Strategy              string
	ConfirmationIntensity string // "light" or "targeted"
	EmailTemplate         string // "v1" or "v2"
	IncrementalEnabled    bool
	LiveEmailsEnabled     bool
}

var arms = map[string]Config{
	// Baseline: traditional single-shot lead capture.
	"A": {Strategy: "A", ConfirmationIntensity: "targeted", EmailTemplate: "v1", IncrementalEnabled: false, LiveEmailsEnabled: true},
	// Light confirmation with the v2 template.
	"B": {Strategy: "B", ConfirmationIntensity: "light", EmailTemplate: "v2", IncrementalEnabled: false, LiveEmailsEnabled: true},
	// Incremental capture with light confirmation.
	"C": {Strategy: "C", ConfirmationIntensity: "light", EmailTemplate: "v1", IncrementalEnabled: true, LiveEmailsEnabled: true},
	// Full incremental with the v2 template.
	"D": {Strategy: "D", ConfirmationIntensity: "targeted", EmailTemplate: "v2", IncrementalEnabled: true, LiveEmailsEnabled: true},
	// Incremental JSON with no live emails.
	"E": {Strategy: "E", ConfirmationIntensity: "light", EmailTemplate: "v2", IncrementalEnabled: true, LiveEmailsEnabled: false},
}

var armOrder = []string{"A", "B", "C", "D", "E"}

// Resolve maps a raw strategy setting to its config. "RANDOM" draws an arm
// from rng; anything unrecognized falls back to the A baseline. The selection
// is reported via telemetry.
func Resolve(raw string, rng *rand.Rand, em telemetry.Emitter) Config {
	if em == nil {
		em = telemetry.Nop{}
	}

	name := raw
	if name == "RANDOM" && rng != nil {
		name = armOrder[rng.Intn(len(armOrder))]
	}

	cfg, ok := arms[name]
	if !ok {
		cfg = arms["A"]
	}

	em.Emit(telemetry.StrategySelected(cfg.Strategy))
	return cfg
}

package strategy

import (
	"math/rand"
	"testing"

	"github.com/MikeSquared-Agency/tami/internal/telemetry"
)

func TestResolve_Arms(t *testing.T) {
	tests := []struct {
		name string
		want Config
	}{
		{"A", Config{Strategy: "A", ConfirmationIntensity: "targeted", EmailTemplate: "v1", IncrementalEnabled: false, LiveEmailsEnabled: true}},
		{"B", Config{Strategy: "B", ConfirmationIntensity: "light", EmailTemplate: "v2", IncrementalEnabled: false, LiveEmailsEnabled: true}},
		{"C", Config{Strategy: "C", ConfirmationIntensity: "light", EmailTemplate: "v1", IncrementalEnabled: true, LiveEmailsEnabled: true}},
		{"D", Config{Strategy: "D", ConfirmationIntensity: "targeted", EmailTemplate: "v2", IncrementalEnabled: true, LiveEmailsEnabled: true}},
		{"E", Config{Strategy: "E", ConfirmationIntensity: "light", EmailTemplate: "v2", IncrementalEnabled: true, LiveEmailsEnabled: false}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Resolve(tt.name, nil, nil); got != tt.want {
				t.Errorf("Resolve(%q) = %+v, want %+v", tt.name, got, tt.want)
			}
		})
	}
}

func TestResolve_UnknownFallsBackToBaseline(t *testing.T) {
	for _, raw := range []string{"", "Z", "random"} {
		if got := Resolve(raw, nil, nil); got.Strategy != "A" {
			t.Errorf("Resolve(%q) = arm %s, want A", raw, got.Strategy)
		}
	}
}

func TestResolve_RandomDrawsAnArm(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		cfg := Resolve("RANDOM", rng, nil)
		if _, ok := arms[cfg.Strategy]; !ok {
			t.Fatalf("random draw produced unknown arm %q", cfg.Strategy)
		}
		seen[cfg.Strategy] = true
	}
	if len(seen) < 3 {
		t.Errorf("expected random draws to cover several arms, saw %v", seen)
	}
}

func TestResolve_RandomWithoutRngFallsBack(t *testing.T) {
	if got := Resolve("RANDOM", nil, nil); got.Strategy != "A" {
		t.Errorf("RANDOM without an rng must fall back to A, got %s", got.Strategy)
	}
}

func TestResolve_EmitsSelection(t *testing.T) {
	rec := &telemetry.Recorder{}
	Resolve("C", nil, rec)

	events := rec.Events()
	if len(events) != 1 || events[0].Type != "strategy_selected" {
		t.Fatalf("expected one strategy_selected event, got %v", rec.Types())
	}
	if events[0].Attrs["strategy"] != "C" {
		t.Errorf("expected selected arm C in event, got %v", events[0].Attrs["strategy"])
	}
}

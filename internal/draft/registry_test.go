package draft

import (
	"encoding/json"
	"reflect"
	"slices"
	"testing"
	"time"

	"github.com/MikeSquared-Agency/tami/internal/telemetry"
)

func TestAcceptFragment_ShallowMerge(t *testing.T) {
	r := NewRegistry(nil)

	r.AcceptFragment("d1", "s1", map[string]any{"side": "BUY", "product": "Wheat"})
	d := r.AcceptFragment("d1", "s1", map[string]any{"product": "Corn", "packaging": "bags"})

	if d.TotalKeys != 3 {
		t.Errorf("expected 3 keys, got %d", d.TotalKeys)
	}
	if d.Fragments["product"] != "Corn" {
		t.Errorf("expected later fragment to overwrite, got %v", d.Fragments["product"])
	}
	if d.SessionID != "s1" {
		t.Errorf("expected session s1, got %s", d.SessionID)
	}
}

func TestAcceptFragment_NestedValueReplacedWhole(t *testing.T) {
	r := NewRegistry(nil)

	r.AcceptFragment("d1", "s1", map[string]any{"price": map[string]any{"amount": 350, "currency": "USD"}})
	d := r.AcceptFragment("d1", "s1", map[string]any{"price": map[string]any{"amount": 400}})

	price := d.Fragments["price"].(map[string]any)
	if _, ok := price["currency"]; ok {
		t.Error("nested objects must not deep-merge; currency should be gone")
	}
	if price["amount"] != 400 {
		t.Errorf("expected amount 400, got %v", price["amount"])
	}
}

func TestAcceptFragment_EmitsEvent(t *testing.T) {
	rec := &telemetry.Recorder{}
	r := NewRegistry(rec)

	r.AcceptFragment("d1", "s1", map[string]any{"side": "BUY", "product": "Wheat"})

	events := rec.Events()
	if len(events) != 1 || events[0].Type != "incremental_fragment_received" {
		t.Fatalf("expected one fragment event, got %v", rec.Types())
	}
	keys := events[0].Attrs["keys"].([]string)
	if !slices.Contains(keys, "side") || !slices.Contains(keys, "product") {
		t.Errorf("expected fragment keys in event, got %v", keys)
	}
	if size := events[0].Attrs["size"].(int); size <= 0 {
		t.Errorf("expected positive serialized size, got %d", size)
	}
}

func TestGet(t *testing.T) {
	r := NewRegistry(nil)

	if d := r.Get("missing"); d != nil {
		t.Errorf("expected nil for absent draft, got %+v", d)
	}

	r.AcceptFragment("d1", "s1", map[string]any{"side": "BUY"})
	d := r.Get("d1")
	if d == nil || d.Fragments["side"] != "BUY" {
		t.Fatalf("expected stored draft, got %+v", d)
	}

	// The returned copy must not alias registry state.
	d.Fragments["side"] = "SELL"
	if r.Get("d1").Fragments["side"] != "BUY" {
		t.Error("mutating a returned draft leaked into the registry")
	}
}

func TestSessionDrafts(t *testing.T) {
	r := NewRegistry(nil)
	r.AcceptFragment("d1", "s1", map[string]any{"side": "BUY"})
	r.AcceptFragment("d2", "s1", map[string]any{"side": "SELL"})
	r.AcceptFragment("d3", "s2", map[string]any{"side": "BUY"})

	drafts := r.SessionDrafts("s1")
	if len(drafts) != 2 {
		t.Fatalf("expected 2 drafts for s1, got %d", len(drafts))
	}
	if got := r.SessionDrafts("unknown"); len(got) != 0 {
		t.Errorf("expected no drafts for unknown session, got %d", len(got))
	}
}

func TestMissingRequiredFields(t *testing.T) {
	r := NewRegistry(nil)

	if got := r.MissingRequiredFields("missing"); len(got) != 0 {
		t.Errorf("expected empty result for absent draft, got %v", got)
	}

	r.AcceptFragment("d1", "s1", map[string]any{
		"side":            "BUY",
		"product":         "Wheat",
		"loadingLocation": "Odessa",
	})

	missing := r.MissingRequiredFields("d1")
	for _, want := range []string{"price", "quantity", "paymentTerms", "incoterm"} {
		if !slices.Contains(missing, want) {
			t.Errorf("expected %s in missing fields, got %v", want, missing)
		}
	}
	for _, unwanted := range []string{"side", "product", "loadingLocation OR deliveryLocation"} {
		if slices.Contains(missing, unwanted) {
			t.Errorf("did not expect %s in missing fields, got %v", unwanted, missing)
		}
	}
}

func TestMissingRequiredFields_LocationComposite(t *testing.T) {
	r := NewRegistry(nil)
	r.AcceptFragment("d1", "s1", map[string]any{"side": "BUY"})

	missing := r.MissingRequiredFields("d1")
	if !slices.Contains(missing, "loadingLocation OR deliveryLocation") {
		t.Errorf("expected location composite entry, got %v", missing)
	}

	r.AcceptFragment("d1", "s1", map[string]any{"deliveryLocation": "Basel"})
	missing = r.MissingRequiredFields("d1")
	if slices.Contains(missing, "loadingLocation OR deliveryLocation") {
		t.Errorf("delivery location alone should satisfy the composite, got %v", missing)
	}
}

func TestFinalize_Partition(t *testing.T) {
	r := NewRegistry(nil)

	r.AcceptFragment("d1", "s1", map[string]any{"side": "BUY", "product": "Wheat"})
	r.AcceptFragment("d1", "s1", map[string]any{
		"price": map[string]any{"amount": 350, "currency": "USD"},
		"extra": "x",
	})

	res := r.Finalize("d1")
	if res == nil {
		t.Fatal("expected finalize result")
	}

	wantFinal := map[string]any{
		"side":    "BUY",
		"product": "Wheat",
		"price":   map[string]any{"amount": 350, "currency": "USD"},
	}
	if !reflect.DeepEqual(res.FinalData, wantFinal) {
		t.Errorf("finalData = %v, want %v", res.FinalData, wantFinal)
	}
	if !reflect.DeepEqual(res.UnknownFields, map[string]any{"extra": "x"}) {
		t.Errorf("unknownFields = %v, want {extra: x}", res.UnknownFields)
	}
}

func TestFinalize_SingleShot(t *testing.T) {
	rec := &telemetry.Recorder{}
	r := NewRegistry(rec)
	r.AcceptFragment("d1", "s1", map[string]any{"side": "BUY"})

	if res := r.Finalize("d1"); res == nil {
		t.Fatal("expected first finalize to succeed")
	}
	if res := r.Finalize("d1"); res != nil {
		t.Errorf("expected second finalize to return nil, got %+v", res)
	}

	finalized := 0
	for _, typ := range rec.Types() {
		if typ == "incremental_finalized" {
			finalized++
		}
	}
	if finalized != 1 {
		t.Errorf("expected exactly one finalized event, got %d", finalized)
	}
}

func TestExportJSON(t *testing.T) {
	r := NewRegistry(nil)

	if _, ok := r.ExportJSON("missing"); ok {
		t.Error("expected ok=false for absent draft")
	}

	r.AcceptFragment("d1", "s1", map[string]any{"side": "BUY"})
	out, ok := r.ExportJSON("d1")
	if !ok {
		t.Fatal("expected export to succeed")
	}

	var decoded struct {
		ID              string         `json:"id"`
		SessionID       string         `json:"sessionId"`
		Fragments       map[string]any `json:"fragments"`
		LastUpdated     string         `json:"lastUpdated"`
		TotalKeys       int            `json:"totalKeys"`
		MissingRequired []string       `json:"missingRequired"`
	}
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("export is not valid JSON: %v", err)
	}
	if decoded.ID != "d1" || decoded.SessionID != "s1" || decoded.TotalKeys != 1 {
		t.Errorf("unexpected export contents: %+v", decoded)
	}
	if len(decoded.MissingRequired) == 0 {
		t.Error("expected missing-required diagnostics in export")
	}
	if _, err := time.Parse("2006-01-02T15:04:05.000Z", decoded.LastUpdated); err != nil {
		t.Errorf("lastUpdated not ISO formatted: %q", decoded.LastUpdated)
	}

	// Export is read-only.
	if r.Get("d1") == nil {
		t.Error("export must not remove the draft")
	}
}

func TestMergeFragments_SkipsMissing(t *testing.T) {
	r := NewRegistry(nil)
	r.AcceptFragment("d1", "s1", map[string]any{"side": "BUY"})
	r.AcceptFragment("d3", "s1", map[string]any{"side": "SELL"})

	merged := r.MergeFragments([]string{"d1", "d2", "d3"})
	if len(merged) != 2 {
		t.Fatalf("expected 2 fragment maps, got %d", len(merged))
	}
	if merged[0]["side"] != "BUY" || merged[1]["side"] != "SELL" {
		t.Errorf("expected input order preserved, got %v", merged)
	}
}

func TestCleanupOlderThan(t *testing.T) {
	r := NewRegistry(nil)
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	r.now = func() time.Time { return base }
	r.AcceptFragment("old", "s1", map[string]any{"side": "BUY"})

	r.now = func() time.Time { return base.Add(2 * time.Hour) }
	r.AcceptFragment("fresh", "s1", map[string]any{"side": "SELL"})

	if n := r.CleanupOlderThan(time.Hour); n != 1 {
		t.Errorf("expected 1 draft swept, got %d", n)
	}
	if r.Get("old") != nil {
		t.Error("expected old draft removed")
	}
	if r.Get("fresh") == nil {
		t.Error("expected fresh draft kept")
	}
}

func TestCleanupOlderThan_ZeroAgeSweepsEverything(t *testing.T) {
	r := NewRegistry(nil)
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	r.now = func() time.Time { return base }
	r.AcceptFragment("d1", "s1", map[string]any{"side": "BUY"})
	r.AcceptFragment("d2", "s2", map[string]any{"side": "SELL"})

	r.now = func() time.Time { return base.Add(time.Millisecond) }
	if n := r.CleanupOlderThan(0); n != 2 {
		t.Errorf("expected everything swept, got %d", n)
	}
	if r.Len() != 0 {
		t.Errorf("expected empty registry, got %d drafts", r.Len())
	}
}

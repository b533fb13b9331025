package processor

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"math/rand"
	"testing"

	"github.com/MikeSquared-Agency/tami/internal/bus"
	"github.com/MikeSquared-Agency/tami/internal/conversation"
	"github.com/MikeSquared-Agency/tami/internal/draft"
	"github.com/MikeSquared-Agency/tami/internal/strategy"
	"github.com/MikeSquared-Agency/tami/internal/telemetry"
)

type capturePublisher struct {
	subjects []string
	payloads []any
}

func (c *capturePublisher) Publish(subject string, data any) error {
	c.subjects = append(c.subjects, subject)
	c.payloads = append(c.payloads, data)
	return nil
}

func (c *capturePublisher) lastOn(subject string) (any, bool) {
	for i := len(c.subjects) - 1; i >= 0; i-- {
		if c.subjects[i] == subject {
			return c.payloads[i], true
		}
	}
	return nil, false
}

func testProcessor(pub Publisher, em telemetry.Emitter) *Processor {
	if em == nil {
		em = telemetry.Nop{}
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(
		draft.NewRegistry(em),
		conversation.NewTracker(em, rand.New(rand.NewSource(1))),
		nil,
		pub,
		em,
		strategy.Config{Strategy: "C", ConfirmationIntensity: "light", EmailTemplate: "v1", IncrementalEnabled: true, LiveEmailsEnabled: true},
		logger,
	)
}

func utterance(t *testing.T, sessionID, text string) []byte {
	t.Helper()
	b, err := json.Marshal(bus.UtteranceEvent{SessionID: sessionID, Text: text})
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestHandleUtterance_ConsecutiveNegativesPublishClosing(t *testing.T) {
	pub := &capturePublisher{}
	p := testProcessor(pub, nil)

	for _, msg := range []string{"not interested", "no thanks", "stop calling"} {
		p.HandleUtterance(bus.SubjectUtterance, utterance(t, "s1", msg))
	}

	payload, ok := pub.lastOn(bus.SubjectClosing)
	if !ok {
		t.Fatalf("expected a closing signal, published: %v", pub.subjects)
	}
	sig := payload.(bus.ClosingSignal)
	if sig.SessionID != "s1" || sig.Reason != conversation.ReasonConsecutiveNegative {
		t.Errorf("unexpected closing signal %+v", sig)
	}
}

func TestHandleUtterance_DisengagementPublishesPushBack(t *testing.T) {
	pub := &capturePublisher{}
	p := testProcessor(pub, nil)

	// First turn: cooldown starts satisfied, "maybe" signals disengagement.
	p.HandleUtterance(bus.SubjectUtterance, utterance(t, "s1", "maybe"))

	payload, ok := pub.lastOn(bus.SubjectPushBack)
	if !ok {
		t.Fatalf("expected a push-back suggestion, published: %v", pub.subjects)
	}
	sug := payload.(bus.PushBackSuggestion)
	if sug.SessionID != "s1" || sug.Response == "" || sug.VariantID == "" {
		t.Errorf("unexpected push-back %+v", sug)
	}

	st, ok := p.SessionState("s1")
	if !ok {
		t.Fatal("expected session state to exist")
	}
	if len(st.PushBackHistory) != 1 || st.PushBackHistory[0] != sug.VariantID {
		t.Errorf("expected usage recorded, history %v", st.PushBackHistory)
	}
	if st.LastPushBackTurn != st.CurrentTurn {
		t.Errorf("expected cooldown clock reset, got %d at turn %d", st.LastPushBackTurn, st.CurrentTurn)
	}
}

func TestHandleUtterance_PushBackRespectsCooldown(t *testing.T) {
	pub := &capturePublisher{}
	p := testProcessor(pub, nil)

	p.HandleUtterance(bus.SubjectUtterance, utterance(t, "s1", "maybe"))
	if _, ok := pub.lastOn(bus.SubjectPushBack); !ok {
		t.Fatal("expected first push-back")
	}

	before := len(pub.subjects)
	p.HandleUtterance(bus.SubjectUtterance, utterance(t, "s1", "not sure"))
	if len(pub.subjects) != before {
		t.Errorf("second disengagement inside cooldown must not publish, got %v", pub.subjects[before:])
	}
}

func TestHandleUtterance_LatchSuppressesPushBack(t *testing.T) {
	pub := &capturePublisher{}
	p := testProcessor(pub, nil)

	p.HandleUtterance(bus.SubjectUtterance, utterance(t, "s1", "okay goodbye"))
	if _, ok := pub.lastOn(bus.SubjectClosing); !ok {
		t.Fatal("expected closing signal")
	}

	before := len(pub.subjects)
	p.HandleUtterance(bus.SubjectUtterance, utterance(t, "s1", "maybe"))
	if len(pub.subjects) != before {
		t.Errorf("latched session must stay silent, got %v", pub.subjects[before:])
	}
}

func TestHandleUtterance_IgnoresMalformedEvents(t *testing.T) {
	pub := &capturePublisher{}
	p := testProcessor(pub, nil)

	p.HandleUtterance(bus.SubjectUtterance, []byte("{not json"))
	p.HandleUtterance(bus.SubjectUtterance, utterance(t, "", "hello"))

	if len(pub.subjects) != 0 {
		t.Errorf("expected nothing published, got %v", pub.subjects)
	}
}

func TestProcessUtterance_SessionStrategyFallsBackToArm(t *testing.T) {
	p := testProcessor(nil, nil)

	p.ProcessUtterance("s1", "hello there", "")

	st, _ := p.SessionState("s1")
	if st.Strategy != "C" {
		t.Errorf("expected session tagged with resolved arm C, got %q", st.Strategy)
	}
}

func TestEndSession(t *testing.T) {
	p := testProcessor(nil, nil)
	p.ProcessUtterance("s1", "hello", "")

	p.EndSession("s1")
	if _, ok := p.SessionState("s1"); ok {
		t.Error("expected session state dropped")
	}
}

func TestFinalizeLead(t *testing.T) {
	pub := &capturePublisher{}
	rec := &telemetry.Recorder{}
	p := testProcessor(pub, rec)

	p.Registry().AcceptFragment("d1", "s1", map[string]any{
		"side":            "BUY",
		"product":         "Wheat",
		"price":           "$350 per mt",
		"quantity":        "1,000 mt",
		"paymentTerms":    "30 days net",
		"incoterm":        "FOB",
		"loadingLocation": "Odessa",
		"vesselName":      "MV Aurora",
	})

	outcome, err := p.FinalizeLead(context.Background(), "d1", "s1", "professional")
	if err != nil {
		t.Fatalf("FinalizeLead: %v", err)
	}
	if outcome == nil {
		t.Fatal("expected an outcome")
	}

	if outcome.Email.Subject != "New Lead: BUY Wheat @ 350 USD/mt" {
		t.Errorf("unexpected email subject %q", outcome.Email.Subject)
	}
	notes, _ := outcome.FinalData["specialNotes"].(string)
	if notes != "Additional details: vesselName: MV Aurora" {
		t.Errorf("expected unknown field folded into notes, got %q", notes)
	}
	if _, ok := outcome.FinalData["vesselName"]; ok {
		t.Error("unknown field must not survive as a top-level key")
	}

	payload, ok := pub.lastOn(bus.SubjectLeadFinalized)
	if !ok {
		t.Fatalf("expected lead finalized publish, got %v", pub.subjects)
	}
	m := payload.(map[string]any)
	if m["session_id"] != "s1" || m["unknown_keys"] != 1 {
		t.Errorf("unexpected finalized payload %v", m)
	}

	// Single-shot: the draft is consumed.
	again, err := p.FinalizeLead(context.Background(), "d1", "s1", "professional")
	if err != nil || again != nil {
		t.Errorf("second finalize should be (nil, nil), got %v, %v", again, err)
	}
}

func TestFinalizeLead_ValidationFailureConsumesDraft(t *testing.T) {
	p := testProcessor(nil, nil)

	p.Registry().AcceptFragment("d1", "s1", map[string]any{"side": "BUY", "product": "Wheat"})

	if _, err := p.FinalizeLead(context.Background(), "d1", "s1", "professional"); err == nil {
		t.Fatal("expected a validation error")
	}
	if p.Registry().Get("d1") != nil {
		t.Error("draft must be consumed even when validation fails")
	}
}

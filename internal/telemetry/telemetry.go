package telemetry

import (
	"log/slog"
	"sync"
)

// Event is a fire-and-forget observational record. Losing one must never
// affect core behavior, so emitters swallow their own failures.
type Event struct {
	Type  string
	Attrs map[string]any
}

func (e Event) attrList() []any {
	args := make([]any, 0, len(e.Attrs)*2)
	for k, v := range e.Attrs {
		args = append(args, k, v)
	}
	return args
}

// Payload flattens the event into a single map for wire serialization.
func (e Event) Payload() map[string]any {
	out := make(map[string]any, len(e.Attrs)+1)
	for k, v := range e.Attrs {
		out[k] = v
	}
	out["type"] = e.Type
	return out
}

func ClosingTriggered(reason string) Event {
	return Event{Type: "closing_triggered", Attrs: map[string]any{"reason": reason}}
}

func PushBackUsed(variantID string) Event {
	return Event{Type: "pushback_used", Attrs: map[string]any{"variant_id": variantID}}
}

func StrategySelected(strategy string) Event {
	return Event{Type: "strategy_selected", Attrs: map[string]any{"strategy": strategy}}
}

func FragmentReceived(size int, keys []string) Event {
	return Event{Type: "incremental_fragment_received", Attrs: map[string]any{"size": size, "keys": keys}}
}

func DraftFinalized(totalKeys int) Event {
	return Event{Type: "incremental_finalized", Attrs: map[string]any{"total_keys": totalKeys}}
}

func UnknownFieldsPreserved(count int, keys []string) Event {
	return Event{Type: "unknown_fields_preserved", Attrs: map[string]any{"count": count, "keys": keys}}
}

func RecapRequested() Event {
	return Event{Type: "recap_requested"}
}

func RecapProvided() Event {
	return Event{Type: "recap_provided"}
}

func ToolCallStart(tool, sessionID string) Event {
	return Event{Type: "tool_call_start", Attrs: map[string]any{"tool": tool, "session_id": sessionID}}
}

func ToolCallSuccess(tool, sessionID string, durationMs int64) Event {
	return Event{Type: "tool_call_success", Attrs: map[string]any{"tool": tool, "session_id": sessionID, "duration_ms": durationMs}}
}

func ToolCallError(tool, sessionID string, durationMs int64, errMsg string) Event {
	return Event{Type: "tool_call_error", Attrs: map[string]any{"tool": tool, "session_id": sessionID, "duration_ms": durationMs, "error": errMsg}}
}

func LeadSaved(leadID string) Event {
	return Event{Type: "lead_saved", Attrs: map[string]any{"lead_id": leadID}}
}

// Emitter delivers events somewhere. Implementations must not block the caller
// beyond a best-effort publish and must never propagate failures.
type Emitter interface {
	Emit(Event)
}

// LogEmitter writes events through slog, the default sink.
type LogEmitter struct {
	Logger *slog.Logger
}

func (l LogEmitter) Emit(e Event) {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Debug("telemetry "+e.Type, e.attrList()...)
}

// Publisher is the subset of the bus client telemetry needs.
type Publisher interface {
	Publish(subject string, data any) error
}

// BusEmitter forwards events to the event bus. Publish errors are dropped.
type BusEmitter struct {
	Bus     Publisher
	Subject string
}

func (b BusEmitter) Emit(e Event) {
	if b.Bus == nil {
		return
	}
	_ = b.Bus.Publish(b.Subject, e.Payload())
}

// Multi fans an event out to several emitters.
type Multi []Emitter

func (m Multi) Emit(e Event) {
	for _, em := range m {
		if em != nil {
			em.Emit(e)
		}
	}
}

// Nop discards everything.
type Nop struct{}

func (Nop) Emit(Event) {}

// Recorder captures events in memory. Used as a test double and by the
// diagnostics endpoint snapshot.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Emit(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Types returns the recorded event types in order.
func (r *Recorder) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

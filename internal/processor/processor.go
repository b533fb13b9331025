// Package processor orchestrates the per-session conversation loop and the
// draft finalization pipeline.
package processor

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/MikeSquared-Agency/tami/internal/bus"
	"github.com/MikeSquared-Agency/tami/internal/conversation"
	"github.com/MikeSquared-Agency/tami/internal/draft"
	"github.com/MikeSquared-Agency/tami/internal/store"
	"github.com/MikeSquared-Agency/tami/internal/strategy"
	"github.com/MikeSquared-Agency/tami/internal/telemetry"
)

// Publisher is the slice of the bus client the processor needs. Publishing is
// best-effort: failures are logged, never propagated.
type Publisher interface {
	Publish(subject string, data any) error
}

type Processor struct {
	registry *draft.Registry
	tracker  *conversation.Tracker
	store    *store.Store
	bus      Publisher
	emitter  telemetry.Emitter
	strategy strategy.Config
	logger   *slog.Logger

	mu       sync.Mutex
	sessions map[string]conversation.State
}

func New(registry *draft.Registry, tracker *conversation.Tracker, st *store.Store, pub Publisher, em telemetry.Emitter, cfg strategy.Config, logger *slog.Logger) *Processor {
	if em == nil {
		em = telemetry.Nop{}
	}
	return &Processor{
		registry: registry,
		tracker:  tracker,
		store:    st,
		bus:      pub,
		emitter:  em,
		strategy: cfg,
		logger:   logger,
		sessions: make(map[string]conversation.State),
	}
}

// Registry exposes the draft store for the API layer.
func (p *Processor) Registry() *draft.Registry { return p.registry }

// Tracker exposes the conversation tracker for the API layer.
func (p *Processor) Tracker() *conversation.Tracker { return p.tracker }

// Store returns the lead sink, nil when the service runs without a database.
func (p *Processor) Store() *store.Store { return p.store }

// Strategy returns the resolved experiment arm.
func (p *Processor) Strategy() strategy.Config { return p.strategy }

// HandleUtterance is the NATS handler for tami.session.utterance.
func (p *Processor) HandleUtterance(subject string, data []byte) {
	var evt bus.UtteranceEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		p.logger.Error("failed to parse utterance event", "error", err)
		return
	}
	if evt.SessionID == "" {
		p.logger.Warn("utterance event missing session_id")
		return
	}

	closing, pushBack := p.ProcessUtterance(evt.SessionID, evt.Text, conversation.Strategy(evt.Strategy))

	if closing.Trigger {
		p.publish(bus.SubjectClosing, bus.ClosingSignal{SessionID: evt.SessionID, Reason: closing.Reason})
		p.logger.Info("closing triggered", "session_id", evt.SessionID, "reason", closing.Reason)
		return
	}

	if pushBack.Response != "" {
		p.publish(bus.SubjectPushBack, bus.PushBackSuggestion{
			SessionID: evt.SessionID,
			VariantID: pushBack.VariantID,
			Response:  pushBack.Response,
		})
		p.logger.Info("push-back issued", "session_id", evt.SessionID, "variant_id", pushBack.VariantID)
	}
}

// ProcessUtterance folds one utterance through the turn pipeline: state
// transition, then closing evaluation (committed on trigger), then push-back
// selection and usage recording. Returns the signals the host should act on.
func (p *Processor) ProcessUtterance(sessionID, text string, strat conversation.Strategy) (conversation.ClosingDecision, conversation.PushBack) {
	p.mu.Lock()
	defer p.mu.Unlock()

	st, ok := p.sessions[sessionID]
	if !ok {
		if strat == "" {
			strat = conversation.Strategy(p.strategy.Strategy)
		}
		st = p.tracker.NewState(strat)
	}

	st = conversation.Update(st, text)

	var pushBack conversation.PushBack
	closing := conversation.ShouldTriggerClosing(st)
	if closing.Trigger {
		st = p.tracker.ApplyClosingTrigger(st, closing.Reason)
	} else if !st.ClosingTriggered {
		pushBack = p.tracker.PushBackResponse(st)
		if pushBack.ResetHistory {
			st = conversation.ResetPushBackHistory(st)
		}
		if pushBack.Response != "" {
			st = p.tracker.RecordPushBackUsage(st, pushBack.VariantID)
		}
	}

	p.sessions[sessionID] = st
	return closing, pushBack
}

// SessionState returns a copy of a session's conversation state.
func (p *Processor) SessionState(sessionID string) (conversation.State, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	st, ok := p.sessions[sessionID]
	return st, ok
}

// EndSession drops a session's conversation state once the call is over.
func (p *Processor) EndSession(sessionID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.sessions, sessionID)
}

func (p *Processor) publish(subject string, data any) {
	if p.bus == nil {
		return
	}
	if err := p.bus.Publish(subject, data); err != nil {
		p.logger.Warn("publish failed", "subject", subject, "error", err)
	}
}

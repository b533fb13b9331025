// Package conversation implements the turn-by-turn call engine: the sliding
// message window, the closing-trigger evaluation, the cooldown-gated push-back
// selection and the end-of-call recap.
package conversation

import (
	"math/rand"

	"github.com/MikeSquared-Agency/tami/internal/telemetry"
)

const (
	// closingWindowSize is how many recent messages closing analysis sees.
	closingWindowSize = 3
	// pushBackCooldown is the minimum number of turns between push-backs.
	pushBackCooldown = 10
	// pushBackHistoryCap bounds the anti-repeat variant history.
	pushBackHistoryCap = 5
)

// Strategy tags a session with its experiment arm. The engine carries it for
// telemetry only and never branches on it.
type Strategy string

// State is the per-call conversation aggregate. It is owned by exactly one
// caller and only ever changed through the pure transition helpers, which
// return a new value.
type State struct {
	RecentMessages   []string
	PushBackHistory  []string
	LastPushBackTurn int
	CurrentTurn      int
	ClosingTriggered bool
	Strategy         Strategy
}

// Tracker groups the emitter and random source the non-pure operations need.
type Tracker struct {
	emitter telemetry.Emitter
	rng     *rand.Rand
}

func NewTracker(em telemetry.Emitter, rng *rand.Rand) *Tracker {
	if em == nil {
		em = telemetry.Nop{}
	}
	return &Tracker{emitter: em, rng: rng}
}

// NewState initializes state for a fresh call. LastPushBackTurn starts one
// full cooldown in the past so a push-back is eligible from turn 0.
func (t *Tracker) NewState(strategy Strategy) State {
	if strategy != "" {
		t.emitter.Emit(telemetry.StrategySelected(string(strategy)))
	}
	return State{
		LastPushBackTurn: -pushBackCooldown,
		Strategy:         strategy,
	}
}

// Update folds one user utterance into the state: the message joins the
// sliding window and the turn counter advances. Closing and push-back
// evaluation are separate calls composed by the caller.
func Update(s State, userMessage string) State {
	msgs := make([]string, 0, len(s.RecentMessages)+1)
	msgs = append(msgs, s.RecentMessages...)
	msgs = append(msgs, userMessage)
	if len(msgs) > closingWindowSize {
		msgs = msgs[len(msgs)-closingWindowSize:]
	}
	s.RecentMessages = msgs
	s.CurrentTurn++
	return s
}

// ApplyClosingTrigger commits a detected closing trigger. Idempotent: once the
// latch is set the call is a no-op and no event is emitted.
func (t *Tracker) ApplyClosingTrigger(s State, reason string) State {
	if s.ClosingTriggered {
		return s
	}
	t.emitter.Emit(telemetry.ClosingTriggered(reason))
	s.ClosingTriggered = true
	return s
}

// RecordPushBackUsage marks a push-back variant as consumed: it joins the
// anti-repeat history (last 5 kept) and resets the cooldown clock.
func (t *Tracker) RecordPushBackUsage(s State, variantID string) State {
	t.emitter.Emit(telemetry.PushBackUsed(variantID))

	hist := make([]string, 0, len(s.PushBackHistory)+1)
	hist = append(hist, s.PushBackHistory...)
	hist = append(hist, variantID)
	if len(hist) > pushBackHistoryCap {
		hist = hist[len(hist)-pushBackHistoryCap:]
	}
	s.PushBackHistory = hist
	s.LastPushBackTurn = s.CurrentTurn
	return s
}

// ResetPushBackHistory clears the anti-repeat history. Callers apply it when a
// selection reports the variant pool exhausted.
func ResetPushBackHistory(s State) State {
	s.PushBackHistory = nil
	return s
}

func latestMessage(s State) string {
	if len(s.RecentMessages) == 0 {
		return ""
	}
	return s.RecentMessages[len(s.RecentMessages)-1]
}

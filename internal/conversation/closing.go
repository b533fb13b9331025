package conversation

import "regexp"

// Closing trigger reasons.
const (
	ReasonConsecutiveNegative = "consecutive_negative_sentiment"
	ReasonUserCompletion      = "user_completion_signal"
)

// ClosingDecision is the outcome of evaluating the closing rules. Reason is
// set only when Trigger is true.
type ClosingDecision struct {
	Trigger bool
	Reason  string
}

var (
	trailingQuestion = regexp.MustCompile(`[?]\s*$`)
	completionSignal = regexp.MustCompile(`(?i)\b(done|finished|complete|that's all|goodbye|bye|see you)\b`)
)

// ShouldTriggerClosing evaluates the rolling state and decides whether the
// call should move toward ending. Pure: committing the trigger (and the
// one-shot latch) is the caller's job via Tracker.ApplyClosingTrigger.
//
// Two rules, in priority order: three consecutive negative-sentiment messages,
// or a completion signal in the single newest message. A trailing question
// mark suppresses the completion rule so "how do I know when we're done?"
// doesn't end the call.
func ShouldTriggerClosing(s State) ClosingDecision {
	if s.ClosingTriggered {
		return ClosingDecision{}
	}

	if len(s.RecentMessages) >= closingWindowSize {
		lastThree := s.RecentMessages[len(s.RecentMessages)-closingWindowSize:]
		allNegative := true
		for _, msg := range lastThree {
			if !IsNegative(msg) {
				allNegative = false
				break
			}
		}
		if allNegative {
			return ClosingDecision{Trigger: true, Reason: ReasonConsecutiveNegative}
		}
	}

	latest := latestMessage(s)
	if !trailingQuestion.MatchString(latest) && completionSignal.MatchString(latest) {
		return ClosingDecision{Trigger: true, Reason: ReasonUserCompletion}
	}

	return ClosingDecision{}
}

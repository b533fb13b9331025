package conversation

import (
	"regexp"
	"slices"
	"strconv"
)

// pushBackVariants is the fixed, ordered pool of re-engagement lines. Variant
// ids are the decimal index into this list.
var pushBackVariants = []string{
	"Come on, work with me here! I just need a few more details to make this lead shine.",
	"Hey now, we're so close! Don't leave me hanging on this one.",
	"Alright, I get it - details can be tedious. But this is the good stuff that closes deals.",
	"I hear you, but trust me - these details separate the pros from the amateurs.",
	"Look, I know this feels like a lot, but we're building something solid here.",
	"Fair enough, but let's not let a great lead slip through our fingers over a few fields.",
	"I promise this is the last push - then we can wrap this beauty up.",
	"Okay, okay - but imagine how good this will look in your pipeline.",
	"Real talk: incomplete leads are just expensive paperwork. Let's finish strong.",
	"I feel you, but we're literally one field away from making this bulletproof.",
}

var disengagedSignal = regexp.MustCompile(`(?i)\b(I don't know|not sure|maybe|whatever|skip)\b`)

// PushBack is a selected re-engagement response. A zero value means no
// push-back is due. ResetHistory reports that the variant pool was exhausted;
// the caller must apply ResetPushBackHistory so the next selection sees a
// fresh pool. Selection itself never touches the state.
type PushBack struct {
	Response     string
	VariantID    string
	ResetHistory bool
}

// PushBackResponse decides whether a push-back is due and picks a variant.
// Both gates must pass: the turn cooldown has elapsed and the newest message
// reads as disengaged. The variant is drawn uniformly from the pool minus the
// recent history; an exhausted pool deterministically yields variant 0
// together with the reset signal.
func (t *Tracker) PushBackResponse(s State) PushBack {
	if s.CurrentTurn-s.LastPushBackTurn < pushBackCooldown {
		return PushBack{}
	}

	if !disengagedSignal.MatchString(latestMessage(s)) {
		return PushBack{}
	}

	available := make([]int, 0, len(pushBackVariants))
	for i := range pushBackVariants {
		if !slices.Contains(s.PushBackHistory, strconv.Itoa(i)) {
			available = append(available, i)
		}
	}

	if len(available) == 0 {
		return PushBack{Response: pushBackVariants[0], VariantID: "0", ResetHistory: true}
	}

	idx := available[t.rng.Intn(len(available))]
	return PushBack{Response: pushBackVariants[idx], VariantID: strconv.Itoa(idx)}
}

// PushBackVariantCount exposes the pool size for diagnostics.
func PushBackVariantCount() int {
	return len(pushBackVariants)
}

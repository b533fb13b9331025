package conversation

import "regexp"

// negativePatterns is a coarse OR-classifier over a single utterance. It is
// deliberately not an intent parser: negations inside clarifying sentences
// ("I don't have the exact price yet") match too, and that behavior is pinned
// by the test suite.
var negativePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(no|nah|nope|not interested|done|enough|stop|quit|end|finish|leave)\b`),
	regexp.MustCompile(`(?i)\b(frustrated|annoyed|annoying|tired|bored|over it)\b`),
	regexp.MustCompile(`(?i)\b(can't|won't|don't want|not going to)\b`),
	regexp.MustCompile(`(?i)\b(whatever|fine|forget it|skip it)\b`),
}

// IsNegative reports whether any negative-sentiment pattern matches anywhere
// in the message.
func IsNegative(message string) bool {
	for _, p := range negativePatterns {
		if p.MatchString(message) {
			return true
		}
	}
	return false
}

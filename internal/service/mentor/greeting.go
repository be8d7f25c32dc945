package mentor

import (
	"math/rand"
	"strings"
	"unicode"
)

// greetingOpeners is the closed set of openers that mark an utterance as a
// plain greeting. Greetings get an instant backend reply anyway, so no
// filler phrase is spoken for them.
var greetingOpeners = []string{
	"hi",
	"hello",
	"hey",
	"good morning",
	"good afternoon",
	"good evening",
	"greetings",
	"howdy",
	"yo",
	"what's up",
}

// fillerPhrases mask backend latency while the real reply is generated.
var fillerPhrases = []string{
	"Hmm, let me think about that.",
	"That's a really good question.",
	"Okay, give me a second.",
	"Interesting. Let me gather my thoughts.",
	"Right, let me think this through.",
}

// isGreeting reports whether text starts with one of the greeting openers.
// The match is case-insensitive and must end at a word boundary, so
// "history lesson" does not match "hi".
func isGreeting(text string) bool {
	lowered := strings.ToLower(strings.TrimSpace(text))
	for _, opener := range greetingOpeners {
		if !strings.HasPrefix(lowered, opener) {
			continue
		}
		if len(lowered) == len(opener) {
			return true
		}
		next := rune(lowered[len(opener)])
		if !unicode.IsLetter(next) && !unicode.IsDigit(next) {
			return true
		}
	}
	return false
}

func randomFiller() string {
	return fillerPhrases[rand.Intn(len(fillerPhrases))]
}

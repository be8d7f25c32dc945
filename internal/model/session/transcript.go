package session

import (
	"regexp"
	"strings"
)

// Transcript holds a conversation as a single string with tagged turns,
// e.g. "<user>hi</user><assistant>hello</assistant>". Turns are appended in
// chronological order; a user turn with no assistant turn after it is a
// valid transient state.
type Transcript string

var userTurnPattern = regexp.MustCompile(`(?s)<user>(.*?)</user>`)

// AppendUser appends one user-tagged turn.
func (t Transcript) AppendUser(text string) Transcript {
	return t + Transcript("<user>"+text+"</user>")
}

// AppendAssistant appends one assistant-tagged turn.
func (t Transcript) AppendAssistant(text string) Transcript {
	return t + Transcript("<assistant>"+text+"</assistant>")
}

// UserTurns extracts the user-tagged segments in order, trimmed. Used by tag
// generation, which only considers what the user said.
func (t Transcript) UserTurns() []string {
	matches := userTurnPattern.FindAllStringSubmatch(string(t), -1)
	if len(matches) == 0 {
		return nil
	}
	turns := make([]string, 0, len(matches))
	for _, m := range matches {
		turns = append(turns, strings.TrimSpace(m[1]))
	}
	return turns
}

// UserTurnCount reports how many user turns have been recorded.
func (t Transcript) UserTurnCount() int {
	return len(userTurnPattern.FindAllStringIndex(string(t), -1))
}

func (t Transcript) String() string {
	return string(t)
}

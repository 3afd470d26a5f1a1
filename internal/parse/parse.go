// Package parse turns raw oracle output into a structured game action.
//
// The oracle is asked for a JSON envelope but nothing guarantees it
// complies, so extraction is two-tier: structured first, then prefix
// sniffing over the plain text. Parse is total: it always returns a
// well-formed action and absorbs malformed output instead of surfacing
// a format error.
package parse

import (
	"encoding/json"
	"strings"

	"twentyq/internal/game"
)

// FallbackQuestion is returned when nothing usable survives stripping.
const FallbackQuestion = "I got a bit confused. Could you repeat your last answer?"

// GuessMarker prefixes a guess inside the oracle's action string.
const GuessMarker = "GUESS:"

// envelope mirrors the instructed output shape. The thought field is
// accepted and discarded; only the action payload matters.
type envelope struct {
	Thought  string `json:"thought,omitempty"`
	Action   string `json:"action,omitempty"`
	Question string `json:"question,omitempty"`
	Guess    string `json:"guess,omitempty"`
}

// Parse extracts an action from raw oracle output. Never fails.
func Parse(raw string) game.Action {
	s := StripArtifacts(raw)
	if s == "" {
		return game.Question(FallbackQuestion)
	}
	if env, ok := decodeEnvelope(s); ok {
		if act, ok := fromEnvelope(env); ok {
			return act
		}
		// Valid JSON with no recognizable payload: degrade to the
		// fixed fallback rather than echoing raw JSON at the user.
		return game.Question(FallbackQuestion)
	}
	return sniff(decodeEscapes(s))
}

// decodeEnvelope attempts structured extraction. It tolerates prose
// around the object by retrying on the outermost brace span.
func decodeEnvelope(s string) (envelope, bool) {
	var env envelope
	if err := json.Unmarshal([]byte(s), &env); err == nil {
		return env, true
	}
	open := strings.Index(s, "{")
	close := strings.LastIndex(s, "}")
	if open < 0 || close <= open {
		return envelope{}, false
	}
	if err := json.Unmarshal([]byte(s[open:close+1]), &env); err == nil {
		return env, true
	}
	return envelope{}, false
}

func fromEnvelope(env envelope) (game.Action, bool) {
	if g := strings.TrimSpace(env.Guess); g != "" {
		return game.Guess(g), true
	}
	if q := strings.TrimSpace(env.Question); q != "" {
		return game.Question(q), true
	}
	if a := strings.TrimSpace(env.Action); a != "" {
		return sniff(a), true
	}
	return game.Action{}, false
}

// sniff classifies plain text: a case-insensitive GUESS: prefix marks
// the remainder as a guess, anything else is a question.
func sniff(s string) game.Action {
	s = strings.TrimSpace(s)
	if s == "" {
		return game.Question(FallbackQuestion)
	}
	if len(s) >= len(GuessMarker) && strings.EqualFold(s[:len(GuessMarker)], GuessMarker) {
		entity := strings.TrimSpace(s[len(GuessMarker):])
		if entity == "" {
			return game.Question(FallbackQuestion)
		}
		return game.Guess(entity)
	}
	return game.Question(s)
}

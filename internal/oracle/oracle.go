// Package oracle adapts the external natural-language reasoning service.
// The adapter is a byte-for-byte passthrough: it ships the transcript plus
// an instruction block and returns whatever text comes back. No schema is
// enforced here, that is the parser's job, and the raw clients never
// retry silently (retry is an explicit middleware).
package oracle

import (
	"context"
	"errors"

	"twentyq/internal/game"
)

// ErrUnavailable is the only failure surfaced by the adapter: the
// external service could not produce a response (timeout, transport or
// service error). No session state may be mutated when it is returned.
var ErrUnavailable = errors.New("oracle: unavailable")

// Client is the minimal surface the turn controller consults.
type Client interface {
	Name() string
	// Consult sends the full transcript and the instruction block and
	// returns the raw textual output of the reasoning service.
	Consult(ctx context.Context, transcript game.Transcript, instructions string) (string, error)
	Close() error
}

// Message is one role-tagged entry of an oracle request.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleSystem    = "system"
	RoleAssistant = "assistant"
	RoleUser      = "user"
)

// BuildMessages maps the transcript onto chat roles: the questioner's
// exchanges are the assistant's own prior turns, the respondent's are
// user turns.
func BuildMessages(t game.Transcript) []Message {
	msgs := make([]Message, 0, len(t))
	for _, ex := range t {
		role := RoleUser
		if ex.Speaker == game.SpeakerQuestioner {
			role = RoleAssistant
		}
		msgs = append(msgs, Message{Role: role, Content: ex.Text})
	}
	return msgs
}

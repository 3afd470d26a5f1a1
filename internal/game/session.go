package game

import "time"

// State is the lifecycle phase of a session.
type State string

const (
	StateIdle                 State = "idle"
	StateAsking               State = "asking"
	StateAwaitingConfirmation State = "awaiting_confirmation"
	StateWon                  State = "won"
	StateAbandoned            State = "abandoned"
)

// Outcome of a finished game.
type Outcome string

const (
	OutcomeWon       Outcome = "won"
	OutcomeAbandoned Outcome = "abandoned"
)

// Session holds one running game. Invariants maintained by the turn
// controller: QuestionsAsked equals the number of questioner exchanges
// of kind question, and never exceeds the policy's MaxQuestions.
type Session struct {
	ID             string
	Owner          string
	Transcript     Transcript
	QuestionsAsked int
	State          State
	// LastGuess is the most recent committed guess, if any. The
	// transcript alone cannot distinguish a guess from a question.
	LastGuess string
	CreatedAt time.Time
}

// FinalGuess returns the guess on the table (pending or confirmed),
// empty if the questioner never guessed.
func (s *Session) FinalGuess() string { return s.LastGuess }

// NewSession creates an idle session with an empty transcript.
// Owner is an opaque authenticated-owner token supplied by the caller;
// the core performs no authentication itself.
func NewSession(id, owner string) *Session {
	return &Session{
		ID:        id,
		Owner:     owner,
		State:     StateIdle,
		CreatedAt: time.Now(),
	}
}

// Terminal reports whether the session has finished.
func (s *Session) Terminal() bool {
	return s.State == StateWon || s.State == StateAbandoned
}

// FinishedGame is the record emitted for persistence when a session
// reaches a terminal state. The core never reads it back.
type FinishedGame struct {
	SessionID  string     `json:"sessionId"`
	Owner      string     `json:"owner,omitempty"`
	Transcript Transcript `json:"transcript"`
	FinalGuess string     `json:"finalGuess,omitempty"`
	Outcome    Outcome    `json:"outcome"`
	FinishedAt time.Time  `json:"finishedAt"`
}

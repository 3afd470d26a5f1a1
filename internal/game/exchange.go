package game

// Speaker identifies which party produced an Exchange.
type Speaker string

const (
	// SpeakerQuestioner is the automated party trying to deduce the entity.
	SpeakerQuestioner Speaker = "questioner"
	// SpeakerRespondent is the human answering questions.
	SpeakerRespondent Speaker = "respondent"
)

// Exchange is a single utterance in a game. Immutable once appended.
type Exchange struct {
	Speaker Speaker `json:"speaker"`
	Text    string  `json:"text"`
}

// Transcript is the ordered log of exchanges in a session. Insertion order
// is significant: it defines dialogue order and "already asked" checks.
// Append returns a fresh transcript; the receiver is never mutated.
type Transcript []Exchange

// Append returns a new transcript consisting of t followed by ex.
func (t Transcript) Append(ex ...Exchange) Transcript {
	out := make(Transcript, len(t), len(t)+len(ex))
	copy(out, t)
	return append(out, ex...)
}

// QuestionerExchanges returns the questioner's exchanges in order.
func (t Transcript) QuestionerExchanges() []Exchange {
	var out []Exchange
	for _, ex := range t {
		if ex.Speaker == SpeakerQuestioner {
			out = append(out, ex)
		}
	}
	return out
}

// Tail returns up to n trailing exchanges, oldest first.
func (t Transcript) Tail(n int) Transcript {
	if n <= 0 || len(t) == 0 {
		return nil
	}
	if n >= len(t) {
		n = len(t)
	}
	return t[len(t)-n:]
}

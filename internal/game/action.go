package game

// ActionKind discriminates the two moves the questioner can make.
type ActionKind string

const (
	ActionQuestion ActionKind = "question"
	ActionGuess    ActionKind = "guess"
)

// Action is the structured result the oracle is expected to produce:
// either a question to the respondent or a committed guess at the entity.
// It is not persisted on its own; the accepted action becomes the next
// questioner exchange.
type Action struct {
	Kind ActionKind `json:"kind"`
	Text string     `json:"text"`
}

func Question(text string) Action { return Action{Kind: ActionQuestion, Text: text} }
func Guess(entity string) Action  { return Action{Kind: ActionGuess, Text: entity} }

func (a Action) IsQuestion() bool { return a.Kind == ActionQuestion }
func (a Action) IsGuess() bool    { return a.Kind == ActionGuess }

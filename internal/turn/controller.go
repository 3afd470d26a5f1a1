// Package turn drives one exchange of the game: turn state -> oracle ->
// parser -> governor -> next turn state. Every oracle consultation is
// paired with exactly one governance pass before session state changes,
// and nothing is appended for a consultation that did not return.
package turn

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"twentyq/internal/game"
	"twentyq/internal/govern"
	"twentyq/internal/oracle"
	"twentyq/internal/parse"
)

var (
	// ErrInvalidTurn means the human submitted input the current state
	// cannot accept (an answer with no pending question, or vice versa).
	// Session state is unchanged.
	ErrInvalidTurn = errors.New("turn: invalid turn for session state")
)

// forcedGuessText is the deterministic terminal guess the controller
// synthesizes when the oracle keeps asking past an exhausted budget.
const forcedGuessText = "I've run out of questions. My final guess is the subject of my last question. Was I right?"

// openingQuestion replaces a guess proposed before anything was asked.
const openingQuestion = "Is it a real person or a fictional character?"

// Result is what one submitted turn hands back to the caller.
type Result struct {
	SessionID      string          `json:"sessionId"`
	Kind           game.ActionKind `json:"kind"`
	Text           string          `json:"text"`
	QuestionsAsked int             `json:"questionsAsked"`
	State          game.State      `json:"state"`
}

// Archiver receives finalized game records. The core only writes.
type Archiver interface {
	SaveFinished(ctx context.Context, rec game.FinishedGame) error
}

// Controller orchestrates turns for any number of independent sessions.
// It holds no per-session mutable state of its own; serialization of
// turns within a session is the registry's job.
type Controller struct {
	oracle   oracle.Client
	policy   game.Policy
	archiver Archiver
	log      *zap.Logger
}

func NewController(cli oracle.Client, pol game.Policy, archiver Archiver, log *zap.Logger) *Controller {
	if log == nil {
		log = zap.NewNop()
	}
	return &Controller{oracle: cli, policy: pol, archiver: archiver, log: log}
}

// SubmitTurn advances the session by one exchange. humanInput is empty
// only for the very first call of a session. On error the session is
// left exactly as it was.
func (c *Controller) SubmitTurn(ctx context.Context, sess *game.Session, humanInput string) (Result, error) {
	humanInput = strings.TrimSpace(humanInput)

	switch sess.State {
	case game.StateIdle:
		if humanInput != "" {
			return Result{}, ErrInvalidTurn
		}
		return c.consultAndCommit(ctx, sess, sess.Transcript)

	case game.StateAsking:
		if humanInput == "" {
			return Result{}, ErrInvalidTurn
		}
		next := sess.Transcript.Append(game.Exchange{Speaker: game.SpeakerRespondent, Text: humanInput})
		return c.consultAndCommit(ctx, sess, next)

	case game.StateAwaitingConfirmation:
		if humanInput == "" {
			return Result{}, ErrInvalidTurn
		}
		return c.resolveConfirmation(ctx, sess, humanInput)

	default:
		return Result{}, ErrInvalidTurn
	}
}

// Abandon finalizes a session the human walked away from.
func (c *Controller) Abandon(ctx context.Context, sess *game.Session) error {
	if sess.Terminal() {
		return nil
	}
	sess.State = game.StateAbandoned
	c.emitFinished(ctx, sess, game.OutcomeAbandoned)
	return nil
}

// consultAndCommit runs the oracle/parser/governor pipeline over the
// working transcript and, only on success, commits the new exchanges.
// The working transcript may already carry the respondent's pending
// answer; committing both at once guarantees no partial exchange
// survives a failed consultation.
func (c *Controller) consultAndCommit(ctx context.Context, sess *game.Session, working game.Transcript) (Result, error) {
	forced := sess.QuestionsAsked >= c.policy.MaxQuestions
	instructions := oracle.Instructions
	if forced {
		instructions = oracle.ForcedGuessInstructions
	}

	raw, err := c.oracle.Consult(ctx, working, instructions)
	if err != nil {
		if !errors.Is(err, oracle.ErrUnavailable) {
			err = fmt.Errorf("%w: %v", oracle.ErrUnavailable, err)
		}
		return Result{}, err
	}

	proposed := parse.Parse(raw)

	snapshot := *sess
	snapshot.Transcript = working
	verdict := govern.Govern(proposed, &snapshot, c.policy)

	act := verdict.Action
	if verdict.Rejected {
		c.log.Info("governor substituted oracle action",
			zap.String("session", sess.ID),
			zap.String("reason", string(verdict.Reason)),
			zap.String("proposed", verdict.Proposed.Text),
		)
	}
	if forced && !act.IsGuess() {
		// The oracle ignored the exhausted budget, or a degenerate guess
		// was substituted with a question. Either way the turn at the
		// bound must end in the deterministic terminal guess.
		act = game.Guess(forcedGuessText)
	}
	if len(working) == 0 && act.IsGuess() {
		// Guessing before a single question is asked is never allowed;
		// open broad instead.
		act = game.Question(openingQuestion)
	}

	sess.Transcript = working.Append(game.Exchange{Speaker: game.SpeakerQuestioner, Text: act.Text})
	if act.IsQuestion() {
		sess.QuestionsAsked++
		sess.State = game.StateAsking
	} else {
		sess.LastGuess = act.Text
		sess.State = game.StateAwaitingConfirmation
	}

	return c.result(sess, act), nil
}

// resolveConfirmation handles the human's verdict on a pending guess.
// Confirmation ends the game; rejection returns to asking and, to keep
// the caller supplied with a valid next turn, immediately consults for
// the next question on the same submit.
func (c *Controller) resolveConfirmation(ctx context.Context, sess *game.Session, humanInput string) (Result, error) {
	if isAffirmative(humanInput) {
		sess.Transcript = sess.Transcript.Append(game.Exchange{Speaker: game.SpeakerRespondent, Text: humanInput})
		sess.State = game.StateWon
		c.emitFinished(ctx, sess, game.OutcomeWon)
		return c.result(sess, game.Guess(sess.FinalGuess())), nil
	}

	next := sess.Transcript.Append(game.Exchange{Speaker: game.SpeakerRespondent, Text: humanInput})
	prev := sess.State
	sess.State = game.StateAsking
	res, err := c.consultAndCommit(ctx, sess, next)
	if err != nil {
		// Roll back the state flip; the transcript was never committed.
		sess.State = prev
		return Result{}, err
	}
	return res, nil
}

func (c *Controller) result(sess *game.Session, act game.Action) Result {
	return Result{
		SessionID:      sess.ID,
		Kind:           act.Kind,
		Text:           act.Text,
		QuestionsAsked: sess.QuestionsAsked,
		State:          sess.State,
	}
}

func (c *Controller) emitFinished(ctx context.Context, sess *game.Session, outcome game.Outcome) {
	if c.archiver == nil {
		return
	}
	rec := game.FinishedGame{
		SessionID:  sess.ID,
		Owner:      sess.Owner,
		Transcript: sess.Transcript,
		FinalGuess: sess.FinalGuess(),
		Outcome:    outcome,
		FinishedAt: time.Now(),
	}
	if err := c.archiver.SaveFinished(ctx, rec); err != nil {
		// Archival is best effort; the game result stands regardless.
		c.log.Warn("archive finished game failed", zap.String("session", sess.ID), zap.Error(err))
	}
}

func isAffirmative(answer string) bool {
	a := strings.ToLower(strings.TrimSpace(answer))
	a = strings.TrimRight(a, ".!,")
	switch a {
	case "yes", "y", "yep", "yeah", "correct", "right", "that's right", "that's it", "exactly":
		return true
	}
	return strings.HasPrefix(a, "yes,") || strings.HasPrefix(a, "yes ")
}

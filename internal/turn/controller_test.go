package turn

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"twentyq/internal/game"
	"twentyq/internal/govern"
	"twentyq/internal/oracle"
)

type memArchiver struct {
	records []game.FinishedGame
}

func (m *memArchiver) SaveFinished(_ context.Context, rec game.FinishedGame) error {
	m.records = append(m.records, rec)
	return nil
}

func newController(fake *oracle.FakeClient, arch Archiver) *Controller {
	return NewController(fake, game.DefaultPolicy(), arch, nil)
}

func TestFirstTurnReturnsQuestion(t *testing.T) {
	// An empty transcript yields a question, never a guess.
	fake := oracle.NewFakeClient(`{"thought":"opening","action":"Is it a real person or a fictional character?"}`)
	ctrl := newController(fake, nil)
	sess := game.NewSession("s1", "owner")

	res, err := ctrl.SubmitTurn(context.Background(), sess, "")
	require.NoError(t, err)
	assert.Equal(t, game.ActionQuestion, res.Kind)
	assert.Equal(t, "Is it a real person or a fictional character?", res.Text)
	assert.Equal(t, 1, res.QuestionsAsked)
	assert.Equal(t, game.StateAsking, sess.State)
	assert.Len(t, sess.Transcript, 1)
}

func TestFirstTurnNeverGuesses(t *testing.T) {
	// Even if the oracle opens with a guess, the empty transcript
	// yields a question.
	fake := oracle.NewFakeClient(`{"guess":"Elvis Presley"}`)
	ctrl := newController(fake, nil)
	sess := game.NewSession("s1", "owner")

	res, err := ctrl.SubmitTurn(context.Background(), sess, "")
	require.NoError(t, err)
	assert.Equal(t, game.ActionQuestion, res.Kind)
	assert.Equal(t, game.StateAsking, sess.State)
}

func TestAnswerAppendsBothExchanges(t *testing.T) {
	fake := oracle.NewFakeClient(
		`{"action":"Is it alive?"}`,
		`{"action":"Is it man-made?"}`,
	)
	ctrl := newController(fake, nil)
	sess := game.NewSession("s1", "owner")

	_, err := ctrl.SubmitTurn(context.Background(), sess, "")
	require.NoError(t, err)
	_, err = ctrl.SubmitTurn(context.Background(), sess, "Yes")
	require.NoError(t, err)

	require.Len(t, sess.Transcript, 3)
	assert.Equal(t, game.SpeakerRespondent, sess.Transcript[1].Speaker)
	assert.Equal(t, "Yes", sess.Transcript[1].Text)
	assert.Equal(t, 2, sess.QuestionsAsked)
}

func TestBudgetForcesGuess(t *testing.T) {
	// At the budget, the governed result is a guess even if the raw
	// oracle output is a question.
	fake := oracle.NewFakeClient(`{"action":"Can I ask one more question?"}`)
	ctrl := newController(fake, nil)
	sess := seededSession(t, game.DefaultPolicy().MaxQuestions)

	res, err := ctrl.SubmitTurn(context.Background(), sess, "No")
	require.NoError(t, err)
	assert.Equal(t, game.ActionGuess, res.Kind)
	assert.Equal(t, game.StateAwaitingConfirmation, sess.State)
	assert.Equal(t, game.DefaultPolicy().MaxQuestions, sess.QuestionsAsked)
}

func TestBudgetVagueGuessStillForcesGuess(t *testing.T) {
	// A vague guess at the bound may not be laundered into one more
	// question via the clarifying substitute; the question count never
	// passes the budget.
	fake := oracle.NewFakeClient(`{"guess":"a famous person"}`)
	ctrl := newController(fake, nil)
	pol := game.DefaultPolicy()
	sess := seededSession(t, pol.MaxQuestions)

	res, err := ctrl.SubmitTurn(context.Background(), sess, "No")
	require.NoError(t, err)
	assert.Equal(t, game.ActionGuess, res.Kind)
	assert.Equal(t, pol.MaxQuestions, sess.QuestionsAsked)
	assert.Equal(t, game.StateAwaitingConfirmation, sess.State)
}

func TestVagueGuessSubstituted(t *testing.T) {
	// A vague guess is replaced by the fixed clarifying question and
	// never shown to the user.
	fake := oracle.NewFakeClient(`{"guess": "a famous person"}`)
	ctrl := newController(fake, nil)
	sess := seededSession(t, 5)

	res, err := ctrl.SubmitTurn(context.Background(), sess, "Yes")
	require.NoError(t, err)
	assert.Equal(t, game.ActionQuestion, res.Kind)
	assert.Equal(t, govern.ClarifyingQuestion, res.Text)
	assert.Equal(t, game.StateAsking, sess.State)
}

func TestDuplicateQuestionSubstituted(t *testing.T) {
	// Repeating an earlier question verbatim draws a distinct
	// substitute from the fallback pool.
	fake := oracle.NewFakeClient(`{"action":"Question number 2?"}`)
	ctrl := newController(fake, nil)
	sess := seededSession(t, 9)

	res, err := ctrl.SubmitTurn(context.Background(), sess, "Yes")
	require.NoError(t, err)
	assert.Equal(t, game.ActionQuestion, res.Kind)
	assert.NotEqual(t, "Question number 2?", res.Text)
	assert.NotEmpty(t, res.Text)
}

func TestStalledBranchSwitchesCategory(t *testing.T) {
	// Three consecutive "No" answers force a category switch
	// regardless of the oracle's proposal.
	fake := oracle.NewFakeClient(
		`{"action":"q1?"}`,
		`{"action":"q2?"}`,
		`{"action":"q3?"}`,
		`{"action":"Is it also not this?"}`,
	)
	ctrl := newController(fake, nil)
	sess := game.NewSession("s1", "owner")

	_, err := ctrl.SubmitTurn(context.Background(), sess, "")
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		_, err = ctrl.SubmitTurn(context.Background(), sess, "No")
		require.NoError(t, err)
	}
	res, err := ctrl.SubmitTurn(context.Background(), sess, "No")
	require.NoError(t, err)
	assert.Equal(t, game.ActionQuestion, res.Kind)
	assert.NotEqual(t, "Is it also not this?", res.Text)
}

func TestOracleFailureLeavesSessionUntouched(t *testing.T) {
	// A failed consultation surfaces as unavailable and appends
	// nothing, not even the human's pending answer.
	fake := oracle.NewFakeClient(`{"action":"Is it alive?"}`)
	ctrl := newController(fake, nil)
	sess := game.NewSession("s1", "owner")

	_, err := ctrl.SubmitTurn(context.Background(), sess, "")
	require.NoError(t, err)

	fake.QueueError(errors.New("deadline exceeded"))
	before := len(sess.Transcript)
	_, err = ctrl.SubmitTurn(context.Background(), sess, "Yes")
	require.ErrorIs(t, err, oracle.ErrUnavailable)
	assert.Len(t, sess.Transcript, before)
	assert.Equal(t, game.StateAsking, sess.State)
	assert.Equal(t, 1, sess.QuestionsAsked)

	// Whole-turn retry by the caller is safe.
	res, err := ctrl.SubmitTurn(context.Background(), sess, "Yes")
	require.NoError(t, err)
	assert.Equal(t, game.ActionQuestion, res.Kind)
	assert.Len(t, sess.Transcript, 3)
}

func TestConfirmationWinsAndArchives(t *testing.T) {
	fake := oracle.NewFakeClient(`{"action":"GUESS: Is it Darth Vader?"}`)
	arch := &memArchiver{}
	ctrl := newController(fake, arch)
	sess := seededSession(t, 5)

	res, err := ctrl.SubmitTurn(context.Background(), sess, "Yes")
	require.NoError(t, err)
	require.Equal(t, game.ActionGuess, res.Kind)
	require.Equal(t, game.StateAwaitingConfirmation, sess.State)

	res, err = ctrl.SubmitTurn(context.Background(), sess, "yes, correct!")
	require.NoError(t, err)
	assert.Equal(t, game.StateWon, res.State)
	require.Len(t, arch.records, 1)
	assert.Equal(t, game.OutcomeWon, arch.records[0].Outcome)
	assert.Equal(t, "Is it Darth Vader?", arch.records[0].FinalGuess)
}

func TestRejectedGuessContinuesAsking(t *testing.T) {
	fake := oracle.NewFakeClient(
		`{"action":"GUESS: Is it Napoleon?"}`,
		`{"action":"Is it from the twentieth century?"}`,
	)
	ctrl := newController(fake, nil)
	sess := seededSession(t, 5)
	asked := sess.QuestionsAsked

	_, err := ctrl.SubmitTurn(context.Background(), sess, "Yes")
	require.NoError(t, err)
	res, err := ctrl.SubmitTurn(context.Background(), sess, "No, that's wrong")
	require.NoError(t, err)

	// The game continues with the budget intact (not reset).
	assert.Equal(t, game.ActionQuestion, res.Kind)
	assert.Equal(t, game.StateAsking, sess.State)
	assert.Equal(t, asked+1, sess.QuestionsAsked)
}

func TestInvalidTurns(t *testing.T) {
	fake := oracle.NewFakeClient(`{"action":"Is it alive?"}`)
	ctrl := newController(fake, nil)
	sess := game.NewSession("s1", "owner")

	// Answer with no pending question.
	_, err := ctrl.SubmitTurn(context.Background(), sess, "Yes")
	require.ErrorIs(t, err, ErrInvalidTurn)
	assert.Equal(t, game.StateIdle, sess.State)

	_, err = ctrl.SubmitTurn(context.Background(), sess, "")
	require.NoError(t, err)

	// Missing answer while a question is pending.
	_, err = ctrl.SubmitTurn(context.Background(), sess, "")
	require.ErrorIs(t, err, ErrInvalidTurn)

	// Terminal sessions accept nothing.
	sess.State = game.StateWon
	_, err = ctrl.SubmitTurn(context.Background(), sess, "Yes")
	require.ErrorIs(t, err, ErrInvalidTurn)
}

func TestQuestionsAskedBoundedAndMonotone(t *testing.T) {
	fake := oracle.NewFakeClient() // repeats a scripted question forever
	ctrl := newController(fake, nil)
	sess := game.NewSession("s1", "owner")
	pol := game.DefaultPolicy()

	_, err := ctrl.SubmitTurn(context.Background(), sess, "")
	require.NoError(t, err)
	prev := sess.QuestionsAsked
	for i := 0; i < pol.MaxQuestions+3; i++ {
		input := "Yes"
		if sess.State == game.StateAwaitingConfirmation {
			input = "no, keep trying"
		}
		_, err := ctrl.SubmitTurn(context.Background(), sess, input)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, sess.QuestionsAsked, prev)
		assert.LessOrEqual(t, sess.QuestionsAsked, pol.MaxQuestions)
		prev = sess.QuestionsAsked
	}
}

func TestAbandonEmitsRecord(t *testing.T) {
	fake := oracle.NewFakeClient(`{"action":"Is it alive?"}`)
	arch := &memArchiver{}
	ctrl := newController(fake, arch)
	sess := game.NewSession("s1", "owner")

	_, err := ctrl.SubmitTurn(context.Background(), sess, "")
	require.NoError(t, err)
	require.NoError(t, ctrl.Abandon(context.Background(), sess))

	assert.Equal(t, game.StateAbandoned, sess.State)
	require.Len(t, arch.records, 1)
	assert.Equal(t, game.OutcomeAbandoned, arch.records[0].Outcome)
}

// seededSession builds an asking-state session with n distinct questions
// already asked and affirmatively answered.
func seededSession(t *testing.T, n int) *game.Session {
	t.Helper()
	sess := game.NewSession("seeded", "owner")
	for i := 0; i < n; i++ {
		sess.Transcript = sess.Transcript.Append(
			game.Exchange{Speaker: game.SpeakerQuestioner, Text: fmt.Sprintf("Question number %d?", i+1)},
			game.Exchange{Speaker: game.SpeakerRespondent, Text: "Yes"},
		)
	}
	// Leave the last question unanswered so the next submit carries it.
	sess.Transcript = sess.Transcript[:len(sess.Transcript)-1]
	sess.QuestionsAsked = n
	sess.State = game.StateAsking
	return sess
}

package govern

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"twentyq/internal/game"
)

func sessionWith(t game.Transcript, asked int) *game.Session {
	s := game.NewSession("s1", "owner")
	s.Transcript = t
	s.QuestionsAsked = asked
	s.State = game.StateAsking
	return s
}

func TestGovernAcceptsCleanQuestion(t *testing.T) {
	sess := sessionWith(nil, 0)
	v := Govern(game.Question("Is it alive?"), sess, game.DefaultPolicy())
	assert.False(t, v.Rejected)
	assert.Equal(t, game.Question("Is it alive?"), v.Action)
}

func TestGovernAcceptsSpecificGuess(t *testing.T) {
	sess := sessionWith(nil, 10)
	v := Govern(game.Guess("Marie Curie"), sess, game.DefaultPolicy())
	assert.False(t, v.Rejected)
	assert.Equal(t, game.Guess("Marie Curie"), v.Action)
}

func TestGovernBudgetExceededRejectsQuestion(t *testing.T) {
	pol := game.DefaultPolicy()
	sess := sessionWith(nil, pol.MaxQuestions)
	v := Govern(game.Question("One more?"), sess, pol)
	require.True(t, v.Rejected)
	assert.Equal(t, ReasonBudgetExceeded, v.Reason)
	// The governor never fabricates a guess; the controller owns that.
	assert.Equal(t, game.Action{}, v.Action)
}

func TestGovernBudgetAllowsGuessAtBound(t *testing.T) {
	pol := game.DefaultPolicy()
	sess := sessionWith(nil, pol.MaxQuestions)
	v := Govern(game.Guess("the Moon"), sess, pol)
	assert.False(t, v.Rejected)
}

func TestGovernVagueGuess(t *testing.T) {
	sess := sessionWith(nil, 5)
	v := Govern(game.Guess("a famous person"), sess, game.DefaultPolicy())
	require.True(t, v.Rejected)
	assert.Equal(t, ReasonVagueGuess, v.Reason)
	assert.Equal(t, game.Question(ClarifyingQuestion), v.Action)
}

func TestGovernVagueGuessCaseInsensitiveContainment(t *testing.T) {
	sess := sessionWith(nil, 5)
	v := Govern(game.Guess("Probably SOMETHING round"), sess, game.DefaultPolicy())
	require.True(t, v.Rejected)
	assert.Equal(t, ReasonVagueGuess, v.Reason)
}

func TestGovernDuplicateQuestion(t *testing.T) {
	tr := game.Transcript{
		{Speaker: game.SpeakerQuestioner, Text: "Is it a real person?"},
		{Speaker: game.SpeakerRespondent, Text: "Yes"},
		{Speaker: game.SpeakerQuestioner, Text: "Is it a man?"},
		{Speaker: game.SpeakerRespondent, Text: "Yes"},
	}
	sess := sessionWith(tr, 2)
	v := Govern(game.Question("  is it a REAL person? "), sess, game.DefaultPolicy())
	require.True(t, v.Rejected)
	assert.Equal(t, ReasonDuplicateQuestion, v.Reason)
	// The substitute is never the repeated text itself.
	assert.NotEqual(t, "is it a real person?", v.Action.Text)
	assert.True(t, v.Action.IsQuestion())
	assert.NotEmpty(t, v.Action.Text)
}

func TestGovernDuplicateSubstituteAvoidsSecondCollision(t *testing.T) {
	pol := game.DefaultPolicy()
	// Seed the transcript with a pool entry so the naive pick may collide.
	tr := game.Transcript{
		{Speaker: game.SpeakerQuestioner, Text: "Is it alive?"},
		{Speaker: game.SpeakerRespondent, Text: "Yes"},
	}
	for _, q := range duplicatePool[:len(duplicatePool)-1] {
		tr = tr.Append(
			game.Exchange{Speaker: game.SpeakerQuestioner, Text: q},
			game.Exchange{Speaker: game.SpeakerRespondent, Text: "Yes"},
		)
	}
	sess := sessionWith(tr, len(tr)/2)
	v := Govern(game.Question("Is it alive?"), sess, pol)
	require.True(t, v.Rejected)
	assert.Equal(t, duplicatePool[len(duplicatePool)-1], v.Action.Text)
}

func TestGovernStalledBranch(t *testing.T) {
	tr := game.Transcript{
		{Speaker: game.SpeakerQuestioner, Text: "Is it alive?"},
		{Speaker: game.SpeakerRespondent, Text: "No"},
		{Speaker: game.SpeakerQuestioner, Text: "Is it edible?"},
		{Speaker: game.SpeakerRespondent, Text: "No"},
		{Speaker: game.SpeakerQuestioner, Text: "Is it heavy?"},
		{Speaker: game.SpeakerRespondent, Text: "no"},
	}
	sess := sessionWith(tr, 3)
	v := Govern(game.Question("Is it light?"), sess, game.DefaultPolicy())
	require.True(t, v.Rejected)
	assert.Equal(t, ReasonStalledBranch, v.Reason)
	assert.Contains(t, categorySwitchPool, v.Action.Text)
}

func TestGovernStallBrokenByAffirmative(t *testing.T) {
	tr := game.Transcript{
		{Speaker: game.SpeakerQuestioner, Text: "Is it alive?"},
		{Speaker: game.SpeakerRespondent, Text: "No"},
		{Speaker: game.SpeakerQuestioner, Text: "Is it edible?"},
		{Speaker: game.SpeakerRespondent, Text: "Yes"},
		{Speaker: game.SpeakerQuestioner, Text: "Is it heavy?"},
		{Speaker: game.SpeakerRespondent, Text: "No"},
	}
	sess := sessionWith(tr, 3)
	v := Govern(game.Question("Is it sweet?"), sess, game.DefaultPolicy())
	assert.False(t, v.Rejected)
}

func TestGovernDeterministic(t *testing.T) {
	tr := game.Transcript{
		{Speaker: game.SpeakerQuestioner, Text: "Is it alive?"},
		{Speaker: game.SpeakerRespondent, Text: "No"},
	}
	sess := sessionWith(tr, 1)
	first := Govern(game.Question("Is it alive?"), sess, game.DefaultPolicy())
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Govern(game.Question("Is it alive?"), sess, game.DefaultPolicy()))
	}
}

func TestGovernRuleOrderBudgetBeforeDuplicate(t *testing.T) {
	pol := game.DefaultPolicy()
	tr := game.Transcript{
		{Speaker: game.SpeakerQuestioner, Text: "Is it alive?"},
		{Speaker: game.SpeakerRespondent, Text: "No"},
	}
	sess := sessionWith(tr, pol.MaxQuestions)
	v := Govern(game.Question("Is it alive?"), sess, pol)
	require.True(t, v.Rejected)
	assert.Equal(t, ReasonBudgetExceeded, v.Reason)
}

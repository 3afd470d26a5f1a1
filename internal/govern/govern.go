// Package govern validates a parsed oracle action against the session
// history and game rules, substituting a deterministic fallback when the
// oracle proposes something degenerate. It is a pure function of
// (action, session, policy): no I/O, no oracle calls, no clock reads.
package govern

import (
	"hash/fnv"
	"strings"

	"twentyq/internal/game"
)

// Reason labels why a proposed action was rejected. Rejections are
// internal signals, never user-visible errors: the verdict carries a
// valid substitute so the game always makes forward progress.
type Reason string

const (
	ReasonBudgetExceeded    Reason = "budget_exceeded"
	ReasonVagueGuess        Reason = "vague_guess"
	ReasonDuplicateQuestion Reason = "duplicate_question"
	ReasonStalledBranch     Reason = "stalled_branch"
)

// Verdict is the outcome of one governance pass.
type Verdict struct {
	// Action is what the caller should use. For every reason except
	// BudgetExceeded it is a valid substitute (or the accepted
	// proposal); on BudgetExceeded the turn controller owns the
	// forced-guess path and Action is the zero value.
	Action   game.Action
	Proposed game.Action
	Rejected bool
	Reason   Reason
}

// Govern applies the rules in order; first match wins.
func Govern(action game.Action, sess *game.Session, pol game.Policy) Verdict {
	v := Verdict{Action: action, Proposed: action}

	// Rule 1: question budget. The controller must already have forced
	// a guess on this turn; a question here is only rejected, never
	// rewritten into a fabricated guess.
	if action.IsQuestion() && sess.QuestionsAsked >= pol.MaxQuestions {
		return Verdict{Proposed: action, Rejected: true, Reason: ReasonBudgetExceeded}
	}

	// Rule 2: vague guess.
	if action.IsGuess() && isVague(action.Text, pol.VagueDenylist) {
		return Verdict{
			Action:   game.Question(ClarifyingQuestion),
			Proposed: action,
			Rejected: true,
			Reason:   ReasonVagueGuess,
		}
	}

	// Rule 3: duplicate question.
	if action.IsQuestion() && isDuplicate(action.Text, sess.Transcript, pol) {
		return Verdict{
			Action:   game.Question(pickFallback(duplicatePool, sess.Transcript, action.Text, pol)),
			Proposed: action,
			Rejected: true,
			Reason:   ReasonDuplicateQuestion,
		}
	}

	// Rule 4: stalled branch.
	if action.IsQuestion() && isStalled(sess.Transcript, pol) {
		return Verdict{
			Action:   game.Question(pickFallback(categorySwitchPool, sess.Transcript, action.Text, pol)),
			Proposed: action,
			Rejected: true,
			Reason:   ReasonStalledBranch,
		}
	}

	return v
}

func isVague(entity string, denylist []string) bool {
	lowered := strings.ToLower(entity)
	for _, phrase := range denylist {
		if phrase == "" {
			continue
		}
		if strings.Contains(lowered, strings.ToLower(phrase)) {
			return true
		}
	}
	return false
}

func isDuplicate(text string, t game.Transcript, pol game.Policy) bool {
	needle := normalize(text, pol)
	for _, ex := range t.QuestionerExchanges() {
		if normalize(ex.Text, pol) == needle {
			return true
		}
	}
	return false
}

// isStalled counts consecutive negative answers from the tail of the
// inspected window; a run at or above the threshold means the current
// line of questioning is going nowhere.
func isStalled(t game.Transcript, pol game.Policy) bool {
	if pol.StallThreshold <= 0 {
		return false
	}
	window := t.Tail(pol.StallWindow)
	run := 0
	for i := len(window) - 1; i >= 0; i-- {
		ex := window[i]
		if ex.Speaker != game.SpeakerRespondent {
			continue
		}
		if !isNegative(ex.Text) {
			break
		}
		run++
		if run >= pol.StallThreshold {
			return true
		}
	}
	return false
}

func isNegative(answer string) bool {
	a := strings.ToLower(strings.TrimSpace(answer))
	a = strings.TrimRight(a, ".!,")
	switch a {
	case "no", "nope", "nah", "no.", "not really", "negative":
		return true
	}
	return strings.HasPrefix(a, "no,") || strings.HasPrefix(a, "no ")
}

func normalize(s string, pol game.Policy) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if pol.DuplicateExact {
		return s
	}
	s = strings.TrimRight(s, "?.! ")
	return strings.Join(strings.Fields(s), " ")
}

// pickFallback selects a pool entry pseudo-randomly but deterministically:
// the choice is a pure function of the transcript and the rejected text,
// so repeated governance passes over identical input agree. Entries that
// would collide with an already-asked question are skipped.
func pickFallback(pool []string, t game.Transcript, rejected string, pol game.Policy) string {
	h := fnv.New64a()
	for _, ex := range t {
		_, _ = h.Write([]byte(ex.Text))
		_, _ = h.Write([]byte{0})
	}
	_, _ = h.Write([]byte(rejected))
	idx := int(h.Sum64() % uint64(len(pool)))

	for i := 0; i < len(pool); i++ {
		candidate := pool[(idx+i)%len(pool)]
		if !isDuplicate(candidate, t, pol) && normalize(candidate, pol) != normalize(rejected, pol) {
			return candidate
		}
	}
	// Every pool entry already asked; the first pick is still a valid
	// question even if repeated.
	return pool[idx]
}

package game

// Policy is the governance configuration for a session. Supplied at
// construction and constant for the session's lifetime.
//
// The denylist is a hand-tuned heuristic, not an exhaustive filter;
// deployments are expected to adjust it from configuration.
type Policy struct {
	// MaxQuestions bounds the question budget. Once reached, the next
	// questioner action must be a guess.
	MaxQuestions int
	// VagueDenylist contains lower-case category phrases that disqualify
	// a guess ("a person", "something", ...). Containment test.
	VagueDenylist []string
	// DuplicateExact restricts the duplicate-question check to exact
	// (trimmed, case-folded) matches. When false, trailing punctuation
	// and repeated whitespace are also ignored.
	DuplicateExact bool
	// StallThreshold is the number of consecutive negative answers that
	// marks a branch as stalled.
	StallThreshold int
	// StallWindow is how many trailing exchanges the stall check inspects.
	StallWindow int
}

// DefaultPolicy returns the standard 20-questions ruleset.
func DefaultPolicy() Policy {
	return Policy{
		MaxQuestions: 20,
		VagueDenylist: []string{
			"a person",
			"a famous person",
			"a character",
			"a type of",
			"a kind of",
			"some kind of",
			"something",
			"someone",
			"an object",
			"a thing",
			"a place",
			"an animal",
			"a concept",
		},
		DuplicateExact: true,
		StallThreshold: 3,
		StallWindow:    6,
	}
}

package govern

// ClarifyingQuestion replaces a vague guess. A single fixed sentence so
// every rejection of this kind reads the same.
const ClarifyingQuestion = "Before I guess: are you thinking of one specific, nameable person or thing rather than a general category?"

// duplicatePool re-anchors the dialogue after the oracle repeats itself.
var duplicatePool = []string{
	"Is it something most people would recognize by name?",
	"Would it have been well known more than fifty years ago?",
	"Is it primarily associated with one particular country?",
	"Could you encounter it in everyday life?",
	"Is it more familiar to younger people than to older people?",
	"Does it have an official name rather than a nickname?",
}

// categorySwitchPool breaks out of a stalled branch by changing topic.
var categorySwitchPool = []string{
	"Let me change direction: is it fictional rather than real?",
	"Let me try another angle: is it a living thing?",
	"Switching categories: is it something man-made?",
	"Let me step back: is it bigger than a microwave oven?",
	"New angle: would you mainly know it from movies or television?",
	"Different tack: is it older than a hundred years?",
}

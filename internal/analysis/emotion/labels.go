package emotion

import "strings"

// Label identifies one of the emotions the companion can display as an emote.
// The set is closed: every label has exactly one emote asset and the
// classifier adapter rejects anything outside it.
type Label string

const (
	// Idle doubles as the happy/neutral resting face. It is the default
	// whenever classification cannot commit to anything stronger.
	Idle     Label = "idle"
	Smirk    Label = "smirk"
	Sad      Label = "sad"
	Surprise Label = "surprise"
	Angry    Label = "angry"
)

// Default is the neutral resting label.
const Default = Idle

// All returns the closed label set in display order.
func All() []Label {
	return []Label{Idle, Smirk, Sad, Surprise, Angry}
}

// ParseLabel normalizes a raw classifier label against the closed set.
// "happy" and "idle/happy" are accepted as aliases of the resting face,
// matching how the fine-tuned model names that class.
func ParseLabel(raw string) (Label, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "idle", "happy", "idle/happy":
		return Idle, true
	case "smirk":
		return Smirk, true
	case "sad":
		return Sad, true
	case "surprise", "surprised":
		return Surprise, true
	case "angry":
		return Angry, true
	default:
		return "", false
	}
}

// Candidate pairs a label with the confidence a classifier assigned to it.
type Candidate struct {
	Label      Label
	Confidence float64
}

// PickTop selects the strictly highest-confidence candidate. An exact tie
// for the maximum resolves to the neutral default rather than an arbitrary
// winner. Returns false when the slice is empty.
func PickTop(cands []Candidate) (Candidate, bool) {
	if len(cands) == 0 {
		return Candidate{}, false
	}

	best := cands[0]
	tied := false
	for _, c := range cands[1:] {
		switch {
		case c.Confidence > best.Confidence:
			best = c
			tied = false
		case c.Confidence == best.Confidence && c.Label != best.Label:
			tied = true
		}
	}

	if tied {
		return Candidate{Label: Default, Confidence: best.Confidence}, true
	}
	return best, true
}

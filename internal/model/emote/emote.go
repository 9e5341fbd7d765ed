package emote

import (
	"fmt"

	"github.com/Star2578/AINA/internal/analysis/emotion"
)

// Emote binds an emotion label to the display asset the renderer plays.
type Emote struct {
	Emotion emotion.Label `json:"emotion"`
	Asset   string        `json:"asset"`
	Loop    bool          `json:"loop"`
	Caption string        `json:"caption,omitempty"`
}

// Registry is the immutable label-to-emote table. Construction enforces
// totality over the closed label set, so lookups never have to handle a
// missing entry at runtime. Safe for concurrent reads without locking.
type Registry struct {
	entries map[emotion.Label]Emote
}

// NewRegistry validates the entries and builds the registry. Every label in
// the closed set must appear exactly once with a non-empty asset; anything
// else is a startup configuration error.
func NewRegistry(entries []Emote) (*Registry, error) {
	byLabel := make(map[emotion.Label]Emote, len(entries))
	for _, e := range entries {
		label, ok := emotion.ParseLabel(string(e.Emotion))
		if !ok {
			return nil, fmt.Errorf("emote registry: unknown emotion %q", e.Emotion)
		}
		e.Emotion = label
		if e.Asset == "" {
			return nil, fmt.Errorf("emote registry: emotion %q has no asset", e.Emotion)
		}
		if _, dup := byLabel[e.Emotion]; dup {
			return nil, fmt.Errorf("emote registry: duplicate entry for %q", e.Emotion)
		}
		byLabel[e.Emotion] = e
	}

	for _, label := range emotion.All() {
		if _, ok := byLabel[label]; !ok {
			return nil, fmt.Errorf("emote registry: missing entry for %q", label)
		}
	}

	return &Registry{entries: byLabel}, nil
}

// Lookup returns the emote for a label. For any label the registry was
// built over, ok is always true.
func (r *Registry) Lookup(label emotion.Label) (Emote, bool) {
	e, ok := r.entries[label]
	return e, ok
}

// All returns the registry contents in display order.
func (r *Registry) All() []Emote {
	out := make([]Emote, 0, len(r.entries))
	for _, label := range emotion.All() {
		out = append(out, r.entries[label])
	}
	return out
}

// Seed returns the built-in emote set shipped with the companion.
func Seed() []Emote {
	return []Emote{
		{Emotion: emotion.Idle, Asset: "assets/emotes/idle.webm", Loop: true, Caption: "resting happy face"},
		{Emotion: emotion.Smirk, Asset: "assets/emotes/smirk.webm", Loop: true, Caption: "playful smirk"},
		{Emotion: emotion.Sad, Asset: "assets/emotes/sad.webm", Loop: true, Caption: "drooping ears"},
		{Emotion: emotion.Surprise, Asset: "assets/emotes/surprise.webm", Loop: true, Caption: "wide eyes"},
		{Emotion: emotion.Angry, Asset: "assets/emotes/angry.webm", Loop: true, Caption: "puffed cheeks"},
	}
}

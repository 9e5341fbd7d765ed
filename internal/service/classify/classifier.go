package classify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Star2578/AINA/internal/analysis/emotion"
)

var (
	// ErrInvalidInput rejects empty or whitespace-only text before any
	// network call is made.
	ErrInvalidInput = errors.New("classify: text is empty")

	// ErrUnavailable means the classification capability could not be
	// reached within the retry budget.
	ErrUnavailable = errors.New("classify: classifier unavailable")
)

// UnknownLabelError reports a classifier response outside the closed label
// set. The offending label is kept so the failure is diagnosable; it is
// never silently defaulted away.
type UnknownLabelError struct {
	Label string
}

func (e *UnknownLabelError) Error() string {
	return fmt.Sprintf("classify: unknown label %q", e.Label)
}

// Result is the one validated outcome of classifying a user message.
type Result struct {
	Label      emotion.Label `json:"label"`
	Confidence float64       `json:"confidence"`
}

// Classifier turns raw user text into exactly one emotion with a confidence
// in [0,1]. Implementations validate labels against the closed set at this
// boundary so nothing unvalidated propagates further.
type Classifier interface {
	Classify(ctx context.Context, text string) (Result, error)
}

func validateInput(text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrInvalidInput
	}
	return nil
}

func clampConfidence(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

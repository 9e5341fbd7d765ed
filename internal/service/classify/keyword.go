package classify

import (
	"context"

	"github.com/Star2578/AINA/internal/analysis/emotion"
)

// KeywordClassifier is the offline provider backed by the keyword analyzer.
// It exists for installs with no inference endpoint configured and is only
// ever selected explicitly at startup, never as a mid-call fallback.
type KeywordClassifier struct{}

// NewKeywordClassifier builds the offline provider.
func NewKeywordClassifier() *KeywordClassifier {
	return &KeywordClassifier{}
}

// Classify scores the text heuristically. It shares the input validation of
// the HTTP provider so callers see the same contract either way.
func (k *KeywordClassifier) Classify(_ context.Context, text string) (Result, error) {
	if err := validateInput(text); err != nil {
		return Result{}, err
	}

	cand := emotion.Analyze(text)
	return Result{Label: cand.Label, Confidence: clampConfidence(cand.Confidence)}, nil
}

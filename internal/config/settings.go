package config

import (
	"errors"
	"strings"
	"sync"
)

// ErrEmptyModel rejects clearing the selected model.
var ErrEmptyModel = errors.New("model identifier must not be empty")

// Settings holds the runtime-mutable part of the configuration: the model
// identifier new sessions pick up. Changing it never touches live sessions;
// it applies to sessions created or reset afterwards.
type Settings struct {
	mu    sync.RWMutex
	model string
}

// NewSettings seeds the runtime settings with the configured default model.
func NewSettings(model string) *Settings {
	return &Settings{model: model}
}

// Model returns the currently selected generation model.
func (s *Settings) Model() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.model
}

// SetModel selects the generation model for future sessions.
func (s *Settings) SetModel(model string) error {
	model = strings.TrimSpace(model)
	if model == "" {
		return ErrEmptyModel
	}
	s.mu.Lock()
	s.model = model
	s.mu.Unlock()
	return nil
}

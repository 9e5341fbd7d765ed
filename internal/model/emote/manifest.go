package emote

import (
	"encoding/json"
	"fmt"
	"os"
)

// LoadManifest reads an emote set from a JSON file. The file holds an array
// of emote entries and replaces the seed set wholesale, so it is subject to
// the same totality check as any other registry input.
func LoadManifest(path string) ([]Emote, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read emote manifest: %w", err)
	}

	var entries []Emote
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse emote manifest %s: %w", path, err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("emote manifest %s is empty", path)
	}
	return entries, nil
}

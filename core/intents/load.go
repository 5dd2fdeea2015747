package intents

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// rulesFile mirrors the on-disk rule resource format.
type rulesFile struct {
	Intents []Rule `json:"intents" yaml:"intents"`
}

// ParseRulesJSON parses an intent rules resource document.
func ParseRulesJSON(data []byte) ([]Rule, error) {
	var file rulesFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse intent rules json: %w", err)
	}
	if len(file.Intents) == 0 {
		return nil, fmt.Errorf("intent rules file declares no intents")
	}
	return file.Intents, nil
}

// ParseRulesYAML parses an intent rules resource document.
func ParseRulesYAML(data []byte) ([]Rule, error) {
	var file rulesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse intent rules yaml: %w", err)
	}
	if len(file.Intents) == 0 {
		return nil, fmt.Errorf("intent rules file declares no intents")
	}
	return file.Intents, nil
}

// Package contract is the strict parse-then-validate boundary between the
// generative model and the rest of the pipeline. Untrusted model output is
// converted into a closed StructuredResponse before any other component
// touches it; nothing unvalidated ever reaches phrase rendering.
package contract

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Notes carries the model's free-form observations. They are surfaced to the
// instructor UI and audit trail only, never rendered over the radio.
type Notes struct {
	Observations       []string `json:"observations"`
	MissingInformation []string `json:"missing_information"`
}

// StructuredResponse is the validated, normalized form of a model response.
type StructuredResponse struct {
	Intent     string            `json:"intent"`
	Confidence float64           `json:"confidence"`
	Slots      map[string]string `json:"slots"`
	Notes      Notes             `json:"notes"`

	// NextPhaseHint, when present, names a phase reachable from the active
	// phase; unreachable hints are cleared during validation.
	NextPhaseHint string `json:"next_phase_hint,omitempty"`

	// AllowResponse mirrors the instructor contract: false means the
	// controller stays silent and only feedback is delivered.
	AllowResponse bool `json:"allow_response"`

	// Feedback is instructional commentary for the student.
	Feedback string `json:"feedback,omitempty"`

	// Score rates the transmission 0-100 when the model provides one.
	Score *float64 `json:"score,omitempty"`
}

// Classification is the constrained output of the intent-classification
// escalation mode.
type Classification struct {
	Intent         string  `json:"intent"`
	Confidence     float64 `json:"confidence"`
	FrequencyGroup string  `json:"frequencyGroup"`
}

// rawResponse tolerates the loose typing models produce before
// normalization.
type rawResponse struct {
	Intent        string         `json:"intent"`
	Confidence    *float64       `json:"confidence"`
	Slots         map[string]any `json:"slots"`
	Notes         Notes          `json:"notes"`
	NextPhaseHint string         `json:"next_phase_hint"`
	NextPhase     string         `json:"nextPhase"`
	AllowResponse *bool          `json:"allowResponse"`
	Feedback      string         `json:"feedback"`
	Score         *float64       `json:"score"`
}

// sanitize strips markdown fences and surrounding prose, keeping the
// outermost JSON object.
func sanitize(raw string) string {
	cleaned := strings.TrimSpace(raw)
	if strings.HasPrefix(cleaned, "```json") {
		cleaned = cleaned[len("```json"):]
	} else if strings.HasPrefix(cleaned, "```") {
		cleaned = cleaned[len("```"):]
	}
	cleaned = strings.TrimSuffix(strings.TrimSpace(cleaned), "```")
	cleaned = strings.TrimSpace(cleaned)

	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start != -1 && end > start {
		cleaned = cleaned[start : end+1]
	}
	return cleaned
}

func parseRaw(raw string) (*rawResponse, error) {
	cleaned := sanitize(raw)
	if cleaned == "" {
		return nil, NewError(KindMalformed, "model returned an empty response")
	}

	var parsed rawResponse
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		return nil, &Error{
			Kind:    KindMalformed,
			Reason:  fmt.Sprintf("invalid json: %v", err),
			wrapped: err,
		}
	}
	return &parsed, nil
}

// stringifySlots flattens loose slot values (numbers, bools) to strings.
func stringifySlots(raw map[string]any) map[string]string {
	slots := make(map[string]string, len(raw))
	for name, value := range raw {
		switch typed := value.(type) {
		case string:
			slots[name] = strings.TrimSpace(typed)
		case float64:
			slots[name] = strconv.FormatFloat(typed, 'f', -1, 64)
		case bool:
			slots[name] = strconv.FormatBool(typed)
		case nil:
			// dropped
		default:
			encoded, err := json.Marshal(typed)
			if err == nil {
				slots[name] = string(encoded)
			}
		}
	}
	return slots
}

func clamp(value, low, high float64) float64 {
	if value < low {
		return low
	}
	if value > high {
		return high
	}
	return value
}

// ParseClassification validates the constrained classification contract.
func ParseClassification(raw string) (*Classification, error) {
	cleaned := sanitize(raw)
	if cleaned == "" {
		return nil, NewError(KindMalformed, "classifier returned an empty response")
	}

	var parsed Classification
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		return nil, &Error{
			Kind:    KindMalformed,
			Reason:  fmt.Sprintf("invalid classifier json: %v", err),
			wrapped: err,
		}
	}
	if strings.TrimSpace(parsed.Intent) == "" {
		return nil, NewError(KindMalformed, "classifier response has no intent")
	}
	parsed.Intent = strings.TrimSpace(parsed.Intent)
	parsed.Confidence = clamp(parsed.Confidence, 0, 1)
	return &parsed, nil
}

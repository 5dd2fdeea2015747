package contract

import (
	"fmt"
	"strings"

	"github.com/aeropractica/atc-core/core/intents"
	"github.com/aeropractica/atc-core/core/phrase"
	"github.com/aeropractica/atc-core/core/scenario"
	"github.com/aeropractica/atc-core/internal/utils"
)

// Validate parses raw model output and normalizes it against the active
// phase and its render template.
//
// Recoverable defects are repaired in place: confidence and score are
// clamped, missing slots are filled from the phonetic table, template
// defaults, and the phase's operational data, and an unreachable
// next_phase_hint is cleared. Defects that cannot be repaired come back as a
// *Error and the partial data is attached for diagnostics.
func Validate(raw string, active scenario.Phase, catalog intents.Catalog, template phrase.Template) (*StructuredResponse, error) {
	parsed, err := parseRaw(raw)
	if err != nil {
		return nil, err
	}

	response := &StructuredResponse{
		Intent:        strings.TrimSpace(parsed.Intent),
		Slots:         stringifySlots(parsed.Slots),
		Notes:         parsed.Notes,
		NextPhaseHint: strings.TrimSpace(parsed.NextPhaseHint),
		Feedback:      strings.TrimSpace(parsed.Feedback),
		AllowResponse: parsed.AllowResponse == nil || *parsed.AllowResponse,
	}
	if response.NextPhaseHint == "" {
		// The original contract carried the hint as nextPhase metadata.
		response.NextPhaseHint = strings.TrimSpace(parsed.NextPhase)
	}
	if parsed.Confidence != nil {
		response.Confidence = clamp(*parsed.Confidence, 0, 1)
	}
	if parsed.Score != nil {
		response.Score = utils.Ptr(clamp(*parsed.Score, 0, 100))
	}

	if response.Intent != "" && !catalog.Contains(response.Intent) {
		return nil, &Error{
			Kind:    KindUnknownIntent,
			Reason:  fmt.Sprintf("intent %q is not in the catalog", response.Intent),
			Intent:  response.Intent,
			Partial: response,
		}
	}
	if response.Intent == "" {
		response.Intent = active.ExpectedIntent
	}

	unresolved := repairSlots(response, active, template)
	if len(unresolved) > 0 {
		return nil, &Error{
			Kind:       KindIncompleteSlots,
			Reason:     fmt.Sprintf("required slots %v missing after repair", unresolved),
			Intent:     response.Intent,
			Unresolved: unresolved,
			Partial:    response,
		}
	}

	if err := checkDomains(response, active, template); err != nil {
		return nil, err
	}

	if response.NextPhaseHint != "" && !active.CanReach(response.NextPhaseHint) {
		response.Notes.Observations = append(response.Notes.Observations,
			fmt.Sprintf("next_phase_hint %q is not reachable from phase %q; ignored", response.NextPhaseHint, active.ID))
		response.NextPhaseHint = ""
	}

	return response, nil
}

// repairSlots attempts the bounded local repairs allowed by the contract and
// returns the slots that remain unresolved.
func repairSlots(response *StructuredResponse, active scenario.Phase, template phrase.Template) []string {
	if response.Slots == nil {
		response.Slots = map[string]string{}
	}

	var unresolved []string
	for _, name := range template.RequiredSlots {
		if response.Slots[name] != "" {
			continue
		}

		if name == "callsign_spelled" {
			if spelled := SpellCallsign(response.Slots["callsign"]); spelled != "" {
				response.Slots[name] = spelled
				continue
			}
		}
		if value, ok := template.Defaults[name]; ok && value != "" {
			response.Slots[name] = value
			continue
		}
		if value, ok := active.DataText(name); ok && value != "" {
			response.Slots[name] = value
			continue
		}

		unresolved = append(unresolved, name)
	}
	return unresolved
}

// checkDomains verifies enumerated slots against the phase's operational
// data: a <slot>_options sequence constrains membership, a scalar <slot>
// entry constrains equality.
func checkDomains(response *StructuredResponse, active scenario.Phase, template phrase.Template) error {
	for _, name := range template.DomainSlots {
		value := response.Slots[name]
		if value == "" {
			continue
		}

		if options, ok := active.Data[name+"_options"]; ok {
			if sequence, isSeq := options.AsSequence(); isSeq {
				if !sequenceContains(sequence, value) {
					return &Error{
						Kind:    KindOutOfDomain,
						Reason:  fmt.Sprintf("slot %s=%q is not one of the phase's %s_options", name, value, name),
						Intent:  response.Intent,
						Partial: response,
					}
				}
				continue
			}
		}

		if expected, ok := active.DataText(name); ok && !strings.EqualFold(expected, value) {
			return &Error{
				Kind:    KindOutOfDomain,
				Reason:  fmt.Sprintf("slot %s=%q does not match the phase's %s %q", name, value, name, expected),
				Intent:  response.Intent,
				Partial: response,
			}
		}
	}
	return nil
}

func sequenceContains(sequence []scenario.Value, value string) bool {
	for _, item := range sequence {
		if strings.EqualFold(item.Text(), value) {
			return true
		}
	}
	return false
}

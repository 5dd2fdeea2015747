// Package scenario models the immutable training-scenario graph: the phases
// of a scripted radio exchange, the frequency table, and the per-phase data
// used for prompting and rendering. A graph is loaded once and shared
// read-only between all sessions.
package scenario

import (
	"fmt"
	"sort"
)

// Transition triggers recognised in a phase's transition table.
const (
	TriggerOnSuccess = "onSuccess"
	TriggerOnFailure = "onFailure"
)

// Instructions carries the prompt-guidance fields a scenario author attaches
// to a phase. All fields are optional.
type Instructions struct {
	// Role overrides the default controller persona for the phase's
	// frequency group. May contain [data.key] placeholders.
	Role                string
	StudentChecklist    []string
	ControllerChecklist []string
	RespondRules        []string
	FeedbackGuidance    []string
	Notes               string
}

// Phase is a single named step of the scripted exchange.
type Phase struct {
	ID             string
	Name           string
	FrequencyGroup string
	ExpectedIntent string

	// Transitions maps a trigger (onSuccess, onFailure) to the next phase id.
	// A phase with no transitions is terminal.
	Transitions map[string]string

	Instructions Instructions

	// Data is the operational payload (runway, wind, squawk, ...) merged into
	// prompts, used for slot repair, and consulted for domain checks.
	Data map[string]Value

	// TemplateID names the render template for the expected response.
	TemplateID string

	// FallbackText is the deterministic canned phrase served on degraded
	// turns. Empty means the orchestrator's generic holding phrase applies.
	FallbackText string

	// RetryNeutral holds the phase in place on a failed turn instead of
	// following onFailure, so the student simply retries.
	RetryNeutral bool
}

// IsTerminal reports whether the phase has no outgoing transitions.
func (p Phase) IsTerminal() bool { return len(p.Transitions) == 0 }

// SuccessTarget returns the unconditional onSuccess target, if declared.
func (p Phase) SuccessTarget() (string, bool) {
	target, ok := p.Transitions[TriggerOnSuccess]
	return target, ok && target != ""
}

// FailureTarget returns the onFailure target, if declared.
func (p Phase) FailureTarget() (string, bool) {
	target, ok := p.Transitions[TriggerOnFailure]
	return target, ok && target != ""
}

// CanReach reports whether target is a legal next phase from p.
func (p Phase) CanReach(target string) bool {
	for _, candidate := range p.Transitions {
		if candidate == target {
			return true
		}
	}
	return false
}

// DataText returns the phase data value for key rendered as text.
func (p Phase) DataText(key string) (string, bool) {
	value, ok := p.Data[key]
	if !ok || value.IsNull() {
		return "", false
	}
	return value.Text(), true
}

// Graph is the immutable description of a full training scenario.
type Graph struct {
	ID             string
	DefaultPhaseID string

	// Frequencies maps a frequency group (tower, ground, ...) to the dial
	// value students are expected to tune (e.g. "118.300").
	Frequencies map[string]string

	// Shared holds scenario-wide payload data merged below phase data.
	Shared map[string]Value

	Phases map[string]Phase
}

// Phase looks up a phase by id.
func (g *Graph) Phase(id string) (Phase, bool) {
	phase, ok := g.Phases[id]
	return phase, ok
}

// ResolvePhase returns the phase for id, falling back to the default phase
// when the id does not resolve. The second return reports whether any phase
// could be resolved at all.
func (g *Graph) ResolvePhase(id string) (Phase, bool) {
	if phase, ok := g.Phases[id]; ok {
		return phase, true
	}
	phase, ok := g.Phases[g.DefaultPhaseID]
	return phase, ok
}

// ExpectedFrequency returns the dial value for the phase's frequency group.
func (g *Graph) ExpectedFrequency(phase Phase) (string, bool) {
	frequency, ok := g.Frequencies[phase.FrequencyGroup]
	return frequency, ok && frequency != ""
}

// PhaseIDs returns all phase ids in stable order.
func (g *Graph) PhaseIDs() []string {
	ids := make([]string, 0, len(g.Phases))
	for id := range g.Phases {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Validate checks the structural invariants of the graph: the default phase
// exists, every transition target references an existing phase, and every
// phase's frequency group exists in the frequency table.
func (g *Graph) Validate() error {
	if g.ID == "" {
		return fmt.Errorf("scenario has no id")
	}
	if len(g.Phases) == 0 {
		return fmt.Errorf("scenario %q has no phases", g.ID)
	}
	if _, ok := g.Phases[g.DefaultPhaseID]; !ok {
		return fmt.Errorf("scenario %q: default phase %q does not exist", g.ID, g.DefaultPhaseID)
	}

	for _, id := range g.PhaseIDs() {
		phase := g.Phases[id]
		if phase.ID != id {
			return fmt.Errorf("scenario %q: phase keyed %q declares id %q", g.ID, id, phase.ID)
		}
		if _, ok := g.Frequencies[phase.FrequencyGroup]; !ok {
			return fmt.Errorf("scenario %q: phase %q uses unknown frequency group %q", g.ID, id, phase.FrequencyGroup)
		}
		for trigger, target := range phase.Transitions {
			if _, ok := g.Phases[target]; !ok {
				return fmt.Errorf("scenario %q: phase %q transition %q targets unknown phase %q", g.ID, id, trigger, target)
			}
		}
	}
	return nil
}

// Clone returns a deep copy of the graph.
func (g *Graph) Clone() *Graph {
	clone := &Graph{
		ID:             g.ID,
		DefaultPhaseID: g.DefaultPhaseID,
		Frequencies:    make(map[string]string, len(g.Frequencies)),
		Shared:         make(map[string]Value, len(g.Shared)),
		Phases:         make(map[string]Phase, len(g.Phases)),
	}
	for group, frequency := range g.Frequencies {
		clone.Frequencies[group] = frequency
	}
	for key, value := range g.Shared {
		clone.Shared[key] = value.Clone()
	}
	for id, phase := range g.Phases {
		cloned := phase
		cloned.Transitions = make(map[string]string, len(phase.Transitions))
		for trigger, target := range phase.Transitions {
			cloned.Transitions[trigger] = target
		}
		cloned.Data = make(map[string]Value, len(phase.Data))
		for key, value := range phase.Data {
			cloned.Data[key] = value.Clone()
		}
		cloned.Instructions.StudentChecklist = append([]string(nil), phase.Instructions.StudentChecklist...)
		cloned.Instructions.ControllerChecklist = append([]string(nil), phase.Instructions.ControllerChecklist...)
		cloned.Instructions.RespondRules = append([]string(nil), phase.Instructions.RespondRules...)
		cloned.Instructions.FeedbackGuidance = append([]string(nil), phase.Instructions.FeedbackGuidance...)
		clone.Phases[id] = cloned
	}
	return clone
}

// MergeOverrides projects session-level data (assigned squawk, live weather,
// selected taxi route) into a copy of the graph: values land in Shared and in
// every phase's Data section, mirroring how stored context was applied to the
// scenario snapshot in the original trainer.
func (g *Graph) MergeOverrides(overrides map[string]Value) *Graph {
	if len(overrides) == 0 {
		return g
	}

	merged := g.Clone()
	for key, value := range overrides {
		merged.Shared[key] = value.Clone()
		for id, phase := range merged.Phases {
			phase.Data[key] = value.Clone()
			merged.Phases[id] = phase
		}
	}
	return merged
}

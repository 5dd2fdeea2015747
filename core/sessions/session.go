// Package sessions holds the mutable per-training-session state: the active
// phase, context overrides, and the bounded turn history that feeds
// prompting.
package sessions

import (
	"fmt"
	"time"

	"github.com/jinzhu/copier"

	"github.com/aeropractica/atc-core/core/scenario"
)

// Role identifies who produced a turn.
type Role string

const (
	RoleStudent    Role = "student"
	RoleController Role = "controller"
)

// Outcome classifies how a turn was resolved.
type Outcome string

const (
	OutcomeAccepted       Outcome = "accepted"
	OutcomeWrongFrequency Outcome = "wrong_frequency"
	OutcomeContractFailed Outcome = "contract_failed"
	OutcomeDegraded       Outcome = "degraded"
)

const (
	// MaxStoredTurns bounds the history kept on a session; older turns are
	// dropped oldest-first.
	MaxStoredTurns = 40

	// RecentTurnsLimit is the default prompting window.
	RecentTurnsLimit = 8
)

// Turn is one exchange on the radio, immutable once appended.
type Turn struct {
	ID             string    `json:"id"`
	Role           Role      `json:"role"`
	Transcript     string    `json:"transcript"`
	Frequency      string    `json:"frequency,omitempty"`
	DetectedIntent string    `json:"detectedIntent,omitempty"`
	PhaseID        string    `json:"phaseId"`
	ControllerText string    `json:"controllerText,omitempty"`
	Feedback       string    `json:"feedback,omitempty"`
	Outcome        Outcome   `json:"outcome"`
	Degraded       bool      `json:"degraded"`
	Score          *float64  `json:"score,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// State is the per-session record. It is owned exclusively by the
// orchestrator for the duration of a request and persisted in between.
type State struct {
	ID            string                    `json:"id"`
	ScenarioID    string                    `json:"scenarioId"`
	ActivePhaseID string                    `json:"activePhaseId"`
	Overrides     map[string]scenario.Value `json:"overrides,omitempty"`

	// Turns is append-only; insertion order is the recency order used for
	// prompting.
	Turns []Turn `json:"turns"`

	// ConsecutiveDegraded counts degraded turns since the last clean one.
	ConsecutiveDegraded int `json:"consecutiveDegraded"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewState initializes a session bound to a scenario's default phase.
func NewState(id, scenarioID, defaultPhaseID string, now time.Time) *State {
	return &State{
		ID:            id,
		ScenarioID:    scenarioID,
		ActivePhaseID: defaultPhaseID,
		Overrides:     map[string]scenario.Value{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// AppendTurn records a turn, dropping the oldest once MaxStoredTurns is
// reached.
func (s *State) AppendTurn(turn Turn) {
	s.Turns = append(s.Turns, turn)
	if len(s.Turns) > MaxStoredTurns {
		s.Turns = s.Turns[len(s.Turns)-MaxStoredTurns:]
	}
	s.UpdatedAt = turn.Timestamp
}

// RecentTurns returns the newest limit turns in chronological order. A
// non-positive limit falls back to RecentTurnsLimit.
func (s *State) RecentTurns(limit int) []Turn {
	if limit <= 0 {
		limit = RecentTurnsLimit
	}
	if len(s.Turns) <= limit {
		return s.Turns
	}
	return s.Turns[len(s.Turns)-limit:]
}

// Snapshot deep-copies the state so callers can hand it out without
// aliasing the live session.
func (s *State) Snapshot() (*State, error) {
	out := &State{
		ID:                  s.ID,
		ScenarioID:          s.ScenarioID,
		ActivePhaseID:       s.ActivePhaseID,
		ConsecutiveDegraded: s.ConsecutiveDegraded,
		CreatedAt:           s.CreatedAt,
		UpdatedAt:           s.UpdatedAt,
	}
	if s.Overrides != nil {
		out.Overrides = make(map[string]scenario.Value, len(s.Overrides))
		for key, value := range s.Overrides {
			out.Overrides[key] = value.Clone()
		}
	}
	if err := copier.CopyWithOption(&out.Turns, &s.Turns, copier.Option{DeepCopy: true}); err != nil {
		return nil, fmt.Errorf("failed to copy turn history: %w", err)
	}
	return out, nil
}

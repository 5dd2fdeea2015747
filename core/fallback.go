package orchestration

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/aeropractica/atc-core/core/audit"
	"github.com/aeropractica/atc-core/core/contract"
	"github.com/aeropractica/atc-core/core/phrase"
	"github.com/aeropractica/atc-core/core/scenario"
	"github.com/aeropractica/atc-core/core/sessions"
)

// fallbackHoldPhrase is spoken when a phase declares no fallback of its
// own. It keeps the student on frequency without advancing anything.
const fallbackHoldPhrase = "Estación que llama, mantenga la escucha."

func (o *Orchestrator) record(ctx context.Context, sessionID, phaseID, stage, decision, reason string) {
	o.trail.Record(ctx, audit.Entry{
		SessionID: sessionID,
		PhaseID:   phaseID,
		Stage:     stage,
		Decision:  decision,
		Reason:    reason,
		Timestamp: o.clock(),
	})
}

// finishAccepted completes a clean turn: record both sides of the exchange,
// advance the phase, synthesize the phrase.
func (o *Orchestrator) finishAccepted(ctx context.Context, turn *turnContext, response *contract.StructuredResponse, rendered phrase.Rendered) (*TransmissionResult, error) {
	next := o.nextPhase(turn.phase, response, sessions.OutcomeAccepted)
	turn.state.ConsecutiveDegraded = 0

	turn.state.AppendTurn(sessions.Turn{
		ID:             uuid.NewString(),
		Role:           sessions.RoleStudent,
		Transcript:     turn.transcript,
		Frequency:      turn.frequency,
		DetectedIntent: turn.detectedIntent,
		PhaseID:        turn.phase.ID,
		Feedback:       response.Feedback,
		Outcome:        sessions.OutcomeAccepted,
		Score:          response.Score,
		Timestamp:      turn.now,
	})
	if rendered.Text != "" {
		turn.state.AppendTurn(sessions.Turn{
			ID:             uuid.NewString(),
			Role:           sessions.RoleController,
			ControllerText: rendered.Text,
			PhaseID:        turn.phase.ID,
			Outcome:        sessions.OutcomeAccepted,
			Timestamp:      turn.now,
		})
	}

	if next != turn.phase.ID {
		o.record(ctx, turn.state.ID, turn.phase.ID, "transition", "advanced", next)
	} else {
		o.record(ctx, turn.state.ID, turn.phase.ID, "transition", "held", "")
	}
	turn.state.ActivePhaseID = next

	if err := o.store.Save(ctx, turn.state); err != nil {
		return nil, fmt.Errorf("failed to save session %s: %w", turn.state.ID, err)
	}

	result := &TransmissionResult{
		SessionID:      turn.state.ID,
		PhaseID:        next,
		Phrase:         rendered.Text,
		Feedback:       response.Feedback,
		FrequencyValid: turn.frequencyValid,
		Intent:         response.Intent,
		Score:          response.Score,
	}
	o.synthesize(ctx, turn, result)
	return result, nil
}

// finishContractFailed resolves a turn whose model response failed the
// contract: canned phrase, failure transition unless the phase retries
// neutrally.
func (o *Orchestrator) finishContractFailed(ctx context.Context, turn *turnContext, contractErr *contract.Error) (*TransmissionResult, error) {
	reason := "la respuesta del modelo no cumplió el contrato"
	if contractErr != nil {
		reason = fmt.Sprintf("respuesta del modelo rechazada (%s)", contractErr.Kind)
	}

	next := o.nextPhase(turn.phase, nil, sessions.OutcomeContractFailed)
	return o.finishCanned(ctx, turn, next, sessions.OutcomeContractFailed, reason)
}

// finishDegraded resolves a turn lost to a collaborator failure: canned
// phrase, phase held.
func (o *Orchestrator) finishDegraded(ctx context.Context, turn *turnContext, _ *contract.StructuredResponse, reason string) (*TransmissionResult, error) {
	return o.finishCanned(ctx, turn, turn.phase.ID, sessions.OutcomeDegraded, reason)
}

func (o *Orchestrator) finishCanned(ctx context.Context, turn *turnContext, next string, outcome sessions.Outcome, reason string) (*TransmissionResult, error) {
	turn.state.ConsecutiveDegraded++
	advisory := o.advisoryThreshold > 0 && turn.state.ConsecutiveDegraded >= o.advisoryThreshold

	canned := fallbackPhrase(turn.phase)
	turn.state.AppendTurn(sessions.Turn{
		ID:             uuid.NewString(),
		Role:           sessions.RoleStudent,
		Transcript:     turn.transcript,
		Frequency:      turn.frequency,
		DetectedIntent: turn.detectedIntent,
		PhaseID:        turn.phase.ID,
		Feedback:       reason,
		Outcome:        outcome,
		Degraded:       true,
		Timestamp:      turn.now,
	})
	turn.state.AppendTurn(sessions.Turn{
		ID:             uuid.NewString(),
		Role:           sessions.RoleController,
		ControllerText: canned,
		PhaseID:        turn.phase.ID,
		Outcome:        outcome,
		Degraded:       true,
		Timestamp:      turn.now,
	})

	o.record(ctx, turn.state.ID, turn.phase.ID, "fallback", string(outcome), reason)
	if advisory {
		o.record(ctx, turn.state.ID, turn.phase.ID, "fallback", "advisory",
			fmt.Sprintf("%d consecutive degraded turns", turn.state.ConsecutiveDegraded))
	}
	turn.state.ActivePhaseID = next

	if err := o.store.Save(ctx, turn.state); err != nil {
		return nil, fmt.Errorf("failed to save session %s: %w", turn.state.ID, err)
	}

	result := &TransmissionResult{
		SessionID:      turn.state.ID,
		PhaseID:        next,
		Phrase:         canned,
		Feedback:       reason,
		Reason:         reason,
		FrequencyValid: turn.frequencyValid,
		Degraded:       true,
		Advisory:       advisory,
	}
	o.synthesize(ctx, turn, result)
	return result, nil
}

// degradedWithoutModel handles failures that happen before the pipeline
// proper, such as a dead ASR service.
func (o *Orchestrator) degradedWithoutModel(ctx context.Context, sessionID, frequency, transcript, reason string) (*TransmissionResult, error) {
	if !o.locks.acquire(sessionID) {
		return nil, ErrSessionBusy
	}
	defer o.locks.release(sessionID)

	state, err := o.loadOrCreate(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	effective := o.graph.MergeOverrides(state.Overrides)
	phase, ok := effective.ResolvePhase(state.ActivePhaseID)
	if !ok {
		return nil, fmt.Errorf("session %s resolves no phase in scenario %s", sessionID, o.graph.ID)
	}
	state.ActivePhaseID = phase.ID

	turn := turnContext{
		state:      state,
		phase:      phase,
		graph:      effective,
		frequency:  frequency,
		transcript: transcript,
		now:        o.clock(),
	}
	return o.finishDegraded(ctx, &turn, nil, reason)
}

func fallbackPhrase(phase scenario.Phase) string {
	if phase.FallbackText != "" {
		return phase.FallbackText
	}
	return fallbackHoldPhrase
}

// synthesize attaches an audio handle when a synthesizer is wired. TTS
// failure never fails the turn.
func (o *Orchestrator) synthesize(ctx context.Context, turn *turnContext, result *TransmissionResult) {
	if o.synthesizer == nil || result.Phrase == "" {
		return
	}
	handle, err := o.synthesizer.Synthesize(ctx, result.Phrase)
	if err != nil {
		o.record(ctx, turn.state.ID, turn.phase.ID, "synthesis", "failed", err.Error())
		return
	}
	result.AudioHandle = handle
}

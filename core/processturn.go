package orchestration

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/aeropractica/atc-core/core/contract"
	"github.com/aeropractica/atc-core/core/intents"
	"github.com/aeropractica/atc-core/core/llms"
	"github.com/aeropractica/atc-core/core/phrase"
	"github.com/aeropractica/atc-core/core/prompts"
	"github.com/aeropractica/atc-core/core/scenario"
	"github.com/aeropractica/atc-core/core/sessions"
	"github.com/aeropractica/atc-core/internal/utils"
)

// TransmissionResult is what the caller (typically an HTTP layer) gets back
// for one student transmission.
type TransmissionResult struct {
	SessionID string
	PhaseID   string

	// Phrase is the controller's spoken response, empty when the controller
	// stays silent.
	Phrase string
	// Feedback is instructional commentary for the student.
	Feedback string
	// Reason explains a rejected or degraded turn in human-readable form.
	Reason string

	FrequencyValid bool
	Intent         string
	Score          *float64

	// Degraded marks a turn resolved by canned fallback behavior.
	Degraded bool
	// Advisory is raised after repeated consecutive degraded turns so the
	// instructor can intervene.
	Advisory bool

	// AudioHandle references the synthesized phrase when a synthesizer is
	// wired.
	AudioHandle string
}

// ProcessTransmission transcribes one buffered transmission and processes
// it. ASR failure resolves to a degraded turn, not an error.
func (o *Orchestrator) ProcessTransmission(ctx context.Context, sessionID, frequency string, audio []byte) (*TransmissionResult, error) {
	ctx, span := tracer.Start(ctx, "process transmission")
	defer span.End()

	if o.transcriber == nil {
		return nil, fmt.Errorf("no transcriber configured")
	}

	transcript, err := o.transcriber.Transcribe(ctx, audio)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return o.degradedWithoutModel(ctx, sessionID, frequency, "", "no se pudo transcribir la transmisión")
	}
	return o.ProcessTranscript(ctx, sessionID, frequency, transcript)
}

// ProcessTranscript runs the full turn pipeline for an already-transcribed
// transmission.
func (o *Orchestrator) ProcessTranscript(ctx context.Context, sessionID, frequency, transcript string) (*TransmissionResult, error) {
	ctx, span := tracer.Start(ctx, "process transcript")
	defer span.End()
	span.SetAttributes(attribute.String("session.id", sessionID))

	if !o.locks.acquire(sessionID) {
		span.AddEvent("session busy")
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
	span.SetAttributes(attribute.String("phase.id", phase.ID))

	turn := turnContext{
		state:      state,
		phase:      phase,
		graph:      effective,
		frequency:  frequency,
		transcript: transcript,
		now:        o.clock(),
	}

	// Frequency gate: a transmission on the wrong frequency never reaches
	// the model and never advances the phase.
	if reason, ok := o.checkFrequency(ctx, &turn); !ok {
		return o.finishRejected(ctx, &turn, reason)
	}
	turn.frequencyValid = true

	detection := o.detectIntent(ctx, &turn)

	result, err := o.consultModel(ctx, &turn, detection)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// turnContext carries one turn's working state through the pipeline stages.
type turnContext struct {
	state      *sessions.State
	phase      scenario.Phase
	graph      *scenario.Graph
	frequency  string
	transcript string
	now        time.Time

	detectedIntent string

	// frequencyValid stays false until the frequency gate has actually
	// passed; turns degraded before the gate never claim a valid channel.
	frequencyValid bool
}

func (o *Orchestrator) loadOrCreate(ctx context.Context, sessionID string) (*sessions.State, error) {
	state, err := o.store.Load(ctx, sessionID)
	if errors.Is(err, sessions.ErrNotFound) {
		state = sessions.NewState(sessionID, o.graph.ID, o.graph.DefaultPhaseID, o.clock())
		o.record(ctx, state.ID, state.ActivePhaseID, "session", "created", "")
	} else if err != nil {
		return nil, fmt.Errorf("failed to load session %s: %w", sessionID, err)
	}

	o.rngMu.Lock()
	sessions.EnsureAssignments(state, o.rng)
	o.rngMu.Unlock()
	return state, nil
}

// checkFrequency validates the transmission's channel against the active
// phase. The decision is audited either way.
func (o *Orchestrator) checkFrequency(ctx context.Context, turn *turnContext) (string, bool) {
	expected, ok := turn.graph.ExpectedFrequency(turn.phase)
	if !ok {
		// Phases without a frequency group accept any channel.
		o.record(ctx, turn.state.ID, turn.phase.ID, "frequency", "skipped", "phase has no frequency group")
		return "", true
	}

	if frequenciesEqual(turn.frequency, expected) {
		o.record(ctx, turn.state.ID, turn.phase.ID, "frequency", "valid", "")
		return "", true
	}

	reason := fmt.Sprintf("frecuencia incorrecta: está transmitiendo en %s, la frecuencia correcta es %s",
		turn.frequency, expected)
	o.record(ctx, turn.state.ID, turn.phase.ID, "frequency", "rejected", reason)
	return reason, false
}

// frequenciesEqual compares channel values ignoring trailing zeros, so
// "118.300" matches "118.3".
func frequenciesEqual(a, b string) bool {
	return normalizeFrequency(a) == normalizeFrequency(b)
}

func normalizeFrequency(frequency string) string {
	frequency = strings.TrimSpace(frequency)
	if strings.Contains(frequency, ".") {
		frequency = strings.TrimRight(frequency, "0")
		frequency = strings.TrimSuffix(frequency, ".")
	}
	return frequency
}

// finishRejected records a wrong-frequency turn. The score is zero and the
// phase holds; the guidance message takes the phrase's place.
func (o *Orchestrator) finishRejected(ctx context.Context, turn *turnContext, reason string) (*TransmissionResult, error) {
	score := utils.Ptr(0.0)
	turn.state.ConsecutiveDegraded = 0
	turn.state.AppendTurn(sessions.Turn{
		ID:         uuid.NewString(),
		Role:       sessions.RoleStudent,
		Transcript: turn.transcript,
		Frequency:  turn.frequency,
		PhaseID:    turn.phase.ID,
		Feedback:   reason,
		Outcome:    sessions.OutcomeWrongFrequency,
		Score:      score,
		Timestamp:  turn.now,
	})
	if err := o.store.Save(ctx, turn.state); err != nil {
		return nil, fmt.Errorf("failed to save session %s: %w", turn.state.ID, err)
	}

	return &TransmissionResult{
		SessionID:      turn.state.ID,
		PhaseID:        turn.phase.ID,
		Feedback:       reason,
		Reason:         reason,
		FrequencyValid: false,
		Score:          score,
	}, nil
}

// detectIntent scores the transcript against the rule set, escalating to
// the model in constrained classification mode when enabled and the rules
// are inconclusive.
func (o *Orchestrator) detectIntent(ctx context.Context, turn *turnContext) *intents.Detection {
	if o.detector != nil {
		if detection, ok := o.detector.Detect(turn.transcript); ok {
			turn.detectedIntent = detection.ID
			o.record(ctx, turn.state.ID, turn.phase.ID, "intent", "detected",
				fmt.Sprintf("%s (%.2f)", detection.ID, detection.Confidence))
			return &detection
		}
		o.record(ctx, turn.state.ID, turn.phase.ID, "intent", "inconclusive", "")
	}

	if !o.classifyWithLLM || o.llm == nil {
		return nil
	}

	spec := prompts.Classification(o.catalog.IDs(), turn.transcript)
	raw, err := o.llm.Complete(ctx, spec.SystemInstructions, spec.UserContent)
	if err != nil {
		o.record(ctx, turn.state.ID, turn.phase.ID, "intent", "classification_failed", err.Error())
		return nil
	}
	classification, err := contract.ParseClassification(raw)
	if err != nil || !o.catalog.Contains(classification.Intent) {
		o.record(ctx, turn.state.ID, turn.phase.ID, "intent", "classification_rejected", raw)
		return nil
	}

	turn.detectedIntent = classification.Intent
	o.record(ctx, turn.state.ID, turn.phase.ID, "intent", "classified",
		fmt.Sprintf("%s (%.2f)", classification.Intent, classification.Confidence))
	return &intents.Detection{
		ID:             classification.Intent,
		FrequencyGroup: classification.FrequencyGroup,
		Confidence:     classification.Confidence,
	}
}

// consultModel runs prompt assembly, the model call, contract validation,
// rendering, and the transition, degrading at any failure point.
func (o *Orchestrator) consultModel(ctx context.Context, turn *turnContext, detection *intents.Detection) (*TransmissionResult, error) {
	if detection != nil && turn.phase.ExpectedIntent != "" && detection.ID != turn.phase.ExpectedIntent {
		// The model still judges the transmission; the mismatch is only
		// surfaced on the audit trail.
		o.record(ctx, turn.state.ID, turn.phase.ID, "intent", "mismatch",
			fmt.Sprintf("detected %s, phase expects %s", detection.ID, turn.phase.ExpectedIntent))
	}

	template, ok := o.template(turn.phase)
	if !ok {
		// Terminal phases render nothing; anything else was caught at
		// construction time.
		return o.finishDegraded(ctx, turn, nil, "la fase actual no admite más transmisiones")
	}

	if o.llm == nil {
		return o.finishDegraded(ctx, turn, nil, "el modelo no está configurado")
	}

	spec := o.builder.Build(turn.state, turn.phase, template, turn.transcript)
	o.record(ctx, turn.state.ID, turn.phase.ID, "prompt", "assembled", spec.Hash())

	raw, err := o.llm.Complete(ctx, spec.SystemInstructions, spec.UserContent)
	if err != nil {
		o.record(ctx, turn.state.ID, turn.phase.ID, "model", "failed", err.Error())
		return o.finishDegraded(ctx, turn, nil, degradedReason(err))
	}

	response, err := contract.Validate(raw, turn.phase, o.catalog, template)
	if err != nil {
		contractErr, _ := contract.AsError(err)
		o.record(ctx, turn.state.ID, turn.phase.ID, "contract", "rejected", err.Error())
		return o.finishContractFailed(ctx, turn, contractErr)
	}
	o.record(ctx, turn.state.ID, turn.phase.ID, "contract", "accepted", response.Intent)

	var rendered phrase.Rendered
	if response.AllowResponse {
		rendered, err = phrase.Render(template, response.Slots)
		if err != nil {
			o.record(ctx, turn.state.ID, turn.phase.ID, "render", "failed", err.Error())
			return o.finishDegraded(ctx, turn, response, "no se pudo componer la respuesta del controlador")
		}
	}

	return o.finishAccepted(ctx, turn, response, rendered)
}

func degradedReason(err error) string {
	switch {
	case errors.Is(err, llms.ErrTimeout):
		return "el modelo no respondió a tiempo"
	case errors.Is(err, llms.ErrRateLimited):
		return "el modelo está saturado"
	default:
		return "el modelo no está disponible"
	}
}

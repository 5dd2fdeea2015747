package orchestration

import (
	"context"
	"math/rand"
	"time"

	"github.com/aeropractica/atc-core/core/audit"
	"github.com/aeropractica/atc-core/core/intents"
	"github.com/aeropractica/atc-core/core/phrase"
	"github.com/aeropractica/atc-core/core/prompts"
	"github.com/aeropractica/atc-core/core/sessions"
)

type OrchestratorOption func(*Orchestrator)

// LLM is the completion collaborator. Implementations should wrap the
// llms transport error classes so failures degrade instead of stalling.
type LLM interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

func WithLLM(client LLM) OrchestratorOption {
	return func(o *Orchestrator) { o.llm = client }
}

// Transcriber converts one buffered transmission to text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

func WithTranscriber(client Transcriber) OrchestratorOption {
	return func(o *Orchestrator) { o.transcriber = client }
}

// Synthesizer renders the controller phrase to audio and returns an opaque
// handle.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (string, error)
}

func WithSynthesizer(client Synthesizer) OrchestratorOption {
	return func(o *Orchestrator) { o.synthesizer = client }
}

func WithSessionStore(store sessions.Store) OrchestratorOption {
	return func(o *Orchestrator) { o.store = store }
}

func WithAuditTrail(trail audit.Trail) OrchestratorOption {
	return func(o *Orchestrator) { o.trail = trail }
}

func WithTemplates(templates phrase.Set) OrchestratorOption {
	return func(o *Orchestrator) { o.templates = templates }
}

func WithIntentDetector(detector *intents.Detector) OrchestratorOption {
	return func(o *Orchestrator) { o.detector = detector }
}

// WithIntentCatalog overrides the catalog derived from the scenario's
// expected intents.
func WithIntentCatalog(catalog intents.Catalog) OrchestratorOption {
	return func(o *Orchestrator) { o.catalog = catalog }
}

func WithPromptBuilder(builder *prompts.Builder) OrchestratorOption {
	return func(o *Orchestrator) { o.builder = builder }
}

// WithLLMClassification escalates inconclusive intent detection to the
// model in constrained classification mode.
func WithLLMClassification() OrchestratorOption {
	return func(o *Orchestrator) { o.classifyWithLLM = true }
}

// WithDegradedAdvisoryThreshold raises the instructor advisory after n
// consecutive degraded turns. Non-positive n disables the advisory.
func WithDegradedAdvisoryThreshold(n int) OrchestratorOption {
	return func(o *Orchestrator) { o.advisoryThreshold = n }
}

func WithClock(clock func() time.Time) OrchestratorOption {
	return func(o *Orchestrator) { o.clock = clock }
}

func WithRandom(rng *rand.Rand) OrchestratorOption {
	return func(o *Orchestrator) { o.rng = rng }
}

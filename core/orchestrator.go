// Package orchestration drives one radio-training session: it validates the
// incoming transmission, consults the generative model under a strict
// response contract, renders the controller phrase deterministically, and
// advances the scenario's phase machine. Every failure point degrades to
// canned behavior; a session never stalls on a collaborator.
package orchestration

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/aeropractica/atc-core/core/audit"
	"github.com/aeropractica/atc-core/core/intents"
	"github.com/aeropractica/atc-core/core/phrase"
	"github.com/aeropractica/atc-core/core/prompts"
	"github.com/aeropractica/atc-core/core/scenario"
	"github.com/aeropractica/atc-core/core/sessions"
)

const defaultAdvisoryThreshold = 3

type Orchestrator struct {
	graph     *scenario.Graph
	templates phrase.Set
	catalog   intents.Catalog
	detector  *intents.Detector
	builder   *prompts.Builder

	llm         LLM
	transcriber Transcriber
	synthesizer Synthesizer

	store sessions.Store
	trail audit.Trail
	locks *sessionLocks

	classifyWithLLM   bool
	advisoryThreshold int

	clock func() time.Time

	// rng is shared by all sessions; per-session locks do not cover it, so
	// every draw goes through rngMu.
	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewOrchestrator binds an orchestrator to a validated scenario graph. The
// graph is cloned so later caller mutations cannot leak into live sessions.
func NewOrchestrator(graph *scenario.Graph, opts ...OrchestratorOption) (*Orchestrator, error) {
	if graph == nil {
		return nil, fmt.Errorf("scenario graph is required")
	}
	if err := graph.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scenario graph: %w", err)
	}

	o := &Orchestrator{
		graph:             graph.Clone(),
		store:             sessions.NewMemoryStore(),
		trail:             audit.NewLogTrail(),
		builder:           prompts.NewBuilder(),
		locks:             newSessionLocks(),
		advisoryThreshold: defaultAdvisoryThreshold,
		clock:             time.Now,
		rng:               rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(o)
	}

	if o.catalog.Len() == 0 {
		o.catalog = catalogFromGraph(o.graph)
	}
	if err := o.checkTemplates(); err != nil {
		return nil, err
	}
	return o, nil
}

// catalogFromGraph derives the closed intent catalog from the scenario's
// expected intents.
func catalogFromGraph(graph *scenario.Graph) intents.Catalog {
	var ids []string
	for _, id := range graph.PhaseIDs() {
		if phase, ok := graph.Phase(id); ok && phase.ExpectedIntent != "" {
			ids = append(ids, phase.ExpectedIntent)
		}
	}
	return intents.NewCatalog(ids...)
}

// checkTemplates verifies every non-terminal phase resolves to a render
// template, so the renderer can never be surprised mid-session.
func (o *Orchestrator) checkTemplates() error {
	for _, id := range o.graph.PhaseIDs() {
		phase, _ := o.graph.Phase(id)
		if phase.IsTerminal() {
			continue
		}
		if _, ok := o.template(phase); !ok {
			return fmt.Errorf("phase %q has no render template", id)
		}
	}
	return nil
}

// template resolves the render template for a phase: its declared template
// first, its expected intent as a fallback.
func (o *Orchestrator) template(phase scenario.Phase) (phrase.Template, bool) {
	if phase.TemplateID != "" {
		return o.templates.Get(phase.TemplateID)
	}
	return o.templates.Get(phase.ExpectedIntent)
}

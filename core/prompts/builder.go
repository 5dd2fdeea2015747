// Package prompts assembles the instructions sent to the generative model.
// Assembly is pure: the same phase, history window, and transcript always
// produce a structurally identical prompt, which keeps snapshot tests and
// the telemetry hash stable.
package prompts

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/aeropractica/atc-core/core/phrase"
	"github.com/aeropractica/atc-core/core/scenario"
	"github.com/aeropractica/atc-core/core/sessions"
)

const (
	defaultHistoryWindow = sessions.RecentTurnsLimit
	defaultDifficulty    = 5
)

// Spec is a fully assembled prompt, ready for the model call.
type Spec struct {
	SystemInstructions string
	UserContent        string
	ExpectedSlots      []string
}

// Hash is a stable digest of the assembled prompt, used for telemetry and
// snapshot comparisons.
func (s Spec) Hash() string {
	digest := sha256.New()
	digest.Write([]byte(s.SystemInstructions))
	digest.Write([]byte{0})
	digest.Write([]byte(s.UserContent))
	digest.Write([]byte{0})
	digest.Write([]byte(strings.Join(s.ExpectedSlots, ",")))
	return hex.EncodeToString(digest.Sum(nil))
}

// Builder assembles prompt specs. It performs no network calls.
type Builder struct {
	historyWindow int
	difficulty    int
}

type BuilderOption func(*Builder)

// WithHistoryWindow bounds how many recent turns are included. Non-positive
// values fall back to the default window.
func WithHistoryWindow(n int) BuilderOption {
	return func(b *Builder) {
		if n > 0 {
			b.historyWindow = n
		}
	}
}

// WithDifficulty sets the strictness level, 1 (lenient) to 10 (exam-grade).
// Out-of-range values are clamped.
func WithDifficulty(level int) BuilderOption {
	return func(b *Builder) {
		if level < 1 {
			level = 1
		}
		if level > 10 {
			level = 10
		}
		b.difficulty = level
	}
}

func NewBuilder(opts ...BuilderOption) *Builder {
	builder := &Builder{
		historyWindow: defaultHistoryWindow,
		difficulty:    defaultDifficulty,
	}
	for _, opt := range opts {
		opt(builder)
	}
	return builder
}

// Build assembles the prompt for one student transmission against the
// active phase.
func (b *Builder) Build(state *sessions.State, phase scenario.Phase, template phrase.Template, transcript string) Spec {
	expected := expectedSlots(template)
	return Spec{
		SystemInstructions: b.systemInstructions(phase, expected),
		UserContent:        b.userContent(state, transcript),
		ExpectedSlots:      expected,
	}
}

func (b *Builder) systemInstructions(phase scenario.Phase, expected []string) string {
	var sections []string

	sections = append(sections, personaFor(phase))
	sections = append(sections, b.strictnessLine())

	if list := phase.Instructions.StudentChecklist; len(list) > 0 {
		sections = append(sections, block("El alumno debe incluir en su transmisión:", list))
	}
	if list := phase.Instructions.ControllerChecklist; len(list) > 0 {
		sections = append(sections, block("Tu respuesta de controlador debe incluir:", list))
	}
	if list := phase.Instructions.RespondRules; len(list) > 0 {
		sections = append(sections, block("Responde por radio solamente si:", list))
	}
	if list := phase.Instructions.FeedbackGuidance; len(list) > 0 {
		sections = append(sections, block("Al dar retroalimentación:", list))
	}
	if notes := phase.Instructions.Notes; notes != "" {
		sections = append(sections, notes)
	}

	if data := dataBlock(phase); data != "" {
		sections = append(sections, data)
	}

	sections = append(sections, contractBlock(expected))

	return strings.Join(sections, "\n\n")
}

func (b *Builder) strictnessLine() string {
	switch {
	case b.difficulty <= 3:
		return "Nivel de exigencia: bajo. Acepta fraseología aproximada y corrige con paciencia."
	case b.difficulty <= 7:
		return "Nivel de exigencia: medio. Exige fraseología estándar pero tolera omisiones menores."
	default:
		return "Nivel de exigencia: alto. Exige fraseología exacta como en un examen de licencia."
	}
}

func (b *Builder) userContent(state *sessions.State, transcript string) string {
	var lines []string
	for _, turn := range state.RecentTurns(b.historyWindow) {
		switch turn.Role {
		case sessions.RoleController:
			lines = append(lines, "controlador: "+turn.ControllerText)
		default:
			lines = append(lines, "alumno: "+turn.Transcript)
		}
	}
	lines = append(lines, "Transmisión actual del alumno: "+strings.TrimSpace(transcript))
	return strings.Join(lines, "\n")
}

// block renders a titled bullet list.
func block(title string, items []string) string {
	lines := make([]string, 0, len(items)+1)
	lines = append(lines, title)
	for _, item := range items {
		lines = append(lines, "- "+item)
	}
	return strings.Join(lines, "\n")
}

// dataBlock renders phase data with sorted keys so assembly stays
// deterministic.
func dataBlock(phase scenario.Phase) string {
	if len(phase.Data) == 0 {
		return ""
	}
	keys := make([]string, 0, len(phase.Data))
	for key := range phase.Data {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	lines := []string{"Datos operacionales de la fase:"}
	for _, key := range keys {
		if value, ok := phase.DataText(key); ok {
			lines = append(lines, fmt.Sprintf("- %s: %s", key, value))
		}
	}
	return strings.Join(lines, "\n")
}

func contractBlock(expected []string) string {
	lines := []string{
		"Responde únicamente con un objeto JSON con los campos: intent, confidence, " +
			"slots, notes, next_phase_hint, allowResponse, feedback, score. " +
			"No incluyas texto fuera del JSON.",
	}
	if len(expected) > 0 {
		lines = append(lines, "El objeto slots debe contener: "+strings.Join(expected, ", ")+".")
	}
	return strings.Join(lines, "\n")
}

// expectedSlots derives the slot list from the render template, required
// first, both groups in declaration order.
func expectedSlots(template phrase.Template) []string {
	slots := make([]string, 0, len(template.RequiredSlots)+len(template.OptionalSlots))
	slots = append(slots, template.RequiredSlots...)
	slots = append(slots, template.OptionalSlots...)
	return slots
}

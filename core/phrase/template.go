// Package phrase turns validated slot data into the final controller phrase.
// Rendering is deterministic: the model's free-form prose is never used, only
// slots that passed contract validation.
package phrase

import (
	"encoding/json"
	"fmt"
)

// DefaultConnective joins instruction segments when a template does not
// declare its own connective phraseology.
const DefaultConnective = ", "

// Template describes how a validated response renders into radio phraseology.
type Template struct {
	ID             string
	FrequencyGroup string

	// RequiredSlots must all be present (post-repair) before rendering.
	RequiredSlots []string
	OptionalSlots []string

	// DomainSlots are checked by the contract validator against the phase's
	// operational data (scalar equality or membership in <slot>_options).
	DomainSlots []string

	// Defaults fill slots the model legitimately omitted.
	Defaults map[string]string

	// Segments are ordered instruction fragments with {slot} references,
	// joined by Connective. A segment referencing an absent optional slot is
	// skipped.
	Segments []string

	// Connective joins the rendered segments.
	Connective string

	// InstructionMap expands an instruction_code slot into phrase text that
	// becomes available as {instruction_text}.
	InstructionMap         map[string]string
	DefaultInstructionCode string
}

// templateFile mirrors the on-disk template resource format.
type templateFile struct {
	ID             string `json:"id"`
	FrequencyGroup string `json:"frequency_group"`
	Slots          struct {
		Required []string `json:"required"`
		Optional []string `json:"optional"`
		Domain   []string `json:"domain"`
	} `json:"slots"`
	Fallback struct {
		Defaults map[string]string `json:"defaults"`
	} `json:"fallback"`
	Render struct {
		Segments               []string          `json:"segments"`
		Connective             string            `json:"connective"`
		InstructionMap         map[string]string `json:"instruction_map"`
		DefaultInstructionCode string            `json:"default_instruction_code"`
	} `json:"render"`
}

// ParseJSON parses a single template resource document.
func ParseJSON(data []byte) (Template, error) {
	var file templateFile
	if err := json.Unmarshal(data, &file); err != nil {
		return Template{}, fmt.Errorf("failed to parse template json: %w", err)
	}
	if file.ID == "" {
		return Template{}, fmt.Errorf("template has no id")
	}
	if len(file.Render.Segments) == 0 {
		return Template{}, fmt.Errorf("template %q has no render segments", file.ID)
	}

	return Template{
		ID:                     file.ID,
		FrequencyGroup:         file.FrequencyGroup,
		RequiredSlots:          file.Slots.Required,
		OptionalSlots:          file.Slots.Optional,
		DomainSlots:            file.Slots.Domain,
		Defaults:               file.Fallback.Defaults,
		Segments:               file.Render.Segments,
		Connective:             file.Render.Connective,
		InstructionMap:         file.Render.InstructionMap,
		DefaultInstructionCode: file.Render.DefaultInstructionCode,
	}, nil
}

// Set indexes templates by id.
type Set map[string]Template

// NewSet builds a Set from templates, rejecting duplicate ids.
func NewSet(templates ...Template) (Set, error) {
	set := make(Set, len(templates))
	for _, template := range templates {
		if template.ID == "" {
			return nil, fmt.Errorf("template has no id")
		}
		if _, exists := set[template.ID]; exists {
			return nil, fmt.Errorf("template %q declared twice", template.ID)
		}
		set[template.ID] = template
	}
	return set, nil
}

// Get looks up a template by id.
func (s Set) Get(id string) (Template, bool) {
	template, ok := s[id]
	return template, ok
}

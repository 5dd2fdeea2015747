package phrase

import (
	"fmt"
	"regexp"
	"strings"
)

var slotPattern = regexp.MustCompile(`\{([a-z0-9_]+)\}`)

// Rendered is the final phrase forwarded to speech synthesis.
type Rendered struct {
	Text       string
	TemplateID string
	SlotsUsed  map[string]string
}

// RenderError reports a template that could not be filled.
type RenderError struct {
	TemplateID string
	Missing    []string
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("template %q missing required slots %v", e.TemplateID, e.Missing)
}

// Render fills the template with the provided slots. It is a pure function:
// the same template and slots always yield byte-identical text.
func Render(template Template, slots map[string]string) (Rendered, error) {
	merged := make(map[string]string, len(template.Defaults)+len(slots))
	for name, value := range template.Defaults {
		merged[name] = value
	}
	for name, value := range slots {
		if value != "" {
			merged[name] = value
		}
	}

	var missing []string
	for _, name := range template.RequiredSlots {
		if merged[name] == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return Rendered{}, &RenderError{TemplateID: template.ID, Missing: missing}
	}

	if len(template.InstructionMap) > 0 {
		code := merged["instruction_code"]
		if code == "" {
			code = template.DefaultInstructionCode
		}
		if text, ok := template.InstructionMap[code]; ok {
			expanded, err := expand(text, merged, template.ID)
			if err != nil {
				return Rendered{}, err
			}
			if _, present := merged["instruction_text"]; !present {
				merged["instruction_text"] = expanded
			}
		}
	}

	connective := template.Connective
	if connective == "" {
		connective = DefaultConnective
	}

	var parts []string
	for _, segment := range template.Segments {
		if skipSegment(segment, merged, template) {
			continue
		}
		expanded, err := expand(segment, merged, template.ID)
		if err != nil {
			return Rendered{}, err
		}
		parts = append(parts, expanded)
	}

	return Rendered{
		Text:       strings.Join(parts, connective),
		TemplateID: template.ID,
		SlotsUsed:  merged,
	}, nil
}

// skipSegment drops segments whose only slot references are absent optional
// slots, so templates can carry conditional fragments (e.g. a wind report).
func skipSegment(segment string, slots map[string]string, template Template) bool {
	references := slotPattern.FindAllStringSubmatch(segment, -1)
	if len(references) == 0 {
		return false
	}
	for _, reference := range references {
		name := reference[1]
		if slots[name] != "" {
			return false
		}
		if !isOptional(name, template) {
			return false
		}
	}
	return true
}

func isOptional(name string, template Template) bool {
	for _, optional := range template.OptionalSlots {
		if optional == name {
			return true
		}
	}
	return name == "instruction_text"
}

func expand(text string, slots map[string]string, templateID string) (string, error) {
	var missing []string
	expanded := slotPattern.ReplaceAllStringFunc(text, func(match string) string {
		name := slotPattern.FindStringSubmatch(match)[1]
		value, ok := slots[name]
		if !ok || value == "" {
			missing = append(missing, name)
			return match
		}
		return value
	})
	if len(missing) > 0 {
		return "", &RenderError{TemplateID: templateID, Missing: missing}
	}
	return expanded, nil
}

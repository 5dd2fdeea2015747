package scenario

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// graphFile mirrors the on-disk scenario document. Both JSON and YAML
// scenarios share this shape; phases are authored as an ordered list and
// keyed by id after parsing.
type graphFile struct {
	ID           string            `json:"id" yaml:"id"`
	DefaultPhase string            `json:"default_phase" yaml:"default_phase"`
	Frequencies  map[string]string `json:"frequencies" yaml:"frequencies"`
	Shared       map[string]Value  `json:"shared" yaml:"shared"`
	Phases       []phaseFile       `json:"phases" yaml:"phases"`
}

type phaseFile struct {
	ID           string            `json:"id" yaml:"id"`
	Name         string            `json:"name" yaml:"name"`
	Frequency    string            `json:"frequency" yaml:"frequency"`
	Intent       string            `json:"intent" yaml:"intent"`
	Transitions  map[string]string `json:"transitions" yaml:"transitions"`
	LLM          instructionsFile  `json:"llm" yaml:"llm"`
	Data         map[string]Value  `json:"data" yaml:"data"`
	Template     string            `json:"template" yaml:"template"`
	FallbackText string            `json:"fallback_text" yaml:"fallback_text"`
	RetryNeutral bool              `json:"retry_neutral" yaml:"retry_neutral"`
}

type instructionsFile struct {
	Role                string   `json:"role" yaml:"role"`
	StudentChecklist    []string `json:"studentChecklist" yaml:"studentChecklist"`
	ControllerChecklist []string `json:"controllerChecklist" yaml:"controllerChecklist"`
	AllowResponseRules  []string `json:"allowResponseRules" yaml:"allowResponseRules"`
	FeedbackGuidance    []string `json:"feedbackGuidance" yaml:"feedbackGuidance"`
	Notes               string   `json:"notes" yaml:"notes"`
}

// ParseJSON parses a scenario document in the JSON resource format and
// validates its invariants.
func ParseJSON(data []byte) (*Graph, error) {
	var file graphFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse scenario json: %w", err)
	}
	return file.toGraph()
}

// ParseYAML parses a scenario document in the YAML resource format and
// validates its invariants.
func ParseYAML(data []byte) (*Graph, error) {
	var file graphFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse scenario yaml: %w", err)
	}
	return file.toGraph()
}

// Load reads a scenario file, dispatching on the file extension.
func Load(path string) (*Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(data)
	case ".json":
		return ParseJSON(data)
	default:
		return nil, fmt.Errorf("unsupported scenario file extension %q", filepath.Ext(path))
	}
}

func (f graphFile) toGraph() (*Graph, error) {
	graph := &Graph{
		ID:             f.ID,
		DefaultPhaseID: f.DefaultPhase,
		Frequencies:    f.Frequencies,
		Shared:         f.Shared,
		Phases:         make(map[string]Phase, len(f.Phases)),
	}
	if graph.Frequencies == nil {
		graph.Frequencies = map[string]string{}
	}
	if graph.Shared == nil {
		graph.Shared = map[string]Value{}
	}

	for _, entry := range f.Phases {
		if entry.ID == "" {
			return nil, fmt.Errorf("scenario %q contains a phase without an id", f.ID)
		}
		if _, exists := graph.Phases[entry.ID]; exists {
			return nil, fmt.Errorf("scenario %q declares phase %q twice", f.ID, entry.ID)
		}
		phase := Phase{
			ID:             entry.ID,
			Name:           entry.Name,
			FrequencyGroup: entry.Frequency,
			ExpectedIntent: entry.Intent,
			Transitions:    entry.Transitions,
			Data:           entry.Data,
			TemplateID:     entry.Template,
			FallbackText:   entry.FallbackText,
			RetryNeutral:   entry.RetryNeutral,
			Instructions: Instructions{
				Role:                entry.LLM.Role,
				StudentChecklist:    entry.LLM.StudentChecklist,
				ControllerChecklist: entry.LLM.ControllerChecklist,
				RespondRules:        entry.LLM.AllowResponseRules,
				FeedbackGuidance:    entry.LLM.FeedbackGuidance,
				Notes:               entry.LLM.Notes,
			},
		}
		if phase.Transitions == nil {
			phase.Transitions = map[string]string{}
		}
		if phase.Data == nil {
			phase.Data = map[string]Value{}
		}
		graph.Phases[entry.ID] = phase
	}

	if graph.DefaultPhaseID == "" && len(f.Phases) > 0 {
		graph.DefaultPhaseID = f.Phases[0].ID
	}

	if err := graph.Validate(); err != nil {
		return nil, err
	}
	return graph, nil
}

package phrase

import (
	"errors"
	"testing"
)

func taxiTemplate() Template {
	return Template{
		ID:             "ground_taxi_clearance",
		FrequencyGroup: "ground",
		RequiredSlots:  []string{"callsign", "runway", "taxi_route"},
		OptionalSlots:  []string{"qnh"},
		Defaults:       map[string]string{"holding_point": "punto de espera"},
		Segments: []string{
			"{callsign}",
			"ruede a {holding_point} pista {runway} vía {taxi_route}",
			"QNH {qnh}",
		},
	}
}

func TestRenderFillsSegments(t *testing.T) {
	rendered, err := Render(taxiTemplate(), map[string]string{
		"callsign":   "TI-ABC",
		"runway":     "uno cero",
		"taxi_route": "Alfa 2, Alfa",
		"qnh":        "3008",
	})
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}

	want := "TI-ABC, ruede a punto de espera pista uno cero vía Alfa 2, Alfa, QNH 3008"
	if rendered.Text != want {
		t.Fatalf("unexpected phrase:\n got: %q\nwant: %q", rendered.Text, want)
	}
	if rendered.TemplateID != "ground_taxi_clearance" {
		t.Fatalf("unexpected template id %q", rendered.TemplateID)
	}
}

func TestRenderIsIdempotent(t *testing.T) {
	slots := map[string]string{
		"callsign":   "TI-ABC",
		"runway":     "uno cero",
		"taxi_route": "Alfa",
	}

	first, err := Render(taxiTemplate(), slots)
	if err != nil {
		t.Fatalf("first render failed: %v", err)
	}
	second, err := Render(taxiTemplate(), slots)
	if err != nil {
		t.Fatalf("second render failed: %v", err)
	}
	if first.Text != second.Text {
		t.Fatalf("render is not deterministic: %q vs %q", first.Text, second.Text)
	}
}

func TestRenderSkipsAbsentOptionalSegments(t *testing.T) {
	rendered, err := Render(taxiTemplate(), map[string]string{
		"callsign":   "TI-ABC",
		"runway":     "uno cero",
		"taxi_route": "Alfa",
	})
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}

	want := "TI-ABC, ruede a punto de espera pista uno cero vía Alfa"
	if rendered.Text != want {
		t.Fatalf("unexpected phrase:\n got: %q\nwant: %q", rendered.Text, want)
	}
}

func TestRenderFailsOnMissingRequiredSlot(t *testing.T) {
	_, err := Render(taxiTemplate(), map[string]string{
		"callsign": "TI-ABC",
		"runway":   "uno cero",
	})
	if err == nil {
		t.Fatal("expected render error for missing taxi_route")
	}
	var renderErr *RenderError
	if !errors.As(err, &renderErr) {
		t.Fatalf("expected *RenderError, got %T", err)
	}
	if len(renderErr.Missing) != 1 || renderErr.Missing[0] != "taxi_route" {
		t.Fatalf("unexpected missing slots %v", renderErr.Missing)
	}
}

func TestRenderExpandsInstructionMap(t *testing.T) {
	template := Template{
		ID:            "tower_takeoff_clearance",
		RequiredSlots: []string{"callsign", "runway"},
		Segments:      []string{"{callsign}", "{instruction_text}"},
		InstructionMap: map[string]string{
			"cleared": "autorizado despegue pista {runway}",
			"hold":    "mantenga posición",
		},
		DefaultInstructionCode: "cleared",
	}

	rendered, err := Render(template, map[string]string{
		"callsign": "TI-ABC",
		"runway":   "uno cero",
	})
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	want := "TI-ABC, autorizado despegue pista uno cero"
	if rendered.Text != want {
		t.Fatalf("unexpected phrase:\n got: %q\nwant: %q", rendered.Text, want)
	}

	rendered, err = Render(template, map[string]string{
		"callsign":         "TI-ABC",
		"runway":           "uno cero",
		"instruction_code": "hold",
	})
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	want = "TI-ABC, mantenga posición"
	if rendered.Text != want {
		t.Fatalf("unexpected phrase:\n got: %q\nwant: %q", rendered.Text, want)
	}
}

func TestParseJSONTemplate(t *testing.T) {
	doc := `{
  "id": "ground_taxi_clearance",
  "frequency_group": "ground",
  "slots": {"required": ["callsign", "runway"], "optional": ["qnh"], "domain": ["runway"]},
  "fallback": {"defaults": {"holding_point": "punto de espera"}},
  "render": {
    "segments": ["{callsign}", "pista {runway}"],
    "connective": ", "
  }
}`
	template, err := ParseJSON([]byte(doc))
	if err != nil {
		t.Fatalf("failed to parse template: %v", err)
	}
	if template.ID != "ground_taxi_clearance" {
		t.Fatalf("unexpected id %q", template.ID)
	}
	if len(template.RequiredSlots) != 2 {
		t.Fatalf("unexpected required slots %v", template.RequiredSlots)
	}
	if template.Defaults["holding_point"] != "punto de espera" {
		t.Fatalf("unexpected defaults %v", template.Defaults)
	}
}

func TestNewSetRejectsDuplicates(t *testing.T) {
	template := taxiTemplate()
	if _, err := NewSet(template, template); err == nil {
		t.Fatal("expected duplicate template ids to be rejected")
	}
}

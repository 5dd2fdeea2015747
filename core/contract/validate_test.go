package contract

import (
	"testing"

	"github.com/aeropractica/atc-core/core/intents"
	"github.com/aeropractica/atc-core/core/phrase"
	"github.com/aeropractica/atc-core/core/scenario"
)

func testPhase() scenario.Phase {
	return scenario.Phase{
		ID:             "takeoff_request",
		FrequencyGroup: "tower",
		ExpectedIntent: "tower_takeoff_clearance",
		Transitions:    map[string]string{scenario.TriggerOnSuccess: "departure"},
		Data: map[string]scenario.Value{
			"runway": scenario.StringValue("10"),
			"runway_options": scenario.SequenceValue(
				scenario.StringValue("10"),
				scenario.StringValue("28"),
			),
			"wind": scenario.StringValue("080/12"),
		},
	}
}

func testTemplate() phrase.Template {
	return phrase.Template{
		ID:            "tower_takeoff_clearance",
		RequiredSlots: []string{"callsign", "runway"},
		DomainSlots:   []string{"runway"},
		Segments:      []string{"{callsign}", "pista {runway}"},
	}
}

func testCatalog() intents.Catalog {
	return intents.NewCatalog("tower_takeoff_clearance", "ground_taxi_clearance")
}

func TestValidateAcceptsCleanResponse(t *testing.T) {
	raw := `{
  "intent": "tower_takeoff_clearance",
  "confidence": 0.92,
  "slots": {"callsign": "TI-ABC", "runway": "10"},
  "notes": {"observations": ["fraseología correcta"], "missing_information": []},
  "next_phase_hint": "departure",
  "allowResponse": true,
  "feedback": "Buena transmisión.",
  "score": 88
}`
	response, err := Validate(raw, testPhase(), testCatalog(), testTemplate())
	if err != nil {
		t.Fatalf("expected response to validate, got %v", err)
	}
	if response.Intent != "tower_takeoff_clearance" {
		t.Fatalf("unexpected intent %q", response.Intent)
	}
	if response.Confidence != 0.92 {
		t.Fatalf("unexpected confidence %v", response.Confidence)
	}
	if response.NextPhaseHint != "departure" {
		t.Fatalf("unexpected hint %q", response.NextPhaseHint)
	}
	if response.Score == nil || *response.Score != 88 {
		t.Fatalf("unexpected score %v", response.Score)
	}
}

func TestValidateStripsMarkdownFences(t *testing.T) {
	raw := "```json\n{\"intent\": \"tower_takeoff_clearance\", \"slots\": {\"callsign\": \"TI-ABC\", \"runway\": \"10\"}}\n```"
	if _, err := Validate(raw, testPhase(), testCatalog(), testTemplate()); err != nil {
		t.Fatalf("expected fenced response to validate, got %v", err)
	}
}

func TestValidateRejectsMalformedJSON(t *testing.T) {
	_, err := Validate("the pilot sounds ready to go", testPhase(), testCatalog(), testTemplate())
	contractErr, ok := AsError(err)
	if !ok {
		t.Fatalf("expected contract error, got %v", err)
	}
	if contractErr.Kind != KindMalformed {
		t.Fatalf("expected KindMalformed, got %s", contractErr.Kind)
	}
}

func TestValidateRejectsUnknownIntentButKeepsIt(t *testing.T) {
	raw := `{"intent": "order_lunch", "slots": {"callsign": "TI-ABC", "runway": "10"}}`
	_, err := Validate(raw, testPhase(), testCatalog(), testTemplate())
	contractErr, ok := AsError(err)
	if !ok {
		t.Fatalf("expected contract error, got %v", err)
	}
	if contractErr.Kind != KindUnknownIntent {
		t.Fatalf("expected KindUnknownIntent, got %s", contractErr.Kind)
	}
	if contractErr.Intent != "order_lunch" {
		t.Fatalf("expected original intent preserved for audit, got %q", contractErr.Intent)
	}
}

func TestValidateClampsConfidenceAndScore(t *testing.T) {
	raw := `{"intent": "tower_takeoff_clearance", "confidence": 3.7, "score": 140,
  "slots": {"callsign": "TI-ABC", "runway": "10"}}`
	response, err := Validate(raw, testPhase(), testCatalog(), testTemplate())
	if err != nil {
		t.Fatalf("expected out-of-range values to be normalized, got %v", err)
	}
	if response.Confidence != 1.0 {
		t.Fatalf("expected confidence clamped to 1.0, got %v", response.Confidence)
	}
	if response.Score == nil || *response.Score != 100 {
		t.Fatalf("expected score clamped to 100, got %v", response.Score)
	}
}

func TestValidateRepairsCallsignSpelling(t *testing.T) {
	template := testTemplate()
	template.RequiredSlots = []string{"callsign", "callsign_spelled", "runway"}

	raw := `{"intent": "tower_takeoff_clearance", "slots": {"callsign": "TI-ABC", "runway": "10"}}`
	response, err := Validate(raw, testPhase(), testCatalog(), template)
	if err != nil {
		t.Fatalf("expected spelling repair, got %v", err)
	}
	want := "Tango India Alfa Bravo Charlie"
	if response.Slots["callsign_spelled"] != want {
		t.Fatalf("unexpected spelling %q, want %q", response.Slots["callsign_spelled"], want)
	}
}

func TestValidateFillsMissingSlotFromPhaseData(t *testing.T) {
	raw := `{"intent": "tower_takeoff_clearance", "slots": {"callsign": "TI-ABC"}}`
	response, err := Validate(raw, testPhase(), testCatalog(), testTemplate())
	if err != nil {
		t.Fatalf("expected phase-data repair, got %v", err)
	}
	if response.Slots["runway"] != "10" {
		t.Fatalf("expected runway filled from phase data, got %q", response.Slots["runway"])
	}
}

func TestValidateReportsUnresolvedSlots(t *testing.T) {
	raw := `{"intent": "tower_takeoff_clearance", "slots": {"runway": "10"}}`
	_, err := Validate(raw, testPhase(), testCatalog(), testTemplate())
	contractErr, ok := AsError(err)
	if !ok {
		t.Fatalf("expected contract error, got %v", err)
	}
	if contractErr.Kind != KindIncompleteSlots {
		t.Fatalf("expected KindIncompleteSlots, got %s", contractErr.Kind)
	}
	if len(contractErr.Unresolved) != 1 || contractErr.Unresolved[0] != "callsign" {
		t.Fatalf("unexpected unresolved slots %v", contractErr.Unresolved)
	}
	if contractErr.Partial == nil {
		t.Fatal("expected partial data for diagnostics")
	}
}

func TestValidateRejectsOutOfDomainRunway(t *testing.T) {
	raw := `{"intent": "tower_takeoff_clearance", "slots": {"callsign": "TI-ABC", "runway": "22"}}`
	_, err := Validate(raw, testPhase(), testCatalog(), testTemplate())
	contractErr, ok := AsError(err)
	if !ok {
		t.Fatalf("expected contract error, got %v", err)
	}
	if contractErr.Kind != KindOutOfDomain {
		t.Fatalf("expected KindOutOfDomain, got %s", contractErr.Kind)
	}
}

func TestValidateClearsUnreachableHint(t *testing.T) {
	raw := `{"intent": "tower_takeoff_clearance", "next_phase_hint": "landing",
  "slots": {"callsign": "TI-ABC", "runway": "10"}}`
	response, err := Validate(raw, testPhase(), testCatalog(), testTemplate())
	if err != nil {
		t.Fatalf("expected unreachable hint to be tolerated, got %v", err)
	}
	if response.NextPhaseHint != "" {
		t.Fatalf("expected hint cleared, got %q", response.NextPhaseHint)
	}
	if len(response.Notes.Observations) == 0 {
		t.Fatal("expected an observation noting the ignored hint")
	}
}

func TestValidateAcceptsLegacyNextPhaseKey(t *testing.T) {
	raw := `{"intent": "tower_takeoff_clearance", "nextPhase": "departure",
  "slots": {"callsign": "TI-ABC", "runway": "10"}}`
	response, err := Validate(raw, testPhase(), testCatalog(), testTemplate())
	if err != nil {
		t.Fatalf("validation failed: %v", err)
	}
	if response.NextPhaseHint != "departure" {
		t.Fatalf("expected legacy nextPhase honoured, got %q", response.NextPhaseHint)
	}
}

func TestParseClassification(t *testing.T) {
	classification, err := ParseClassification(`{"intent": "tower_takeoff_clearance", "confidence": 1.4, "frequencyGroup": "tower"}`)
	if err != nil {
		t.Fatalf("failed to parse classification: %v", err)
	}
	if classification.Intent != "tower_takeoff_clearance" {
		t.Fatalf("unexpected intent %q", classification.Intent)
	}
	if classification.Confidence != 1.0 {
		t.Fatalf("expected clamped confidence, got %v", classification.Confidence)
	}
	if classification.FrequencyGroup != "tower" {
		t.Fatalf("unexpected frequency group %q", classification.FrequencyGroup)
	}

	if _, err := ParseClassification("no json here"); err == nil {
		t.Fatal("expected malformed classification to fail")
	}
}

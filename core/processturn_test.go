package orchestration

import (
	"context"
	"testing"

	"github.com/aeropractica/atc-core/core/intents"
	"github.com/aeropractica/atc-core/core/speechtotext"
)

type fakeTranscriber struct {
	transcript string
	err        error
}

func (f fakeTranscriber) Transcribe(context.Context, []byte) (string, error) {
	return f.transcript, f.err
}

func TestProcessTransmissionRunsPipeline(t *testing.T) {
	o, _ := newTestOrchestrator(t, &scriptedLLM{responses: []string{cleanTaxiResponse}},
		WithTranscriber(fakeTranscriber{transcript: "Pavas superficie, TI-ABC solicito rodaje"}))

	result, err := o.ProcessTransmission(context.Background(), "s1", "121.700", []byte{0x00, 0x01})
	if err != nil {
		t.Fatalf("transmission failed: %v", err)
	}
	if result.PhaseID != "takeoff_request" || result.Degraded {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestProcessTransmissionDegradesWhenASRDown(t *testing.T) {
	o, _ := newTestOrchestrator(t, &scriptedLLM{responses: []string{cleanTaxiResponse}},
		WithTranscriber(fakeTranscriber{err: speechtotext.ErrUnavailable}))

	result, err := o.ProcessTransmission(context.Background(), "s1", "121.700", []byte{0x00})
	if err != nil {
		t.Fatalf("expected a degraded result, got error %v", err)
	}
	if !result.Degraded {
		t.Fatal("expected a degraded turn when transcription fails")
	}
	if result.PhaseID != "taxi_request" {
		t.Fatalf("expected the phase held, got %q", result.PhaseID)
	}
	if result.FrequencyValid {
		t.Fatal("expected no frequency claim when the gate never ran")
	}
}

func TestProcessTransmissionWithoutTranscriber(t *testing.T) {
	o, _ := newTestOrchestrator(t, &scriptedLLM{responses: []string{cleanTaxiResponse}})

	if _, err := o.ProcessTransmission(context.Background(), "s1", "121.700", nil); err == nil {
		t.Fatal("expected an error without a transcriber")
	}
}

func TestRuleBasedIntentDetectionIsAudited(t *testing.T) {
	detector, err := intents.NewDetectorFromRules(intents.Rule{
		ID:             "ground_taxi_clearance",
		FrequencyGroup: "ground",
		RequireAll:     []string{`rodaje`},
		BoostKeywords:  []string{"superficie"},
	})
	if err != nil {
		t.Fatalf("failed to compile rules: %v", err)
	}

	o, trail := newTestOrchestrator(t, &scriptedLLM{responses: []string{cleanTaxiResponse}},
		WithIntentDetector(detector))

	if _, err := o.ProcessTranscript(context.Background(), "s1", "121.700",
		"Pavas superficie, TI-ABC solicito rodaje"); err != nil {
		t.Fatalf("turn failed: %v", err)
	}

	var detected bool
	for _, entry := range trail.BySession("s1") {
		if entry.Stage == "intent" && entry.Decision == "detected" {
			detected = true
		}
	}
	if !detected {
		t.Fatal("expected the detection audited")
	}
}

func TestInconclusiveDetectionEscalatesToClassification(t *testing.T) {
	detector, err := intents.NewDetectorFromRules(intents.Rule{
		ID:         "ground_taxi_clearance",
		RequireAll: []string{`palabra_que_no_aparece`},
	})
	if err != nil {
		t.Fatalf("failed to compile rules: %v", err)
	}

	llm := &scriptedLLM{responses: []string{
		`{"intent": "ground_taxi_clearance", "confidence": 0.8, "frequencyGroup": "ground"}`,
		cleanTaxiResponse,
	}}
	o, trail := newTestOrchestrator(t, llm, WithIntentDetector(detector), WithLLMClassification())

	result, err := o.ProcessTranscript(context.Background(), "s1", "121.700",
		"Pavas superficie, TI-ABC solicito rodaje")
	if err != nil {
		t.Fatalf("turn failed: %v", err)
	}
	if result.Degraded {
		t.Fatalf("unexpected degraded turn: %+v", result)
	}

	var classified bool
	for _, entry := range trail.BySession("s1") {
		if entry.Stage == "intent" && entry.Decision == "classified" {
			classified = true
		}
	}
	if !classified {
		t.Fatal("expected the classification audited")
	}
}

func TestNormalizeFrequency(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"118.300", "118.3"},
		{"118.3", "118.3"},
		{" 121.700 ", "121.7"},
		{"121.000", "121"},
		{"7600", "7600"},
	}
	for _, tc := range cases {
		if got := normalizeFrequency(tc.in); got != tc.want {
			t.Errorf("normalizeFrequency(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

package scenario

import (
	"encoding/json"
	"testing"
)

func TestValueJSONRoundTrip(t *testing.T) {
	var value Value
	payload := `{"runway": "10", "wind_speed": 12, "active": true, "routes": ["Alfa", "Bravo"]}`
	if err := json.Unmarshal([]byte(payload), &value); err != nil {
		t.Fatalf("failed to unmarshal value: %v", err)
	}

	mapping, ok := value.AsMapping()
	if !ok {
		t.Fatalf("expected mapping, got kind %d", value.Kind())
	}
	if runway, ok := mapping["runway"].AsString(); !ok || runway != "10" {
		t.Fatalf("unexpected runway %q (ok=%t)", runway, ok)
	}
	if speed, ok := mapping["wind_speed"].AsNumber(); !ok || speed != 12 {
		t.Fatalf("unexpected wind speed %v (ok=%t)", speed, ok)
	}
	if active, ok := mapping["active"].AsBool(); !ok || !active {
		t.Fatalf("unexpected active %v (ok=%t)", active, ok)
	}
	routes, ok := mapping["routes"].AsSequence()
	if !ok || len(routes) != 2 {
		t.Fatalf("unexpected routes %v (ok=%t)", routes, ok)
	}

	encoded, err := json.Marshal(value)
	if err != nil {
		t.Fatalf("failed to marshal value: %v", err)
	}
	var again Value
	if err := json.Unmarshal(encoded, &again); err != nil {
		t.Fatalf("failed to re-unmarshal value: %v", err)
	}
	if again.Text() != value.Text() {
		t.Fatalf("round trip changed value: %q vs %q", again.Text(), value.Text())
	}
}

func TestValueText(t *testing.T) {
	cases := []struct {
		name  string
		value Value
		want  string
	}{
		{"string", StringValue("uno cero"), "uno cero"},
		{"integer number", NumberValue(12), "12"},
		{"fractional number", NumberValue(118.3), "118.3"},
		{"bool", BoolValue(true), "true"},
		{"sequence", SequenceValue(StringValue("Alfa 2"), StringValue("Alfa")), "Alfa 2, Alfa"},
		{"null", Value{}, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.value.Text(); got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestValueCloneIsDeep(t *testing.T) {
	inner := map[string]Value{"runway": StringValue("10")}
	original := MappingValue(inner)

	clone := original.Clone()
	inner["runway"] = StringValue("28")

	mapping, _ := clone.AsMapping()
	if runway, _ := mapping["runway"].AsString(); runway != "10" {
		t.Fatalf("clone shares storage with original, got %q", runway)
	}
}

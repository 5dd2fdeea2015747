package prompts

import "strings"

// Classification builds the constrained intent-classification prompt used
// when the rule-based detector is inconclusive. The model may only pick from
// the catalog; free-form generation is not part of this mode.
func Classification(catalogIDs []string, transcript string) Spec {
	system := strings.Join([]string{
		"Clasificas transmisiones de radio de un alumno piloto.",
		"Responde únicamente con un objeto JSON con los campos intent, confidence y frequencyGroup.",
		"El campo intent debe ser exactamente uno de: " + strings.Join(catalogIDs, ", ") + ".",
		"confidence es un número entre 0 y 1.",
	}, "\n")

	return Spec{
		SystemInstructions: system,
		UserContent:        "Transmisión: " + strings.TrimSpace(transcript),
	}
}

package prompts

import (
	"regexp"

	"github.com/aeropractica/atc-core/core/scenario"
)

// Default controller personas keyed by frequency group. A scenario can
// override the role per phase; these cover phases that do not.
var personas = map[string]string{
	"ground": "Eres el controlador de superficie del aeropuerto. Gestionas rodajes " +
		"y autorizaciones de puesta en marcha con fraseología estándar en español. " +
		"Eres preciso con las rutas de rodaje y los puntos de espera.",
	"tower": "Eres el controlador de torre del aeropuerto. Gestionas despegues, " +
		"aterrizajes y el circuito de tránsito con fraseología estándar en español. " +
		"Siempre incluyes pista, viento y QNH cuando corresponde.",
	"approach": "Eres el controlador de aproximación. Gestionas llegadas y salidas " +
		"en el área terminal con fraseología estándar en español. Asignas niveles, " +
		"rumbos y códigos de transpondedor.",
	"radar": "Eres el controlador radar de área. Gestionas tránsito en ruta con " +
		"fraseología estándar en español y mantienes separación entre aeronaves.",
}

const defaultPersona = "Eres un controlador de tránsito aéreo. Usas fraseología " +
	"estándar en español y respondes únicamente a transmisiones de radio correctas."

var dataRefPattern = regexp.MustCompile(`\[data\.([A-Za-z0-9_]+)\]`)

// personaFor picks the system persona for a phase: the scenario's declared
// role when present, else the frequency-group default. [data.key]
// placeholders in scenario-declared roles are resolved against phase data.
func personaFor(phase scenario.Phase) string {
	if role := phase.Instructions.Role; role != "" {
		return expandDataRefs(role, phase)
	}
	if persona, ok := personas[phase.FrequencyGroup]; ok {
		return persona
	}
	return defaultPersona
}

func expandDataRefs(text string, phase scenario.Phase) string {
	return dataRefPattern.ReplaceAllStringFunc(text, func(ref string) string {
		key := dataRefPattern.FindStringSubmatch(ref)[1]
		if value, ok := phase.DataText(key); ok {
			return value
		}
		return ref
	})
}

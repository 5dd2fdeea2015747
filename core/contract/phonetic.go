package contract

import (
	"strings"
	"unicode"
)

// phoneticAlphabet is the ICAO spelling alphabet with the Spanish digit
// readouts used on Costa Rican frequencies.
var phoneticAlphabet = map[rune]string{
	'A': "Alfa", 'B': "Bravo", 'C': "Charlie", 'D': "Delta",
	'E': "Eco", 'F': "Foxtrot", 'G': "Golf", 'H': "Hotel",
	'I': "India", 'J': "Juliett", 'K': "Kilo", 'L': "Lima",
	'M': "Mike", 'N': "November", 'O': "Oscar", 'P': "Papa",
	'Q': "Quebec", 'R': "Romeo", 'S': "Sierra", 'T': "Tango",
	'U': "Uniform", 'V': "Victor", 'W': "Whiskey", 'X': "X-ray",
	'Y': "Yankee", 'Z': "Zulu",

	'0': "cero", '1': "uno", '2': "dos", '3': "tres", '4': "cuatro",
	'5': "cinco", '6': "seis", '7': "siete", '8': "ocho", '9': "nueve",
}

// SpellCallsign derives the phonetic readout of a short callsign, e.g.
// "TI-ABC" -> "Tango India Alfa Bravo Charlie". Separators are dropped.
// Returns "" when the callsign contains anything outside the fixed table.
func SpellCallsign(callsign string) string {
	var words []string
	for _, r := range strings.ToUpper(strings.TrimSpace(callsign)) {
		if r == '-' || unicode.IsSpace(r) {
			continue
		}
		word, ok := phoneticAlphabet[r]
		if !ok {
			return ""
		}
		words = append(words, word)
	}
	return strings.Join(words, " ")
}

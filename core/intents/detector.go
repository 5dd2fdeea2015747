package intents

import (
	"fmt"
	"regexp"
	"strings"
)

// Detection confidence starts at the base once all require_all clauses hold
// and grows per optional/boost hit, capped at 1.
const (
	baseConfidence = 0.6
	perMatchBoost  = 0.1
	maxConfidence  = 1.0
)

// Rule is the authorable form of an intent matcher, usually decoded from a
// scenario resource file.
type Rule struct {
	ID             string   `json:"id" yaml:"id"`
	FrequencyGroup string   `json:"frequency_group" yaml:"frequency_group"`
	RequireAll     []string `json:"require_all" yaml:"require_all"`
	RequireAny     []string `json:"require_any" yaml:"require_any"`
	BoostKeywords  []string `json:"boost_keywords" yaml:"boost_keywords"`
}

// Definition is a compiled Rule.
type Definition struct {
	ID             string
	FrequencyGroup string
	requireAll     []*regexp.Regexp
	requireAny     []*regexp.Regexp
	boostKeywords  []string
}

// Compile turns a Rule into a Definition, validating its patterns.
func Compile(rule Rule) (Definition, error) {
	if rule.ID == "" {
		return Definition{}, fmt.Errorf("intent rule has no id")
	}

	definition := Definition{
		ID:             rule.ID,
		FrequencyGroup: rule.FrequencyGroup,
	}
	for _, raw := range rule.RequireAll {
		pattern, err := regexp.Compile("(?i)" + raw)
		if err != nil {
			return Definition{}, fmt.Errorf("intent %q: invalid require_all pattern %q: %w", rule.ID, raw, err)
		}
		definition.requireAll = append(definition.requireAll, pattern)
	}
	for _, raw := range rule.RequireAny {
		pattern, err := regexp.Compile("(?i)" + raw)
		if err != nil {
			return Definition{}, fmt.Errorf("intent %q: invalid require_any pattern %q: %w", rule.ID, raw, err)
		}
		definition.requireAny = append(definition.requireAny, pattern)
	}
	for _, keyword := range rule.BoostKeywords {
		if keyword != "" {
			definition.boostKeywords = append(definition.boostKeywords, strings.ToLower(keyword))
		}
	}
	return definition, nil
}

// Detection is the outcome of scoring a transcript against the rule set.
type Detection struct {
	ID             string
	FrequencyGroup string
	Confidence     float64
	MatchedTokens  []string
}

// Detector scores transcripts against compiled intent definitions.
type Detector struct {
	definitions []Definition
}

// NewDetector builds a detector over the provided definitions.
func NewDetector(definitions ...Definition) *Detector {
	return &Detector{definitions: definitions}
}

// NewDetectorFromRules compiles the rules and builds a detector.
func NewDetectorFromRules(rules ...Rule) (*Detector, error) {
	definitions := make([]Definition, 0, len(rules))
	for _, rule := range rules {
		definition, err := Compile(rule)
		if err != nil {
			return nil, err
		}
		definitions = append(definitions, definition)
	}
	return NewDetector(definitions...), nil
}

// Detect returns the most probable intent for the transcript, or false when
// no rule matches conclusively.
func (d *Detector) Detect(transcript string) (Detection, bool) {
	transcript = strings.TrimSpace(transcript)
	if d == nil || transcript == "" {
		return Detection{}, false
	}

	normalized := strings.ToLower(transcript)
	var best Detection
	found := false

	for _, definition := range d.definitions {
		if !matchesAll(definition.requireAll, normalized) {
			continue
		}

		optionalHits := collectMatches(definition.requireAny, normalized)
		if len(definition.requireAny) > 0 && len(optionalHits) == 0 {
			continue
		}

		var keywordHits []string
		for _, keyword := range definition.boostKeywords {
			if strings.Contains(normalized, keyword) {
				keywordHits = append(keywordHits, keyword)
			}
		}

		hits := append(optionalHits, keywordHits...)
		confidence := baseConfidence + perMatchBoost*float64(len(hits))
		if confidence > maxConfidence {
			confidence = maxConfidence
		}

		if !found || confidence > best.Confidence {
			best = Detection{
				ID:             definition.ID,
				FrequencyGroup: definition.FrequencyGroup,
				Confidence:     confidence,
				MatchedTokens:  hits,
			}
			found = true
		}
	}

	return best, found
}

func matchesAll(patterns []*regexp.Regexp, text string) bool {
	for _, pattern := range patterns {
		if !pattern.MatchString(text) {
			return false
		}
	}
	return true
}

func collectMatches(patterns []*regexp.Regexp, text string) []string {
	var matches []string
	for _, pattern := range patterns {
		if match := pattern.FindString(text); match != "" {
			matches = append(matches, match)
		}
	}
	return matches
}

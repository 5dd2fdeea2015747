// Package config loads process configuration from the environment.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	GroqAPIKey string `env:"GROQ_API_KEY"`
	GroqModel  string `env:"GROQ_MODEL" envDefault:"llama-3.3-70b-versatile"`

	DeepgramAPIKey string `env:"DEEPGRAM_API_KEY"`
	SpeechModel    string `env:"ATC_SPEECH_MODEL" envDefault:"nova-3"`
	Voice          string `env:"ATC_VOICE" envDefault:"aura-2-celeste-es"`

	SessionDB string `env:"ATC_SESSION_DB" envDefault:"atc-sessions.db"`

	// DegradedAdvisoryThreshold is how many consecutive degraded turns raise
	// the instructor advisory. Zero disables it.
	DegradedAdvisoryThreshold int `env:"ATC_DEGRADED_ADVISORY_THRESHOLD" envDefault:"3"`

	Difficulty int `env:"ATC_DIFFICULTY" envDefault:"5"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	return cfg, nil
}

// Package llms defines the completion contract the orchestrator consumes
// and the transport error classes providers must surface.
package llms

import "errors"

// Transport failure classes. Providers wrap these so callers can map them to
// degraded-turn handling without knowing the provider.
var (
	ErrUnavailable = errors.New("llm unavailable")
	ErrRateLimited = errors.New("llm rate limited")
	ErrTimeout     = errors.New("llm timeout")
)

package contract

import (
	"errors"
	"fmt"
)

// Kind classifies why a model response failed the contract.
type Kind int

const (
	// KindMalformed means the raw output could not be parsed as JSON.
	KindMalformed Kind = iota
	// KindUnknownIntent means the declared intent is outside the catalog.
	KindUnknownIntent
	// KindIncompleteSlots means required slots were missing after repair.
	KindIncompleteSlots
	// KindOutOfDomain means a slot value is outside the phase's operational
	// data domain.
	KindOutOfDomain
	// KindTimeout means the model call was cancelled by its deadline.
	KindTimeout
	// KindUnavailable means the model transport failed outright.
	KindUnavailable
	// KindRateLimited means the model rejected the call for quota reasons.
	KindRateLimited
)

func (k Kind) String() string {
	switch k {
	case KindMalformed:
		return "malformed"
	case KindUnknownIntent:
		return "unknown_intent"
	case KindIncompleteSlots:
		return "incomplete_slots"
	case KindOutOfDomain:
		return "out_of_domain"
	case KindTimeout:
		return "timeout"
	case KindUnavailable:
		return "unavailable"
	case KindRateLimited:
		return "rate_limited"
	default:
		return "unknown"
	}
}

// Error is a contract rejection. Rejections are never fatal to the session:
// the fallback controller converts them into a canned degraded turn.
type Error struct {
	Kind   Kind
	Reason string

	// Intent preserves the model's original intent string for audit, even
	// when it failed catalog membership.
	Intent string

	// Unresolved lists required slots that survived repair attempts.
	Unresolved []string

	// Partial carries whatever validated data was recovered, for
	// diagnostics.
	Partial *StructuredResponse

	wrapped error
}

func (e *Error) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("contract %s: %s", e.Kind, e.Reason)
	}
	return fmt.Sprintf("contract %s", e.Kind)
}

func (e *Error) Unwrap() error { return e.wrapped }

// NewError builds a contract error of the given kind.
func NewError(kind Kind, reason string) *Error {
	return &Error{Kind: kind, Reason: reason}
}

// WrapTransport classifies a transport failure from the model call.
func WrapTransport(kind Kind, err error) *Error {
	reason := ""
	if err != nil {
		reason = err.Error()
	}
	return &Error{Kind: kind, Reason: reason, wrapped: err}
}

// AsError extracts a contract *Error from an error chain.
func AsError(err error) (*Error, bool) {
	var contractErr *Error
	if errors.As(err, &contractErr) {
		return contractErr, true
	}
	return nil, false
}

package sessions

import (
	"context"
	"errors"
)

// ErrNotFound is returned by stores when a session does not exist.
var ErrNotFound = errors.New("session not found")

// Store is the durable home of session state. Implementations must treat
// Save as authoritative: the orchestrator assumes a successful Save is
// visible to the next Load.
type Store interface {
	Load(ctx context.Context, sessionID string) (*State, error)
	Save(ctx context.Context, state *State) error
	AppendTurn(ctx context.Context, sessionID string, turn Turn) error
}

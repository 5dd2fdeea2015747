package sessions

import (
	"context"
	"sync"
)

// MemoryStore keeps sessions in process memory. It hands out deep copies so
// two requests never alias the same state.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*State
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: map[string]*State{}}
}

func (m *MemoryStore) Load(_ context.Context, sessionID string) (*State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, ok := m.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	return state.Snapshot()
}

func (m *MemoryStore) Save(_ context.Context, state *State) error {
	snapshot, err := state.Snapshot()
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[state.ID] = snapshot
	return nil
}

func (m *MemoryStore) AppendTurn(_ context.Context, sessionID string, turn Turn) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.sessions[sessionID]
	if !ok {
		return ErrNotFound
	}
	state.AppendTurn(turn)
	return nil
}

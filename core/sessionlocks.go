package orchestration

import (
	"errors"
	"sync"
)

// ErrSessionBusy is returned when a transmission arrives while another one
// for the same session is still being processed.
var ErrSessionBusy = errors.New("session busy")

// sessionLocks serializes turn processing per session. At most one
// transmission per session is in flight; a second caller is rejected
// immediately rather than queued, matching radio discipline.
type sessionLocks struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func newSessionLocks() *sessionLocks {
	return &sessionLocks{held: map[string]struct{}{}}
}

func (l *sessionLocks) acquire(sessionID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, taken := l.held[sessionID]; taken {
		return false
	}
	l.held[sessionID] = struct{}{}
	return true
}

func (l *sessionLocks) release(sessionID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, sessionID)
}

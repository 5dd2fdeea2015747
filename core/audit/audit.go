// Package audit records every orchestration decision, independent of
// whether the turn succeeded. The trail is the instructor's forensic view
// of a session.
package audit

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/contrib/bridges/otelslog"
)

const scopeName = "github.com/aeropractica/atc-core/core/audit"

// Entry is one recorded decision.
type Entry struct {
	SessionID string    `json:"sessionId"`
	PhaseID   string    `json:"phaseId"`
	Stage     string    `json:"stage"`
	Decision  string    `json:"decision"`
	Reason    string    `json:"reason,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Trail receives entries. Implementations must not fail the turn: Record has
// no error return on purpose.
type Trail interface {
	Record(ctx context.Context, entry Entry)
}

// MemoryTrail keeps entries in memory, mostly for tests and the console.
type MemoryTrail struct {
	mu      sync.Mutex
	entries []Entry
}

var _ Trail = (*MemoryTrail)(nil)

func NewMemoryTrail() *MemoryTrail { return &MemoryTrail{} }

func (m *MemoryTrail) Record(_ context.Context, entry Entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
}

// Entries returns a copy of the recorded entries in insertion order.
func (m *MemoryTrail) Entries() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Entry(nil), m.entries...)
}

// BySession filters the trail down to one session.
func (m *MemoryTrail) BySession(sessionID string) []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()

	var matched []Entry
	for _, entry := range m.entries {
		if entry.SessionID == sessionID {
			matched = append(matched, entry)
		}
	}
	return matched
}

// LogTrail emits entries as structured log records.
type LogTrail struct{}

var _ Trail = LogTrail{}

var logger = otelslog.NewLogger(scopeName)

func NewLogTrail() LogTrail { return LogTrail{} }

func (LogTrail) Record(ctx context.Context, entry Entry) {
	logger.InfoContext(ctx, "audit",
		"session_id", entry.SessionID,
		"phase_id", entry.PhaseID,
		"stage", entry.Stage,
		"decision", entry.Decision,
		"reason", entry.Reason,
	)
}

// MultiTrail fans entries out to several trails.
type MultiTrail []Trail

var _ Trail = MultiTrail{}

func (m MultiTrail) Record(ctx context.Context, entry Entry) {
	for _, trail := range m {
		trail.Record(ctx, entry)
	}
}

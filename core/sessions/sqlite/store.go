// Package sqlite persists session state in an embedded sqlite database, so
// training sessions survive process restarts without an external service.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/aeropractica/atc-core/core/scenario"
	"github.com/aeropractica/atc-core/core/sessions"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id                   TEXT PRIMARY KEY,
	scenario_id          TEXT NOT NULL,
	active_phase_id      TEXT NOT NULL,
	overrides            TEXT NOT NULL DEFAULT '{}',
	consecutive_degraded INTEGER NOT NULL DEFAULT 0,
	created_at           TEXT NOT NULL,
	updated_at           TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS turns (
	session_id TEXT NOT NULL REFERENCES sessions(id),
	seq        INTEGER NOT NULL,
	payload    TEXT NOT NULL,
	PRIMARY KEY (session_id, seq)
);
`

// Store implements sessions.Store on modernc.org/sqlite.
type Store struct {
	db *sql.DB
}

var _ sessions.Store = (*Store)(nil)

// Open creates or opens the database at path and applies the schema. WAL
// keeps concurrent readers from blocking the writer.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open session database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply session schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Load(ctx context.Context, sessionID string) (*sessions.State, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT scenario_id, active_phase_id, overrides, consecutive_degraded, created_at, updated_at
		FROM sessions WHERE id = ?`, sessionID)

	var (
		state         = sessions.State{ID: sessionID}
		overridesJSON string
		createdAt     string
		updatedAt     string
	)
	err := row.Scan(&state.ScenarioID, &state.ActivePhaseID, &overridesJSON,
		&state.ConsecutiveDegraded, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sessions.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session %s: %w", sessionID, err)
	}

	if err := json.Unmarshal([]byte(overridesJSON), &state.Overrides); err != nil {
		return nil, fmt.Errorf("failed to decode overrides for session %s: %w", sessionID, err)
	}
	if state.Overrides == nil {
		state.Overrides = map[string]scenario.Value{}
	}
	if state.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("failed to decode created_at for session %s: %w", sessionID, err)
	}
	if state.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return nil, fmt.Errorf("failed to decode updated_at for session %s: %w", sessionID, err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT payload FROM turns WHERE session_id = ? ORDER BY seq`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load turns for session %s: %w", sessionID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan turn for session %s: %w", sessionID, err)
		}
		var turn sessions.Turn
		if err := json.Unmarshal([]byte(payload), &turn); err != nil {
			return nil, fmt.Errorf("failed to decode turn for session %s: %w", sessionID, err)
		}
		state.Turns = append(state.Turns, turn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate turns for session %s: %w", sessionID, err)
	}
	if len(state.Turns) > sessions.MaxStoredTurns {
		state.Turns = state.Turns[len(state.Turns)-sessions.MaxStoredTurns:]
	}

	return &state, nil
}

func (s *Store) Save(ctx context.Context, state *sessions.State) error {
	overridesJSON, err := json.Marshal(state.Overrides)
	if err != nil {
		return fmt.Errorf("failed to encode overrides for session %s: %w", state.ID, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin save for session %s: %w", state.ID, err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sessions (id, scenario_id, active_phase_id, overrides, consecutive_degraded, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			active_phase_id = excluded.active_phase_id,
			overrides = excluded.overrides,
			consecutive_degraded = excluded.consecutive_degraded,
			updated_at = excluded.updated_at`,
		state.ID, state.ScenarioID, state.ActivePhaseID, string(overridesJSON),
		state.ConsecutiveDegraded,
		state.CreatedAt.Format(time.RFC3339Nano), state.UpdatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to upsert session %s: %w", state.ID, err)
	}

	// The turn table is rewritten from the in-memory history; the history is
	// already bounded so this stays small.
	if _, err := tx.ExecContext(ctx, `DELETE FROM turns WHERE session_id = ?`, state.ID); err != nil {
		return fmt.Errorf("failed to clear turns for session %s: %w", state.ID, err)
	}
	for i, turn := range state.Turns {
		payload, err := json.Marshal(turn)
		if err != nil {
			return fmt.Errorf("failed to encode turn %d for session %s: %w", i, state.ID, err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO turns (session_id, seq, payload) VALUES (?, ?, ?)`,
			state.ID, i, string(payload)); err != nil {
			return fmt.Errorf("failed to insert turn %d for session %s: %w", i, state.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit session %s: %w", state.ID, err)
	}
	return nil
}

func (s *Store) AppendTurn(ctx context.Context, sessionID string, turn sessions.Turn) error {
	payload, err := json.Marshal(turn)
	if err != nil {
		return fmt.Errorf("failed to encode turn for session %s: %w", sessionID, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin append for session %s: %w", sessionID, err)
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions WHERE id = ?`, sessionID).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check session %s: %w", sessionID, err)
	}
	if exists == 0 {
		return sessions.ErrNotFound
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO turns (session_id, seq, payload)
		VALUES (?, (SELECT COALESCE(MAX(seq), -1) + 1 FROM turns WHERE session_id = ?), ?)`,
		sessionID, sessionID, string(payload))
	if err != nil {
		return fmt.Errorf("failed to append turn for session %s: %w", sessionID, err)
	}

	_, err = tx.ExecContext(ctx, `
		DELETE FROM turns WHERE session_id = ? AND seq <= (
			SELECT MAX(seq) - ? FROM turns WHERE session_id = ?)`,
		sessionID, sessions.MaxStoredTurns, sessionID)
	if err != nil {
		return fmt.Errorf("failed to prune turns for session %s: %w", sessionID, err)
	}

	_, err = tx.ExecContext(ctx, `UPDATE sessions SET updated_at = ? WHERE id = ?`,
		turn.Timestamp.Format(time.RFC3339Nano), sessionID)
	if err != nil {
		return fmt.Errorf("failed to touch session %s: %w", sessionID, err)
	}

	return tx.Commit()
}

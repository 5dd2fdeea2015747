package sqlite

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/aeropractica/atc-core/core/scenario"
	"github.com/aeropractica/atc-core/core/sessions"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "sessions.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	if _, err := store.Load(ctx, "missing"); err != sessions.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	now := time.Now().UTC().Truncate(time.Millisecond)
	state := sessions.NewState("s1", "mrpv_vfr_departure", "taxi_request", now)
	state.Overrides["squawk"] = scenario.StringValue("0542")
	state.Overrides["qnh"] = scenario.NumberValue(3008)
	score := 85.0
	state.AppendTurn(sessions.Turn{
		ID:         "turn-0",
		Role:       sessions.RoleStudent,
		Transcript: "Pavas torre, TI-ABC listo para despegar",
		Frequency:  "118.300",
		PhaseID:    "takeoff_request",
		Outcome:    sessions.OutcomeAccepted,
		Score:      &score,
		Timestamp:  now,
	})

	if err := store.Save(ctx, state); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	loaded, err := store.Load(ctx, "s1")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if loaded.ActivePhaseID != "taxi_request" {
		t.Fatalf("unexpected phase %q", loaded.ActivePhaseID)
	}
	if squawk, _ := loaded.Overrides["squawk"].AsString(); squawk != "0542" {
		t.Fatalf("unexpected squawk override %q", squawk)
	}
	if qnh, _ := loaded.Overrides["qnh"].AsNumber(); qnh != 3008 {
		t.Fatalf("unexpected qnh override %v", qnh)
	}
	if len(loaded.Turns) != 1 || loaded.Turns[0].Transcript != state.Turns[0].Transcript {
		t.Fatalf("unexpected turn history %+v", loaded.Turns)
	}
	if loaded.Turns[0].Score == nil || *loaded.Turns[0].Score != 85 {
		t.Fatalf("unexpected score %v", loaded.Turns[0].Score)
	}
}

func TestStoreSaveIsUpsert(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	now := time.Now().UTC()
	state := sessions.NewState("s1", "mrpv_vfr_departure", "taxi_request", now)
	if err := store.Save(ctx, state); err != nil {
		t.Fatalf("first save failed: %v", err)
	}

	state.ActivePhaseID = "takeoff_request"
	state.ConsecutiveDegraded = 2
	if err := store.Save(ctx, state); err != nil {
		t.Fatalf("second save failed: %v", err)
	}

	loaded, err := store.Load(ctx, "s1")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if loaded.ActivePhaseID != "takeoff_request" || loaded.ConsecutiveDegraded != 2 {
		t.Fatalf("upsert did not apply: %+v", loaded)
	}
}

func TestAppendTurnPersistsAndPrunes(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	if err := store.AppendTurn(ctx, "missing", sessions.Turn{ID: "turn-0", Timestamp: time.Now()}); err != sessions.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	now := time.Now().UTC()
	state := sessions.NewState("s1", "mrpv_vfr_departure", "taxi_request", now)
	if err := store.Save(ctx, state); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	for i := 0; i < sessions.MaxStoredTurns+3; i++ {
		turn := sessions.Turn{ID: fmt.Sprintf("turn-%d", i), Timestamp: now.Add(time.Duration(i) * time.Second)}
		if err := store.AppendTurn(ctx, "s1", turn); err != nil {
			t.Fatalf("append %d failed: %v", i, err)
		}
	}

	loaded, err := store.Load(ctx, "s1")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(loaded.Turns) != sessions.MaxStoredTurns {
		t.Fatalf("expected %d stored turns, got %d", sessions.MaxStoredTurns, len(loaded.Turns))
	}
	if loaded.Turns[len(loaded.Turns)-1].ID != fmt.Sprintf("turn-%d", sessions.MaxStoredTurns+2) {
		t.Fatalf("unexpected newest turn %q", loaded.Turns[len(loaded.Turns)-1].ID)
	}
}

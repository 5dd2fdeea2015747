package sessions

import (
	"context"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/aeropractica/atc-core/core/scenario"
)

func TestAppendTurnCapsHistory(t *testing.T) {
	state := NewState("s1", "mrpv_vfr_departure", "taxi_request", time.Now())
	for i := 0; i < MaxStoredTurns+5; i++ {
		state.AppendTurn(Turn{
			ID:         fmt.Sprintf("turn-%d", i),
			Role:       RoleStudent,
			Transcript: fmt.Sprintf("transmission %d", i),
			Timestamp:  time.Now(),
		})
	}
	if len(state.Turns) != MaxStoredTurns {
		t.Fatalf("expected history capped at %d, got %d", MaxStoredTurns, len(state.Turns))
	}
	if state.Turns[0].ID != "turn-5" {
		t.Fatalf("expected oldest turns dropped first, head is %q", state.Turns[0].ID)
	}
}

func TestRecentTurnsWindow(t *testing.T) {
	state := NewState("s1", "mrpv_vfr_departure", "taxi_request", time.Now())
	for i := 0; i < 12; i++ {
		state.AppendTurn(Turn{ID: fmt.Sprintf("turn-%d", i), Timestamp: time.Now()})
	}

	recent := state.RecentTurns(0)
	if len(recent) != RecentTurnsLimit {
		t.Fatalf("expected default window of %d, got %d", RecentTurnsLimit, len(recent))
	}
	if recent[len(recent)-1].ID != "turn-11" {
		t.Fatalf("expected newest turn last, got %q", recent[len(recent)-1].ID)
	}

	if got := state.RecentTurns(100); len(got) != 12 {
		t.Fatalf("expected full history when window exceeds it, got %d", len(got))
	}
}

func TestSnapshotDoesNotAlias(t *testing.T) {
	state := NewState("s1", "mrpv_vfr_departure", "taxi_request", time.Now())
	state.Overrides["qnh"] = scenario.NumberValue(3008)
	state.AppendTurn(Turn{ID: "turn-0", Transcript: "original", Timestamp: time.Now()})

	snapshot, err := state.Snapshot()
	if err != nil {
		t.Fatalf("snapshot failed: %v", err)
	}

	snapshot.Turns[0].Transcript = "mutated"
	snapshot.Overrides["qnh"] = scenario.NumberValue(9999)

	if state.Turns[0].Transcript != "original" {
		t.Fatal("snapshot mutation leaked into the live turn history")
	}
	if text, _ := state.Overrides["qnh"].AsNumber(); text != 3008 {
		t.Fatal("snapshot mutation leaked into the live overrides")
	}
}

func TestEnsureAssignments(t *testing.T) {
	state := NewState("s1", "mrpv_vfr_departure", "taxi_request", time.Now())
	state.Overrides["qnh"] = scenario.NumberValue(3005)

	EnsureAssignments(state, rand.New(rand.NewSource(42)))

	squawk, ok := state.Overrides["squawk"].AsString()
	if !ok || len(squawk) != 4 || squawk[:2] != "05" {
		t.Fatalf("expected a squawk in 0500-0599, got %q", squawk)
	}
	if _, ok := state.Overrides["taxi_route"]; !ok {
		t.Fatal("expected a taxi route assignment")
	}
	if qnh, _ := state.Overrides["qnh"].AsNumber(); qnh != 3005 {
		t.Fatalf("expected student-selected qnh kept, got %v", qnh)
	}

	// A second call must keep the assignments stable.
	EnsureAssignments(state, rand.New(rand.NewSource(7)))
	if after, _ := state.Overrides["squawk"].AsString(); after != squawk {
		t.Fatalf("expected assignments stable across calls, got %q then %q", squawk, after)
	}
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	if _, err := store.Load(ctx, "missing"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	state := NewState("s1", "mrpv_vfr_departure", "taxi_request", time.Now())
	if err := store.Save(ctx, state); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	if err := store.AppendTurn(ctx, "s1", Turn{ID: "turn-0", Timestamp: time.Now()}); err != nil {
		t.Fatalf("append failed: %v", err)
	}

	loaded, err := store.Load(ctx, "s1")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(loaded.Turns) != 1 || loaded.Turns[0].ID != "turn-0" {
		t.Fatalf("unexpected turn history %+v", loaded.Turns)
	}

	// Mutating the loaded copy must not touch the stored state.
	loaded.ActivePhaseID = "takeoff_request"
	reloaded, err := store.Load(ctx, "s1")
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if reloaded.ActivePhaseID != "taxi_request" {
		t.Fatal("loaded copy aliased the stored state")
	}
}

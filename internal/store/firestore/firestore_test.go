package firestore

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"

	"gigledger/internal/core"
	"gigledger/internal/store"
	"gigledger/internal/store/storetest"
)

// Runs against the Firestore emulator when FIRESTORE_EMULATOR_HOST is set.
func TestStoreAgainstEmulator(t *testing.T) {
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}
	storetest.Run(t, func(t *testing.T) store.Store {
		s, err := New(context.Background(), Config{ProjectID: "test-" + uuid.NewString()[:8]})
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		t.Cleanup(func() { s.Close() })
		return s
	})
}

func TestListGoalsIncludesWebAppDreams(t *testing.T) {
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}
	ctx := context.Background()
	s, err := New(ctx, Config{ProjectID: "test-" + uuid.NewString()[:8]})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	// The web app stores the dream form as sent, with no created_at.
	_, _, err = s.user("u1").Collection(dreamsCollection).Add(ctx, map[string]interface{}{
		"title":        "Phone",
		"goal_amount":  20000,
		"saved_amount": 5000,
		"deadline":     "2024-12-31",
		"userId":       "u1",
	})
	if err != nil {
		t.Fatalf("add raw dream: %v", err)
	}
	if _, err := s.CreateGoal(ctx, "u1", core.Goal{Title: "Bike", Target: core.Rupees(50000)}); err != nil {
		t.Fatalf("CreateGoal: %v", err)
	}

	goals, err := s.ListGoals(ctx, "u1")
	if err != nil {
		t.Fatalf("ListGoals: %v", err)
	}
	if len(goals) != 2 || goals[0].Title != "Phone" || goals[1].Title != "Bike" {
		t.Fatalf("ListGoals = %+v, want Phone then Bike", goals)
	}

	snap, err := s.user("u1").Collection(dreamsCollection).Doc(goals[1].ID).Get(ctx)
	if err != nil {
		t.Fatalf("get created dream: %v", err)
	}
	if snap.Data()["userId"] != "u1" {
		t.Errorf("created dream userId = %v", snap.Data()["userId"])
	}
}

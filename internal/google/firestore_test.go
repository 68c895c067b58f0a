package google

import (
	"context"
	"datepoll/internal/docstore"
	"datepoll/internal/models"
	"datepoll/internal/store"
	"errors"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
)

// newEmulatorCollection connects to the Firestore emulator named by
// FIRESTORE_EMULATOR_HOST. Each test gets its own collection.
func newEmulatorCollection(t *testing.T) *FirestoreCollection {
	t.Helper()
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}

	ctx := context.Background()
	opts, err := ClientOptions(ctx, Credentials{})
	if err != nil {
		t.Fatalf("ClientOptions failed: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	c, err := NewFirestoreCollection(ctx, logger, "datepoll-test", "events-"+uuid.NewString(), opts...)
	if err != nil {
		t.Fatalf("NewFirestoreCollection failed: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestFirestoreAddGet(t *testing.T) {
	ctx := context.Background()
	c := newEmulatorCollection(t)

	from := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	to := from.Add(2 * time.Hour)
	id, err := c.Add(ctx, models.Document{
		Title:       "Trip",
		Description: "summer",
		Dates: []models.StoredDate{
			{ID: 1, From: from, To: &to},
			{ID: 2, From: from.AddDate(0, 0, 1)},
		},
		Votes: []models.VoteRecord{{ID: 1, Name: "rei", Vote: map[string]int{"1": 2, "2": 0}}},
	})
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if id == "" {
		t.Fatal("Add returned an empty id")
	}

	snap, err := c.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !snap.Exists || snap.ID != id || snap.Data.Title != "Trip" || snap.Data.Description != "summer" {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}

	dates := snap.Data.Dates
	if len(dates) != 2 {
		t.Fatalf("expected 2 dates, got %d", len(dates))
	}
	if !dates[0].From.Equal(from) || dates[0].To == nil || !dates[0].To.Equal(to) {
		t.Errorf("first date changed in storage: %+v", dates[0])
	}
	if dates[1].To != nil {
		t.Errorf("second date should have no end, got %v", *dates[1].To)
	}

	votes := snap.Data.Votes
	if len(votes) != 1 || votes[0].Name != "rei" || votes[0].Vote["1"] != 2 || votes[0].Vote["2"] != 0 || len(votes[0].Vote) != 2 {
		t.Errorf("votes changed in storage: %+v", votes)
	}
}

func TestFirestoreGetMissing(t *testing.T) {
	c := newEmulatorCollection(t)

	snap, err := c.Get(context.Background(), "missing")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if snap.Exists || snap.ID != "missing" {
		t.Errorf("unexpected snapshot for a missing document: %+v", snap)
	}
}

func TestFirestoreUpdate(t *testing.T) {
	ctx := context.Background()
	c := newEmulatorCollection(t)

	id, err := c.Add(ctx, models.Document{Title: "Old", Description: "keep", Dates: []models.StoredDate{}, Votes: []models.VoteRecord{}})
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	votes := []models.VoteRecord{{ID: 1, Name: "kai", Vote: map[string]int{"1": 1}}}
	err = c.Update(ctx, id, []docstore.Update{
		{Path: docstore.PathTitle, Value: "New"},
		{Path: docstore.PathVotes, Value: votes},
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	snap, err := c.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if snap.Data.Title != "New" || snap.Data.Description != "keep" {
		t.Errorf("unexpected document after update: %+v", snap.Data)
	}
	if len(snap.Data.Votes) != 1 || snap.Data.Votes[0].Vote["1"] != 1 {
		t.Errorf("votes not updated: %+v", snap.Data.Votes)
	}
}

func TestFirestoreUpdateMissing(t *testing.T) {
	c := newEmulatorCollection(t)

	err := c.Update(context.Background(), "missing", []docstore.Update{{Path: docstore.PathTitle, Value: "x"}})
	if !errors.Is(err, docstore.ErrNoDocument) {
		t.Errorf("expected ErrNoDocument, got %v", err)
	}
}

func TestFirestoreEmptyUpdate(t *testing.T) {
	ctx := context.Background()
	c := newEmulatorCollection(t)

	id, err := c.Add(ctx, models.Document{Title: "Same", Dates: []models.StoredDate{}, Votes: []models.VoteRecord{}})
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	if err := c.Update(ctx, id, nil); err != nil {
		t.Fatalf("empty Update failed: %v", err)
	}
	if err := c.Update(ctx, "missing", nil); !errors.Is(err, docstore.ErrNoDocument) {
		t.Errorf("expected ErrNoDocument for a missing document, got %v", err)
	}

	s := store.New(slog.New(slog.NewTextHandler(io.Discard, nil)), c, time.UTC)
	if err := s.SetEvent(ctx, store.EventUpdate{ID: id}); err != nil {
		t.Fatalf("SetEvent with only an id failed: %v", err)
	}
	if s.EventID() != id {
		t.Errorf("expected event id %q to be committed, got %q", id, s.EventID())
	}

	snap, _ := c.Get(ctx, id)
	if snap.Data.Title != "Same" {
		t.Errorf("document changed by an empty update: %+v", snap.Data)
	}
}

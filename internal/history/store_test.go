package history_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"reelforge/internal/history"
)

func openStore(t *testing.T) *history.Store {
	t.Helper()
	store, err := history.Open(filepath.Join(t.TempDir(), "state", "history.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRecordAndGet(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	entry := history.Entry{
		ID:            "r-1",
		Status:        history.StatusSucceeded,
		Turns:         2,
		Segments:      2,
		Words:         5,
		Overlays:      1,
		TotalDuration: 6.6,
		VideoBytes:    1024,
		Source:        "api",
		StartedAt:     started,
		FinishedAt:    started.Add(3 * time.Second),
	}
	if err := store.Record(ctx, entry); err != nil {
		t.Fatalf("Record: %v", err)
	}

	got, err := store.Get(ctx, "r-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Words != 5 || got.TotalDuration != 6.6 || got.Source != "api" {
		t.Fatalf("unexpected entry: %+v", got)
	}
	if got.Elapsed() != 3*time.Second {
		t.Fatalf("elapsed = %s, want 3s", got.Elapsed())
	}
}

func TestGetMissing(t *testing.T) {
	store := openStore(t)
	if _, err := store.Get(context.Background(), "nope"); !errors.Is(err, history.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRecordRequiresID(t *testing.T) {
	store := openStore(t)
	if err := store.Record(context.Background(), history.Entry{}); err == nil {
		t.Fatal("expected error for empty id")
	}
}

func TestListOrderingAndFilter(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	entries := []history.Entry{
		{ID: "a", Status: history.StatusSucceeded, StartedAt: base, FinishedAt: base, TotalDuration: 4},
		{ID: "b", Status: history.StatusFailed, ErrorClass: "synthesis", StartedAt: base.Add(time.Minute), FinishedAt: base.Add(time.Minute)},
		{ID: "c", Status: history.StatusSucceeded, StartedAt: base.Add(2 * time.Minute), FinishedAt: base.Add(2 * time.Minute), TotalDuration: 2.5},
	}
	for _, entry := range entries {
		if err := store.Record(ctx, entry); err != nil {
			t.Fatalf("Record %s: %v", entry.ID, err)
		}
	}

	all, err := store.List(ctx, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 3 || all[0].ID != "c" || all[2].ID != "a" {
		t.Fatalf("unexpected order: %+v", all)
	}

	limited, err := store.List(ctx, 1)
	if err != nil {
		t.Fatalf("List limit: %v", err)
	}
	if len(limited) != 1 || limited[0].ID != "c" {
		t.Fatalf("unexpected limited list: %+v", limited)
	}

	failed, err := store.List(ctx, 0, history.StatusFailed)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(failed) != 1 || failed[0].ErrorClass != "synthesis" {
		t.Fatalf("unexpected failed list: %+v", failed)
	}

	summary, err := store.Summarize(ctx)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if summary.Total != 3 || summary.Succeeded != 2 || summary.Failed != 1 || summary.TotalDuration != 6.5 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}

func TestPrune(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	old := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	recent := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	for id, at := range map[string]time.Time{"old": old, "recent": recent} {
		if err := store.Record(ctx, history.Entry{ID: id, StartedAt: at, FinishedAt: at}); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}
	removed, err := store.Prune(ctx, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if _, err := store.Get(ctx, "recent"); err != nil {
		t.Fatalf("recent entry should survive: %v", err)
	}
}

func TestReopenKeepsSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := history.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := store.Record(context.Background(), history.Entry{ID: "keep"}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	_ = store.Close()

	reopened, err := history.Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	if _, err := reopened.Get(context.Background(), "keep"); err != nil {
		t.Fatalf("entry lost across reopen: %v", err)
	}
}

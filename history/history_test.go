package history

import (
	"path/filepath"
	"testing"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "audit.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRecordAndByCreator(t *testing.T) {
	db := openTestDB(t)

	if err := db.Record("https://vk.com/id1", "alice"); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := db.Record("https://vk.com/id2", "alice"); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := db.Record("https://vk.com/id1", "bob"); err != nil {
		t.Fatalf("Record: %v", err)
	}

	entries, err := db.ByCreator("alice")
	if err != nil {
		t.Fatalf("ByCreator: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	for _, e := range entries {
		if e.Creator != "alice" {
			t.Errorf("Creator = %q, want alice", e.Creator)
		}
		if e.FirstRequested.IsZero() {
			t.Error("FirstRequested should be set")
		}
	}
}

// Repeat requests by the same creator keep the original record.
func TestRecordIdempotent(t *testing.T) {
	db := openTestDB(t)

	for range 3 {
		if err := db.Record("https://vk.com/id1", "alice"); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	entries, err := db.ByCreator("alice")
	if err != nil {
		t.Fatalf("ByCreator: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("entries = %d, want 1", len(entries))
	}
}

func TestByCreatorUnknown(t *testing.T) {
	db := openTestDB(t)

	entries, err := db.ByCreator("nobody")
	if err != nil {
		t.Fatalf("ByCreator: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("entries = %v, want none", entries)
	}
}

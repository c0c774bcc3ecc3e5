package index

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/take1/internal/models"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

type staticSource struct {
	notes []models.Note
}

func (s *staticSource) Notes() []models.Note { return s.notes }

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM notes`).Scan(&count); err != nil {
		t.Fatalf("notes table missing: %v", err)
	}
}

func TestOpenInMemory(t *testing.T) {
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	if err := db.UpsertNote(NoteRow{ID: "m", Checksum: "1", UpdatedAt: time.Now()}, "kept in memory"); err != nil {
		t.Fatalf("UpsertNote: %v", err)
	}
	cs, _ := db.GetChecksum("m")
	if cs != "1" {
		t.Errorf("checksum = %q, want %q", cs, "1")
	}
}

func TestUpsertAndGetChecksum(t *testing.T) {
	db := testDB(t)
	row := NoteRow{ID: "n1", Title: "Hello World", Checksum: "abc123", UpdatedAt: time.Now()}
	if err := db.UpsertNote(row, "This is a hello world note."); err != nil {
		t.Fatalf("UpsertNote: %v", err)
	}
	cs, err := db.GetChecksum("n1")
	if err != nil {
		t.Fatalf("GetChecksum: %v", err)
	}
	if cs != "abc123" {
		t.Errorf("checksum = %q, want %q", cs, "abc123")
	}
}

func TestDeleteNote(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertNote(NoteRow{ID: "del", Checksum: "x", UpdatedAt: time.Now()}, "body")

	if err := db.DeleteNote("del"); err != nil {
		t.Fatalf("DeleteNote: %v", err)
	}
	cs, _ := db.GetChecksum("del")
	if cs != "" {
		t.Errorf("deleted note still has checksum %q", cs)
	}
}

func TestGetChecksum_NotFound(t *testing.T) {
	db := testDB(t)
	cs, err := db.GetChecksum("nonexistent")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cs != "" {
		t.Errorf("expected empty checksum, got %q", cs)
	}
}

func TestSearch_Basic(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertNote(NoteRow{ID: "s", Title: "Search Me", Checksum: "1", UpdatedAt: time.Now()}, "uniqueword appears here")

	results, err := db.Search("uniqueword", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].ID != "s" {
		t.Errorf("search results = %+v, want 1 hit for s", results)
	}
}

func TestSyncTracksCollection(t *testing.T) {
	db := testDB(t)
	now := time.Now()
	notes := []models.Note{
		{ID: "a", Title: "Groceries", Content: "milk and bread", UpdatedAt: now},
		{ID: "b", Content: "# Trip\npack the tent", UpdatedAt: now},
		{Content: "unsaved, never indexed"},
	}
	if err := Sync(db, notes, testLogger()); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	sums, _ := db.AllChecksums()
	if len(sums) != 2 {
		t.Fatalf("indexed %d notes, want 2", len(sums))
	}

	results, _ := db.Search("tent", 10)
	if len(results) != 1 || results[0].Title != "Trip" {
		t.Errorf("heading title not indexed: %+v", results)
	}

	notes[1].Content = "# Trip\npack the stove"
	if err := Sync(db, notes[1:2], testLogger()); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if cs, _ := db.GetChecksum("a"); cs != "" {
		t.Errorf("removed note still indexed (checksum %q)", cs)
	}
	if cs, _ := db.GetChecksum("b"); cs == sums["b"] {
		t.Error("changed note was not re-indexed")
	}
}

func TestIndexSearchSyncsLazily(t *testing.T) {
	src := &staticSource{}
	ix := New(testDB(t), src, testLogger())

	results, err := ix.Search("anything", 10)
	if err != nil || len(results) != 0 {
		t.Fatalf("empty index: %+v, %v", results, err)
	}

	src.notes = []models.Note{{ID: "x", Title: "Recipe", Content: "100% rye flour", UpdatedAt: time.Now()}}
	results, err = ix.Search("100%", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].ID != "x" {
		t.Errorf("results = %+v", results)
	}

	results, _ = ix.Search("   ", 10)
	if results != nil {
		t.Errorf("blank query returned %+v", results)
	}
}

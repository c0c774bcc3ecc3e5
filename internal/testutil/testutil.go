// Package testutil provides shared test helpers for storage backends and
// note stores.
package testutil

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/starford/take1/internal/index"
	"github.com/starford/take1/internal/models"
	"github.com/starford/take1/internal/notestore"
	"github.com/starford/take1/internal/storage"
)

// Logger discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestDB opens a temporary SQLite gateway that is closed on cleanup.
func TestDB(t *testing.T) *storage.SQLite {
	t.Helper()
	db, err := storage.OpenSQLite(filepath.Join(t.TempDir(), "take1.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// TestDir creates a temporary data directory with an FS gateway.
func TestDir(t *testing.T) (string, *storage.FS) {
	t.Helper()
	dir := t.TempDir()
	fs, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, fs
}

// TestStore returns a loaded note store over a fresh FS gateway with the
// given settings stored.
func TestStore(t *testing.T, settings models.Settings) *notestore.Store {
	t.Helper()
	_, gw := TestDir(t)
	s := notestore.New(gw, Logger(), models.Settings{})
	if err := s.Load(); err != nil {
		t.Fatal(err)
	}
	if err := s.SetSettings(settings); err != nil {
		t.Fatal(err)
	}
	return s
}

// TestIndex returns a search index over src in a temporary database.
func TestIndex(t *testing.T, src index.Source) *index.Index {
	t.Helper()
	db, err := index.Open(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return index.New(db, src, Logger())
}

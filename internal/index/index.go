package index

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/starford/take1/internal/models"
)

// Source is the note collection the index mirrors.
type Source interface {
	Notes() []models.Note
}

// Searcher answers full-text queries over the note collection.
type Searcher interface {
	Search(query string, limit int) ([]SearchResult, error)
}

// Index keeps db in step with src. It syncs lazily before each query;
// unchanged notes are skipped by checksum.
type Index struct {
	mu     sync.Mutex
	db     *DB
	src    Source
	logger *slog.Logger
}

var _ Searcher = (*Index)(nil)

// New returns an index over src backed by db.
func New(db *DB, src Source, logger *slog.Logger) *Index {
	return &Index{db: db, src: src, logger: logger}
}

// Search syncs the index and runs query. A blank query matches nothing.
func (ix *Index) Search(query string, limit int) ([]SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	if err := Sync(ix.db, ix.src.Notes(), ix.logger); err != nil {
		return nil, err
	}
	return ix.db.Search(query, limit)
}

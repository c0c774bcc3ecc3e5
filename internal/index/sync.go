package index

import (
	"log/slog"

	"github.com/starford/take1/internal/checksum"
	"github.com/starford/take1/internal/models"
	"github.com/starford/take1/internal/preview"
)

// Sync brings the index up to date with notes:
//   - new/changed notes are upserted
//   - notes no longer in the collection are deleted from the index
func Sync(db *DB, notes []models.Note, logger *slog.Logger) error {
	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	live := make(map[string]struct{}, len(notes))
	for _, n := range notes {
		if n.ID == "" {
			continue
		}
		live[n.ID] = struct{}{}

		title := preview.DisplayTitle(n)
		cs := checksum.Sum([]byte(title + "\x00" + n.Content))
		if checksums[n.ID] == cs {
			continue
		}

		row := NoteRow{ID: n.ID, Title: title, Checksum: cs, UpdatedAt: n.UpdatedAt}
		if err := db.UpsertNote(row, n.Content); err != nil {
			logger.Warn("sync: index failed", slog.String("id", n.ID), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: indexed", slog.String("id", n.ID))
		}
	}

	// Remove stale entries.
	for id := range checksums {
		if _, ok := live[id]; !ok {
			if err := db.DeleteNote(id); err != nil {
				logger.Warn("sync: delete failed", slog.String("id", id), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("id", id))
			}
		}
	}

	return nil
}

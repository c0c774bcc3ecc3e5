// Package storage implements the persistence gateway: a string key-value
// store for application state, with file-system and SQLite backends.
package storage

import (
	"regexp"

	"github.com/starford/take1/internal/apperr"
)

// Well-known keys.
const (
	KeyNotes      = "take1-app-notes"
	KeySettings   = "take1-app-settings"
	KeyHasVisited = "take1-app-hasVisited"
)

// Gateway is the interface for durable key-value reads and writes.
type Gateway interface {
	// Get returns the value stored under key. ok is false when the key is absent.
	Get(key string) (value string, ok bool, err error)
	// Set stores value under key, replacing any previous value.
	Set(key, value string) error
	// Delete removes key. Deleting an absent key is not an error.
	Delete(key string) error
	// Close releases resources held by the backend.
	Close() error
}

var keyRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,127}$`)

func validKey(key string) error {
	if !keyRe.MatchString(key) {
		return apperr.ErrInvalidKey
	}
	return nil
}

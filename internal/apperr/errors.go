// Package apperr holds sentinel errors shared across layers.
package apperr

import "errors"

var (
	ErrNotFound   = errors.New("not found")
	ErrInvalidKey = errors.New("invalid storage key")
	ErrClosed     = errors.New("session closed")
)

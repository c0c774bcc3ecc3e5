package storage

import (
	"encoding/json"
	"fmt"
)

// LoadJSON decodes the value under key into target. It reports false, leaving
// target untouched, when the key is absent.
func LoadJSON[T any](g Gateway, key string, target *T) (bool, error) {
	raw, ok, err := g.Get(key)
	if err != nil || !ok {
		return false, err
	}
	var v T
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return false, fmt.Errorf("storage: decode %s: %w", key, err)
	}
	*target = v
	return true, nil
}

// SaveJSON encodes v and stores it under key.
func SaveJSON[T any](g Gateway, key string, v T) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("storage: encode %s: %w", key, err)
	}
	return g.Set(key, string(data))
}

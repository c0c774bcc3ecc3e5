package storage

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ChangeCallback is called when a key was modified by another process.
type ChangeCallback func(key string)

const settleDelay = 200 * time.Millisecond

// Watch starts an fsnotify watcher on the gateway's data directory and
// reports external modifications until ctx is cancelled. Writes made
// through f itself are recognised by checksum and ignored.
//
// Events are coalesced per key: editors that save through several
// create/write/rename steps produce a single callback once the file settles.
func Watch(ctx context.Context, f *FS, logger *slog.Logger, cb ChangeCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(f.root); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", f.root))

	pending := make(map[string]struct{})
	var settleTimer *time.Timer
	var settleCh <-chan time.Time

	schedule := func(key string) {
		pending[key] = struct{}{}
		if settleTimer == nil {
			settleTimer = time.NewTimer(settleDelay)
			settleCh = settleTimer.C
		} else {
			settleTimer.Reset(settleDelay)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if settleTimer != nil {
				settleTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-settleCh:
			for key := range pending {
				delete(pending, key)
				if !f.changedExternally(key, logger) {
					continue
				}
				logger.Debug("watcher: external change", slog.String("key", key))
				if cb != nil {
					cb(key)
				}
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			name := filepath.Base(ev.Name)
			if strings.HasPrefix(name, ".") || !strings.HasSuffix(name, fileExt) {
				continue
			}
			key := strings.TrimSuffix(name, fileExt)
			if validKey(key) != nil {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
				schedule(key)
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// changedExternally reads the current file for key and reports whether it
// differs from what this process last wrote.
func (f *FS) changedExternally(key string, logger *slog.Logger) bool {
	data, err := os.ReadFile(filepath.Join(f.root, key+fileExt))
	if errors.Is(err, os.ErrNotExist) {
		f.mu.Lock()
		_, known := f.written[key]
		delete(f.written, key)
		f.mu.Unlock()
		return known
	}
	if err != nil {
		logger.Warn("watcher: read failed", slog.String("key", key), slog.String("error", err.Error()))
		return false
	}
	return !f.ownWrite(key, data)
}

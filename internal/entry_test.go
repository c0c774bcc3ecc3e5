package internal

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/starford/take1/internal/models"
)

func TestOpenGatewayDrivers(t *testing.T) {
	dir := t.TempDir()
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))

	for _, sc := range []StorageConfig{
		{Driver: StorageDriverSQLite, Path: filepath.Join(dir, "take1.db")},
		{Driver: StorageDriverFS, Dir: filepath.Join(dir, "data", "nested")},
	} {
		gw, fsys, err := openGateway(sc)
		if err != nil {
			t.Fatalf("%s: %v", sc.Driver, err)
		}
		if (fsys != nil) != (sc.Driver == StorageDriverFS) {
			t.Errorf("%s: watchable = %v", sc.Driver, fsys != nil)
		}

		cfg := NewDefaultConfig()
		cfg.Storage = sc
		cfg.Revision.DefaultAPIKey = "sk-default"
		store, err := openStore(gw, cfg, logger)
		if err != nil {
			t.Fatalf("%s: open store: %v", sc.Driver, err)
		}
		if got := store.Settings().OpenAIAPIKey; got != "sk-default" {
			t.Errorf("%s: default key = %q", sc.Driver, got)
		}
		if _, saved, err := store.Save(models.Note{Content: "persisted"}); err != nil || !saved {
			t.Fatalf("%s: save: saved=%v err=%v", sc.Driver, saved, err)
		}
		if err := gw.Close(); err != nil {
			t.Errorf("%s: close: %v", sc.Driver, err)
		}
	}
}

func TestRunRequiresConfig(t *testing.T) {
	if _, err := newApplication(nil); err == nil {
		t.Fatal("expected error without config")
	}
}

// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/take1/internal/api"
	"github.com/starford/take1/internal/index"
	"github.com/starford/take1/internal/mcpserver"
	"github.com/starford/take1/internal/models"
	"github.com/starford/take1/internal/notestore"
	"github.com/starford/take1/internal/revision"
	"github.com/starford/take1/internal/session"
	"github.com/starford/take1/internal/sse"
	"github.com/starford/take1/internal/storage"
)

// Run starts the HTTP daemon with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := app.logger

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("storage_driver", cfg.Storage.Driver),
		slog.String("log_level", cfg.App.LogLevel.String()))

	gw, fsys, err := openGateway(cfg.Storage)
	if err != nil {
		return err
	}
	defer gw.Close()

	store, err := openStore(gw, cfg, logger)
	if err != nil {
		return err
	}
	client := newRevisionClient(cfg.Revision)

	// SSE broker.
	broker := sse.NewBroker(time.Second)
	defer broker.Close()

	sess := session.New(store, client, broker, logger, session.Options{
		RevisionDebounce:  cfg.Editor.RevisionDebounce,
		AutosaveDelay:     cfg.Editor.AutosaveDelay,
		HighlightInterval: cfg.Editor.HighlightInterval,
		MinSpanLength:     cfg.Editor.MinSpanLength,
		ContextChars:      cfg.Revision.ContextChars,
	})
	defer sess.Close()

	search, closeSearch, err := openSearch(store, logger)
	if err != nil {
		return err
	}
	defer closeSearch()

	apiRouter := api.NewRouter(store, sess, client, search, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	g, gCtx := errgroup.WithContext(ctx)

	// External edits only exist for the file-system driver.
	if fsys != nil {
		g.Go(func() error {
			err := storage.Watch(gCtx, fsys, logger, func(key string) {
				if err := store.Reload(key); err != nil {
					logger.Warn("reload failed", slog.String("key", key), slog.String("error", err.Error()))
					return
				}
				_ = sess.StorageChanged(key)
			})
			if err != nil {
				logger.Error("watcher stopped", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		// Flush the open note before the listener goes away.
		sess.Close()
		broker.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP serves the note collection and the revision tools over stdio.
// Logs go to stderr unless WithLogOutput says otherwise.
func RunMCP(ctx context.Context, opts ...Option) error {
	opts = append([]Option{WithLogOutput(os.Stderr)}, opts...)
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	gw, _, err := openGateway(cfg.Storage)
	if err != nil {
		return err
	}
	defer gw.Close()

	store, err := openStore(gw, cfg, app.logger)
	if err != nil {
		return err
	}

	search, closeSearch, err := openSearch(store, app.logger)
	if err != nil {
		return err
	}
	defer closeSearch()

	srv := mcpserver.New(store, newRevisionClient(cfg.Revision), search, cfg.Editor.MinSpanLength)
	app.logger.Info("MCP server starting on stdio")

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ServeStdio() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return nil
	}
}

func newApplication(opts []Option) (*application, error) {
	app := &application{logOutput: os.Stdout}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if app.logger == nil {
		app.logger = slog.New(slog.NewJSONHandler(app.logOutput, &slog.HandlerOptions{
			Level: app.config.App.LogLevel,
		}))
		slog.SetDefault(app.logger)
	}
	return app, nil
}

// openGateway opens the configured backend. The *storage.FS result is nil
// for the SQLite driver.
func openGateway(cfg StorageConfig) (storage.Gateway, *storage.FS, error) {
	switch cfg.Driver {
	case StorageDriverFS:
		if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("create data dir: %w", err)
		}
		fsys, err := storage.NewFS(cfg.Dir)
		if err != nil {
			return nil, nil, fmt.Errorf("init storage: %w", err)
		}
		return fsys, fsys, nil
	default:
		db, err := storage.OpenSQLite(cfg.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("init storage: %w", err)
		}
		return db, nil, nil
	}
}

func openStore(gw storage.Gateway, cfg *Config, logger *slog.Logger) (*notestore.Store, error) {
	store := notestore.New(gw, logger, models.Settings{
		OpenAIAPIKey: cfg.Revision.DefaultAPIKey,
	})
	if err := store.Load(); err != nil {
		return nil, fmt.Errorf("load notes: %w", err)
	}
	return store, nil
}

// openSearch builds an in-memory search index over the store. It is
// rebuilt from the notes on first query, so nothing is persisted.
func openSearch(store *notestore.Store, logger *slog.Logger) (*index.Index, func(), error) {
	db, err := index.Open(":memory:")
	if err != nil {
		return nil, nil, fmt.Errorf("init search index: %w", err)
	}
	return index.New(db, store, logger), func() { _ = db.Close() }, nil
}

func newRevisionClient(cfg RevisionConfig) *revision.Client {
	return revision.NewClient(
		revision.WithEndpoint(cfg.Endpoint),
		revision.WithModel(cfg.Model),
		revision.WithTemperature(cfg.Temperature),
		revision.WithMaxTokens(cfg.MaxTokens),
		revision.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
	)
}

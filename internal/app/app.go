package app

import (
	"context"

	"github.com/rs/zerolog"

	"donation-summary/internal/config"
	"donation-summary/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

// SummarizeOptions configure one reconciliation pass.
type SummarizeOptions struct {
	Directory  string
	Workers    int
	OutputJSON string
	ShowFailed bool
}

// ExportOptions configure the export command.
type ExportOptions struct {
	Directory string
	CSVPath   string
	PNGPath   string
	Top       int
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Limit int
}

package cli

import (
	"fmt"
	"log/slog"

	"github.com/eshaffer321/recurring-ledger/internal/application/tracker"
	"github.com/eshaffer321/recurring-ledger/internal/infrastructure/config"
	"github.com/eshaffer321/recurring-ledger/internal/infrastructure/logging"
	"github.com/eshaffer321/recurring-ledger/internal/infrastructure/storage"
)

// App bundles a tracker with the storage it owns.
type App struct {
	Config  *config.Config
	Logger  *slog.Logger
	Tracker *tracker.Tracker

	store *storage.Storage
}

// NewApp loads configuration, opens the database and wires the tracker.
// system labels log lines (api, recalculate, detect).
func NewApp(configPath, system string, verbose bool) (*App, error) {
	cfg := config.LoadOrEnvWithPath(configPath)

	loggingCfg := cfg.Observability.Logging
	if verbose {
		loggingCfg.Level = "debug"
	}
	logger := logging.NewLoggerWithSystem(loggingCfg, system)

	loc, err := cfg.Tracker.Location()
	if err != nil {
		return nil, err
	}

	store, err := storage.NewStorage(cfg.Storage.DatabasePath, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", cfg.Storage.DatabasePath, err)
	}

	t := tracker.New(store, tracker.SystemClock(loc), tracker.Config{
		Detector:        cfg.DetectorConfig(),
		Matcher:         cfg.MatcherConfig(),
		DefaultCurrency: cfg.Tracker.DefaultCurrency,
		MaxMonthsAhead:  cfg.Tracker.MaxMonthsAhead,
	}, logger)

	return &App{Config: cfg, Logger: logger, Tracker: t, store: store}, nil
}

// Close releases the database.
func (a *App) Close() error {
	return a.store.Close()
}

package cli

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/eshaffer321/recurring-ledger/internal/api"
	"github.com/eshaffer321/recurring-ledger/internal/domain/detector"
)

// ServeFlags holds the CLI flags for the serve command.
type ServeFlags struct {
	CommonFlags
	Port int
}

// ParseServeFlags parses command line flags for the serve command.
func ParseServeFlags(args []string) (*ServeFlags, error) {
	flags := &ServeFlags{}
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	flags.register(fs)
	fs.IntVar(&flags.Port, "port", 0, "Port to listen on (0 = configured port)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return flags, nil
}

// RunServe runs the API server.
func RunServe(flags *ServeFlags) error {
	app, err := NewApp(flags.ConfigPath, "api", flags.Verbose)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()

	cfg := app.Config
	logger := app.Logger

	apiCfg := api.Config{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Mode:           cfg.Server.Mode,
		Detection: detector.Options{
			MinOccurrences: cfg.Detection.MinOccurrences,
			LookbackMonths: cfg.Detection.LookbackMonths,
		},
	}
	if flags.Port > 0 {
		apiCfg.Port = flags.Port
	}

	server := api.NewServer(apiCfg, app.Tracker, logger)

	// Handle graceful shutdown
	done := make(chan struct{})
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		logger.Info("received shutdown signal")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Error("server shutdown error", slog.Any("error", err))
		}
		close(done)
	}()

	// Start server (blocks until shutdown)
	if err := server.Start(); err != nil {
		return err
	}

	<-done
	logger.Info("server stopped")
	return nil
}

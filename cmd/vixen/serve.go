package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/vixen"
	"github.com/jpalmerr/vixen/config"
	"github.com/jpalmerr/vixen/dashboard"
	"github.com/jpalmerr/vixen/internal/server"
	"github.com/jpalmerr/vixen/internal/store"
)

const (
	shutdownTimeout = 10 * time.Second
)

// newLogger creates a JSON logger for CLI use.
func newLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

// loadConfig reads the config file, or returns defaults when path is empty.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Parse(nil)
	}
	return config.Load(path)
}

// serveCmd starts the relay endpoint.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the relay endpoint",
	Long: `Start the vixen JSONP relay.

The server will:
  - Load configuration from the specified YAML file (optional)
  - Serve /poll/{channel}, /signal/{channel}, /api/messages, /api/sse
    and the dashboard UI on the configured port
  - Start any configured pollers and log what they receive

The server runs until interrupted (Ctrl+C) or receives SIGTERM.

Example:
  vixen serve
  vixen serve -c config.yaml --port 9090`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("config", "c", "", "path to config file")
	serveCmd.Flags().IntP("port", "p", 0, "override the configured port")
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := newLogger()

	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := loadConfig(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if port, _ := cmd.Flags().GetInt("port"); port != 0 {
		cfg.Server.Port = port
	}

	logger.Info("config loaded", "pollers", len(cfg.Pollers))

	// set up context with signal handling - cancel on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := server.NewServer(
		store.NewMemoryStore(cfg.Server.Capacity),
		server.Config{
			Port:  cfg.Server.Port,
			Param: cfg.Server.Param,
			Title: cfg.Server.Title,
		},
		dashboard.Assets,
		logger,
	)
	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	var pollers *pollerSet
	if len(cfg.Pollers) > 0 {
		pollers, err = startPollers(cfg, logger, func(location string, args []any) {
			logger.Info("poll delivered", "location", location, "args", args)
		})
		if err != nil {
			return err
		}
	}

	<-ctx.Done()
	logger.Info("shutting down")

	if pollers != nil {
		pollers.close(logger)
	}
	logger.Info("shutdown complete")
	return nil
}

// pollerSet is a client running configured pollers over its own transport.
type pollerSet struct {
	client    *vixen.Client
	transport *vixen.HTTPTransport
}

// startPollers builds a client from cfg and starts every configured poller.
func startPollers(cfg *config.Config, logger *slog.Logger, deliver func(location string, args []any)) (*pollerSet, error) {
	transport, err := config.BuildTransport(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create transport: %w", err)
	}

	client, err := vixen.New(config.ClientOptions(cfg, transport, logger)...)
	if err != nil {
		_ = transport.Close()
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	set := &pollerSet{client: client, transport: transport}
	if err := config.StartPollers(client, cfg, deliver); err != nil {
		set.close(logger)
		return nil, fmt.Errorf("failed to start pollers: %w", err)
	}

	for _, p := range client.Pollers() {
		logger.Info("poller started",
			"location", p.Location,
			"id", p.ID,
			"interval", p.Interval.String(),
		)
	}
	return set, nil
}

// close stops the pollers and waits for in-flight requests.
func (s *pollerSet) close(logger *slog.Logger) {
	_ = s.client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.transport.Shutdown(ctx); err != nil {
		logger.Warn("shutdown timed out",
			"timeout", shutdownTimeout.String(),
			"action", "forcing exit",
		)
	}
}

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/vixen/config"
)

// delivery is one poll response as printed by the poll command.
type delivery struct {
	Location string `json:"location"`
	Args     []any  `json:"args"`
}

// pollCmd runs the configured pollers and prints what they receive.
var pollCmd = &cobra.Command{
	Use:   "poll",
	Short: "Run the configured pollers",
	Long: `Run every poller in the config file and print each delivery to stdout
as one JSON object per line:

  {"location":"http://localhost:8080/poll/chat","args":[{"channel":"chat","data":"hi"}]}

Runs until interrupted, or until --count deliveries have been printed.

Example:
  vixen poll -c config.yaml
  vixen poll -c config.yaml --count 1`,
	RunE: runPoll,
}

func init() {
	rootCmd.AddCommand(pollCmd)

	pollCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	pollCmd.Flags().Int("count", 0, "exit after this many deliveries (0 runs until interrupted)")
	_ = pollCmd.MarkFlagRequired("config")
}

func runPoll(cmd *cobra.Command, args []string) error {
	logger := newLogger()

	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if len(cfg.Pollers) == 0 {
		return errors.New("no pollers configured")
	}
	count, _ := cmd.Flags().GetInt("count")

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	enc := json.NewEncoder(cmd.OutOrStdout())
	var mu sync.Mutex
	printed := 0

	pollers, err := startPollers(cfg, logger, func(location string, args []any) {
		mu.Lock()
		defer mu.Unlock()
		if count > 0 && printed >= count {
			return
		}
		if err := enc.Encode(delivery{Location: location, Args: args}); err != nil {
			logger.Error("failed to print delivery", "location", location, "error", err)
			return
		}
		printed++
		if count > 0 && printed >= count {
			cancel()
		}
	})
	if err != nil {
		return err
	}

	<-ctx.Done()
	pollers.close(logger)
	return nil
}

package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/vixen"
)

// signalCmd sends a single signal.
var signalCmd = &cobra.Command{
	Use:   "signal <location> <data>",
	Short: "Send one signal",
	Long: `Send data to a location as <location>?<param>=<data> and wait for the
request to complete. The response body is ignored; network failures and
non-2xx responses are reported.

The payload is appended verbatim unless --escape is given.

Example:
  vixen signal http://localhost:8080/signal/chat hello
  vixen signal http://localhost:8080/signal/typing '{"typing":true}' --escape`,
	Args: cobra.ExactArgs(2),
	RunE: runSignal,
}

func init() {
	rootCmd.AddCommand(signalCmd)

	signalCmd.Flags().String("param", vixen.DefaultParam, "query parameter carrying the payload")
	signalCmd.Flags().Duration("timeout", 10*time.Second, "request timeout")
	signalCmd.Flags().Bool("escape", false, "query-escape the payload")
}

func runSignal(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	location, data := args[0], args[1]

	param, _ := cmd.Flags().GetString("param")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	escape, _ := cmd.Flags().GetBool("escape")

	var mu sync.Mutex
	var sendErr error
	transport, err := vixen.NewHTTPTransport(vixen.HTTPTransportConfig{
		Timeout: timeout,
		Logger:  logger,
		OnError: func(_ vixen.Request, err error) {
			mu.Lock()
			defer mu.Unlock()
			sendErr = err
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create transport: %w", err)
	}

	opts := []vixen.Option{vixen.WithTransport(transport), vixen.WithLogger(logger)}
	if escape {
		opts = append(opts, vixen.WithPayloadEscaping())
	}
	client, err := vixen.New(opts...)
	if err != nil {
		_ = transport.Close()
		return fmt.Errorf("failed to create client: %w", err)
	}
	defer client.Close()

	if err := client.Signal(location, data, vixen.WithParam(param)); err != nil {
		_ = transport.Close()
		return err
	}

	// the transport enforces the request timeout; this only guards a stuck body
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout+time.Second)
	defer cancel()
	if err := transport.Shutdown(ctx); err != nil {
		return fmt.Errorf("signal %s: %w", location, err)
	}

	mu.Lock()
	defer mu.Unlock()
	if sendErr != nil {
		return fmt.Errorf("signal %s: %w", location, sendErr)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "signal sent to %s\n", location)
	return nil
}

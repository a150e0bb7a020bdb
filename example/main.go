package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jpalmerr/vixen"
	"github.com/jpalmerr/vixen/dashboard"
	"github.com/jpalmerr/vixen/internal/server"
	"github.com/jpalmerr/vixen/internal/store"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	// set up context with signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// the relay stands in for a PHP endpoint answering JSONP polls
	relay := server.NewServer(store.NewMemoryStore(0), server.Config{Port: 8080}, dashboard.Assets, logger)
	if err := relay.Start(ctx); err != nil {
		logger.Error("failed to start relay", "error", err)
		os.Exit(1)
	}

	client, err := vixen.New(vixen.WithLogger(logger), vixen.WithPayloadEscaping())
	if err != nil {
		logger.Error("failed to create client", "error", err)
		os.Exit(1)
	}
	defer client.Close()

	base := "http://localhost:8080"

	// poll the chat channel every second
	err = client.Init(base+"/poll/chat", func(args ...any) {
		if len(args) == 0 || args[0] == nil {
			return
		}
		if msg, ok := args[0].(map[string]any); ok {
			fmt.Printf("  <- %v (received %v)\n", msg["data"], msg["received_at"])
		}
	}, vixen.WithInterval(time.Second))
	if err != nil {
		logger.Error("failed to start poller", "error", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("  ╔═══════════════════════════════════════════════════════╗")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   Vixen Demo                                          ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   Open http://localhost:8080 in your browser          ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   • signals /signal/chat every 3s                     ║")
	fmt.Println("  ║   • polls /poll/chat every 1s                         ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   Press Ctrl+C to stop                                ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ╚═══════════════════════════════════════════════════════╝")
	fmt.Println()

	ticker := time.NewTicker(3 * time.Second)
	defer ticker.Stop()

	for n := 1; ; n++ {
		select {
		case <-ctx.Done():
			client.Destroy(base + "/poll/chat")
			return
		case <-ticker.C:
			payload := fmt.Sprintf(`{"n":%d,"text":"hello #%d"}`, n, n)
			fmt.Printf("  -> %s\n", payload)
			if err := client.Signal(base+"/signal/chat", payload); err != nil {
				logger.Warn("signal failed", "error", err)
			}
		}
	}
}

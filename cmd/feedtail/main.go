// feedtail connects to an analyzer's opportunity feed and prints each
// opportunity to the console.
// Usage: go run ./cmd/feedtail --url ws://localhost:8080/ws/opportunities
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rickgao/arbwatch/internal/alert"
	"github.com/rickgao/arbwatch/internal/model"
)

func main() {
	url := flag.String("url", "ws://localhost:8080/ws/opportunities", "opportunity feed URL")
	verbose := flag.Bool("verbose", false, "print full opportunity JSON")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal")
		cancel()
	}()

	dialCtx, dialCancel := context.WithTimeout(ctx, 10*time.Second)
	client, err := alert.Dial(dialCtx, *url, logger)
	dialCancel()
	if err != nil {
		logger.Error("failed to connect to feed", "url", *url, "error", err)
		os.Exit(1)
	}
	defer client.Close()

	logger.Info("streaming opportunities - press Ctrl+C to stop", "url", *url)

	var count int
	for {
		select {
		case <-ctx.Done():
			logger.Info("shutdown complete", "received", count)
			return
		case err := <-client.Errors():
			logger.Error("feed ended", "error", err, "received", count)
			return
		case opp, ok := <-client.Messages():
			if !ok {
				logger.Info("feed closed", "received", count)
				return
			}
			count++
			printOpportunity(opp, *verbose)
		}
	}
}

func printOpportunity(opp model.Opportunity, verbose bool) {
	if verbose {
		data, _ := json.MarshalIndent(opp, "", "  ")
		fmt.Printf("[OPPORTUNITY] %s\n", data)
		return
	}
	fmt.Printf("[OPPORTUNITY] %s %s margin=%v\n",
		opp.DetectedAt.Format(time.RFC3339), opp, opp.Margin())
}

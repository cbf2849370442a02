package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/IQAIcom/mcp-near-agent/internal/api"
	"github.com/IQAIcom/mcp-near-agent/internal/config"
	"github.com/IQAIcom/mcp-near-agent/internal/explorer"
	"github.com/IQAIcom/mcp-near-agent/internal/near"
	"github.com/IQAIcom/mcp-near-agent/internal/sampling"
	"github.com/IQAIcom/mcp-near-agent/internal/scheduler"
	"github.com/IQAIcom/mcp-near-agent/internal/tools"
	"github.com/IQAIcom/mcp-near-agent/internal/watcher"

	"github.com/joho/godotenv"
)

func main() {
	fmt.Println("🤖 Starting NEAR Agent...")

	// 1. Load configuration
	_ = godotenv.Load()
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("❌ Invalid configuration: %v", err)
	}
	if cfg.OpenAIAPIKey == "" {
		log.Fatal("❌ OPENAI_API_KEY is required")
	}

	// 2. Configure logger
	var logLevel slog.Level
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	slog.Info("Configuration loaded",
		"account_id", cfg.AccountID,
		"network", cfg.NetworkID,
		"rpc_endpoint", cfg.RPCEndpoint(),
		"log_level", cfg.LogLevel,
	)

	// 3. Build collaborators
	provider := near.NewProvider(cfg.AccountID, cfg.PrivateKey, cfg.RPCEndpoint())
	lookup := explorer.NewClient(cfg.NetworkID)
	sampler := sampling.NewOpenAISampler(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL)
	sched := scheduler.New()

	// 4. Wire the watcher pipeline
	poller := watcher.NewBlockPoller(lookup)
	processor := watcher.NewEventProcessor(cfg.GasLimit)
	eventWatcher := watcher.New(provider, sched, poller, processor, cfg)

	// 5. Tool surface and HTTP API
	toolService := tools.NewService(eventWatcher, sampler)
	server := api.NewServer(cfg.APIPort, eventWatcher, toolService)
	if err := server.Start(); err != nil {
		log.Fatalf("❌ Failed to start API server: %v", err)
	}

	slog.Info("Agent ready",
		"api_port", cfg.APIPort,
		"default_schedule", cfg.DefaultCronExpression,
	)

	// 6. Wait for interrupt
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	slog.Warn("Interrupt received, shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Error shutting down API server", "error", err)
	}
	eventWatcher.Cleanup()
	sched.StopAll()

	slog.Info("Agent stopped")
}

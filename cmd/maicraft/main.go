// Maicraft is an autonomous Minecraft agent. It connects to the game
// bridge over MCP, keeps a live world model, reacts to game events, and
// serves the task WebSocket / status API.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/maicraft/maicraft-go/pkg/agent"
	"github.com/maicraft/maicraft-go/pkg/config"
	"github.com/maicraft/maicraft-go/pkg/version"
)

// agentStopTimeout bounds how long shutdown waits for the poll loops and
// the combat/hurt pipelines to drain.
const agentStopTimeout = 10 * time.Second

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	configPath := flag.String("config",
		getEnv("MAICRAFT_CONFIG", "./config.toml"),
		"Path to the TOML configuration file")
	flag.Parse()

	// Load .env from the config directory; secrets like llm.api_key can be
	// referenced from the environment instead of the TOML file.
	envPath := filepath.Join(filepath.Dir(*configPath), ".env")
	if err := godotenv.Load(envPath); err != nil {
		slog.Debug("No .env file, continuing with existing environment",
			"path", envPath, "error", err)
	} else {
		slog.Info("Loaded environment", "path", envPath)
	}

	ctx := context.Background()

	// 1. Load configuration (creates or migrates the file when needed)
	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "path", *configPath, "error", err)
		os.Exit(1)
	}
	slog.SetDefault(cfg.Logging.BuildLogger())

	slog.Info("Starting maicraft",
		"version", version.Full(),
		"config", *configPath,
		"username", cfg.Bot.Username)

	// 2. Build the agent (wires every subsystem, no I/O yet)
	bot := agent.New(cfg)

	// 3. Start the agent: bridge connection, poll loops, event pipeline
	if err := bot.Start(ctx); err != nil {
		slog.Error("Failed to start agent", "error", err)
		os.Exit(1)
	}

	// 4. Start the HTTP/WebSocket server (non-blocking)
	errCh := make(chan error, 1)
	if server := bot.Server(); server != nil {
		go func() {
			addr := cfg.API.Addr()
			slog.Info("API server listening", "addr", addr)
			if err := server.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("API server error", "error", err)
				errCh <- err
			}
		}()
	} else {
		slog.Info("API server disabled")
	}

	slog.Info("Maicraft started successfully", "goal", cfg.Bot.Goal)

	// 5. Wait for shutdown signal or server error
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	select {
	case sig := <-sigCh:
		slog.Info("Shutdown signal received", "signal", sig)
	case err := <-errCh:
		slog.Error("Server error triggered shutdown", "error", err)
	}

	// 6. Graceful shutdown: agent first so nothing writes to a dead bridge,
	// then the HTTP server with its own timeout budget
	stopCtx, stopCancel := context.WithTimeout(ctx, agentStopTimeout)
	defer stopCancel()

	done := make(chan struct{})
	go func() {
		bot.Stop()
		close(done)
	}()

	select {
	case <-done:
		slog.Info("Agent stopped gracefully")
	case <-stopCtx.Done():
		slog.Warn("Agent shutdown timeout exceeded")
	}

	if server := bot.Server(); server != nil {
		httpShutdownCtx, httpCancel := context.WithTimeout(ctx, 5*time.Second)
		defer httpCancel()
		if err := server.Shutdown(httpShutdownCtx); err != nil {
			slog.Error("API server shutdown error", "error", err)
		}
	}

	slog.Info("Shutdown complete")
}

package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hkaya/cortex-scheduler/internal/core"
)

const (
	defaultConfigPath = "config/cortex.yaml"
	configEnv         = "CORTEX_CONFIG"
)

func main() {
	configPath := flag.String("config", configFromEnv(), "Path to configuration file (env "+configEnv+")")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	logLevel := slog.LevelInfo
	if *debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})))

	os.Exit(run(*configPath, *debug))
}

func configFromEnv() string {
	if p := os.Getenv(configEnv); p != "" {
		return p
	}
	return defaultConfigPath
}

// run returns the process exit code. The HTTP API and MQTT are started by
// Cortex.Run: /readiness and the control plane both need the scheduler,
// which only exists once the config has been applied.
func run(configPath string, debug bool) int {
	slog.Info("starting cortex service", "config", configPath, "debug", debug)

	cortex, err := core.NewCortex(configPath)
	if err != nil {
		slog.Error("failed to create cortex service", "error", err)
		return 1
	}

	// SIGINT/SIGTERM cancel ctx; an MQTT exit command halts the scheduler.
	// Either way Run returns and the same shutdown path follows.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	code := 0
	if err := cortex.Run(ctx); err != nil {
		slog.Error("service error", "error", err)
		code = 1
	} else if ctx.Err() != nil {
		slog.Info("received shutdown signal")
	} else {
		slog.Info("scheduler exited on request")
	}

	shutdownTimeout := cortex.ShutdownTimeout()
	slog.Info("shutting down gracefully", "timeout", shutdownTimeout)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// The view on screen finishes before the scheduler reports done
	if err := cortex.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown failed", "error", err)
		return 1
	}

	slog.Info("cortex service stopped")
	return code
}

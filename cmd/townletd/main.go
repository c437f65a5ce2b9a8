// Command townletd runs the town simulation from the terminal: it seeds the
// roster, starts the tick scheduler and logs status until interrupted. It
// exposes no network surface; the townlet package is the integration point
// for hosts that need one.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/townlet-ai/townlet"
	"github.com/townlet-ai/townlet/config"
	"github.com/townlet-ai/townlet/core"
	"github.com/townlet-ai/townlet/logging"
	"github.com/townlet-ai/townlet/oracle/openai"
	"github.com/townlet-ai/townlet/store/sqlite"
)

func main() {
	var (
		configPath  = flag.String("config", "", "optional YAML config overlay")
		dbPath      = flag.String("db", "", "SQLite database path (empty: in-memory stores)")
		baseURL     = flag.String("base-url", "", "OpenAI-compatible API base URL")
		model       = flag.String("model", "", "default completion model override")
		interval    = flag.Duration("interval", 0, "tick interval override (e.g. 30s)")
		tickTimeout = flag.Duration("tick-timeout", 2*time.Minute, "per-tick oracle timeout (0: none)")
		logFormat   = flag.String("log-format", "text", "log format: text or json")
		statusEvery = flag.Duration("status-every", 30*time.Second, "status log interval")
	)
	flag.Parse()

	logger := logging.NewSlogLogger(logging.LogLevelInfo, *logFormat, false).
		WithComponent("townletd")

	if err := run(*configPath, *dbPath, *baseURL, *model, *interval, *tickTimeout, *statusEvery, logger); err != nil {
		logger.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run(configPath, dbPath, baseURL, model string, interval, tickTimeout, statusEvery time.Duration, logger *logging.TownLogger) error {
	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if interval > 0 {
		cfg.TickInterval = interval
	}

	oracle := buildOracle(baseURL, model, logger)

	optFns := []func(o *townlet.Options){
		func(o *townlet.Options) {
			o.Config = cfg
			o.Oracle = oracle
			o.Logger = logger
			o.TickTimeout = tickTimeout
		},
	}

	if dbPath != "" {
		db, err := sqlite.Open(dbPath)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer db.Close()
		optFns = append(optFns, func(o *townlet.Options) {
			o.AgentStore = db.Agents()
			o.EventStore = db.Events()
			o.MemoryStore = db.Memories()
		})
		logger.Info("using SQLite store", "path", dbPath)
	}

	town := townlet.New(optFns...)
	defer town.Close()

	ctx := context.Background()
	if err := town.Seed(ctx); err != nil {
		return err
	}
	town.Start()
	logger.Info("simulation running", "residents", len(cfg.Agents), "tick_interval", cfg.TickInterval)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	ticker := time.NewTicker(statusEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			logStatus(ctx, town, logger)
		case sig := <-sigCh:
			logger.Info("shutting down", "signal", sig.String())
			town.Pause()
			return nil
		}
	}
}

// buildOracle picks the completion backend from the environment. DashScope's
// OpenAI-compatible gateway is tried first (the preset models are Qwen),
// then OpenAI proper. Without a credential the town runs on fallback events.
func buildOracle(baseURL, model string, logger *logging.TownLogger) core.Oracle {
	key := os.Getenv("DASHSCOPE_API_KEY")
	url := baseURL
	if key != "" && url == "" {
		url = "https://dashscope.aliyuncs.com/compatible-mode/v1"
	}
	if key == "" {
		key = os.Getenv("OPENAI_API_KEY")
	}
	if key == "" {
		logger.Warn("no oracle credential configured; ticks will use the fallback event")
		return nil
	}
	return openai.NewOracle(func(o *openai.Options) {
		o.APIKey = key
		o.BaseURL = url
		if model != "" {
			o.Model = model
		}
	})
}

func logStatus(ctx context.Context, town *townlet.Town, logger *logging.TownLogger) {
	info, err := town.Status(ctx)
	if err != nil {
		logger.Warn("status check failed", "error", err)
		return
	}
	logger.Info("town status", "state", info.Status, "agents", info.Agents, "events", info.Events)
}

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/lysyi3m/intel-comb/app/api"
	"github.com/lysyi3m/intel-comb/app/cfg"
	"github.com/lysyi3m/intel-comb/app/config"
	"github.com/lysyi3m/intel-comb/app/database"
	"github.com/lysyi3m/intel-comb/app/dedup"
	"github.com/lysyi3m/intel-comb/app/llm"
	"github.com/lysyi3m/intel-comb/app/metrics"
	"github.com/lysyi3m/intel-comb/app/rules"
	"github.com/lysyi3m/intel-comb/app/tasks"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// help was shown
		return
	}

	setupLogger(appCfg.Debug)

	slog.Info("Starting Intel Comb", "version", appCfg.Version)

	policy, err := config.NewLoader(appCfg.PolicyFile).Load()
	if err != nil {
		slog.Error("Failed to load alert policy", "file", appCfg.PolicyFile, "error", err)
		os.Exit(1)
	}
	slog.Info("Alert policy loaded", "file", appCfg.PolicyFile)

	db, err := database.Open(appCfg.DBPath)
	if err != nil {
		slog.Error("Failed to open database", "path", appCfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database ready", "path", appCfg.DBPath, "migration_version", version, "dirty", dirty)

	itemRepo := database.NewItemRepository(db)
	alertRepo := database.NewAlertRepository(db)
	ledgerRepo := database.NewLedgerRepository(db)
	cooldownRepo := database.NewCooldownRepository(db)
	statsRepo := database.NewStatsRepository(db, policy.Engagement.Weights)

	dedupPolicy := dedup.NewPolicy(ledgerRepo, cooldownRepo, dedup.SettingsFrom(policy.Dedup))

	var extractor rules.Extractor
	provider, err := llm.NewProvider(llm.Config{
		Provider:          appCfg.LLMProvider,
		Model:             appCfg.LLMModel,
		APIKey:            appCfg.LLMAPIKey,
		BaseURL:           appCfg.LLMAPIURL,
		Timeout:           time.Duration(appCfg.LLMTimeout) * time.Second,
		RequestsPerMinute: appCfg.LLMRequestsPerMinute,
		MaxRetries:        appCfg.LLMMaxRetries,
	})
	if err != nil {
		slog.Warn("LLM provider unavailable, observation rules disabled", "provider", appCfg.LLMProvider, "error", err)
	} else {
		extractor = rules.NewLLMExtractor(provider)
		slog.Info("LLM provider configured", "provider", provider.Name())
	}

	ruleSet := rules.DefaultRules(policy, dedupPolicy, extractor)
	for _, r := range ruleSet {
		slog.Debug("Rule enabled", "rule", r.Name())
	}
	dispatcher := rules.NewDispatcher(appCfg.WorkerCount, ruleSet...)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	if err := metrics.Register(registry); err != nil {
		slog.Error("Failed to register metrics", "error", err)
		os.Exit(1)
	}

	sweeper := tasks.NewSweeper(itemRepo, alertRepo, statsRepo, statsRepo, dispatcher, appCfg.BatchSize)

	slog.Info("Starting background scheduler", "interval_seconds", appCfg.SchedulerInterval, "rules", len(ruleSet))
	scheduler := tasks.NewScheduler(sweeper)
	scheduler.Start()
	defer scheduler.Stop()

	handler := api.NewHandler(itemRepo, alertRepo, ledgerRepo, cooldownRepo, scheduler, sweeper, registry, ruleSet)
	server := api.NewServer(handler, appCfg.APIAccessKey)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped")
	}
}

func setupLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/haasonsaas/claudebridge/internal/auth"
	"github.com/haasonsaas/claudebridge/internal/claude"
	"github.com/haasonsaas/claudebridge/internal/config"
	"github.com/haasonsaas/claudebridge/internal/gateway"
	"github.com/haasonsaas/claudebridge/internal/observability"
	"github.com/haasonsaas/claudebridge/internal/registry"
	"github.com/haasonsaas/claudebridge/internal/sessions"
	"github.com/haasonsaas/claudebridge/internal/web"
)

// =============================================================================
// Serve Command Handler
// =============================================================================

// runServe implements the serve command logic.
// It handles configuration loading, component wiring, and graceful shutdown.
func runServe(ctx context.Context, configPath string, debug bool) error {
	// Load and validate configuration. A missing file is fine; defaults apply.
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logCfg := observability.LogConfig{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	}
	if debug {
		logCfg.Level = "debug"
	}
	logger := observability.NewLogger(logCfg)

	logger.Info(ctx, "starting claudebridge gateway",
		"version", version,
		"commit", commit,
		"config", configPath,
		"backend", cfg.Claude.Runtime,
		"debug", debug,
	)

	// Metrics register against the default registerer so /metrics serves
	// both gateway families and the standard Go process collectors.
	metrics := observability.NewMetrics()

	serviceVersion := cfg.Tracing.ServiceVersion
	if serviceVersion == "" {
		serviceVersion = version
	}
	tracer, flushTraces := observability.NewTracer(observability.TraceConfig{
		ServiceName:    cfg.Tracing.ServiceName,
		ServiceVersion: serviceVersion,
		Environment:    cfg.Tracing.Environment,
		Endpoint:       cfg.Tracing.Endpoint,
		SamplingRate:   cfg.Tracing.SamplingRate,
		Attributes:     cfg.Tracing.Attributes,
		EnableInsecure: cfg.Tracing.Insecure,
	})

	resolver := auth.NewResolver(auth.ResolverOptions{
		APIKeyConfigured: cfg.Auth.APIKey != "",
		Logger:           logger,
	})

	runtimeCfg := claude.Config{
		Backend:      cfg.Claude.Runtime,
		Command:      cfg.Claude.Command,
		DefaultModel: cfg.Claude.DefaultModel,
	}
	if cfg.Claude.Runtime == config.RuntimeSDK {
		// The SDK backend authenticates at construction; the CLI backend
		// receives the overlay per request instead.
		runtimeCfg.APIKey = resolver.EnvOverlay()["ANTHROPIC_API_KEY"]
	}
	runtime, err := claude.NewRuntime(runtimeCfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize claude runtime: %w", err)
	}

	store := sessions.NewStore(cfg.Sessions.TTL, cfg.Sessions.CleanupInterval, cfg.Sessions.MaxMessages)
	reaper := sessions.NewReaper(store, logger, metrics)
	catalog := registry.NewCatalog()

	service := gateway.NewService(gateway.Config{
		Runtime:        runtime,
		Sessions:       store,
		Catalog:        catalog,
		Resolver:       resolver,
		Logger:         logger,
		Metrics:        metrics,
		Tracer:         tracer,
		Backend:        cfg.Claude.Runtime,
		DefaultModel:   cfg.Claude.DefaultModel,
		MaxTurns:       cfg.Claude.MaxTurns,
		RequestTimeout: cfg.Server.RequestTimeout,
	})

	handler := web.NewHandler(&web.Config{
		Gateway:   service,
		Sessions:  store,
		Catalog:   catalog,
		Resolver:  resolver,
		APIKey:    cfg.Auth.APIKey,
		Gatherer:  prometheus.DefaultGatherer,
		Logger:    logger,
		Metrics:   metrics,
		Tracer:    tracer,
		Version:   version,
		StartTime: time.Now(),
	})

	server, err := web.NewServer(fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port), handler.Mount(), logger)
	if err != nil {
		return fmt.Errorf("failed to start http server: %w", err)
	}

	// Create a context that cancels on shutdown signals.
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	watcher := auth.NewWatcher(resolver, logger)
	if err := watcher.Start(ctx); err != nil {
		logger.Warn(ctx, "credentials watcher unavailable", "error", err)
	}
	defer func() { _ = watcher.Close() }()

	go reaper.Run(ctx)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Serve()
	}()

	state := resolver.State()
	logger.Info(ctx, "claudebridge gateway started",
		"addr", server.Addr(),
		"auth_method", string(state.Method),
		"authenticated", state.Authenticated,
		"api_key_required", cfg.Auth.APIKey != "",
		"default_model", cfg.Claude.DefaultModel,
	)

	// Wait for shutdown signal or server error.
	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}
	logger.Info(context.Background(), "shutdown signal received, initiating graceful shutdown")

	// Create a timeout context for graceful shutdown.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	if err := flushTraces(shutdownCtx); err != nil {
		logger.Warn(context.Background(), "trace flush failed", "error", err)
	}

	logger.Info(context.Background(), "claudebridge gateway stopped gracefully")
	return nil
}

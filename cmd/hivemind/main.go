// Command hivemind runs the agent orchestration core: the heartbeat
// scheduler, the cognition cycle engine and the operator API.
package main

import (
	"context"
	crand "crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/swarmworks/hivemind/internal/adapter/anthropic"
	hmhttp "github.com/swarmworks/hivemind/internal/adapter/http"
	"github.com/swarmworks/hivemind/internal/adapter/nats"
	"github.com/swarmworks/hivemind/internal/adapter/openai"
	"github.com/swarmworks/hivemind/internal/adapter/postgres"
	"github.com/swarmworks/hivemind/internal/adapter/ristretto"
	"github.com/swarmworks/hivemind/internal/adapter/ws"
	"github.com/swarmworks/hivemind/internal/config"
	"github.com/swarmworks/hivemind/internal/logger"
	"github.com/swarmworks/hivemind/internal/port/provider"
	"github.com/swarmworks/hivemind/internal/secrets"
	"github.com/swarmworks/hivemind/internal/service"
	"github.com/swarmworks/hivemind/internal/telemetry"
)

func main() {
	if err := run(); err != nil {
		slog.Error("hivemind exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	slog.SetDefault(logger.New(cfg.Logging))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := telemetry.Init(ctx, cfg.Logging.Service, cfg.Otel.Endpoint)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	metrics, err := telemetry.NewMetrics()
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}

	bus, err := nats.Connect(ctx, cfg.NATS.URL)
	if err != nil {
		return fmt.Errorf("nats: %w", err)
	}
	defer bus.Close()

	cache, err := ristretto.New(cfg.Cache.MaxSizeMB * 1024 * 1024)
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	defer cache.Close()

	masterKey := cfg.Secrets.MasterKey
	if masterKey == "" {
		raw := make([]byte, 32)
		if _, err := crand.Read(raw); err != nil {
			return fmt.Errorf("generate master key: %w", err)
		}
		masterKey = base64.StdEncoding.EncodeToString(raw)
		slog.Warn("no master key configured, using an ephemeral key; sealed agent credentials will not survive a restart")
	}
	sealer, err := secrets.NewSealer(masterKey)
	if err != nil {
		return fmt.Errorf("sealer: %w", err)
	}

	// Storage adapters share one pool.
	store := postgres.NewStore(pool)
	ledger := postgres.NewLedger(pool)
	memStore := postgres.NewMemoryStore(pool)
	socialStore := postgres.NewSocialStore(pool)
	eventStore := postgres.NewEventStore(pool)

	clients := map[string]provider.Client{
		openai.Name:    openai.NewClient(cfg.Providers.OpenAI.BaseURL),
		anthropic.Name: anthropic.NewClient(cfg.Providers.Anthropic.BaseURL),
	}
	embedder := openai.NewEmbedder(
		cfg.Providers.Embeddings.BaseURL,
		cfg.Providers.Embeddings.APIKey,
		cfg.Providers.Embeddings.Model,
	)

	hub := ws.NewHub()

	assembler := service.NewAssembler(socialStore, eventStore, memStore, embedder, cache, cfg.Context)
	gateway := service.NewGateway(clients, sealer, cache, metrics, service.GatewayConfig{
		PlatformKeys: map[string]string{
			openai.Name:    cfg.Providers.OpenAI.APIKey,
			anthropic.Name: cfg.Providers.Anthropic.APIKey,
		},
		CredentialTTL:      cfg.Secrets.CredentialCacheTTL,
		Timeout:            cfg.Cycle.ProviderTimeout,
		BreakerMaxFailures: cfg.Breaker.MaxFailures,
		BreakerTimeout:     cfg.Breaker.Timeout,
	})

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	cycles := service.NewCycleService(
		store, ledger, socialStore, memStore, embedder,
		assembler, gateway, bus, hub, metrics,
		cfg.Cycle, cfg.Economy, cfg.Entropy, cfg.Heartbeat.TickInterval, rng,
	)
	heartbeat := service.NewHeartbeatService(store, ledger, eventStore, cycles, bus, hub, metrics, cfg.Heartbeat)

	go heartbeat.Run(ctx)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(hmhttp.Logger)
	r.Use(middleware.Recoverer)
	r.Use(hmhttp.CORS(cfg.Server.CORSOrigin))
	r.Use(telemetry.HTTPMiddleware(cfg.Logging.Service))

	handlers := hmhttp.NewHandlers(store, socialStore, eventStore, cycles, heartbeat)
	hmhttp.MountRoutes(r, handlers, hub)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("hivemind listening", "port", cfg.Server.Port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
	case <-ctx.Done():
		slog.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown", "error", err)
	}
	if err := shutdownTelemetry(shutdownCtx); err != nil {
		slog.Error("telemetry shutdown", "error", err)
	}

	return nil
}

// Server runs the Pulsewatch ingestion and dashboard HTTP API.
// Requires DATABASE_URL; REDIS_ADDR enables the shared presence store
// (falls back to in-process memory without it).
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pulsewatch/internal/config"
	"pulsewatch/internal/db"
	eventrepo "pulsewatch/internal/event/repository"
	"pulsewatch/internal/presence"
	projectrepo "pulsewatch/internal/project/repository"
	"pulsewatch/internal/retention"
	"pulsewatch/internal/security"
	"pulsewatch/internal/server"
	"pulsewatch/internal/stream"
	"pulsewatch/internal/telemetry/otel"
	visitrepo "pulsewatch/internal/visit/repository"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("config", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var providers *otel.Providers
	if cfg.OTLPEndpoint != "" {
		providers, err = otel.NewProviders(ctx, cfg.OTLPEndpoint, "pulsewatch-server", cfg.OTLPInsecure)
		if err != nil {
			logger.Error("otel init", "err", err)
			os.Exit(1)
		}
		providers.SetGlobal()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = providers.Shutdown(shutdownCtx)
		}()
	}

	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	sqlDB, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		logger.Error("db open", "err", err)
		os.Exit(1)
	}
	defer sqlDB.Close()

	var store presence.Store
	if cfg.RedisAddr != "" {
		redisStore, err := presence.NewRedisStore(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			logger.Error("redis connect", "err", err)
			os.Exit(1)
		}
		defer redisStore.Close()
		store = redisStore
	} else {
		logger.Warn("REDIS_ADDR not set; using in-process presence store (single-node only)")
		store = presence.NewMemoryStore()
	}

	var tokens *security.TokenProvider
	if cfg.JWTPublicKey != "" {
		pub, err := security.ParsePublicKey(cfg.JWTPublicKey)
		if err != nil {
			logger.Error("jwt public key", "err", err)
			os.Exit(1)
		}
		tokens = security.NewTokenProvider(nil, pub, cfg.JWTIssuer, cfg.JWTAudience, cfg.AccessTTL())
	} else {
		logger.Warn("JWT_PUBLIC_KEY not set; dashboard routes will reject all requests")
	}

	var fanouts []stream.Producer
	if brokers := cfg.KafkaBrokersList(); len(brokers) > 0 {
		producer, err := stream.NewKafkaProducer(brokers, cfg.EventsKafkaTopic)
		if err != nil {
			logger.Error("kafka producer", "err", err)
			os.Exit(1)
		}
		defer producer.Close()
		fanouts = append(fanouts, producer)
		logger.Info("event fan-out to kafka enabled", "topic", cfg.EventsKafkaTopic)
	}
	if providers != nil {
		fanouts = append(fanouts, otel.NewEventEmitter(providers.LoggerProvider))
	}

	projects := projectrepo.NewPostgresRepository(sqlDB)
	events := eventrepo.NewPostgresRepository(sqlDB)
	visits := visitrepo.NewPostgresRepository(sqlDB)
	sweeper := retention.NewSweeper(projects, visits, logger)

	handler := server.Handler(server.Deps{
		Projects:      projects,
		Presence:      store,
		Events:        events,
		Visits:        visits,
		Tokens:        tokens,
		Sweeper:       sweeper,
		CleanupSecret: cfg.CleanupSecret,
		Fanouts:       fanouts,
		Pinger:        sqlDB,
		Logger:        logger,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("http server listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("serve", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down http server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", "err", err)
	}
	// Give in-flight async event emits time to land before producers close.
	time.Sleep(stream.ShutdownDrainDuration)
	logger.Info("http server stopped")
}

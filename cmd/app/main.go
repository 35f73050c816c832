// File: cmd/app/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"flash-code/internal/config"
	"flash-code/internal/infra/api"
	"flash-code/internal/infra/api/apiv1"
	pg "flash-code/internal/infra/db/postgres"
	"flash-code/internal/infra/identity"
	"flash-code/internal/infra/logging"
	"flash-code/internal/infra/metrics"
	red "flash-code/internal/infra/redis"
	"flash-code/internal/infra/sched"
	"flash-code/internal/usecase"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, relaxed cookies)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Info().Msg("[DEV MODE] Enabled")
	}

	// ---- Metrics ----
	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	defer redisClient.Close()
	rateLimiter := red.NewRateLimiter(redisClient)

	// ---- Identity provider ----
	identityProvider, err := identity.NewGoTrueProvider(cfg.Identity.BaseURL, cfg.Identity.ServiceKey, cfg.Identity.Timeout)
	if err != nil {
		log.Fatalf("identity: %v", err)
	}

	// ---- Repositories ----
	codeRepo := pg.NewActivationCodeRepo(pool)
	profileRepo := pg.NewProfileRepo(pool)
	txManager := pg.NewTxManager(pool)

	// ---- Use cases ----
	registryUC := usecase.NewRegistryUseCase(codeRepo, profileRepo, cfg.Registry.MaxGenerateBatch, logger)
	authUC := usecase.NewAuthUseCase(codeRepo, profileRepo, identityProvider, txManager, logger)

	// ---- HTTP API ----
	sessions := apiv1.NewSessionManager(cfg.Auth.JWTSecret, cfg.Auth.SecureCookie && !cfg.Runtime.Dev, cfg.Auth.CookieDomain, cfg.Auth.SessionTTL)
	v1 := apiv1.NewServer(authUC, registryUC, sessions, rateLimiter, cfg.RateLimit.AuthAttempts, cfg.RateLimit.AuthWindow, logger)
	srv := api.NewServer(v1, logger)
	go func() {
		if err := srv.Start(cfg.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server stopped")
			cancel()
		}
	}()

	// ---- Metrics server ----
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsServer := &http.Server{Addr: fmt.Sprintf(":%d", cfg.Server.MetricsPort), Handler: metricsMux}
	go func() {
		logger.Info().Int("port", cfg.Server.MetricsPort).Msg("metrics server listening")
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics server stopped")
		}
	}()

	// ---- Pool stats worker ----
	worker := sched.NewPoolStatsWorker(15*time.Second, pool, logger)
	go func() { _ = worker.Run(ctx) }()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigc:
		logger.Info().Msg("shutdown requested")
	case <-ctx.Done():
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown failed")
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("metrics shutdown failed")
	}
}

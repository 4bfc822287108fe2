package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/plateful/tenantcore/internal/adapter/gateway"
	"github.com/plateful/tenantcore/internal/adapter/metrics"
	redisrepo "github.com/plateful/tenantcore/internal/adapter/repository/redis"
	"github.com/plateful/tenantcore/internal/domain"
	"github.com/plateful/tenantcore/internal/pkg/config"
	"github.com/plateful/tenantcore/internal/pkg/logger"
)

func main() {
	cfg, err := config.LoadGateway()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel)
	slog.SetDefault(log)

	m := metrics.NewGatewayMetrics()

	// --- Admin and metrics server ---
	adminMux := http.NewServeMux()
	adminMux.Handle("/metrics", promhttp.Handler())
	adminMux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	adminServer := &http.Server{Addr: cfg.AdminAddr, Handler: adminMux}
	go func() {
		log.Info("starting admin & metrics server", "addr", adminServer.Addr)
		if err := adminServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("admin & metrics server failed", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Backend topology and health probing ---
	registry, err := gateway.NewServiceRegistry(cfg.ServiceBackends)
	if err != nil {
		log.Error("invalid backend topology", "error", err)
		os.Exit(1)
	}
	log.Info("loaded backend topology", "services", registry.Services())

	prober := gateway.NewProber(registry, log, m,
		cfg.ProbeInterval, cfg.ProbeTimeout, cfg.FailThreshold, cfg.RiseThreshold)
	go prober.Run(ctx)

	// --- Per-tenant rate limiting, plan-aware via the shared cache ---
	var cache domain.TenantCache
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Warn("could not connect to redis, rate limits default to BASIC", "error", err)
		}
		cache = redisrepo.NewTenantCache(redisClient, log, cfg.TenantCacheTTL)
	}
	limiter := gateway.NewTenantLimiter(cache, log, cfg.RateLimitBurst)

	// --- Gateway server ---
	router := gateway.NewRouter(registry, limiter, log, m, cfg.JWTSecret)
	server := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: cfg.ProxyTimeout,
		IdleTimeout:  15 * time.Second,
	}

	go func() {
		log.Info("starting gateway server", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("gateway server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down servers...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := adminServer.Shutdown(shutdownCtx); err != nil {
		log.Error("admin server shutdown failed", "error", err)
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("gateway server shutdown failed", "error", err)
	}

	log.Info("servers shut down gracefully")
}

package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/plateful/tenantcore/internal/adapter/api"
	"github.com/plateful/tenantcore/internal/adapter/api/handler"
	"github.com/plateful/tenantcore/internal/adapter/api/middleware"
	"github.com/plateful/tenantcore/internal/adapter/audit"
	"github.com/plateful/tenantcore/internal/adapter/metrics"
	"github.com/plateful/tenantcore/internal/adapter/repository/postgres"
	redisrepo "github.com/plateful/tenantcore/internal/adapter/repository/redis"
	"github.com/plateful/tenantcore/internal/domain"
	"github.com/plateful/tenantcore/internal/pkg/config"
	"github.com/plateful/tenantcore/internal/pkg/logger"
	"github.com/plateful/tenantcore/internal/usecase"

	_ "github.com/lib/pq" // postgres driver
)

func main() {
	cfg, err := config.LoadRegistry()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel)
	slog.SetDefault(log)

	m := metrics.NewRegistryMetrics()

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

	// --- Graceful shutdown context ---
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Database and Redis connections ---
	db, err := sql.Open("postgres", cfg.PostgresURL)
	if err != nil {
		log.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	var cache domain.TenantCache = noopCache{}
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Warn("could not connect to redis, tenant cache degraded to pass-through", "error", err)
		}
		cache = redisrepo.NewTenantCache(redisClient, log, cfg.TenantCacheTTL)
	}

	// --- Audit trail ---
	var auditPub domain.AuditPublisher
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPub := audit.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaAuditTopic, log)
		defer kafkaPub.Close()
		auditPub = kafkaPub
	} else {
		auditPub = audit.NewStdoutPublisher(log)
	}

	// --- Repositories and provisioner ---
	tenantRepo, err := postgres.NewTenantRepository(ctx, db, log)
	if err != nil {
		log.Error("failed to initialize tenant registry table", "error", err)
		os.Exit(1)
	}
	provisioner := postgres.NewProvisioner(db, log)

	// --- Use cases ---
	registerUC := usecase.NewRegisterTenantUseCase(
		tenantRepo, provisioner, cache, auditPub, log, m,
		cfg.ProvisionTimeout, cfg.AllowDuplicateEmail,
	)
	lifecycleUC := usecase.NewTenantLifecycleUseCase(tenantRepo, provisioner, cache, auditPub, log, m)

	// --- Stale-PENDING reaper ---
	reaper := usecase.NewPendingReaper(
		tenantRepo, provisioner, auditPub, log, m,
		cfg.PendingTTL, cfg.ReapInterval, cfg.ReapMaxRetries,
	)
	go reaper.Run(ctx)

	// --- HTTP server ---
	guard := middleware.NewGuard(lifecycleUC, auditPub, log, m)
	tenantHandler := handler.NewTenantHandler(registerUC, lifecycleUC, log)
	router := api.NewRouter(cfg.JWTSecret, log, guard, tenantHandler)

	server := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 60 * time.Second, // provisioning is synchronous
		IdleTimeout:  15 * time.Second,
	}

	go func() {
		log.Info("starting tenant registry server", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("registry server failed", "error", err)
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
		log.Error("registry server shutdown failed", "error", err)
	}

	log.Info("servers shut down gracefully")
}

// noopCache keeps the cache optional: every read misses and every write
// succeeds, so the registry remains fully functional without Redis.
type noopCache struct{}

func (noopCache) Get(ctx context.Context, id uuid.UUID) (*domain.Tenant, error) { return nil, nil }
func (noopCache) Set(ctx context.Context, t *domain.Tenant) error               { return nil }
func (noopCache) Invalidate(ctx context.Context, id uuid.UUID) error            { return nil }

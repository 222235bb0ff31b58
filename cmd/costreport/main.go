package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	cfhttp "github.com/Strob0t/costreport/internal/adapter/http"
	"github.com/Strob0t/costreport/internal/adapter/natskv"
	cfotel "github.com/Strob0t/costreport/internal/adapter/otel"
	"github.com/Strob0t/costreport/internal/adapter/postgres"
	"github.com/Strob0t/costreport/internal/adapter/ristretto"
	"github.com/Strob0t/costreport/internal/adapter/tiered"
	"github.com/Strob0t/costreport/internal/config"
	"github.com/Strob0t/costreport/internal/logger"
	"github.com/Strob0t/costreport/internal/middleware"
	"github.com/Strob0t/costreport/internal/port/cache"
	"github.com/Strob0t/costreport/internal/service"
	"github.com/Strob0t/costreport/internal/workpool"
)

const version = "0.1.0"

func main() {
	if len(os.Args) > 1 {
		if err := runCommand(os.Args[1], os.Args[2:]); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
		return
	}

	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log, closeLog := logger.New(cfg.Logging)
	defer closeLog.Close()
	slog.SetDefault(log)

	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Logging.Level,
		"pg_max_conns", cfg.Postgres.MaxConns,
		"cache", cfg.Cache.Enabled,
	)

	ctx := context.Background()

	// --- Infrastructure ---

	shutdownOTEL, err := cfotel.Init(ctx, cfg.OTEL)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTEL(sctx); err != nil {
			slog.Warn("otel shutdown", "error", err)
		}
	}()

	// PostgreSQL
	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()
	slog.Info("postgres connected")

	if cfg.Report.MigrateOnStart {
		if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		slog.Info("migrations applied")
	}

	// --- Services ---

	db := postgres.OpenDB(pool)
	defer func() { _ = db.Close() }()

	reports := service.NewReportService(postgres.NewSource(db))
	reports.SetPool(workpool.NewPool(min(cfg.Report.MaxConcurrent, int(cfg.Postgres.MaxConns))))

	metrics, err := cfotel.NewMetrics()
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	reports.SetMetrics(metrics)

	if cfg.Cache.Enabled {
		reportCache, closeCache, err := newCache(ctx, cfg)
		if err != nil {
			return fmt.Errorf("cache: %w", err)
		}
		defer closeCache()
		reports.SetCache(reportCache, cfg.Report.CacheTTL)
	}

	// --- HTTP ---

	r := newRouter(cfg, &cfhttp.Handlers{Reports: reports, DB: pool, Version: version})

	addr := ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       120 * time.Second,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "error", err)
		}
	}()

	<-done
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}

func newRouter(cfg *config.Config, h *cfhttp.Handlers) chi.Router {
	r := chi.NewRouter()

	r.Use(cfotel.HTTPMiddleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID)
	r.Use(cfhttp.SecurityHeaders)
	r.Use(cfhttp.CORS(cfg.Server.CORSOrigin))
	r.Use(cfhttp.Logger)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(cfg.Server.WriteTimeout))

	cfhttp.MountRoutes(r, h, cfg.Report.DefaultTenant)
	return r
}

// newCache builds the in-process L1 cache, backed by a shared NATS KV L2
// when a NATS URL is configured.
func newCache(ctx context.Context, cfg *config.Config) (cache.Cache, func(), error) {
	l1, err := ristretto.New(cfg.Cache.L1MaxSizeMB << 20)
	if err != nil {
		return nil, nil, err
	}
	if cfg.NATS.URL == "" {
		slog.Info("report cache ready", "tiers", "l1")
		return l1, l1.Close, nil
	}

	l2, nc, err := natskv.Connect(ctx, cfg.NATS.URL, cfg.Cache.L2Bucket, cfg.Cache.L2TTL)
	if err != nil {
		l1.Close()
		return nil, nil, err
	}
	slog.Info("report cache ready", "tiers", "l1+l2", "bucket", cfg.Cache.L2Bucket)

	closeFn := func() {
		l1.Close()
		if err := nc.Drain(); err != nil {
			slog.Warn("nats drain", "error", err)
		}
	}
	return tiered.New(l1, l2, cfg.Report.CacheTTL), closeFn, nil
}

package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bsebcampus/campus-api/internal/auth"
	"github.com/bsebcampus/campus-api/internal/config"
	"github.com/bsebcampus/campus-api/internal/db"
	httpx "github.com/bsebcampus/campus-api/internal/http"
	"github.com/bsebcampus/campus-api/internal/http/middlewares"
	"github.com/bsebcampus/campus-api/internal/observability"
	"github.com/bsebcampus/campus-api/internal/queue/redisclient"
	"github.com/bsebcampus/campus-api/internal/storage"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	cfg := config.Load()

	log := observability.NewLogger(cfg.Env)

	if cfg.JWTSecret == "" {
		log.Error("JWT_SECRET is required")
		os.Exit(1)
	}

	startCtx, cancel := config.WithTimeout(30 * time.Second)
	defer cancel()

	// tracing is optional; without an endpoint spans stay local no-ops
	if cfg.OTLPEndpoint != "" {
		shutdown, err := observability.InitTracer(startCtx, "campus-api", cfg.OTLPEndpoint)

		if err != nil {
			log.Error("tracer init failed", "err", err)
			os.Exit(1)
		}

		defer func() {
			ctx, cancel := config.WithTimeout(5 * time.Second)
			defer cancel()
			_ = shutdown(ctx)
		}()
	}

	if err := db.RunMigrations(startCtx, cfg.DBURL); err != nil {
		log.Error("migrations failed", "err", err)
		os.Exit(1)
	}

	// the pool connects on first use and is shared by every request after
	lazyPool := db.NewLazy(cfg.DBURL)
	defer lazyPool.Close()

	pool, err := lazyPool.Get(startCtx)

	if err != nil {
		log.Error("db connect failed", "err", err)
		os.Exit(1)
	}

	if err := db.EnsureAdminUser(startCtx, pool, cfg); err != nil {
		log.Error("admin seed failed", "err", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	prom := observability.NewProm(registry)

	jwtManager := auth.NewManager(cfg.JWTSecret, cfg.SessionTTL(), cfg.VerifyTokenTTL())

	// shared limiter when redis is configured, per-process otherwise
	var limiter middlewares.Limiter

	if cfg.RedisAddr != "" {
		rdb := redisclient.New(redisclient.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()

		if err := rdb.Ping(startCtx); err != nil {
			log.Error("redis connect failed", "err", err)
			os.Exit(1)
		}

		limiter = middlewares.NewRedisRateLimiter(rdb.Raw(), cfg.AuthRateLimit, cfg.AuthRateWindow, "ratelimit:auth")
	}

	var files storage.Service

	if cfg.StorageBucket != "" {
		s3Svc, err := storage.NewS3Service(startCtx, storage.S3Config{
			Bucket:   cfg.StorageBucket,
			Region:   cfg.StorageRegion,
			Endpoint: cfg.StorageEndpoint,
		})

		if err != nil {
			log.Error("storage init failed", "err", err)
			os.Exit(1)
		}

		files = s3Svc
	}

	router := httpx.NewRouter(httpx.Deps{
		Cfg:         cfg,
		Log:         log,
		Pool:        pool,
		Prom:        prom,
		Registry:    registry,
		JWT:         jwtManager,
		Files:       files,
		AuthLimiter: limiter,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "port", cfg.Port, "env", cfg.Env)
		err := srv.ListenAndServe()

		if err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info("server shutting down")

	shutdownCh := make(chan struct{})

	go func() {
		defer close(shutdownCh)

		ctx, cancel := config.WithTimeout(10 * time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("graceful shutdown failed", "err", err)
			return
		}
	}()

	select {
	case <-shutdownCh:
		log.Info("shutdown complete")

	case <-time.After(12 * time.Second):
		log.Error("shutdown timed out")
	}
}

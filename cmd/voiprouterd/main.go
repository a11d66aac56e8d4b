package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"voip-router/internal/config"
	"voip-router/internal/db"
	"voip-router/internal/fsxml"
	"voip-router/internal/httpapi"
	"voip-router/internal/store"
)

func main() {
	cfgPath := flag.String("config", "/etc/voiprouterd.yaml", "config file path (empty for env only)")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	setupLogging(cfg)

	ctx := context.Background()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		slog.Error("db connect", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	var repo store.Repository = store.NewPostgres(pool)
	checks := map[string]httpapi.Pinger{"db": pool}

	if cfg.CacheEnabled() {
		client, err := db.NewRedisClient(ctx, cfg)
		if err != nil {
			slog.Warn("tenant cache disabled", "error", err)
		} else {
			defer client.Close()
			repo = store.NewTenantCache(repo, client, cfg.TenantCacheTTL)
			checks["redis"] = httpapi.RedisPinger{Client: client}
		}
	}

	svc := fsxml.NewService(repo, fsxml.Options{
		CountryCode:      cfg.CountryCode,
		PublicContext:    cfg.PublicContext,
		EmergencyNumbers: cfg.EmergencyNumbers,
		DefaultTimezone:  cfg.DefaultTimezone,
	})

	limiter := httpapi.NewIPRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst, 10*time.Minute)
	defer limiter.Stop()

	router := httpapi.NewRouter(cfg, httpapi.Deps{
		XML:     svc,
		Trunks:  pool,
		Checks:  checks,
		Limiter: limiter,
	})

	srv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("voip router listening", "addr", cfg.ListenAddr, "version", httpapi.Version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("listen and serve", "error", err)
			os.Exit(1)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown", "error", err)
	}
}

func setupLogging(cfg *config.Config) {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

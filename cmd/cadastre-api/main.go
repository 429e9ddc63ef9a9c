package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cadastre/internal/api"
	"cadastre/internal/atlas"
	"cadastre/internal/auth"
	"cadastre/internal/config"
	"cadastre/internal/db"
	"cadastre/internal/metrics"
	"cadastre/internal/sheets"
	"cadastre/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadAPIFromEnv()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	pool, err := db.ConnectRetry(ctx, cfg.DatabaseURL, 5, logger)
	if err != nil {
		logger.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	archive := store.New(pool)
	if err := archive.EnsureSchema(ctx); err != nil {
		logger.Error("schema init failed", "err", err)
		os.Exit(1)
	}

	m := metrics.New()
	authn := auth.NewAuthenticator(auth.Options{
		TTL:       cfg.SessionTTL,
		HashCost:  cfg.PINHashCost,
		PerMinute: cfg.LoginPerMinute,
		Burst:     cfg.LoginBurst,
	}, logger)
	svc := atlas.NewService(atlas.Options{
		Archive:        archive,
		Source:         sheets.NewClient(cfg.Sources.Spreadsheet, nil),
		Schema:         cfg.Sources.Columns,
		LotterySetting: cfg.Sources.LotterySetting,
		BootstrapFetch: cfg.BootstrapFetch,
		Auth:           authn,
		Metrics:        m,
	}, logger)

	// Serve 503s until the first load lands; the refresh loop keeps trying.
	if err := svc.Reload(ctx); err != nil {
		logger.Warn("initial snapshot load failed", "err", err)
	}
	go svc.Run(ctx, cfg.RefreshEvery)

	server := api.New(cfg, logger, authn, svc, m)
	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	logger.Info("cadastre api listening", "addr", cfg.Addr, "refresh_every", cfg.RefreshEvery.String())
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server failed", "err", err)
		os.Exit(1)
	}
}

package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cadastre/internal/atlas"
	"cadastre/internal/config"
	"cadastre/internal/db"
	"cadastre/internal/metrics"
	"cadastre/internal/sheets"
	"cadastre/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadWorkerFromEnv()
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
	svc := atlas.NewService(atlas.Options{
		Archive:        archive,
		Source:         sheets.NewClient(cfg.Sources.Spreadsheet, nil),
		Schema:         cfg.Sources.Columns,
		LotterySetting: cfg.Sources.LotterySetting,
		Metrics:        m,
	}, logger)

	if cfg.MetricsAddr != "" && !cfg.RunOnce {
		mux := http.NewServeMux()
		mux.Handle("/metrics", m.Handler())
		metricsServer := &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = metricsServer.Shutdown(shutdownCtx)
		}()
		go func() {
			logger.Info("worker metrics listening", "addr", cfg.MetricsAddr)
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics server failed", "err", err)
			}
		}()
	}

	if cfg.RunOnce {
		if _, err := svc.Ingest(ctx); err != nil {
			logger.Error("ingest failed", "err", err)
			os.Exit(1)
		}
		logger.Info("worker run-once completed")
		return
	}

	if _, err := svc.Ingest(ctx); err != nil {
		logger.Error("initial ingest failed", "err", err)
	}

	ticker := time.NewTicker(cfg.FetchEvery)
	defer ticker.Stop()

	logger.Info("worker started", "fetch_every", cfg.FetchEvery.String(), "spreadsheet", cfg.Sources.Spreadsheet.ID)
	for {
		select {
		case <-ctx.Done():
			logger.Info("worker shutdown")
			return
		case <-ticker.C:
			snap, err := svc.Ingest(ctx)
			if err != nil {
				logger.Error("ingest failed", "err", err)
				continue
			}
			logger.Info("ingest complete", "row_set_id", snap.ID.String(), "digest", snap.Digest)
		}
	}
}

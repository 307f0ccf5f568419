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

	"golang.org/x/sync/errgroup"

	"github.com/neexbeast/skycast/internal/api"
	"github.com/neexbeast/skycast/internal/config"
	"github.com/neexbeast/skycast/internal/metrics"
	"github.com/neexbeast/skycast/internal/provider"
	"github.com/neexbeast/skycast/internal/storage"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	if err := run(log); err != nil {
		log.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

func run(log *slog.Logger) error {
	cfg, err := config.LoadServer()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if cfg.OpenWeatherAPIKey == "" {
		log.Warn("OPENWEATHER_API_KEY not set; weather lookups will fail with a configuration error")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect to PostgreSQL.
	pool, err := storage.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer pool.Close()

	// Run migrations.
	if err := storage.Migrate(ctx, cfg.DatabaseURL, log); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	// Wire dependencies.
	owm := provider.NewOpenWeatherClient(cfg.OpenWeatherAPIKey,
		provider.WithBaseURL(cfg.OpenWeatherURL),
		provider.WithTimeout(cfg.UpstreamTimeout),
		provider.WithRetry(cfg.UpstreamMaxTries, 0),
		provider.WithRateLimit(cfg.UpstreamRPS, 10),
	)
	adapter := provider.NewAdapter(owm, log)
	repo := storage.NewFavoritesRepository(pool)
	collector := metrics.NewCollector()
	handlers := api.NewHandlers(adapter, repo, collector, log)

	router := api.NewRouter(handlers, cfg.BearerToken, map[string]api.Pinger{"db": pool}, collector, log)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				log.Error("server goroutine panicked", "recover", r)
				err = fmt.Errorf("server panicked: %v", r)
			}
		}()
		log.Info("server starting", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listening: %w", err)
		}
		return nil
	})

	// Graceful shutdown on SIGINT / SIGTERM or when the listener fails.
	g.Go(func() error {
		<-gCtx.Done()
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	log.Info("server shut down cleanly")
	return nil
}

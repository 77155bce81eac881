// cmd/api/main.go
package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"bookstore/internal/cache"
	"bookstore/internal/catalog"
	"bookstore/internal/config"
	"bookstore/internal/fetch"
	"bookstore/internal/notify"
	"bookstore/internal/orders"
	"bookstore/internal/storage"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	store := storage.NewPostgres(db)
	if err := store.Migrate(ctx); err != nil {
		logger.Error("failed to migrate schema", "error", err)
		os.Exit(1)
	}

	var (
		c cache.Cache     = cache.Noop{}
		n notify.Notifier = notify.Noop{}
	)
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer client.Close()
		c = cache.NewRedis(client)
		n = notify.NewRedis(client, logger)
	}

	catalogSvc := catalog.NewService(store, n, logger)
	orderSvc := orders.NewService(store, n, logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	catalog.NewHandler(catalogSvc, c).Register(r)
	orders.NewHandler(orderSvc, c).Register(r)

	if cfg.FetchURL != "" {
		fetcher := fetch.NewFetcher(cfg.FetchURL, cfg.FetchInterval)
		job := fetch.NewJob(fetcher, catalogSvc, cfg.FetchInterval, cfg.FetchRetries, logger)
		fetch.NewHandler(job).Register(r)
		go job.Run(ctx)
	}

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	go func() {
		logger.Info("starting bookstore API", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}

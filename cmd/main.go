package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"teamtodo/internal/cache"
	"teamtodo/internal/config"
	"teamtodo/internal/controller"
	"teamtodo/internal/database"
	"teamtodo/internal/dispatch"
	"teamtodo/internal/processor"
	"teamtodo/internal/repository"
	"teamtodo/internal/routes"
	"teamtodo/internal/worker"
	"teamtodo/pkg/logger"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		logger.Error(ctx, "Config load failed", "error", err)
		os.Exit(1)
	}

	db, err := database.Open(ctx, cfg)
	if err != nil {
		logger.Error(ctx, "Database not available; exiting", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		logger.Error(ctx, "Schema migration failed", "error", err)
		os.Exit(1)
	}

	rdb, err := cache.Connect(ctx, cfg)
	if err != nil {
		logger.Error(ctx, "Redis not available; exiting", "error", err)
		os.Exit(1)
	}
	defer rdb.Close()
	listCache := cache.New(rdb, cfg.CacheTTL, cfg.DedupTTL)

	writer := dispatch.NewWriter(cfg)
	defer writer.Close()
	dispatch.EnsureTopic(ctx, cfg)

	repo := repository.New(db)
	procs := processor.NewStore(db)
	dispatcher := dispatch.New(writer, listCache, procs)

	workerCtx, stopWorker := context.WithCancel(ctx)
	defer stopWorker()
	go worker.New(cfg, dispatcher, listCache).Run(workerCtx)

	ctrl := controller.New(repo, procs, listCache, dispatcher, db, rdb)
	server := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      routes.Router(ctrl, cfg.JWTSecret),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	go func() {
		logger.Info(ctx, "HTTP server listening", "port", cfg.HTTPPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error(ctx, "Server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info(ctx, "Shutting down server")
	stopWorker()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "Server shutdown error", "error", err)
	}
	logger.Info(ctx, "Server stopped")
}

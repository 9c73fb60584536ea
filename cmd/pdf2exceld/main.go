package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/docupull/pdf2excel/internal/app"
	"github.com/docupull/pdf2excel/internal/common"
	"github.com/docupull/pdf2excel/internal/server"
	"github.com/docupull/pdf2excel/internal/upload"
)

func main() {
	cfg := common.LoadConfig()
	logger := app.NewLogger(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	uploads, err := upload.NewStore(upload.Options{
		Dir:       cfg.Upload.Dir,
		MaxSizeMB: cfg.Upload.MaxSizeMB,
	}, logger)
	if err != nil {
		logger.Error("upload store init failed", "error", err)
		os.Exit(1)
	}

	store, cleanup, err := app.BuildJobStore(cfg)
	if err != nil {
		logger.Error("job store init failed", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	pipe := app.BuildPipeline(cfg, logger)
	manager, generator, err := app.BuildManager(cfg, store, pipe, logger)
	if err != nil {
		logger.Error("manager init failed", "error", err)
		os.Exit(1)
	}

	router := server.NewRouter(
		server.NewUploadHandler(uploads, cfg),
		server.NewExtractionHandler(manager, uploads),
		server.NewExportHandler(manager, generator),
		cfg,
	)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router.Setup(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("http serving", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http serve failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", "error", err)
	}
	logger.Info("stopped")
}

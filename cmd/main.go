/*
Package main is the entry point for the RyaChat server.

It is responsible for loading configuration, initializing the global logging system,
building the chat manager and the optional blob store, setting up the HTTP server,
and gracefully handling operating system interrupt signals (SIGINT, SIGTERM)
to ensure a smooth server shutdown.
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ryachat/internal/app/chat"
	"ryachat/internal/app/storage"
	"ryachat/internal/configs"
	"ryachat/internal/handler"
	"ryachat/internal/pkg/logx"
	"ryachat/internal/pkg/pow"
)

func main() {
	// Load configuration from environment variables
	cfg, err := configs.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize global logger
	logx.InitGlobalLogger(cfg.IsDevelopment(), cfg.LogLevel)
	logx.Logger().Info().
		Str("environment", cfg.Environment).
		Str("edition", cfg.Edition).
		Int("port", cfg.Port).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Int("pow_difficulty", cfg.PowDifficulty).
		Str("token_mode", cfg.TokenMode).
		Msg("Configuration loaded successfully")

	// Create a context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize Chat Manager
	manager, err := chat.NewManager(cfg.ChatOptions())
	if err != nil {
		logx.Fatal(err, "Failed to create chat manager")
	}

	var blobs storage.BlobStore
	if cfg.Features.Images {
		blobs, err = storage.NewBlobStore(ctx, cfg.Storage)
		switch {
		case errors.Is(err, storage.ErrNotConfigured):
			logx.Warn("Image uploads are enabled but no S3 bucket is configured; /api/upload will be unavailable.")
		case err != nil:
			logx.Fatal(err, "Failed to initialize blob store")
		}
	}

	deps := &handler.AppDeps{
		Manager: manager,
		Config:  cfg,
		Blobs:   blobs,
		Pow:     pow.NewManager(ctx, cfg.PowDifficulty),
	}

	// Setup HTTP server and routes
	router := handler.Router(ctx, deps)

	serverAddr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logx.Info(fmt.Sprintf("RyaChat Server starting on http://localhost%s", serverAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logx.Fatal(err, "Server failed to start")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server with a timeout of 5 seconds.
	<-ctx.Done()
	logx.Info("Received shutdown signal. Starting graceful shutdown...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logx.Error(err, "Server forced to shutdown")
	}

	manager.Shutdown()

	logx.Info("Server gracefully stopped.")
}

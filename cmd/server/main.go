// Command server runs the contract intelligence HTTP API.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"contract-intel/internal/chunker"
	"contract-intel/internal/config"
	"contract-intel/internal/database"
	"contract-intel/internal/llm"
	"contract-intel/internal/logging"
	"contract-intel/internal/processor"
	"contract-intel/internal/server"

	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file (optional)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	ctx := context.Background()

	db, err := database.NewDB(ctx, cfg.Database.URL)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := db.Initialize(ctx); err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	logger.Info("database initialized")

	proc, err := processor.New(cfg.Uploads.Dir)
	if err != nil {
		logger.Fatal("failed to create processor", zap.Error(err))
	}

	ch, err := chunker.New(cfg.Chunking.Size, cfg.Chunking.Overlap)
	if err != nil {
		logger.Fatal("invalid chunking configuration", zap.Error(err))
	}

	var synth llm.Synthesizer = llm.NewNull()
	if cfg.Ollama.Enabled {
		ollama, err := llm.NewOllama(cfg.Ollama.Host, cfg.Ollama.Model)
		if err != nil {
			logger.Fatal("failed to create ollama client", zap.Error(err))
		}
		synth = ollama
		logger.Info("language model enabled", zap.String("model", cfg.Ollama.Model))
	} else {
		logger.Info("language model disabled, running rule-based only")
	}

	srv, err := server.New(db, proc, ch, synth, logger, &server.Config{
		Host: cfg.Server.Host,
		Port: cfg.Server.Port,
	})
	if err != nil {
		logger.Fatal("failed to create server", zap.Error(err))
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		logger.Fatal("server failed", zap.Error(err))
	case sig := <-stop:
		logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", zap.Error(err))
	}
}

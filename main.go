package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"irisforest/config"
	irishttp "irisforest/http"
	"irisforest/logging"
	"irisforest/ml"
	"irisforest/monitoring"
	"irisforest/predictor"
)

func main() {
	configPath := flag.String("config", "config.yaml", "optional YAML config file")
	flag.Parse()

	// 1. Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Log, cfg.Server.Debug)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	// 2. Load the model once
	model, header, err := ml.LoadModel(cfg.Model.Type, cfg.Model.Path)
	if err != nil {
		logger.Fatal("failed to load model", zap.String("path", cfg.Model.Path), zap.Error(err))
	}
	logger.Info("model loaded",
		zap.String("path", cfg.Model.Path),
		zap.String("digest", header.Digest),
		zap.Time("created_at", header.CreatedAt),
	)

	stats := monitoring.NewPredictionStats()
	service, err := predictor.NewService(model,
		predictor.WithHeader(header),
		predictor.WithRecorder(stats),
		predictor.WithLogger(logger),
		predictor.WithCacheSize(cfg.Model.CacheSize),
	)
	if err != nil {
		logger.Fatal("model is not usable", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var watcher *monitoring.ArtifactWatcher
	if cfg.Model.Watch {
		watcher, err = monitoring.NewArtifactWatcher(cfg.Model.Path, logger)
		if err != nil {
			logger.Warn("artifact watcher disabled", zap.Error(err))
		} else {
			go watcher.Run(ctx)
		}
	}

	// 3. Start HTTP server
	handlers := irishttp.NewHandlers(service, stats, watcher, logger)
	server := irishttp.NewServer(cfg.Server, irishttp.NewRouter(handlers, logger), logger)
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	// 4. Handle graceful shutdown
	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Stop(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}
	logger.Info("exiting")
}

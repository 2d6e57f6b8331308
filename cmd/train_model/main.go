package main

import (
	"flag"
	"fmt"
	"log"

	"go.uber.org/zap"

	"irisforest/config"
	"irisforest/dataset"
	"irisforest/logging"
	"irisforest/training"
)

func main() {
	configPath := flag.String("config", "config.yaml", "optional YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger, err := logging.New(cfg.Log, false)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	ds, err := dataset.LoadIris()
	if err != nil {
		logger.Fatal("failed to load dataset", zap.Error(err))
	}

	result, err := training.Train(ds, training.DefaultOptions())
	if err != nil {
		logger.Fatal("failed to train model", zap.Error(err))
	}
	logger.Info("model fitted",
		zap.Int("train_size", result.TrainSize),
		zap.Int("test_size", len(result.TestY)),
		zap.Int("n_estimators", result.Model.NEstimators),
	)

	fmt.Printf("Model Accuracy: %.4f\n", result.Accuracy)
	fmt.Println("Classification Report:")
	fmt.Print(result.Report.String())

	header, err := result.Save(training.ArtifactPath, ds)
	if err != nil {
		logger.Fatal("failed to save model", zap.String("path", training.ArtifactPath), zap.Error(err))
	}
	logger.Debug("artifact written", zap.String("digest", header.Digest))

	fmt.Printf("Model trained and saved as '%s'\n", training.ArtifactPath)
}

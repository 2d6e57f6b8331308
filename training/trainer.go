// Package training fits and evaluates the iris classifier.
package training

import (
	"errors"
	"fmt"

	"irisforest/dataset"
	"irisforest/ml"
)

const (
	DefaultTestRatio   = 0.2
	DefaultSeed        = 42
	DefaultNEstimators = 100

	// ArtifactPath is where the trainer always writes, relative to the working directory.
	ArtifactPath = "iris_model.json"
)

type Options struct {
	TestRatio   float64
	Seed        int64
	NEstimators int
}

// DefaultOptions is the fixed 80/20, seed 42, 100-tree setup.
func DefaultOptions() Options {
	return Options{
		TestRatio:   DefaultTestRatio,
		Seed:        DefaultSeed,
		NEstimators: DefaultNEstimators,
	}
}

// Result holds the fitted model and its held-out evaluation.
type Result struct {
	Model       *ml.RandomForest
	TrainSize   int
	TestX       [][]float64
	TestY       []int
	Predictions []int
	Accuracy    float64
	Report      *ml.Report
}

// Train splits ds, fits a random forest on the training partition and scores
// it on the test partition.
func Train(ds *dataset.Dataset, opts Options) (*Result, error) {
	if ds == nil || ds.Len() == 0 {
		return nil, errors.New("dataset is empty")
	}
	if opts.NEstimators <= 0 {
		return nil, errors.New("n_estimators must be positive")
	}

	trainX, trainY, testX, testY := ml.SplitDataset(ds.Features, ds.Labels, opts.TestRatio, opts.Seed)
	if len(testX) == 0 {
		return nil, errors.New("test partition is empty")
	}

	model := ml.NewRandomForest(
		ml.WithNEstimators(opts.NEstimators),
		ml.WithRandomState(opts.Seed),
	)
	if err := model.Fit(trainX, trainY); err != nil {
		return nil, fmt.Errorf("fit: %w", err)
	}

	predictions, err := model.PredictBatch(testX)
	if err != nil {
		return nil, fmt.Errorf("evaluate: %w", err)
	}

	labels := make([]int, len(ds.TargetNames))
	for i := range labels {
		labels[i] = i
	}
	report, err := ml.ClassificationReport(testY, predictions, labels, ds.TargetNames)
	if err != nil {
		return nil, fmt.Errorf("report: %w", err)
	}

	return &Result{
		Model:       model,
		TrainSize:   len(trainX),
		TestX:       testX,
		TestY:       testY,
		Predictions: predictions,
		Accuracy:    ml.Accuracy(testY, predictions),
		Report:      report,
	}, nil
}

// Save persists the model of r to path with the dataset's names attached.
func (r *Result) Save(path string, ds *dataset.Dataset) (*ml.ArtifactHeader, error) {
	return ml.SaveArtifact(path, r.Model, ml.ArtifactMeta{
		FeatureNames: ds.FeatureNames,
		TargetNames:  ds.TargetNames,
	})
}

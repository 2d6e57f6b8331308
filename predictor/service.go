// Package predictor maps flower measurements to species with a loaded classifier.
package predictor

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"irisforest/dataset"
	"irisforest/ml"
)

// Prediction is the outcome of classifying one Sample.
type Prediction struct {
	Label      int     `json:"label"`
	Species    string  `json:"prediction"`
	Confidence float64 `json:"confidence"`
}

// Recorder observes prediction outcomes.
type Recorder interface {
	RecordPrediction(species string)
	RecordError(code string)
}

// Service is immutable after NewService and safe for concurrent use.
type Service struct {
	model    ml.Classifier
	header   *ml.ArtifactHeader
	labels   LabelTable
	cache    *lru.Cache[Sample, Prediction]
	recorder Recorder
	logger   *zap.Logger
}

type Option func(*Service)

func WithLabels(labels LabelTable) Option {
	return func(s *Service) { s.labels = labels }
}

func WithHeader(h *ml.ArtifactHeader) Option {
	return func(s *Service) { s.header = h }
}

func WithRecorder(r Recorder) Option {
	return func(s *Service) { s.recorder = r }
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithCacheSize(size int) Option {
	return func(s *Service) { s.cache = newCache(size) }
}

// NewService checks that model takes the four iris features. Labels default
// to DefaultLabels and the cache to 256 entries; WithCacheSize(0) disables it.
func NewService(model ml.Classifier, opts ...Option) (*Service, error) {
	if model == nil {
		return nil, fmt.Errorf("classifier is required")
	}
	s := &Service{
		labels: DefaultLabels(),
		cache:  newCache(256),
		logger: zap.NewNop(),
	}
	for _, o := range opts {
		o(s)
	}

	if got, want := model.NumFeatures(), len(dataset.FeatureNames); got != want {
		return nil, fmt.Errorf("%w: classifier takes %d features, want %d", ml.ErrIncompatibleArtifact, got, want)
	}
	for _, class := range model.Classes() {
		if _, ok := s.labels[class]; !ok {
			s.logger.Warn("classifier emits a class with no species name", zap.Int("class", class))
		}
	}
	s.model = model
	return s, nil
}

func newCache(size int) *lru.Cache[Sample, Prediction] {
	if size <= 0 {
		return nil
	}
	cache, err := lru.New[Sample, Prediction](size)
	if err != nil {
		return nil
	}
	return cache
}

// Predict classifies sample and names the resulting class.
func (s *Service) Predict(ctx context.Context, sample Sample) (Prediction, error) {
	if err := ctx.Err(); err != nil {
		return Prediction{}, err
	}

	cacheable := s.cache != nil && !sample.hasNaN()
	if cacheable {
		if p, ok := s.cache.Get(sample); ok {
			s.record(p, nil)
			return p, nil
		}
	}

	label, confidence, err := s.model.Predict(sample.Vector())
	if err != nil {
		err = fmt.Errorf("classify: %w", err)
		s.record(Prediction{}, err)
		return Prediction{}, err
	}
	species, err := s.labels.Lookup(label)
	if err != nil {
		s.record(Prediction{}, err)
		return Prediction{}, err
	}

	p := Prediction{Label: label, Species: species, Confidence: confidence}
	if cacheable {
		s.cache.Add(sample, p)
	}
	s.logger.Debug("prediction",
		zap.Float64s("features", sample.Vector()),
		zap.Int("label", label),
		zap.String("species", species),
		zap.Float64("confidence", confidence),
	)
	s.record(p, nil)
	return p, nil
}

// PredictFields parses src and predicts. Input errors are recorded too.
func (s *Service) PredictFields(ctx context.Context, src FieldSource) (Prediction, Sample, error) {
	sample, err := ParseSample(src)
	if err != nil {
		s.record(Prediction{}, err)
		return Prediction{}, Sample{}, err
	}
	p, err := s.Predict(ctx, sample)
	return p, sample, err
}

// Header describes the loaded artifact; nil when the model was built in memory.
func (s *Service) Header() *ml.ArtifactHeader {
	if s.header == nil {
		return nil
	}
	h := *s.header
	return &h
}

func (s *Service) record(p Prediction, err error) {
	if s.recorder == nil {
		return
	}
	if err != nil {
		s.recorder.RecordError(ErrorCode(err))
		return
	}
	s.recorder.RecordPrediction(p.Species)
}

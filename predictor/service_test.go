package predictor

import (
	"context"
	"errors"
	"math"
	"net/url"
	"sync"
	"testing"
)

type fakeModel struct {
	label      int
	confidence float64
	err        error
	features   int

	mu    sync.Mutex
	calls int
	last  []float64
}

func (f *fakeModel) Predict(features []float64) (int, float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.last = append([]float64(nil), features...)
	return f.label, f.confidence, f.err
}

func (f *fakeModel) NumFeatures() int {
	if f.features == 0 {
		return 4
	}
	return f.features
}

func (f *fakeModel) Classes() []int { return []int{0, 1, 2} }

type fakeRecorder struct {
	predictions []string
	errors      []string
}

func (r *fakeRecorder) RecordPrediction(species string) {
	r.predictions = append(r.predictions, species)
}

func (r *fakeRecorder) RecordError(code string) {
	r.errors = append(r.errors, code)
}

func validForm() url.Values {
	return url.Values{
		"sepal_length": {"5.1"},
		"sepal_width":  {"3.5"},
		"petal_length": {"1.4"},
		"petal_width":  {"0.2"},
	}
}

func TestDefaultLabels(t *testing.T) {
	labels := DefaultLabels()
	want := map[int]string{0: "Setosa", 1: "Versicolor", 2: "Virginica"}
	if len(labels) != len(want) {
		t.Fatalf("expected %d labels, got %d", len(want), len(labels))
	}
	for code, name := range want {
		if labels[code] != name {
			t.Fatalf("label %d: expected %q, got %q", code, name, labels[code])
		}
	}
	if _, err := labels.Lookup(3); !errors.Is(err, ErrUnknownLabel) {
		t.Fatalf("expected ErrUnknownLabel, got %v", err)
	}
}

func TestParseSampleOrder(t *testing.T) {
	sample, err := ParseSample(FormValues(validForm()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := sample.Vector()
	want := []float64{5.1, 3.5, 1.4, 0.2}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("unexpected vector %v", got)
		}
	}
}

func TestParseSampleErrors(t *testing.T) {
	missing := validForm()
	missing.Del("petal_width")
	_, err := ParseSample(FormValues(missing))
	if !errors.Is(err, ErrMissingField) || ErrorCode(err) != "missing_field" {
		t.Fatalf("expected missing field, got %v", err)
	}
	var perr *PredictionError
	if !errors.As(err, &perr) || perr.Field != "petal_width" {
		t.Fatalf("expected field petal_width, got %+v", perr)
	}

	for _, bad := range []string{"abc", "", "1,5", "0x"} {
		form := validForm()
		form.Set("sepal_width", bad)
		_, err := ParseSample(FormValues(form))
		if !errors.Is(err, ErrInvalidNumber) {
			t.Fatalf("%q: expected invalid number, got %v", bad, err)
		}
		if ErrorCode(err) != "invalid_number" || !IsInputError(err) {
			t.Fatalf("%q: unexpected code %s", bad, ErrorCode(err))
		}
	}
}

func TestParseSampleTrimsWhitespace(t *testing.T) {
	form := validForm()
	form.Set("sepal_length", " 6.3 ")
	sample, err := ParseSample(FormValues(form))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sample.SepalLength != 6.3 {
		t.Fatalf("expected 6.3, got %f", sample.SepalLength)
	}
}

func TestJSONFields(t *testing.T) {
	fields := JSONFields{
		"sepal_length": 5.1,
		"sepal_width":  "3.5",
		"petal_length": 1.4,
		"petal_width":  0.2,
	}
	sample, err := ParseSample(fields)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sample.SepalWidth != 3.5 {
		t.Fatalf("expected 3.5, got %f", sample.SepalWidth)
	}

	fields["petal_width"] = nil
	if _, err := ParseSample(fields); !errors.Is(err, ErrMissingField) {
		t.Fatalf("expected missing field for null, got %v", err)
	}
	fields["petal_width"] = true
	if _, err := ParseSample(fields); !errors.Is(err, ErrInvalidNumber) {
		t.Fatalf("expected invalid number for bool, got %v", err)
	}
}

func TestServicePredict(t *testing.T) {
	model := &fakeModel{label: 1, confidence: 0.9}
	recorder := &fakeRecorder{}
	service, err := NewService(model, WithRecorder(recorder))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	p, sample, err := service.PredictFields(context.Background(), FormValues(validForm()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Species != "Versicolor" || p.Label != 1 || p.Confidence != 0.9 {
		t.Fatalf("unexpected prediction %+v", p)
	}
	if sample.PetalWidth != 0.2 {
		t.Fatalf("unexpected sample %+v", sample)
	}
	if len(model.last) != 4 || model.last[0] != 5.1 || model.last[3] != 0.2 {
		t.Fatalf("classifier received %v", model.last)
	}
	if len(recorder.predictions) != 1 || recorder.predictions[0] != "Versicolor" {
		t.Fatalf("unexpected recorded predictions %v", recorder.predictions)
	}
}

func TestServiceUnknownLabel(t *testing.T) {
	recorder := &fakeRecorder{}
	service, err := NewService(&fakeModel{label: 7}, WithRecorder(recorder))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err = service.Predict(context.Background(), Sample{SepalLength: 1})
	if !errors.Is(err, ErrUnknownLabel) {
		t.Fatalf("expected ErrUnknownLabel, got %v", err)
	}
	if IsInputError(err) {
		t.Fatal("unknown label must not count as an input error")
	}
	if len(recorder.errors) != 1 || recorder.errors[0] != "unknown_label" {
		t.Fatalf("unexpected recorded errors %v", recorder.errors)
	}
}

func TestServiceClassifierError(t *testing.T) {
	service, err := NewService(&fakeModel{err: errors.New("boom")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err = service.Predict(context.Background(), Sample{})
	if err == nil || ErrorCode(err) != "internal" {
		t.Fatalf("expected internal error, got %v", err)
	}
}

func TestServiceCachesPredictions(t *testing.T) {
	model := &fakeModel{label: 0, confidence: 1}
	service, err := NewService(model, WithCacheSize(8))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sample := Sample{SepalLength: 5.1, SepalWidth: 3.5, PetalLength: 1.4, PetalWidth: 0.2}
	for i := 0; i < 3; i++ {
		p, err := service.Predict(context.Background(), sample)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if p.Species != "Setosa" {
			t.Fatalf("unexpected species %s", p.Species)
		}
	}
	if model.calls != 1 {
		t.Fatalf("expected one classifier call, got %d", model.calls)
	}

	nan := Sample{SepalLength: math.NaN()}
	for i := 0; i < 2; i++ {
		if _, err := service.Predict(context.Background(), nan); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if model.calls != 3 {
		t.Fatalf("expected NaN samples to bypass the cache, got %d calls", model.calls)
	}
}

func TestServiceWithoutCache(t *testing.T) {
	model := &fakeModel{label: 2}
	service, err := NewService(model, WithCacheSize(0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < 2; i++ {
		if _, err := service.Predict(context.Background(), Sample{}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if model.calls != 2 {
		t.Fatalf("expected 2 classifier calls, got %d", model.calls)
	}
}

func TestServiceCancelledContext(t *testing.T) {
	service, err := NewService(&fakeModel{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := service.Predict(ctx, Sample{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestNewServiceRejectsWrongWidth(t *testing.T) {
	if _, err := NewService(&fakeModel{features: 3}); err == nil {
		t.Fatal("expected error for 3-feature classifier")
	}
	if _, err := NewService(nil); err == nil {
		t.Fatal("expected error for nil classifier")
	}
}

package predictor

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"irisforest/dataset"
)

// Sample is one flower measurement in centimeters.
type Sample struct {
	SepalLength float64 `json:"sepal_length"`
	SepalWidth  float64 `json:"sepal_width"`
	PetalLength float64 `json:"petal_length"`
	PetalWidth  float64 `json:"petal_width"`
}

// Vector returns the features in model order.
func (s Sample) Vector() []float64 {
	return []float64{s.SepalLength, s.SepalWidth, s.PetalLength, s.PetalWidth}
}

func (s Sample) hasNaN() bool {
	for _, v := range s.Vector() {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}

// FieldSource looks up raw field values by name.
type FieldSource interface {
	Lookup(name string) (string, bool)
}

// FormValues adapts posted form values. Only keys that are present count.
type FormValues url.Values

func (f FormValues) Lookup(name string) (string, bool) {
	values, ok := f[name]
	if !ok || len(values) == 0 {
		return "", false
	}
	return values[0], true
}

// JSONFields adapts a decoded JSON object. Numbers and strings are accepted.
type JSONFields map[string]any

func (j JSONFields) Lookup(name string) (string, bool) {
	v, ok := j[name]
	if !ok || v == nil {
		return "", false
	}
	switch value := v.(type) {
	case string:
		return value, true
	case float64:
		return strconv.FormatFloat(value, 'g', -1, 64), true
	default:
		return fmt.Sprint(value), true
	}
}

// ParseSample reads the four measurements from src in model order.
func ParseSample(src FieldSource) (Sample, error) {
	values := make([]float64, len(dataset.FeatureNames))
	for i, name := range dataset.FeatureNames {
		raw, ok := src.Lookup(name)
		if !ok {
			return Sample{}, missingField(name)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return Sample{}, invalidNumber(name, raw)
		}
		values[i] = v
	}
	return Sample{
		SepalLength: values[0],
		SepalWidth:  values[1],
		PetalLength: values[2],
		PetalWidth:  values[3],
	}, nil
}

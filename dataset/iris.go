// Package dataset provides the built-in labeled training data.
package dataset

import (
	"bytes"
	_ "embed"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
)

//go:embed iris.csv
var irisCSV []byte

// FeatureNames is the fixed feature order of every iris sample.
var FeatureNames = []string{"sepal_length", "sepal_width", "petal_length", "petal_width"}

// TargetNames maps label codes (slice index) to species.
var TargetNames = []string{"setosa", "versicolor", "virginica"}

// Dataset is a labeled feature table.
type Dataset struct {
	Features     [][]float64
	Labels       []int
	FeatureNames []string
	TargetNames  []string
}

// Len returns the number of samples.
func (d *Dataset) Len() int {
	return len(d.Features)
}

// LoadIris parses the embedded Fisher iris table (150 samples, 3 classes).
func LoadIris() (*Dataset, error) {
	return parse(bytes.NewReader(irisCSV), len(FeatureNames), len(TargetNames))
}

func parse(r io.Reader, featureCount, classCount int) (*Dataset, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = featureCount + 1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) != featureCount+1 {
		return nil, errors.New("unexpected header width")
	}

	ds := &Dataset{
		FeatureNames: append([]string(nil), header[:featureCount]...),
		TargetNames:  append([]string(nil), TargetNames...),
	}
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		row := make([]float64, featureCount)
		for i := 0; i < featureCount; i++ {
			v, err := strconv.ParseFloat(record[i], 64)
			if err != nil {
				return nil, fmt.Errorf("line %d column %s: %w", line, header[i], err)
			}
			row[i] = v
		}
		label, err := strconv.Atoi(record[featureCount])
		if err != nil {
			return nil, fmt.Errorf("line %d label: %w", line, err)
		}
		if label < 0 || label >= classCount {
			return nil, fmt.Errorf("line %d: label %d out of range", line, label)
		}
		ds.Features = append(ds.Features, row)
		ds.Labels = append(ds.Labels, label)
	}
	if len(ds.Features) == 0 {
		return nil, errors.New("dataset is empty")
	}
	return ds, nil
}

package ml

// Classifier is a fitted model that maps one feature vector to a class label.
type Classifier interface {
	Predict(features []float64) (label int, confidence float64, err error)
	NumFeatures() int
	Classes() []int
}

// MLModel is a classifier that can also be trained.
type MLModel interface {
	Classifier
	Fit(features [][]float64, labels []int) error
}

var _ MLModel = (*RandomForest)(nil)

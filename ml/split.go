package ml

import (
	"math"
	"math/rand"
)

// SplitDataset shuffles with a fixed seed and holds out ceil(testRatio*n) rows.
// Ratios outside (0, 1) fall back to 0.2.
func SplitDataset(features [][]float64, labels []int, testRatio float64, seed int64) (trainX [][]float64, trainY []int, testX [][]float64, testY []int) {
	if testRatio <= 0 || testRatio >= 1 {
		testRatio = 0.2
	}
	n := len(features)
	if len(labels) < n {
		n = len(labels)
	}
	rnd := rand.New(rand.NewSource(seed))
	indices := rnd.Perm(n)

	nTest := int(math.Ceil(float64(n) * testRatio))
	for i, idx := range indices {
		if i < nTest {
			testX = append(testX, features[idx])
			testY = append(testY, labels[idx])
		} else {
			trainX = append(trainX, features[idx])
			trainY = append(trainY, labels[idx])
		}
	}
	return trainX, trainY, testX, testY
}

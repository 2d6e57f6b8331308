package ml

import (
	"errors"
	"math/rand"
	"sort"
)

// DecisionTree is a CART classifier over class indices 0..nClasses-1.
// Nodes are stored flat; children are absolute indices into nodes.
type DecisionTree struct {
	MaxDepth        int // 0 => unlimited
	MinSamplesSplit int
	MaxFeatures     int // 0 => all features

	nodes     []TreeNode
	nClasses  int
	nFeatures int
}

type TreeNode struct {
	FeatureIdx int       `json:"feature_idx"`
	Threshold  float64   `json:"threshold"`
	LeftChild  int       `json:"left_child"`
	RightChild int       `json:"right_child"`
	Value      []float64 `json:"value,omitempty"`
	IsLeaf     bool      `json:"is_leaf"`
}

func (dt *DecisionTree) fit(features [][]float64, labels []int, nClasses int, sample []int, rnd *rand.Rand) error {
	if len(features) == 0 || len(labels) == 0 {
		return errors.New("features or labels empty")
	}
	if len(features) != len(labels) {
		return errors.New("features and labels size mismatch")
	}
	if len(sample) == 0 {
		return errors.New("empty sample")
	}
	if nClasses <= 0 {
		return errors.New("no classes")
	}
	if dt.MinSamplesSplit < 2 {
		dt.MinSamplesSplit = 2
	}

	dt.nClasses = nClasses
	dt.nFeatures = len(features[0])
	dt.nodes = dt.nodes[:0]
	dt.buildNode(features, labels, sample, 0, rnd)
	return nil
}

// predictProba walks the tree and returns the leaf class distribution.
func (dt *DecisionTree) predictProba(features []float64) ([]float64, error) {
	if len(dt.nodes) == 0 {
		return nil, errors.New("model not trained")
	}
	idx := 0
	for {
		node := dt.nodes[idx]
		if node.IsLeaf {
			return node.Value, nil
		}
		if node.FeatureIdx < 0 || node.FeatureIdx >= len(features) {
			return nil, errors.New("feature index out of range")
		}
		if features[node.FeatureIdx] <= node.Threshold {
			idx = node.LeftChild
		} else {
			idx = node.RightChild
		}
		if idx <= 0 || idx >= len(dt.nodes) {
			return nil, errors.New("invalid tree state")
		}
	}
}

// Predict returns the majority class of the leaf reached by features and its share.
func (dt *DecisionTree) Predict(features []float64) (int, float64, error) {
	proba, err := dt.predictProba(features)
	if err != nil {
		return 0, 0, err
	}
	best := argmax(proba)
	return best, proba[best], nil
}

func (dt *DecisionTree) buildNode(features [][]float64, labels []int, sample []int, depth int, rnd *rand.Rand) int {
	counts := classCounts(labels, sample, dt.nClasses)
	self := len(dt.nodes)
	dt.nodes = append(dt.nodes, TreeNode{FeatureIdx: -1, LeftChild: -1, RightChild: -1})

	stop := isPure(counts) ||
		len(sample) < dt.MinSamplesSplit ||
		(dt.MaxDepth > 0 && depth >= dt.MaxDepth)
	if !stop {
		split, ok := dt.findBestSplit(features, labels, sample, rnd)
		if ok {
			left := dt.buildNode(features, labels, split.left, depth+1, rnd)
			right := dt.buildNode(features, labels, split.right, depth+1, rnd)
			dt.nodes[self] = TreeNode{
				FeatureIdx: split.feature,
				Threshold:  split.threshold,
				LeftChild:  left,
				RightChild: right,
			}
			return self
		}
	}

	dt.nodes[self] = TreeNode{
		FeatureIdx: -1,
		LeftChild:  -1,
		RightChild: -1,
		Value:      normalize(counts),
		IsLeaf:     true,
	}
	return self
}

type split struct {
	feature   int
	threshold float64
	impurity  float64
	left      []int
	right     []int
}

// findBestSplit draws features in random order and evaluates at least MaxFeatures
// of them, continuing past that only while every drawn feature was constant.
func (dt *DecisionTree) findBestSplit(features [][]float64, labels []int, sample []int, rnd *rand.Rand) (split, bool) {
	order := rnd.Perm(dt.nFeatures)
	budget := dt.MaxFeatures
	if budget <= 0 || budget > dt.nFeatures {
		budget = dt.nFeatures
	}

	best := split{feature: -1}
	found := false
	for visited, f := range order {
		if visited >= budget && found {
			break
		}
		candidate, ok := bestSplitForFeature(features, labels, sample, f, dt.nClasses)
		if !ok {
			continue
		}
		if !found || candidate.impurity < best.impurity {
			best = candidate
			found = true
		}
	}
	return best, found
}

func bestSplitForFeature(features [][]float64, labels []int, sample []int, featureIdx, nClasses int) (split, bool) {
	sorted := append([]int(nil), sample...)
	sort.SliceStable(sorted, func(a, b int) bool {
		return features[sorted[a]][featureIdx] < features[sorted[b]][featureIdx]
	})

	total := float64(len(sorted))
	left := make([]int, nClasses)
	right := classCounts(labels, sorted, nClasses)

	best := split{feature: -1}
	bestPos := -1
	for pos := 1; pos < len(sorted); pos++ {
		moved := labels[sorted[pos-1]]
		left[moved]++
		right[moved]--

		prev := features[sorted[pos-1]][featureIdx]
		curr := features[sorted[pos]][featureIdx]
		if curr <= prev {
			continue
		}
		n := float64(pos)
		impurity := (n/total)*giniFromCounts(left) + ((total-n)/total)*giniFromCounts(right)
		if bestPos == -1 || impurity < best.impurity {
			best.impurity = impurity
			best.threshold = prev + (curr-prev)/2
			bestPos = pos
		}
	}
	if bestPos == -1 {
		return split{}, false
	}

	best.feature = featureIdx
	best.left = append([]int(nil), sorted[:bestPos]...)
	best.right = append([]int(nil), sorted[bestPos:]...)
	return best, true
}

func classCounts(labels []int, sample []int, nClasses int) []int {
	counts := make([]int, nClasses)
	for _, i := range sample {
		counts[labels[i]]++
	}
	return counts
}

func giniFromCounts(counts []int) float64 {
	total := 0
	for _, c := range counts {
		total += c
	}
	if total == 0 {
		return 0
	}
	impurity := 1.0
	for _, c := range counts {
		p := float64(c) / float64(total)
		impurity -= p * p
	}
	return impurity
}

func isPure(counts []int) bool {
	nonZero := 0
	for _, c := range counts {
		if c > 0 {
			nonZero++
		}
	}
	return nonZero <= 1
}

func normalize(counts []int) []float64 {
	total := 0
	for _, c := range counts {
		total += c
	}
	out := make([]float64, len(counts))
	if total == 0 {
		return out
	}
	for i, c := range counts {
		out[i] = float64(c) / float64(total)
	}
	return out
}

// argmax returns the first index of the maximum value.
func argmax(values []float64) int {
	best := 0
	for i := 1; i < len(values); i++ {
		if values[i] > values[best] {
			best = i
		}
	}
	return best
}

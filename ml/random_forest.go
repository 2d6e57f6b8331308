package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"sync"

	"go.uber.org/multierr"
)

const ModelTypeRandomForest = "random_forest"

// RandomForest is a bagged ensemble of DecisionTree classifiers with soft voting.
type RandomForest struct {
	NEstimators     int
	MaxDepth        int
	MinSamplesSplit int
	MaxFeatures     int // 0 => floor(sqrt(features))
	Bootstrap       bool
	RandomState     int64

	trees     []*DecisionTree
	classes   []int
	nFeatures int
}

type RandomForestOption func(*RandomForest)

func WithNEstimators(n int) RandomForestOption {
	return func(rf *RandomForest) { rf.NEstimators = n }
}

func WithMaxDepth(d int) RandomForestOption {
	return func(rf *RandomForest) { rf.MaxDepth = d }
}

func WithMaxFeatures(k int) RandomForestOption {
	return func(rf *RandomForest) { rf.MaxFeatures = k }
}

func WithBootstrap(b bool) RandomForestOption {
	return func(rf *RandomForest) { rf.Bootstrap = b }
}

func WithRandomState(s int64) RandomForestOption {
	return func(rf *RandomForest) { rf.RandomState = s }
}

func WithMinSamplesSplit(n int) RandomForestOption {
	return func(rf *RandomForest) { rf.MinSamplesSplit = n }
}

// NewRandomForest returns a forest with 100 bootstrapped trees and seed 0.
func NewRandomForest(opts ...RandomForestOption) *RandomForest {
	rf := &RandomForest{
		NEstimators:     100,
		MinSamplesSplit: 2,
		Bootstrap:       true,
	}
	for _, o := range opts {
		o(rf)
	}
	return rf
}

// Fit trains every tree concurrently. Tree i is seeded with RandomState+i, so a
// fixed RandomState always yields the same forest.
func (rf *RandomForest) Fit(features [][]float64, labels []int) error {
	if len(features) == 0 || len(labels) == 0 {
		return errors.New("randomforest: features or labels empty")
	}
	if len(features) != len(labels) {
		return errors.New("randomforest: features and labels size mismatch")
	}
	if rf.NEstimators <= 0 {
		return errors.New("randomforest: n_estimators must be positive")
	}
	width := len(features[0])
	if width == 0 {
		return errors.New("randomforest: samples have no features")
	}
	for i, row := range features {
		if len(row) != width {
			return fmt.Errorf("randomforest: row %d has %d features, want %d", i, len(row), width)
		}
	}

	classes, encoded := encodeLabels(labels)
	maxFeatures := rf.MaxFeatures
	if maxFeatures <= 0 {
		maxFeatures = int(math.Sqrt(float64(width)))
		if maxFeatures < 1 {
			maxFeatures = 1
		}
	}

	trees := make([]*DecisionTree, rf.NEstimators)
	errs := make([]error, rf.NEstimators)
	var wg sync.WaitGroup
	for i := 0; i < rf.NEstimators; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			rnd := rand.New(rand.NewSource(rf.RandomState + int64(idx)))

			n := len(features)
			sample := make([]int, n)
			for j := range sample {
				if rf.Bootstrap {
					sample[j] = rnd.Intn(n)
				} else {
					sample[j] = j
				}
			}

			tree := &DecisionTree{
				MaxDepth:        rf.MaxDepth,
				MinSamplesSplit: rf.MinSamplesSplit,
				MaxFeatures:     maxFeatures,
			}
			if err := tree.fit(features, encoded, len(classes), sample, rnd); err != nil {
				errs[idx] = fmt.Errorf("tree %d: %w", idx, err)
				return
			}
			trees[idx] = tree
		}(i)
	}
	wg.Wait()

	if err := multierr.Combine(errs...); err != nil {
		return err
	}

	rf.trees = trees
	rf.classes = classes
	rf.nFeatures = width
	return nil
}

// PredictProba averages the leaf distributions of all trees. The result is
// aligned with Classes().
func (rf *RandomForest) PredictProba(features []float64) ([]float64, error) {
	if len(rf.trees) == 0 {
		return nil, errors.New("model not trained")
	}
	if len(features) != rf.nFeatures {
		return nil, fmt.Errorf("expected %d features, got %d", rf.nFeatures, len(features))
	}
	proba := make([]float64, len(rf.classes))
	for _, tree := range rf.trees {
		leaf, err := tree.predictProba(features)
		if err != nil {
			return nil, err
		}
		for i, p := range leaf {
			proba[i] += p
		}
	}
	for i := range proba {
		proba[i] /= float64(len(rf.trees))
	}
	return proba, nil
}

// Predict returns the winning class label and its averaged probability.
// Ties go to the lowest class.
func (rf *RandomForest) Predict(features []float64) (int, float64, error) {
	proba, err := rf.PredictProba(features)
	if err != nil {
		return 0, 0, err
	}
	best := argmax(proba)
	return rf.classes[best], proba[best], nil
}

// PredictBatch predicts every row.
func (rf *RandomForest) PredictBatch(features [][]float64) ([]int, error) {
	out := make([]int, len(features))
	for i, row := range features {
		label, _, err := rf.Predict(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out[i] = label
	}
	return out, nil
}

func (rf *RandomForest) NumFeatures() int { return rf.nFeatures }

func (rf *RandomForest) Classes() []int { return append([]int(nil), rf.classes...) }

type forestState struct {
	NEstimators     int          `json:"n_estimators"`
	MaxDepth        int          `json:"max_depth"`
	MinSamplesSplit int          `json:"min_samples_split"`
	MaxFeatures     int          `json:"max_features"`
	Bootstrap       bool         `json:"bootstrap"`
	RandomState     int64        `json:"random_state"`
	Classes         []int        `json:"classes"`
	NumFeatures     int          `json:"num_features"`
	Trees           [][]TreeNode `json:"trees"`
}

func (rf *RandomForest) MarshalJSON() ([]byte, error) {
	if len(rf.trees) == 0 {
		return nil, errors.New("model not trained")
	}
	state := forestState{
		NEstimators:     rf.NEstimators,
		MaxDepth:        rf.MaxDepth,
		MinSamplesSplit: rf.MinSamplesSplit,
		MaxFeatures:     rf.MaxFeatures,
		Bootstrap:       rf.Bootstrap,
		RandomState:     rf.RandomState,
		Classes:         rf.classes,
		NumFeatures:     rf.nFeatures,
		Trees:           make([][]TreeNode, len(rf.trees)),
	}
	for i, tree := range rf.trees {
		state.Trees[i] = tree.nodes
	}
	return json.Marshal(state)
}

func (rf *RandomForest) UnmarshalJSON(data []byte) error {
	var state forestState
	if err := json.Unmarshal(data, &state); err != nil {
		return err
	}
	if len(state.Trees) == 0 {
		return errors.New("randomforest: no trees")
	}
	if len(state.Classes) == 0 || state.NumFeatures <= 0 {
		return errors.New("randomforest: missing classes or feature count")
	}

	trees := make([]*DecisionTree, len(state.Trees))
	for i, nodes := range state.Trees {
		if err := validateNodes(nodes, len(state.Classes), state.NumFeatures); err != nil {
			return fmt.Errorf("randomforest: tree %d: %w", i, err)
		}
		trees[i] = &DecisionTree{
			MaxDepth:        state.MaxDepth,
			MinSamplesSplit: state.MinSamplesSplit,
			MaxFeatures:     state.MaxFeatures,
			nodes:           nodes,
			nClasses:        len(state.Classes),
			nFeatures:       state.NumFeatures,
		}
	}

	rf.NEstimators = state.NEstimators
	rf.MaxDepth = state.MaxDepth
	rf.MinSamplesSplit = state.MinSamplesSplit
	rf.MaxFeatures = state.MaxFeatures
	rf.Bootstrap = state.Bootstrap
	rf.RandomState = state.RandomState
	rf.classes = state.Classes
	rf.nFeatures = state.NumFeatures
	rf.trees = trees
	return nil
}

// validateNodes rejects trees that could index out of range or loop.
func validateNodes(nodes []TreeNode, nClasses, nFeatures int) error {
	if len(nodes) == 0 {
		return errors.New("empty tree")
	}
	for i, node := range nodes {
		if node.IsLeaf {
			if len(node.Value) != nClasses {
				return fmt.Errorf("node %d: leaf has %d class weights, want %d", i, len(node.Value), nClasses)
			}
			continue
		}
		if node.FeatureIdx < 0 || node.FeatureIdx >= nFeatures {
			return fmt.Errorf("node %d: feature index %d out of range", i, node.FeatureIdx)
		}
		if node.LeftChild <= i || node.LeftChild >= len(nodes) || node.RightChild <= i || node.RightChild >= len(nodes) {
			return fmt.Errorf("node %d: invalid children", i)
		}
	}
	return nil
}

// encodeLabels maps labels to dense indices in ascending label order.
func encodeLabels(labels []int) ([]int, []int) {
	seen := make(map[int]struct{})
	for _, label := range labels {
		seen[label] = struct{}{}
	}
	classes := make([]int, 0, len(seen))
	for label := range seen {
		classes = append(classes, label)
	}
	sort.Ints(classes)

	index := make(map[int]int, len(classes))
	for i, label := range classes {
		index[label] = i
	}
	encoded := make([]int, len(labels))
	for i, label := range labels {
		encoded[i] = index[label]
	}
	return classes, encoded
}

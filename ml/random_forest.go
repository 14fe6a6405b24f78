package ml

import (
	"errors"
	"math/rand"
)

// RandomForest is a bagging ensemble of decision trees. All randomness is
// consumed at training time from a caller-supplied seed; prediction is a
// deterministic majority vote.
type RandomForest struct {
	Trees []DecisionTree `json:"trees"`
}

// TrainForest fits estimators trees, each on a bootstrap sample drawn from a
// per-tree RNG derived from seed. The same seed and data always produce the
// same forest.
func TrainForest(features [][]float64, labels []int, estimators, maxDepth int, seed int64) (*RandomForest, error) {
	if len(features) == 0 || len(labels) == 0 {
		return nil, errors.New("features or labels empty")
	}
	if len(features) != len(labels) {
		return nil, errors.New("features and labels size mismatch")
	}
	if estimators <= 0 {
		return nil, errors.New("estimators must be positive")
	}

	forest := &RandomForest{Trees: make([]DecisionTree, estimators)}
	for t := 0; t < estimators; t++ {
		rng := rand.New(rand.NewSource(seed + int64(t)))
		sampleX, sampleY := bootstrapSample(features, labels, rng)
		if err := forest.Trees[t].Train(sampleX, sampleY, maxDepth); err != nil {
			return nil, err
		}
	}
	return forest, nil
}

// Predict returns the majority vote over all trees, ties going to the
// lowest label so repeated calls agree.
func (f *RandomForest) Predict(features []float64) (int, error) {
	if len(f.Trees) == 0 {
		return 0, errors.New("model not trained")
	}

	votes := make(map[int]int)
	for i := range f.Trees {
		label, err := f.Trees[i].Predict(features)
		if err != nil {
			return 0, err
		}
		votes[label]++
	}

	bestLabel := 0
	bestVotes := -1
	for label, count := range votes {
		if count > bestVotes || (count == bestVotes && label < bestLabel) {
			bestVotes = count
			bestLabel = label
		}
	}
	return bestLabel, nil
}

func bootstrapSample(features [][]float64, labels []int, rng *rand.Rand) ([][]float64, []int) {
	n := len(features)
	sampleX := make([][]float64, n)
	sampleY := make([]int, n)
	for i := 0; i < n; i++ {
		idx := rng.Intn(n)
		sampleX[i] = features[idx]
		sampleY[i] = labels[idx]
	}
	return sampleX, sampleY
}

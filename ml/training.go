package ml

import (
	"fmt"
	"math/rand"
	"sort"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultFolds     = 5
	DefaultTestRatio = 0.2
	MetricAccuracy   = "accuracy"
	MetricMacroF1    = "macro_f1"
)

// Grid is the exhaustive hyperparameter search space. A max depth of 0
// means unlimited depth.
type Grid struct {
	Estimators []int `json:"estimators"`
	MaxDepths  []int `json:"max_depths"`
}

func (g Grid) empty() bool {
	return len(g.Estimators) == 0 || len(g.MaxDepths) == 0
}

// Hyperparams is one point of the grid, recorded in the artifact once
// chosen.
type Hyperparams struct {
	Estimators int `json:"estimators"`
	MaxDepth   int `json:"max_depth"`
}

// TrainConfig controls a training run. Seed drives every random decision
// (train/validation split, bootstrap sampling) so runs are repeatable.
type TrainConfig struct {
	Seed      int64
	TestRatio float64
	Folds     int
	Metric    string
	Grid      Grid
	Logger    *zap.Logger
}

func (cfg *TrainConfig) complete() error {
	if cfg.TestRatio <= 0 || cfg.TestRatio >= 1 {
		cfg.TestRatio = DefaultTestRatio
	}
	if cfg.Folds <= 1 {
		cfg.Folds = DefaultFolds
	}
	if cfg.Metric == "" {
		cfg.Metric = MetricAccuracy
	}
	if cfg.Metric != MetricAccuracy && cfg.Metric != MetricMacroF1 {
		return &TrainingError{Reason: fmt.Sprintf("unknown scoring metric %q", cfg.Metric)}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return nil
}

// Train fits the scaler and a random forest on labeled specs. It splits the
// data with the configured seed, runs an exhaustive grid search with k-fold
// cross-validation on the training partition, refits the winner on the full
// training partition, and evaluates it on the held-out validation rows.
func Train(specs []DeviceSpec, labels []int, cfg TrainConfig) (*Artifact, *Evaluation, error) {
	if err := cfg.complete(); err != nil {
		return nil, nil, err
	}
	if len(specs) != len(labels) {
		return nil, nil, &TrainingError{Reason: "specs and labels size mismatch"}
	}
	labelSet := distinctLabels(labels)
	if len(labelSet) < 2 {
		return nil, nil, &TrainingError{Reason: fmt.Sprintf("need at least 2 distinct classes, got %d", len(labelSet))}
	}
	if cfg.Grid.empty() {
		return nil, nil, &TrainingError{Reason: "hyperparameter grid is empty"}
	}
	if len(specs) < cfg.Folds*2 {
		return nil, nil, &TrainingError{Reason: fmt.Sprintf("%d rows is too few for %d-fold cross-validation", len(specs), cfg.Folds)}
	}

	trainSpecs, trainLabels, valSpecs, valLabels := splitDataset(specs, labels, cfg.TestRatio, cfg.Seed)

	// The scaler sees the training partition only, never validation rows.
	scaler, err := NewPreprocessor(cfg.Logger).Fit(trainSpecs)
	if err != nil {
		return nil, nil, err
	}
	trainX, err := applyAll(scaler, trainSpecs)
	if err != nil {
		return nil, nil, err
	}
	valX, err := applyAll(scaler, valSpecs)
	if err != nil {
		return nil, nil, err
	}

	best, bestScore, err := searchGrid(trainX, trainLabels, cfg)
	if err != nil {
		return nil, nil, err
	}
	cfg.Logger.Info("hyperparameter search finished",
		zap.Int("estimators", best.Estimators),
		zap.Int("max_depth", best.MaxDepth),
		zap.Float64("cv_score", bestScore))

	forest, err := TrainForest(trainX, trainLabels, best.Estimators, best.MaxDepth, cfg.Seed)
	if err != nil {
		return nil, nil, err
	}

	predicted := make([]int, len(valX))
	for i, vector := range valX {
		label, err := forest.Predict(vector)
		if err != nil {
			return nil, nil, err
		}
		predicted[i] = label
	}

	confusion := ConfusionMatrix(predicted, valLabels, labelSet)
	perClass := PerClassMetrics(confusion, labelSet)
	eval := &Evaluation{
		Accuracy:  Accuracy(predicted, valLabels),
		MacroF1:   macroF1(perClass),
		Labels:    labelSet,
		Confusion: confusion,
		PerClass:  perClass,
		CVScore:   bestScore,
		Chosen:    best,
	}

	artifact := &Artifact{
		Scaler:      scaler,
		Forest:      forest,
		Hyperparams: best,
		Labels:      labelSet,
		Seed:        cfg.Seed,
		TrainedAt:   time.Now().UTC(),
	}
	return artifact, eval, nil
}

// searchGrid scores every grid combination with k-fold cross-validation.
// Combinations are visited from least to most complex and only a strictly
// better score replaces the incumbent, so ties resolve to the smallest
// ensemble, then the smallest depth.
func searchGrid(features [][]float64, labels []int, cfg TrainConfig) (Hyperparams, float64, error) {
	estimators := append([]int(nil), cfg.Grid.Estimators...)
	depths := append([]int(nil), cfg.Grid.MaxDepths...)
	sort.Ints(estimators)
	sort.Slice(depths, func(i, j int) bool {
		// 0 is the unlimited-depth sentinel, ranked most complex.
		if depths[i] == 0 {
			return false
		}
		if depths[j] == 0 {
			return true
		}
		return depths[i] < depths[j]
	})

	best := Hyperparams{}
	bestScore := -1.0
	for _, est := range estimators {
		for _, depth := range depths {
			score, err := crossValidate(features, labels, est, depth, cfg)
			if err != nil {
				return Hyperparams{}, 0, err
			}
			cfg.Logger.Debug("evaluated grid point",
				zap.Int("estimators", est),
				zap.Int("max_depth", depth),
				zap.Float64("score", score))
			if score > bestScore {
				bestScore = score
				best = Hyperparams{Estimators: est, MaxDepth: depth}
			}
		}
	}
	return best, bestScore, nil
}

// crossValidate scores one combination as the mean metric over k contiguous
// folds. The rows were already shuffled by the seeded split, so contiguous
// folds are unbiased and reproducible.
func crossValidate(features [][]float64, labels []int, estimators, maxDepth int, cfg TrainConfig) (float64, error) {
	n := len(features)
	total := 0.0
	labelSet := distinctLabels(labels)

	for fold := 0; fold < cfg.Folds; fold++ {
		lo := fold * n / cfg.Folds
		hi := (fold + 1) * n / cfg.Folds

		foldTrainX := make([][]float64, 0, n-(hi-lo))
		foldTrainY := make([]int, 0, n-(hi-lo))
		foldTrainX = append(foldTrainX, features[:lo]...)
		foldTrainX = append(foldTrainX, features[hi:]...)
		foldTrainY = append(foldTrainY, labels[:lo]...)
		foldTrainY = append(foldTrainY, labels[hi:]...)

		forest, err := TrainForest(foldTrainX, foldTrainY, estimators, maxDepth, cfg.Seed+int64(fold)*1000)
		if err != nil {
			return 0, err
		}

		predicted := make([]int, hi-lo)
		for i := lo; i < hi; i++ {
			label, err := forest.Predict(features[i])
			if err != nil {
				return 0, err
			}
			predicted[i-lo] = label
		}

		switch cfg.Metric {
		case MetricMacroF1:
			confusion := ConfusionMatrix(predicted, labels[lo:hi], labelSet)
			total += macroF1(PerClassMetrics(confusion, labelSet))
		default:
			total += Accuracy(predicted, labels[lo:hi])
		}
	}
	return total / float64(cfg.Folds), nil
}

// splitDataset shuffles with the given seed and carves off the validation
// partition.
func splitDataset(specs []DeviceSpec, labels []int, testRatio float64, seed int64) ([]DeviceSpec, []int, []DeviceSpec, []int) {
	rng := rand.New(rand.NewSource(seed))
	indices := rng.Perm(len(specs))

	split := int(float64(len(specs)) * (1 - testRatio))
	trainSpecs := make([]DeviceSpec, 0, split)
	trainLabels := make([]int, 0, split)
	valSpecs := make([]DeviceSpec, 0, len(specs)-split)
	valLabels := make([]int, 0, len(specs)-split)
	for i, idx := range indices {
		if i < split {
			trainSpecs = append(trainSpecs, specs[idx])
			trainLabels = append(trainLabels, labels[idx])
		} else {
			valSpecs = append(valSpecs, specs[idx])
			valLabels = append(valLabels, labels[idx])
		}
	}
	return trainSpecs, trainLabels, valSpecs, valLabels
}

func applyAll(scaler *Scaler, specs []DeviceSpec) ([][]float64, error) {
	vectors := make([][]float64, len(specs))
	for i, spec := range specs {
		vector, err := scaler.Apply(spec)
		if err != nil {
			return nil, err
		}
		vectors[i] = vector
	}
	return vectors, nil
}

func distinctLabels(labels []int) []int {
	seen := make(map[int]bool)
	distinct := make([]int, 0, 4)
	for _, label := range labels {
		if !seen[label] {
			seen[label] = true
			distinct = append(distinct, label)
		}
	}
	sort.Ints(distinct)
	return distinct
}

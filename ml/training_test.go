package ml

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

// labeledSpecs builds a 4-class dataset where the tier follows RAM and
// battery capacity, with mild deterministic noise on the other attributes.
func labeledSpecs(n int) ([]DeviceSpec, []int) {
	specs := make([]DeviceSpec, 0, n)
	labels := make([]int, 0, n)
	for i := 0; i < n; i++ {
		label := i % 4
		spec := sampleSpec(i)
		spec.RAM = 512 + float64(label)*1024 + float64(i%5)*32
		spec.BatteryPower = 700 + float64(label)*400 + float64(i%7)*20
		spec.IntMemory = 8 + float64(label)*16
		specs = append(specs, spec)
		labels = append(labels, label)
	}
	return specs, labels
}

func smallGrid() Grid {
	return Grid{Estimators: []int{5, 10}, MaxDepths: []int{3, 0}}
}

func TestTrainRejectsSingleClass(t *testing.T) {
	specs, _ := labeledSpecs(20)
	labels := make([]int, len(specs))

	_, _, err := Train(specs, labels, TrainConfig{Seed: 1, Grid: smallGrid()})
	var trainErr *TrainingError
	require.True(t, errors.As(err, &trainErr), "expected *TrainingError, got %v", err)
}

func TestTrainRejectsEmptyGrid(t *testing.T) {
	specs, labels := labeledSpecs(20)

	_, _, err := Train(specs, labels, TrainConfig{Seed: 1})
	var trainErr *TrainingError
	require.True(t, errors.As(err, &trainErr), "expected *TrainingError, got %v", err)
}

func TestTrainSelectsDeterministically(t *testing.T) {
	specs, labels := labeledSpecs(60)
	cfg := TrainConfig{Seed: 7, Folds: 5, Grid: smallGrid()}

	_, firstEval, err := Train(specs, labels, cfg)
	require.NoError(t, err)
	_, secondEval, err := Train(specs, labels, cfg)
	require.NoError(t, err)

	require.Equal(t, firstEval.Chosen, secondEval.Chosen,
		"same seed and data must select the same grid combination")
	require.Equal(t, firstEval.CVScore, secondEval.CVScore)
}

func TestTrainedArtifactPredictsDeterministically(t *testing.T) {
	specs, labels := labeledSpecs(60)
	artifact, eval, err := Train(specs, labels, TrainConfig{Seed: 0, Grid: smallGrid()})
	require.NoError(t, err)
	require.Equal(t, []int{0, 1, 2, 3}, eval.Labels)

	probe := sampleSpec(3)
	probe.BatteryPower = 1500
	probe.RAM = 2048

	first, err := artifact.Predict(probe)
	require.NoError(t, err)
	second, err := artifact.Predict(probe)
	require.NoError(t, err)
	require.Equal(t, first, second, "identical spec must yield identical label")
	require.Contains(t, eval.Labels, first, "label must come from the training label set")
}

func TestTrainEvaluationShape(t *testing.T) {
	specs, labels := labeledSpecs(60)
	_, eval, err := Train(specs, labels, TrainConfig{Seed: 3, Grid: smallGrid()})
	require.NoError(t, err)

	require.Len(t, eval.Confusion, 4)
	for _, row := range eval.Confusion {
		require.Len(t, row, 4)
	}
	require.Len(t, eval.PerClass, 4)
	require.GreaterOrEqual(t, eval.Accuracy, 0.0)
	require.LessOrEqual(t, eval.Accuracy, 1.0)
}

func TestArtifactSaveLoadPredict(t *testing.T) {
	specs, labels := labeledSpecs(60)
	artifact, _, err := Train(specs, labels, TrainConfig{Seed: 0, Grid: Grid{Estimators: []int{5}, MaxDepths: []int{4}}})
	require.NoError(t, err)

	path := t.TempDir() + "/model.json"
	require.NoError(t, artifact.Save(path))

	loaded, err := LoadArtifact(path)
	require.NoError(t, err)
	require.Equal(t, artifact.Hyperparams, loaded.Hyperparams)

	probe := sampleSpec(5)
	want, err := artifact.Predict(probe)
	require.NoError(t, err)
	got, err := loaded.Predict(probe)
	require.NoError(t, err)
	require.Equal(t, want, got, "loaded artifact must predict like the original")
}

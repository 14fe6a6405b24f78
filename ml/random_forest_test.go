package ml

import (
	"reflect"
	"testing"
)

func forestTrainingData() ([][]float64, []int) {
	features := make([][]float64, 0, 40)
	labels := make([]int, 0, 40)
	for i := 0; i < 40; i++ {
		label := i % 4
		features = append(features, []float64{
			float64(label) + 0.1*float64(i%3),
			float64(label)*2 + 0.1*float64(i%5),
		})
		labels = append(labels, label)
	}
	return features, labels
}

func TestForestDeterministicForSeed(t *testing.T) {
	features, labels := forestTrainingData()

	first, err := TrainForest(features, labels, 7, 4, 42)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := TrainForest(features, labels, 7, 4, 42)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Fatal("same seed and data produced different forests")
	}

	probe := []float64{2.0, 4.1}
	a, err := first.Predict(probe)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := second.Predict(probe)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a != b {
		t.Fatalf("predictions differ: %d vs %d", a, b)
	}
}

func TestForestPredictRepeatable(t *testing.T) {
	features, labels := forestTrainingData()
	forest, err := TrainForest(features, labels, 5, 3, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	probe := []float64{1.05, 2.1}
	first, err := forest.Predict(probe)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < 10; i++ {
		label, err := forest.Predict(probe)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if label != first {
			t.Fatalf("prediction changed between calls: %d vs %d", first, label)
		}
	}
}

func TestForestRejectsBadInput(t *testing.T) {
	if _, err := TrainForest(nil, nil, 3, 2, 0); err == nil {
		t.Fatal("expected error for empty data")
	}
	features, labels := forestTrainingData()
	if _, err := TrainForest(features, labels, 0, 2, 0); err == nil {
		t.Fatal("expected error for zero estimators")
	}
}

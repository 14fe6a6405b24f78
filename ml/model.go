package ml

// Model is anything that maps a standardized feature vector to a price
// tier label.
type Model interface {
	Predict(features []float64) (int, error)
}

var (
	_ Model = (*DecisionTree)(nil)
	_ Model = (*RandomForest)(nil)
)

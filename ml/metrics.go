package ml

// ClassMetrics holds per-class evaluation numbers on the held-out
// validation partition.
type ClassMetrics struct {
	Label     int     `json:"label"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
}

// Evaluation is the acceptance artifact of a training run. It is reported,
// not persisted with the model.
type Evaluation struct {
	Accuracy  float64        `json:"accuracy"`
	MacroF1   float64        `json:"macro_f1"`
	Labels    []int          `json:"labels"`
	Confusion [][]int        `json:"confusion"`
	PerClass  []ClassMetrics `json:"per_class"`
	CVScore   float64        `json:"cv_score"`
	Chosen    Hyperparams    `json:"chosen"`
}

func Accuracy(predicted, truth []int) float64 {
	if len(truth) == 0 {
		return 0
	}
	correct := 0
	for i := range truth {
		if predicted[i] == truth[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(truth))
}

// ConfusionMatrix returns counts[t][p] = rows with true label labels[t]
// predicted as labels[p].
func ConfusionMatrix(predicted, truth, labels []int) [][]int {
	index := make(map[int]int, len(labels))
	for i, label := range labels {
		index[label] = i
	}

	matrix := make([][]int, len(labels))
	for i := range matrix {
		matrix[i] = make([]int, len(labels))
	}
	for i := range truth {
		t, okT := index[truth[i]]
		p, okP := index[predicted[i]]
		if okT && okP {
			matrix[t][p]++
		}
	}
	return matrix
}

// PerClassMetrics derives precision, recall and F1 for each label from a
// confusion matrix.
func PerClassMetrics(confusion [][]int, labels []int) []ClassMetrics {
	metrics := make([]ClassMetrics, len(labels))
	for i, label := range labels {
		truePositive := confusion[i][i]
		predictedPositive := 0
		actualPositive := 0
		for j := range labels {
			predictedPositive += confusion[j][i]
			actualPositive += confusion[i][j]
		}

		m := ClassMetrics{Label: label}
		if predictedPositive > 0 {
			m.Precision = float64(truePositive) / float64(predictedPositive)
		}
		if actualPositive > 0 {
			m.Recall = float64(truePositive) / float64(actualPositive)
		}
		if m.Precision+m.Recall > 0 {
			m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
		}
		metrics[i] = m
	}
	return metrics
}

func macroF1(metrics []ClassMetrics) float64 {
	if len(metrics) == 0 {
		return 0
	}
	sum := 0.0
	for _, m := range metrics {
		sum += m.F1
	}
	return sum / float64(len(metrics))
}

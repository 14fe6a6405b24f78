package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"pricetier/ml"
)

var (
	dataPath     string
	artifactPath string
	seed         int64
	folds        int
	testRatio    float64
	metric       string
	estimators   []int
	maxDepths    []int
)

var rootCmd = &cobra.Command{
	Use:   "train_model",
	Short: "Train the price-tier classifier and write a model artifact",
	Long: `Reads a labeled device dataset, fits the feature scaler and a random
forest with an exhaustive hyperparameter search, reports validation metrics
and writes the model artifact consumed by the inference service.`,
	RunE: runTraining,
}

func init() {
	rootCmd.Flags().StringVar(&dataPath, "data", "", "labeled training CSV")
	rootCmd.Flags().StringVar(&artifactPath, "out", "./models/pricetier.model", "artifact output path")
	rootCmd.Flags().Int64Var(&seed, "seed", 0, "random seed for split and bagging")
	rootCmd.Flags().IntVar(&folds, "folds", ml.DefaultFolds, "cross-validation folds")
	rootCmd.Flags().Float64Var(&testRatio, "test-ratio", ml.DefaultTestRatio, "held-out validation fraction")
	rootCmd.Flags().StringVar(&metric, "metric", ml.MetricAccuracy, "scoring metric (accuracy or macro_f1)")
	rootCmd.Flags().IntSliceVar(&estimators, "estimators", []int{100, 200}, "ensemble sizes to search")
	rootCmd.Flags().IntSliceVar(&maxDepths, "max-depths", []int{0, 10}, "tree depths to search, 0 = unlimited")
	_ = rootCmd.MarkFlagRequired("data")
}

func runTraining(cmd *cobra.Command, args []string) error {
	logger, err := zap.NewDevelopment()
	if err != nil {
		return err
	}
	defer logger.Sync()

	specs, labels, err := ml.LoadDataset(dataPath)
	if err != nil {
		return err
	}
	if labels == nil {
		return fmt.Errorf("dataset %s has no price_range column", dataPath)
	}
	logger.Info("dataset loaded",
		zap.String("path", dataPath),
		zap.Int("rows", len(specs)))

	cfg := ml.TrainConfig{
		Seed:      seed,
		TestRatio: testRatio,
		Folds:     folds,
		Metric:    metric,
		Grid:      ml.Grid{Estimators: estimators, MaxDepths: maxDepths},
		Logger:    logger,
	}

	artifact, eval, err := ml.Train(specs, labels, cfg)
	if err != nil {
		return err
	}

	printEvaluation(eval)

	if err := artifact.Save(artifactPath); err != nil {
		return err
	}
	fmt.Printf("model saved to %s\n", artifactPath)
	return nil
}

func printEvaluation(eval *ml.Evaluation) {
	fmt.Printf("selected: estimators=%d max_depth=%d (cv %s %.4f)\n",
		eval.Chosen.Estimators, eval.Chosen.MaxDepth, metric, eval.CVScore)
	fmt.Printf("validation accuracy=%.4f macro_f1=%.4f\n", eval.Accuracy, eval.MacroF1)

	fmt.Println("confusion matrix (rows = truth):")
	fmt.Printf("%8s", "")
	for _, label := range eval.Labels {
		fmt.Printf("%8d", label)
	}
	fmt.Println()
	for i, label := range eval.Labels {
		fmt.Printf("%8d", label)
		for j := range eval.Labels {
			fmt.Printf("%8d", eval.Confusion[i][j])
		}
		fmt.Println()
	}

	for _, m := range eval.PerClass {
		fmt.Printf("class %d: precision=%.4f recall=%.4f f1=%.4f\n",
			m.Label, m.Precision, m.Recall, m.F1)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

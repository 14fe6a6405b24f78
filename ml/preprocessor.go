package ml

import (
	"fmt"
	"math"

	"go.uber.org/zap"
)

// Scaler holds the standardization statistics fitted on the training
// partition. Means and Stddevs are indexed by Features, which records the
// ordering the scaler was fitted with.
type Scaler struct {
	Features []string  `json:"features"`
	Means    []float64 `json:"means"`
	Stddevs  []float64 `json:"stddevs"`
}

// Preprocessor fits a Scaler on training specs. The fitted scaler then
// applies the identical transform at inference time.
type Preprocessor struct {
	logger *zap.Logger
}

func NewPreprocessor(logger *zap.Logger) *Preprocessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Preprocessor{logger: logger}
}

// Fit computes per-feature mean and standard deviation from the given
// training specs only. A feature with zero variance gets stddev 1 so the
// transform stays defined; that almost always means a broken data extract,
// so it is logged.
func (p *Preprocessor) Fit(specs []DeviceSpec) (*Scaler, error) {
	if len(specs) == 0 {
		return nil, &ValidationError{Reason: "no training specs"}
	}

	names := FeatureNames()
	vectors := make([][]float64, len(specs))
	for i, spec := range specs {
		if err := ValidateSpec(spec); err != nil {
			return nil, err
		}
		vectors[i] = FeatureVector(spec)
	}

	means := make([]float64, len(names))
	for _, vector := range vectors {
		for j, value := range vector {
			means[j] += value
		}
	}
	for j := range means {
		means[j] /= float64(len(vectors))
	}

	stddevs := make([]float64, len(names))
	for _, vector := range vectors {
		for j, value := range vector {
			diff := value - means[j]
			stddevs[j] += diff * diff
		}
	}
	for j := range stddevs {
		stddevs[j] = math.Sqrt(stddevs[j] / float64(len(vectors)))
		if stddevs[j] == 0 {
			p.logger.Warn("feature has zero training variance, using stddev 1",
				zap.String("feature", names[j]),
				zap.Float64("mean", means[j]))
			stddevs[j] = 1
		}
	}

	return &Scaler{Features: names, Means: means, Stddevs: stddevs}, nil
}

// Apply standardizes one spec with the fitted statistics. It is a pure
// function of the scaler and the spec.
func (s *Scaler) Apply(spec DeviceSpec) ([]float64, error) {
	if err := s.checkOrdering(); err != nil {
		return nil, err
	}
	if err := ValidateSpec(spec); err != nil {
		return nil, err
	}

	vector := FeatureVector(spec)
	scaled := make([]float64, len(vector))
	for j, value := range vector {
		scaled[j] = (value - s.Means[j]) / s.Stddevs[j]
	}
	return scaled, nil
}

// checkOrdering rejects a scaler whose feature ordering no longer matches
// the code's. This catches artifacts produced by an incompatible build.
func (s *Scaler) checkOrdering() error {
	names := FeatureNames()
	if len(s.Features) != len(names) || len(s.Means) != len(names) || len(s.Stddevs) != len(names) {
		return fmt.Errorf("scaler dimensionality %d does not match %d features", len(s.Features), len(names))
	}
	for i, name := range names {
		if s.Features[i] != name {
			return fmt.Errorf("scaler feature %d is %q, expected %q", i, s.Features[i], name)
		}
	}
	return nil
}

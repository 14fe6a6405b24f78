package ml

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
)

// Artifact bundles the fitted scaler with the fitted forest and the chosen
// hyperparameters. It is written once by the training job and loaded once
// at inference service startup; after loading it is never mutated.
type Artifact struct {
	Scaler      *Scaler       `json:"scaler"`
	Forest      *RandomForest `json:"forest"`
	Hyperparams Hyperparams   `json:"hyperparams"`
	Labels      []int         `json:"labels"`
	Seed        int64         `json:"seed"`
	TrainedAt   time.Time     `json:"trained_at"`
}

func (a *Artifact) Save(path string) error {
	if a.Scaler == nil || a.Forest == nil {
		return errors.New("artifact is incomplete")
	}
	payload, err := json.Marshal(a)
	if err != nil {
		return errors.Wrap(err, "marshal artifact")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "create artifact dir")
	}
	return os.WriteFile(path, payload, 0o600)
}

func LoadArtifact(path string) (*Artifact, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read artifact")
	}
	var artifact Artifact
	if err := json.Unmarshal(payload, &artifact); err != nil {
		return nil, errors.Wrap(err, "decode artifact")
	}
	if artifact.Scaler == nil || artifact.Forest == nil || len(artifact.Forest.Trees) == 0 {
		return nil, errors.New("artifact is incomplete")
	}
	if err := artifact.Scaler.checkOrdering(); err != nil {
		return nil, errors.Wrap(err, "artifact incompatible with this build")
	}
	return &artifact, nil
}

// Predict scales one spec and runs the forest. For a fixed artifact the
// result depends only on the spec.
func (a *Artifact) Predict(spec DeviceSpec) (int, error) {
	vector, err := a.Scaler.Apply(spec)
	if err != nil {
		return 0, err
	}
	return a.Forest.Predict(vector)
}

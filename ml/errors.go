package ml

import "fmt"

// ValidationError reports a device spec that cannot be turned into a
// feature vector. The caller can correct the input and retry.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid device spec: %s", e.Reason)
	}
	return fmt.Sprintf("invalid device spec: field %s %s", e.Field, e.Reason)
}

// TrainingError reports a misconfigured training run. It is fatal to the run.
type TrainingError struct {
	Reason string
}

func (e *TrainingError) Error() string {
	return "training failed: " + e.Reason
}

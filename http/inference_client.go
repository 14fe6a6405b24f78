package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"pricetier/ml"
)

// PredictionClient is the inference-service boundary seen by the
// orchestrator.
type PredictionClient interface {
	Predict(ctx context.Context, spec ml.DeviceSpec) (int, error)
}

// InvalidInputError means the inference service rejected the spec itself.
// Retrying without changing the record cannot succeed.
type InvalidInputError struct {
	Message string
}

func (e *InvalidInputError) Error() string {
	return "inference rejected spec: " + e.Message
}

// UpstreamUnavailableError means the call to the inference service failed in
// transit or upstream. Prediction is side-effect free, so the caller may
// retry.
type UpstreamUnavailableError struct {
	Err     error
	Timeout bool
}

func (e *UpstreamUnavailableError) Error() string {
	if e.Timeout {
		return "inference service timed out: " + e.Err.Error()
	}
	return "inference service unavailable: " + e.Err.Error()
}

func (e *UpstreamUnavailableError) Unwrap() error { return e.Err }

// InferenceClient calls the inference service's predict endpoint over HTTP.
type InferenceClient struct {
	baseURL string
	client  *http.Client
}

func NewInferenceClient(baseURL string, timeout time.Duration) *InferenceClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &InferenceClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type predictResponse struct {
	PriceRange int    `json:"price_range"`
	Error      string `json:"error"`
}

func (c *InferenceClient) Predict(ctx context.Context, spec ml.DeviceSpec) (int, error) {
	payload, err := json.Marshal(spec)
	if err != nil {
		return 0, errors.Wrap(err, "encode predict request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/predict", bytes.NewReader(payload))
	if err != nil {
		return 0, errors.Wrap(err, "build predict request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		timeout := errors.Is(err, context.DeadlineExceeded)
		if urlErr, ok := err.(interface{ Timeout() bool }); ok && urlErr.Timeout() {
			timeout = true
		}
		return 0, &UpstreamUnavailableError{Err: err, Timeout: timeout}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return 0, &UpstreamUnavailableError{Err: err}
	}

	var decoded predictResponse
	switch {
	case resp.StatusCode == http.StatusOK:
		if err := json.Unmarshal(body, &decoded); err != nil {
			return 0, &UpstreamUnavailableError{Err: errors.Wrap(err, "decode predict response")}
		}
		return decoded.PriceRange, nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		_ = json.Unmarshal(body, &decoded)
		if decoded.Error == "" {
			decoded.Error = string(body)
		}
		return 0, &InvalidInputError{Message: decoded.Error}
	default:
		return 0, &UpstreamUnavailableError{
			Err: fmt.Errorf("predict returned status %d", resp.StatusCode),
		}
	}
}

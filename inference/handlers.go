// Package inference serves price-tier predictions from a trained model
// artifact.
package inference

import (
	"encoding/json"
	"errors"
	"net/http"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"pricetier/ml"
)

// SpecClassifier maps a raw device spec to a price tier. *ml.Artifact is
// the production implementation.
type SpecClassifier interface {
	Predict(spec ml.DeviceSpec) (int, error)
}

type handler struct {
	model  SpecClassifier
	cache  *lru.Cache[string, int]
	logger *zap.Logger
}

func newHandler(model SpecClassifier, cacheSize int, logger *zap.Logger) (*handler, error) {
	if cacheSize <= 0 {
		cacheSize = 1024
	}
	cache, err := lru.New[string, int](cacheSize)
	if err != nil {
		return nil, err
	}
	return &handler{model: model, cache: cache, logger: logger}, nil
}

func (h *handler) register(mux *http.ServeMux) {
	mux.HandleFunc("POST /predict", h.handlePredict)
	mux.HandleFunc("GET /healthz", h.handleHealthz)
}

func (h *handler) handleHealthz(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{"status": "ok"}
	if h.model == nil {
		status["status"] = "no model loaded"
	}
	respondJSON(w, http.StatusOK, status)
}

// handlePredict applies the loaded scaler and forest to the posted spec.
// The model is read-only shared state, so requests run fully in parallel.
// Prediction is pure for a fixed artifact, which makes the response
// cacheable by spec.
func (h *handler) handlePredict(w http.ResponseWriter, r *http.Request) {
	if h.model == nil {
		respondError(w, http.StatusServiceUnavailable, "no model artifact loaded")
		return
	}

	var spec ml.DeviceSpec
	if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := ml.ValidateSpec(spec); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	key := cacheKey(spec)
	if label, ok := h.cache.Get(key); ok {
		respondJSON(w, http.StatusOK, map[string]int{"price_range": label})
		return
	}

	label, err := h.model.Predict(spec)
	if err != nil {
		var invalid *ml.ValidationError
		if errors.As(err, &invalid) {
			respondError(w, http.StatusBadRequest, invalid.Error())
			return
		}
		h.logger.Error("prediction failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "prediction failed")
		return
	}

	h.cache.Add(key, label)
	respondJSON(w, http.StatusOK, map[string]int{"price_range": label})
}

// cacheKey is the canonical JSON of the spec; struct fields marshal in
// declaration order, so equal specs share a key.
func cacheKey(spec ml.DeviceSpec) string {
	payload, _ := json.Marshal(spec)
	return string(payload)
}

func respondJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

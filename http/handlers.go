package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"pricetier/db"
	"pricetier/ml"
)

var orchestrator *Orchestrator

// SetOrchestrator installs the workflow used by the predict endpoint.
func SetOrchestrator(o *Orchestrator) {
	orchestrator = o
}

func RegisterHandlers(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/health", handleHealth)
	mux.HandleFunc("POST /api/devices", handleCreateDevice)
	mux.HandleFunc("GET /api/devices", handleListDevices)
	mux.HandleFunc("GET /api/devices/{id}", handleGetDevice)
	mux.HandleFunc("POST /api/predict/{deviceId}", handlePredictDevice)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type createDeviceRequest struct {
	ID string `json:"id"`
	ml.DeviceSpec
}

func handleCreateDevice(w http.ResponseWriter, r *http.Request) {
	var payload createDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := ml.ValidateSpec(payload.DeviceSpec); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if payload.ID == "" {
		payload.ID = uuid.NewString()
	}

	record, err := db.CreateDevice(payload.ID, payload.DeviceSpec)
	if err != nil {
		if errors.Is(err, db.ErrDeviceExists) {
			respondError(w, http.StatusConflict, "device already exists")
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusCreated, record)
}

func handleListDevices(w http.ResponseWriter, r *http.Request) {
	records, err := db.ListDevices()
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, records)
}

func handleGetDevice(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	record, err := db.GetDevice(id)
	if err != nil {
		if errors.Is(err, db.ErrDeviceNotFound) {
			respondError(w, http.StatusNotFound, "device not found")
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, record)
}

func handlePredictDevice(w http.ResponseWriter, r *http.Request) {
	if orchestrator == nil {
		respondError(w, http.StatusServiceUnavailable, "prediction not configured")
		return
	}

	deviceID := r.PathValue("deviceId")
	record, err := orchestrator.PredictAndStore(r.Context(), deviceID)
	if err != nil {
		var invalid *InvalidInputError
		var upstream *UpstreamUnavailableError
		switch {
		case errors.Is(err, db.ErrDeviceNotFound):
			respondError(w, http.StatusNotFound, "device not found")
		case errors.As(err, &invalid):
			respondError(w, http.StatusBadRequest, invalid.Message)
		case errors.As(err, &upstream):
			status := http.StatusBadGateway
			if upstream.Timeout {
				status = http.StatusGatewayTimeout
			}
			respondError(w, status, upstream.Error())
		default:
			respondError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	respondJSON(w, http.StatusOK, record)
}

func respondJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

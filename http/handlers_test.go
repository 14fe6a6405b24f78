package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"pricetier/db"
)

func TestMain(m *testing.M) {
	dbPath := "./test.db"
	if err := db.InitDB(dbPath); err != nil {
		panic(err)
	}

	code := m.Run()

	db.Close()
	os.Remove(dbPath)
	os.Exit(code)
}

func newTestMux() *http.ServeMux {
	mux := http.NewServeMux()
	RegisterHandlers(mux)
	return mux
}

const deviceBody = `{
	"battery_power": 1500, "blue": 1, "clock_speed": 2.0, "dual_sim": 1,
	"fc": 5, "four_g": 1, "int_memory": 32, "m_dep": 0.6, "mobile_wt": 150,
	"n_cores": 4, "pc": 12, "px_height": 1080, "px_width": 1920, "ram": 2048,
	"sc_h": 14, "sc_w": 7, "talk_time": 12, "three_g": 1, "touch_screen": 1,
	"wifi": 1
}`

func createDevice(t *testing.T, mux *http.ServeMux, id string) db.DeviceRecord {
	t.Helper()
	body := `{"id":"` + id + `",` + deviceBody[1:]
	req := httptest.NewRequest(http.MethodPost, "/api/devices", strings.NewReader(body))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var record db.DeviceRecord
	if err := json.Unmarshal(w.Body.Bytes(), &record); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	return record
}

func TestHealthHandler(t *testing.T) {
	mux := newTestMux()
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestCreateAndGetDevice(t *testing.T) {
	mux := newTestMux()
	created := createDevice(t, mux, "handler-dev-1")
	if created.PriceRange != nil {
		t.Fatal("new device must have no price range")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/devices/handler-dev-1", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var fetched db.DeviceRecord
	if err := json.Unmarshal(w.Body.Bytes(), &fetched); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if fetched.Spec.RAM != 2048 {
		t.Fatalf("unexpected ram: %f", fetched.Spec.RAM)
	}
}

func TestCreateDeviceGeneratesID(t *testing.T) {
	mux := newTestMux()
	req := httptest.NewRequest(http.MethodPost, "/api/devices", strings.NewReader(deviceBody))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var record db.DeviceRecord
	if err := json.Unmarshal(w.Body.Bytes(), &record); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if record.ID == "" {
		t.Fatal("expected a generated id")
	}
}

func TestCreateDeviceRejectsInvalidSpec(t *testing.T) {
	mux := newTestMux()
	req := httptest.NewRequest(http.MethodPost, "/api/devices", strings.NewReader(`{"battery_power": 1500}`))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestGetDeviceNotFound(t *testing.T) {
	mux := newTestMux()
	req := httptest.NewRequest(http.MethodGet, "/api/devices/unknown-id", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestPredictDeviceEndpoint(t *testing.T) {
	mux := newTestMux()
	createDevice(t, mux, "handler-dev-predict")

	client := &fakeClient{label: 2}
	SetOrchestrator(NewOrchestrator(NewSQLiteStore(), client, nil))
	defer SetOrchestrator(nil)

	req := httptest.NewRequest(http.MethodPost, "/api/predict/handler-dev-predict", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var record db.DeviceRecord
	if err := json.Unmarshal(w.Body.Bytes(), &record); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if record.PriceRange == nil || *record.PriceRange != 2 {
		t.Fatalf("unexpected price range: %v", record.PriceRange)
	}
}

func TestPredictDeviceUnknownID(t *testing.T) {
	mux := newTestMux()
	SetOrchestrator(NewOrchestrator(NewSQLiteStore(), &fakeClient{label: 1}, nil))
	defer SetOrchestrator(nil)

	req := httptest.NewRequest(http.MethodPost, "/api/predict/unknown-id", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestPredictDeviceUpstreamDown(t *testing.T) {
	mux := newTestMux()
	createDevice(t, mux, "handler-dev-down")

	client := &fakeClient{err: &UpstreamUnavailableError{Err: errors.New("connection refused")}}
	SetOrchestrator(NewOrchestrator(NewSQLiteStore(), client, nil))
	defer SetOrchestrator(nil)

	req := httptest.NewRequest(http.MethodPost, "/api/predict/handler-dev-down", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	if w.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", w.Code)
	}

	// the stored record is untouched
	record, err := db.GetDevice("handler-dev-down")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record.PriceRange != nil {
		t.Fatal("price range must remain unset after upstream failure")
	}
}

func TestPredictDeviceUpstreamTimeout(t *testing.T) {
	mux := newTestMux()
	createDevice(t, mux, "handler-dev-timeout")

	client := &fakeClient{err: &UpstreamUnavailableError{Err: errors.New("deadline exceeded"), Timeout: true}}
	SetOrchestrator(NewOrchestrator(NewSQLiteStore(), client, nil))
	defer SetOrchestrator(nil)

	req := httptest.NewRequest(http.MethodPost, "/api/predict/handler-dev-timeout", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	if w.Code != http.StatusGatewayTimeout {
		t.Fatalf("expected 504, got %d", w.Code)
	}
}

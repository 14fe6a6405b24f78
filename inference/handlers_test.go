package inference

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"pricetier/ml"
)

type fakeModel struct {
	label int
	err   error
	calls int
}

func (f *fakeModel) Predict(spec ml.DeviceSpec) (int, error) {
	f.calls++
	if f.err != nil {
		return 0, f.err
	}
	return f.label, nil
}

const specBody = `{
	"battery_power": 1500, "blue": 1, "clock_speed": 2.0, "dual_sim": 1,
	"fc": 5, "four_g": 1, "int_memory": 32, "m_dep": 0.6, "mobile_wt": 150,
	"n_cores": 4, "pc": 12, "px_height": 1080, "px_width": 1920, "ram": 2048,
	"sc_h": 14, "sc_w": 7, "talk_time": 12, "three_g": 1, "touch_screen": 1,
	"wifi": 1
}`

func newTestMux(t *testing.T, model SpecClassifier) *http.ServeMux {
	t.Helper()
	h, err := newHandler(model, 16, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	mux := http.NewServeMux()
	h.register(mux)
	return mux
}

func postPredict(mux *http.ServeMux, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/predict", strings.NewReader(body))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func TestHandlePredict(t *testing.T) {
	mux := newTestMux(t, &fakeModel{label: 2})

	w := postPredict(mux, specBody)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var payload map[string]int
	if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if payload["price_range"] != 2 {
		t.Fatalf("unexpected label: %d", payload["price_range"])
	}
}

func TestHandlePredictDeterministic(t *testing.T) {
	model := &fakeModel{label: 1}
	mux := newTestMux(t, model)

	first := postPredict(mux, specBody)
	second := postPredict(mux, specBody)
	if first.Body.String() != second.Body.String() {
		t.Fatalf("identical specs returned different responses: %s vs %s",
			first.Body.String(), second.Body.String())
	}
	// second call was answered from the cache
	if model.calls != 1 {
		t.Fatalf("expected one model call, got %d", model.calls)
	}
}

func TestHandlePredictNoModel(t *testing.T) {
	mux := newTestMux(t, nil)

	w := postPredict(mux, specBody)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
}

func TestHandlePredictBadJSON(t *testing.T) {
	mux := newTestMux(t, &fakeModel{label: 1})

	w := postPredict(mux, "{not json")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestHandlePredictInvalidSpec(t *testing.T) {
	mux := newTestMux(t, &fakeModel{label: 1})

	w := postPredict(mux, `{"battery_power": 1500}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestHandlePredictWithTrainedArtifact(t *testing.T) {
	specs := make([]ml.DeviceSpec, 0, 60)
	labels := make([]int, 0, 60)
	for i := 0; i < 60; i++ {
		label := i % 4
		spec := ml.DeviceSpec{
			BatteryPower: 700 + float64(label)*400 + float64(i%7)*20,
			ClockSpeed:   1.0 + 0.1*float64(i%5),
			MobileWeight: 120 + float64(i%9),
			NumCores:     float64(2 + i%6),
			RAM:          512 + float64(label)*1024 + float64(i%5)*32,
			ThreeG:       1,
			WiFi:         1,
		}
		specs = append(specs, spec)
		labels = append(labels, label)
	}

	artifact, _, err := ml.Train(specs, labels, ml.TrainConfig{
		Seed: 0,
		Grid: ml.Grid{Estimators: []int{5}, MaxDepths: []int{4}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	mux := newTestMux(t, artifact)
	first := postPredict(mux, specBody)
	if first.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", first.Code, first.Body.String())
	}
	second := postPredict(mux, specBody)
	if first.Body.String() != second.Body.String() {
		t.Fatal("trained artifact gave a different label for the same spec")
	}
}

func TestHealthz(t *testing.T) {
	mux := newTestMux(t, &fakeModel{label: 1})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

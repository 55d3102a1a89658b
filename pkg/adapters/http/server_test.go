package http_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aretw0/lantern"
	lanternhttp "github.com/aretw0/lantern/pkg/adapters/http"
	"github.com/aretw0/lantern/pkg/adapters/memory"
	"github.com/aretw0/lantern/pkg/domain"
	"github.com/aretw0/lantern/pkg/observability"
	"github.com/aretw0/lantern/pkg/presentation"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ lanternhttp.Engine = (*lantern.Engine)(nil)

func newServer(t *testing.T) http.Handler {
	t.Helper()
	loader, err := memory.NewLoader(&domain.Experience{
		ID:   "tour",
		Name: "Tour",
		Groups: []domain.StepGroup{
			{ID: "g1", Steps: []domain.Step{{ID: "a"}, {ID: "b"}}},
			{ID: "g2", Steps: []domain.Step{{ID: "c"}}},
		},
	})
	require.NoError(t, err)
	headless, err := presentation.NewHeadless(&bytes.Buffer{})
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	eng, err := lantern.New(
		lantern.WithLoader(loader),
		lantern.WithBuilder(headless),
		lantern.WithMetrics(observability.NewMetrics(reg)),
	)
	require.NoError(t, err)
	return lanternhttp.NewHandler(eng, lanternhttp.WithGatherer(reg), lanternhttp.WithVersion("1.2.3\n"))
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeView(t *testing.T, w *httptest.ResponseRecorder) lanternhttp.StateView {
	t.Helper()
	var v lanternhttp.StateView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}

func TestAPI_Lifecycle(t *testing.T) {
	h := newServer(t)

	w := do(t, h, http.MethodPost, "/contexts/modal/experiences/tour", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	v := decodeView(t, w)
	assert.Equal(t, "renderingStep", v.State)
	assert.Equal(t, "tour", v.ExperienceID)
	assert.Equal(t, "a", v.StepID)
	assert.Equal(t, "0,0", v.StepIndex)

	w = do(t, h, http.MethodPost, "/contexts/modal/steps", `{"stepId":"c"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "c", decodeView(t, w).StepID)

	w = do(t, h, http.MethodPost, "/contexts/modal/steps", `{"offset":-1}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "b", decodeView(t, w).StepID)

	w = do(t, h, http.MethodGet, "/contexts", "")
	require.Equal(t, http.StatusOK, w.Code)
	var views []lanternhttp.StateView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &views))
	require.Len(t, views, 1)
	assert.Equal(t, "modal", views[0].Context)

	w = do(t, h, http.MethodDelete, "/contexts/modal?complete=true", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "idling", decodeView(t, w).State)

	w = do(t, h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `lantern_transitions_total{state="endingExperience"} 1`)
}

func TestAPI_Errors(t *testing.T) {
	h := newServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
	}{
		{"unknown experience", http.MethodPost, "/contexts/modal/experiences/nope", "", http.StatusNotFound},
		{"unknown context", http.MethodPost, "/contexts/embed/retry", "", http.StatusNotFound},
		{"bad step body", http.MethodPost, "/contexts/modal/steps", `{`, http.StatusBadRequest},
		{"ambiguous step", http.MethodPost, "/contexts/modal/steps", `{"offset":1,"index":0}`, http.StatusBadRequest},
		{"bad start body", http.MethodPost, "/contexts/modal/experiences/tour", `{`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, h, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			assert.Contains(t, w.Body.String(), `"error"`)
		})
	}
}

func TestAPI_Conflicts(t *testing.T) {
	h := newServer(t)

	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/contexts/modal/experiences/tour", "").Code)
	assert.Equal(t, http.StatusConflict, do(t, h, http.MethodPost, "/contexts/modal/experiences/tour", "").Code)
	assert.Equal(t, http.StatusConflict, do(t, h, http.MethodPost, "/contexts/modal/retry", "").Code)

	w := do(t, h, http.MethodPost, "/contexts/modal/steps", `{"stepId":"missing"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "idling", decodeView(t, do(t, h, http.MethodGet, "/contexts/modal", "")).State)
}

func TestAPI_ExperiencesAndGraph(t *testing.T) {
	h := newServer(t)

	w := do(t, h, http.MethodGet, "/experiences", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `["tour"]`, w.Body.String())

	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/contexts/modal/experiences/tour", "").Code)
	w = do(t, h, http.MethodGet, "/experiences/tour/graph?context=modal", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "graph TD")
	assert.Contains(t, w.Body.String(), "class step_a current")

	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/experiences/nope/graph", "").Code)
}

func TestAPI_HealthAndInfo(t *testing.T) {
	h := newServer(t)

	assert.JSONEq(t, `{"status":"ok"}`, do(t, h, http.MethodGet, "/health", "").Body.String())
	assert.JSONEq(t, `{"app":"lantern-http","version":"1.2.3"}`, do(t, h, http.MethodGet, "/info", "").Body.String())
}

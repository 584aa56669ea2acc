package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type checkerFunc func(ctx context.Context) error

func (f checkerFunc) Check(ctx context.Context) error { return f(ctx) }

func TestHealthHandler(t *testing.T) {
	tests := []struct {
		name       string
		checkers   map[string]HealthChecker
		wantStatus int
		wantBody   string
	}{
		{"no checkers", nil, http.StatusOK, "healthy"},
		{"all healthy", map[string]HealthChecker{
			"database": checkerFunc(func(context.Context) error { return nil }),
		}, http.StatusOK, "healthy"},
		{"one unhealthy", map[string]HealthChecker{
			"database": checkerFunc(func(context.Context) error { return nil }),
			"minio":    checkerFunc(func(context.Context) error { return errors.New("bucket missing") }),
		}, http.StatusServiceUnavailable, "unhealthy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			HealthHandler(tt.checkers, false)(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			var got HealthStatus
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
			assert.Equal(t, tt.wantBody, got.Status)
			assert.Len(t, got.Checks, len(tt.checkers))
		})
	}
}

func TestLivenessAndReadiness(t *testing.T) {
	rec := httptest.NewRecorder()
	LivenessHandler(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, "ok", rec.Body.String())

	rec = httptest.NewRecorder()
	ReadinessHandler(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ready"`)
}

func TestMetrics(t *testing.T) {
	m := NewMetrics()
	m.RecordEvaluation(true)
	m.RecordEvaluation(false)
	m.RecordEvaluation(false)
	m.RecordPersistFailure()

	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/fail" {
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/fail", nil))

	rec := httptest.NewRecorder()
	m.Handler(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.EqualValues(t, 2, got["requests_total"])
	assert.EqualValues(t, 1, got["requests_success"])
	assert.EqualValues(t, 1, got["requests_failed"])
	assert.EqualValues(t, 3, got["evaluations_total"])
	assert.EqualValues(t, 1, got["evaluations_ai"])
	assert.EqualValues(t, 2, got["evaluations_fallback"])
	assert.EqualValues(t, 1, got["history_persist_failures"])
	assert.EqualValues(t, 0, got["requests_in_progress"])
}

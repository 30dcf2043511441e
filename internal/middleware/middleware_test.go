package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tomorgan/trmnl-running-dashboard-api/internal/telemetry/metrics"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCors(t *testing.T) {
	handler := Cors()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/running-data", nil)
	req.Header.Set("Origin", "https://usetrmnl.com")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "GET", rec.Header().Get("Access-Control-Allow-Methods"))
}

func TestCors_Preflight(t *testing.T) {
	nextCalled := false
	handler := Cors()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nextCalled = true
	}))

	req := httptest.NewRequest(http.MethodOptions, "/running-data", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, nextCalled)
}

func TestPanicRecovery(t *testing.T) {
	metricsManager := metrics.NewTestManager()
	handler := PanicRecovery(metricsManager)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("malformed upstream payload")
	}))

	req := httptest.NewRequest(http.MethodGet, "/running-data", nil)
	rec := httptest.NewRecorder()
	require.NotPanics(t, func() {
		handler.ServeHTTP(rec, req)
	})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Internal server error"}`, rec.Body.String())
}

func TestRequestMetrics_StatusRecorded(t *testing.T) {
	metricsManager := metrics.NewTestManager()
	handler := RequestMetrics(metricsManager)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusTeapot, rec.Code)
}

package misc

import (
	"math/rand"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewQuotesManager_EmptyPool(t *testing.T) {
	_, err := NewQuotesManager(nil, rand.New(rand.NewSource(1)))
	require.Error(t, err)
}

func TestQuotesManager_RandomQuote(t *testing.T) {
	qm, err := NewQuotesManager(RunningQuotes, rand.New(rand.NewSource(42)))
	require.NoError(t, err)

	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		q := qm.RandomQuote()
		assert.Contains(t, RunningQuotes, q)
		seen[q] = struct{}{}
	}
	// a seeded source over 100 draws covers more than one quote
	assert.Greater(t, len(seen), 1)
}

func TestQuotesManager_SingleQuote(t *testing.T) {
	qm, err := NewQuotesManager([]string{"just run"}, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	assert.Equal(t, "just run", qm.RandomQuote())
}

func TestHandler_Health(t *testing.T) {
	fixedNow := time.Date(2026, 1, 19, 10, 30, 0, 0, time.UTC)
	handler := NewHandler("dev", func() time.Time { return fixedNow })

	r := mux.NewRouter()
	handler.SetupRoutes(r)

	req := httptest.NewRequest("GET", "/health", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(
		t,
		`{"status":"healthy","timestamp":"2026-01-19T10:30:00Z"}`,
		rr.Body.String(),
	)
}

func TestHandler_Version(t *testing.T) {
	handler := NewHandler("v1.2.3", nil)

	r := mux.NewRouter()
	handler.SetupRoutes(r)

	req := httptest.NewRequest("GET", "/version", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "v1.2.3", rr.Body.String())
}

func TestHandler_Root(t *testing.T) {
	handler := NewHandler("dev", nil)

	r := mux.NewRouter()
	handler.SetupRoutes(r)

	req := httptest.NewRequest("GET", "/", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "I'm OK")
}

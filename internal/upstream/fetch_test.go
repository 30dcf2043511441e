package upstream

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetch_Success(t *testing.T) {
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_fetch_errors"})

	got, err := Fetch(Propagate, "testsource", counter, func() ([]int, error) {
		return []int{1, 2, 3}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, got)
	assert.Equal(t, float64(0), testutil.ToFloat64(counter))
}

func TestFetch_DegradeAbsorbsError(t *testing.T) {
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_fetch_errors"})

	got, err := Fetch(Degrade, "testsource", counter, func() ([]int, error) {
		return nil, errors.New("upstream down")
	})
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Equal(t, float64(1), testutil.ToFloat64(counter))
}

func TestFetch_PropagateReturnsError(t *testing.T) {
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_fetch_errors"})
	fetchErr := errors.New("upstream down")

	_, err := Fetch(Propagate, "testsource", counter, func() (string, error) {
		return "", fetchErr
	})
	require.ErrorIs(t, err, fetchErr)
	assert.Equal(t, float64(1), testutil.ToFloat64(counter))
}

func TestFetch_NilCounter(t *testing.T) {
	_, err := Fetch(Degrade, "testsource", nil, func() (int, error) {
		return 0, errors.New("boom")
	})
	require.NoError(t, err)
}

package upstream

import (
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
)

// FailurePolicy decides what a failed upstream fetch means to the caller.
type FailurePolicy int

const (
	// Degrade absorbs the failure: the caller gets the zero value and a nil
	// error, the endpoint answers with partial data.
	Degrade FailurePolicy = iota
	// Propagate hands the failure back to the caller.
	Propagate
)

// Fetch runs one upstream call under the given failure policy. The error
// counter (optional) is incremented on every failure regardless of policy.
func Fetch[T any](policy FailurePolicy, source string, errCounter prometheus.Counter, fetch func() (T, error)) (T, error) {
	result, err := fetch()
	if err == nil {
		return result, nil
	}

	if errCounter != nil {
		errCounter.Inc()
	}

	if policy == Degrade {
		log.Errorf("%s fetch failed, continuing without its data: %s", source, err)
		var zero T
		return zero, nil
	}

	log.Errorf("%s fetch failed: %s", source, err)
	return result, err
}

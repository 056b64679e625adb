package sdk

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// clientMetrics is nil-safe: a client built without a registerer records nothing.
type clientMetrics struct {
	requests  *prometheus.CounterVec
	refreshes *prometheus.CounterVec
}

func newClientMetrics(reg prometheus.Registerer) *clientMetrics {
	if reg == nil {
		return nil
	}
	m := &clientMetrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "iamctl_sdk_requests_total",
			Help: "Requests sent to the IAM gateway by method and status.",
		}, []string{"method", "status"}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "iamctl_sdk_token_refresh_total",
			Help: "Access token refreshes triggered by 401 responses, by result.",
		}, []string{"result"}),
	}
	m.requests = registerOrReuse(reg, m.requests)
	m.refreshes = registerOrReuse(reg, m.refreshes)
	return m
}

// registerOrReuse lets several clients share one registry.
func registerOrReuse(reg prometheus.Registerer, c *prometheus.CounterVec) *prometheus.CounterVec {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing
			}
		}
	}
	return c
}

func (m *clientMetrics) observeRequest(method, status string) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, status).Inc()
}

func (m *clientMetrics) observeRefresh(result string) {
	if m == nil {
		return
	}
	m.refreshes.WithLabelValues(result).Inc()
}

package store

import (
	"context"
	"maps"
	"sync/atomic"
	"time"

	"github.com/terraconstructs/iamctl/pkg/sdk"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// HealthAPI probes one service's health endpoint.
type HealthAPI interface {
	Health(ctx context.Context, service string) (*sdk.HealthReport, error)
}

// ServiceHealth is the last probe result of one service.
type ServiceHealth struct {
	Service   string
	Healthy   bool
	Status    string
	Latency   time.Duration
	Report    *sdk.HealthReport
	Error     string
	CheckedAt time.Time
}

// HealthState is the dashboard: one entry per probed service.
type HealthState struct {
	Services  map[string]ServiceHealth
	CheckedAt time.Time
	IsLoading bool
}

// AllHealthy reports whether every probed service is healthy.
func (h HealthState) AllHealthy() bool {
	if len(h.Services) == 0 {
		return false
	}
	for _, s := range h.Services {
		if !s.Healthy {
			return false
		}
	}
	return true
}

// Health is the system health dashboard store.
type Health struct {
	api      HealthAPI
	services []string
	logger   *zap.Logger
	now      func() time.Time

	state *observable[HealthState]
	seq   atomic.Uint64
}

// NewHealth creates the dashboard for services, or sdk.HealthServices when empty.
func NewHealth(api HealthAPI, services []string, opts ...Option) *Health {
	o := applyOptions(opts)
	if len(services) == 0 {
		services = sdk.HealthServices
	}
	return &Health{
		api:      api,
		services: append([]string(nil), services...),
		logger:   o.logger.Named("health"),
		now:      o.now,
		state:    newObservable(HealthState{Services: map[string]ServiceHealth{}}),
	}
}

// State returns a snapshot of the dashboard.
func (h *Health) State() HealthState {
	return h.state.get()
}

// Subscribe registers fn for state changes and returns the unsubscribe func.
func (h *Health) Subscribe(fn func(HealthState)) func() {
	return h.state.subscribe(fn)
}

// Services returns the probed service names in display order.
func (h *Health) Services() []string {
	return append([]string(nil), h.services...)
}

// Refresh probes every service concurrently. A failing probe marks that
// service unhealthy and never aborts the others.
func (h *Health) Refresh(ctx context.Context) {
	seq := h.seq.Add(1)
	h.state.set(func(st *HealthState) {
		st.IsLoading = true
	})

	results := make([]ServiceHealth, len(h.services))
	var g errgroup.Group
	for i, service := range h.services {
		i, service := i, service
		g.Go(func() error {
			results[i] = h.probe(ctx, service)
			return nil
		})
	}
	_ = g.Wait()

	h.state.update(func(st *HealthState) bool {
		if seq != h.seq.Load() {
			return false
		}
		next := maps.Clone(st.Services)
		for _, r := range results {
			next[r.Service] = r
		}
		st.Services = next
		st.CheckedAt = h.now()
		st.IsLoading = false
		return true
	})
}

func (h *Health) probe(ctx context.Context, service string) ServiceHealth {
	start := time.Now()
	report, err := h.api.Health(ctx, service)
	result := ServiceHealth{
		Service:   service,
		Latency:   time.Since(start),
		CheckedAt: h.now(),
	}
	if err != nil {
		h.logger.Info("health probe failed", zap.String("service", service), zap.Error(err))
		result.Status = "unreachable"
		result.Error = sdk.ErrorMessage(err, err.Error())
		return result
	}
	result.Report = report
	result.Status = report.Status
	if result.Status == "" {
		result.Status = "ok"
	}
	result.Healthy = report.Healthy()
	return result
}

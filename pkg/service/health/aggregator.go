// Package health aggregates per-service health probes into a single
// process-level verdict.
package health

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/graphsearch/graphsearchd/internal/logger"
	"github.com/graphsearch/graphsearchd/pkg/service"
)

// Status is the overall process health verdict.
type Status string

const (
	StatusHealthy  Status = "healthy"
	StatusDegraded Status = "degraded"
)

// ServiceHealth is the probe result for one service.
type ServiceHealth struct {
	Healthy bool   `json:"healthy"`
	Error   string `json:"error,omitempty"`
}

// Report is the aggregated health of every registered service. The verdict
// is advisory only and never feeds back into lifecycle state.
type Report struct {
	Status   Status                   `json:"status"`
	Services map[string]ServiceHealth `json:"services"`
}

// DefaultTimeout bounds a single aggregation pass.
const DefaultTimeout = 5 * time.Second

// Aggregator fans Healthcheck out over a registry and reduces the results.
type Aggregator struct {
	registry *service.Registry
	timeout  time.Duration
}

// NewAggregator creates an aggregator with the given per-pass timeout.
// A zero or negative timeout falls back to DefaultTimeout.
func NewAggregator(registry *service.Registry, timeout time.Duration) *Aggregator {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Aggregator{registry: registry, timeout: timeout}
}

// Check probes every registered service concurrently. A Healthcheck error or
// panic marks that service unhealthy; neither is ever propagated to the
// caller. Overall status is healthy iff every service is healthy.
func (a *Aggregator) Check(ctx context.Context) Report {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	services := a.registry.All()
	results := make([]ServiceHealth, len(services))

	var wg sync.WaitGroup
	for i, svc := range services {
		i, svc := i, svc
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = probe(ctx, svc)
		}()
	}
	wg.Wait()

	report := Report{
		Status:   StatusHealthy,
		Services: make(map[string]ServiceHealth, len(services)),
	}
	for i, svc := range services {
		report.Services[svc.Name()] = results[i]
		if !results[i].Healthy {
			report.Status = StatusDegraded
		}
	}
	return report
}

// probe runs a single Healthcheck, converting panics into unhealthy results.
func probe(ctx context.Context, svc service.Service) (sh ServiceHealth) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("healthcheck panicked",
				logger.KeyService, svc.Name(),
				logger.KeyError, fmt.Sprintf("%v", r))
			sh = ServiceHealth{Healthy: false, Error: fmt.Sprintf("panic: %v", r)}
		}
	}()

	if err := svc.Healthcheck(ctx); err != nil {
		logger.Warn("healthcheck failed",
			logger.KeyService, svc.Name(),
			logger.KeyError, err)
		return ServiceHealth{Healthy: false, Error: err.Error()}
	}
	return ServiceHealth{Healthy: true}
}

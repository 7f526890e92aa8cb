// Package lifecycle drives coordinated startup and shutdown of every
// registered service and owns the process-wide lifecycle state.
package lifecycle

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/graphsearch/graphsearchd/internal/logger"
	"github.com/graphsearch/graphsearchd/internal/telemetry"
	"github.com/graphsearch/graphsearchd/pkg/service"
)

// State is the process-wide lifecycle state. It is written only by the
// Orchestrator, one transition at a time.
type State string

const (
	StateUninitialized State = "uninitialized"
	StateInitializing  State = "initializing"
	StateReady         State = "ready"
	StateShuttingDown  State = "shutting_down"
	StateStopped       State = "stopped"
	StateFailedStartup State = "failed_startup"
)

// Orchestrator coordinates concurrent bring-up and tear-down of all services
// in a registry. It is the single writer of the lifecycle state; everything
// else (readiness probes, CLI status) reads it through State().
//
// Startup is all-or-nothing: every Initialize must succeed for the process to
// reach Ready. Shutdown is best-effort: every Cleanup runs, failures are
// logged and swallowed.
type Orchestrator struct {
	registry *service.Registry

	mu    sync.Mutex
	state State
}

// NewOrchestrator creates an orchestrator over the given registry in the
// Uninitialized state.
func NewOrchestrator(registry *service.Registry) *Orchestrator {
	return &Orchestrator{
		registry: registry,
		state:    StateUninitialized,
	}
}

// State returns the current lifecycle state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
	logger.Debug("lifecycle state changed", logger.KeyState, string(s))
}

// Startup initializes every registered service concurrently.
//
// All services succeed: state becomes Ready. Any service fails: the sibling
// contexts are cancelled, Startup waits for every in-flight Initialize to
// return, state becomes FailedStartup, and the first error is returned. Each
// service's Initialize is invoked at most once.
func (o *Orchestrator) Startup(ctx context.Context) error {
	o.mu.Lock()
	if o.state != StateUninitialized {
		state := o.state
		o.mu.Unlock()
		return fmt.Errorf("startup not allowed from state %q", state)
	}
	o.state = StateInitializing
	o.mu.Unlock()

	services := o.registry.All()
	logger.Info("initializing services", "count", len(services))
	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	for _, svc := range services {
		svc := svc
		g.Go(func() error {
			spanCtx, span := telemetry.StartServiceSpan(gctx, "initialize", svc.Name())
			defer span.End()

			if err := svc.Initialize(spanCtx); err != nil {
				telemetry.RecordError(spanCtx, err)
				logger.Error("service initialization failed",
					logger.KeyService, svc.Name(),
					logger.KeyError, err)
				return fmt.Errorf("initialize %s: %w", svc.Name(), err)
			}
			logger.Info("service initialized", logger.KeyService, svc.Name())
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		o.setState(StateFailedStartup)
		return err
	}

	o.setState(StateReady)
	logger.Info("all services ready",
		"count", len(services),
		logger.KeyDurationMs, time.Since(start).Milliseconds())
	return nil
}

// Shutdown cleans up every registered service concurrently. It is callable
// from Ready (normal shutdown) and FailedStartup (release partially-acquired
// resources). Cleanup errors and panics are logged with the service name and
// swallowed; the final state is always Stopped. A second call is a no-op.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.mu.Lock()
	switch o.state {
	case StateStopped, StateShuttingDown:
		o.mu.Unlock()
		return nil
	case StateReady, StateFailedStartup:
		o.state = StateShuttingDown
		o.mu.Unlock()
	default:
		state := o.state
		o.mu.Unlock()
		return fmt.Errorf("shutdown not allowed from state %q", state)
	}

	services := o.registry.All()
	logger.Info("shutting down services", "count", len(services))

	var wg sync.WaitGroup
	for _, svc := range services {
		svc := svc
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					logger.Error("service cleanup panicked",
						logger.KeyService, svc.Name(),
						logger.KeyError, fmt.Sprintf("%v", r))
				}
			}()

			spanCtx, span := telemetry.StartServiceSpan(ctx, "cleanup", svc.Name())
			defer span.End()

			if err := svc.Cleanup(spanCtx); err != nil {
				telemetry.RecordError(spanCtx, err)
				logger.Error("service cleanup failed",
					logger.KeyService, svc.Name(),
					logger.KeyError, err)
				return
			}
			logger.Info("service cleaned up", logger.KeyService, svc.Name())
		}()
	}
	wg.Wait()

	o.setState(StateStopped)
	return nil
}

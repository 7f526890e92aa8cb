// Package service defines the contract every hosted subsystem implements and
// the registry the lifecycle orchestrator drives.
package service

import "context"

// Service is the contract for a hosted subsystem (fuzzy matcher, graph index,
// query optimizer). Implementations own their resources: Initialize acquires
// them, Cleanup releases them, Healthcheck probes them without mutating state.
//
// Initialize and Cleanup are each called at most once by the orchestrator.
// Healthcheck may be called at any time between the two and must be safe to
// call concurrently with request handling.
type Service interface {
	// Name returns the stable identifier used for registration, health
	// reports, and log fields.
	Name() string

	// Initialize acquires the service's resources. A non-nil error marks the
	// whole process startup as failed.
	Initialize(ctx context.Context) error

	// Cleanup releases the service's resources. Errors are logged by the
	// caller and never abort shutdown.
	Cleanup(ctx context.Context) error

	// Healthcheck reports whether the service can currently do useful work.
	// A non-nil error means unhealthy.
	Healthcheck(ctx context.Context) error
}

// Package index coordinates asynchronous index maintenance jobs across the
// hosted subsystems.
package index

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/graphsearch/graphsearchd/internal/logger"
	"github.com/graphsearch/graphsearchd/internal/telemetry"
)

// Rebuilder is implemented by subsystems that support index rebuilds.
type Rebuilder interface {
	Name() string
	Rebuild(ctx context.Context) error
}

// JobState is the lifecycle of a rebuild job.
type JobState string

const (
	JobRunning   JobState = "running"
	JobCompleted JobState = "completed"
	JobFailed    JobState = "failed"
)

// Job is one asynchronous rebuild run spanning every rebuilder.
type Job struct {
	ID         string     `json:"id"`
	State      JobState   `json:"state"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// RebuildManager runs rebuild jobs in the background and tracks their
// status. Only one job may run at a time.
type RebuildManager struct {
	mu         sync.Mutex
	rebuilders []Rebuilder
	jobs       map[string]*Job
	running    bool
}

// NewRebuildManager creates a manager over the given rebuilders.
func NewRebuildManager(rebuilders ...Rebuilder) *RebuildManager {
	return &RebuildManager{
		rebuilders: rebuilders,
		jobs:       make(map[string]*Job),
	}
}

// Start launches a rebuild job and returns its ID. Returns an error when a
// job is already in flight.
func (m *RebuildManager) Start(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return "", fmt.Errorf("a rebuild job is already running")
	}

	job := &Job{
		ID:        uuid.New().String(),
		State:     JobRunning,
		StartedAt: time.Now().UTC(),
	}
	m.jobs[job.ID] = job
	m.running = true

	// The job outlives the request that started it.
	go m.run(context.WithoutCancel(ctx), job.ID)

	logger.Info("index rebuild started", logger.KeyJobID, job.ID)
	return job.ID, nil
}

// Get returns the job with the given ID.
func (m *RebuildManager) Get(id string) (*Job, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[id]
	if !ok {
		return nil, false
	}
	copy := *job
	return &copy, true
}

func (m *RebuildManager) run(ctx context.Context, id string) {
	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanIndexRebuild)
	defer span.End()
	telemetry.SetAttributes(ctx, telemetry.IndexJobID(id))

	var failure error
	for _, r := range m.rebuilders {
		if err := r.Rebuild(ctx); err != nil {
			failure = fmt.Errorf("rebuild %s: %w", r.Name(), err)
			logger.Error("index rebuild failed",
				logger.KeyJobID, id,
				logger.KeyService, r.Name(),
				logger.KeyError, err)
			break
		}
		logger.Info("index rebuilt",
			logger.KeyJobID, id,
			logger.KeyService, r.Name())
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	job := m.jobs[id]
	now := time.Now().UTC()
	job.FinishedAt = &now
	if failure != nil {
		telemetry.RecordError(ctx, failure)
		job.State = JobFailed
		job.Error = failure.Error()
	} else {
		job.State = JobCompleted
	}
	m.running = false
}

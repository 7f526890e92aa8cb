package index

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRebuilder struct {
	name  string
	err   error
	block chan struct{}
	calls atomic.Int32
}

func (f *fakeRebuilder) Name() string { return f.name }

func (f *fakeRebuilder) Rebuild(ctx context.Context) error {
	f.calls.Add(1)
	if f.block != nil {
		<-f.block
	}
	return f.err
}

func waitForJob(t *testing.T, m *RebuildManager, id string) *Job {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		job, ok := m.Get(id)
		require.True(t, ok)
		if job.State != JobRunning {
			return job
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("job did not finish in time")
	return nil
}

func TestRebuildSuccess(t *testing.T) {
	a := &fakeRebuilder{name: "fuzzymatch"}
	b := &fakeRebuilder{name: "graphindex"}
	m := NewRebuildManager(a, b)

	id, err := m.Start(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, id)

	job := waitForJob(t, m, id)
	assert.Equal(t, JobCompleted, job.State)
	assert.Empty(t, job.Error)
	assert.NotNil(t, job.FinishedAt)
	assert.Equal(t, int32(1), a.calls.Load())
	assert.Equal(t, int32(1), b.calls.Load())
}

func TestRebuildFailureStopsChain(t *testing.T) {
	a := &fakeRebuilder{name: "fuzzymatch", err: errors.New("disk full")}
	b := &fakeRebuilder{name: "graphindex"}
	m := NewRebuildManager(a, b)

	id, err := m.Start(context.Background())
	require.NoError(t, err)

	job := waitForJob(t, m, id)
	assert.Equal(t, JobFailed, job.State)
	assert.Contains(t, job.Error, "fuzzymatch")
	assert.Equal(t, int32(0), b.calls.Load())
}

func TestOnlyOneJobAtATime(t *testing.T) {
	block := make(chan struct{})
	a := &fakeRebuilder{name: "slow", block: block}
	m := NewRebuildManager(a)

	id, err := m.Start(context.Background())
	require.NoError(t, err)

	_, err = m.Start(context.Background())
	assert.Error(t, err)

	close(block)
	job := waitForJob(t, m, id)
	assert.Equal(t, JobCompleted, job.State)

	// A new job is allowed once the first finished.
	_, err = m.Start(context.Background())
	assert.NoError(t, err)
}

func TestGetUnknownJob(t *testing.T) {
	m := NewRebuildManager()
	_, ok := m.Get("nope")
	assert.False(t, ok)
}

package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graphsearch/graphsearchd/pkg/service"
)

type probeService struct {
	name      string
	healthErr error
	panics    bool
	block     time.Duration
}

func (p *probeService) Name() string                         { return p.name }
func (p *probeService) Initialize(ctx context.Context) error { return nil }
func (p *probeService) Cleanup(ctx context.Context) error    { return nil }

func (p *probeService) Healthcheck(ctx context.Context) error {
	if p.panics {
		panic("probe exploded")
	}
	if p.block > 0 {
		select {
		case <-time.After(p.block):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return p.healthErr
}

func registryWith(t *testing.T, svcs ...*probeService) *service.Registry {
	t.Helper()
	reg := service.NewRegistry()
	for _, s := range svcs {
		require.NoError(t, reg.Register(s))
	}
	return reg
}

func TestCheckAllHealthy(t *testing.T) {
	reg := registryWith(t,
		&probeService{name: "fuzzymatch"},
		&probeService{name: "graphindex"},
	)
	agg := NewAggregator(reg, time.Second)

	report := agg.Check(context.Background())

	assert.Equal(t, StatusHealthy, report.Status)
	assert.Len(t, report.Services, 2)
	assert.True(t, report.Services["fuzzymatch"].Healthy)
	assert.True(t, report.Services["graphindex"].Healthy)
}

func TestCheckOneUnhealthy(t *testing.T) {
	reg := registryWith(t,
		&probeService{name: "fuzzymatch"},
		&probeService{name: "graphindex", healthErr: errors.New("db closed")},
	)
	agg := NewAggregator(reg, time.Second)

	report := agg.Check(context.Background())

	assert.Equal(t, StatusDegraded, report.Status)
	assert.True(t, report.Services["fuzzymatch"].Healthy)
	assert.False(t, report.Services["graphindex"].Healthy)
	assert.Equal(t, "db closed", report.Services["graphindex"].Error)
}

func TestCheckPanicRecorded(t *testing.T) {
	reg := registryWith(t,
		&probeService{name: "queryopt", panics: true},
	)
	agg := NewAggregator(reg, time.Second)

	report := agg.Check(context.Background())

	assert.Equal(t, StatusDegraded, report.Status)
	assert.False(t, report.Services["queryopt"].Healthy)
	assert.Contains(t, report.Services["queryopt"].Error, "panic")
}

func TestCheckTimeout(t *testing.T) {
	reg := registryWith(t,
		&probeService{name: "slow", block: 500 * time.Millisecond},
	)
	agg := NewAggregator(reg, 50*time.Millisecond)

	start := time.Now()
	report := agg.Check(context.Background())

	assert.Less(t, time.Since(start), 400*time.Millisecond)
	assert.Equal(t, StatusDegraded, report.Status)
	assert.False(t, report.Services["slow"].Healthy)
}

func TestCheckEmptyRegistry(t *testing.T) {
	agg := NewAggregator(service.NewRegistry(), 0)

	report := agg.Check(context.Background())

	assert.Equal(t, StatusHealthy, report.Status)
	assert.Empty(t, report.Services)
}

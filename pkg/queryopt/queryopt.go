// Package queryopt hosts the query optimization subsystem: a rule-based
// rewriter with an in-memory LRU plan cache.
package queryopt

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/graphsearch/graphsearchd/internal/logger"
	"github.com/graphsearch/graphsearchd/internal/telemetry"
)

// ServiceName is the name this subsystem registers under.
const ServiceName = "queryopt"

// Config configures the query optimizer service.
type Config struct {
	// CacheSize is the maximum number of cached plans
	CacheSize int `mapstructure:"cache_size" validate:"omitempty,min=1" yaml:"cache_size"`
}

// Result is an optimization outcome: the plan plus cache accounting.
type Result struct {
	QueryHash string `json:"query_hash"`
	CacheHit  bool   `json:"cache_hit"`
	Plan      *Plan  `json:"plan"`
}

// Stats describes the optimizer's cache behavior.
type Stats struct {
	CacheEntries int    `json:"cache_entries"`
	CacheSize    int    `json:"cache_size"`
	Hits         uint64 `json:"hits"`
	Misses       uint64 `json:"misses"`
}

// Service implements service.Service for the query optimizer. The optimizer
// holds no external resources; Initialize allocates the cache and Cleanup
// discards it.
type Service struct {
	mu    sync.RWMutex
	cfg   Config
	cache *planCache

	hits   atomic.Uint64
	misses atomic.Uint64
}

// New creates an uninitialized query optimizer service.
func New(cfg Config) *Service {
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 256
	}
	return &Service{cfg: cfg}
}

// Name implements service.Service.
func (s *Service) Name() string { return ServiceName }

// Initialize allocates the plan cache.
func (s *Service) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cache != nil {
		return fmt.Errorf("query optimizer already initialized")
	}
	s.cache = newPlanCache(s.cfg.CacheSize)
	logger.Info("query optimizer ready", "cache_size", s.cfg.CacheSize)
	return nil
}

// Cleanup flushes and drops the plan cache.
func (s *Service) Cleanup(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cache == nil {
		return nil
	}
	s.cache.flush()
	s.cache = nil
	return nil
}

// Healthcheck reports whether the optimizer is initialized.
func (s *Service) Healthcheck(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.cache == nil {
		return fmt.Errorf("query optimizer not initialized")
	}
	return nil
}

// Optimize normalizes the query, consults the plan cache, and on a miss
// parses and rewrites the query into a fresh plan.
func (s *Service) Optimize(ctx context.Context, query string) (*Result, error) {
	s.mu.RLock()
	cache := s.cache
	s.mu.RUnlock()

	if cache == nil {
		return nil, fmt.Errorf("query optimizer not initialized")
	}
	if query == "" {
		return nil, fmt.Errorf("empty query")
	}

	normalized := normalize(query)
	hash := hashQuery(normalized)

	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanQueryOptimize)
	defer span.End()
	telemetry.SetAttributes(ctx, telemetry.QueryHash(hash))

	if plan, ok := cache.get(hash); ok {
		s.hits.Add(1)
		telemetry.SetAttributes(ctx, telemetry.QueryCacheHit(true))
		return &Result{QueryHash: hash, CacheHit: true, Plan: plan}, nil
	}
	s.misses.Add(1)
	telemetry.SetAttributes(ctx, telemetry.QueryCacheHit(false))

	parsed, err := parseQuery(normalized)
	if err != nil {
		telemetry.RecordError(ctx, err)
		return nil, fmt.Errorf("invalid query: %w", err)
	}

	plan := optimize(parsed)
	cache.put(hash, plan)

	logger.Debug("plan computed",
		logger.KeyQuery, normalized,
		"rules", len(plan.RulesApplied))
	return &Result{QueryHash: hash, CacheHit: false, Plan: plan}, nil
}

// Stats returns cache accounting.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.cache == nil {
		return Stats{}, fmt.Errorf("query optimizer not initialized")
	}
	return Stats{
		CacheEntries: s.cache.len(),
		CacheSize:    s.cfg.CacheSize,
		Hits:         s.hits.Load(),
		Misses:       s.misses.Load(),
	}, nil
}

// Rebuild flushes the plan cache so subsequent queries are re-planned.
func (s *Service) Rebuild(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.cache == nil {
		return fmt.Errorf("query optimizer not initialized")
	}
	s.cache.flush()
	logger.Info("plan cache flushed")
	return nil
}

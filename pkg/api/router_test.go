package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/graphsearch/graphsearchd/pkg/api/auth"
	"github.com/graphsearch/graphsearchd/pkg/fuzzymatch"
	"github.com/graphsearch/graphsearchd/pkg/graphindex"
	"github.com/graphsearch/graphsearchd/pkg/index"
	"github.com/graphsearch/graphsearchd/pkg/metrics"
	prommetrics "github.com/graphsearch/graphsearchd/pkg/metrics/prometheus"
	"github.com/graphsearch/graphsearchd/pkg/queryopt"
	"github.com/graphsearch/graphsearchd/pkg/service"
	"github.com/graphsearch/graphsearchd/pkg/service/health"
	"github.com/graphsearch/graphsearchd/pkg/service/lifecycle"
)

// testStack wires real subsystems behind a router the way main does.
type testStack struct {
	router       http.Handler
	orchestrator *lifecycle.Orchestrator
}

func newTestStack(t *testing.T, jwt *auth.JWTService) *testStack {
	t.Helper()

	fuzzy := fuzzymatch.New(fuzzymatch.Config{Path: t.TempDir()})
	graph := graphindex.New(graphindex.Config{Path: t.TempDir()})
	qopt := queryopt.New(queryopt.Config{})

	reg := service.NewRegistry()
	for _, svc := range []service.Service{fuzzy, graph, qopt} {
		if err := reg.Register(svc); err != nil {
			t.Fatalf("Register failed: %v", err)
		}
	}

	orch := lifecycle.NewOrchestrator(reg)
	if err := orch.Startup(context.Background()); err != nil {
		t.Fatalf("Startup failed: %v", err)
	}
	t.Cleanup(func() {
		_ = orch.Shutdown(context.Background())
	})

	cfg := APIConfig{}
	cfg.ApplyDefaults()

	router := NewRouter(cfg, Deps{
		Version:      "test",
		Orchestrator: orch,
		Health:       health.NewAggregator(reg, time.Second),
		FuzzyMatch:   fuzzy,
		GraphIndex:   graph,
		QueryOpt:     qopt,
		Rebuilds:     index.NewRebuildManager(fuzzy, graph, qopt),
		JWT:          jwt,
	})

	return &testStack{router: router, orchestrator: orch}
}

func (s *testStack) do(t *testing.T, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()

	var envelope struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("response is not valid JSON: %v\n%s", err, rec.Body.String())
	}
	if v != nil {
		if err := json.Unmarshal(envelope.Data, v); err != nil {
			t.Fatalf("failed to decode data: %v\n%s", err, rec.Body.String())
		}
	}
}

func TestRootEndpoint(t *testing.T) {
	s := newTestStack(t, nil)

	rec := s.do(t, http.MethodGet, "/", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body struct {
		Service   string `json:"service"`
		Version   string `json:"version"`
		Status    string `json:"status"`
		StartedAt string `json:"started_at"`
		Uptime    string `json:"uptime"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if body.Service != "graphsearchd" || body.Status != "running" {
		t.Errorf("unexpected banner: %+v", body)
	}
	if _, err := time.Parse(time.RFC3339, body.StartedAt); err != nil {
		t.Errorf("started_at is not RFC3339: %q", body.StartedAt)
	}
	if _, err := time.ParseDuration(body.Uptime); err != nil {
		t.Errorf("uptime is not a duration: %q", body.Uptime)
	}
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestStack(t, nil)

	rec := s.do(t, http.MethodGet, "/health", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body struct {
		Status   string          `json:"status"`
		Services map[string]bool `json:"services"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if body.Status != "healthy" {
		t.Errorf("expected healthy, got %q", body.Status)
	}
	for _, name := range []string{"fuzzymatch", "graphindex", "queryopt"} {
		if !body.Services[name] {
			t.Errorf("expected %s healthy", name)
		}
	}
}

func TestReadinessEndpoint(t *testing.T) {
	s := newTestStack(t, nil)

	rec := s.do(t, http.MethodGet, "/health/ready", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 when ready, got %d", rec.Code)
	}

	// After shutdown the process is no longer ready.
	if err := s.orchestrator.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}
	rec = s.do(t, http.MethodGet, "/health/ready", nil, nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 after shutdown, got %d", rec.Code)
	}
}

func TestFuzzyMatchRoundTrip(t *testing.T) {
	s := newTestStack(t, nil)

	rec := s.do(t, http.MethodPost, "/api/v1/fuzzy-match/entities", []map[string]any{
		{"id": "e1", "name": "Grace Hopper", "aliases": []string{"Amazing Grace"}},
		{"id": "e2", "name": "Alan Turing"},
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("entities: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = s.do(t, http.MethodPost, "/api/v1/fuzzy-match/search", map[string]any{
		"query": "grace", "limit": 5, "fuzziness": 1,
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("search: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var result struct {
		Matches []struct {
			ID string `json:"id"`
		} `json:"matches"`
	}
	decodeData(t, rec, &result)
	if len(result.Matches) == 0 {
		t.Fatal("expected at least one match")
	}
}

func TestFuzzyMatchSearchValidation(t *testing.T) {
	s := newTestStack(t, nil)

	rec := s.do(t, http.MethodPost, "/api/v1/fuzzy-match/search", map[string]any{}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty query, got %d", rec.Code)
	}
}

func TestGraphSearchRoundTrip(t *testing.T) {
	s := newTestStack(t, nil)

	rec := s.do(t, http.MethodPost, "/api/v1/graph-search/edges", []map[string]any{
		{"from": "a", "to": "b", "label": "knows"},
		{"from": "b", "to": "c"},
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("edges: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = s.do(t, http.MethodPost, "/api/v1/graph-search/neighbors", map[string]any{
		"node": "a", "depth": 2,
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("neighbors: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var neighbors struct {
		Neighbors []struct {
			Node  string `json:"node"`
			Depth int    `json:"depth"`
		} `json:"neighbors"`
	}
	decodeData(t, rec, &neighbors)
	if len(neighbors.Neighbors) != 2 {
		t.Fatalf("expected 2 neighbors, got %d", len(neighbors.Neighbors))
	}

	rec = s.do(t, http.MethodPost, "/api/v1/graph-search/path", map[string]any{
		"from": "a", "to": "c",
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("path: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var path struct {
		Path []string `json:"path"`
		Hops int      `json:"hops"`
	}
	decodeData(t, rec, &path)
	if path.Hops != 2 {
		t.Errorf("expected 2 hops, got %d", path.Hops)
	}
}

func TestGraphSearchPathNotFound(t *testing.T) {
	s := newTestStack(t, nil)

	rec := s.do(t, http.MethodPost, "/api/v1/graph-search/path", map[string]any{
		"from": "x", "to": "y",
	}, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown path, got %d", rec.Code)
	}
}

func TestQueryOptimizeEndpoint(t *testing.T) {
	s := newTestStack(t, nil)

	rec := s.do(t, http.MethodPost, "/api/v1/query/optimize", map[string]any{
		"query": "SELECT entities WHERE kind = person LIMIT 5",
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var result struct {
		CacheHit bool `json:"cache_hit"`
		Plan     struct {
			Steps []struct {
				Op string `json:"op"`
			} `json:"steps"`
		} `json:"plan"`
	}
	decodeData(t, rec, &result)
	if result.CacheHit {
		t.Error("first optimize should be a cache miss")
	}
	if len(result.Plan.Steps) == 0 {
		t.Error("expected a non-empty plan")
	}

	rec = s.do(t, http.MethodPost, "/api/v1/query/optimize", map[string]any{
		"query": "SELECT entities WHERE kind = person LIMIT 5",
	}, nil)
	decodeData(t, rec, &result)
	if !result.CacheHit {
		t.Error("second optimize should be a cache hit")
	}
}

func TestIndexStatsEndpoint(t *testing.T) {
	s := newTestStack(t, nil)

	rec := s.do(t, http.MethodGet, "/api/v1/index/stats", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var stats struct {
		FuzzyMatch struct {
			Documents uint64 `json:"documents"`
		} `json:"fuzzymatch"`
		GraphIndex struct {
			Edges int64 `json:"edges"`
		} `json:"graphindex"`
		QueryOpt struct {
			CacheSize int `json:"cache_size"`
		} `json:"queryopt"`
	}
	decodeData(t, rec, &stats)
	if stats.QueryOpt.CacheSize == 0 {
		t.Error("expected non-zero plan cache size")
	}
}

func TestIndexRebuildEndpoint(t *testing.T) {
	s := newTestStack(t, nil)

	rec := s.do(t, http.MethodPost, "/api/v1/index/rebuild", nil, nil)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}

	var started struct {
		JobID string `json:"job_id"`
	}
	decodeData(t, rec, &started)
	if started.JobID == "" {
		t.Fatal("expected a job id")
	}

	// Poll until the job finishes.
	deadline := time.Now().Add(5 * time.Second)
	for {
		rec = s.do(t, http.MethodGet, "/api/v1/index/rebuild/"+started.JobID, nil, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("status: expected 200, got %d", rec.Code)
		}
		var job struct {
			State string `json:"state"`
			Error string `json:"error"`
		}
		decodeData(t, rec, &job)
		if job.State == "completed" {
			break
		}
		if job.State == "failed" {
			t.Fatalf("rebuild failed: %s", job.Error)
		}
		if time.Now().After(deadline) {
			t.Fatal("rebuild did not finish in time")
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestIndexRebuildUnknownJob(t *testing.T) {
	s := newTestStack(t, nil)

	rec := s.do(t, http.MethodGet, "/api/v1/index/rebuild/not-a-job", nil, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestJWTProtectsMutatingRoutes(t *testing.T) {
	jwtService, err := auth.NewJWTService(auth.JWTConfig{
		Secret: "router-test-secret-which-is-32-b!",
		Issuer: "graphsearchd",
	})
	if err != nil {
		t.Fatalf("NewJWTService failed: %v", err)
	}
	s := newTestStack(t, jwtService)

	// Mutating route without a token is rejected.
	rec := s.do(t, http.MethodPost, "/api/v1/index/rebuild", nil, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}

	// Read-only routes stay open.
	rec = s.do(t, http.MethodGet, "/api/v1/index/stats", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for unauthenticated read, got %d", rec.Code)
	}

	token, err := jwtService.GenerateToken("tester", "admin")
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}
	rec = s.do(t, http.MethodPost, "/api/v1/index/rebuild", nil, map[string]string{
		"Authorization": fmt.Sprintf("Bearer %s", token),
	})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202 with token, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestNewRouterSharedMetricHandles(t *testing.T) {
	metrics.ResetForTesting()
	metrics.InitRegistry()
	t.Cleanup(metrics.ResetForTesting)

	cfg := APIConfig{}
	cfg.ApplyDefaults()

	// One set of collector handles per process; routers only borrow them.
	deps := Deps{
		Version:         "test",
		HTTPMetrics:     prommetrics.NewHTTPMetrics(),
		SearchMetrics:   prommetrics.NewSearchMetrics(),
		GraphMetrics:    prommetrics.NewGraphMetrics(),
		QueryOptMetrics: prommetrics.NewQueryOptMetrics(),
	}

	if NewRouter(cfg, deps) == nil {
		t.Fatal("expected a router")
	}

	// A second router over the same handles must not re-register collectors.
	if NewRouter(cfg, deps) == nil {
		t.Fatal("expected a second router")
	}
}

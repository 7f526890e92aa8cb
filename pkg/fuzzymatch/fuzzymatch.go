// Package fuzzymatch hosts the fuzzy entity-matching subsystem backed by a
// Bleve full-text index.
package fuzzymatch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/graphsearch/graphsearchd/internal/logger"
	"github.com/graphsearch/graphsearchd/internal/telemetry"
)

// ServiceName is the name this subsystem registers under.
const ServiceName = "fuzzymatch"

// Config configures the fuzzy match service.
type Config struct {
	// Path is the directory holding the Bleve index
	Path string `mapstructure:"path" validate:"required" yaml:"path"`

	// DefaultLimit is the result count used when a search omits one
	DefaultLimit int `mapstructure:"default_limit" validate:"omitempty,min=1" yaml:"default_limit"`

	// DefaultFuzziness is the edit distance used when a search omits one
	DefaultFuzziness int `mapstructure:"default_fuzziness" validate:"omitempty,min=0,max=2" yaml:"default_fuzziness"`
}

// Entity is an indexable named entity with optional aliases.
type Entity struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Aliases []string `json:"aliases,omitempty"`
}

// Match is a single ranked search result.
type Match struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// Stats describes the current index contents.
type Stats struct {
	Documents uint64 `json:"documents"`
	Path      string `json:"path"`
}

// Service implements service.Service over a Bleve entity index. The index is
// opened in Initialize and closed in Cleanup; Search and IndexEntities return
// an error when called outside that window.
type Service struct {
	mu    sync.RWMutex
	cfg   Config
	index bleve.Index
}

// New creates an uninitialized fuzzy match service.
func New(cfg Config) *Service {
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = 10
	}
	if cfg.DefaultFuzziness <= 0 {
		cfg.DefaultFuzziness = 1
	}
	return &Service{cfg: cfg}
}

// Name implements service.Service.
func (s *Service) Name() string { return ServiceName }

// Initialize opens the entity index, creating it if it does not exist.
func (s *Service) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.index != nil {
		return fmt.Errorf("fuzzy match index already open")
	}

	if err := os.MkdirAll(s.cfg.Path, 0755); err != nil {
		return fmt.Errorf("failed to create index directory: %w", err)
	}

	indexPath := filepath.Join(s.cfg.Path, "entities.bleve")

	var index bleve.Index
	var err error
	if _, statErr := os.Stat(indexPath); os.IsNotExist(statErr) {
		index, err = bleve.New(indexPath, buildIndexMapping())
		if err != nil {
			return fmt.Errorf("failed to create bleve index: %w", err)
		}
	} else {
		index, err = bleve.Open(indexPath)
		if err != nil {
			return fmt.Errorf("failed to open bleve index: %w", err)
		}
	}

	s.index = index
	logger.Info("fuzzy match index open", "path", indexPath)
	return nil
}

// Cleanup closes the index.
func (s *Service) Cleanup(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.index == nil {
		return nil
	}
	err := s.index.Close()
	s.index = nil
	if err != nil {
		return fmt.Errorf("failed to close bleve index: %w", err)
	}
	return nil
}

// Healthcheck verifies the index answers a document count.
func (s *Service) Healthcheck(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.index == nil {
		return fmt.Errorf("fuzzy match index not open")
	}
	if _, err := s.index.DocCount(); err != nil {
		return fmt.Errorf("index doc count failed: %w", err)
	}
	return nil
}

// IndexEntities indexes a batch of entities. Entities with an empty ID or
// name are rejected before any document is written.
func (s *Service) IndexEntities(ctx context.Context, entities []Entity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.index == nil {
		return fmt.Errorf("fuzzy match index not open")
	}

	for _, e := range entities {
		if e.ID == "" || e.Name == "" {
			return fmt.Errorf("entity requires both id and name")
		}
	}

	batch := s.index.NewBatch()
	for _, e := range entities {
		if err := batch.Index(e.ID, e); err != nil {
			return fmt.Errorf("failed to batch entity %s: %w", e.ID, err)
		}
	}
	if err := s.index.Batch(batch); err != nil {
		return fmt.Errorf("failed to index entities: %w", err)
	}

	logger.Debug("entities indexed", logger.KeyIndexDoc, len(entities))
	return nil
}

// Search runs a fuzzy plus prefix disjunction over entity names and aliases
// and returns ranked matches. Zero limit and fuzziness fall back to the
// configured defaults.
func (s *Service) Search(ctx context.Context, text string, limit, fuzziness int) ([]Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.index == nil {
		return nil, fmt.Errorf("fuzzy match index not open")
	}
	if text == "" {
		return nil, fmt.Errorf("empty search query")
	}
	if limit <= 0 {
		limit = s.cfg.DefaultLimit
	}
	if fuzziness <= 0 {
		fuzziness = s.cfg.DefaultFuzziness
	}

	ctx, span := telemetry.StartSearchSpan(ctx, "search", text,
		telemetry.SearchFuzziness(fuzziness))
	defer span.End()

	searchReq := bleve.NewSearchRequest(buildSearchQuery(text, fuzziness))
	searchReq.Size = limit
	searchReq.Fields = []string{"name"}

	result, err := s.index.SearchInContext(ctx, searchReq)
	if err != nil {
		telemetry.RecordError(ctx, err)
		return nil, fmt.Errorf("search failed: %w", err)
	}

	matches := make([]Match, 0, len(result.Hits))
	for _, hit := range result.Hits {
		m := Match{ID: hit.ID, Score: hit.Score}
		if name, ok := hit.Fields["name"].(string); ok {
			m.Name = name
		}
		matches = append(matches, m)
	}

	telemetry.SetAttributes(ctx, telemetry.SearchHits(len(matches)))
	return matches, nil
}

// Stats returns the current index statistics.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.index == nil {
		return Stats{}, fmt.Errorf("fuzzy match index not open")
	}
	count, err := s.index.DocCount()
	if err != nil {
		return Stats{}, fmt.Errorf("index doc count failed: %w", err)
	}
	return Stats{Documents: count, Path: s.cfg.Path}, nil
}

// Rebuild re-indexes every stored entity into a fresh index and swaps it in.
// Used by the index management API to recover from index bloat or mapping
// drift without losing documents.
func (s *Service) Rebuild(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.index == nil {
		return fmt.Errorf("fuzzy match index not open")
	}

	searchReq := bleve.NewSearchRequest(bleve.NewMatchAllQuery())
	searchReq.Size = 100000
	searchReq.Fields = []string{"*"}
	all, err := s.index.SearchInContext(ctx, searchReq)
	if err != nil {
		return fmt.Errorf("failed to fetch documents: %w", err)
	}

	indexPath := filepath.Join(s.cfg.Path, "entities.bleve")
	rebuildPath := indexPath + ".rebuild"
	if err := os.RemoveAll(rebuildPath); err != nil {
		return fmt.Errorf("failed to clear rebuild directory: %w", err)
	}

	fresh, err := bleve.New(rebuildPath, buildIndexMapping())
	if err != nil {
		return fmt.Errorf("failed to create rebuild index: %w", err)
	}

	batch := fresh.NewBatch()
	for _, hit := range all.Hits {
		e := Entity{ID: hit.ID}
		if name, ok := hit.Fields["name"].(string); ok {
			e.Name = name
		}
		switch aliases := hit.Fields["aliases"].(type) {
		case string:
			e.Aliases = []string{aliases}
		case []interface{}:
			for _, a := range aliases {
				if alias, ok := a.(string); ok {
					e.Aliases = append(e.Aliases, alias)
				}
			}
		}
		if err := batch.Index(e.ID, e); err != nil {
			fresh.Close()
			return fmt.Errorf("failed to re-index entity %s: %w", e.ID, err)
		}
	}
	if err := fresh.Batch(batch); err != nil {
		fresh.Close()
		return fmt.Errorf("failed to write rebuild batch: %w", err)
	}

	if err := fresh.Close(); err != nil {
		return fmt.Errorf("failed to close rebuild index: %w", err)
	}
	if err := s.index.Close(); err != nil {
		return fmt.Errorf("failed to close current index: %w", err)
	}
	s.index = nil

	if err := os.RemoveAll(indexPath); err != nil {
		return fmt.Errorf("failed to remove old index: %w", err)
	}
	if err := os.Rename(rebuildPath, indexPath); err != nil {
		return fmt.Errorf("failed to swap rebuilt index: %w", err)
	}

	reopened, err := bleve.Open(indexPath)
	if err != nil {
		return fmt.Errorf("failed to reopen rebuilt index: %w", err)
	}
	s.index = reopened

	logger.Info("fuzzy match index rebuilt", logger.KeyIndexDoc, len(all.Hits))
	return nil
}

// buildIndexMapping creates the Bleve index mapping for entity documents.
func buildIndexMapping() mapping.IndexMapping {
	entityMapping := bleve.NewDocumentMapping()

	textFieldMapping := bleve.NewTextFieldMapping()
	textFieldMapping.Analyzer = standard.Name

	keywordFieldMapping := bleve.NewKeywordFieldMapping()

	entityMapping.AddFieldMappingsAt("id", keywordFieldMapping)
	entityMapping.AddFieldMappingsAt("name", textFieldMapping)
	entityMapping.AddFieldMappingsAt("aliases", textFieldMapping)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultMapping = entityMapping
	indexMapping.DefaultAnalyzer = standard.Name

	return indexMapping
}

// buildSearchQuery combines fuzzy, prefix, and exact match clauses over the
// name and aliases fields into a single disjunction.
func buildSearchQuery(text string, fuzziness int) query.Query {
	var clauses []query.Query

	for _, field := range []string{"name", "aliases"} {
		fuzzy := bleve.NewFuzzyQuery(text)
		fuzzy.SetField(field)
		fuzzy.SetFuzziness(fuzziness)
		clauses = append(clauses, fuzzy)

		prefix := bleve.NewPrefixQuery(text)
		prefix.SetField(field)
		clauses = append(clauses, prefix)

		match := bleve.NewMatchQuery(text)
		match.SetField(field)
		match.SetBoost(2.0)
		clauses = append(clauses, match)
	}

	return bleve.NewDisjunctionQuery(clauses...)
}

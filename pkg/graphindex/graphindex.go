// Package graphindex hosts the graph adjacency subsystem backed by BadgerDB.
//
// Edges are stored twice, once per traversal direction:
//
//	adj/<from>/<to> -> edge data (outgoing)
//	rev/<to>/<from> -> edge data (incoming)
//
// Node IDs must not contain '/' since it is the key separator.
package graphindex

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/graphsearch/graphsearchd/internal/logger"
)

// ServiceName is the name this subsystem registers under.
const ServiceName = "graphindex"

const (
	prefixAdjacency = "adj/"
	prefixReverse   = "rev/"
)

// Config configures the graph index service.
type Config struct {
	// Path is the directory holding the Badger database
	Path string `mapstructure:"path" validate:"required" yaml:"path"`

	// MaxDepth caps traversal depth for neighbor and path queries
	MaxDepth int `mapstructure:"max_depth" validate:"omitempty,min=1" yaml:"max_depth"`
}

// Edge is a directed, optionally labeled and weighted connection.
type Edge struct {
	From   string  `json:"from"`
	To     string  `json:"to"`
	Label  string  `json:"label,omitempty"`
	Weight float64 `json:"weight,omitempty"`
}

// edgeData is the stored value for an edge key.
type edgeData struct {
	Label  string  `json:"label,omitempty"`
	Weight float64 `json:"weight,omitempty"`
}

// Stats describes the current graph contents.
type Stats struct {
	Edges int64  `json:"edges"`
	Path  string `json:"path"`
}

// Service implements service.Service over a Badger adjacency store.
type Service struct {
	mu  sync.RWMutex
	cfg Config
	db  *badger.DB
}

// New creates an uninitialized graph index service.
func New(cfg Config) *Service {
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = 6
	}
	return &Service{cfg: cfg}
}

// Name implements service.Service.
func (s *Service) Name() string { return ServiceName }

// Initialize opens the Badger database, creating it if it does not exist.
func (s *Service) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		return fmt.Errorf("graph index already open")
	}

	opts := badger.DefaultOptions(s.cfg.Path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return fmt.Errorf("failed to open badger database: %w", err)
	}

	s.db = db
	logger.Info("graph index open", "path", s.cfg.Path)
	return nil
}

// Cleanup closes the database.
func (s *Service) Cleanup(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	if err != nil {
		return fmt.Errorf("failed to close badger database: %w", err)
	}
	return nil
}

// Healthcheck verifies the database accepts a read transaction.
func (s *Service) Healthcheck(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return fmt.Errorf("graph index not open")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.db.View(func(txn *badger.Txn) error {
		return nil
	})
	if err != nil {
		return fmt.Errorf("healthcheck failed: %w", err)
	}
	return nil
}

// AddEdges stores a batch of directed edges in a single transaction. Both
// the adjacency and reverse keys are written so traversal works in either
// direction.
func (s *Service) AddEdges(ctx context.Context, edges []Edge) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return fmt.Errorf("graph index not open")
	}

	for _, e := range edges {
		if err := validateNodeID(e.From); err != nil {
			return err
		}
		if err := validateNodeID(e.To); err != nil {
			return err
		}
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		for _, e := range edges {
			val, err := json.Marshal(edgeData{Label: e.Label, Weight: e.Weight})
			if err != nil {
				return fmt.Errorf("failed to encode edge: %w", err)
			}
			if err := txn.Set(keyAdjacency(e.From, e.To), val); err != nil {
				return fmt.Errorf("failed to store edge %s->%s: %w", e.From, e.To, err)
			}
			if err := txn.Set(keyReverse(e.To, e.From), val); err != nil {
				return fmt.Errorf("failed to store reverse edge %s->%s: %w", e.From, e.To, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.Debug("edges added", logger.KeyHits, len(edges))
	return nil
}

// Stats counts stored edges by walking the adjacency prefix.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return Stats{}, fmt.Errorf("graph index not open")
	}

	var edges int64
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(prefixAdjacency)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			edges++
		}
		return nil
	})
	if err != nil {
		return Stats{}, fmt.Errorf("failed to count edges: %w", err)
	}

	return Stats{Edges: edges, Path: s.cfg.Path}, nil
}

// Rebuild flattens the LSM tree and runs value log garbage collection. Used
// by the index management API to compact the store after heavy churn.
func (s *Service) Rebuild(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return fmt.Errorf("graph index not open")
	}

	if err := s.db.Flatten(2); err != nil {
		return fmt.Errorf("failed to flatten badger database: %w", err)
	}

	// ErrNoRewrite just means there was nothing worth collecting.
	if err := s.db.RunValueLogGC(0.5); err != nil && err != badger.ErrNoRewrite {
		return fmt.Errorf("value log gc failed: %w", err)
	}

	logger.Info("graph index compacted", "path", s.cfg.Path)
	return nil
}

func validateNodeID(id string) error {
	if id == "" {
		return fmt.Errorf("empty node id")
	}
	if strings.Contains(id, "/") {
		return fmt.Errorf("node id %q must not contain '/'", id)
	}
	return nil
}

func keyAdjacency(from, to string) []byte {
	return []byte(prefixAdjacency + from + "/" + to)
}

func keyReverse(to, from string) []byte {
	return []byte(prefixReverse + to + "/" + from)
}

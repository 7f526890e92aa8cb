package graphindex

import (
	"context"
	"fmt"
	"strings"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/graphsearch/graphsearchd/internal/telemetry"
)

// Direction selects which edges a traversal follows.
type Direction string

const (
	DirectionOut  Direction = "out"
	DirectionIn   Direction = "in"
	DirectionBoth Direction = "both"
)

// Neighbor is a node reached during a breadth-first traversal, annotated
// with the depth at which it was first seen.
type Neighbor struct {
	Node  string `json:"node"`
	Depth int    `json:"depth"`
}

// Neighbors performs a breadth-first traversal from node up to the given
// depth and returns every reached node. The start node itself is excluded.
// Depth values above the configured maximum are clamped.
func (s *Service) Neighbors(ctx context.Context, node string, depth int, dir Direction) ([]Neighbor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, fmt.Errorf("graph index not open")
	}
	if err := validateNodeID(node); err != nil {
		return nil, err
	}
	if depth <= 0 {
		depth = 1
	}
	if depth > s.cfg.MaxDepth {
		depth = s.cfg.MaxDepth
	}
	if dir == "" {
		dir = DirectionOut
	}

	ctx, span := telemetry.StartGraphSpan(ctx, "neighbors",
		telemetry.GraphNode(node), telemetry.GraphDepth(depth))
	defer span.End()

	var neighbors []Neighbor
	visited := map[string]bool{node: true}
	frontier := []string{node}

	err := s.db.View(func(txn *badger.Txn) error {
		for d := 1; d <= depth && len(frontier) > 0; d++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			var next []string
			for _, cur := range frontier {
				adjacent, err := adjacentNodes(txn, cur, dir)
				if err != nil {
					return err
				}
				for _, n := range adjacent {
					if visited[n] {
						continue
					}
					visited[n] = true
					neighbors = append(neighbors, Neighbor{Node: n, Depth: d})
					next = append(next, n)
				}
			}
			frontier = next
		}
		return nil
	})
	if err != nil {
		telemetry.RecordError(ctx, err)
		return nil, err
	}

	telemetry.SetAttributes(ctx, telemetry.GraphVisited(len(visited)))
	return neighbors, nil
}

// ShortestPath finds a minimum-hop path between two nodes via breadth-first
// search over outgoing edges. Returns nil when no path exists within
// maxDepth hops.
func (s *Service) ShortestPath(ctx context.Context, from, to string, maxDepth int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, fmt.Errorf("graph index not open")
	}
	if err := validateNodeID(from); err != nil {
		return nil, err
	}
	if err := validateNodeID(to); err != nil {
		return nil, err
	}
	if maxDepth <= 0 || maxDepth > s.cfg.MaxDepth {
		maxDepth = s.cfg.MaxDepth
	}

	ctx, span := telemetry.StartGraphSpan(ctx, "path",
		telemetry.GraphFrom(from), telemetry.GraphTo(to), telemetry.GraphDepth(maxDepth))
	defer span.End()

	if from == to {
		return []string{from}, nil
	}

	// parent[n] is the node n was first reached from.
	parent := map[string]string{from: ""}
	frontier := []string{from}
	found := false

	err := s.db.View(func(txn *badger.Txn) error {
		for d := 1; d <= maxDepth && len(frontier) > 0 && !found; d++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			var next []string
			for _, cur := range frontier {
				adjacent, err := adjacentNodes(txn, cur, DirectionOut)
				if err != nil {
					return err
				}
				for _, n := range adjacent {
					if _, seen := parent[n]; seen {
						continue
					}
					parent[n] = cur
					if n == to {
						found = true
						return nil
					}
					next = append(next, n)
				}
			}
			frontier = next
		}
		return nil
	})
	if err != nil {
		telemetry.RecordError(ctx, err)
		return nil, err
	}

	if !found {
		return nil, nil
	}

	// Walk parents back from the target.
	var path []string
	for n := to; n != ""; n = parent[n] {
		path = append(path, n)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}

	telemetry.SetAttributes(ctx, telemetry.GraphVisited(len(parent)))
	return path, nil
}

// adjacentNodes lists the nodes directly connected to cur in the given
// direction using prefix iteration.
func adjacentNodes(txn *badger.Txn, cur string, dir Direction) ([]string, error) {
	var nodes []string

	if dir == DirectionOut || dir == DirectionBoth {
		out, err := scanPrefix(txn, prefixAdjacency+cur+"/")
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, out...)
	}
	if dir == DirectionIn || dir == DirectionBoth {
		in, err := scanPrefix(txn, prefixReverse+cur+"/")
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, in...)
	}

	return nodes, nil
}

// scanPrefix returns the key suffix after prefix for every matching key.
func scanPrefix(txn *badger.Txn, prefix string) ([]string, error) {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	it := txn.NewIterator(opts)
	defer it.Close()

	var out []string
	p := []byte(prefix)
	for it.Seek(p); it.ValidForPrefix(p); it.Next() {
		key := string(it.Item().Key())
		out = append(out, strings.TrimPrefix(key, prefix))
	}
	return out, nil
}

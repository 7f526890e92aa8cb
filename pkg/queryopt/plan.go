package queryopt

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// Plan is an ordered list of execution steps for a query, together with the
// rewrite rules that produced it and a rough cost estimate.
type Plan struct {
	Steps         []PlanStep `json:"steps"`
	EstimatedCost float64    `json:"estimated_cost"`
	RulesApplied  []string   `json:"rules_applied,omitempty"`
}

// PlanStep is a single executable operation in a plan.
type PlanStep struct {
	Op     string `json:"op"`
	Detail string `json:"detail,omitempty"`
}

// parsedQuery is the minimal query form the optimizer understands:
//
//	SELECT <target> [WHERE <pred> AND <pred> ...] [LIMIT <n>]
//
// Targets name a subsystem collection (entities, edges, nodes).
type parsedQuery struct {
	target     string
	predicates []string
	limit      int
}

// Rewrite rule names, reported in Plan.RulesApplied.
const (
	ruleDropTautology     = "drop_tautology"
	ruleDedupePredicates  = "dedupe_predicates"
	ruleReorderPredicates = "reorder_predicates"
	ruleLimitPushdown     = "limit_pushdown"
)

// normalize collapses whitespace and lowercases keywords so equivalent
// queries share one cache slot.
func normalize(query string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(query))), " ")
}

// hashQuery returns the cache key for a normalized query.
func hashQuery(normalized string) string {
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:8])
}

// parseQuery splits a normalized query into target, predicates and limit.
func parseQuery(normalized string) (*parsedQuery, error) {
	rest, ok := strings.CutPrefix(normalized, "select ")
	if !ok {
		return nil, fmt.Errorf("query must start with SELECT")
	}

	q := &parsedQuery{}

	if idx := strings.LastIndex(rest, " limit "); idx >= 0 {
		n, err := strconv.Atoi(strings.TrimSpace(rest[idx+len(" limit "):]))
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid limit clause")
		}
		q.limit = n
		rest = rest[:idx]
	}

	if idx := strings.Index(rest, " where "); idx >= 0 {
		for _, p := range strings.Split(rest[idx+len(" where "):], " and ") {
			p = strings.TrimSpace(p)
			if p == "" {
				return nil, fmt.Errorf("empty predicate")
			}
			q.predicates = append(q.predicates, p)
		}
		rest = rest[:idx]
	}

	q.target = strings.TrimSpace(rest)
	if q.target == "" {
		return nil, fmt.Errorf("query has no target")
	}
	return q, nil
}

// optimize applies the rewrite rules and builds an execution plan.
func optimize(q *parsedQuery) *Plan {
	var applied []string

	// Drop always-true predicates.
	kept := q.predicates[:0:0]
	for _, p := range q.predicates {
		if p == "true" || p == "1=1" || p == "1 = 1" {
			appendOnce(&applied, ruleDropTautology)
			continue
		}
		kept = append(kept, p)
	}

	// Dedupe identical predicates.
	seen := make(map[string]bool, len(kept))
	deduped := kept[:0:0]
	for _, p := range kept {
		if seen[p] {
			appendOnce(&applied, ruleDedupePredicates)
			continue
		}
		seen[p] = true
		deduped = append(deduped, p)
	}

	// Equality predicates are the most selective; evaluate them first.
	ordered := make([]string, 0, len(deduped))
	var ranges []string
	reordered := false
	for _, p := range deduped {
		if isEquality(p) {
			if len(ranges) > 0 {
				reordered = true
			}
			ordered = append(ordered, p)
		} else {
			ranges = append(ranges, p)
		}
	}
	ordered = append(ordered, ranges...)
	if reordered {
		appendOnce(&applied, ruleReorderPredicates)
	}

	plan := &Plan{RulesApplied: applied}
	cost := 100.0

	scan := PlanStep{Op: "scan", Detail: q.target}
	if q.limit > 0 && len(ordered) == 0 {
		// No filters to apply, the scan itself can stop early.
		scan.Op = "scan_limited"
		scan.Detail = fmt.Sprintf("%s limit=%d", q.target, q.limit)
		appendOnce(&plan.RulesApplied, ruleLimitPushdown)
		cost = float64(q.limit)
	}
	plan.Steps = append(plan.Steps, scan)

	for _, p := range ordered {
		plan.Steps = append(plan.Steps, PlanStep{Op: "filter", Detail: p})
		cost *= 0.5
	}

	if q.limit > 0 && len(ordered) > 0 {
		plan.Steps = append(plan.Steps, PlanStep{Op: "limit", Detail: strconv.Itoa(q.limit)})
		if cost > float64(q.limit) {
			cost = float64(q.limit) + cost*0.1
		}
	}

	plan.EstimatedCost = cost
	return plan
}

func isEquality(p string) bool {
	if strings.Contains(p, ">=") || strings.Contains(p, "<=") ||
		strings.Contains(p, "!=") || strings.Contains(p, "<>") {
		return false
	}
	if strings.Contains(p, ">") || strings.Contains(p, "<") {
		return false
	}
	return strings.Contains(p, "=")
}

func appendOnce(rules *[]string, rule string) {
	for _, r := range *rules {
		if r == rule {
			return
		}
	}
	*rules = append(*rules, rule)
}

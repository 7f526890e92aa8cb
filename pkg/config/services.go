package config

import (
	"fmt"

	"github.com/graphsearch/graphsearchd/internal/logger"
	"github.com/graphsearch/graphsearchd/pkg/fuzzymatch"
	"github.com/graphsearch/graphsearchd/pkg/graphindex"
	"github.com/graphsearch/graphsearchd/pkg/queryopt"
	"github.com/graphsearch/graphsearchd/pkg/service"
)

// Subsystems bundles the constructed subsystem services so callers can reach
// their typed APIs after registration.
type Subsystems struct {
	FuzzyMatch *fuzzymatch.Service
	GraphIndex *graphindex.Service
	QueryOpt   *queryopt.Service
}

// InitializeServices creates the subsystem services from the configuration
// and registers them in a service registry.
//
// Registration order is startup order is shutdown order (reversed nowhere:
// services are independent), so the order here only affects log output.
//
// The returned registry is ready to hand to the lifecycle orchestrator;
// no service is initialized yet.
func InitializeServices(cfg *Config) (*service.Registry, *Subsystems, error) {
	if cfg == nil {
		return nil, nil, fmt.Errorf("configuration is nil")
	}

	logger.Debug("Building service registry from configuration")

	subs := &Subsystems{
		FuzzyMatch: fuzzymatch.New(cfg.FuzzyMatch),
		GraphIndex: graphindex.New(cfg.GraphIndex),
		QueryOpt:   queryopt.New(cfg.QueryOpt),
	}

	reg := service.NewRegistry()
	for _, svc := range []service.Service{subs.FuzzyMatch, subs.GraphIndex, subs.QueryOpt} {
		if err := reg.Register(svc); err != nil {
			return nil, nil, fmt.Errorf("failed to register service %q: %w", svc.Name(), err)
		}
		logger.Debug("Service registered", logger.KeyService, svc.Name())
	}

	logger.Info("Service registry built", "count", reg.Len())

	return reg, subs, nil
}

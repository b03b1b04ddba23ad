// Package collector provides a registry for managing metric collectors.
// Collectors are registered at startup; the sampler queries the registry
// to run all available collectors each tick.
package collector

import (
	"context"

	"go.uber.org/zap"
)

// Registry manages all registered collectors. Collection is sequential:
// the sampler performs one blocking external call at a time.
type Registry struct {
	collectors []Collector
	logger     *zap.Logger
}

// NewRegistry creates a new collector registry with the given logger.
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		collectors: make([]Collector, 0),
		logger:     logger,
	}
}

// Register adds a collector if it's available on the current platform.
// Unavailable collectors are logged and skipped.
func (r *Registry) Register(c Collector) {
	if c.IsAvailable() {
		r.collectors = append(r.collectors, c)
		r.logger.Info("Registered collector", zap.String("name", c.Name()))
	} else {
		r.logger.Warn("Collector not available, skipping", zap.String("name", c.Name()))
	}
}

// CollectAll runs all registered collectors in registration order and returns
// a map of collector name -> result data. A failed collector is logged but
// does not prevent the remaining collectors from running.
func (r *Registry) CollectAll(ctx context.Context) map[string]interface{} {
	results := make(map[string]interface{})
	for _, c := range r.collectors {
		data, err := c.Collect(ctx)
		if err != nil {
			r.logger.Error("Collection failed",
				zap.String("collector", c.Name()),
				zap.Error(err))
			continue
		}
		results[c.Name()] = data
	}
	return results
}

// Collectors returns a copy of all registered collectors.
func (r *Registry) Collectors() []Collector {
	result := make([]Collector, len(r.collectors))
	copy(result, r.collectors)
	return result
}

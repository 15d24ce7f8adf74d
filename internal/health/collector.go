package health

import (
	"context"

	"github.com/cyberwave-os/cyberwave-edge/internal/models"
)

// Collector fills one field of a status snapshot. Each collector owns a
// distinct field, so a registry's collectors may run concurrently
// against the same snapshot.
type Collector interface {
	Name() string
	Collect(ctx context.Context, snapshot *models.StatusSnapshot) error
}

// Registry holds the collectors the status reporter runs each tick.
type Registry struct {
	collectors []Collector
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register appends a collector.
func (r *Registry) Register(c Collector) {
	r.collectors = append(r.collectors, c)
}

// Collectors returns the registered collectors in registration order.
func (r *Registry) Collectors() []Collector {
	return r.collectors
}

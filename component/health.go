package component

import (
	"context"

	"github.com/kbukum/svckit/di"
)

// ResolvedLister lists constructed instances. *di.Container implements it.
type ResolvedLister interface {
	Resolved() []di.ResolvedEntry
}

// HealthAll returns the health of every resolved instance that reports it,
// in resolution order. Unresolved services are not constructed.
func HealthAll(ctx context.Context, c ResolvedLister) []Health {
	entries := c.Resolved()
	results := make([]Health, 0, len(entries))
	for _, e := range entries {
		hc, ok := e.Instance.(HealthChecker)
		if !ok {
			continue
		}
		h := hc.Health(ctx)
		if h.Name == "" {
			h.Name = e.Key.String()
		}
		results = append(results, h)
	}
	return results
}

// Overall folds individual results into one status: unhealthy wins over
// degraded, which wins over healthy.
func Overall(results []Health) HealthStatus {
	status := StatusHealthy
	for _, h := range results {
		switch h.Status {
		case StatusUnhealthy:
			return StatusUnhealthy
		case StatusDegraded:
			status = StatusDegraded
		}
	}
	return status
}

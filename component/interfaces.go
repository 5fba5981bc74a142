package component

import "context"

// HealthStatus represents the health state of a component.
type HealthStatus string

const (
	StatusHealthy   HealthStatus = "healthy"
	StatusUnhealthy HealthStatus = "unhealthy"
	StatusDegraded  HealthStatus = "degraded"
)

// Health holds health information for a component.
type Health struct {
	Name    string       `json:"name"`
	Status  HealthStatus `json:"status"`
	Message string       `json:"message,omitempty"`
}

// HealthChecker is implemented by any resolved service that can report its
// health. Components implement it through Component.Health.
type HealthChecker interface {
	Health(ctx context.Context) Health
}

// Component represents a lifecycle-managed service.
type Component interface {
	HealthChecker

	// Name returns the unique name of the component, used as its key.
	Name() string

	// Start initializes and starts the component.
	Start(ctx context.Context) error

	// Stop gracefully shuts down the component and releases resources.
	Stop(ctx context.Context) error
}

// Description holds summary information for the bootstrap display.
type Description struct {
	// Name is the human-readable display name (e.g., "Inspector").
	// If empty, the component's Name() is used.
	Name string
	// Type categorizes the component: "server", "database", etc.
	Type string
	// Details is a human-readable one-liner shown in the startup summary.
	Details string
	// Port is the primary port, 0 if not applicable.
	Port int
}

// Describable is optionally implemented by services to report what they are
// in the startup summary.
type Describable interface {
	Describe() Description
}

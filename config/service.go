package config

import (
	"fmt"
	"time"

	"github.com/kbukum/svckit/logger"
	"github.com/kbukum/svckit/validation"
)

// Environments accepted in ServiceConfig.Environment.
var Environments = []string{"development", "staging", "production"}

// ServiceConfig contains the configuration every svckit service needs.
// Projects extend this by embedding it in their own config structs.
//
// Example:
//
//	type MyConfig struct {
//	    config.ServiceConfig `yaml:",inline" mapstructure:",squash"`
//	    Billing BillingConfig `yaml:"billing" mapstructure:"billing"`
//	}
type ServiceConfig struct {
	Name          string              `yaml:"name" mapstructure:"name"`
	Environment   string              `yaml:"environment" mapstructure:"environment"`
	Version       string              `yaml:"version" mapstructure:"version"`
	Debug         bool                `yaml:"debug" mapstructure:"debug"`
	Logging       logger.Config       `yaml:"logging" mapstructure:"logging"`
	Container     ContainerConfig     `yaml:"container" mapstructure:"container"`
	Observability ObservabilityConfig `yaml:"observability" mapstructure:"observability"`
	Inspect       InspectConfig       `yaml:"inspect" mapstructure:"inspect"`
}

// ContainerConfig controls the lifecycle of the application container.
type ContainerConfig struct {
	// DisposeTimeout bounds Dispose at shutdown.
	DisposeTimeout time.Duration `yaml:"dispose_timeout" mapstructure:"dispose_timeout" validate:"gte=0"`
	// InitTimeout bounds the initialization of each eager service at startup.
	InitTimeout time.Duration `yaml:"init_timeout" mapstructure:"init_timeout" validate:"gte=0"`
	// Eager lists name keys resolved and initialized at startup, in order.
	Eager []string `yaml:"eager" mapstructure:"eager"`
}

// ApplyDefaults fills unset timeouts.
func (c *ContainerConfig) ApplyDefaults() {
	if c.DisposeTimeout == 0 {
		c.DisposeTimeout = 15 * time.Second
	}
	if c.InitTimeout == 0 {
		c.InitTimeout = 30 * time.Second
	}
}

// ObservabilityConfig configures OpenTelemetry export. Nothing is exported
// while Endpoint is empty.
type ObservabilityConfig struct {
	Endpoint     string        `yaml:"endpoint" mapstructure:"endpoint" validate:"omitempty,hostname_port"`
	Insecure     bool          `yaml:"insecure" mapstructure:"insecure"`
	SampleRate   float64       `yaml:"sample_rate" mapstructure:"sample_rate" validate:"gte=0,lte=1"`
	MetricPeriod time.Duration `yaml:"metric_period" mapstructure:"metric_period" validate:"gte=0"`
}

// Enabled reports whether an exporter endpoint is configured.
func (c *ObservabilityConfig) Enabled() bool {
	return c.Endpoint != ""
}

// ApplyDefaults fills the sampling rate and export period.
func (c *ObservabilityConfig) ApplyDefaults() {
	if c.SampleRate == 0 {
		c.SampleRate = 1.0
	}
	if c.MetricPeriod == 0 {
		c.MetricPeriod = 15 * time.Second
	}
}

// InspectConfig configures the read-only container inspector.
type InspectConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Host    string `yaml:"host" mapstructure:"host"`
	Port    int    `yaml:"port" mapstructure:"port" validate:"omitempty,min=1,max=65535"`
}

// ApplyDefaults binds the inspector to localhost:8090 unless configured.
func (c *InspectConfig) ApplyDefaults() {
	if c.Host == "" {
		c.Host = "127.0.0.1"
	}
	if c.Port == 0 {
		c.Port = 8090
	}
}

// Address returns host:port.
func (c *InspectConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// GetServiceConfig returns the base ServiceConfig.
// When embedded in a larger config struct, this method is promoted
// so the embedding struct automatically satisfies bootstrap.Config.
func (c *ServiceConfig) GetServiceConfig() *ServiceConfig {
	return c
}

// ApplyDefaults applies default values to the base configuration.
// Override this in embedding structs and call c.ServiceConfig.ApplyDefaults() first.
func (c *ServiceConfig) ApplyDefaults() {
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.Environment == "development" {
		c.Debug = true
	}
	// Propagate service name into logging so Init() uses the right tag.
	if c.Logging.ServiceName == "" && c.Name != "" {
		c.Logging.ServiceName = c.Name
	}
	c.Logging.ApplyDefaults()
	c.Container.ApplyDefaults()
	c.Observability.ApplyDefaults()
	c.Inspect.ApplyDefaults()
}

// Validate validates the base configuration fields.
// Override this in embedding structs and call c.ServiceConfig.Validate() first.
func (c *ServiceConfig) Validate() error {
	v := validation.New().
		Required("name", c.Name).
		Required("environment", c.Environment).
		OneOf("environment", c.Environment, Environments)
	if err := c.Logging.Validate(); err != nil {
		v.AddError("logging", err.Error())
	}
	for i, key := range c.Container.Eager {
		v.Required(fmt.Sprintf("container.eager[%d]", i), key)
	}
	if err := v.Err(); err != nil {
		return err
	}
	return validation.Validate(c)
}

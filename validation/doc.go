// Package validation checks svckit configuration.
//
// It supports both struct tag validation (using the validator library) and
// programmatic validation with error collection. Failures are returned as
// INVALID_CONFIG errors listing every offending field.
//
// # Struct Tag Validation
//
//	type ContainerConfig struct {
//	    DisposeTimeout time.Duration `mapstructure:"dispose_timeout" validate:"gte=0"`
//	}
//	err := validation.Validate(cfg)
//
// # Programmatic Validation
//
//	v := validation.New()
//	v.Required("name", cfg.Name).OneOf("environment", cfg.Environment, envs)
//	err := v.Err()
package validation

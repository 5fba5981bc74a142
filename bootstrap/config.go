package bootstrap

import (
	"fmt"

	"github.com/kbukum/svckit/config"
)

// Config is the interface constraint for application configuration types.
// Any struct that embeds config.ServiceConfig (value embedding) automatically
// satisfies this interface via promoted methods.
//
// Example:
//
//	type MyConfig struct {
//	    config.ServiceConfig `yaml:",inline" mapstructure:",squash"`
//	    Billing BillingConfig `yaml:"billing" mapstructure:"billing"`
//	}
//
//	app, err := bootstrap.NewApp[*MyConfig](&cfg)
type Config interface {
	GetServiceConfig() *config.ServiceConfig
	ApplyDefaults()
	Validate() error
}

// LoadApp loads cfg for serviceName through config.LoadConfig, with the
// loader options given by WithConfigLoader, and creates the app from it. The
// service name fills an empty name in the loaded configuration.
//
//	var cfg MyConfig
//	app, err := bootstrap.LoadApp("billing", &cfg)
func LoadApp[C Config](serviceName string, cfg C, opts ...Option) (*App[C], error) {
	o := resolveOptions(opts)
	if err := config.LoadConfig(serviceName, cfg, o.loaderOpts...); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}
	if base := cfg.GetServiceConfig(); base.Name == "" {
		base.Name = serviceName
	}
	return NewApp(cfg, opts...)
}

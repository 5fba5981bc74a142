// Package config provides configuration loading and validation for svckit
// applications.
//
// LoadConfig reads config.yml from the service directories with Viper,
// merges config.<environment>.yml over it when present, and applies
// environment variables named after the struct's mapstructure keys. A .env
// file is loaded through godotenv first. Variables carrying the service
// prefix win over plain ones:
//
//	CONTAINER_DISPOSE_TIMEOUT=10s          sets container.dispose_timeout
//	BILLING_CONTAINER_DISPOSE_TIMEOUT=20s  wins for the billing service
//
// # Usage
//
//	var cfg config.ServiceConfig
//	if err := config.Load("billing", &cfg); err != nil {
//	    return err
//	}
package config

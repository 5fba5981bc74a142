// Package logger provides structured logging for svckit using zerolog.
//
// It supports JSON and console output, level configuration, and
// component-scoped loggers carrying structured fields.
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "json"
//
// # Usage
//
//	log := logger.NewDefault("billing").WithComponent("di")
//	log.Info("container built", logger.Fields("registrations", 12))
package logger

// Package logger provides structured logging for iopipe using zerolog.
//
// It supports JSON and console output, level configuration, and
// component-scoped loggers with structured fields.
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "json"
//
// # Usage
//
//	log := logger.WithComponent("sftp")
//	log.Debug("session opened", logger.Fields(logger.FieldEndpoint, addr))
package logger

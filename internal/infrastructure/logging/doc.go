// Package logging provides structured logging using uber/zap.
//
// This package offers two modes:
//   - Production: JSON output for machine parsing
//   - Development: Colored console output for human readability
//
// Logs are written to stderr; stdout is reserved for results.
//
// Example Usage:
//
//	logger, err := logging.New(logging.FromConfig(cfg.Logging))
//	log := logger.Component("manager")
//	log.Info("Received result", zap.Stringer("worker", role))
package logging

// Package config provides 12-factor configuration management for fgpipe.
//
// Configuration starts from defaults, is optionally merged with a TOML or
// YAML file, and is then overridden by environment variables.
//
// Configuration Sections:
//   - Pipeline: ring capacity, retry policy, readiness wait bounds
//   - Worker: worker binary, FIFO directory, termination grace period
//   - Control: interrupt confirmation
//   - Logging: Log level and output format
//   - Metrics: Prometheus endpoint
//   - Output: result line format
//
// Example Usage:
//
//	cfg, err := config.Load("fgpipe.toml")
//	if err != nil {
//		return err
//	}
//	fmt.Printf("buffer holds %d records\n", cfg.Pipeline.BufferSize-1)
//
// Environment Variables (prefix FGPIPE_):
//   - BUFFER_SIZE, MAX_SOFT_RETRY, RETRY_BACKOFF, POLL_TIMEOUT, DRAIN_TIMEOUT
//   - WORKER_BINARY, FIFO_DIR, TERMINATE_GRACE, WORKER_SOFT_ATTEMPTS
//   - CONFIRM_SHUTDOWN, CONFIRM_TIMEOUT
//   - LOG_LEVEL, LOG_DEV
//   - METRICS_ADDR, OUTPUT_FORMAT
package config

/*
Package monitoring provides pipeline metrics collection.

# Overview

Metrics implements manager.Observer and records pipeline events as
Prometheus metrics on a private registry, so several managers (or tests)
never collide on registration.

# Metrics

- Input acceptance and rejection counts
- Arguments dispatched, results received by status, retries, worker exits
- Finalized outcomes, finalize latency, retries per input
- Buffer depth and uptime, plus Go runtime and process collectors

# Usage

	metrics := monitoring.NewMetrics()
	mgr, _ := manager.New(opts, manager.Deps{Observer: metrics, ...})

	srv, err := monitoring.Serve(":9100", metrics, logger)
	defer srv.Shutdown(ctx)
*/
package monitoring

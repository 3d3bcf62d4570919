// Package exporter serves the gauge registry to Prometheus and exposes the
// poller's status.
//
// New(gatherer, status) returns an http.Handler that serves:
//
//	GET /metrics        text exposition of the registry (promhttp)
//	GET /api/v1/health  poller state, counters and last error as JSON
//
// Serve runs an http.Server until its context is cancelled and then shuts it
// down gracefully.
package exporter

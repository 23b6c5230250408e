// Package api hosts the HTTP server, middleware, and REST handlers for operator
// access. Notable routes:
//   - GET /healthz / readyz for Kubernetes probes.
//   - GET /metrics for Prometheus scraping.
//   - POST /v1/runs to trigger a sync run and receive its summary.
//   - GET /v1/runs/last for the most recent run summary.
package api

// Package api hosts the HTTP server, middleware, and REST handlers for the
// resolver service. Notable routes:
//   - POST /jobs submits a batch of article URLs and returns the job ID.
//   - GET /jobs and GET /jobs/{job_id} report job state and item results.
//   - POST /resolve resolves a single URL synchronously.
//   - GET /healthz, /readyz for probes and GET /metrics for Prometheus.
package api

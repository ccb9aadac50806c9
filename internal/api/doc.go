// Package api hosts the HTTP server, middleware, and handlers for the SEO
// dashboard. Notable routes:
//   - GET / renders the HTML dashboard; POST /tasks/{task_id}/done marks a
//     task done from the page and redirects back to it.
//   - GET /v1/dashboard, /v1/snapshots, /v1/tasks and /v1/pages serve JSON.
//   - POST /v1/tasks/{task_id}/done and POST /v1/exports are the write paths.
//   - GET /healthz / readyz for Kubernetes probes.
//   - GET /metrics for Prometheus scraping.
package api

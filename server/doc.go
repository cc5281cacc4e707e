// Package server is the HTTP surface of connectord: a gin engine mounted on
// a ServeMux behind h2c, wrapped in the server-wide middleware chain.
//
// # Middleware
//
// Server-wide (server/middleware, net/http):
//
//   - Recovery: panic to INTERNAL_ERROR with structured logging
//   - RequestID: X-Request-Id generation and context propagation
//   - RequestLogger: request logging with duration tracking
//   - Metrics: OpenTelemetry request counters and latency
//   - CORS: cross-origin configuration for browser front-ends
//   - BodySizeLimit: request body cap
//
// On the /api group (gin): RateLimit (per-client token buckets) and Auth
// (HS256 bearer tokens), both optional.
//
// # Endpoints
//
// Operational endpoints (server/endpoint): /health, /ready, /alive, /info,
// /version and /metrics. Connector routes are registered on API() by the
// registry package.
package server

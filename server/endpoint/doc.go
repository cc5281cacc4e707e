// Package endpoint provides the operational HTTP handlers mounted by the
// server: /health, /ready and /alive probes, and /info, /version and
// /metrics, which report the build and the connectors' status.
package endpoint

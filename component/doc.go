// Package component defines lifecycle interfaces for long-running parts of
// the connector daemon and the lazy initialization slot connectors use to
// boot their providers.
//
// # Registry
//
// Registry starts components in registration order, rolls back a partial
// start and stops them in reverse with a per-component timeout. Health
// checks run concurrently and a stuck check is reported unhealthy.
//
// # Lazy initialization
//
// Lazy memoizes a one-shot initializer. Concurrent callers share a single
// in-flight run; a successful run is remembered forever, a failed one is
// not, so the next caller retries.
package component

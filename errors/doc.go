// Package errors provides the structured error type shared by connectors,
// providers and the HTTP surface. Every failure carries a machine-readable
// code, a retryable flag and a recommended HTTP status.
package errors

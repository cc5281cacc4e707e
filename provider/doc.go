// Package provider defines the contract connectors use to drive external
// wallet and auth backends.
//
// A Handle is the live connection to one backend. Beyond the required
// Init/Address/Provider methods, a handle may opt into capabilities that
// the connector discovers once after initialization:
//
//   - EventSource: On/Off subscriptions for disconnect, chainChanged and accountsChanged
//   - Authenticator: drives an interactive login
//   - ChainReporter: reports the active chain id
//   - ConnectionReporter: reports whether a session exists
//   - Disconnecter: ends the backend session
//   - Closer: releases transport resources at shutdown
//   - HealthChecker: detailed health for the daemon's health endpoint
//
// Handles that do not implement EventSource are still usable; the
// connector simply receives no pushed updates from them.
//
// # Registry
//
// Registry maps provider kinds to factories so connectors can be built
// from configuration:
//
//	reg := provider.NewRegistry[provider.Handle]()
//	reg.RegisterFactory(social.Kind, social.Factory())
//	h, err := reg.Create(social.Kind, provider.Spec{Connector: "social", Options: opts})
//
// # Sessions
//
// SessionStore persists "previously connected" state for handles that
// need it. MemorySessionStore lives as long as the process;
// FileSessionStore survives restarts of the daemon.
package provider

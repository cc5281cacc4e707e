// Package sse streams connector state changes to HTTP clients as
// Server-Sent Events.
//
// Each stream subscribes to one connector. Client ids are
// "<connector>:<uuid>" and the Hub keeps subscribers grouped by connector,
// so a Publish reaches only that connector's streams. A subscriber that
// stops reading loses events instead of stalling the others, and the
// events Component reports itself degraded while that happens.
//
//	events := sse.NewComponent("/api/connectors/:name/events")
//	events.Publish("social", sse.EventTypeState, snapshotJSON)
//	sse.ServeSSE(events.Hub(), w, r, sse.NewClientID("social"))
package sse

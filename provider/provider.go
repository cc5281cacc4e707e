package provider

import (
	"context"
	"fmt"

	"github.com/kbukum/authconnect/resilience"
)

// Handle is a live connection to a wallet or auth backend.
type Handle interface {
	// Init prepares the backend. It must be idempotent.
	Init(ctx context.Context) error
	// Address returns the bound account, if any.
	Address() (string, bool)
	// Provider returns the underlying backend object once initialized.
	Provider() (any, bool)
}

// Event names a provider notification.
type Event string

const (
	EventDisconnect      Event = "disconnect"
	EventChainChanged    Event = "chainChanged"
	EventAccountsChanged Event = "accountsChanged"
)

// Events lists every event a connector subscribes to, in attach order.
var Events = []Event{EventDisconnect, EventChainChanged, EventAccountsChanged}

// Listener receives event payloads. Implementations must be comparable so
// that Off can find the registration made by On.
//
// Payload shapes:
//
//	disconnect:      *RPCError (nil when the backend gives no reason)
//	chainChanged:    a number or a hex/decimal string
//	accountsChanged: []string
type Listener interface {
	Handle(payload any)
}

// EventSource is implemented by handles that push events.
type EventSource interface {
	On(event Event, l Listener) error
	Off(event Event, l Listener) error
}

// LoginOptions carries provider-specific login hints. They are passed
// through to the handle unvalidated.
type LoginOptions struct {
	// PreferredAuthType selects a login method, e.g. "google" or "twitter".
	PreferredAuthType string `json:"preferred_auth_type,omitempty"`
	// Extra holds any other provider-specific hints.
	Extra map[string]any `json:"extra,omitempty"`
}

// Authenticator is implemented by handles that can establish a session
// interactively.
type Authenticator interface {
	Login(ctx context.Context, opts LoginOptions) error
}

// ChainReporter is implemented by handles that know their active chain.
type ChainReporter interface {
	ChainID() (uint64, bool)
}

// ConnectionReporter is implemented by handles that can tell whether a
// session exists independently of having an address at hand. Handles
// without it count as connected when Address reports an account.
type ConnectionReporter interface {
	Connected() bool
}

// Disconnecter is implemented by handles with their own logout call.
type Disconnecter interface {
	Disconnect(ctx context.Context) error
}

// Closer is implemented by handles holding resources that must be
// released at shutdown (sockets, background goroutines).
type Closer interface {
	Close(ctx context.Context) error
}

// RPCError is the disconnect payload, following EIP-1193.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Error implements error.
func (e *RPCError) Error() string {
	return fmt.Sprintf("provider rpc error %d: %s", e.Code, e.Message)
}

// Spec is what a factory is told about the connector it builds for.
type Spec struct {
	// Connector is the configured connector name.
	Connector string
	// Options is the connector's provider-specific options block, as read
	// from configuration.
	Options map[string]any
	// Resilience guards the handle's calls to its backend.
	Resilience resilience.Policy
	// OnCircuitChange, if set, is told about every transition of the
	// handle's backend circuit breaker.
	OnCircuitChange func(from, to string)
}

// Factory creates a handle for one connector.
type Factory[T any] func(spec Spec) (T, error)

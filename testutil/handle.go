package testutil

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/kbukum/authconnect/provider"
)

// Checksummed addresses for tests.
const (
	AddrA = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"
	AddrB = "0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359"
	AddrC = "0xdbF03B407c01E7cD3CBea99509d93f8DDDC8C6FB"
	AddrD = "0xD1220A0cf47c7B9Be7A2E6BA89F429762e7b9aDb"
)

// FakeHandle is a scriptable provider.Handle.
type FakeHandle struct {
	emitter *provider.Emitter

	mu            sync.Mutex
	initErr       error
	gate          chan struct{}
	initialized   bool
	noProvider    bool
	address       string
	chainID       uint64
	loginAddress  string
	loginErr      error
	lastLogin     provider.LoginOptions
	offErr        error
	onErr         error
	disconnectErr error
	connected     *bool

	InitCalls       atomic.Int32
	OnCalls         atomic.Int32
	OffCalls        atomic.Int32
	LoginCalls      atomic.Int32
	DisconnectCalls atomic.Int32
	CloseCalls      atomic.Int32
}

// FakeOption configures a FakeHandle.
type FakeOption func(*FakeHandle)

// WithAddress makes the handle report addr once initialized.
func WithAddress(addr string) FakeOption {
	return func(f *FakeHandle) { f.address = addr }
}

// WithChain makes the handle report chain id.
func WithChain(id uint64) FakeOption {
	return func(f *FakeHandle) { f.chainID = id }
}

// WithInitError makes Init fail with err.
func WithInitError(err error) FakeOption {
	return func(f *FakeHandle) { f.initErr = err }
}

// WithGate blocks Init until gate is closed or the init context ends.
func WithGate(gate chan struct{}) FakeOption {
	return func(f *FakeHandle) { f.gate = gate }
}

// WithLogin makes Login bind addr, or fail with err when err is non-nil.
func WithLogin(addr string, err error) FakeOption {
	return func(f *FakeHandle) {
		f.loginAddress = addr
		f.loginErr = err
	}
}

// WithOffError makes every Off call fail with err.
func WithOffError(err error) FakeOption {
	return func(f *FakeHandle) { f.offErr = err }
}

// WithOnError makes every On call fail with err.
func WithOnError(err error) FakeOption {
	return func(f *FakeHandle) { f.onErr = err }
}

// WithDisconnectError makes Disconnect fail with err.
func WithDisconnectError(err error) FakeOption {
	return func(f *FakeHandle) { f.disconnectErr = err }
}

// WithoutProvider makes Provider report no backend even after Init.
func WithoutProvider() FakeOption {
	return func(f *FakeHandle) { f.noProvider = true }
}

// WithConnected overrides the session check independently of the address.
func WithConnected(connected bool) FakeOption {
	return func(f *FakeHandle) { f.connected = &connected }
}

// NewFakeHandle creates a FakeHandle.
func NewFakeHandle(opts ...FakeOption) *FakeHandle {
	f := &FakeHandle{emitter: provider.NewEmitter()}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Init records the call and waits on the gate, if any.
func (f *FakeHandle) Init(ctx context.Context) error {
	f.InitCalls.Add(1)

	f.mu.Lock()
	gate := f.gate
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.initErr != nil {
		return f.initErr
	}
	f.initialized = true
	return nil
}

// Address returns the bound account once initialized.
func (f *FakeHandle) Address() (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.initialized || f.address == "" {
		return "", false
	}
	return f.address, true
}

// Provider returns the handle itself once initialized.
func (f *FakeHandle) Provider() (any, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.initialized || f.noProvider {
		return nil, false
	}
	return f, true
}

// Connected reports the overridden session state, or address presence.
func (f *FakeHandle) Connected() bool {
	f.mu.Lock()
	override := f.connected
	f.mu.Unlock()
	if override != nil {
		return *override
	}
	_, ok := f.Address()
	return ok
}

// ChainID reports the configured chain, if any.
func (f *FakeHandle) ChainID() (uint64, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.chainID, f.chainID != 0
}

// Login binds the configured login address.
func (f *FakeHandle) Login(ctx context.Context, opts provider.LoginOptions) error {
	f.LoginCalls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastLogin = opts
	if f.loginErr != nil {
		return f.loginErr
	}
	if f.loginAddress != "" {
		f.address = f.loginAddress
	}
	return nil
}

// LastLogin returns the options of the most recent Login call.
func (f *FakeHandle) LastLogin() provider.LoginOptions {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastLogin
}

// On registers a listener.
func (f *FakeHandle) On(event provider.Event, l provider.Listener) error {
	f.OnCalls.Add(1)
	f.mu.Lock()
	err := f.onErr
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return f.emitter.On(event, l)
}

// Off removes a listener, then reports the configured error.
func (f *FakeHandle) Off(event provider.Event, l provider.Listener) error {
	f.OffCalls.Add(1)
	_ = f.emitter.Off(event, l)
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.offErr
}

// Disconnect clears the address.
func (f *FakeHandle) Disconnect(ctx context.Context) error {
	f.DisconnectCalls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.address = ""
	return f.disconnectErr
}

// Close releases the emitter.
func (f *FakeHandle) Close(ctx context.Context) error {
	f.CloseCalls.Add(1)
	f.emitter.Close()
	return nil
}

// Emit pushes an event to the registered listeners.
func (f *FakeHandle) Emit(event provider.Event, payload any) int {
	return f.emitter.Emit(event, payload)
}

// Listeners returns how many listeners are registered for event.
func (f *FakeHandle) Listeners(event provider.Event) int {
	return f.emitter.ListenerCount(event)
}

// SetAddress changes the bound account.
func (f *FakeHandle) SetAddress(addr string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.address = addr
}

// SetInitError changes the Init outcome for later calls.
func (f *FakeHandle) SetInitError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.initErr = err
}

// Bare returns a view of f exposing only the required Handle methods.
func (f *FakeHandle) Bare() provider.Handle {
	return bareHandle{f: f}
}

type bareHandle struct{ f *FakeHandle }

func (b bareHandle) Init(ctx context.Context) error { return b.f.Init(ctx) }
func (b bareHandle) Address() (string, bool)        { return b.f.Address() }
func (b bareHandle) Provider() (any, bool)          { return b.f.Provider() }

// Factory returns a handle constructor that always yields h.
func Factory(h provider.Handle) func() (provider.Handle, error) {
	return func() (provider.Handle, error) { return h, nil }
}

// CountingFactory wraps Factory and records how many handles were built.
func CountingFactory(h provider.Handle, calls *atomic.Int32) func() (provider.Handle, error) {
	return func() (provider.Handle, error) {
		calls.Add(1)
		return h, nil
	}
}

var (
	_ provider.EventSource        = (*FakeHandle)(nil)
	_ provider.Authenticator      = (*FakeHandle)(nil)
	_ provider.ChainReporter      = (*FakeHandle)(nil)
	_ provider.ConnectionReporter = (*FakeHandle)(nil)
	_ provider.Disconnecter       = (*FakeHandle)(nil)
	_ provider.Closer             = (*FakeHandle)(nil)
)

package connector

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kbukum/authconnect/actions"
	"github.com/kbukum/authconnect/component"
	"github.com/kbukum/authconnect/errors"
	"github.com/kbukum/authconnect/logger"
	"github.com/kbukum/authconnect/observability"
	"github.com/kbukum/authconnect/provider"
)

// HandleFactory builds the provider handle. It is called at most once
// successfully per connector.
type HandleFactory func() (provider.Handle, error)

// Connector drives one provider handle and mirrors its state into one store.
// All methods are safe for concurrent use.
type Connector struct {
	name    string
	store   *actions.Store
	factory HandleFactory

	log            *logger.Logger
	onError        func(error)
	defaultChainID uint64
	initTimeout    time.Duration
	metrics        *observability.Metrics

	init *component.Lazy

	// mu guards the handle, its capabilities and listener attachment.
	mu        sync.Mutex
	handle    provider.Handle
	caps      provider.Capabilities
	attached  bool
	listeners map[provider.Event]*eventListener
	// deactivations counts Deactivate calls. An operation that started
	// before the latest one must not attach listeners.
	deactivations uint64
}

// New creates a connector reporting into store. The handle is not built
// until the first activation.
func New(name string, store *actions.Store, factory HandleFactory, opts ...Option) *Connector {
	c := &Connector{
		name:    name,
		store:   store,
		factory: factory,
	}
	defaults(c)
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.WithComponent("connector").WithConnector(name)

	c.listeners = make(map[provider.Event]*eventListener, len(provider.Events))
	for _, ev := range provider.Events {
		c.listeners[ev] = &eventListener{c: c, event: ev}
	}

	var lazyOpts []component.LazyOption
	if c.initTimeout > 0 {
		lazyOpts = append(lazyOpts, component.WithTimeout(c.initTimeout))
	}
	c.init = component.NewLazy(name, c.initialize, lazyOpts...)
	return c
}

// Name returns the connector name.
func (c *Connector) Name() string { return c.name }

// Store returns the store the connector reports into.
func (c *Connector) Store() *actions.Store { return c.store }

// Handle returns the provider handle once it has been built.
func (c *Connector) Handle() (provider.Handle, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handle, c.handle != nil
}

// Capabilities returns the optional capabilities of the handle, resolved
// at initialization.
func (c *Connector) Capabilities() provider.Capabilities {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.caps
}

// Status reports the current lifecycle position.
func (c *Connector) Status() Status {
	switch c.init.State() {
	case component.LazyIdle:
		return StatusUninitialized
	case component.LazyInFlight:
		return StatusInitializing
	}

	st := c.store.State()
	switch {
	case st.Activating:
		return StatusActivating
	case st.IsActive():
		return StatusActive
	default:
		return StatusIdle
	}
}

// Activate connects the provider, driving its login flow when it has no
// account yet. On failure the store's activating flag is rolled back and
// the store is otherwise left untouched.
func (c *Connector) Activate(ctx context.Context, opts Options) (err error) {
	ctx, op := c.begin(ctx, "activate")
	defer func() { op.End(err) }()
	log := c.log.WithContext(ctx)

	cancel := c.store.StartActivation()
	defer func() {
		if err != nil {
			cancel()
			log.Warn("Activation failed", logger.ErrorFields("activate", err))
		}
	}()

	h, caps, err := c.ready(ctx, "activate")
	if err != nil {
		return err
	}

	address, ok := h.Address()
	if !ok && caps.Authenticator != nil {
		log.Debug("Starting provider login", logger.Fields("preferred_auth_type", opts.PreferredAuthType))
		if loginErr := caps.Authenticator.Login(ctx, opts); loginErr != nil {
			return errors.LoginFailed(c.name, loginErr)
		}
		address, ok = h.Address()
	}
	if !ok || address == "" {
		return errors.NoAddress(c.name)
	}

	chainID := c.chainID(caps)
	if err = c.store.Update(actions.Partial{ChainID: chainID, Accounts: []string{address}}); err != nil {
		return err
	}

	observability.SetChain(ctx, chainID)
	log.Info("Connector activated", logger.Fields(logger.FieldChainID, chainID))
	return nil
}

// ConnectEagerly restores an existing provider session without user
// interaction. It fails with NO_SESSION when there is nothing to restore;
// callers are expected to treat any failure as non-fatal.
func (c *Connector) ConnectEagerly(ctx context.Context) (err error) {
	ctx, op := c.begin(ctx, "connect_eagerly")
	defer func() { op.End(err) }()
	log := c.log.WithContext(ctx)

	cancel := c.store.StartActivation()
	defer func() {
		if err != nil {
			cancel()
			log.Debug("Eager connection skipped", logger.ErrorFields("connect_eagerly", err))
		}
	}()

	h, caps, err := c.ready(ctx, "connect_eagerly")
	if err != nil {
		return err
	}

	if _, ok := h.Provider(); !ok || !caps.Connected(h) {
		return errors.NoSession(c.name)
	}

	address, ok := h.Address()
	if !ok || address == "" {
		return errors.NoAddress(c.name)
	}

	chainID := c.chainID(caps)
	if err = c.store.Update(actions.Partial{ChainID: chainID, Accounts: []string{address}}); err != nil {
		return err
	}

	observability.SetChain(ctx, chainID)
	log.Info("Connector restored session", logger.Fields(logger.FieldChainID, chainID))
	return nil
}

// Deactivate detaches from the provider and resets the store. It never
// fails: listener and provider errors are logged and reported to the error
// handler. The connector stays initialized.
func (c *Connector) Deactivate(ctx context.Context) {
	ctx, op := c.begin(ctx, "deactivate")
	log := c.log.WithContext(ctx)

	c.mu.Lock()
	c.deactivations++
	c.mu.Unlock()
	c.detach(log)

	c.mu.Lock()
	disconnecter := c.caps.Disconnecter
	c.mu.Unlock()
	if disconnecter != nil {
		if err := disconnecter.Disconnect(ctx); err != nil {
			log.Warn("Provider disconnect failed", logger.ErrorFields("disconnect", err))
			c.report(err)
		}
	}

	c.store.ResetState()
	log.Info("Connector deactivated")
	op.End(nil)
}

// Close releases the handle's resources, if it holds any. A handle whose
// initialization failed is closed too.
func (c *Connector) Close(ctx context.Context) error {
	c.mu.Lock()
	h := c.handle
	c.mu.Unlock()
	closer, ok := h.(provider.Closer)
	if !ok {
		return nil
	}
	return closer.Close(ctx)
}

// Health reports the provider's health, or nil if it cannot report one.
func (c *Connector) Health(ctx context.Context) *provider.HealthStatus {
	c.mu.Lock()
	checker := c.caps.Health
	c.mu.Unlock()
	if checker == nil {
		return nil
	}
	h := checker.Health(ctx)
	return &h
}

// ready initializes the connector if needed and makes sure listeners are
// attached, which they are not after a Deactivate. A Deactivate that lands
// while ready waits fails the operation with DEACTIVATED.
func (c *Connector) ready(ctx context.Context, operation string) (provider.Handle, provider.Capabilities, error) {
	c.mu.Lock()
	gen := c.deactivations
	c.mu.Unlock()

	if err := c.init.Do(ctx); err != nil {
		return nil, provider.Capabilities{}, c.initError(operation, err)
	}
	if err := c.attach(gen); err != nil {
		return nil, provider.Capabilities{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handle, c.caps, nil
}

func (c *Connector) initError(operation string, err error) error {
	if errors.IsAppError(err) {
		return err
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return errors.Timeout(operation).WithCause(err)
	}
	if stderrors.Is(err, context.Canceled) {
		return err
	}
	return errors.InitFailed(c.name, err)
}

// initialize is the body of the lazy slot: build the handle, boot it and
// resolve its capabilities. Listeners are attached by ready.
func (c *Connector) initialize(ctx context.Context) error {
	ctx, span := observability.StartSpan(ctx, observability.SpanInitialize)
	defer span.End()
	log := c.log.WithContext(ctx)

	h, err := c.ensureHandle()
	if err != nil {
		return errors.InitFailed(c.name, err)
	}

	if err := h.Init(ctx); err != nil {
		if ctx.Err() != nil {
			return err
		}
		return errors.InitFailed(c.name, err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	caps := provider.Resolve(h)
	c.mu.Lock()
	c.caps = caps
	c.mu.Unlock()

	log.Debug("Provider initialized", logger.Fields("capabilities", caps.Names()))
	return nil
}

func (c *Connector) ensureHandle() (provider.Handle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.handle != nil {
		return c.handle, nil
	}
	if c.factory == nil {
		return nil, fmt.Errorf("no handle factory for %s", c.name)
	}
	h, err := c.factory()
	if err != nil {
		return nil, err
	}
	if h == nil {
		return nil, fmt.Errorf("handle factory for %s returned nil", c.name)
	}
	c.handle = h
	return h, nil
}

// attach registers the listeners unless they already are, for an operation
// that started at deactivation generation gen. Handles without events are
// accepted silently.
func (c *Connector) attach(gen uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.deactivations {
		return errors.Deactivated(c.name)
	}
	if c.attached || c.handle == nil {
		return nil
	}
	if !c.caps.HasEvents() {
		return nil
	}

	added := make([]provider.Event, 0, len(provider.Events))
	for _, ev := range provider.Events {
		if err := c.caps.Events.On(ev, c.listeners[ev]); err != nil {
			for _, prev := range added {
				_ = c.caps.Events.Off(prev, c.listeners[prev])
			}
			return errors.InitFailed(c.name, fmt.Errorf("attach %s listener: %w", ev, err))
		}
		added = append(added, ev)
	}
	c.attached = true
	c.log.Debug("Listeners attached")
	return nil
}

// detach removes every listener, logging failures instead of returning them.
func (c *Connector) detach(log *logger.Logger) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.attached {
		return
	}
	for _, ev := range provider.Events {
		if err := c.caps.Events.Off(ev, c.listeners[ev]); err != nil {
			detachErr := errors.ListenerDetach(string(ev), err)
			log.Error("Failed to remove listener", logger.ErrorFields("detach", detachErr))
			if c.metrics != nil {
				c.metrics.RecordError(context.Background(), string(detachErr.Code), c.name)
			}
		}
	}
	c.attached = false
}

func (c *Connector) chainID(caps provider.Capabilities) uint64 {
	if caps.Chain != nil {
		if id, ok := caps.Chain.ChainID(); ok && id != 0 {
			return id
		}
	}
	return c.defaultChainID
}

// begin tags ctx with an activation id, reusing the caller's, and opens
// the operation span.
func (c *Connector) begin(ctx context.Context, operation string) (context.Context, *observability.Operation) {
	activationID := logger.ActivationFromContext(ctx)
	if activationID == "" {
		activationID = uuid.NewString()
		ctx = logger.ContextWithActivation(ctx, activationID)
	}
	return observability.Begin(ctx, observability.Operation{
		Connector:    c.name,
		Name:         operation,
		ActivationID: activationID,
		RequestID:    logger.RequestIDFromContext(ctx),
	}, c.metrics)
}

func (c *Connector) report(err error) {
	if err == nil {
		return
	}
	if c.onError != nil {
		c.onError(err)
	}
}

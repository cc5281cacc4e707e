package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/kbukum/authconnect/actions"
	"github.com/kbukum/authconnect/chain"
	"github.com/kbukum/authconnect/component"
	"github.com/kbukum/authconnect/connector"
	"github.com/kbukum/authconnect/errors"
	"github.com/kbukum/authconnect/logger"
	"github.com/kbukum/authconnect/observability"
	"github.com/kbukum/authconnect/provider"
	"github.com/kbukum/authconnect/providers/sdkwallet"
	"github.com/kbukum/authconnect/providers/social"
	"github.com/kbukum/authconnect/resilience"
	"github.com/kbukum/authconnect/sse"
)

// eagerConcurrency caps parallel eager connections at startup.
const eagerConcurrency = 4

// entry is one configured connector.
type entry struct {
	kind     string
	eager    bool
	conn     *connector.Connector
	bulkhead *resilience.Bulkhead
	unsub    func()
}

// Registry owns every configured connector and its store.
type Registry struct {
	log       *logger.Logger
	metrics   *observability.Metrics
	publisher sse.Publisher
	providers *provider.Registry[provider.Handle]

	names   []string
	entries map[string]*entry

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger handed to connectors, stores and providers.
func WithLogger(log *logger.Logger) Option {
	return func(r *Registry) { r.log = log }
}

// WithMetrics records connector metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(r *Registry) { r.metrics = m }
}

// WithPublisher streams state snapshots and errors to p, one topic per
// connector.
func WithPublisher(p sse.Publisher) Option {
	return func(r *Registry) { r.publisher = p }
}

// WithProviders replaces the provider factories. Tests use it to register
// fakes.
func WithProviders(p *provider.Registry[provider.Handle]) Option {
	return func(r *Registry) { r.providers = p }
}

// DefaultProviders registers the built-in provider kinds. Every social
// connector shares sessions, so a login survives until the next eager
// connection.
func DefaultProviders(log *logger.Logger, sessions provider.SessionStore[social.Session]) *provider.Registry[provider.Handle] {
	p := provider.NewRegistry[provider.Handle]()
	p.RegisterFactory(social.Kind, social.Factory(social.WithLogger(log), social.WithSessionStore(sessions)))
	p.RegisterFactory(sdkwallet.Kind, sdkwallet.Factory(sdkwallet.WithLogger(log)))
	return p
}

// SessionStore returns the store social sessions are kept in: files under
// dir, or memory when dir is empty.
func SessionStore(dir string) (provider.SessionStore[social.Session], error) {
	if dir == "" {
		return provider.NewMemorySessionStore[social.Session](), nil
	}
	return provider.NewFileSessionStore[social.Session](dir)
}

// New builds one connector and one store per configured connector. No
// provider is created until a connector is first used.
func New(cfg Config, opts ...Option) (*Registry, error) {
	r := &Registry{
		log:     logger.NewNop(),
		entries: make(map[string]*entry, len(cfg.Connectors)),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.providers == nil {
		sessions, err := SessionStore(cfg.SessionDir)
		if err != nil {
			return nil, err
		}
		r.providers = DefaultProviders(r.log, sessions)
	}

	for name := range cfg.Connectors {
		r.names = append(r.names, name)
	}
	sort.Strings(r.names)

	for _, name := range r.names {
		cc := cfg.Connectors[name]
		if !r.providers.Has(cc.Kind) {
			return nil, errors.InvalidInput("connectors."+name+".kind",
				fmt.Sprintf("unknown provider kind %q (known: %s)", cc.Kind, strings.Join(r.providers.List(), ", ")))
		}
		r.entries[name] = r.build(name, cc)
	}
	return r, nil
}

func (r *Registry) build(name string, cc ConnectorConfig) *entry {
	cc.Resilience.ApplyDefaults()
	spec := provider.Spec{
		Connector:       name,
		Options:         cc.Options,
		Resilience:      cc.Resilience,
		OnCircuitChange: r.circuitObserver(name),
	}
	store := actions.NewStore(name, actions.WithLogger(r.log))
	conn := connector.New(name, store, connector.HandleFactory(r.providers.Bind(cc.Kind, spec)),
		connector.WithLogger(r.log),
		connector.WithErrorHandler(r.errorHandler(name)),
		connector.WithDefaultChainID(cc.DefaultChainID),
		connector.WithInitTimeout(cc.InitTimeout),
		connector.WithMetrics(r.metrics),
	)

	e := &entry{
		kind:     cc.Kind,
		eager:    !cc.SkipEager,
		conn:     conn,
		bulkhead: resilience.NewBulkhead(name, cc.Resilience.Bulkhead, r.rejected),
	}
	e.unsub = store.Subscribe(func(st actions.State) {
		r.publish(name, sse.EventTypeState, r.view(e, st))
	})
	return e
}

// Names returns the configured connector names, sorted.
func (r *Registry) Names() []string {
	return append([]string(nil), r.names...)
}

// Statuses returns each connector's status by name.
func (r *Registry) Statuses() map[string]string {
	out := make(map[string]string, len(r.names))
	for _, name := range r.names {
		out[name] = string(r.entries[name].conn.Status())
	}
	return out
}

// Connector returns the named connector.
func (r *Registry) Connector(name string) (*connector.Connector, error) {
	e, ok := r.entries[name]
	if !ok {
		return nil, errors.NotFound("connector", name)
	}
	return e.conn, nil
}

// Hooks are the derived read-only views of one connector's state.
type Hooks struct {
	ChainID      func() (uint64, bool)
	Accounts     func() []string
	IsActive     func() bool
	IsActivating func() bool
}

// Hooks returns the derived state views of the named connector.
func (r *Registry) Hooks(name string) (Hooks, error) {
	conn, err := r.Connector(name)
	if err != nil {
		return Hooks{}, err
	}
	store := conn.Store()
	return Hooks{
		ChainID: func() (uint64, bool) {
			id := store.ChainID()
			return id, id != 0
		},
		Accounts:     store.Accounts,
		IsActive:     store.IsActive,
		IsActivating: store.IsActivating,
	}, nil
}

// EagerConnectAll tries to restore every connector's session. Failures are
// expected (no previous session) and only logged at debug level.
func (r *Registry) EagerConnectAll(ctx context.Context) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(eagerConcurrency)
	for _, name := range r.names {
		e := r.entries[name]
		if !e.eager {
			continue
		}
		g.Go(func() error {
			if err := e.conn.ConnectEagerly(ctx); err != nil {
				r.log.Debug("Eager connection failed", logger.Fields(
					logger.FieldConnector, name,
					logger.FieldError, err.Error(),
				))
			}
			return nil
		})
	}
	_ = g.Wait()
}

// Activate runs a user-initiated activation of the named connector, capped
// by that connector's bulkhead.
func (r *Registry) Activate(ctx context.Context, name string, opts connector.Options) error {
	e, ok := r.entries[name]
	if !ok {
		return errors.NotFound("connector", name)
	}
	return e.bulkhead.Do(ctx, func(ctx context.Context) error {
		return e.conn.Activate(ctx, opts)
	})
}

func (r *Registry) rejected(name string, cause error) {
	r.log.Warn("Activation rejected", logger.Fields(
		logger.FieldConnector, name,
		logger.FieldError, cause.Error(),
	))
	if r.metrics != nil {
		r.metrics.RecordError(context.Background(), string(errors.ErrCodeServiceUnavailable), "bulkhead:"+name)
	}
}

type circuitView struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// circuitObserver reports a connector's backend breaker transitions.
func (r *Registry) circuitObserver(name string) func(from, to string) {
	return func(from, to string) {
		if r.metrics != nil {
			r.metrics.RecordCircuit(context.Background(), name, to)
		}
		r.publish(name, sse.EventTypeCircuit, circuitView{From: from, To: to})
	}
}

// View is the externally visible state of a connector.
type View struct {
	Name       string           `json:"name"`
	Kind       string           `json:"kind"`
	Status     connector.Status `json:"status"`
	ChainID    uint64           `json:"chain_id,omitempty"`
	ChainHex   string           `json:"chain_id_hex,omitempty"`
	Accounts   []string         `json:"accounts"`
	IsActive   bool             `json:"is_active"`
	Activating bool             `json:"activating"`
}

// View returns the current state of the named connector.
func (r *Registry) View(name string) (View, error) {
	e, ok := r.entries[name]
	if !ok {
		return View{}, errors.NotFound("connector", name)
	}
	return r.view(e, e.conn.Store().State()), nil
}

// Views returns the state of every connector, sorted by name.
func (r *Registry) Views() []View {
	out := make([]View, 0, len(r.names))
	for _, name := range r.names {
		e := r.entries[name]
		out = append(out, r.view(e, e.conn.Store().State()))
	}
	return out
}

func (r *Registry) view(e *entry, st actions.State) View {
	v := View{
		Name:       e.conn.Name(),
		Kind:       e.kind,
		Status:     e.conn.Status(),
		ChainID:    st.ChainID,
		Accounts:   st.Accounts,
		IsActive:   st.IsActive(),
		Activating: st.Activating,
	}
	if st.ChainID != 0 {
		v.ChainHex = chain.ID(st.ChainID).String()
	}
	return v
}

// errorView is the payload of an SSE error event.
type errorView struct {
	Code    any    `json:"code"`
	Message string `json:"message"`
}

func (r *Registry) errorHandler(name string) func(error) {
	return func(err error) {
		ev := errorView{Message: err.Error()}
		switch e := err.(type) {
		case *provider.RPCError:
			ev.Code, ev.Message = e.Code, e.Message
		default:
			if appErr, ok := errors.AsAppError(err); ok {
				ev.Code, ev.Message = appErr.Code, appErr.Message
			}
		}
		r.log.Warn("Connector reported an error", logger.Fields(
			logger.FieldConnector, name,
			logger.FieldError, err.Error(),
		))
		r.publish(name, sse.EventTypeError, ev)
	}
}

func (r *Registry) publish(topic, eventType string, v any) {
	if r.publisher == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		r.log.Error("Failed to encode event", logger.ErrorFields("publish", err))
		return
	}
	r.publisher.Publish(topic, eventType, data)
}

// --- component.Component ---

var (
	_ component.Component   = (*Registry)(nil)
	_ component.Describable = (*Registry)(nil)
)

// Name returns the component name.
func (r *Registry) Name() string { return "connectors" }

// Start begins eager connection of every connector in the background.
func (r *Registry) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return nil
	}
	r.started = true

	ctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	r.cancel = cancel
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.EagerConnectAll(ctx)
	}()
	return nil
}

// Stop cancels pending eager connections and closes every provider.
func (r *Registry) Stop(ctx context.Context) error {
	r.mu.Lock()
	if r.cancel != nil {
		r.cancel()
	}
	r.mu.Unlock()
	r.wg.Wait()

	var errs []error
	for _, name := range r.names {
		e := r.entries[name]
		e.unsub()
		if err := e.conn.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close connectors: %v", errs)
	}
	return nil
}

// Health is degraded when any provider backend is unreachable. A connector
// without a session is not a fault.
func (r *Registry) Health(ctx context.Context) component.Health {
	var unreachable []string
	for _, h := range r.CheckHealth(ctx) {
		if h.Details["provider"] == provider.StatusUnavailable.String() {
			unreachable = append(unreachable, strings.TrimPrefix(h.Name, "connector:"))
		}
	}
	if len(unreachable) > 0 {
		return component.Health{
			Name:    r.Name(),
			Status:  component.StatusDegraded,
			Message: "unreachable: " + strings.Join(unreachable, ", "),
		}
	}
	return component.Health{
		Name:    r.Name(),
		Status:  component.StatusHealthy,
		Message: fmt.Sprintf("%d connectors", len(r.names)),
	}
}

// CheckHealth reports one entry per connector. Provider trouble degrades
// the service but never takes it down: the daemon still serves state.
func (r *Registry) CheckHealth(ctx context.Context) []observability.Health {
	out := make([]observability.Health, 0, len(r.names))
	for _, name := range r.names {
		e := r.entries[name]
		h := observability.Health{
			Name:    "connector:" + name,
			Status:  observability.HealthStatusUp,
			Details: map[string]string{"kind": e.kind, "status": string(e.conn.Status())},
		}
		if ph := e.conn.Health(ctx); ph != nil {
			h.Message = ph.Message
			h.Details["provider"] = ph.Status.String()
			if ph.Status == provider.StatusUnavailable {
				h.Status = observability.HealthStatusDegraded
			}
		}
		out = append(out, h)
	}
	return out
}

// Describe reports the configured connectors for the startup summary.
func (r *Registry) Describe() component.Description {
	parts := make([]string, 0, len(r.names))
	for _, name := range r.names {
		parts = append(parts, name+"("+r.entries[name].kind+")")
	}
	return component.Description{
		Name:    "Connectors",
		Type:    "connectors",
		Details: strings.Join(parts, ", "),
	}
}

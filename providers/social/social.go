package social

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/kbukum/authconnect/chain"
	"github.com/kbukum/authconnect/errors"
	"github.com/kbukum/authconnect/httpclient"
	"github.com/kbukum/authconnect/logger"
	"github.com/kbukum/authconnect/provider"
	"github.com/kbukum/authconnect/resilience"
	"github.com/kbukum/authconnect/validation"
	"github.com/kbukum/authconnect/version"
)

const serviceName = "social-auth"

// Disconnect codes carried in provider.RPCError payloads.
const (
	CodeUserLoggedOut  = 4900
	CodeSessionExpired = 4901
)

type statusResponse struct {
	ChainID uint64 `json:"chain_id"`
}

type tokenResponse struct {
	IDToken string `json:"id_token"`
}

type chainResponse struct {
	ChainID uint64 `json:"chain_id"`
}

// Provider is the social-login provider handle.
type Provider struct {
	*provider.Emitter

	cfg      Config
	client   *httpclient.Client
	tokens   *tokenParser
	sessions provider.SessionStore[Session]
	log      *logger.Logger
	now      func() time.Time
	// onCircuit observes backend circuit transitions.
	onCircuit func(from, to string)

	initMu      sync.Mutex
	initialized bool

	mu           sync.RWMutex
	ready        bool
	backendChain uint64
	session      *Session

	stop chan struct{}
	wg   sync.WaitGroup
}

// Option configures a Provider.
type Option func(*Provider)

// WithSessionStore persists sessions across provider instances.
func WithSessionStore(s provider.SessionStore[Session]) Option {
	return func(p *Provider) { p.sessions = s }
}

// WithCircuitObserver is called on every transition of the backend circuit.
func WithCircuitObserver(fn func(from, to string)) Option {
	return func(p *Provider) { p.onCircuit = fn }
}

// WithLogger sets the provider logger.
func WithLogger(log *logger.Logger) Option {
	return func(p *Provider) { p.log = log }
}

// New creates a social provider. No backend call is made until Init.
func New(cfg Config, opts ...Option) (*Provider, error) {
	cfg.ApplyDefaults()
	if err := validation.Validate(cfg); err != nil {
		return nil, err
	}

	p := &Provider{
		Emitter:  provider.NewEmitter(),
		cfg:      cfg,
		tokens:   newTokenParser(cfg.TokenSecret, cfg.TokenIssuer),
		sessions: provider.NewMemorySessionStore[Session](),
		log:      logger.NewNop(),
		now:      time.Now,
		stop:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.log = p.log.WithConnector(cfg.Connector).WithComponent(Kind)

	headers := map[string]string{"X-Project-Id": cfg.ProjectID}
	if cfg.ClientKey != "" {
		headers["X-Client-Key"] = cfg.ClientKey
	}
	breaker := resilience.NewBreaker(cfg.Connector, cfg.Resilience.Breaker,
		resilience.OnStateChange(func(_, from, to string) {
			p.log.Warn("Auth backend circuit changed", logger.Fields("from", from, "to", to))
			if p.onCircuit != nil {
				p.onCircuit(from, to)
			}
		}))
	retry := cfg.Resilience.Retry

	client, err := httpclient.New(httpclient.Config{
		Service:   serviceName,
		BaseURL:   cfg.BaseURL,
		Timeout:   cfg.Timeout,
		TLS:       cfg.TLS,
		UserAgent: version.UserAgent(Kind),
		Cookies:   true,
		Headers:   headers,
		Retry:     &retry,
		Breaker:   breaker,
	})
	if err != nil {
		return nil, err
	}
	p.client = client
	return p, nil
}

// Factory builds providers from a connector spec.
func Factory(opts ...Option) provider.Factory[provider.Handle] {
	return func(spec provider.Spec) (provider.Handle, error) {
		cfg, err := DecodeConfig(spec)
		if err != nil {
			return nil, err
		}
		if spec.OnCircuitChange != nil {
			opts = append(slices.Clip(opts), WithCircuitObserver(spec.OnCircuitChange))
		}
		return New(cfg, opts...)
	}
}

// Init reaches the backend and restores a stored session. Once it has
// succeeded, later calls return nil without touching the backend.
func (p *Provider) Init(ctx context.Context) error {
	p.initMu.Lock()
	defer p.initMu.Unlock()
	if p.initialized {
		return nil
	}
	if err := p.init(ctx); err != nil {
		return err
	}
	p.initialized = true
	return nil
}

func (p *Provider) init(ctx context.Context) error {
	status, err := httpclient.Get[statusResponse](ctx, p.client, "/v1/status")
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.backendChain = status.ChainID
	p.ready = true
	p.mu.Unlock()

	if err := p.restore(ctx); err != nil {
		p.log.Debug("No session restored", logger.ErrorFields("restore", err))
	}

	if p.cfg.RefreshInterval > 0 {
		p.wg.Add(1)
		go p.refreshLoop()
	}
	p.log.Debug("Auth backend reachable", logger.Fields(logger.FieldChainID, status.ChainID))
	return nil
}

// restore loads the stored session and confirms it with the backend. A
// session the backend no longer accepts is forgotten and reported as
// NO_SESSION.
func (p *Provider) restore(ctx context.Context) error {
	key := p.sessionKey()
	stored, err := p.sessions.Load(ctx, key)
	if err != nil {
		return err
	}
	if stored == nil || stored.IDToken == "" {
		return errors.NoSession(p.cfg.Connector)
	}

	resp, err := httpclient.Get[tokenResponse](ctx, p.client, "/v1/session", httpclient.WithBearer(stored.IDToken))
	if httpclient.IsUnauthorized(err) {
		_ = p.sessions.Delete(ctx, key)
		return errors.NoSession(p.cfg.Connector).WithCause(err)
	}
	if err != nil {
		return err
	}

	token := resp.IDToken
	if token == "" {
		token = stored.IDToken
	}
	s, err := p.tokens.Parse(token)
	if err != nil {
		_ = p.sessions.Delete(ctx, key)
		return errors.InvalidToken(err)
	}
	if s.ChainID == 0 {
		s.ChainID = stored.ChainID
	}
	if s.AuthType == "" {
		s.AuthType = stored.AuthType
	}
	p.setSession(s)
	_ = p.sessions.Save(ctx, key, s, s.TTL(p.now()))
	p.log.Info("Social session restored", logger.Fields("auth_type", s.AuthType))
	return nil
}

// Address returns the signed-in wallet address.
func (p *Provider) Address() (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.session == nil || p.session.Expired(p.now()) {
		return "", false
	}
	return p.session.Address, true
}

// Provider returns the backend client once the backend has answered.
func (p *Provider) Provider() (any, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if !p.ready {
		return nil, false
	}
	return p.client, true
}

// Connected reports whether a live session exists.
func (p *Provider) Connected() bool {
	_, ok := p.Address()
	return ok
}

// ChainID reports the session chain, else the backend chain, else the
// configured one.
func (p *Provider) ChainID() (uint64, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	switch {
	case p.session != nil && p.session.ChainID != 0:
		return p.session.ChainID, true
	case p.backendChain != 0:
		return p.backendChain, true
	default:
		return p.cfg.ChainID, true
	}
}

// Session returns a copy of the current session.
func (p *Provider) Session() (Session, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.session == nil {
		return Session{}, false
	}
	return *p.session, true
}

// Login runs the backend login for opts.PreferredAuthType and stores the
// resulting session.
func (p *Provider) Login(ctx context.Context, opts provider.LoginOptions) error {
	body := map[string]any{"project_id": p.cfg.ProjectID}
	if opts.PreferredAuthType != "" {
		body["preferred_auth_type"] = opts.PreferredAuthType
	}
	for k, v := range opts.Extra {
		if _, taken := body[k]; !taken {
			body[k] = v
		}
	}

	resp, err := httpclient.Post[tokenResponse](ctx, p.client, "/v1/login", body)
	if err != nil {
		return err
	}
	s, err := p.tokens.Parse(resp.IDToken)
	if err != nil {
		return errors.InvalidToken(err)
	}
	if s.AuthType == "" {
		s.AuthType = opts.PreferredAuthType
	}

	if err := p.sessions.Save(ctx, p.sessionKey(), s, s.TTL(p.now())); err != nil {
		p.log.Warn("Failed to persist session", logger.ErrorFields("save_session", err))
	}
	p.setSession(s)
	p.log.Info("Social login completed", logger.Fields("auth_type", s.AuthType))
	return nil
}

// SwitchChain asks the backend to move the session to id and announces the
// change to listeners.
func (p *Provider) SwitchChain(ctx context.Context, id uint64) error {
	if err := chain.ValidateID(id); err != nil {
		return errors.InvalidInput("chain_id", err.Error())
	}
	resp, err := httpclient.Post[chainResponse](ctx, p.client, "/v1/chain", map[string]any{"chain_id": id}, p.bearer())
	if err != nil {
		return err
	}
	if resp.ChainID != 0 {
		id = resp.ChainID
	}

	p.mu.Lock()
	if p.session != nil {
		p.session.ChainID = id
	}
	p.mu.Unlock()

	p.Emit(provider.EventChainChanged, chain.ID(id).String())
	return nil
}

// Refresh re-validates the session with the backend. An expired or revoked
// session emits disconnect; a different wallet emits accountsChanged.
func (p *Provider) Refresh(ctx context.Context) error {
	p.mu.RLock()
	prev := p.session
	p.mu.RUnlock()
	if prev == nil {
		return nil
	}

	resp, err := httpclient.Get[tokenResponse](ctx, p.client, "/v1/session", httpclient.WithBearer(prev.IDToken))
	if httpclient.IsUnauthorized(err) {
		p.expire(ctx, "session revoked by auth backend")
		return nil
	}
	if err != nil {
		return err
	}

	s, err := p.tokens.Parse(resp.IDToken)
	if err != nil {
		p.expire(ctx, err.Error())
		return nil
	}
	if s.ChainID == 0 {
		s.ChainID = prev.ChainID
	}
	p.setSession(s)
	_ = p.sessions.Save(ctx, p.sessionKey(), s, s.TTL(p.now()))

	if s.Address != prev.Address {
		p.Emit(provider.EventAccountsChanged, []string{s.Address})
	}
	if s.ChainID != prev.ChainID && s.ChainID != 0 {
		p.Emit(provider.EventChainChanged, chain.ID(s.ChainID).String())
	}
	return nil
}

func (p *Provider) expire(ctx context.Context, reason string) {
	p.clearSession(ctx)
	p.Emit(provider.EventDisconnect, &provider.RPCError{Code: CodeSessionExpired, Message: reason})
}

// Disconnect logs out at the backend and forgets the session. The local
// session is dropped even when the backend call fails.
func (p *Provider) Disconnect(ctx context.Context) error {
	req := httpclient.Request{Method: http.MethodPost, Path: "/v1/logout"}
	p.bearer()(&req)
	_, err := p.client.Do(ctx, req)
	p.clearSession(ctx)
	if err != nil && !httpclient.IsUnauthorized(err) {
		return err
	}
	return nil
}

// Close stops session polling and drops listeners.
func (p *Provider) Close(context.Context) error {
	p.mu.Lock()
	select {
	case <-p.stop:
	default:
		close(p.stop)
	}
	p.mu.Unlock()
	p.wg.Wait()
	p.Emitter.Close()
	return nil
}

// Health reports the backend circuit and the session.
func (p *Provider) Health(context.Context) provider.HealthStatus {
	breaker := p.client.Breaker()
	details := map[string]any{"circuit": breaker.State()}
	if breaker.Open() {
		return provider.Unavailable("auth backend circuit open", details)
	}
	if !p.Connected() {
		return provider.Degraded("no session", details)
	}
	return provider.Healthy(details)
}

func (p *Provider) refreshLoop() {
	defer p.wg.Done()
	ticker := time.NewTicker(p.cfg.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), p.cfg.Timeout)
			if err := p.Refresh(ctx); err != nil {
				p.log.Warn("Session refresh failed", logger.ErrorFields("refresh", err))
			}
			cancel()
		}
	}
}

func (p *Provider) setSession(s *Session) {
	p.mu.Lock()
	p.session = s
	p.mu.Unlock()
}

func (p *Provider) clearSession(ctx context.Context) {
	p.mu.Lock()
	p.session = nil
	p.mu.Unlock()
	_ = p.sessions.Delete(ctx, p.sessionKey())
	_ = p.client.ClearCookies()
}

// bearer sends the current ID token, if any.
func (p *Provider) bearer() httpclient.CallOption {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.session == nil {
		return httpclient.WithBearer("")
	}
	return httpclient.WithBearer(p.session.IDToken)
}

func (p *Provider) sessionKey() string {
	return fmt.Sprintf("%s:%s", Kind, p.cfg.ProjectID)
}

var (
	_ provider.Handle             = (*Provider)(nil)
	_ provider.EventSource        = (*Provider)(nil)
	_ provider.Authenticator      = (*Provider)(nil)
	_ provider.ChainReporter      = (*Provider)(nil)
	_ provider.ConnectionReporter = (*Provider)(nil)
	_ provider.Disconnecter       = (*Provider)(nil)
	_ provider.Closer             = (*Provider)(nil)
	_ provider.HealthChecker      = (*Provider)(nil)
)

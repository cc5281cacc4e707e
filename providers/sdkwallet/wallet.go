package sdkwallet

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kbukum/authconnect/chain"
	"github.com/kbukum/authconnect/errors"
	"github.com/kbukum/authconnect/logger"
	"github.com/kbukum/authconnect/provider"
	"github.com/kbukum/authconnect/resilience"
	"github.com/kbukum/authconnect/validation"
	"github.com/kbukum/authconnect/version"
)

const writeTimeout = 5 * time.Second

// Provider is the wallet host provider handle.
type Provider struct {
	*provider.Emitter

	cfg    Config
	dialer *websocket.Dialer
	header http.Header
	log    *logger.Logger
	nextID atomic.Uint64

	initMu sync.Mutex
	ready  atomic.Bool

	// dialMu serializes (re)connects.
	dialMu  sync.Mutex
	writeMu sync.Mutex

	mu       sync.RWMutex
	conn     *websocket.Conn
	pending  map[uint64]chan *message
	accounts []string
	chainID  uint64
	lastPing time.Time
	closed   bool

	stop chan struct{}
	wg   sync.WaitGroup
}

// Option configures a Provider.
type Option func(*Provider)

// WithLogger sets the provider logger.
func WithLogger(log *logger.Logger) Option {
	return func(p *Provider) { p.log = log }
}

// New creates a wallet host provider. Nothing is dialed until Init.
func New(cfg Config, opts ...Option) (*Provider, error) {
	cfg.ApplyDefaults()
	if err := validation.Validate(cfg); err != nil {
		return nil, err
	}
	tlsCfg, err := cfg.TLS.Build()
	if err != nil {
		return nil, fmt.Errorf("sdkwallet: %w", err)
	}

	header := http.Header{}
	header.Set("User-Agent", version.UserAgent(Kind))
	if cfg.AppID != "" {
		header.Set("X-App-Id", cfg.AppID)
	}

	p := &Provider{
		Emitter: provider.NewEmitter(),
		cfg:     cfg,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: cfg.DialTimeout,
			TLSClientConfig:  tlsCfg,
		},
		header:  header,
		log:     logger.NewNop(),
		pending: make(map[uint64]chan *message),
		stop:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.log = p.log.WithConnector(cfg.Connector).WithComponent(Kind)
	return p, nil
}

// Factory builds providers from a connector spec.
func Factory(opts ...Option) provider.Factory[provider.Handle] {
	return func(spec provider.Spec) (provider.Handle, error) {
		cfg, err := DecodeConfig(spec)
		if err != nil {
			return nil, err
		}
		return New(cfg, opts...)
	}
}

// Init connects to the host and loads any existing session. Once it has
// succeeded, later calls return nil.
func (p *Provider) Init(ctx context.Context) error {
	p.initMu.Lock()
	defer p.initMu.Unlock()
	if p.ready.Load() {
		return nil
	}

	var res sessionResult
	if err := p.Request(ctx, methodGetSession, nil, &res); err != nil {
		return err
	}
	if err := p.applySession(res); err != nil {
		return err
	}
	p.ready.Store(true)
	return nil
}

// Address returns the first account of the host session.
func (p *Provider) Address() (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if len(p.accounts) == 0 {
		return "", false
	}
	return p.accounts[0], true
}

// Provider returns the provider itself as the RPC client once initialized.
func (p *Provider) Provider() (any, bool) {
	if !p.ready.Load() {
		return nil, false
	}
	return p, true
}

// Connected reports whether the socket is up and the host has a session.
func (p *Provider) Connected() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.conn != nil && len(p.accounts) > 0
}

// ChainID returns the chain the host last reported.
func (p *Provider) ChainID() (uint64, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.chainID, p.chainID != 0
}

// Login asks the host to sign the user in.
func (p *Provider) Login(ctx context.Context, opts provider.LoginOptions) error {
	var res sessionResult
	params := loginParams{PreferredAuthType: opts.PreferredAuthType, Extra: opts.Extra}
	if err := p.Request(ctx, methodRequestAccounts, params, &res); err != nil {
		return err
	}
	return p.applySession(res)
}

// Disconnect ends the host session. Local state is cleared even when the
// host cannot be reached.
func (p *Provider) Disconnect(ctx context.Context) error {
	p.mu.RLock()
	online := p.conn != nil
	p.mu.RUnlock()

	var err error
	if online {
		err = p.Request(ctx, methodDisconnect, nil, nil)
	}
	p.setAccounts(nil)
	return err
}

// Request sends method to the host and decodes the result into out, which
// may be nil. It dials the host if the socket is down.
func (p *Provider) Request(ctx context.Context, method string, params, out any) error {
	conn, err := p.connect(ctx)
	if err != nil {
		return err
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.RequestTimeout)
		defer cancel()
	}

	msg := &message{ID: p.nextID.Add(1), Method: method}
	if params != nil {
		raw, err := json.Marshal(params)
		if err != nil {
			return errors.InvalidInput("params", err.Error())
		}
		msg.Params = raw
	}

	ch := make(chan *message, 1)
	p.mu.Lock()
	p.pending[msg.ID] = ch
	p.mu.Unlock()

	if err := p.write(conn, msg); err != nil {
		p.forget(msg.ID)
		return errors.ConnectionFailed(Kind).WithCause(err)
	}

	select {
	case <-ctx.Done():
		p.forget(msg.ID)
		return errors.Timeout(method).WithCause(ctx.Err())
	case resp := <-ch:
		if resp.Error != nil {
			return resp.Error
		}
		if out != nil && len(resp.Result) > 0 {
			if err := json.Unmarshal(resp.Result, out); err != nil {
				return errors.ExternalServiceError(Kind, fmt.Errorf("decode %s result: %w", method, err))
			}
		}
		return nil
	}
}

// Close shuts the socket and stops background goroutines.
func (p *Provider) Close(context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	conn := p.conn
	p.conn = nil
	pending := p.takePending()
	p.mu.Unlock()

	close(p.stop)
	failPending(pending, "provider closed")
	if conn != nil {
		_ = conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		_ = conn.Close()
	}
	p.wg.Wait()
	p.Emitter.Close()
	return nil
}

// Health reports the socket and the host session.
func (p *Provider) Health(context.Context) provider.HealthStatus {
	p.mu.RLock()
	defer p.mu.RUnlock()

	details := map[string]any{"url": p.cfg.URL}
	if !p.lastPing.IsZero() {
		details["last_ping"] = p.lastPing.Format(time.RFC3339)
	}
	switch {
	case p.closed:
		return provider.Unavailable("closed", details)
	case p.conn == nil:
		return provider.Unavailable("not connected", details)
	case len(p.accounts) == 0:
		return provider.Degraded("no session", details)
	default:
		return provider.Healthy(details)
	}
}

// connect returns the live socket, dialing with retry when there is none.
func (p *Provider) connect(ctx context.Context) (*websocket.Conn, error) {
	p.dialMu.Lock()
	defer p.dialMu.Unlock()

	p.mu.RLock()
	conn, closed := p.conn, p.closed
	p.mu.RUnlock()
	if closed {
		return nil, errors.ServiceUnavailable(Kind)
	}
	if conn != nil {
		return conn, nil
	}

	retry := p.cfg.Retry
	retry.MaxAttempts = p.cfg.DialAttempts
	conn, err := resilience.Retry(ctx, retry, func() (*websocket.Conn, error) {
		return p.dial(ctx)
	}, func(attempt int, err error, wait time.Duration) {
		p.log.Debug("Retrying wallet host dial", logger.Fields("attempt", attempt, "backoff", wait.String(), logger.FieldError, err.Error()))
	})
	if err != nil {
		if errors.IsAppError(err) {
			return nil, err
		}
		return nil, errors.ConnectionFailed(Kind).WithCause(err)
	}

	conn.SetPingHandler(func(data string) error {
		p.touch()
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(time.Second))
	})
	conn.SetPongHandler(func(string) error {
		p.touch()
		return nil
	})

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		_ = conn.Close()
		return nil, errors.ServiceUnavailable(Kind)
	}
	p.conn = conn
	p.lastPing = time.Now()
	p.mu.Unlock()

	lost := make(chan struct{})
	p.wg.Add(1)
	go p.readLoop(conn, lost)
	if p.cfg.PingInterval > 0 {
		p.wg.Add(1)
		go p.pingLoop(conn, lost)
	}
	p.log.Debug("Wallet host connected", logger.Fields("url", p.cfg.URL))
	return conn, nil
}

func (p *Provider) dial(ctx context.Context) (*websocket.Conn, error) {
	conn, resp, err := p.dialer.DialContext(ctx, p.cfg.URL, p.header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err == nil {
		return conn, nil
	}
	if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
		return nil, errors.Unauthorized(fmt.Sprintf("wallet host rejected handshake: %s", resp.Status))
	}
	if ctx.Err() == nil {
		// Flattened so a handshake timeout stays retryable.
		return nil, fmt.Errorf("dial %s: %v", p.cfg.URL, err)
	}
	return nil, err
}

func (p *Provider) write(conn *websocket.Conn, msg *message) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteJSON(msg)
}

func (p *Provider) readLoop(conn *websocket.Conn, lost chan struct{}) {
	defer p.wg.Done()
	defer close(lost)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			p.dropped(conn, err)
			return
		}

		var msg message
		if err := json.Unmarshal(data, &msg); err != nil {
			p.log.Warn("Ignoring malformed frame", logger.ErrorFields("read", err))
			continue
		}
		if msg.isNotification() {
			p.handleNotification(&msg)
			continue
		}

		p.mu.Lock()
		ch := p.pending[msg.ID]
		delete(p.pending, msg.ID)
		p.mu.Unlock()
		if ch != nil {
			ch <- &msg
		}
	}
}

func (p *Provider) pingLoop(conn *websocket.Conn, lost chan struct{}) {
	defer p.wg.Done()
	ticker := time.NewTicker(p.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stop:
			return
		case <-lost:
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				p.log.Debug("Keepalive ping failed", logger.ErrorFields("ping", err))
			}
		}
	}
}

// dropped forgets conn after a read error and reports the loss unless the
// provider is closing.
func (p *Provider) dropped(conn *websocket.Conn, err error) {
	p.mu.Lock()
	if p.conn != conn {
		p.mu.Unlock()
		return
	}
	p.conn = nil
	p.accounts = nil
	pending := p.takePending()
	p.mu.Unlock()

	_ = conn.Close()
	failPending(pending, "connection lost")

	p.log.Warn("Wallet host connection lost", logger.ErrorFields("read", err))
	p.Emit(provider.EventDisconnect, &provider.RPCError{Code: CodeConnectionLost, Message: err.Error()})
}

func (p *Provider) handleNotification(msg *message) {
	log := p.log.WithFields(logger.Fields(logger.FieldEvent, msg.Method))

	switch provider.Event(msg.Method) {
	case provider.EventChainChanged:
		var raw any
		if err := json.Unmarshal(msg.Params, &raw); err != nil {
			log.Warn("Bad chainChanged params", logger.ErrorFields("decode", err))
			return
		}
		if id, err := chain.ParseID(raw); err == nil {
			p.mu.Lock()
			p.chainID = id
			p.mu.Unlock()
		}
		p.Emit(provider.EventChainChanged, raw)

	case provider.EventAccountsChanged:
		var accounts []string
		if err := json.Unmarshal(msg.Params, &accounts); err != nil {
			log.Warn("Bad accountsChanged params", logger.ErrorFields("decode", err))
			return
		}
		p.setAccounts(accounts)
		p.Emit(provider.EventAccountsChanged, accounts)

	case provider.EventDisconnect:
		p.setAccounts(nil)
		var rpcErr provider.RPCError
		if len(msg.Params) == 0 || string(msg.Params) == "null" || json.Unmarshal(msg.Params, &rpcErr) != nil {
			p.Emit(provider.EventDisconnect, nil)
			return
		}
		p.Emit(provider.EventDisconnect, &rpcErr)

	default:
		log.Debug("Ignoring unknown notification")
	}
}

func (p *Provider) applySession(res sessionResult) error {
	var id uint64
	if res.ChainID != nil {
		parsed, err := chain.ParseID(res.ChainID)
		if err != nil {
			return errors.ExternalServiceError(Kind, fmt.Errorf("session chain_id: %w", err))
		}
		id = parsed
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.accounts = append([]string(nil), res.Accounts...)
	if id != 0 {
		p.chainID = id
	}
	return nil
}

func (p *Provider) setAccounts(accounts []string) {
	p.mu.Lock()
	p.accounts = append([]string(nil), accounts...)
	p.mu.Unlock()
}

func (p *Provider) touch() {
	p.mu.Lock()
	p.lastPing = time.Now()
	p.mu.Unlock()
}

func (p *Provider) forget(id uint64) {
	p.mu.Lock()
	delete(p.pending, id)
	p.mu.Unlock()
}

// takePending must be called with p.mu held.
func (p *Provider) takePending() map[uint64]chan *message {
	pending := p.pending
	p.pending = make(map[uint64]chan *message)
	return pending
}

func failPending(pending map[uint64]chan *message, reason string) {
	for _, ch := range pending {
		ch <- &message{Error: &provider.RPCError{Code: CodeConnectionLost, Message: reason}}
	}
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

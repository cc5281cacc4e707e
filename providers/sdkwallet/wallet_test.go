package sdkwallet

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/gorilla/websocket"

	apperrors "github.com/kbukum/authconnect/errors"
	"github.com/kbukum/authconnect/provider"
	"github.com/kbukum/authconnect/resilience"
)

const (
	addrA = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"
	addrB = "0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359"
)

// host is a scripted wallet host.
type host struct {
	t *testing.T

	mu         sync.Mutex
	session    sessionResult
	login      sessionResult
	requests   []message
	headers    []http.Header
	rejectWith []int
	conn       *websocket.Conn
	writeMu    sync.Mutex
}

func newHost(t *testing.T) (*host, string) {
	t.Helper()
	h := &host{
		t:       t,
		session: sessionResult{Accounts: []string{}},
		login:   sessionResult{Accounts: []string{addrB}, ChainID: float64(137)},
	}
	upgrader := websocket.Upgrader{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.mu.Lock()
		h.headers = append(h.headers, r.Header.Clone())
		var reject int
		if len(h.rejectWith) > 0 {
			reject, h.rejectWith = h.rejectWith[0], h.rejectWith[1:]
		}
		h.mu.Unlock()
		if reject != 0 {
			http.Error(w, http.StatusText(reject), reject)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		h.mu.Lock()
		h.conn = conn
		h.mu.Unlock()
		h.serve(conn)
	}))
	t.Cleanup(srv.Close)
	return h, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func (h *host) serve(conn *websocket.Conn) {
	for {
		var msg message
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		h.mu.Lock()
		h.requests = append(h.requests, msg)
		resp := message{ID: msg.ID}
		switch msg.Method {
		case methodGetSession:
			resp.Result, _ = json.Marshal(h.session)
		case methodRequestAccounts:
			var params loginParams
			_ = json.Unmarshal(msg.Params, &params)
			if params.PreferredAuthType == "reject" {
				resp.Error = &provider.RPCError{Code: 4001, Message: "User rejected the request."}
			} else {
				h.session = h.login
				resp.Result, _ = json.Marshal(h.login)
			}
		case methodDisconnect:
			h.session = sessionResult{Accounts: []string{}}
			resp.Result = json.RawMessage(`{}`)
		case "slow":
			h.mu.Unlock()
			continue
		default:
			resp.Error = &provider.RPCError{Code: -32601, Message: "method not found"}
		}
		h.mu.Unlock()
		h.write(conn, resp)
	}
}

func (h *host) write(conn *websocket.Conn, v any) {
	h.writeMu.Lock()
	defer h.writeMu.Unlock()
	if err := conn.WriteJSON(v); err != nil {
		h.t.Logf("host write: %v", err)
	}
}

func (h *host) push(method string, params any) {
	raw, _ := json.Marshal(params)
	h.mu.Lock()
	conn := h.conn
	h.mu.Unlock()
	h.write(conn, message{Method: method, Params: raw})
}

func (h *host) drop() {
	h.mu.Lock()
	conn := h.conn
	h.mu.Unlock()
	_ = conn.Close()
}

func (h *host) methods() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, 0, len(h.requests))
	for _, r := range h.requests {
		out = append(out, r.Method)
	}
	return out
}

func (h *host) handshakes() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.headers)
}

type delivery struct {
	event   provider.Event
	payload any
}

func listen(t *testing.T, p *Provider) <-chan delivery {
	t.Helper()
	ch := make(chan delivery, 16)
	for _, ev := range provider.Events {
		ev := ev
		if err := p.On(ev, &provider.ListenerFunc{Fn: func(payload any) {
			ch <- delivery{event: ev, payload: payload}
		}}); err != nil {
			t.Fatalf("On(%s): %v", ev, err)
		}
	}
	return ch
}

func next(t *testing.T, ch <-chan delivery) delivery {
	t.Helper()
	select {
	case d := <-ch:
		return d
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return delivery{}
	}
}

func newProvider(t *testing.T, url string) *Provider {
	t.Helper()
	p, err := New(Config{URL: url, AppID: "app-1", RequestTimeout: 2 * time.Second})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = p.Close(context.Background()) })
	return p
}

func TestDecodeConfig(t *testing.T) {
	cfg, err := DecodeConfig(provider.Spec{
		Connector: "wallet",
		Options: map[string]any{
			"url":           "wss://wallet.example.com/ws",
			"app_id":        "app-1",
			"dial_attempts": "5",
			"ping_interval": "15s",
		},
		Resilience: resilience.Policy{Retry: resilience.RetryConfig{InitialInterval: 50 * time.Millisecond}},
	})
	if err != nil {
		t.Fatalf("DecodeConfig: %v", err)
	}
	want := Config{
		URL:            "wss://wallet.example.com/ws",
		AppID:          "app-1",
		DialTimeout:    10 * time.Second,
		DialAttempts:   5,
		RequestTimeout: 30 * time.Second,
		PingInterval:   15 * time.Second,
		Connector:      "wallet",
		Retry:          resilience.RetryConfig{MaxAttempts: 3, InitialInterval: 50 * time.Millisecond, MaxInterval: 5 * time.Second},
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(Config{}); !apperrors.IsAppError(err) {
		t.Errorf("expected validation error without url, got %v", err)
	}
	if _, err := New(Config{URL: "ws://x", TLS: nil}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestProvider_InitLoadsSession(t *testing.T) {
	h, url := newHost(t)
	h.session = sessionResult{Accounts: []string{addrA}, ChainID: "0xa"}
	p := newProvider(t, url)

	if _, ok := p.Provider(); ok {
		t.Error("expected no provider before init")
	}
	for i := 0; i < 2; i++ {
		if err := p.Init(context.Background()); err != nil {
			t.Fatalf("Init: %v", err)
		}
	}

	if diff := cmp.Diff([]string{methodGetSession}, h.methods()); diff != "" {
		t.Errorf("requests mismatch (-want +got):\n%s", diff)
	}
	if addr, ok := p.Address(); !ok || addr != addrA {
		t.Errorf("expected %s, got %q %v", addrA, addr, ok)
	}
	if id, ok := p.ChainID(); !ok || id != 10 {
		t.Errorf("expected chain 10, got %d %v", id, ok)
	}
	if !p.Connected() {
		t.Error("expected connected")
	}
	if got, ok := p.Provider(); !ok || got != p {
		t.Error("expected the provider itself as backend object")
	}

	hdr := h.headers[0]
	if hdr.Get("X-App-Id") != "app-1" || !strings.HasPrefix(hdr.Get("User-Agent"), "connectord/") {
		t.Errorf("unexpected handshake headers %v", hdr)
	}
}

func TestProvider_InitWithoutSession(t *testing.T) {
	_, url := newHost(t)
	p := newProvider(t, url)

	if err := p.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if _, ok := p.Address(); ok {
		t.Error("expected no address")
	}
	if p.Connected() {
		t.Error("expected not connected without accounts")
	}
	if h := p.Health(context.Background()); h.Status != provider.StatusDegraded {
		t.Errorf("expected degraded, got %s", h.Status)
	}
}

func TestProvider_Login(t *testing.T) {
	h, url := newHost(t)
	p := newProvider(t, url)
	ctx := context.Background()
	if err := p.Init(ctx); err != nil {
		t.Fatalf("Init: %v", err)
	}

	if err := p.Login(ctx, provider.LoginOptions{PreferredAuthType: "google"}); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if addr, _ := p.Address(); addr != addrB {
		t.Errorf("expected %s, got %s", addrB, addr)
	}
	if id, _ := p.ChainID(); id != 137 {
		t.Errorf("expected 137, got %d", id)
	}

	h.mu.Lock()
	var params loginParams
	_ = json.Unmarshal(h.requests[1].Params, &params)
	h.mu.Unlock()
	if params.PreferredAuthType != "google" {
		t.Errorf("expected preferred auth type forwarded, got %+v", params)
	}
	if h := p.Health(ctx); h.Status != provider.StatusHealthy {
		t.Errorf("expected healthy, got %s", h.Status)
	}
}

func TestProvider_LoginRejected(t *testing.T) {
	_, url := newHost(t)
	p := newProvider(t, url)

	err := p.Login(context.Background(), provider.LoginOptions{PreferredAuthType: "reject"})
	rpcErr, ok := err.(*provider.RPCError)
	if !ok || rpcErr.Code != 4001 {
		t.Fatalf("expected host rpc error 4001, got %v", err)
	}
	if _, ok := p.Address(); ok {
		t.Error("expected no address after rejection")
	}
}

func TestProvider_Notifications(t *testing.T) {
	h, url := newHost(t)
	h.session = sessionResult{Accounts: []string{addrA}, ChainID: float64(1)}
	p := newProvider(t, url)
	events := listen(t, p)
	if err := p.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}

	h.push("chainChanged", "0x89")
	d := next(t, events)
	if d.event != provider.EventChainChanged || d.payload != "0x89" {
		t.Errorf("unexpected delivery %+v", d)
	}
	if id, _ := p.ChainID(); id != 137 {
		t.Errorf("expected chain 137, got %d", id)
	}

	h.push("chainChanged", 10)
	if d := next(t, events); d.payload != float64(10) {
		t.Errorf("expected numeric payload, got %#v", d.payload)
	}

	h.push("accountsChanged", []string{addrB, addrA})
	d = next(t, events)
	if diff := cmp.Diff([]string{addrB, addrA}, d.payload); diff != "" {
		t.Errorf("accounts mismatch (-want +got):\n%s", diff)
	}
	if addr, _ := p.Address(); addr != addrB {
		t.Errorf("expected %s, got %s", addrB, addr)
	}

	h.push("accountsChanged", []string{})
	d = next(t, events)
	if accounts, ok := d.payload.([]string); !ok || len(accounts) != 0 {
		t.Errorf("expected empty accounts, got %#v", d.payload)
	}
	if _, ok := p.Address(); ok {
		t.Error("expected no address after empty accountsChanged")
	}

	h.push("somethingElse", 1)
	h.push("disconnect", map[string]any{"code": 4900, "message": "logged out"})
	d = next(t, events)
	rpcErr, ok := d.payload.(*provider.RPCError)
	if d.event != provider.EventDisconnect || !ok || rpcErr.Code != 4900 {
		t.Errorf("unexpected disconnect %+v", d)
	}

	h.push("disconnect", nil)
	if d := next(t, events); d.event != provider.EventDisconnect || d.payload != nil {
		t.Errorf("expected nil disconnect payload, got %#v", d.payload)
	}
}

func TestProvider_ConnectionLost(t *testing.T) {
	h, url := newHost(t)
	h.session = sessionResult{Accounts: []string{addrA}, ChainID: float64(1)}
	p := newProvider(t, url)
	events := listen(t, p)
	ctx := context.Background()
	if err := p.Init(ctx); err != nil {
		t.Fatalf("Init: %v", err)
	}

	h.drop()
	d := next(t, events)
	rpcErr, ok := d.payload.(*provider.RPCError)
	if d.event != provider.EventDisconnect || !ok || rpcErr.Code != CodeConnectionLost {
		t.Fatalf("unexpected delivery %+v", d)
	}
	if p.Connected() {
		t.Error("expected not connected after drop")
	}
	if hs := p.Health(ctx); hs.Status != provider.StatusUnavailable {
		t.Errorf("expected unavailable, got %s", hs.Status)
	}

	if err := p.Login(ctx, provider.LoginOptions{}); err != nil {
		t.Fatalf("Login after drop: %v", err)
	}
	if h.handshakes() != 2 {
		t.Errorf("expected a redial, got %d handshakes", h.handshakes())
	}
	if !p.Connected() {
		t.Error("expected connected after redial")
	}
}

func TestProvider_RequestTimeout(t *testing.T) {
	_, url := newHost(t)
	p := newProvider(t, url)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := p.Request(ctx, "slow", nil, nil)
	if !apperrors.HasCode(err, apperrors.ErrCodeTimeout) {
		t.Fatalf("expected TIMEOUT, got %v", err)
	}
	p.mu.RLock()
	pending := len(p.pending)
	p.mu.RUnlock()
	if pending != 0 {
		t.Errorf("expected pending call forgotten, got %d", pending)
	}
}

func TestProvider_UnknownMethod(t *testing.T) {
	_, url := newHost(t)
	p := newProvider(t, url)

	err := p.Request(context.Background(), "wallet_nope", map[string]any{"a": 1}, nil)
	rpcErr, ok := err.(*provider.RPCError)
	if !ok || rpcErr.Code != -32601 {
		t.Errorf("expected method not found, got %v", err)
	}
}

func TestProvider_Handshake(t *testing.T) {
	t.Run("rejected handshake is not retried", func(t *testing.T) {
		h, url := newHost(t)
		h.rejectWith = []int{http.StatusUnauthorized}
		p := newProvider(t, url)

		err := p.Init(context.Background())
		if !apperrors.HasCode(err, apperrors.ErrCodeUnauthorized) {
			t.Fatalf("expected UNAUTHORIZED, got %v", err)
		}
		if h.handshakes() != 1 {
			t.Errorf("expected 1 handshake, got %d", h.handshakes())
		}
	})

	t.Run("unavailable host is retried", func(t *testing.T) {
		h, url := newHost(t)
		h.rejectWith = []int{http.StatusServiceUnavailable}
		p := newProvider(t, url)

		if err := p.Init(context.Background()); err != nil {
			t.Fatalf("Init: %v", err)
		}
		if h.handshakes() != 2 {
			t.Errorf("expected 2 handshakes, got %d", h.handshakes())
		}
	})

	t.Run("attempts exhausted", func(t *testing.T) {
		h, url := newHost(t)
		h.rejectWith = []int{http.StatusBadGateway, http.StatusBadGateway}
		p, err := New(Config{URL: url, DialAttempts: 2})
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		defer p.Close(context.Background())

		if err := p.Init(context.Background()); !apperrors.HasCode(err, apperrors.ErrCodeConnectionFailed) {
			t.Fatalf("expected CONNECTION_FAILED, got %v", err)
		}
		if err := p.Init(context.Background()); err != nil {
			t.Fatalf("expected a later Init to succeed, got %v", err)
		}
	})
}

func TestProvider_Disconnect(t *testing.T) {
	h, url := newHost(t)
	h.session = sessionResult{Accounts: []string{addrA}}
	p := newProvider(t, url)
	ctx := context.Background()
	if err := p.Init(ctx); err != nil {
		t.Fatalf("Init: %v", err)
	}

	if err := p.Disconnect(ctx); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}
	if _, ok := p.Address(); ok {
		t.Error("expected no address after disconnect")
	}
	if diff := cmp.Diff([]string{methodGetSession, methodDisconnect}, h.methods()); diff != "" {
		t.Errorf("requests mismatch (-want +got):\n%s", diff)
	}
}

func TestProvider_Close(t *testing.T) {
	_, url := newHost(t)
	p := newProvider(t, url)
	ctx := context.Background()
	if err := p.Init(ctx); err != nil {
		t.Fatalf("Init: %v", err)
	}

	slow := make(chan error, 1)
	go func() { slow <- p.Request(ctx, "slow", nil, nil) }()
	deadline := time.Now().Add(time.Second)
	for {
		p.mu.RLock()
		n := len(p.pending)
		p.mu.RUnlock()
		if n == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("request never became pending")
		}
		time.Sleep(time.Millisecond)
	}

	if err := p.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
	select {
	case err := <-slow:
		if _, ok := err.(*provider.RPCError); !ok {
			t.Errorf("expected pending call failed with rpc error, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("pending call not released by Close")
	}

	if h := p.Health(ctx); h.Status != provider.StatusUnavailable || h.Message != "closed" {
		t.Errorf("unexpected health %+v", h)
	}
	if err := p.Request(ctx, methodGetSession, nil, nil); !apperrors.HasCode(err, apperrors.ErrCodeServiceUnavailable) {
		t.Errorf("expected SERVICE_UNAVAILABLE after close, got %v", err)
	}
	if err := p.Close(ctx); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestFactory(t *testing.T) {
	h, err := Factory()(provider.Spec{Connector: "wallet", Options: map[string]any{"url": "ws://127.0.0.1:1/ws"}})
	if err != nil {
		t.Fatalf("Factory: %v", err)
	}
	caps := provider.Resolve(h)
	if diff := cmp.Diff([]string{"events", "login", "chain", "session", "disconnect", "close", "health"}, caps.Names()); diff != "" {
		t.Errorf("capabilities mismatch (-want +got):\n%s", diff)
	}
	_ = caps.Closer.Close(context.Background())

	if _, err := Factory()(provider.Spec{Options: map[string]any{"dial_attempts": "many"}}); err == nil {
		t.Error("expected decode error")
	}
}

package provider

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/kbukum/authconnect/resilience"
)

type recorder struct {
	mu       sync.Mutex
	payloads []any
}

func (r *recorder) Handle(payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payloads = append(r.payloads, payload)
}

func TestEmitter_OnEmitOff(t *testing.T) {
	e := NewEmitter()
	a, b := &recorder{}, &recorder{}

	if err := e.On(EventChainChanged, a); err != nil {
		t.Fatal(err)
	}
	if err := e.On(EventChainChanged, a); err != nil {
		t.Fatal(err)
	}
	if err := e.On(EventChainChanged, b); err != nil {
		t.Fatal(err)
	}
	if n := e.ListenerCount(EventChainChanged); n != 2 {
		t.Fatalf("expected duplicate On to be ignored, got %d listeners", n)
	}

	if n := e.Emit(EventChainChanged, "0xa"); n != 2 {
		t.Errorf("expected 2 deliveries, got %d", n)
	}
	if err := e.Off(EventChainChanged, a); err != nil {
		t.Fatal(err)
	}
	e.Emit(EventChainChanged, 5)

	if diff := cmp.Diff([]any{"0xa"}, a.payloads); diff != "" {
		t.Errorf("listener a (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]any{"0xa", 5}, b.payloads); diff != "" {
		t.Errorf("listener b (-want +got):\n%s", diff)
	}
}

func TestEmitter_EventsAreIndependent(t *testing.T) {
	e := NewEmitter()
	r := &recorder{}
	_ = e.On(EventAccountsChanged, r)
	if n := e.Emit(EventDisconnect, nil); n != 0 {
		t.Errorf("expected no deliveries for other event, got %d", n)
	}
	if err := e.Off(EventDisconnect, r); err != nil {
		t.Errorf("removing unknown listener should be a no-op, got %v", err)
	}
}

func TestEmitter_ListenerMayUnsubscribeDuringEmit(t *testing.T) {
	e := NewEmitter()
	var self *ListenerFunc
	calls := 0
	self = &ListenerFunc{Fn: func(any) {
		calls++
		_ = e.Off(EventDisconnect, self)
	}}
	_ = e.On(EventDisconnect, self)

	e.Emit(EventDisconnect, nil)
	e.Emit(EventDisconnect, nil)
	if calls != 1 {
		t.Errorf("expected one call, got %d", calls)
	}
}

func TestEmitter_Close(t *testing.T) {
	e := NewEmitter()
	_ = e.On(EventDisconnect, &recorder{})
	e.Close()
	if e.ListenerCount(EventDisconnect) != 0 {
		t.Error("expected listeners dropped on close")
	}
	if err := e.On(EventDisconnect, &recorder{}); err == nil {
		t.Error("expected On after Close to fail")
	}
	if err := e.On(EventDisconnect, nil); err == nil {
		t.Error("expected nil listener to be rejected")
	}
}

type bareHandle struct{}

func (bareHandle) Init(context.Context) error { return nil }
func (bareHandle) Address() (string, bool)    { return "", false }
func (bareHandle) Provider() (any, bool)      { return nil, false }

type richHandle struct {
	bareHandle
	*Emitter
}

func (richHandle) Login(context.Context, LoginOptions) error { return nil }
func (richHandle) ChainID() (uint64, bool)                   { return 137, true }
func (richHandle) Disconnect(context.Context) error          { return nil }

func TestResolve(t *testing.T) {
	bare := Resolve(bareHandle{})
	if bare.HasEvents() || len(bare.Names()) != 0 {
		t.Errorf("expected no capabilities, got %v", bare.Names())
	}

	rich := Resolve(richHandle{Emitter: NewEmitter()})
	want := []string{"events", "login", "chain", "disconnect"}
	if diff := cmp.Diff(want, rich.Names()); diff != "" {
		t.Errorf("capabilities mismatch (-want +got):\n%s", diff)
	}

	if got := Resolve(nil); got.HasEvents() {
		t.Error("expected empty capabilities for nil handle")
	}
}

func TestRPCError(t *testing.T) {
	err := &RPCError{Code: 4900, Message: "disconnected"}
	if err.Error() != "provider rpc error 4900: disconnected" {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry[Handle]()
	var got Spec
	reg.RegisterFactory("bare", func(spec Spec) (Handle, error) {
		got = spec
		return bareHandle{}, nil
	})

	if !reg.Has("bare") || reg.Has("missing") {
		t.Error("unexpected Has result")
	}
	_, err := reg.Create("missing", Spec{Connector: "wallet"})
	if err == nil || !strings.Contains(err.Error(), `connector "wallet"`) {
		t.Errorf("expected error naming the connector, got %v", err)
	}

	spec := Spec{Connector: "wallet", Options: map[string]any{"url": "ws://host"}, Resilience: resilience.DefaultPolicy()}
	build := reg.Bind("bare", spec)
	if got.Connector != "" {
		t.Error("Bind must not build before it is called")
	}
	h, err := build()
	if err != nil || h == nil {
		t.Fatalf("Bind: %v", err)
	}
	if diff := cmp.Diff(spec, got); diff != "" {
		t.Errorf("spec mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"bare"}, reg.List()); diff != "" {
		t.Errorf("List mismatch (-want +got):\n%s", diff)
	}
}

func TestStatusString(t *testing.T) {
	if StatusDegraded.String() != "degraded" {
		t.Error("unexpected status name")
	}
	h := Unavailable("circuit open", map[string]any{"circuit": "open"})
	if h.Status != StatusUnavailable || h.Message != "circuit open" {
		t.Errorf("unexpected health %+v", h)
	}
}

func TestMemorySessionStore(t *testing.T) {
	type session struct{ Token string }
	ctx := context.Background()
	s := NewMemorySessionStore[session]()

	got, err := s.Load(ctx, "social")
	if err != nil || got != nil {
		t.Fatalf("expected empty load, got %v %v", got, err)
	}

	_ = s.Save(ctx, "social", &session{Token: "t"}, 0)
	got, _ = s.Load(ctx, "social")
	if got == nil || got.Token != "t" {
		t.Fatalf("expected saved session, got %v", got)
	}

	_ = s.Save(ctx, "short", &session{}, time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	if got, _ := s.Load(ctx, "short"); got != nil {
		t.Error("expected expired session to be dropped")
	}

	_ = s.Delete(ctx, "social")
	if s.Len() != 0 {
		t.Errorf("expected empty store, got %d", s.Len())
	}
}

type sessionHandle struct {
	bareHandle
	live bool
}

func (s sessionHandle) Connected() bool { return s.live }

func TestCapabilities_Connected(t *testing.T) {
	if Resolve(bareHandle{}).Connected(bareHandle{}) {
		t.Error("handle without address should not count as connected")
	}
	h := sessionHandle{live: true}
	if !Resolve(h).Connected(h) {
		t.Error("expected ConnectionReporter to be consulted")
	}
}

func TestFileSessionStore(t *testing.T) {
	type session struct {
		Address string `json:"address"`
		IDToken string `json:"id_token"`
	}
	ctx := context.Background()
	dir := t.TempDir()

	s, err := NewFileSessionStore[session](dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got, err := s.Load(ctx, "social:main"); got != nil || err != nil {
		t.Fatalf("expected empty load, got %v %v", got, err)
	}

	want := &session{Address: "0xabc", IDToken: "tok"}
	if err := s.Save(ctx, "social:main", want, time.Hour); err != nil {
		t.Fatalf("save: %v", err)
	}

	reopened, err := NewFileSessionStore[session](dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	got, err := reopened.Load(ctx, "social:main")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("session mismatch (-want +got):\n%s", diff)
	}

	_ = s.Save(ctx, "social:short", want, time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	if got, _ := s.Load(ctx, "social:short"); got != nil {
		t.Error("expected expired session to be dropped")
	}

	if err := s.Delete(ctx, "social:main"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.Delete(ctx, "social:main"); err != nil {
		t.Errorf("deleting a missing key should succeed, got %v", err)
	}
	if got, _ := s.Load(ctx, "social:main"); got != nil {
		t.Error("expected deleted session to be gone")
	}
}

package bootstrap

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/kbukum/authconnect/component"
	"github.com/kbukum/authconnect/config"
	"github.com/kbukum/authconnect/logger"
	"github.com/kbukum/authconnect/server"
)

type testConfig struct {
	config.ServiceConfig
}

type mockComponent struct {
	name     string
	startErr error
	stopErr  error
	health   component.Health
	started  bool
	stopped  bool
	log      *[]string
}

func (m *mockComponent) Name() string { return m.name }
func (m *mockComponent) Start(ctx context.Context) error {
	m.started = true
	if m.log != nil {
		*m.log = append(*m.log, "start:"+m.name)
	}
	return m.startErr
}
func (m *mockComponent) Stop(ctx context.Context) error {
	m.stopped = true
	if m.log != nil {
		*m.log = append(*m.log, "stop:"+m.name)
	}
	return m.stopErr
}
func (m *mockComponent) Health(ctx context.Context) component.Health {
	if m.health.Name == "" {
		return component.Health{Name: m.name, Status: component.StatusHealthy}
	}
	return m.health
}
func (m *mockComponent) Describe() component.Description {
	return component.Description{Name: strings.ToUpper(m.name), Type: "mock", Details: "in-memory", Port: 9000}
}

type staticRoutes []server.Route

func (s staticRoutes) Routes() []server.Route { return s }

func newTestApp(t *testing.T, opts ...Option) *App[*testConfig] {
	t.Helper()
	cfg := &testConfig{ServiceConfig: config.ServiceConfig{Name: "connectord", Version: "1.2.3"}}
	opts = append([]Option{WithLogger(logger.NewNop()), WithSummaryOutput(io.Discard)}, opts...)
	app, err := NewApp(cfg, opts...)
	if err != nil {
		t.Fatalf("NewApp failed: %v", err)
	}
	return app
}

func TestNewApp(t *testing.T) {
	app := newTestApp(t)
	if app.Name != "connectord" || app.Version != "1.2.3" {
		t.Errorf("unexpected identity %q %q", app.Name, app.Version)
	}
	if app.Cfg.Environment != "development" {
		t.Errorf("expected defaults to be applied, got environment %q", app.Cfg.Environment)
	}
	if app.gracefulTimeout != DefaultGracefulTimeout {
		t.Errorf("expected default timeout, got %s", app.gracefulTimeout)
	}

	app = newTestApp(t, WithGracefulTimeout(3*time.Second))
	if app.gracefulTimeout != 3*time.Second {
		t.Errorf("expected 3s timeout, got %s", app.gracefulTimeout)
	}
	app = newTestApp(t, WithGracefulTimeout(0))
	if app.gracefulTimeout != DefaultGracefulTimeout {
		t.Errorf("expected an unset timeout to keep the default, got %s", app.gracefulTimeout)
	}
}

func TestNewAppValidation(t *testing.T) {
	cfg := &testConfig{ServiceConfig: config.ServiceConfig{Environment: "moon"}}
	if _, err := NewApp(cfg, WithLogger(logger.NewNop())); err == nil {
		t.Error("expected validation error for unknown environment")
	}
}

func TestRegisterDuplicate(t *testing.T) {
	app := newTestApp(t)
	if err := app.Register(&mockComponent{name: "sse"}, &mockComponent{name: "connectors"}); err != nil {
		t.Fatal(err)
	}
	if err := app.Register(&mockComponent{name: "sse"}); err == nil {
		t.Error("expected error for duplicate component")
	}
	if n := len(app.Components().All()); n != 2 {
		t.Errorf("expected 2 components, got %d", n)
	}
}

func TestReadyCheck(t *testing.T) {
	tests := []struct {
		name    string
		status  component.HealthStatus
		wantErr bool
	}{
		{"healthy", component.StatusHealthy, false},
		{"degraded", component.StatusDegraded, false},
		{"unhealthy", component.StatusUnhealthy, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			app := newTestApp(t)
			_ = app.Register(&mockComponent{
				name:   "connectors",
				health: component.Health{Name: "connectors", Status: tc.status, Message: "backend down"},
			})
			err := app.ReadyCheck(context.Background())
			if (err != nil) != tc.wantErr {
				t.Fatalf("wantErr=%v, got %v", tc.wantErr, err)
			}
			if err != nil && !strings.Contains(err.Error(), "connectors(backend down)") {
				t.Errorf("unexpected error %v", err)
			}
		})
	}
}

func TestRunTask_LifecycleOrder(t *testing.T) {
	app := newTestApp(t)
	var order []string
	_ = app.Register(&mockComponent{name: "sse", log: &order})
	_ = app.Register(&mockComponent{name: "connectors", log: &order})

	hook := func(name string) Hook {
		return func(context.Context) error {
			order = append(order, name)
			return nil
		}
	}
	app.On(PhaseStart, hook("onStart"))
	app.On(PhaseReady, hook("onReady"))
	app.On(PhaseStop, hook("onStop"))

	err := app.RunTask(context.Background(), func(context.Context) error {
		order = append(order, "task")
		return nil
	})
	if err != nil {
		t.Fatalf("RunTask failed: %v", err)
	}

	want := []string{
		"start:sse", "start:connectors", "onStart", "onReady", "task",
		"onStop", "stop:connectors", "stop:sse",
	}
	if diff := cmp.Diff(want, order); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestRunTask_Errors(t *testing.T) {
	boom := fmt.Errorf("boom")
	tests := []struct {
		name      string
		setup     func(*App[*testConfig], *mockComponent)
		task      func(context.Context) error
		wantErr   string
		wantStops bool
	}{
		{
			name:      "task error",
			task:      func(context.Context) error { return boom },
			wantErr:   "boom",
			wantStops: true,
		},
		{
			name: "start hook",
			setup: func(a *App[*testConfig], _ *mockComponent) {
				a.On(PhaseStart, func(context.Context) error { return boom })
			},
			wantErr:   "start hook 0: boom",
			wantStops: true,
		},
		{
			name: "ready hook",
			setup: func(a *App[*testConfig], _ *mockComponent) {
				a.On(PhaseReady, func(context.Context) error { return boom })
			},
			wantErr:   "ready hook 0: boom",
			wantStops: true,
		},
		{
			name: "stop hook",
			setup: func(a *App[*testConfig], _ *mockComponent) {
				a.On(PhaseStop, func(context.Context) error { return boom })
			},
			wantErr:   "stop hook 0: boom",
			wantStops: true,
		},
		{
			name:      "component stop",
			setup:     func(_ *App[*testConfig], c *mockComponent) { c.stopErr = boom },
			wantErr:   "stop connectors: boom",
			wantStops: true,
		},
		{
			name:    "component start",
			setup:   func(_ *App[*testConfig], c *mockComponent) { c.startErr = boom },
			wantErr: "start connectors: boom",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			app := newTestApp(t)
			comp := &mockComponent{name: "connectors"}
			_ = app.Register(comp)
			if tc.setup != nil {
				tc.setup(app, comp)
			}
			task := tc.task
			if task == nil {
				task = func(context.Context) error { return nil }
			}

			err := app.RunTask(context.Background(), task)
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
			}
			if comp.stopped != tc.wantStops {
				t.Errorf("expected stopped=%v, got %v", tc.wantStops, comp.stopped)
			}
		})
	}
}

func TestRunTask_Cancellation(t *testing.T) {
	app := newTestApp(t)
	ctx, cancel := context.WithCancel(context.Background())
	err := app.RunTask(ctx, func(taskCtx context.Context) error {
		cancel()
		<-taskCtx.Done()
		return taskCtx.Err()
	})
	if err != context.Canceled {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	app := newTestApp(t)
	comp := &mockComponent{name: "server"}
	_ = app.Register(comp)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if !comp.started || !comp.stopped {
		t.Errorf("expected component started and stopped, got %+v", comp)
	}
}

func TestSummaryDisplay(t *testing.T) {
	var buf bytes.Buffer
	routes := staticRoutes{
		{Method: "GET", Path: "/api/connectors", Handler: "Registry.handleList"},
		{Method: "POST", Path: "/api/connectors/:name/activate", Handler: "Registry.handleActivate"},
		{Method: "GET", Path: "/health", Handler: "endpoint.Health", System: true},
	}
	app := newTestApp(t, WithSummaryOutput(&buf), WithRoutes(routes))
	_ = app.Register(&mockComponent{name: "sse"})
	_ = app.Register(&mockComponent{
		name:   "connectors",
		health: component.Health{Name: "connectors", Status: component.StatusDegraded, Message: "unreachable: social"},
	})

	if err := app.RunTask(context.Background(), func(context.Context) error { return nil }); err != nil {
		t.Fatal(err)
	}

	out := buf.String()
	for _, want := range []string{
		"connectord 1.2.3 started",
		"├── SSE [mock] in-memory (:9000)",
		"└── CONNECTORS [mock] in-memory (:9000)",
		"🌐 Routes (2)",
		"POST    /api/connectors/:name/activate → Registry.handleActivate",
		"connectors: degraded — unreachable: social",
		"Some components have issues (1/2 healthy)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "/health") {
		t.Error("operational routes should not be listed")
	}
}

func TestSummaryDisplay_Empty(t *testing.T) {
	var buf bytes.Buffer
	s := NewSummary("connectord", "")
	s.out = &buf
	s.Display(context.Background(), component.NewRegistry())
	if !strings.Contains(buf.String(), "connectord dev started") || !strings.Contains(buf.String(), "No components registered") {
		t.Errorf("unexpected summary:\n%s", buf.String())
	}
}

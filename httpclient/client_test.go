package httpclient

import (
	"context"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	apperrors "github.com/kbukum/authconnect/errors"
	"github.com/kbukum/authconnect/resilience"
	"github.com/kbukum/authconnect/security"
)

type session struct {
	Address string `json:"address"`
	ChainID uint64 `json:"chain_id"`
}

func newClient(t *testing.T, cfg Config) *Client {
	t.Helper()
	c, err := New(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return c
}

func TestGet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/v1/session" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Accept") != "application/json" {
			t.Errorf("expected JSON accept header, got %q", r.Header.Get("Accept"))
		}
		if r.Header.Get("Authorization") != "Bearer id-1" {
			t.Errorf("expected bearer token, got %q", r.Header.Get("Authorization"))
		}
		_ = json.NewEncoder(w).Encode(session{Address: "0xabc", ChainID: 137})
	}))
	defer srv.Close()

	c := newClient(t, Config{BaseURL: srv.URL + "/v1/"})
	got, err := Get[session](context.Background(), c, "/session", WithBearer("id-1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Address != "0xabc" || got.ChainID != 137 {
		t.Errorf("unexpected session %+v", got)
	}
}

func TestPost_DeploymentHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected application/json, got %q", ct)
		}
		if r.Header.Get("X-Project-Id") != "p1" {
			t.Errorf("expected deployment header, got %q", r.Header.Get("X-Project-Id"))
		}
		if r.Header.Get("User-Agent") != "connectord/test" {
			t.Errorf("unexpected user agent %q", r.Header.Get("User-Agent"))
		}
		if r.Header.Get("Authorization") != "" {
			t.Errorf("expected no bearer for an empty token, got %q", r.Header.Get("Authorization"))
		}
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		_ = json.NewEncoder(w).Encode(body)
	}))
	defer srv.Close()

	c := newClient(t, Config{
		BaseURL:   srv.URL,
		Headers:   map[string]string{"X-Project-Id": "p1"},
		UserAgent: "connectord/test",
	})
	got, err := Post[map[string]string](context.Background(), c, "/login",
		map[string]string{"preferred_auth_type": "google"}, WithBearer(""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got["preferred_auth_type"] != "google" {
		t.Errorf("unexpected echo %v", got)
	}
}

func TestClient_StatusClassification(t *testing.T) {
	tests := []struct {
		status    int
		code      apperrors.ErrorCode
		retryable bool
	}{
		{401, apperrors.ErrCodeUnauthorized, false},
		{403, apperrors.ErrCodeUnauthorized, false},
		{404, apperrors.ErrCodeNotFound, false},
		{409, apperrors.ErrCodeExternalService, false},
		{429, apperrors.ErrCodeRateLimited, true},
		{500, apperrors.ErrCodeExternalService, true},
		{503, apperrors.ErrCodeExternalService, true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("HTTP_%d", tt.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"error":"test"}`))
			}))
			defer srv.Close()

			c := newClient(t, Config{Service: "social-auth", BaseURL: srv.URL})
			resp, err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/"})
			appErr, ok := apperrors.AsAppError(err)
			if !ok || appErr.Code != tt.code || appErr.Retryable != tt.retryable {
				t.Fatalf("HTTP %d: expected %s (retryable=%v), got %v", tt.status, tt.code, tt.retryable, err)
			}
			if StatusCode(err) != tt.status {
				t.Errorf("expected status detail %d, got %d", tt.status, StatusCode(err))
			}
			if resp == nil || resp.StatusCode != tt.status {
				t.Errorf("expected response with status %d, got %+v", tt.status, resp)
			}
		})
	}
}

func TestClient_Deadline(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := newClient(t, Config{BaseURL: srv.URL})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.Do(ctx, Request{Method: http.MethodGet, Path: "/"})
	if !apperrors.HasCode(err, apperrors.ErrCodeTimeout) {
		t.Fatalf("expected TIMEOUT, got %v", err)
	}
}

func TestClient_CallerCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	c := newClient(t, Config{BaseURL: srv.URL})
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	if _, err := c.Do(ctx, Request{Method: http.MethodGet, Path: "/"}); err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestClient_RetriesOnlyGET(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if attempts.Add(1)%3 != 0 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := newClient(t, Config{
		BaseURL: srv.URL,
		Retry:   &resilience.RetryConfig{MaxAttempts: 3, InitialInterval: 5 * time.Millisecond, MaxInterval: 10 * time.Millisecond},
	})
	ctx := context.Background()

	if _, err := c.Do(ctx, Request{Method: http.MethodGet, Path: "/"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := attempts.Load(); got != 3 {
		t.Fatalf("expected 3 GET attempts, got %d", got)
	}

	attempts.Store(0)
	if _, err := c.Do(ctx, Request{Method: http.MethodPost, Path: "/"}); err == nil {
		t.Fatal("expected the first POST failure to be returned")
	}
	if got := attempts.Load(); got != 1 {
		t.Errorf("expected a single POST attempt, got %d", got)
	}
}

func TestClient_Breaker(t *testing.T) {
	var status atomic.Int32
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(int(status.Load()))
	}))
	defer srv.Close()

	breaker := resilience.NewBreaker("social", resilience.BreakerConfig{FailureThreshold: 2, OpenTimeout: time.Minute, HalfOpenRequests: 1})
	c := newClient(t, Config{Service: "social-auth", BaseURL: srv.URL, Breaker: breaker})
	ctx := context.Background()

	status.Store(http.StatusUnauthorized)
	for i := 0; i < 3; i++ {
		_, _ = c.Do(ctx, Request{Method: http.MethodGet, Path: "/"})
	}
	if c.Breaker().State() != resilience.CircuitClosed {
		t.Fatalf("expected rejected sessions to leave the circuit closed, got %s", c.Breaker().State())
	}

	status.Store(http.StatusInternalServerError)
	for i := 0; i < 2; i++ {
		_, _ = c.Do(ctx, Request{Method: http.MethodGet, Path: "/"})
	}
	before := hits.Load()
	_, err := c.Do(ctx, Request{Method: http.MethodGet, Path: "/"})
	if !apperrors.HasCode(err, apperrors.ErrCodeServiceUnavailable) {
		t.Fatalf("expected SERVICE_UNAVAILABLE from an open circuit, got %v", err)
	}
	if hits.Load() != before {
		t.Error("expected the open circuit to keep the request off the wire")
	}
}

func TestClient_Cookies(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/login":
			http.SetCookie(w, &http.Cookie{Name: "sid", Value: "s-1", Path: "/"})
		case "/session":
			c, err := r.Cookie("sid")
			if err != nil {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			_, _ = w.Write([]byte(`"` + c.Value + `"`))
		}
	}))
	defer srv.Close()

	c := newClient(t, Config{BaseURL: srv.URL, Cookies: true})
	ctx := context.Background()

	if _, err := c.Do(ctx, Request{Method: http.MethodPost, Path: "/login"}); err != nil {
		t.Fatalf("login: %v", err)
	}
	sid, err := Get[string](ctx, c, "/session")
	if err != nil || sid != "s-1" {
		t.Fatalf("expected cookie to be replayed, got %q, %v", sid, err)
	}
	if len(c.Cookies("/")) != 1 {
		t.Errorf("expected one stored cookie, got %v", c.Cookies("/"))
	}

	if err := c.ClearCookies(); err != nil {
		t.Fatal(err)
	}
	if _, err := Get[string](ctx, c, "/session"); !IsUnauthorized(err) {
		t.Errorf("expected 401 after clearing cookies, got %v", err)
	}
}

func TestClient_NoJar(t *testing.T) {
	c := newClient(t, Config{})
	if c.Cookies("/") != nil || c.ClearCookies() != nil {
		t.Error("expected cookie helpers to be no-ops without a jar")
	}
	if c.http.Timeout != defaultTimeout || c.cfg.Service != "backend" {
		t.Errorf("expected defaults, got timeout %v service %q", c.http.Timeout, c.cfg.Service)
	}
}

func TestNew_InvalidTLS(t *testing.T) {
	_, err := New(Config{TLS: &security.TLSConfig{CertFile: "cert.pem"}})
	if err == nil || !strings.Contains(err.Error(), "key_file") {
		t.Errorf("expected TLS validation error, got %v", err)
	}
}

func TestClient_PrivateCA(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"address":"0xabc"}`))
	}))
	defer srv.Close()

	caFile := filepath.Join(t.TempDir(), "ca.pem")
	ca := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: srv.Certificate().Raw})
	if err := os.WriteFile(caFile, ca, 0o600); err != nil {
		t.Fatal(err)
	}

	c := newClient(t, Config{BaseURL: srv.URL, TLS: &security.TLSConfig{CAFile: caFile}})
	got, err := Get[session](context.Background(), c, "/session")
	if err != nil || got.Address != "0xabc" {
		t.Fatalf("expected TLS request to succeed, got %+v, %v", got, err)
	}

	plain := newClient(t, Config{BaseURL: srv.URL})
	_, err = plain.Do(context.Background(), Request{Method: http.MethodGet, Path: "/"})
	if !apperrors.HasCode(err, apperrors.ErrCodeConnectionFailed) {
		t.Fatalf("expected unknown CA to fail as CONNECTION_FAILED, got %v", err)
	}
	if !strings.Contains(err.Error(), "certificate") {
		t.Errorf("expected a certificate error, got %v", err)
	}
}

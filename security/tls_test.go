package security

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// bridgeFiles writes the certificate and key of a local TLS server to disk,
// the way an operator would hand them to connectord.
func bridgeFiles(t *testing.T, srv *httptest.Server) (certFile, keyFile string) {
	t.Helper()
	dir := t.TempDir()
	pair := srv.TLS.Certificates[0]

	key, err := x509.MarshalPKCS8PrivateKey(pair.PrivateKey)
	if err != nil {
		t.Fatalf("marshal key: %v", err)
	}
	certFile = filepath.Join(dir, "bridge.pem")
	keyFile = filepath.Join(dir, "bridge-key.pem")
	writePEM(t, certFile, "CERTIFICATE", srv.Certificate().Raw)
	writePEM(t, keyFile, "PRIVATE KEY", key)
	return certFile, keyFile
}

func writePEM(t *testing.T, path, kind string, der []byte) {
	t.Helper()
	data := pem.EncodeToMemory(&pem.Block{Type: kind, Bytes: der})
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestTLSConfig_BuildDisabled(t *testing.T) {
	for _, cfg := range []*TLSConfig{nil, {}} {
		got, err := cfg.Build()
		if err != nil || got != nil {
			t.Errorf("expected nil config for %+v, got %v, %v", cfg, got, err)
		}
		if cfg.IsEnabled() {
			t.Errorf("expected %+v to be disabled", cfg)
		}
	}
}

func TestTLSConfig_Build(t *testing.T) {
	srv := httptest.NewTLSServer(http.NotFoundHandler())
	defer srv.Close()
	certFile, keyFile := bridgeFiles(t, srv)
	garbage := filepath.Join(t.TempDir(), "bad-ca.pem")
	if err := os.WriteFile(garbage, []byte("not a certificate"), 0o600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		cfg     TLSConfig
		check   func(*testing.T, *tls.Config)
		wantErr string
	}{
		{
			name: "skip verify defaults to TLS 1.2",
			cfg:  TLSConfig{SkipVerify: true},
			check: func(t *testing.T, c *tls.Config) {
				if !c.InsecureSkipVerify || c.MinVersion != tls.VersionTLS12 {
					t.Errorf("unexpected config %+v", c)
				}
			},
		},
		{
			name: "server name and TLS 1.3",
			cfg:  TLSConfig{ServerName: "bridge.local", MinVersion: "1.3"},
			check: func(t *testing.T, c *tls.Config) {
				if c.ServerName != "bridge.local" || c.MinVersion != tls.VersionTLS13 {
					t.Errorf("unexpected config %+v", c)
				}
			},
		},
		{
			name: "client certificate",
			cfg:  TLSConfig{CAFile: certFile, CertFile: certFile, KeyFile: keyFile},
			check: func(t *testing.T, c *tls.Config) {
				if len(c.Certificates) != 1 || c.RootCAs == nil {
					t.Errorf("expected a client certificate and a CA pool, got %+v", c)
				}
			},
		},
		{name: "missing key", cfg: TLSConfig{CertFile: certFile}, wantErr: "key_file"},
		{name: "bad version", cfg: TLSConfig{MinVersion: "1.0"}, wantErr: "min_version"},
		{name: "missing CA file", cfg: TLSConfig{CAFile: "/nonexistent/ca.pem"}, wantErr: "read CA file"},
		{name: "invalid CA", cfg: TLSConfig{CAFile: garbage}, wantErr: "no certificates"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tc.cfg.Build()
			if tc.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
					t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			tc.check(t, got)
		})
	}
}

func TestTLSConfig_PrivateCAReachesBridge(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()
	certFile, _ := bridgeFiles(t, srv)

	plain := &http.Client{Transport: &http.Transport{TLSClientConfig: &tls.Config{MinVersion: tls.VersionTLS12}}}
	if _, err := plain.Get(srv.URL); err == nil {
		t.Fatal("expected the system pool to reject the bridge certificate")
	}

	cfg, err := (&TLSConfig{CAFile: certFile}).Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	trusted := &http.Client{Transport: &http.Transport{TLSClientConfig: cfg}}
	resp, err := trusted.Get(srv.URL)
	if err != nil {
		t.Fatalf("expected the private CA to verify the bridge, got %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("unexpected status %d", resp.StatusCode)
	}
}

package provider

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// FileSessionStore keeps one JSON file per key under a directory, so a
// session outlives the daemon process and can be restored by the next
// eager connection.
type FileSessionStore[S any] struct {
	dir string
	mu  sync.Mutex
}

type fileEntry[S any] struct {
	ExpiresAt time.Time `json:"expires_at,omitempty"`
	Session   *S        `json:"session"`
}

// NewFileSessionStore creates dir (0700) if needed.
func NewFileSessionStore[S any](dir string) (*FileSessionStore[S], error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("session store: %w", err)
	}
	return &FileSessionStore[S]{dir: dir}, nil
}

func (s *FileSessionStore[S]) path(key string) string {
	return filepath.Join(s.dir, url.PathEscape(key)+".json")
}

// Load returns (nil, nil) when the key is missing or its entry expired.
// Expired files are removed.
func (s *FileSessionStore[S]) Load(_ context.Context, key string) (*S, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path(key))
	if stderrors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("session store: %w", err)
	}
	var e fileEntry[S]
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("session store: %s: %w", key, err)
	}
	if !e.ExpiresAt.IsZero() && !time.Now().Before(e.ExpiresAt) {
		_ = os.Remove(s.path(key))
		return nil, nil
	}
	return e.Session, nil
}

// Save writes val atomically with mode 0600.
func (s *FileSessionStore[S]) Save(_ context.Context, key string, val *S, ttl time.Duration) error {
	e := fileEntry[S]{Session: val}
	if ttl > 0 {
		e.ExpiresAt = time.Now().Add(ttl)
	}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("session store: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(s.dir, ".session-*")
	if err != nil {
		return fmt.Errorf("session store: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("session store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("session store: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path(key)); err != nil {
		return fmt.Errorf("session store: %w", err)
	}
	return nil
}

// Delete removes key. A missing key is not an error.
func (s *FileSessionStore[S]) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.path(key)); err != nil && !stderrors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("session store: %w", err)
	}
	return nil
}

var _ SessionStore[any] = (*FileSessionStore[any])(nil)

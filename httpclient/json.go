package httpclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/kbukum/authconnect/errors"
)

// CallOption adjusts a single request.
type CallOption func(*Request)

// WithBearer sends token as the Authorization bearer.
func WithBearer(token string) CallOption {
	return func(r *Request) {
		if token == "" {
			return
		}
		if r.Header == nil {
			r.Header = http.Header{}
		}
		r.Header.Set("Authorization", "Bearer "+token)
	}
}

// Get fetches path and decodes the JSON answer into T.
func Get[T any](ctx context.Context, c *Client, path string, opts ...CallOption) (T, error) {
	return call[T](ctx, c, Request{Method: http.MethodGet, Path: path}, opts)
}

// Post sends body as JSON to path and decodes the answer into T.
func Post[T any](ctx context.Context, c *Client, path string, body any, opts ...CallOption) (T, error) {
	return call[T](ctx, c, Request{Method: http.MethodPost, Path: path, Body: body}, opts)
}

func call[T any](ctx context.Context, c *Client, req Request, opts []CallOption) (T, error) {
	var out T
	for _, opt := range opts {
		opt(&req)
	}
	resp, err := c.Do(ctx, req)
	if err != nil {
		return out, err
	}
	if len(resp.Body) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return out, errors.ExternalServiceError(c.cfg.Service, fmt.Errorf("decode %s: %w", req.Path, err))
	}
	return out, nil
}

package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"

	"golang.org/x/net/publicsuffix"

	"github.com/kbukum/authconnect/errors"
	"github.com/kbukum/authconnect/resilience"
)

// Client talks JSON to one auth backend.
type Client struct {
	cfg  Config
	http *http.Client
	jar  *sessionJar
}

// New builds a Client. The TLS block is loaded here, so a bad CA file fails
// at startup rather than on the first login.
func New(cfg Config) (*Client, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	tlsCfg, err := cfg.TLS.Build()
	if err != nil {
		return nil, err
	}
	if tlsCfg != nil {
		transport.TLSClientConfig = tlsCfg
	}

	c := &Client{cfg: cfg, http: &http.Client{Transport: transport, Timeout: cfg.Timeout}}
	if cfg.Cookies {
		if c.jar, err = newSessionJar(); err != nil {
			return nil, err
		}
		c.http.Jar = c.jar
	}
	return c, nil
}

// Request is one call to the backend.
type Request struct {
	Method string
	// Path is resolved against BaseURL unless it is an absolute URL.
	Path   string
	Header http.Header
	// Body is JSON-encoded when non-nil.
	Body any
}

// Response is a backend answer with its body read.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Do sends req. A non-2xx answer is returned together with an AppError
// classified by status; transport failures become TIMEOUT or
// CONNECTION_FAILED.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	send := func() (*Response, error) { return c.attempt(ctx, req) }
	if c.cfg.Breaker != nil {
		send = func() (*Response, error) {
			var resp *Response
			err := c.cfg.Breaker.Do(func() error {
				var err error
				resp, err = c.attempt(ctx, req)
				return err
			})
			return resp, err
		}
	}

	var (
		resp *Response
		err  error
	)
	if c.cfg.Retry != nil && req.Method == http.MethodGet {
		resp, err = resilience.Retry(ctx, *c.cfg.Retry, send, nil)
	} else {
		resp, err = send()
	}
	if err != nil && !errors.IsAppError(err) && stderrors.Is(err, context.DeadlineExceeded) {
		err = errors.Timeout(c.cfg.Service).WithCause(err)
	}
	return resp, err
}

func (c *Client) attempt(ctx context.Context, req Request) (*Response, error) {
	httpReq, err := c.newRequest(ctx, req)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, transportError(ctx, c.cfg.Service, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transportError(ctx, c.cfg.Service, fmt.Errorf("read body: %w", err))
	}
	out := &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: body}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return out, statusError(c.cfg.Service, resp.StatusCode)
	}
	return out, nil
}

func (c *Client) newRequest(ctx context.Context, req Request) (*http.Request, error) {
	var body io.Reader
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return nil, errors.Internal(fmt.Errorf("encode %s body: %w", req.Path, err))
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, c.resolve(req.Path), body)
	if err != nil {
		return nil, errors.Internal(err)
	}
	for k, v := range c.cfg.Headers {
		httpReq.Header.Set(k, v)
	}
	for k, vs := range req.Header {
		httpReq.Header[k] = vs
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if c.cfg.UserAgent != "" {
		httpReq.Header.Set("User-Agent", c.cfg.UserAgent)
	}
	return httpReq, nil
}

func (c *Client) resolve(path string) string {
	if c.cfg.BaseURL == "" || strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return strings.TrimRight(c.cfg.BaseURL, "/") + "/" + strings.TrimLeft(path, "/")
}

// Breaker returns the circuit in front of the backend, or nil.
func (c *Client) Breaker() *resilience.Breaker { return c.cfg.Breaker }

// Cookies returns the cookies that would be sent to path.
func (c *Client) Cookies(path string) []*http.Cookie {
	if c.jar == nil {
		return nil
	}
	u, err := url.Parse(c.resolve(path))
	if err != nil {
		return nil
	}
	return c.jar.Cookies(u)
}

// ClearCookies forgets the backend session cookie.
func (c *Client) ClearCookies() error {
	if c.jar == nil {
		return nil
	}
	return c.jar.reset()
}

// sessionJar is a cookie jar that can be emptied on logout.
type sessionJar struct {
	mu  sync.RWMutex
	jar *cookiejar.Jar
}

func newSessionJar() (*sessionJar, error) {
	j := &sessionJar{}
	return j, j.reset()
}

func (j *sessionJar) reset() error {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return fmt.Errorf("httpclient: cookie jar: %w", err)
	}
	j.mu.Lock()
	j.jar = jar
	j.mu.Unlock()
	return nil
}

func (j *sessionJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	j.jar.SetCookies(u, cookies)
}

func (j *sessionJar) Cookies(u *url.URL) []*http.Cookie {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.jar.Cookies(u)
}

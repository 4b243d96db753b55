package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/lingopost/internal/common"
	"github.com/dmitrijs2005/lingopost/internal/logging"
	"github.com/dmitrijs2005/lingopost/internal/netx"
)

const (
	DefaultTimeout  = 30 * time.Second
	ExtendedTimeout = 60 * time.Second

	maxErrorBody = 64 << 10
)

// TokenSource yields the bearer token of the current session, or "" when
// logged out. It is consulted on every request.
type TokenSource interface {
	Token() string
}

// Request describes one outbound call.
type Request struct {
	Method string
	// Path is resolved against the base URL unless it is absolute.
	Path        string
	Body        io.Reader
	ContentType string
	// Extended selects the long timeout used for file uploads.
	Extended bool
	// Anonymous calls carry no Authorization header.
	Anonymous bool
}

type Option func(*HTTPClient)

func WithHTTPClient(h *http.Client) Option {
	return func(c *HTTPClient) { c.http = h }
}

func WithLogger(l logging.Logger) Option {
	return func(c *HTTPClient) { c.log = l }
}

func WithTimeouts(regular, extended time.Duration) Option {
	return func(c *HTTPClient) {
		if regular > 0 {
			c.timeout = regular
		}
		if extended > 0 {
			c.extendedTimeout = extended
		}
	}
}

// WithUnauthorizedHandler registers fn to run after an authenticated call is
// answered with 401. fn receives the token that was rejected.
func WithUnauthorizedHandler(fn func(rejectedToken string)) Option {
	return func(c *HTTPClient) { c.onUnauthorized = fn }
}

type HTTPClient struct {
	base            *url.URL
	http            *http.Client
	tokens          TokenSource
	timeout         time.Duration
	extendedTimeout time.Duration
	onUnauthorized  func(string)
	log             logging.Logger
}

func New(baseURL string, tokens TokenSource, opts ...Option) (*HTTPClient, error) {
	base, err := url.Parse(strings.TrimRight(baseURL, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("base url %q: scheme must be http or https", baseURL)
	}

	c := &HTTPClient{
		base:            base,
		http:            &http.Client{},
		tokens:          tokens,
		timeout:         DefaultTimeout,
		extendedTimeout: ExtendedTimeout,
		log:             logging.Nop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// ResolveURL turns a backend-relative path such as "/uploads/a.mp3" into an
// absolute URL. Absolute URLs are returned unchanged.
func (c *HTTPClient) ResolveURL(p string) string {
	u, err := url.Parse(p)
	if err != nil || u.IsAbs() {
		return p
	}
	return c.base.ResolveReference(&url.URL{Path: strings.TrimLeft(u.Path, "/"), RawQuery: u.RawQuery}).String()
}

// JSONBody encodes v for use as Request.Body.
func JSONBody(v any) (io.Reader, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	return &buf, nil
}

// Do performs r and decodes a 2xx JSON body into out (skipped when out is
// nil).
func (c *HTTPClient) Do(ctx context.Context, r Request, out any) error {
	timeout := c.timeout
	if r.Extended {
		timeout = c.extendedTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, token, err := c.send(ctx, r, "application/json")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.check(ctx, r, resp, token); err != nil {
		return err
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if kind := classifyTransport(ctx, err); kind == common.ErrTimeout {
			return c.transportError(ctx, r, err)
		}
		return &APIError{Kind: common.ErrUnexpectedStatus, Method: r.Method, URL: c.ResolveURL(r.Path),
			Status: resp.StatusCode, Detail: "malformed response body", Cause: err}
	}
	return nil
}

// Download streams a GET of rawURL into w, reporting progress when the
// server announces a length. It uses the extended timeout and sends no
// credentials, since media may be served from another host.
func (c *HTTPClient) Download(ctx context.Context, rawURL string, w io.Writer, progress netx.ProgressFunc) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, c.extendedTimeout)
	defer cancel()

	r := Request{Method: http.MethodGet, Path: rawURL, Anonymous: true}
	resp, _, err := c.send(ctx, r, "*/*")
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if err := c.check(ctx, r, resp, ""); err != nil {
		return 0, err
	}

	n, err := netx.CopyWithProgress(w, resp.Body, resp.ContentLength, progress)
	if err != nil {
		return n, c.transportError(ctx, r, err)
	}
	return n, nil
}

func (c *HTTPClient) send(ctx context.Context, r Request, accept string) (*http.Response, string, error) {
	target := c.ResolveURL(r.Path)
	req, err := http.NewRequestWithContext(ctx, r.Method, target, r.Body)
	if err != nil {
		return nil, "", fmt.Errorf("build request %s %s: %w", r.Method, target, err)
	}
	req.Header.Set("Accept", accept)
	if r.ContentType != "" {
		req.Header.Set("Content-Type", r.ContentType)
	}

	var token string
	if !r.Anonymous && c.tokens != nil {
		if token = c.tokens.Token(); token != "" {
			req.Header.Set(common.AuthorizationHeader, common.BearerPrefix+token)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, "", c.transportError(ctx, r, err)
	}
	c.log.Debug(ctx, "http call", "method", r.Method, "url", target, "status", resp.StatusCode,
		"elapsed", time.Since(start))
	return resp, token, nil
}

func (c *HTTPClient) check(ctx context.Context, r Request, resp *http.Response, token string) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	apiErr := &APIError{
		Kind:   classifyStatus(resp.StatusCode),
		Method: r.Method,
		URL:    c.ResolveURL(r.Path),
		Status: resp.StatusCode,
		Detail: parseDetail(body),
	}
	c.log.Warn(ctx, "http call rejected", "method", r.Method, "url", apiErr.URL,
		"status", resp.StatusCode, "detail", apiErr.Detail)

	if resp.StatusCode == http.StatusUnauthorized && token != "" && c.onUnauthorized != nil {
		c.onUnauthorized(token)
	}
	return apiErr
}

func (c *HTTPClient) transportError(ctx context.Context, r Request, err error) error {
	target := c.ResolveURL(r.Path)
	kind := classifyTransport(ctx, err)
	if kind == nil {
		return fmt.Errorf("%s %s: %w", r.Method, target, err)
	}
	c.log.Warn(ctx, "http call failed", "method", r.Method, "url", target, "kind", kind, "err", err)
	return &APIError{Kind: kind, Method: r.Method, URL: target, Cause: err}
}

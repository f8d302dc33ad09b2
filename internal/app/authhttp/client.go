/*
Package authhttp is the HTTP client for the Member Service.

Credentials travel only as cookies held by the client's jar. When a request is answered
with 401, the client refreshes the session once and replays the request once. If that does
not help, the session store is cleared and the caller gets errs.ErrSessionExpired.
*/
package authhttp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"harukcal/internal/app/session"
	"harukcal/internal/pkg/errs"
	"harukcal/internal/pkg/logx"
)

const (
	// DefaultTimeout bounds a single round trip, including reading the body.
	DefaultTimeout = 10 * time.Second

	// DefaultRefreshPath is the refresh endpoint relative to the base URL.
	DefaultRefreshPath = "/api/members/refresh"

	// DefaultLoginPath is the login endpoint relative to the base URL.
	DefaultLoginPath = "/api/members/login"

	maxBodyBytes = 4 << 20
)

// Request is a replayable request description. Body is sent as application/json unless
// Header sets another Content-Type.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   []byte
	Header http.Header

	// NoRefresh exempts the request from retry-on-401 in addition to the exempt paths.
	NoRefresh bool
}

// JSONRequest builds a Request whose body is v encoded as JSON. A nil v sends no body.
func JSONRequest(method, path string, v any) (Request, error) {
	req := Request{Method: method, Path: path}
	if v == nil {
		return req, nil
	}
	body, err := json.Marshal(v)
	if err != nil {
		return req, fmt.Errorf("authhttp: encode body: %w", err)
	}
	req.Body = body
	return req, nil
}

// Response is a fully read 2xx response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// DecodeJSON unmarshals the body into v. An empty body leaves v untouched.
func (r *Response) DecodeJSON(v any) error {
	return DecodeJSON(r.Body, v)
}

// DecodeJSON unmarshals body into v. An empty body leaves v untouched.
func DecodeJSON(body []byte, v any) error {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("authhttp: decode response: %w", err)
	}
	return nil
}

// Refresher renews the server-side session. With cookie credentials a successful refresh
// needs no further client action: the server rewrites its cookies.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// RefresherFunc adapts a function to Refresher.
type RefresherFunc func(ctx context.Context) error

func (f RefresherFunc) Refresh(ctx context.Context) error {
	return f(ctx)
}

// Client sends requests to the Member Service with cookie credentials.
type Client struct {
	base        *url.URL
	http        *http.Client
	store       session.Store
	refresher   Refresher
	refreshPath string
	exempt      map[string]struct{}
	logger      zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout overrides DefaultTimeout. Zero disables the timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.http.Timeout = d
	}
}

// WithTransport sets the underlying RoundTripper.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		c.http.Transport = rt
	}
}

// WithRefresher replaces the default refresh call.
func WithRefresher(r Refresher) Option {
	return func(c *Client) {
		c.refresher = r
	}
}

// WithRefreshPath changes the refresh endpoint. The path is exempt from retry-on-401.
func WithRefreshPath(path string) Option {
	return func(c *Client) {
		c.refreshPath = path
	}
}

// WithExemptPaths adds paths that never trigger a refresh.
func WithExemptPaths(paths ...string) Option {
	return func(c *Client) {
		for _, p := range paths {
			c.exempt[cleanPath(p)] = struct{}{}
		}
	}
}

// New returns a client for baseURL. jar supplies and stores the credential cookies; store
// is cleared when a session cannot be recovered.
func New(baseURL string, jar http.CookieJar, store session.Store, opts ...Option) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(strings.TrimSpace(baseURL), "/"))
	if err != nil {
		return nil, fmt.Errorf("authhttp: parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("authhttp: base url %q must be http or https", baseURL)
	}
	if jar == nil {
		return nil, errors.New("authhttp: cookie jar is required")
	}
	if store == nil {
		return nil, errors.New("authhttp: session store is required")
	}

	c := &Client{
		base:        base,
		http:        &http.Client{Jar: jar, Timeout: DefaultTimeout},
		store:       store,
		refreshPath: DefaultRefreshPath,
		exempt:      map[string]struct{}{cleanPath(DefaultLoginPath): {}},
		logger:      logx.Component("http_client").With().Str("base_url", base.String()).Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.exempt[cleanPath(c.refreshPath)] = struct{}{}
	if c.refresher == nil {
		c.refresher = RefresherFunc(c.refresh)
	}
	return c, nil
}

// BaseURL returns the Member Service base URL.
func (c *Client) BaseURL() *url.URL {
	u := *c.base
	return &u
}

// Do sends req. Non-2xx answers are returned as *StatusError, transport failures as
// errs.ErrNetwork, and an unrecoverable 401 as errs.ErrSessionExpired wrapping the
// *StatusError.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	if req.Header.Get("Authorization") != "" {
		c.logger.Error().Str("method", req.Method).Str("path", req.Path).Msg("Rejected request carrying an Authorization header")
		return nil, errs.NewError(errs.ErrBearerNotAllowed)
	}

	resp, err := c.send(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized || c.isExempt(req) {
		return checkStatus(req, resp)
	}

	original := newStatusError(req, resp)

	if rerr := c.refresher.Refresh(ctx); rerr != nil {
		if errs.HasCode(rerr, errs.ErrNetwork) {
			c.logger.Warn().Err(rerr).Str("path", req.Path).Msg("Session refresh could not reach the server, keeping session")
			return nil, rerr
		}
		c.logger.Warn().Err(rerr).Str("path", req.Path).Msg("Session refresh failed, clearing session")
		c.clearStore()
		return nil, errs.Wrap(errs.ErrSessionExpired, original)
	}

	resp, err = c.send(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		c.logger.Warn().Str("path", req.Path).Msg("Request still unauthorized after refresh, clearing session")
		c.clearStore()
		return nil, errs.Wrap(errs.ErrSessionExpired, newStatusError(req, resp))
	}
	return checkStatus(req, resp)
}

// refresh is the default Refresher: POST to the refresh path, exempt from retry.
func (c *Client) refresh(ctx context.Context) error {
	resp, err := c.send(ctx, Request{Method: http.MethodPost, Path: c.refreshPath, NoRefresh: true})
	if err != nil {
		return err
	}
	if _, err := checkStatus(Request{Method: http.MethodPost, Path: c.refreshPath}, resp); err != nil {
		return errs.Wrap(errs.ErrUnauthorized, err)
	}
	return nil
}

func (c *Client) clearStore() {
	if err := c.store.Clear(); err != nil {
		c.logger.Error().Err(err).Msg("Failed to clear session store")
	}
}

func (c *Client) isExempt(req Request) bool {
	if req.NoRefresh {
		return true
	}
	_, ok := c.exempt[cleanPath(req.Path)]
	return ok
}

// send performs one round trip and reads the whole body.
func (c *Client) send(ctx context.Context, req Request) (*Response, error) {
	u := c.base.JoinPath(req.Path)
	if len(req.Query) > 0 {
		u.RawQuery = req.Query.Encode()
	}

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("authhttp: build request: %w", err)
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	if req.Body != nil && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("Accept", "application/json")

	start := time.Now()
	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		c.logger.Warn().Err(err).Str("method", req.Method).Str("path", req.Path).Msg("Request got no response")
		return nil, errs.Wrap(errs.ErrNetwork, err)
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(httpResp.Body, maxBodyBytes))
	if err != nil {
		c.logger.Warn().Err(err).Str("method", req.Method).Str("path", req.Path).Msg("Response body could not be read")
		return nil, errs.Wrap(errs.ErrNetwork, err)
	}

	c.logger.Debug().
		Str("method", req.Method).
		Str("path", req.Path).
		Int("status", httpResp.StatusCode).
		Dur("latency", time.Since(start)).
		Msg("Member Service request")

	return &Response{StatusCode: httpResp.StatusCode, Header: httpResp.Header, Body: raw}, nil
}

func checkStatus(req Request, resp *Response) (*Response, error) {
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newStatusError(req, resp)
	}
	return resp, nil
}

func cleanPath(p string) string {
	p = "/" + strings.Trim(strings.TrimSpace(p), "/")
	return p
}

// Package apiclient is the single outbound path to the rental REST API. It
// owns the session token and the registry of in-flight keyed requests.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"carrental/internal/tokenstore"
)

// DefaultBaseURL is the demo backend.
const DefaultBaseURL = "https://api.avtoprokat-demo.ru/api/v1"

const maxResponseBody = 16 << 20

// HTTPDoer defines http.Client interface subset.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// NewDefaultHTTPClient returns *http.Client with timeout.
func NewDefaultHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

// SessionListener is told when a 401 purged the session.
type SessionListener func(ctx context.Context, err *APIError)

// Options configures a Client. Zero values pick defaults.
type Options struct {
	BaseURL    string
	HTTPClient HTTPDoer
	Store      tokenstore.Store
	Notifier   Notifier
	Logger     *zap.Logger
	Now        func() time.Time
}

// Client is created once per process (or once per test) and shared by every
// component issuing calls.
type Client struct {
	baseURL  string
	http     HTTPDoer
	store    tokenstore.Store
	notifier Notifier
	logger   *zap.Logger
	now      func() time.Time
	inflight *registry

	mu        sync.RWMutex
	token     string
	listeners map[int]SessionListener
	nextID    int
}

// New builds a client and restores the token from the store. A stored JWT
// whose exp already passed is purged instead of restored.
func New(ctx context.Context, opts Options) (*Client, error) {
	c := &Client{
		baseURL:   strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/"),
		http:      opts.HTTPClient,
		store:     opts.Store,
		notifier:  opts.Notifier,
		logger:    opts.Logger,
		now:       opts.Now,
		inflight:  newRegistry(),
		listeners: make(map[int]SessionListener),
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.http == nil {
		c.http = NewDefaultHTTPClient(10 * time.Second)
	}
	if c.store == nil {
		c.store = tokenstore.NewMemory()
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	if c.notifier == nil {
		c.notifier = nopNotifier{}
	}
	if c.now == nil {
		c.now = time.Now
	}

	token, err := c.store.Load(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "apiclient: restore token")
	}
	if token != "" {
		if claims, err := ParseClaims(token); err == nil && claims.Expired(c.now()) {
			c.logger.Info("stored token expired, discarding", zap.Time("expired_at", claims.ExpiresAt))
			if err := c.store.Clear(ctx); err != nil {
				return nil, errors.Wrap(err, "apiclient: purge expired token")
			}
			token = ""
		}
	}
	c.token = token
	return c, nil
}

// BaseURL returns the endpoint all paths are resolved against.
func (c *Client) BaseURL() string { return c.baseURL }

// Token returns the held bearer token or "".
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Authenticated reports whether a token is held.
func (c *Client) Authenticated() bool { return c.Token() != "" }

// Claims decodes the held token. ErrOpaqueToken is returned for non-JWT tokens.
func (c *Client) Claims() (*Claims, error) {
	token := c.Token()
	if token == "" {
		return nil, errors.New("apiclient: no token")
	}
	return ParseClaims(token)
}

// SetToken holds token and persists it. The in-memory token is replaced even
// when persisting fails.
func (c *Client) SetToken(ctx context.Context, token string) error {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
	return errors.Wrap(c.store.Save(ctx, token), "apiclient: persist token")
}

// ClearToken drops the token from memory and storage. Safe to call repeatedly.
func (c *Client) ClearToken(ctx context.Context) error {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
	return errors.Wrap(c.store.Clear(ctx), "apiclient: clear token")
}

// OnSessionExpired registers fn for 401 responses. The returned func unregisters it.
func (c *Client) OnSessionExpired(fn SessionListener) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

// Cancel aborts the live request under key, if any.
func (c *Client) Cancel(key string) {
	if c.inflight.cancel(key) {
		c.logger.Debug("request cancelled", zap.String("key", key))
	}
}

// CancelAll aborts every keyed request; used on teardown.
func (c *Client) CancelAll() {
	if n := c.inflight.cancelAll(); n > 0 {
		c.logger.Debug("requests cancelled", zap.Int("count", n))
	}
}

// InFlight reports whether a request under key is outstanding.
func (c *Client) InFlight(key string) bool { return c.inflight.active(key) }

type requestOptions struct {
	key     string
	headers map[string]string
	silent  bool
}

// RequestOption tunes a single Request call.
type RequestOption func(*requestOptions)

// WithKey makes the request supersede any pending request with the same key.
func WithKey(key string) RequestOption {
	return func(o *requestOptions) { o.key = key }
}

// WithHeader adds a request header on top of the defaults.
func WithHeader(name, value string) RequestOption {
	return func(o *requestOptions) {
		if o.headers == nil {
			o.headers = make(map[string]string)
		}
		o.headers[name] = value
	}
}

// WithoutNotification suppresses the user-facing notification for this call.
func WithoutNotification() RequestOption {
	return func(o *requestOptions) { o.silent = true }
}

// Request sends body (JSON encoded when non-nil) to path and decodes the
// response into out (when non-nil). 204 and empty bodies leave out untouched.
func (c *Client) Request(ctx context.Context, method, path string, body, out any, opts ...RequestOption) error {
	var ro requestOptions
	for _, opt := range opts {
		opt(&ro)
	}

	reqCtx := ctx
	if ro.key != "" {
		var release func()
		reqCtx, release = c.inflight.start(ctx, ro.key)
		defer release()
	}

	err := c.do(reqCtx, method, path, body, out, ro)
	if err == nil {
		return nil
	}
	if IsAbort(err) {
		c.logger.Debug("request aborted", zap.String("method", method), zap.String("path", path), zap.String("key", ro.key))
		return err
	}

	c.logger.Warn("api error", zap.String("method", method), zap.String("path", path), zap.String("key", ro.key), zap.Error(err))
	if !ro.silent {
		n := Notification{Title: "API error", Description: err.Error(), Variant: VariantDestructive}
		if apiErr, ok := AsAPIError(err); ok {
			n.Status = apiErr.Status
		}
		c.notifier.Notify(n)
	}
	return err
}

func (c *Client) do(ctx context.Context, method, path string, body, out any, ro requestOptions) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "apiclient: encode request")
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.buildURL(path), reader)
	if err != nil {
		return errors.Wrap(err, "apiclient: build request")
	}

	requestID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	for k, v := range ro.headers {
		req.Header.Set(k, v)
	}
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	started := c.now()
	resp, err := c.http.Do(req)
	if err != nil {
		return c.transportError(ctx, method, path, ro.key, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return c.transportError(ctx, method, path, ro.key, err)
	}
	// A response that lands after supersession must not touch shared state.
	if ctx.Err() != nil {
		return c.transportError(ctx, method, path, ro.key, ctx.Err())
	}

	c.logger.Debug("api request",
		zap.String("method", method),
		zap.String("path", path),
		zap.String("key", ro.key),
		zap.String("request_id", requestID),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", c.now().Sub(started)),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.statusError(ctx, resp.StatusCode, data)
	}

	if resp.StatusCode == http.StatusNoContent || len(bytes.TrimSpace(data)) == 0 || out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errors.Wrapf(err, "apiclient: decode %s %s response", method, path)
	}
	return nil
}

func (c *Client) statusError(ctx context.Context, status int, data []byte) error {
	payload := map[string]any{}
	if len(data) > 0 {
		// Non-JSON error bodies are ignored.
		_ = json.Unmarshal(data, &payload)
	}

	message, _ := payload["message"].(string)
	if message == "" {
		message = fmt.Sprintf("server error: %d", status)
	}
	apiErr := &APIError{Status: status, Message: message, Body: payload}

	if status == http.StatusUnauthorized {
		c.expireSession(ctx, apiErr)
	}
	return apiErr
}

func (c *Client) expireSession(ctx context.Context, apiErr *APIError) {
	// The request context may already be done; the purge must still happen.
	clearCtx := context.WithoutCancel(ctx)
	if err := c.ClearToken(clearCtx); err != nil {
		c.logger.Error("failed to clear token after 401", zap.Error(err))
	}
	c.logger.Info("session expired")

	c.mu.RLock()
	listeners := make([]SessionListener, 0, len(c.listeners))
	for _, fn := range c.listeners {
		listeners = append(listeners, fn)
	}
	c.mu.RUnlock()

	for _, fn := range listeners {
		fn(clearCtx, apiErr)
	}
}

func (c *Client) transportError(ctx context.Context, method, path, key string, err error) error {
	// Any cancel is an abort whatever its cause; deadlines stay network errors.
	if errors.Is(ctx.Err(), context.Canceled) {
		return &AbortError{Key: key, Cause: context.Cause(ctx)}
	}
	return &NetworkError{Method: method, Path: path, Err: err}
}

func (c *Client) buildURL(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.baseURL + path
}

// Package gateway dispatches console requests to the upstream platform API.
// It decorates every outbound call with the active tenant scope and
// classifies every inbound response, converting approval deferrals into a
// distinguished outcome and invalidating the dependent cached collections.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/atrium-console/atrium/internal/tenant"
)

// Headers decorated onto every outbound request.
const (
	HeaderTenantID   = "X-Tenant-ID"
	HeaderDispatchID = "X-Dispatch-ID"
)

// Dispatch outcome labels recorded in metrics.
const (
	OutcomeOK           = "ok"
	OutcomeApproval     = "approval_pending"
	OutcomeUnauthorized = "unauthorized"
	OutcomeError        = "error"
)

// ScopedKey derives the cache key for a collection under one tenant scope.
// Cached collections hold tenant-scoped upstream data, so they are
// partitioned per tenant; a nil scope names the system-wide variant.
func ScopedKey(base string, scope *int64) string {
	if scope == nil {
		return base
	}
	return base + ":" + strconv.FormatInt(*scope, 10)
}

// Doer is the transport surface the gateway decorates but does not
// implement.
type Doer interface {
	Do(*http.Request) (*http.Response, error)
}

// Invalidator marks cached collections stale so dependent views refetch.
type Invalidator interface {
	Invalidate(ctx context.Context, keys ...string) error
}

// Sink observes intercepted approval signals, e.g. to record an audit trail
// or schedule a cache re-warm.
type Sink interface {
	Intercepted(ctx context.Context, pending PendingApproval)
}

// SinkFunc adapts a plain function to the Sink interface.
type SinkFunc func(ctx context.Context, pending PendingApproval)

// Intercepted calls f.
func (f SinkFunc) Intercepted(ctx context.Context, pending PendingApproval) {
	f(ctx, pending)
}

// DispatchMetrics counts dispatch outcomes.
type DispatchMetrics interface {
	ObserveDispatch(outcome string)
}

// ClientConfig collects the gateway's collaborators.
type ClientConfig struct {
	BaseURL string
	Doer    Doer
	// Invalidator stale-marks the InvalidateKeys collections on an
	// approval interception. The keys are base names; the dispatch's
	// tenant scope is appended via ScopedKey.
	Invalidator    Invalidator
	InvalidateKeys []string
	Sink           Sink
	Metrics        DispatchMetrics
	Logger         *slog.Logger
}

// Client is the request dispatcher. Each dispatch is independent; the
// client holds no per-request state and no locks.
type Client struct {
	base           *url.URL
	doer           Doer
	invalidator    Invalidator
	invalidateKeys []string
	sink           Sink
	metrics        DispatchMetrics
	logger         *slog.Logger
}

// NewClient constructs a Client.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("gateway: base URL required")
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("gateway: parse base URL: %w", err)
	}
	doer := cfg.Doer
	if doer == nil {
		doer = http.DefaultClient
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		base:           base,
		doer:           doer,
		invalidator:    cfg.Invalidator,
		invalidateKeys: cfg.InvalidateKeys,
		sink:           cfg.Sink,
		metrics:        cfg.Metrics,
		logger:         logger,
	}, nil
}

// Request describes one upstream call.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any
	Header http.Header
}

// Response is a classified 2xx upstream response.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Decode unmarshals the response body into dest.
func (r *Response) Decode(dest any) error {
	if len(r.Body) == 0 {
		return nil
	}
	return json.Unmarshal(r.Body, dest)
}

// Dispatch performs one upstream call and returns exactly one of: a
// success response, a *PendingApproval via the error channel, or a hard
// error. The tenant scope is read once, here, so a concurrent tenant switch
// never rescopes an already-dispatched request.
func (c *Client) Dispatch(ctx context.Context, req Request) (*Response, error) {
	scope := tenant.ScopeFromContext(ctx)
	dispatchID := uuid.NewString()

	httpReq, err := c.buildRequest(ctx, req, scope, dispatchID)
	if err != nil {
		return nil, err
	}

	res, err := c.doer.Do(httpReq)
	if err != nil {
		c.observe(OutcomeError)
		return nil, fmt.Errorf("gateway: dispatch %s %s: %w", req.Method, req.Path, err)
	}
	defer func() { _ = res.Body.Close() }()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		c.observe(OutcomeError)
		return nil, fmt.Errorf("gateway: read response: %w", err)
	}

	return c.classify(ctx, dispatchID, scope, res, body)
}

// Get is shorthand for dispatching a GET and decoding the result.
func (c *Client) Get(ctx context.Context, path string, query url.Values, dest any) error {
	res, err := c.Dispatch(ctx, Request{Method: http.MethodGet, Path: path, Query: query})
	if err != nil {
		return err
	}
	if dest == nil {
		return nil
	}
	return res.Decode(dest)
}

func (c *Client) buildRequest(ctx context.Context, req Request, scope *int64, dispatchID string) (*http.Request, error) {
	target := *c.base
	target.Path = strings.TrimRight(target.Path, "/") + "/" + strings.TrimLeft(req.Path, "/")
	if req.Query != nil {
		target.RawQuery = req.Query.Encode()
	}

	var body io.Reader
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("gateway: encode body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target.String(), body)
	if err != nil {
		return nil, fmt.Errorf("gateway: build request: %w", err)
	}
	for key, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set(HeaderDispatchID, dispatchID)
	// The scoping attribute is attached only when a tenant is active; a nil
	// scope means the request is deliberately system-wide.
	if scope != nil {
		httpReq.Header.Set(HeaderTenantID, strconv.FormatInt(*scope, 10))
	}
	return httpReq, nil
}

// classify inspects the response exactly once per dispatch: a response is
// either an approval deferral, an authentication failure, an upstream
// failure, or a success, never more than one.
func (c *Client) classify(ctx context.Context, dispatchID string, scope *int64, res *http.Response, body []byte) (*Response, error) {
	if pending := detectPending(res.StatusCode, body); pending != nil {
		pending.DispatchID = dispatchID
		c.onPending(ctx, scope, *pending)
		return nil, pending
	}

	if res.StatusCode == http.StatusUnauthorized {
		c.observe(OutcomeUnauthorized)
		return nil, ErrSessionExpired
	}

	if res.StatusCode >= 400 {
		c.observe(OutcomeError)
		return nil, upstreamError(res.StatusCode, body)
	}

	c.observe(OutcomeOK)
	return &Response{Status: res.StatusCode, Header: res.Header, Body: body}, nil
}

// onPending runs the interception side effects: stale-marking the approval
// collections and notifying the sink. It runs detached from the caller's
// cancellation so an abandoned request cannot leave stale pending state.
func (c *Client) onPending(ctx context.Context, scope *int64, pending PendingApproval) {
	ctx = context.WithoutCancel(ctx)
	c.observe(OutcomeApproval)
	if c.invalidator != nil && len(c.invalidateKeys) > 0 {
		// Stale-mark the intercepted dispatch's own scope: the collections
		// are partitioned per tenant and only this tenant's view changed.
		keys := make([]string, 0, len(c.invalidateKeys))
		for _, base := range c.invalidateKeys {
			keys = append(keys, ScopedKey(base, scope))
		}
		if err := c.invalidator.Invalidate(ctx, keys...); err != nil {
			c.logger.Error("invalidate approval caches", slog.Any("error", err))
		}
	}
	if c.sink != nil {
		c.sink.Intercepted(ctx, pending)
	}
	c.logger.Info("mutation deferred for approval",
		slog.String("dispatch_id", pending.DispatchID),
		slog.String("message", pending.Message))
}

func (c *Client) observe(outcome string) {
	if c.metrics != nil {
		c.metrics.ObserveDispatch(outcome)
	}
}

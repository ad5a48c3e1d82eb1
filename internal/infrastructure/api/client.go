// Package api is the single funnel through which every backoffice REST call
// passes: it decides cache reads and writes, routes authenticated versus
// public calls, normalizes responses, and invalidates related cache entries
// after mutations.
package api

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

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/drivemaster/backoffice/internal/domain/shared"
	"github.com/drivemaster/backoffice/internal/infrastructure/cache"
	"github.com/drivemaster/backoffice/internal/infrastructure/session"
)

// Config assembles a Client from its injected collaborators.
type Config struct {
	BaseURL    string
	Session    *session.Manager
	Cache      cache.ResponseCache
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Client is the request orchestrator. Construct it once at the application
// root and pass it to the services that need it.
type Client struct {
	baseURL    string
	session    *session.Manager
	cache      cache.ResponseCache
	httpClient *http.Client
	logger     *zap.Logger
}

// New creates a new API client
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("BaseURL is required")
	}
	if cfg.Session == nil {
		return nil, fmt.Errorf("Session is required")
	}

	c := &Client{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		session:    cfg.Session,
		cache:      cfg.Cache,
		httpClient: cfg.HTTPClient,
		logger:     cfg.Logger,
	}
	if c.cache == nil {
		c.cache = cache.NewMemoryResponseCache()
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	return c, nil
}

// RequestOptions shapes a single call through Request. The zero value is an
// authenticated, cacheable GET.
type RequestOptions struct {
	Method string
	Params map[string]string
	// Body is JSON-serialized unless RawBody is set.
	Body any
	// RawBody bypasses JSON serialization; ContentType must carry the
	// boundary-aware multipart header.
	RawBody     io.Reader
	ContentType string
	// PublicCall opts out of the bearer token (login, registration).
	PublicCall bool
	// SkipCache bypasses the cache read and write for this call.
	SkipCache bool
}

// Request performs one call against endpoint. GET responses are served from
// and stored into the cache unless SkipCache is set; mutations invalidate
// the related cache patterns afterwards.
func (c *Client) Request(ctx context.Context, endpoint string, opts RequestOptions) ([]byte, error) {
	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}

	cacheable := method == http.MethodGet && !opts.SkipCache
	cacheKey := ""
	if cacheable {
		cacheKey = cache.Key(endpoint, opts.Params)
		if cached, ok := c.cache.Get(ctx, cacheKey); ok {
			return cached, nil
		}
	}

	payload, err := c.dispatch(ctx, method, endpoint, opts)
	if err != nil {
		return nil, err
	}

	if len(payload) > 0 && !json.Valid(payload) {
		// The backend sometimes answers 2xx with a bare string; treat it as
		// a successful text result instead of failing.
		c.logger.Warn("non-JSON success response",
			zap.String("endpoint", endpoint),
			zap.Int("bytes", len(payload)))
	}

	if cacheable && payload != nil {
		c.cache.Set(ctx, cacheKey, payload, 0)
	}
	if isMutation(method) {
		c.invalidateFor(ctx, endpoint)
	}
	return payload, nil
}

// dispatch routes the call down the authenticated or public path.
func (c *Client) dispatch(ctx context.Context, method, endpoint string, opts RequestOptions) ([]byte, error) {
	target, err := c.buildURL(endpoint, opts.Params)
	if err != nil {
		return nil, err
	}

	body, contentType, err := encodeBody(opts)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)

	start := time.Now()
	var payload []byte
	if opts.PublicCall {
		payload, err = c.doPublic(req)
	} else {
		payload, err = c.session.Do(ctx, req)
	}

	log := c.logger.With(
		zap.String("request_id", requestID),
		zap.String("method", method),
		zap.String("endpoint", endpoint),
		zap.Duration("elapsed", time.Since(start)))
	if err != nil {
		log.Debug("request failed", zap.Error(err))
		return nil, err
	}
	log.Debug("request completed")
	return payload, nil
}

// doPublic performs an unauthenticated call with the same response
// normalization as the authenticated path.
func (c *Client) doPublic(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if req.Context().Err() != nil {
			return nil, req.Context().Err()
		}
		return nil, &shared.NetworkError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &shared.NetworkError{Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, shared.HTTPErrorFromResponse(resp.StatusCode, body)
	}
	if len(body) == 0 {
		return nil, nil
	}
	return body, nil
}

func (c *Client) buildURL(endpoint string, params map[string]string) (string, error) {
	target, err := url.Parse(c.baseURL + endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid endpoint %q: %w", endpoint, err)
	}
	if len(params) > 0 {
		query := target.Query()
		for k, v := range params {
			query.Set(k, v)
		}
		target.RawQuery = query.Encode()
	}
	return target.String(), nil
}

func encodeBody(opts RequestOptions) (io.Reader, string, error) {
	if opts.RawBody != nil {
		return opts.RawBody, opts.ContentType, nil
	}
	if opts.Body == nil {
		return nil, "", nil
	}
	encoded, err := json.Marshal(opts.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to marshal request body: %w", err)
	}
	return bytes.NewReader(encoded), "application/json", nil
}

func isMutation(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// invalidateFor drops the cache patterns related to the mutated endpoint.
func (c *Client) invalidateFor(ctx context.Context, endpoint string) {
	resource, ok := resourceForEndpoint(endpoint)
	if !ok {
		c.logger.Debug("no invalidation mapping for endpoint", zap.String("endpoint", endpoint))
		return
	}
	for _, pattern := range invalidationPatterns[resource] {
		c.cache.Invalidate(ctx, pattern)
	}
}

// Get performs a cached, authenticated GET.
func (c *Client) Get(ctx context.Context, endpoint string, params map[string]string) ([]byte, error) {
	return c.Request(ctx, endpoint, RequestOptions{Method: http.MethodGet, Params: params})
}

// Post performs an authenticated POST and invalidates related cache entries.
func (c *Client) Post(ctx context.Context, endpoint string, body any) ([]byte, error) {
	return c.Request(ctx, endpoint, RequestOptions{Method: http.MethodPost, Body: body})
}

// Put performs an authenticated PUT and invalidates related cache entries.
func (c *Client) Put(ctx context.Context, endpoint string, body any) ([]byte, error) {
	return c.Request(ctx, endpoint, RequestOptions{Method: http.MethodPut, Body: body})
}

// Patch performs an authenticated PATCH and invalidates related cache entries.
func (c *Client) Patch(ctx context.Context, endpoint string, body any) ([]byte, error) {
	return c.Request(ctx, endpoint, RequestOptions{Method: http.MethodPatch, Body: body})
}

// Delete performs an authenticated DELETE and invalidates related cache entries.
func (c *Client) Delete(ctx context.Context, endpoint string) ([]byte, error) {
	return c.Request(ctx, endpoint, RequestOptions{Method: http.MethodDelete})
}

// CacheStats exposes the response cache contents for monitoring.
func (c *Client) CacheStats(ctx context.Context) cache.Stats {
	return c.cache.Stats(ctx)
}

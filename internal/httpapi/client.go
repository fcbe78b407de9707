// Package httpapi provides the shared HTTP client and response cache every
// backend call goes through: bearer-token installation, JSON codec, rate
// limiting, and the error taxonomy the rest of the client branches on.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const maxResponseBytes = 8 << 20

type ClientConfig struct {
	BaseURL   string
	Timeout   time.Duration
	RateLimit float64
	RateBurst int
	Cache     *Cache
	Logger    *slog.Logger
}

type Client struct {
	http    *http.Client
	baseURL string
	limiter *rate.Limiter
	cache   *Cache
	log     *slog.Logger

	mu    sync.RWMutex
	token string
}

func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	limit := rate.Inf
	burst := cfg.RateBurst
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
		if burst <= 0 {
			burst = 1
		}
	}

	cache := cfg.Cache
	if cache == nil {
		cache = NewCache(0, 0)
	}

	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	return &Client{
		http:    &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		limiter: rate.NewLimiter(limit, burst),
		cache:   cache,
		log:     log.With(slog.String("component", "httpapi")),
	}
}

func (c *Client) Cache() *Cache { return c.cache }

// SetToken installs the default bearer token attached to every subsequent
// request. Requests already in flight keep the token they started with.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) ClearToken() {
	c.SetToken("")
}

func (c *Client) bearer() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) Get(ctx context.Context, path string, params url.Values, out any) error {
	return c.do(ctx, http.MethodGet, path, params, nil, nil, out)
}

func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, nil, nil, body, out)
}

// PostWithHeader is Post with extra request headers, used for idempotency
// keys on booking submissions.
func (c *Client) PostWithHeader(ctx context.Context, path string, header http.Header, body, out any) error {
	return c.do(ctx, http.MethodPost, path, nil, header, body, out)
}

func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPut, path, nil, nil, body, out)
}

func (c *Client) Delete(ctx context.Context, path string) error {
	return c.do(ctx, http.MethodDelete, path, nil, nil, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, params url.Values, header http.Header, body, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	var bodyReader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, bodyReader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if token := c.bearer(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		return &StatusError{StatusCode: resp.StatusCode, Message: errorMessage(raw)}
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// errorMessage pulls a human-readable message out of a JSON error body,
// falling back to the trimmed body itself.
func errorMessage(raw []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(raw, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	return strings.TrimSpace(string(raw))
}

// GetCached is a fetch-through read: a fresh cache entry under the request
// key short-circuits the network entirely.
func GetCached[T any](ctx context.Context, c *Client, path string, params url.Values, opts CacheOptions) (T, error) {
	key := CacheKey(path, params)
	payload, err := c.cache.Lookup(key, opts, func() (any, error) {
		var v T
		if err := c.Get(ctx, path, params, &v); err != nil {
			return nil, err
		}
		return v, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	v, ok := payload.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("cache entry for %s holds %T", key, payload)
	}
	return v, nil
}

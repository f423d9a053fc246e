package musiclink

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	// DefaultAPIURL is the public Odesli links endpoint.
	DefaultAPIURL = "https://api.song.link/v1-alpha.1/links"
	// DefaultRetryDelay is the pause between connection retries.
	DefaultRetryDelay = 5 * time.Second
	// DefaultMaxRetries bounds connection attempts per link.
	DefaultMaxRetries = 5
	// DefaultThrottleDelay is how long the gate stays closed after a 429.
	DefaultThrottleDelay = 5 * time.Second
	// DefaultMaxThrottleRetries bounds throttle cycles per link.
	DefaultMaxThrottleRetries = 10
	// DefaultCacheTTL is how long resolved songs are reused.
	DefaultCacheTTL = 300 * time.Minute
)

// ClientConfig configures the resolution service client.
type ClientConfig struct {
	APIURL             string
	APIKey             string
	UserCountry        string
	RetryDelay         time.Duration
	MaxRetries         int
	ThrottleDelay      time.Duration
	MaxThrottleRetries int
	RequestsPerSecond  float64
	CacheTTL           time.Duration
	Timeout            time.Duration
}

// DefaultClientConfig returns the standard client settings.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		APIURL:             DefaultAPIURL,
		RetryDelay:         DefaultRetryDelay,
		MaxRetries:         DefaultMaxRetries,
		ThrottleDelay:      DefaultThrottleDelay,
		MaxThrottleRetries: DefaultMaxThrottleRetries,
		CacheTTL:           DefaultCacheTTL,
		Timeout:            defaultHTTPTimeout,
	}
}

// Observer receives resolution events, typically for metrics.
type Observer interface {
	ObserveResolution(outcome string)
	ObserveCache(hit bool)
	ObserveThrottle()
}

type nopObserver struct{}

func (nopObserver) ObserveResolution(string) {}

func (nopObserver) ObserveCache(bool) {}

func (nopObserver) ObserveThrottle() {}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithGate shares a throttle gate between clients.
func WithGate(g *Gate) Option {
	return func(c *Client) { c.gate = g }
}

// WithObserver installs a resolution observer.
func WithObserver(o Observer) Option {
	return func(c *Client) {
		if o != nil {
			c.observer = o
		}
	}
}

// Client resolves links through the resolution service.
type Client struct {
	config     ClientConfig
	registry   *Registry
	cache      Cache
	gate       *Gate
	limiter    *rate.Limiter
	httpClient *http.Client
	observer   Observer
	logger     *zap.Logger
	sleep      func(ctx context.Context, d time.Duration) error
}

// NewClient creates a resolution client. A nil cache disables caching.
func NewClient(config ClientConfig, registry *Registry, cache Cache, logger *zap.Logger, opts ...Option) *Client {
	if config.APIURL == "" {
		config.APIURL = DefaultAPIURL
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = DefaultMaxRetries
	}
	if cache == nil {
		cache = NopCache{}
	}

	c := &Client{
		config:     config,
		registry:   registry,
		cache:      cache,
		gate:       NewGate(),
		httpClient: newHTTPClient(config.Timeout),
		observer:   nopObserver{},
		logger:     logger,
		sleep:      sleepContext,
	}
	if config.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(config.RequestsPerSecond), 1)
	}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Gate returns the throttle gate used by the client.
func (c *Client) Gate() *Gate {
	return c.gate
}

// Resolve looks up a link. It always returns a song; on failure the song is
// empty except for the original link and the error is a *ResolutionError.
func (c *Client) Resolve(ctx context.Context, link FoundLink) (*SongInfo, error) {
	key := c.registry.NormalizeLink(link)
	logger := LoggerFrom(ctx, c.logger).With(
		zap.String("url", link.RawURL),
		zap.String("platform_key", link.PlatformKey),
	)

	if cached, ok := c.cache.Get(key); ok {
		c.observer.ObserveCache(true)
		logger.Debug("Song found in cache", zap.String("cache_key", key))
		song := cached.Clone()
		song.SourceURLs = []string{link.RawURL}
		return song, nil
	}
	c.observer.ObserveCache(false)

	song, err := c.fetchSong(ctx, key, link.RawURL, logger)
	if err != nil {
		c.observer.ObserveResolution(KindOf(err).String())
		return NewEmptySongInfo(link.RawURL), err
	}

	c.observer.ObserveResolution("ok")
	c.cache.Set(key, song.Clone(), c.config.CacheTTL)
	return song, nil
}

func (c *Client) fetchSong(ctx context.Context, key, rawURL string, logger *zap.Logger) (*SongInfo, error) {
	retries, throttles := 0, 0

	for {
		if !c.gate.IsOpen() {
			logger.Info("Waiting for the API")
		}
		if err := c.gate.Wait(ctx); err != nil {
			return nil, &ResolutionError{Kind: ConnectionFailure, URL: rawURL, Err: err}
		}
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, &ResolutionError{Kind: ConnectionFailure, URL: rawURL, Err: err}
			}
		}

		status, body, err := c.do(ctx, key)
		if err != nil {
			if ctx.Err() != nil {
				return nil, &ResolutionError{Kind: ConnectionFailure, URL: rawURL, Err: ctx.Err()}
			}
			retries++
			if retries >= c.config.MaxRetries {
				logger.Error("Connection error, giving up", zap.Error(err), zap.Int("retries", retries))
				return nil, &ResolutionError{Kind: ConnectionFailure, URL: rawURL, Err: err}
			}
			logger.Error("Connection error, retrying",
				zap.Error(err),
				zap.Int("retries", retries),
				zap.Duration("delay", c.config.RetryDelay))
			if err := c.sleep(ctx, c.config.RetryDelay); err != nil {
				return nil, &ResolutionError{Kind: ConnectionFailure, URL: rawURL, Err: err}
			}
			continue
		}

		switch {
		case status == http.StatusTooManyRequests:
			throttles++
			if c.config.MaxThrottleRetries > 0 && throttles > c.config.MaxThrottleRetries {
				logger.Error("API keeps throttling, giving up", zap.Int("throttles", throttles))
				return nil, &ResolutionError{Kind: Throttled, URL: rawURL, Status: status}
			}
			logger.Warn("Too many requests, retrying", zap.Duration("delay", c.config.ThrottleDelay))
			c.observer.ObserveThrottle()
			if err := c.throttle(ctx); err != nil {
				return nil, &ResolutionError{Kind: ConnectionFailure, URL: rawURL, Err: err}
			}
			continue
		case status == http.StatusNotFound:
			logger.Info("Song not found", zap.Int("status", status))
			return nil, &ResolutionError{Kind: NotFound, URL: rawURL, Status: status}
		case status < 200 || status > 299:
			logger.Error("API error", zap.Int("status", status), zap.ByteString("body", body))
			return nil, &ResolutionError{Kind: ServiceError, URL: rawURL, Status: status, Body: string(body)}
		}

		resp, err := parseResponse(body)
		if err != nil {
			logger.Error("Invalid response data", zap.Error(err))
			return nil, &ResolutionError{Kind: InvalidResponse, URL: rawURL, Status: status, Err: err}
		}

		song := resp.toSongInfo(c.registry, rawURL, logger)
		if !song.Resolved() {
			return nil, &ResolutionError{Kind: NotFound, URL: rawURL, Status: status}
		}
		return song, nil
	}
}

// throttle closes the gate for the throttle delay. The gate is reopened even if ctx ends early.
func (c *Client) throttle(ctx context.Context) error {
	c.gate.Close()
	defer c.gate.Open()
	return c.sleep(ctx, c.config.ThrottleDelay)
}

// do issues a single lookup and returns the status and (possibly truncated) body.
func (c *Client) do(ctx context.Context, link string) (int, []byte, error) {
	reqURL, err := c.requestURL(link)
	if err != nil {
		return 0, nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	limit := int64(maxBodySize)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		limit = maxErrorBodySize
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return resp.StatusCode, body, nil
}

func (c *Client) requestURL(link string) (string, error) {
	u, err := url.Parse(c.config.APIURL)
	if err != nil {
		return "", fmt.Errorf("invalid API URL: %w", err)
	}

	q := u.Query()
	q.Set("url", link)
	if c.config.UserCountry != "" {
		q.Set("userCountry", c.config.UserCountry)
	}
	if c.config.APIKey != "" {
		q.Set("api_key", c.config.APIKey)
	}
	u.RawQuery = q.Encode()

	return u.String(), nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

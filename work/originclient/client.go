// Package originclient fetches master/media playlists from the origin,
// built on the teacher's client.HeaderSettingClient pattern: a shared
// *http.Client with a long-lived transport and header injection, plus
// retry/backoff and a per-origin-host rate limiter grounded on the
// teacher's work/proxy/stream.go getRateLimiterForSource map.
package originclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"go.uber.org/ratelimit"

	"sgai-proxy/work/cache"
	"sgai-proxy/work/config"
	"sgai-proxy/work/errors"
	"sgai-proxy/work/logger"
)

// Client wraps http.Client to set origin headers, apply per-host rate
// limiting, and retry transient failures with backoff.
type Client struct {
	httpClient *http.Client
	cfg        *config.Config
	logger     *logger.Logger
	respCache  *cache.Cache // nil when cfg.CacheEnabled is false

	limiterMu sync.RWMutex
	limiters  map[string]ratelimit.Limiter

	maxRetries int
	retryDelay time.Duration
}

// New builds a Client, mirroring the teacher's NewHeaderSettingClient
// transport tuning (long idle timeout, no overall client timeout since
// playlist bodies can be large on slow origins; Fetch instead bounds each
// call, retries included, by cfg.OriginTimeout when it is set). When
// cfg.CacheEnabled, fetched bodies are memoized for cfg.CacheDuration,
// the same short-TTL response cache the teacher's work/cache.Cache gives
// its M3U8 fetches.
func New(cfg *config.Config, log *logger.Logger) *Client {
	c := &Client{
		httpClient: &http.Client{
			Timeout: 0,
			Transport: &http.Transport{
				MaxIdleConns:          100,
				MaxIdleConnsPerHost:   10,
				IdleConnTimeout:       90 * time.Second,
				TLSHandshakeTimeout:   10 * time.Second,
				ExpectContinueTimeout: 1 * time.Second,
				ResponseHeaderTimeout: 30 * time.Second,
			},
		},
		cfg:        cfg,
		logger:     log,
		limiters:   make(map[string]ratelimit.Limiter),
		maxRetries: 3,
		retryDelay: 200 * time.Millisecond,
	}
	if cfg.CacheEnabled {
		c.respCache = cache.NewCache(cfg.CacheDuration)
	}
	return c
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Connection", "keep-alive")
	req.Header.Set("Accept", "*/*")
	if c.cfg.ReqOrigin != "" {
		req.Header.Set("Origin", c.cfg.ReqOrigin)
	}
	if c.cfg.ReqReferrer != "" {
		req.Header.Set("Referer", c.cfg.ReqReferrer)
	}
}

// limiterFor returns (creating if needed) the rate limiter for rawURL's
// host, defaulting to 20 req/sec the way the teacher defaults to a fixed
// rate when a source has no explicit connection cap.
func (c *Client) limiterFor(rawURL string) ratelimit.Limiter {
	host := hostOf(rawURL)

	c.limiterMu.RLock()
	lim, ok := c.limiters[host]
	c.limiterMu.RUnlock()
	if ok {
		return lim
	}

	c.limiterMu.Lock()
	defer c.limiterMu.Unlock()
	if lim, ok := c.limiters[host]; ok {
		return lim
	}
	lim = ratelimit.New(20)
	c.limiters[host] = lim
	return lim
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return u.Host
}

// Fetch performs a rate-limited GET with retry/backoff and returns the
// response body. The caller owns the returned bytes; the response is
// always closed before Fetch returns.
func (c *Client) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	if c.respCache != nil {
		c.respCache.ClearIfNeeded()
		if body, ok := c.respCache.Get(rawURL); ok {
			return body, nil
		}
	}

	if c.cfg.OriginTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.OriginTimeout)
		defer cancel()
	}

	limiter := c.limiterFor(rawURL)

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			// Exponential backoff from retryDelay (spec §4.2): 200ms, 400ms,
			// 800ms, ... rather than a linear ramp.
			backoff := c.retryDelay * time.Duration(1<<uint(attempt-1))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		limiter.Take()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, errors.New("originclient.Fetch", errors.KindOrigin, err)
		}
		c.setHeaders(req)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			c.logger.Warn("origin fetch attempt %d failed for %s: %v", attempt+1, obfuscate(c.cfg, rawURL), err)
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			lastErr = fmt.Errorf("origin returned status %d", resp.StatusCode)
			c.logger.Warn("origin fetch attempt %d for %s: %v", attempt+1, obfuscate(c.cfg, rawURL), lastErr)
			// Any 4xx other than 408/429 is non-retryable (spec §4.2).
			if resp.StatusCode >= 400 && resp.StatusCode < 500 &&
				resp.StatusCode != http.StatusRequestTimeout && resp.StatusCode != http.StatusTooManyRequests {
				return nil, errors.New("originclient.Fetch", errors.KindOrigin, lastErr)
			}
			continue
		}
		if readErr != nil {
			lastErr = readErr
			continue
		}

		if c.respCache != nil {
			c.respCache.Set(rawURL, body)
		}
		return body, nil
	}

	return nil, errors.New("originclient.Fetch", errors.KindOrigin, lastErr)
}

func obfuscate(cfg *config.Config, rawURL string) string {
	if !cfg.ObfuscateUrls {
		return rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "***"
	}
	return u.Scheme + "://" + u.Host + "/***"
}

package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Additional-Code/catalog/internal/cache"
	"github.com/Additional-Code/catalog/internal/config"
	"github.com/Additional-Code/catalog/pkg/errorbank"
)

const maxPageBytes = 16 << 20

// HTTPFetcher fetches pages over HTTP. It does not retry.
type HTTPFetcher struct {
	client *http.Client
}

// NewHTTPFetcher builds a fetcher whose requests time out after timeout.
func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{client: &http.Client{Timeout: timeout}}
}

// Fetch performs a GET and returns the body of a 2xx response.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string, headers http.Header) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errorbank.Ingest("build feed request", errorbank.WithCause(err))
	}
	for key, values := range headers {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, errorbank.Ingest("feed unreachable", errorbank.WithCause(err), errorbank.WithDetail("url", url))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errorbank.Ingest(fmt.Sprintf("feed returned status %d", resp.StatusCode), errorbank.WithDetail("url", url))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, errorbank.Ingest("read feed body", errorbank.WithCause(err))
	}
	return body, nil
}

// CachingFetcher keeps raw page bytes in a cache store.
type CachingFetcher struct {
	next   Fetcher
	store  cache.Store
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachingFetcher wraps next with store.
func NewCachingFetcher(next Fetcher, store cache.Store, ttl time.Duration, logger *zap.Logger) *CachingFetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachingFetcher{next: next, store: store, ttl: ttl, logger: logger}
}

// Fetch serves url from the cache when present and fills it on a miss.
// Cache failures are logged and never fail the fetch.
func (c *CachingFetcher) Fetch(ctx context.Context, url string, headers http.Header) ([]byte, error) {
	key := pageCacheKey(url)
	if body, err := c.store.Get(ctx, key); err == nil {
		c.logger.Debug("feed page served from cache", zap.String("url", url))
		return body, nil
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		c.logger.Warn("feed cache read failed", zap.String("url", url), zap.Error(err))
	}

	body, err := c.next.Fetch(ctx, url, headers)
	if err != nil {
		return nil, err
	}
	if err := c.store.Set(ctx, key, body, c.ttl); err != nil {
		c.logger.Warn("feed cache write failed", zap.String("url", url), zap.Error(err))
	}
	return body, nil
}

func pageCacheKey(url string) string {
	return "ingest:page:" + url
}

const fileScheme = "file://"

// FileFetcher reads saved pages from disk. URLs must use the file:// scheme.
type FileFetcher struct{}

// Fetch reads the file named by url.
func (FileFetcher) Fetch(ctx context.Context, url string, _ http.Header) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, errorbank.Ingest("fetch cancelled", errorbank.WithCause(err))
	}
	path, ok := strings.CutPrefix(url, fileScheme)
	if !ok {
		return nil, errorbank.Ingest("not a file url", errorbank.WithDetail("url", url))
	}
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, errorbank.Ingest("read saved page", errorbank.WithCause(err), errorbank.WithDetail("url", url))
	}
	return body, nil
}

// NewFetcher builds the configured fetcher chain. Saved pages (file:// feed
// urls) bypass the cache.
func NewFetcher(cfg config.Config, store cache.Store, logger *zap.Logger) Fetcher {
	if strings.HasPrefix(cfg.Ingest.FeedURL, fileScheme) {
		return FileFetcher{}
	}
	return NewCachingFetcher(NewHTTPFetcher(cfg.Ingest.Timeout), store, cfg.Ingest.CacheTTL, logger.Named("ingest"))
}

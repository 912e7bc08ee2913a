package scraper

import (
	"context"
	"fmt"
	"sync/atomic"
)

// URLCache caches the working base URL for a domain so only the first
// request (and recovery after Clear) pays for reachability probing.
// Reads are lock-free via atomic.Value.
type URLCache struct {
	client *Client
	domain string
	cache  atomic.Value // stores string
}

// NewURLCache creates a URL cache for a domain registered in the client's
// base URL table (e.g., DomainAbit).
func NewURLCache(client *Client, domain string) *URLCache {
	return &URLCache{
		client: client,
		domain: domain,
	}
}

// Get returns the cached working URL, probing the configured candidates
// on a cache miss.
func (c *URLCache) Get(ctx context.Context) (string, error) {
	if cached := c.cache.Load(); cached != nil {
		if url, ok := cached.(string); ok && url != "" {
			return url, nil
		}
	}

	baseURL, err := c.client.TryFailoverURLs(ctx, c.domain)
	if err != nil {
		// Probe failure does not prove the site is down for GETs; fall
		// back to the first configured URL and let request retries decide.
		urls := c.client.GetBaseURLs(c.domain)
		if len(urls) == 0 {
			return "", fmt.Errorf("no URLs available for domain %s: %w", c.domain, err)
		}
		baseURL = urls[0]
	}

	c.cache.Store(baseURL)
	return baseURL, nil
}

// Clear invalidates the cached URL, forcing re-detection on next Get.
// Call this when a scrape fails so the next attempt re-probes.
func (c *URLCache) Clear() {
	c.cache.Store("")
}

// GetCached returns the cached URL without probing. Empty when unset.
func (c *URLCache) GetCached() string {
	if cached := c.cache.Load(); cached != nil {
		if url, ok := cached.(string); ok {
			return url
		}
	}
	return ""
}

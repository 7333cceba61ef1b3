package service

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// View names used as cache keys.
const (
	CatalogViewName = "catalog"
	ManageViewName  = "manage"
)

var (
	viewCacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pyq_view_cache_hits_total",
		Help: "Loaded PYQ lists found in the per-viewer cache.",
	})
	viewCacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pyq_view_cache_misses_total",
		Help: "Loaded PYQ lists created because none was cached.",
	})
)

// ViewCache keeps the loaded PYQ list of each viewer between requests.
// Entries expire after the TTL and the least recently used are evicted
// beyond size.
type ViewCache struct {
	mu    sync.Mutex
	cache *expirable.LRU[string, *ListView]
}

// NewViewCache creates a cache holding at most size lists for ttl each.
func NewViewCache(size int, ttl time.Duration) *ViewCache {
	return &ViewCache{cache: expirable.NewLRU[string, *ListView](size, nil, ttl)}
}

// List returns the list of view for principalID, creating an idle one when
// none is cached.
func (c *ViewCache) List(principalID, view string) *ListView {
	key := cacheKey(principalID, view)

	c.mu.Lock()
	defer c.mu.Unlock()
	if l, ok := c.cache.Get(key); ok {
		viewCacheHitsTotal.Inc()
		return l
	}
	viewCacheMissesTotal.Inc()
	l := NewListView()
	c.cache.Add(key, l)
	return l
}

// Drop forgets every list of principalID.
func (c *ViewCache) Drop(principalID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache.Remove(cacheKey(principalID, CatalogViewName))
	c.cache.Remove(cacheKey(principalID, ManageViewName))
}

// Len returns the number of cached lists.
func (c *ViewCache) Len() int {
	return c.cache.Len()
}

func cacheKey(principalID, view string) string {
	return principalID + "|" + view
}

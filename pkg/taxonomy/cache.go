package taxonomy

import (
	"context"
	"strconv"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/singleflight"
)

// lookupTimeout bounds a shared source lookup, which runs detached from the
// caller that started it.
const lookupTimeout = 30 * time.Second

// Cache is the process wide Expander. Entries are immutable facts about one
// taxonomy snapshot, so concurrent misses for the same id collapse into one
// source lookup and the last writer wins. Purge is the invalidation hook for
// a new snapshot. Unknown ids are not cached.
type Cache struct {
	src   Source
	lru   *lru.LRU[int64, []int64]
	group singleflight.Group

	// gen counts purges; a lookup started before a purge is not stored.
	mu  sync.Mutex
	gen uint64

	hits   prometheus.Counter
	misses prometheus.Counter
}

func NewCache(src Source, size int, ttl time.Duration) *Cache {
	if size <= 0 {
		size = 4096
	}
	return &Cache{
		src: src,
		lru: lru.NewLRU[int64, []int64](size, nil, ttl),
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vogdb_taxonomy_cache_hits_total",
			Help: "Taxonomy expansions served from the cache",
		}),
		misses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vogdb_taxonomy_cache_misses_total",
			Help: "Taxonomy expansions that went to the taxonomy source",
		}),
	}
}

func (c *Cache) Expand(ctx context.Context, taxonID int64) ([]int64, error) {
	if set, ok := c.lru.Get(taxonID); ok {
		c.hits.Inc()
		return set, nil
	}
	c.misses.Inc()

	gen := c.generation()
	key := strconv.FormatUint(gen, 10) + "/" + strconv.FormatInt(taxonID, 10)
	ch := c.group.DoChan(key, func() (any, error) {
		// Other callers share this lookup, so one of them giving up must
		// not cancel it.
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), lookupTimeout)
		defer cancel()
		set, err := expand(lctx, c.src, taxonID)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		if gen == c.gen {
			c.lru.Add(taxonID, set)
		}
		c.mu.Unlock()
		return set, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]int64), nil
	}
}

func (c *Cache) generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

// Purge drops every entry.
func (c *Cache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.lru.Purge()
}

func (c *Cache) Len() int {
	return c.lru.Len()
}

// Collectors are registered by main next to the HTTP metrics.
func (c *Cache) Collectors() []prometheus.Collector {
	return []prometheus.Collector{c.hits, c.misses}
}

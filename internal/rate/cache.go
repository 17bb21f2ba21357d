package rate

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	redis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

var (
	cacheHits = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rate_cache_hits_total",
		Help: "Rate cache hits",
	})
	cacheMisses = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rate_cache_misses_total",
		Help: "Rate cache misses (including cache disabled or unavailable)",
	})
)

func init() {
	prometheus.MustRegister(cacheHits)
	prometheus.MustRegister(cacheMisses)
}

// Cache memoizes composed per-second rates in Redis for a short TTL to absorb
// the per-second balance polling. It is strictly an accelerator: the client
// may be nil or Redis may be down, and every path then degrades to a miss.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

func key(accountID int64) string {
	return "rate:acct:" + strconv.FormatInt(accountID, 10)
}

// Get returns the cached rate and whether it was present
func (c *Cache) Get(ctx context.Context, accountID int64) (decimal.Decimal, bool) {
	if c == nil || c.client == nil {
		cacheMisses.Inc()
		return decimal.Zero, false
	}
	s, err := c.client.Get(ctx, key(accountID)).Result()
	if err != nil {
		cacheMisses.Inc()
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		cacheMisses.Inc()
		return decimal.Zero, false
	}
	cacheHits.Inc()
	return d, true
}

// Set stores a freshly composed rate; errors are ignored (cache is loss-tolerant)
func (c *Cache) Set(ctx context.Context, accountID int64, rate decimal.Decimal) {
	if c == nil || c.client == nil {
		return
	}
	_ = c.client.Set(ctx, key(accountID), rate.String(), c.ttl).Err()
}

// Invalidate drops the cached rate. Callers invalidate before reporting a
// mutation as successful, never after.
func (c *Cache) Invalidate(ctx context.Context, accountID int64) {
	if c == nil || c.client == nil {
		return
	}
	_ = c.client.Del(ctx, key(accountID)).Err()
}

package redis

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/ciangeneway-dot/Khumalo/internal/logger"
)

// SummaryCache is a read-through lookup in front of the durable AISummary
// rows, keyed by content hash. It only ever shortcuts the remote
// summarization call; the store rows remain the source of truth, so a cold
// or absent cache changes nothing but latency.
type SummaryCache interface {
	Get(ctx context.Context, hash string) (string, bool)
	Set(ctx context.Context, hash string, body string)
	Close() error
}

type summaryCache struct {
	log *logger.Logger
	rdb *goredis.Client
	ttl time.Duration
}

func NewSummaryCache(log *logger.Logger) (SummaryCache, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}

	ttl := 24 * time.Hour
	if v := strings.TrimSpace(os.Getenv("SUMMARY_CACHE_TTL")); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil && parsed > 0 {
			ttl = parsed
		}
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &summaryCache{
		log: log.With("service", "RedisSummaryCache"),
		rdb: rdb,
		ttl: ttl,
	}, nil
}

func cacheKey(hash string) string {
	return "summary:" + hash
}

func (c *summaryCache) Get(ctx context.Context, hash string) (string, bool) {
	val, err := c.rdb.Get(ctx, cacheKey(hash)).Result()
	if err == goredis.Nil {
		return "", false
	}
	if err != nil {
		c.log.Warn("Summary cache read failed", "error", err)
		return "", false
	}
	return val, true
}

func (c *summaryCache) Set(ctx context.Context, hash string, body string) {
	if err := c.rdb.Set(ctx, cacheKey(hash), body, c.ttl).Err(); err != nil {
		c.log.Warn("Summary cache write failed", "error", err)
	}
}

func (c *summaryCache) Close() error {
	return c.rdb.Close()
}

// Package rediscache keeps coverage results in Redis so they are shared by
// every server instance and survive restarts.
package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "geocover:coverage:"

// Options configures the connection. Addr is host:port.
type Options struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// CoverageCache stores coverage sets as JSON string values with a TTL.
type CoverageCache struct {
	rc  *redis.Client
	ttl time.Duration
}

// Open creates a client for opts. It does not dial; use Ping to check the
// connection.
func Open(opts Options) *CoverageCache {
	rc := redis.NewClient(&redis.Options{Addr: opts.Addr, Password: opts.Password, DB: opts.DB})
	return New(rc, opts.TTL)
}

// Addr joins a host and port the way the REDIS_HOST/REDIS_PORT settings are
// given.
func Addr(host string, port int) string {
	if host == "" {
		host = "127.0.0.1"
	}
	if port <= 0 {
		port = 6379
	}
	return host + ":" + strconv.Itoa(port)
}

// New wraps an existing client. A non-positive ttl falls back to one hour.
func New(rc *redis.Client, ttl time.Duration) *CoverageCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &CoverageCache{rc: rc, ttl: ttl}
}

// Key returns the Redis key for a region/config digest.
func Key(digest string) string {
	return keyPrefix + digest
}

func (c *CoverageCache) Get(ctx context.Context, key string) ([]string, bool, error) {
	s, err := c.rc.Get(ctx, Key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	var codes []string
	if err := json.Unmarshal([]byte(s), &codes); err != nil {
		return nil, false, fmt.Errorf("decode cached coverage: %w", err)
	}
	return codes, true, nil
}

func (c *CoverageCache) Set(ctx context.Context, key string, codes []string) error {
	if codes == nil {
		codes = []string{}
	}
	b, err := json.Marshal(codes)
	if err != nil {
		return err
	}
	if err := c.rc.Set(ctx, Key(key), string(b), c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Ping checks that the server is reachable.
func (c *CoverageCache) Ping(ctx context.Context) error {
	return c.rc.Ping(ctx).Err()
}

// Close releases the client's connections.
func (c *CoverageCache) Close() error {
	return c.rc.Close()
}

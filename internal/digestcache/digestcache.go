// Package digestcache remembers the digests of recently imported flow
// files in redis so repeated imports are detected without a database
// round trip. The cache is advisory; the flow_files table stays the
// source of truth and a nil *Cache disables caching entirely.
package digestcache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix = "meterflow:seen:"

	defaultDialTimeout  = 5 * time.Second
	defaultReadTimeout  = 3 * time.Second
	defaultWriteTimeout = 3 * time.Second
)

// Cache is a redis-backed set of file digests with a retention period.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// New connects to redis and validates the connection with a ping.
func New(addr, password string, ttl time.Duration) (*Cache, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, errors.New("digestcache: empty redis address")
	}

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DialTimeout:  defaultDialTimeout,
		ReadTimeout:  defaultReadTimeout,
		WriteTimeout: defaultWriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), defaultDialTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("digestcache: ping redis: %w", err)
	}

	return &Cache{client: client, ttl: ttl}, nil
}

func key(digest string) string {
	return keyPrefix + digest
}

// Seen reports whether the digest was imported within the retention
// period, along with the recorded import time.
func (c *Cache) Seen(ctx context.Context, digest string) (bool, time.Time, error) {
	if c == nil {
		return false, time.Time{}, nil
	}

	value, err := c.client.Get(ctx, key(digest)).Result()
	if errors.Is(err, redis.Nil) {
		return false, time.Time{}, nil
	}
	if err != nil {
		return false, time.Time{}, fmt.Errorf("digestcache: get %s: %w", digest, err)
	}

	importedAt, err := time.Parse(time.RFC3339, value)
	if err != nil {
		// Unreadable entries are treated as misses so the database
		// check still runs.
		return false, time.Time{}, nil
	}
	return true, importedAt, nil
}

// Remember records the digest as imported at the given time.
func (c *Cache) Remember(ctx context.Context, digest string, importedAt time.Time) error {
	if c == nil {
		return nil
	}
	value := importedAt.UTC().Format(time.RFC3339)
	if err := c.client.Set(ctx, key(digest), value, c.ttl).Err(); err != nil {
		return fmt.Errorf("digestcache: set %s: %w", digest, err)
	}
	return nil
}

// Close releases the redis connection.
func (c *Cache) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

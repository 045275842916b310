package cache

import (
	"context"
	"crypto/tls"
	"fmt"
	"sync"
	"time"

	"github.com/LeadFlux/AbuseGate/pkg/config"
	"github.com/go-redis/redis/v8"
)

// Key patterns for everything the engine keeps in the shared store. The store
// is the single source of truth for counts, memberships and challenge state;
// in-process TTL maps only front read-mostly records (geo lookups, scores).
const (
	RateLimitKeyPattern    = "ratelimit:%s"
	BehaviorEventsPattern  = "behavior:events:%s"
	GeoLocationPattern     = "geo:location:%s"
	GeoRulesKey            = "geo:rules"
	SuspiciousIPGlobalKey  = "suspicious:ips"
	SuspiciousIPCountryKey = "suspicious:ips:%s"
	SuspiciousIPEntryKey   = "suspicious:ip:%s"
	ChallengeKeyPattern    = "captcha:challenge:%s"
	RotationIPKeyPattern   = "bypass:ips:%s"
	RotationUAKeyPattern   = "bypass:uas:%s"

	GeoLocationTTLName   = "geo_location"
	GeoRulesTTLName      = "geo_rules"
	BehaviorScoreTTLName = "behavior_score"
)

// Cache wraps the shared Redis store with a small in-process layer of named
// TTL maps.
type Cache struct {
	client  *redis.Client
	ttlMaps sync.Map
}

func NewCache(cfg config.RedisConfig) *Cache {
	options := &redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	}
	if cfg.TLS {
		options.TLSConfig = &tls.Config{
			MinVersion: tls.VersionTLS12,
		}
	}
	return NewCacheWithClient(redis.NewClient(options))
}

// NewCacheWithClient wires an existing client, used by tests with redismock.
func NewCacheWithClient(client *redis.Client) *Cache {
	return &Cache{client: client}
}

func (c *Cache) Get(ctx context.Context, key string) (string, error) {
	return c.client.Get(ctx, key).Result()
}

func (c *Cache) Set(ctx context.Context, key string, value string, expiration time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return c.client.Set(ctx, key, value, expiration).Err()
}

func (c *Cache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}

// Client exposes the raw client for components that need sorted-set and set
// operations beyond plain get/set.
func (c *Cache) Client() *redis.Client {
	return c.client
}

func (c *Cache) CreateTTLMap(name string, ttl time.Duration) *TTLMap {
	ttlMap := NewTTLMap(ttl)
	c.ttlMaps.Store(name, ttlMap)
	return ttlMap
}

func (c *Cache) GetTTLMap(name string) *TTLMap {
	if value, ok := c.ttlMaps.Load(name); ok {
		if m, ok := value.(*TTLMap); ok {
			return m
		}
	}
	return nil
}

func (c *Cache) Close() error {
	return c.client.Close()
}

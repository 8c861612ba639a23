package tool

import (
	"context"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/morgusai/orchestron/serialize"
)

const (
	defaultCacheMaxSize = 256
	defaultCacheTTL     = 5 * time.Minute
)

// CacheConfig configures the tool result cache behaviour.
type CacheConfig struct {
	// MaxSize is the maximum number of entries in the LRU cache.
	MaxSize int
	// TTL is how long a cached result remains valid.
	TTL time.Duration
	// ExcludeTools lists tool names that should never be cached.
	ExcludeTools []string
}

// DefaultCacheConfig returns sensible caching defaults. Side-effecting
// tools are excluded: replaying a deploy or a notification from cache
// would silently skip the effect.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		MaxSize: defaultCacheMaxSize,
		TTL:     defaultCacheTTL,
		ExcludeTools: []string{
			NameExecuteCode,
			NameDeployWebsite,
			NameNotifyUser,
			NameAskUser,
		},
	}
}

type cacheEntry struct {
	result   string
	storedAt time.Time
}

// ResultCache wraps a Registry with an LRU result cache keyed by the
// canonical fingerprint of (tool name, arguments), so argument maps that
// differ only in key order share an entry. Error results are never cached.
type ResultCache struct {
	registry *Registry
	cache    *lru.Cache[string, cacheEntry]
	ttl      time.Duration
	exclude  map[string]bool
}

// NewResultCache wraps registry with a result cache. Zero config values
// fall back to DefaultCacheConfig.
func NewResultCache(registry *Registry, cfg CacheConfig) *ResultCache {
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = defaultCacheMaxSize
	}
	if cfg.TTL <= 0 {
		cfg.TTL = defaultCacheTTL
	}
	// Size is positive, so construction cannot fail.
	cache, _ := lru.New[string, cacheEntry](cfg.MaxSize)

	exclude := make(map[string]bool, len(cfg.ExcludeTools))
	for _, name := range cfg.ExcludeTools {
		exclude[name] = true
	}

	return &ResultCache{
		registry: registry,
		cache:    cache,
		ttl:      cfg.TTL,
		exclude:  exclude,
	}
}

// Execute returns a cached result when a fresh one exists, otherwise
// delegates to the registry and caches the outcome.
func (c *ResultCache) Execute(ctx context.Context, name string, args map[string]any) (string, error) {
	if c.exclude[name] {
		return c.registry.Execute(ctx, name, args)
	}

	key, err := cacheKey(name, args)
	if err != nil {
		// Unfingerprintable arguments: execute uncached.
		return c.registry.Execute(ctx, name, args)
	}

	if entry, ok := c.cache.Get(key); ok {
		if time.Since(entry.storedAt) < c.ttl {
			return entry.result, nil
		}
		// Expired, evict so the LRU bookkeeping stays clean.
		c.cache.Remove(key)
	}

	result, err := c.registry.Execute(ctx, name, args)
	if err != nil {
		return result, err
	}

	c.cache.Add(key, cacheEntry{result: result, storedAt: time.Now()})
	return result, nil
}

// cacheKey produces a deterministic key from tool name plus the canonical
// fingerprint of the arguments.
func cacheKey(name string, args map[string]any) (string, error) {
	if len(args) == 0 {
		return name + ":{}", nil
	}
	val, err := serialize.FromGo(args)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:%s", name, serialize.Fingerprint(val)), nil
}

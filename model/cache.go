package model

import (
	"context"
	"encoding/json"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/morgusai/orchestron/serialize"
)

const defaultResponseCacheSize = 128

// CachingModel wraps a Model with an LRU response cache keyed by the
// canonical fingerprint of the full request, so semantically identical
// requests (same messages, tools, parameters) skip the provider call.
// Intended for replay-heavy workloads and tests; conversations with
// sampling temperature above zero rarely want this.
type CachingModel struct {
	inner  Model
	hasher *serialize.Hasher
	cache  *lru.Cache[string, *Response]
}

// NewCachingModel wraps inner with a response cache of the given size
// (defaultResponseCacheSize when size <= 0).
func NewCachingModel(inner Model, size int) *CachingModel {
	if size <= 0 {
		size = defaultResponseCacheSize
	}
	// Size is positive, so construction cannot fail.
	cache, _ := lru.New[string, *Response](size)
	return &CachingModel{
		inner:  inner,
		hasher: serialize.NewHasher(size),
		cache:  cache,
	}
}

// Generate returns a cached response when the request fingerprint matches
// a previous call, otherwise delegates and caches the result.
func (m *CachingModel) Generate(ctx context.Context, req Request) (*Response, error) {
	key, err := m.requestKey(req)
	if err != nil {
		// Unfingerprintable request: pass through uncached.
		return m.inner.Generate(ctx, req)
	}

	if resp, ok := m.cache.Get(key); ok {
		return resp, nil
	}

	resp, err := m.inner.Generate(ctx, req)
	if err != nil {
		return nil, err
	}

	m.cache.Add(key, resp)
	return resp, nil
}

// Info implements Model.
func (m *CachingModel) Info() Info { return m.inner.Info() }

func (m *CachingModel) requestKey(req Request) (string, error) {
	raw, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}
	return m.hasher.FingerprintJSON(string(raw))
}

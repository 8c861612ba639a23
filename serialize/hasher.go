package serialize

import (
	"encoding/json"
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultHasherCacheSize = 512

// Hasher fingerprints raw JSON documents, memoizing results so that repeated
// payloads (identical tool arguments, replayed requests) skip the
// parse-normalize-hash pipeline. It is not safe for concurrent use; construct
// one per session and pass it by reference.
type Hasher struct {
	cache *lru.Cache[string, string]
}

// NewHasher constructs a Hasher with an LRU memo of the given size
// (defaultHasherCacheSize when size <= 0).
func NewHasher(size int) *Hasher {
	if size <= 0 {
		size = defaultHasherCacheSize
	}
	// Size is positive, so construction cannot fail.
	cache, _ := lru.New[string, string](size)
	return &Hasher{cache: cache}
}

// FingerprintJSON parses raw as JSON, converts it to the canonical value
// model and returns its Fingerprint. Documents that differ only in key order
// or whitespace produce the same fingerprint.
func (h *Hasher) FingerprintJSON(raw string) (string, error) {
	if fp, ok := h.cache.Get(raw); ok {
		return fp, nil
	}

	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()

	var decoded any
	if err := dec.Decode(&decoded); err != nil {
		return "", fmt.Errorf("invalid JSON document: %w", err)
	}

	val, err := FromGo(decoded)
	if err != nil {
		return "", err
	}

	fp := Fingerprint(val)
	h.cache.Add(raw, fp)

	return fp, nil
}

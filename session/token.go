package session

import (
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/morgusai/orchestron/core"
)

// TokenCounter counts tokens with the cl100k_base encoding, falling back
// to a character-based heuristic when the encoding cannot be loaded (for
// example in offline environments). Construct one per engine and share it;
// the encoding itself is safe for concurrent use.
type TokenCounter struct {
	once     sync.Once
	encoding *tiktoken.Tiktoken
}

// NewTokenCounter creates a TokenCounter. The encoding is loaded lazily on
// first use so construction never fails.
func NewTokenCounter() *TokenCounter {
	return &TokenCounter{}
}

func (tc *TokenCounter) init() {
	tc.once.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err == nil {
			tc.encoding = enc
		}
	})
}

// Count returns the token count of text.
func (tc *TokenCounter) Count(text string) int {
	tc.init()
	if tc.encoding != nil {
		return len(tc.encoding.Encode(text, nil, nil))
	}
	return EstimateFast(text)
}

// CountMessages returns the total token count across messages, with a
// small fixed overhead per message for role framing.
func (tc *TokenCounter) CountMessages(msgs []core.Message) int {
	const perMessageOverhead = 4
	total := 0
	for _, m := range msgs {
		total += tc.Count(m.Content) + perMessageOverhead
	}
	return total
}

// EstimateFast returns a heuristic token estimate, max(runes/4, words).
// Cheap enough for tight loops over large text.
func EstimateFast(text string) int {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return 0
	}
	estimate := len([]rune(trimmed)) / 4
	if words := len(strings.Fields(trimmed)); estimate < words {
		estimate = words
	}
	if estimate == 0 {
		estimate = 1
	}
	return estimate
}

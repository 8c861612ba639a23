package session

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/morgusai/orchestron/core"
)

// DefaultKeepRecent is the number of trailing messages Compress retains
// verbatim when the caller passes a non-positive keepRecent.
const DefaultKeepRecent = 5

// hintMaxItems caps the URLs and paths listed in a restoration hint;
// anything beyond the cap collapses into a "+N more" suffix.
const hintMaxItems = 5

var (
	urlPattern = regexp.MustCompile(`https?://[^\s"'<>)\]]+`)
	// Absolute paths with at least two segments; a leading boundary keeps
	// URL path components and mid-word slashes out.
	pathPattern = regexp.MustCompile("(?:^|[\\s\"'`(\\[=:,])(/[\\w.@+-]+(?:/[\\w.@+-]+)+)")
)

// Compressed is the receipt for a compression pass: a human-readable
// summary plus the references recovered from the discarded messages. The
// zero value means nothing was compressed.
type Compressed struct {
	Summary       string
	URLs          []string // De-duplicated, first-seen order
	Paths         []string // De-duplicated, first-seen order
	MessageCount  int      // Messages discarded
	ToolCallCount int      // Tool-result messages among the discarded
}

// Empty reports whether no messages were compressed.
func (c Compressed) Empty() bool { return c.MessageCount == 0 }

// Merge folds a later compression pass into this one, preserving
// first-seen order across passes. Used when a conversation is compressed
// more than once.
func (c Compressed) Merge(next Compressed) Compressed {
	if next.Empty() {
		return c
	}
	if c.Empty() {
		return next
	}

	merged := Compressed{
		MessageCount:  c.MessageCount + next.MessageCount,
		ToolCallCount: c.ToolCallCount + next.ToolCallCount,
	}
	merged.URLs = mergeUnique(c.URLs, next.URLs)
	merged.Paths = mergeUnique(c.Paths, next.Paths)
	merged.Summary = fmt.Sprintf("%d messages, %d tool calls discarded", merged.MessageCount, merged.ToolCallCount)
	return merged
}

// Compress splits messages into a discarded prefix and a retained tail of
// keepRecent messages. The prefix is scanned for URLs and absolute paths
// so they can be surfaced in a restoration hint; the messages themselves
// are gone from the prompt. When len(messages) <= keepRecent nothing is
// compressed and all messages are returned as recent.
func Compress(messages []core.Message, keepRecent int) (Compressed, []core.Message) {
	if keepRecent <= 0 {
		keepRecent = DefaultKeepRecent
	}
	if len(messages) <= keepRecent {
		recent := make([]core.Message, len(messages))
		copy(recent, messages)
		return Compressed{}, recent
	}

	cut := len(messages) - keepRecent
	old := messages[:cut]
	recent := make([]core.Message, keepRecent)
	copy(recent, messages[cut:])

	c := Compressed{MessageCount: len(old)}

	seenURL := make(map[string]struct{})
	seenPath := make(map[string]struct{})
	for _, m := range old {
		if m.IsToolMessage() {
			c.ToolCallCount++
		}
		for _, u := range urlPattern.FindAllString(m.Content, -1) {
			u = strings.TrimRight(u, ".,;")
			if _, ok := seenURL[u]; ok {
				continue
			}
			seenURL[u] = struct{}{}
			c.URLs = append(c.URLs, u)
		}
		for _, groups := range pathPattern.FindAllStringSubmatch(m.Content, -1) {
			p := groups[1]
			if _, ok := seenPath[p]; ok {
				continue
			}
			seenPath[p] = struct{}{}
			c.Paths = append(c.Paths, p)
		}
	}

	c.Summary = fmt.Sprintf("%d messages, %d tool calls discarded", c.MessageCount, c.ToolCallCount)
	return c, recent
}

// RestorationHint renders a compression receipt as a prompt block telling
// the model what was dropped and how to recover it. Returns "" when
// nothing was compressed; callers must omit empty hints rather than
// injecting blank blocks.
func RestorationHint(c Compressed) string {
	if c.Empty() {
		return ""
	}

	var b strings.Builder
	b.WriteString("[Earlier context was compressed: ")
	b.WriteString(c.Summary)
	b.WriteString(".]")

	if len(c.URLs) > 0 {
		b.WriteString("\nURLs seen earlier: ")
		b.WriteString(joinCapped(c.URLs, hintMaxItems))
	}
	if len(c.Paths) > 0 {
		b.WriteString("\nFiles seen earlier: ")
		b.WriteString(joinCapped(c.Paths, hintMaxItems))
	}
	b.WriteString("\nAny of these can be re-fetched or re-read if needed.")
	return b.String()
}

func joinCapped(items []string, max int) string {
	if len(items) <= max {
		return strings.Join(items, ", ")
	}
	return strings.Join(items[:max], ", ") + fmt.Sprintf(" (+%d more)", len(items)-max)
}

func mergeUnique(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, s := range a {
		if _, ok := seen[s]; !ok {
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	for _, s := range b {
		if _, ok := seen[s]; !ok {
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	return out
}

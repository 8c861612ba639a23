package agent

import "strings"

// CompletionDetector decides whether a free-form model response is a
// final answer or an intermediate remark the loop should push past.
// Swappable so the phrase heuristic can later be replaced by a structured
// done signal (for example a dedicated terminal tool call).
type CompletionDetector interface {
	IsComplete(content string) bool
}

// PhraseDetector matches known completion phrases, case-insensitively,
// anywhere in the response. It is a best-effort heuristic: it can both
// under- and over-trigger, and callers should treat it accordingly.
type PhraseDetector struct {
	phrases []string
}

// NewPhraseDetector creates a PhraseDetector. With no phrases it uses the
// built-in set.
func NewPhraseDetector(phrases ...string) *PhraseDetector {
	if len(phrases) == 0 {
		phrases = []string{
			"here is",
			"based on",
			"the answer is",
			"in summary",
			"to summarize",
			"completed successfully",
			"phase complete",
			"moving to next phase",
			"ready to proceed",
			"finished with",
		}
	}
	lowered := make([]string, len(phrases))
	for i, p := range phrases {
		lowered[i] = strings.ToLower(p)
	}
	return &PhraseDetector{phrases: lowered}
}

// IsComplete implements CompletionDetector.
func (d *PhraseDetector) IsComplete(content string) bool {
	lowered := strings.ToLower(content)
	for _, p := range d.phrases {
		if strings.Contains(lowered, p) {
			return true
		}
	}
	return false
}

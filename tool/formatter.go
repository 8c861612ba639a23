package tool

import "fmt"

// ResultFormatter renders a tool result as the message content fed back to
// the model. callIndex is the zero-based count of tool calls so far in the
// conversation, letting implementations vary phrasing deterministically.
type ResultFormatter interface {
	Format(toolName, result string, callIndex int) string
}

// PlainFormatter returns results unchanged. The default for tests and for
// callers that do their own framing.
type PlainFormatter struct{}

func (PlainFormatter) Format(_, result string, _ int) string { return result }

// RotatingFormatter cycles through phrasing templates so consecutive tool
// results do not all share the same frame, which models tend to latch onto
// as a few-shot pattern. Selection is callIndex modulo the template count,
// so output is fully deterministic.
type RotatingFormatter struct {
	templates []string // Each takes (toolName, result)
}

// NewRotatingFormatter creates a RotatingFormatter with the given
// templates; with none it uses the built-in set.
func NewRotatingFormatter(templates ...string) *RotatingFormatter {
	if len(templates) == 0 {
		templates = []string{
			"Result of %s:\n%s",
			"%s returned:\n%s",
			"Output from %s:\n%s",
			"The %s call produced:\n%s",
		}
	}
	return &RotatingFormatter{templates: templates}
}

func (f *RotatingFormatter) Format(toolName, result string, callIndex int) string {
	tmpl := f.templates[callIndex%len(f.templates)]
	return fmt.Sprintf(tmpl, toolName, result)
}

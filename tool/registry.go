package tool

import (
	"context"
	"fmt"
	"time"

	"github.com/morgusai/orchestron/logging"
)

// Registry holds the tools available to a conversation, preserving
// registration order for stable schema lists. Registration happens during
// setup; Execute may then be called from the orchestrator loop.
type Registry struct {
	order  []string
	byName map[string]Tool
	logger logging.Logger
}

// NewRegistry creates an empty Registry. A nil logger disables logging.
func NewRegistry(logger logging.Logger) *Registry {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &Registry{
		byName: make(map[string]Tool),
		logger: logger,
	}
}

// Register adds a tool. Registering an empty name or a duplicate fails.
func (r *Registry) Register(t Tool) error {
	name := t.Name()
	if name == "" {
		return fmt.Errorf("tool has empty name")
	}
	if _, exists := r.byName[name]; exists {
		return fmt.Errorf("tool %q already registered", name)
	}
	r.byName[name] = t
	r.order = append(r.order, name)
	return nil
}

// MustRegister registers a tool and panics on failure. For setup code
// where a registration error is a programming bug.
func (r *Registry) MustRegister(t Tool) {
	if err := r.Register(t); err != nil {
		panic(err)
	}
}

// Get returns the tool with the given name.
func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.byName[name]
	return t, ok
}

// Names returns all registered tool names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Len returns the number of registered tools.
func (r *Registry) Len() int { return len(r.order) }

// Execute looks up and invokes a tool. Unknown names and execution
// failures come back as *ToolError so the orchestrator can surface them
// to the model as tool-result content instead of aborting the loop.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) (string, error) {
	t, ok := r.byName[name]
	if !ok {
		r.logger.Warn("tool.unknown", "tool", name)
		return "", NewToolError(name, "tool is not registered", "UNKNOWN_TOOL")
	}

	start := time.Now()
	r.logger.Debug("tool.call.start", "tool", name)

	result, err := t.Call(ctx, args)
	if err != nil {
		r.logger.Error("tool.call.error", "tool", name, "error", err.Error())
		return "", err
	}

	r.logger.Info("tool.call.success", "tool", name, "duration_ms", time.Since(start).Milliseconds())
	return result, nil
}

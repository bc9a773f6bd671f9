package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/internal/tracing"
	"github.com/hupe1980/taskmesh/logging"
	"github.com/hupe1980/taskmesh/model"
)

// RegistryOptions configures a Registry.
type RegistryOptions struct {
	Logger logging.Logger
}

// Registry maps tool names to tools. It is built once and never changes
// afterwards, so it is safe for concurrent use.
type Registry struct {
	tools  map[string]Tool
	order  []string
	logger logging.Logger
}

// NewRegistry builds a registry from tools. Nil tools, empty names and
// duplicate names are configuration errors.
func NewRegistry(tools []Tool, optFns ...func(o *RegistryOptions)) (*Registry, error) {
	opts := RegistryOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}

	r := &Registry{
		tools:  make(map[string]Tool, len(tools)),
		order:  make([]string, 0, len(tools)),
		logger: logging.OrNoOp(opts.Logger),
	}

	for i, t := range tools {
		if t == nil {
			return nil, fmt.Errorf("%w: tool at index %d is nil", core.ErrMissingArgument, i)
		}

		name := t.Name()
		if strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("%w: tool at index %d has no name", core.ErrMissingArgument, i)
		}

		if _, exists := r.tools[name]; exists {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateTool, name)
		}

		r.tools[name] = t
		r.order = append(r.order, name)
	}

	return r, nil
}

// Len returns the number of registered tools.
func (r *Registry) Len() int { return len(r.order) }

// Names returns the tool names in registration order.
func (r *Registry) Names() []string { return append([]string(nil), r.order...) }

// Get returns the tool registered under name.
func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Definitions returns the tool declarations sent to the model, in
// registration order.
func (r *Registry) Definitions() []model.ToolDefinition {
	if len(r.order) == 0 {
		return nil
	}

	defs := make([]model.ToolDefinition, len(r.order))
	for i, name := range r.order {
		t := r.tools[name]
		defs[i] = model.ToolDefinition{
			Type: "function",
			Function: model.FunctionDefinition{
				Name:        t.Name(),
				Description: t.Description(),
				Parameters:  t.Parameters(),
			},
		}
	}

	return defs
}

// Dispatch runs the tool named by call and returns its result coerced to a
// string. Unknown tools fail with ErrToolNotFound; tool errors are returned
// unchanged. Calls without an ID get a synthetic one for tracing and logs.
func (r *Registry) Dispatch(ctx context.Context, call model.FunctionCall) (string, error) {
	id := call.ID
	if id == "" {
		id = "call_" + uuid.NewString()
	}

	t, ok := r.tools[call.Name]
	if !ok {
		r.logger.Error("tool.call.not_found", "tool", call.Name, "fc_id", id)
		return "", fmt.Errorf("%w: %q", ErrToolNotFound, call.Name)
	}

	ctx, span := tracing.StartToolCallSpan(ctx, id, call.Name)
	start := time.Now()

	r.logger.Debug("tool.call.start", "tool", call.Name, "fc_id", id)

	args := call.Args
	if args == nil {
		args = map[string]any{}
	}

	result, err := t.Call(ctx, args)
	tracing.End(span, err)

	if err != nil {
		r.logger.Error("tool.call.error", "tool", call.Name, "fc_id", id, "error", err)
		return "", err
	}

	r.logger.Info("tool.call.success", "tool", call.Name, "fc_id", id, "duration_ms", time.Since(start).Milliseconds())

	return Stringify(result), nil
}

// Stringify converts a tool result into the text sent back to the model.
// Strings pass through, byte slices are converted, nil becomes "" and
// everything else is JSON encoded (falling back to fmt formatting).
func Stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []byte:
		return string(val)
	case fmt.Stringer:
		return val.String()
	}

	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}

	return string(b)
}

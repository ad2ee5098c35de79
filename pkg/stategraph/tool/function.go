package tool

import "context"

// Func adapts a plain Go function into a Tool.
//
// Func has no internal mutable state after construction and is safe for
// concurrent use by multiple goroutines.
//
// Example:
//
//	sum := tool.NewFunc(
//	    "calculate_sum",
//	    "Calculate the sum of two numbers",
//	    func(ctx context.Context, args map[string]any) (any, error) {
//	        a, _ := args["a"].(float64)
//	        b, _ := args["b"].(float64)
//	        return a + b, nil
//	    },
//	)
type Func struct {
	name        string
	description string
	fn          func(ctx context.Context, args map[string]any) (any, error)
}

// NewFunc constructs a Func tool from a name, description, and implementation.
// Panics if name is empty or fn is nil; tools are registered at startup and
// a bad registration is a programming error.
func NewFunc(name, description string, fn func(ctx context.Context, args map[string]any) (any, error)) *Func {
	if name == "" {
		panic("tool: name cannot be empty")
	}
	if fn == nil {
		panic("tool: function cannot be nil")
	}
	return &Func{
		name:        name,
		description: description,
		fn:          fn,
	}
}

// Name returns the unique tool name used in call requests and routing.
func (t *Func) Name() string { return t.name }

// Description returns the human-readable tool description.
func (t *Func) Description() string { return t.description }

// Execute invokes the wrapped function.
func (t *Func) Execute(ctx context.Context, args map[string]any) (any, error) {
	return t.fn(ctx, args)
}

package expr

import (
	"fmt"
	"strings"
)

// BinaryOp compares two values and returns a boolean result.
type BinaryOp func(left, right any) bool

// Evaluator evaluates boolean routing expressions against a state snapshot.
// Expressions reference state keys by name:
//
//	status == 'approved' and retries < 3
//
// The zero Evaluator supports the built-in operators; custom operators can
// be registered at construction.
type Evaluator struct {
	customOps map[string]BinaryOp
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithOperator registers a custom binary operator. The name must appear
// space-delimited in expressions ("score near 0.5") and should not shadow
// a built-in operator.
func WithOperator(name string, fn BinaryOp) Option {
	return func(e *Evaluator) {
		if e.customOps == nil {
			e.customOps = make(map[string]BinaryOp)
		}
		e.customOps[name] = fn
	}
}

// New creates an Evaluator with the given options.
func New(opts ...Option) *Evaluator {
	e := &Evaluator{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Eval evaluates an expression using a default Evaluator with no custom
// operators.
func Eval(expression string, vars map[string]any) (bool, error) {
	return New().Evaluate(expression, vars)
}

// Evaluate evaluates a boolean expression against the provided variables.
// An empty expression is false.
//
// Supported syntax: ==, !=, <, >, <=, >=, contains, and, or, not, !.
// Bare values are tested for truthiness.
func (e *Evaluator) Evaluate(expression string, vars map[string]any) (bool, error) {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return false, nil
	}

	if inner, ok := strings.CutPrefix(expression, "not "); ok {
		result, err := e.Evaluate(inner, vars)
		return !result, err
	}
	if inner, ok := strings.CutPrefix(expression, "!"); ok {
		result, err := e.Evaluate(inner, vars)
		return !result, err
	}

	// and/or bind looser than comparisons; split on the first occurrence
	// so "a == 1 and b == 2 and c" nests right-associatively.
	if left, right, ok := strings.Cut(expression, " and "); ok {
		return e.combine(left, right, vars, func(l, r bool) bool { return l && r })
	}
	if left, right, ok := strings.Cut(expression, " or "); ok {
		return e.combine(left, right, vars, func(l, r bool) bool { return l || r })
	}

	// Longer operators first so ">=" isn't consumed as ">".
	for _, op := range builtinOps {
		if left, right, ok := strings.Cut(expression, op.token); ok {
			l := Resolve(left, vars)
			r := Resolve(right, vars)
			return op.compare(l, r), nil
		}
	}

	for name, fn := range e.customOps {
		if left, right, ok := strings.Cut(expression, " "+name+" "); ok {
			return fn(Resolve(left, vars), Resolve(right, vars)), nil
		}
	}

	return IsTruthy(Resolve(expression, vars)), nil
}

func (e *Evaluator) combine(left, right string, vars map[string]any, merge func(l, r bool) bool) (bool, error) {
	l, err := e.Evaluate(left, vars)
	if err != nil {
		return false, err
	}
	r, err := e.Evaluate(right, vars)
	if err != nil {
		return false, err
	}
	return merge(l, r), nil
}

var builtinOps = []struct {
	token   string
	compare BinaryOp
}{
	{"==", func(l, r any) bool { return fmt.Sprintf("%v", l) == fmt.Sprintf("%v", r) }},
	{"!=", func(l, r any) bool { return fmt.Sprintf("%v", l) != fmt.Sprintf("%v", r) }},
	{">=", func(l, r any) bool { return ToFloat64(l) >= ToFloat64(r) }},
	{"<=", func(l, r any) bool { return ToFloat64(l) <= ToFloat64(r) }},
	{">", func(l, r any) bool { return ToFloat64(l) > ToFloat64(r) }},
	{"<", func(l, r any) bool { return ToFloat64(l) < ToFloat64(r) }},
	{" contains ", func(l, r any) bool {
		return strings.Contains(fmt.Sprintf("%v", l), fmt.Sprintf("%v", r))
	}},
}

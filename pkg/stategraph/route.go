package stategraph

import (
	"github.com/randalmurphal/stategraph/pkg/stategraph/expr"
)

// Route adapts a single-target decision function into a RouterFunc, for
// conditional edges that never fan out.
func Route(fn func(ctx Context, state State) string) RouterFunc {
	return func(ctx Context, state State) []string {
		return []string{fn(ctx, state)}
	}
}

// When returns a RouterFunc that evaluates a boolean expression against the
// state and routes to then on true, otherwise on false. Both targets must
// be declared on the conditional edge.
//
//	g.AddConditionalEdge("check",
//	    stategraph.When("score >= 0.8", "publish", "revise"),
//	    "publish", "revise")
//
// An expression that fails to evaluate routes to otherwise and logs the
// error.
func When(expression, then, otherwise string) RouterFunc {
	return func(ctx Context, state State) []string {
		ok, err := expr.Eval(expression, state.Values())
		if err != nil {
			ctx.Logger().Error("route expression failed",
				"expression", expression,
				"error", err)
			return []string{otherwise}
		}
		if ok {
			return []string{then}
		}
		return []string{otherwise}
	}
}

// FanOut returns a RouterFunc that always routes to every given target.
// Equivalent to multiple static edges, but usable where a conditional edge
// is already declared.
func FanOut(targets ...string) RouterFunc {
	return func(Context, State) []string {
		return targets
	}
}

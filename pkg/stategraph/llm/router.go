package llm

import (
	"github.com/randalmurphal/stategraph/pkg/stategraph"
)

// Router adapts a Decider into a stategraph.RouterFunc over the given
// targets. The same target list must be declared on the conditional edge:
//
//	g.AddConditionalEdge("triage", llm.Router(decider, "billing", "support"),
//	    "billing", "support")
//
// A decision failure or an answer outside targets returns an empty route,
// which the executor reports as a routing error for the source node.
func Router(d Decider, targets ...string) stategraph.RouterFunc {
	return func(ctx stategraph.Context, state stategraph.State) []string {
		target, err := d.Decide(ctx, state.Values(), targets)
		if err != nil {
			if logger := ctx.Logger(); logger != nil {
				logger.Error("llm route decision failed",
					"node", ctx.NodeID(),
					"error", err)
			}
			return nil
		}
		return []string{target}
	}
}

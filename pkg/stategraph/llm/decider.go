// Package llm routes graph execution with a language model. A Decider picks
// the next node from a set of declared targets given the current state; the
// Router adapter exposes that decision as a stategraph.RouterFunc.
package llm

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Decider selects one target from targets based on the state snapshot.
// The returned string must be one of targets; anything else is a routing
// error surfaced by the graph executor.
type Decider interface {
	Decide(ctx context.Context, state map[string]any, targets []string) (string, error)
}

// DeciderFunc adapts a function to the Decider interface.
type DeciderFunc func(ctx context.Context, state map[string]any, targets []string) (string, error)

// Decide calls the wrapped function.
func (f DeciderFunc) Decide(ctx context.Context, state map[string]any, targets []string) (string, error) {
	return f(ctx, state, targets)
}

// buildPrompt renders the state snapshot and target list as the user turn
// of a decision request. Keys are sorted so the same state always produces
// the same prompt.
func buildPrompt(state map[string]any, targets []string) string {
	var b strings.Builder
	b.WriteString("Current workflow state:\n")

	keys := make([]string, 0, len(state))
	for k := range state {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "  %s: %v\n", k, state[k])
	}

	b.WriteString("\nAvailable next steps:\n")
	for _, t := range targets {
		fmt.Fprintf(&b, "  - %s\n", t)
	}
	b.WriteString("\nRespond with exactly one step name from the list above and nothing else.")
	return b.String()
}

// parseTarget extracts a target name from a model reply. The model is asked
// to answer with the bare name, but replies sometimes carry quotes,
// punctuation, or a short preamble; match leniently against the declared
// set before giving up.
func parseTarget(reply string, targets []string) (string, error) {
	cleaned := strings.TrimSpace(reply)
	cleaned = strings.Trim(cleaned, "\"'`.")

	for _, t := range targets {
		if cleaned == t {
			return t, nil
		}
	}
	for _, t := range targets {
		if strings.Contains(cleaned, t) {
			return t, nil
		}
	}
	return "", fmt.Errorf("llm: reply %q does not name any of %v", reply, targets)
}

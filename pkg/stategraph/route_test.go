package stategraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRoute adapts a single-target decision.
func TestRoute(t *testing.T) {
	router := Route(func(ctx Context, s State) string {
		if s.Bool("ready", false) {
			return "go"
		}
		return "wait"
	})

	st := NewStore(nil)
	_, err := st.Merge([]Update{{"ready": true}})
	require.NoError(t, err)

	assert.Equal(t, []string{"go"}, router(testCtx(), st.Snapshot()))
	assert.Equal(t, []string{"wait"}, router(testCtx(), NewStore(nil).Snapshot()))
}

// TestWhen routes on a boolean expression over state.
func TestWhen(t *testing.T) {
	router := When("score >= 0.8", "publish", "revise")

	high := NewStore(nil)
	_, err := high.Merge([]Update{{"score": 0.9}})
	require.NoError(t, err)

	low := NewStore(nil)
	_, err = low.Merge([]Update{{"score": 0.2}})
	require.NoError(t, err)

	assert.Equal(t, []string{"publish"}, router(testCtx(), high.Snapshot()))
	assert.Equal(t, []string{"revise"}, router(testCtx(), low.Snapshot()))
	// Missing key is falsy.
	assert.Equal(t, []string{"revise"}, router(testCtx(), NewStore(nil).Snapshot()))
}

// TestWhen_InGraph exercises When end to end.
func TestWhen_InGraph(t *testing.T) {
	tr := &tracker{}

	compiled, err := NewGraph().
		AddNode("check", writerNode(Update{"status": "approved"})).
		AddNode("publish", trackingNode("publish", tr)).
		AddNode("revise", trackingNode("revise", tr)).
		AddConditionalEdge("check", When("status == 'approved'", "publish", "revise"),
			"publish", "revise").
		AddEdge("publish", END).
		AddEdge("revise", END).
		SetEntry("check").
		Compile()
	require.NoError(t, err)

	_, err = compiled.Run(testCtx(), nil)

	require.NoError(t, err)
	assert.Equal(t, []string{"publish"}, tr.names())
}

// TestFanOut always returns every target.
func TestFanOut(t *testing.T) {
	router := FanOut("a", "b", "c")
	assert.Equal(t, []string{"a", "b", "c"}, router(testCtx(), NewStore(nil).Snapshot()))
}

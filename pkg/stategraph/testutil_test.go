package stategraph

import (
	"context"
	"sync"
)

// tracker records node executions. Frontier nodes run concurrently, so
// recording is mutex-protected.
type tracker struct {
	mu    sync.Mutex
	order []string
}

func (tr *tracker) record(name string) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.order = append(tr.order, name)
}

func (tr *tracker) names() []string {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	out := make([]string, len(tr.order))
	copy(out, tr.order)
	return out
}

// Helper node makers

// trackingNode records its execution and writes nothing.
func trackingNode(name string, tr *tracker) NodeFunc {
	return func(ctx Context, s State) (Update, error) {
		tr.record(name)
		return nil, nil
	}
}

// writerNode returns a fixed update.
func writerNode(upd Update) NodeFunc {
	return func(ctx Context, s State) (Update, error) {
		return upd, nil
	}
}

// incrementNode adds one to an integer key.
func incrementNode(key string) NodeFunc {
	return func(ctx Context, s State) (Update, error) {
		return Update{key: s.Int(key, 0) + 1}, nil
	}
}

// failingNode returns the given error.
func failingNode(err error) NodeFunc {
	return func(ctx Context, s State) (Update, error) {
		return nil, err
	}
}

// panicNode panics with the given value.
func panicNode(value any) NodeFunc {
	return func(ctx Context, s State) (Update, error) {
		panic(value)
	}
}

// passthrough writes nothing.
func passthrough(ctx Context, s State) (Update, error) {
	return nil, nil
}

// testCtx creates a simple test context.
func testCtx() Context {
	return NewContext(context.Background())
}

// mustCompile builds a single-node graph around fn for tests that only
// care about one node's behavior.
func singleNodeGraph(fn NodeFunc) *Graph {
	return NewGraph().
		AddNode("only", fn).
		AddEdge("only", END).
		SetEntry("only")
}

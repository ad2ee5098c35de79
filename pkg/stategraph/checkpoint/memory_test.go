package checkpoint_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/stategraph/pkg/stategraph/checkpoint"
)

// TestMemoryStore_DataIsCopied verifies callers cannot mutate stored data.
func TestMemoryStore_DataIsCopied(t *testing.T) {
	store := checkpoint.NewMemoryStore()
	defer store.Close()

	data := []byte("original")
	require.NoError(t, store.Save("run-1", 0, data))

	data[0] = 'X'

	loaded, err := store.Load("run-1", 0)
	require.NoError(t, err)
	assert.Equal(t, []byte("original"), loaded)

	// Mutating the loaded copy doesn't affect the store either.
	loaded[0] = 'Y'
	again, err := store.Load("run-1", 0)
	require.NoError(t, err)
	assert.Equal(t, []byte("original"), again)
}

// TestMemoryStore_Len verifies the checkpoint count across runs.
func TestMemoryStore_Len(t *testing.T) {
	store := checkpoint.NewMemoryStore()
	defer store.Close()

	assert.Equal(t, 0, store.Len())

	require.NoError(t, store.Save("run-1", 0, []byte("a")))
	require.NoError(t, store.Save("run-1", 1, []byte("b")))
	require.NoError(t, store.Save("run-2", 0, []byte("c")))
	assert.Equal(t, 3, store.Len())

	// Overwriting doesn't grow the count.
	require.NoError(t, store.Save("run-1", 0, []byte("a2")))
	assert.Equal(t, 3, store.Len())

	require.NoError(t, store.DeleteRun("run-1"))
	assert.Equal(t, 1, store.Len())
}

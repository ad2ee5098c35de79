package event

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	before := time.Now().UTC()
	evt := New("run-1", RunStarted)
	after := time.Now().UTC()

	assert.Equal(t, "run-1", evt.RunID)
	assert.Equal(t, RunStarted, evt.Type)
	assert.Empty(t, evt.Node)
	assert.Empty(t, evt.Err)
	assert.Zero(t, evt.Step)

	_, err := uuid.Parse(evt.ID)
	require.NoError(t, err)

	assert.False(t, evt.Timestamp.Before(before))
	assert.False(t, evt.Timestamp.After(after))
}

func TestNew_UniqueIDs(t *testing.T) {
	a := New("run-1", StepStarted)
	b := New("run-1", StepStarted)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestEvent_WithHelpers(t *testing.T) {
	base := New("run-1", NodeFailed)

	evt := base.WithStep(3).WithNode("fetch").WithError(errors.New("boom"))
	assert.Equal(t, 3, evt.Step)
	assert.Equal(t, "fetch", evt.Node)
	assert.Equal(t, "boom", evt.Err)

	// The base event is unchanged.
	assert.Zero(t, base.Step)
	assert.Empty(t, base.Node)
	assert.Empty(t, base.Err)
}

func TestEvent_WithErrorNil(t *testing.T) {
	evt := New("run-1", NodeCompleted).WithError(nil)
	assert.Empty(t, evt.Err)
}

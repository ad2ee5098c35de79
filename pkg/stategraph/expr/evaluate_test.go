package expr

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluate_Comparisons(t *testing.T) {
	vars := map[string]any{
		"status":  "approved",
		"retries": 2,
		"score":   0.85,
		"message": "rate limit exceeded",
	}

	tests := []struct {
		expr string
		want bool
	}{
		{"status == 'approved'", true},
		{"status == 'rejected'", false},
		{"status != 'rejected'", true},
		{"retries < 3", true},
		{"retries > 3", false},
		{"retries <= 2", true},
		{"retries >= 2", true},
		{"retries >= 3", false},
		{"score >= 0.8", true},
		{"score > 0.9", false},
		{"message contains 'rate limit'", true},
		{"message contains 'timeout'", false},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := Eval(tt.expr, vars)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluate_Logical(t *testing.T) {
	vars := map[string]any{
		"status":  "approved",
		"retries": 2,
		"urgent":  true,
	}

	tests := []struct {
		expr string
		want bool
	}{
		{"status == 'approved' and retries < 3", true},
		{"status == 'approved' and retries < 1", false},
		{"status == 'rejected' or urgent", true},
		{"status == 'rejected' or retries > 5", false},
		{"not urgent", false},
		{"not status == 'rejected'", true},
		{"!urgent", false},
		{"status == 'approved' and retries < 3 and urgent", true},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := Eval(tt.expr, vars)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluate_BareValue(t *testing.T) {
	vars := map[string]any{
		"done":    true,
		"pending": false,
		"count":   0,
		"name":    "alice",
	}

	tests := []struct {
		expr string
		want bool
	}{
		{"done", true},
		{"pending", false},
		{"count", false},
		{"name", true},
		{"missing_but_nonempty_identifier", true},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := Eval(tt.expr, vars)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluate_Empty(t *testing.T) {
	got, err := Eval("", nil)
	require.NoError(t, err)
	assert.False(t, got)

	got, err = Eval("   ", nil)
	require.NoError(t, err)
	assert.False(t, got)
}

func TestEvaluate_CustomOperator(t *testing.T) {
	e := New(WithOperator("near", func(l, r any) bool {
		return math.Abs(ToFloat64(l)-ToFloat64(r)) < 0.1
	}))

	got, err := e.Evaluate("score near 0.5", map[string]any{"score": 0.45})
	require.NoError(t, err)
	assert.True(t, got)

	got, err = e.Evaluate("score near 0.5", map[string]any{"score": 0.7})
	require.NoError(t, err)
	assert.False(t, got)
}

func TestResolve(t *testing.T) {
	vars := map[string]any{"status": "approved", "count": 3}

	tests := []struct {
		in   string
		want any
	}{
		{"'quoted'", "quoted"},
		{`"double"`, "double"},
		{"true", true},
		{"False", false},
		{"null", nil},
		{"nil", nil},
		{"42", int64(42)},
		{"3.14", 3.14},
		{"-7", int64(-7)},
		{"status", "approved"},
		{"count", 3},
		{"unknown_identifier", "unknown_identifier"},
		{"  padded  ", "padded"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Resolve(tt.in, vars))
		})
	}
}

func TestIsTruthy(t *testing.T) {
	assert.False(t, IsTruthy(nil))
	assert.False(t, IsTruthy(false))
	assert.True(t, IsTruthy(true))
	assert.False(t, IsTruthy(""))
	assert.True(t, IsTruthy("x"))
	assert.False(t, IsTruthy(0))
	assert.True(t, IsTruthy(7))
	assert.False(t, IsTruthy(0.0))
	assert.True(t, IsTruthy(0.1))
	assert.True(t, IsTruthy([]string{}))
}

func TestToFloat64(t *testing.T) {
	assert.Equal(t, 1.5, ToFloat64(1.5))
	assert.Equal(t, 2.0, ToFloat64(2))
	assert.Equal(t, 3.0, ToFloat64(int64(3)))
	assert.Equal(t, 4.5, ToFloat64("4.5"))
	assert.Equal(t, 0.0, ToFloat64("not a number"))
	assert.Equal(t, 0.0, ToFloat64(nil))
}

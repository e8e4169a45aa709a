package worldline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noopOp struct {
	Base[int, int]
	label string
}

func (n noopOp) String() string { return n.label }

func TestBaseDefaults(t *testing.T) {
	op := noopOp{label: "noop"}
	res := op.ApplyTo(context.Background(), 42)
	assert.Nil(t, res.Err)
	assert.Nil(t, res.Value)
	assert.True(t, op.Check(7, res, &Recorder{}))
	assert.Equal(t, 7, op.UpdateModel(7))
}

func TestRecorderTrue(t *testing.T) {
	rec := &Recorder{}
	assert.True(t, rec.True(1 == 1, "one equals one"))
	assert.False(t, rec.Failed())

	assert.False(t, rec.True(1 == 2, "one equals two"))
	assert.True(t, rec.Failed())
	require.Len(t, rec.Events(), 2)
	assert.Equal(t, EventPass, rec.Events()[0].Kind)
	assert.Equal(t, EventFail, rec.Events()[1].Kind)
}

func TestRecorderEqual(t *testing.T) {
	rec := &Recorder{}
	assert.True(t, rec.Equal(3, 3, "match"))
	assert.False(t, rec.Equal(3, 4, "mismatch"))
	assert.True(t, rec.Failed())
	assert.Contains(t, rec.Events()[1].Message, "want")
}

func TestRecorderErrorf(t *testing.T) {
	rec := &Recorder{}
	assert.False(t, rec.Errorf("boom: %d", 1))
	require.Len(t, rec.Events(), 1)
	assert.Equal(t, EventError, rec.Events()[0].Kind)
	assert.True(t, rec.Failed())
}

func TestWaitNeverFails(t *testing.T) {
	w := Wait[int, int]{DurationMS: 1}
	res := w.ApplyTo(context.Background(), 0)
	assert.Nil(t, res.Err)
	assert.True(t, w.Check(0, res, &Recorder{}))
	assert.Equal(t, 9, w.UpdateModel(9))
}

func TestAnnotatedOpString(t *testing.T) {
	op := noopOp{label: "get(x)"}
	ok := AnnotatedOp[int, int]{Op: op, Result: Result{Value: 5}}
	assert.Equal(t, "get(x) => 5", ok.String())

	failed := AnnotatedOp[int, int]{Op: op, Result: Result{Err: assertErr{}}}
	assert.Contains(t, failed.String(), "error(")
}

type assertErr struct{}

func (assertErr) Error() string { return "boom" }

package gendriver

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/worldline-dev/worldline/genarg"
)

func TestRunAllPass(t *testing.T) {
	g := genarg.Const(1)
	summary := Run(Config{Seed: 1, NumTests: 10}, g, func(int) Outcome {
		return Outcome{Failed: false}
	})
	assert.Equal(t, "pass", summary.Result)
	assert.Equal(t, 10, summary.NumTests)
	assert.Nil(t, summary.Shrunk)
}

func TestRunShrinksToSmallest(t *testing.T) {
	g := genarg.IntRange(0, 50)
	summary := Run(Config{Seed: 7, NumTests: 20, MaxShrink: 100}, g, func(n int) Outcome {
		return Outcome{Failed: n >= 3}
	})
	require.Equal(t, "fail", summary.Result)
	require.NotNil(t, summary.Shrunk)
	assert.GreaterOrEqual(t, summary.Shrunk.Smallest, 3)
	assert.True(t, summary.Shrunk.Outcome.Failed)
}

func TestRunRecoversPanicAsFailure(t *testing.T) {
	g := genarg.Const(1)
	summary := Run(Config{Seed: 1, NumTests: 1}, g, func(int) Outcome {
		panic("boom")
	})
	require.Equal(t, "fail", summary.Result)
	require.NotNil(t, summary.Shrunk)
	assert.Error(t, summary.Shrunk.Outcome.Err)
}

func TestEffectiveSeedDefaultsWhenZero(t *testing.T) {
	summary := Run(Config{NumTests: 1}, genarg.Const(1), func(int) Outcome { return Outcome{} })
	assert.NotZero(t, summary.Seed)
}

func TestShrinkStopsAtMaxShrink(t *testing.T) {
	g := genarg.IntRange(0, 1000)
	calls := 0
	summary := Run(Config{Seed: 42, NumTests: 5, MaxShrink: 2}, g, func(n int) Outcome {
		calls++
		return Outcome{Failed: n >= 0}
	})
	require.Equal(t, "fail", summary.Result)
	require.NotNil(t, summary.Shrunk)
	assert.LessOrEqual(t, summary.Shrunk.Depth, 2)
}

func TestOutcomeErrPropagatesWithoutPanic(t *testing.T) {
	summary := Run(Config{Seed: 1, NumTests: 1}, genarg.Const(1), func(int) Outcome {
		return Outcome{Failed: true, Err: fmt.Errorf("explicit failure")}
	})
	require.NotNil(t, summary.Shrunk)
	assert.EqualError(t, summary.Shrunk.Outcome.Err, "explicit failure")
}

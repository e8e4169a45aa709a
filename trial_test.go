package worldline

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/worldline-dev/worldline/report"
)

type trialCounterSys struct {
	mu       sync.Mutex
	val      int
	buggyAdd bool
}

func (s *trialCounterSys) Add(n int) {
	if s.buggyAdd {
		n++
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.val += n
}

func (s *trialCounterSys) Read() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.val
}

func addOpInstance(n int) Operation[*trialCounterSys, int] {
	return &definedOp[*trialCounterSys, int, int]{
		name: "add",
		args: n,
		applyTo: func(ctx context.Context, sys *trialCounterSys, n int) Result {
			sys.Add(n)
			return Result{}
		},
		updateModel: func(n int, model int) int { return model + n },
	}
}

func readOpInstance() Operation[*trialCounterSys, int] {
	return &definedOp[*trialCounterSys, int, struct{}]{
		name: "read",
		applyTo: func(ctx context.Context, sys *trialCounterSys, _ struct{}) Result {
			return Result{Value: sys.Read()}
		},
		check: func(_ struct{}, model int, result Result, rec *Recorder) {
			rec.Equal(model, result.Value, "read mismatch")
		},
	}
}

func errorOpInstance() Operation[*trialCounterSys, int] {
	return &definedOp[*trialCounterSys, int, struct{}]{
		name: "explode",
		applyTo: func(ctx context.Context, sys *trialCounterSys, _ struct{}) Result {
			return Result{Err: fmt.Errorf("simulated downstream failure")}
		},
		check: func(_ struct{}, model int, result Result, rec *Recorder) {
			rec.True(result.Err != nil, "expected the thrown error to survive as a Result")
		},
	}
}

func TestRunTrialPassesWhenConsistent(t *testing.T) {
	input := trialInput[*trialCounterSys, int, struct{}]{
		Threads: map[int][]Operation[*trialCounterSys, int]{
			0: {addOpInstance(1), addOpInstance(2), readOpInstance()},
		},
	}
	o := defaultOptions[*trialCounterSys, int, struct{}]()
	o.InitSystem = func(struct{}) (*trialCounterSys, error) { return &trialCounterSys{}, nil }
	o.Repetitions = 2

	outcome := runTrial(input, o, "consistent counter")
	assert.False(t, outcome.Failed)
	assert.NoError(t, outcome.Err)
}

func TestRunTrialFailsOnBuggyAdd(t *testing.T) {
	input := trialInput[*trialCounterSys, int, struct{}]{
		Threads: map[int][]Operation[*trialCounterSys, int]{
			0: {addOpInstance(1), readOpInstance()},
		},
	}
	o := defaultOptions[*trialCounterSys, int, struct{}]()
	o.InitSystem = func(struct{}) (*trialCounterSys, error) { return &trialCounterSys{buggyAdd: true}, nil }
	o.Repetitions = 1
	collector := &report.CollectingReporter{}
	o.Reporter = collector

	outcome := runTrial(input, o, "buggy add")
	assert.True(t, outcome.Failed)

	var sawTrialFail bool
	for _, e := range collector.Events {
		if e.Name == report.TrialFail {
			sawTrialFail = true
		}
	}
	assert.True(t, sawTrialFail, "expected a trial-fail event in the report")
}

func TestRunTrialThrownErrorBecomesResult(t *testing.T) {
	input := trialInput[*trialCounterSys, int, struct{}]{
		Threads: map[int][]Operation[*trialCounterSys, int]{
			0: {errorOpInstance()},
		},
	}
	o := defaultOptions[*trialCounterSys, int, struct{}]()
	o.InitSystem = func(struct{}) (*trialCounterSys, error) { return &trialCounterSys{}, nil }
	o.Repetitions = 1

	outcome := runTrial(input, o, "thrown error becomes result")
	assert.False(t, outcome.Failed)
}

func TestRunTrialConcurrentWithWaitPasses(t *testing.T) {
	input := trialInput[*trialCounterSys, int, struct{}]{
		Threads: map[int][]Operation[*trialCounterSys, int]{
			0: {addOpInstance(1), Wait[*trialCounterSys, int]{DurationMS: 1}, addOpInstance(2), readOpInstance()},
			1: {addOpInstance(3)},
		},
	}
	o := defaultOptions[*trialCounterSys, int, struct{}]()
	o.InitSystem = func(struct{}) (*trialCounterSys, error) { return &trialCounterSys{}, nil }
	o.Concurrency = 2
	o.Repetitions = 3

	outcome := runTrial(input, o, "concurrent with wait")
	assert.False(t, outcome.Failed)
}

func TestRunTrialMissingInitSystem(t *testing.T) {
	input := trialInput[*trialCounterSys, int, struct{}]{
		Threads: map[int][]Operation[*trialCounterSys, int]{0: {addOpInstance(1)}},
	}
	o := defaultOptions[*trialCounterSys, int, struct{}]()
	o.Repetitions = 1

	outcome := runTrial(input, o, "missing init system")
	require.True(t, outcome.Failed)
	assert.Error(t, outcome.Err)
}

func TestThreadsToSliceOrdersByID(t *testing.T) {
	threads := map[int][]Operation[*trialCounterSys, int]{
		1: {addOpInstance(2), addOpInstance(3)},
		0: {addOpInstance(1)},
	}
	slice := threadsToSlice(threads)
	require.Len(t, slice, 2)
	assert.Len(t, slice[0], 1)
	assert.Len(t, slice[1], 2)
}

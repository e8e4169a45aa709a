package worldline

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/worldline-dev/worldline/report"
)

type recorderSys struct {
	mu    sync.Mutex
	calls []int
}

func (s *recorderSys) record(v int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, v)
}

func (s *recorderSys) snapshot() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.calls...)
}

type recordOp struct {
	Base[*recorderSys, int]
	val    int
	panics bool
	sleep  time.Duration
}

func (r recordOp) String() string { return fmt.Sprintf("record(%d)", r.val) }

func (r recordOp) ApplyTo(ctx context.Context, sys *recorderSys) Result {
	if r.sleep > 0 {
		time.Sleep(r.sleep)
	}
	if r.panics {
		panic("boom")
	}
	sys.record(r.val)
	return Result{Value: r.val}
}

func TestRunThreadsEmpty(t *testing.T) {
	results, err := RunThreads[*recorderSys, int](context.Background(), &recorderSys{}, nil, 0, report.SilentReporter{})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestRunThreadsSequential(t *testing.T) {
	sys := &recorderSys{}
	threads := [][]Operation[*recorderSys, int]{
		{recordOp{val: 1}, recordOp{val: 2}, recordOp{val: 3}},
	}
	results, err := RunThreads[*recorderSys, int](context.Background(), sys, threads, 0, report.SilentReporter{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Len(t, results[0], 3)
	assert.Equal(t, []int{1, 2, 3}, sys.snapshot())
	assert.Equal(t, 1, results[0][0].Result.Value)
}

func TestRunThreadsConcurrentRunsEveryOp(t *testing.T) {
	sys := &recorderSys{}
	threads := [][]Operation[*recorderSys, int]{
		{recordOp{val: 1}},
		{recordOp{val: 2}},
		{recordOp{val: 3}},
	}
	results, err := RunThreads[*recorderSys, int](context.Background(), sys, threads, 0, report.SilentReporter{})
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.ElementsMatch(t, []int{1, 2, 3}, sys.snapshot())
}

func TestRunThreadsStampsThreadID(t *testing.T) {
	sys := &recorderSys{}
	threads := [][]Operation[*recorderSys, int]{
		{recordOp{val: 1}},
		{recordOp{val: 2}},
	}
	results, err := RunThreads[*recorderSys, int](context.Background(), sys, threads, 0, report.SilentReporter{})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, 0, results[0][0].ThreadID)
	assert.Equal(t, 1, results[1][0].ThreadID)
}

func TestRunThreadsSequentialStampsThreadIDZero(t *testing.T) {
	sys := &recorderSys{}
	threads := [][]Operation[*recorderSys, int]{
		{recordOp{val: 1}, recordOp{val: 2}},
	}
	results, err := RunThreads[*recorderSys, int](context.Background(), sys, threads, 0, report.SilentReporter{})
	require.NoError(t, err)
	require.Len(t, results[0], 2)
	assert.Equal(t, 0, results[0][0].ThreadID)
	assert.Equal(t, 0, results[0][1].ThreadID)
}

func TestRunThreadsRecoversPanic(t *testing.T) {
	sys := &recorderSys{}
	threads := [][]Operation[*recorderSys, int]{
		{recordOp{val: 1, panics: true}},
	}
	results, err := RunThreads[*recorderSys, int](context.Background(), sys, threads, 0, report.SilentReporter{})
	require.NoError(t, err)
	require.Len(t, results[0], 1)
	assert.Error(t, results[0][0].Result.Err)
}

func TestRunThreadsDeadlineExceeded(t *testing.T) {
	sys := &recorderSys{}
	threads := [][]Operation[*recorderSys, int]{
		{recordOp{val: 1, sleep: 200 * time.Millisecond}},
		{recordOp{val: 2}},
	}
	_, err := RunThreads[*recorderSys, int](context.Background(), sys, threads, 20*time.Millisecond, report.SilentReporter{})
	require.Error(t, err)
	var timeout *ErrWorkerTimeout
	assert.ErrorAs(t, err, &timeout)
}

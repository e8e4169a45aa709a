package worldline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/worldline-dev/worldline/internal/rtlog"
	"github.com/worldline-dev/worldline/report"
)

// ErrNoWorldlessVoid is the fatal error the search engine raises when it is
// given empty thread-results.
var ErrNoWorldlessVoid = fmt.Errorf("worldline: cannot search the worldless void")

// ErrWorkerTimeout is returned when a worker in the Concurrent Runner
// exceeds its deadline.
type ErrWorkerTimeout struct {
	ThreadID int
}

func (e *ErrWorkerTimeout) Error() string {
	return fmt.Sprintf("worldline: thread %d exceeded its execution deadline", e.ThreadID)
}

// RunThreads implements the Concurrent Runner: it runs n per-thread
// operation sequences against sys and returns each thread's annotated
// history.
//
// - n == 0: returns an empty result immediately.
// - n == 1: runs linearly on the calling goroutine — no barrier, no
// extra goroutine, since there is nothing to interleave.
// - n > 1: spawns one goroutine per thread, all waiting on a one-shot
// start barrier, released together once every goroutine has been spawned,
// so scheduling noise before the barrier doesn't skew which interleavings
// are reachable.
//
// A panic or error from an operation's ApplyTo never escapes a worker: it
// is recovered and folded into that operation's Result.Err, becoming a
// first-class observed result rather than aborting the run.
// deadline bounds how long any single worker may run before RunThreads
// gives up and returns ErrWorkerTimeout; zero means no deadline.
func RunThreads[S, M any](ctx context.Context, sys S, threads [][]Operation[S, M], deadline time.Duration, reporter report.Reporter) (map[int][]AnnotatedOp[S, M], error) {
	start := time.Now()
	n := len(threads)

	if n == 0 {
		emit(reporter, report.Event{Name: report.RunOps, Time: time.Now(), Elapsed: 0})
		return map[int][]AnnotatedOp[S, M]{}, nil
	}

	if n == 1 {
		annotated := runSequential(ctx, sys, 0, threads[0])
		emit(reporter, report.Event{
			Name: report.RunOps,
			Time: time.Now(),
			OpCount: len(threads[0]),
			Concurrency: 1,
			Elapsed: time.Since(start),
		})
		return map[int][]AnnotatedOp[S, M]{0: annotated}, nil
	}

	type outcome struct {
		threadID int
		ops []AnnotatedOp[S, M]
	}

	results := make(map[int][]AnnotatedOp[S, M], n)
	var mu sync.Mutex
	var wg sync.WaitGroup
	barrier := make(chan struct{})
	done := make(chan outcome, n)

	for tid, ops := range threads {
		wg.Add(1)
		go func(threadID int, ops []Operation[S, M]) {
			defer wg.Done()
			<-barrier
			rtlog.Log.Trace().Int("thread", threadID).Msg("worker starting")
			annotated := runSequential(ctx, sys, threadID, ops)
			done <- outcome{threadID: threadID, ops: annotated}
		}(tid, ops)
	}

	close(barrier) // release every worker as simultaneously as scheduling allows

	collected := make(chan struct{})
	go func() {
		for i := 0; i < n; i++ {
			o := <-done
			mu.Lock()
			results[o.threadID] = o.ops
			mu.Unlock()
		}
		close(collected)
	}()

	if deadline > 0 {
		select {
		case <-collected:
		case <-time.After(deadline):
			return nil, &ErrWorkerTimeout{ThreadID: -1}
		}
	} else {
		<-collected
	}
	wg.Wait()

	totalOps := 0
	for _, ops := range threads {
		totalOps += len(ops)
	}
	emit(reporter, report.Event{
		Name: report.RunOps,
		Time: time.Now(),
		OpCount: totalOps,
		Concurrency: n,
		Elapsed: time.Since(start),
	})

	return results, nil
}

// runSequential applies ops in order to sys on the calling goroutine,
// recovering panics into Result.Err per operation and stamping each
// resulting annotation with the thread that produced it.
func runSequential[S, M any](ctx context.Context, sys S, threadID int, ops []Operation[S, M]) []AnnotatedOp[S, M] {
	out := make([]AnnotatedOp[S, M], 0, len(ops))
	for _, op := range ops {
		out = append(out, AnnotatedOp[S, M]{Op: op, Result: applyRecovered(ctx, op, sys), ThreadID: threadID})
	}
	return out
}

func applyRecovered[S, M any](ctx context.Context, op Operation[S, M], sys S) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = Result{Err: fmt.Errorf("worldline: operation %s panicked: %v", op, r)}
		}
	}()
	return op.ApplyTo(ctx, sys)
}

func emit(r report.Reporter, e report.Event) {
	if r == nil {
		return
	}
	r.Report(e)
}

package worldline

import (
	"runtime"
	"time"

	"github.com/worldline-dev/worldline/genarg"
	"github.com/worldline-dev/worldline/report"
)

// Options configures one CheckSystem run. S is the system under test, M is
// the model type, and C is the per-trial context value threaded through
// system/model construction and operation generation.
type Options[S, M, C any] struct {
	ContextGen    genarg.Generator[C]
	InitSystem    func(ctx C) (S, error)
	InitModel     func(ctx C) M
	Finalize      func(sys S) error
	Concurrency   int
	Repetitions   int
	SearchThreads int
	Deadline      time.Duration
	Reporter      report.Reporter
}

// Option mutates an Options value; CheckSystem applies a list of these over
// the defaults.
type Option[S, M, C any] func(*Options[S, M, C])

// WithContextGen overrides how the per-trial context value is generated.
func WithContextGen[S, M, C any](g genarg.Generator[C]) Option[S, M, C] {
	return func(o *Options[S, M, C]) { o.ContextGen = g }
}

// WithInitSystem sets the required system-under-test factory.
func WithInitSystem[S, M, C any](f func(ctx C) (S, error)) Option[S, M, C] {
	return func(o *Options[S, M, C]) { o.InitSystem = f }
}

// WithInitModel overrides how the starting model is computed from context.
func WithInitModel[S, M, C any](f func(ctx C) M) Option[S, M, C] {
	return func(o *Options[S, M, C]) { o.InitModel = f }
}

// WithFinalize sets a hook run against the system after each repetition,
// win or lose — for closing connections, stopping servers, and the like.
func WithFinalize[S, M, C any](f func(sys S) error) Option[S, M, C] {
	return func(o *Options[S, M, C]) { o.Finalize = f }
}

// WithConcurrency sets how many threads each generated trial runs
// concurrently. Values above 1 also widen operation generation with
// interleaved Wait ops.
func WithConcurrency[S, M, C any](n int) Option[S, M, C] {
	return func(o *Options[S, M, C]) { o.Concurrency = n }
}

// WithRepetitions sets how many times each generated trial is replayed
// against a fresh system and model before being declared passing.
func WithRepetitions[S, M, C any](n int) Option[S, M, C] {
	return func(o *Options[S, M, C]) { o.Repetitions = n }
}

// WithSearchThreads sets how many workers the search engine uses once a
// trial's history has been collected.
func WithSearchThreads[S, M, C any](n int) Option[S, M, C] {
	return func(o *Options[S, M, C]) { o.SearchThreads = n }
}

// WithDeadline bounds how long the Concurrent Runner waits for its worker
// goroutines in any one repetition before giving up. It applies only when a
// trial has more than one thread; a single thread runs without a deadline.
func WithDeadline[S, M, C any](d time.Duration) Option[S, M, C] {
	return func(o *Options[S, M, C]) { o.Deadline = d }
}

// WithReporter overrides the default silent Reporter.
func WithReporter[S, M, C any](r report.Reporter) Option[S, M, C] {
	return func(o *Options[S, M, C]) { o.Reporter = r }
}

func defaultOptions[S, M, C any]() Options[S, M, C] {
	var zeroC C
	var zeroM M
	return Options[S, M, C]{
		ContextGen:    genarg.Const(zeroC),
		InitModel:     func(C) M { return zeroM },
		Concurrency:   4,
		Repetitions:   5,
		SearchThreads: runtime.NumCPU(),
		Reporter:      report.SilentReporter{},
	}
}

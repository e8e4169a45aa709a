package worldline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/worldline-dev/worldline/gendriver"
	"github.com/worldline-dev/worldline/report"
)

// runTrial drives one generated trialInput through the full lifecycle: a
// trial-start event, then Repetitions passes each constructing a fresh
// system and model, running the Concurrent Runner, searching for a valid
// linearization, and emitting test-pass/test-fail — stopping at the first
// failing repetition and emitting trial-fail, or emitting trial-pass once
// every repetition succeeds.
func runTrial[S, M, C any](input trialInput[S, M, C], o Options[S, M, C], message string) gendriver.Outcome {
	runID := uuid.New()
	totalOps := 0
	for _, ops := range input.Threads {
		totalOps += len(ops)
	}

	emit(o.Reporter, report.Event{
		Name:        report.TrialStart,
		Time:        time.Now(),
		RunID:       runID,
		OpCount:     totalOps,
		Concurrency: len(input.Threads),
		Repetitions: o.Repetitions,
	})

	ctx := context.Background()
	threads := threadsToSlice(input.Threads)

	for rep := 0; rep < o.Repetitions; rep++ {
		emit(o.Reporter, report.Event{
			Name:        report.TestStart,
			Time:        time.Now(),
			RunID:       runID,
			Repetition:  rep,
			Repetitions: o.Repetitions,
		})

		outcome, err := runRepetition(ctx, input, threads, o, runID)
		if err != nil {
			emit(o.Reporter, report.Event{
				Name:      report.TrialFail,
				Time:      time.Now(),
				RunID:     runID,
				FailedRep: rep,
				Message:   err.Error(),
			})
			return gendriver.Outcome{Failed: true, Err: err}
		}
		if !outcome.Failed {
			continue
		}

		emit(o.Reporter, report.Event{
			Name:      report.TrialFail,
			Time:      time.Now(),
			RunID:     runID,
			FailedRep: rep,
			Message:   "no valid linearization found",
		})
		return outcome
	}

	emit(o.Reporter, report.Event{Name: report.TrialPass, Time: time.Now(), RunID: runID, Message: message})
	return gendriver.Outcome{Failed: false}
}

// runRepetition constructs a fresh system and model from ctx, runs the
// threads against the system, runs the search engine over the result, and
// reports test-pass/test-fail. Finalize runs on every exit path once the
// Concurrent Runner has returned, win or lose.
func runRepetition[S, M, C any](ctx context.Context, input trialInput[S, M, C], threads [][]Operation[S, M], o Options[S, M, C], runID uuid.UUID) (gendriver.Outcome, error) {
	if o.InitSystem == nil {
		return gendriver.Outcome{}, errNoInitSystem
	}

	sys, err := o.InitSystem(input.Ctx)
	if err != nil {
		return gendriver.Outcome{}, err
	}

	results, runErr := RunThreads[S, M](ctx, sys, threads, o.Deadline, o.Reporter)

	if o.Finalize != nil {
		_ = o.Finalize(sys)
	}

	if runErr != nil {
		return gendriver.Outcome{}, runErr
	}

	model := o.InitModel(input.Ctx)
	searchStart := time.Now()
	sr, err := Search[S, M](results, model, o.SearchThreads)
	if err != nil {
		return gendriver.Outcome{}, err
	}

	publishCaptured(o.Reporter, sr, runID)

	if sr.Valid() {
		emit(o.Reporter, report.Event{
			Name:    report.TestPass,
			Time:    time.Now(),
			RunID:   runID,
			Futures: sr.Futures.String(),
			Visited: sr.Visited,
			Elapsed: time.Since(searchStart),
			Success: true,
		})
		return gendriver.Outcome{Failed: false}, nil
	}

	emit(o.Reporter, report.Event{
		Name:    report.TestFail,
		Time:    time.Now(),
		RunID:   runID,
		Futures: sr.Futures.String(),
		Visited: sr.Visited,
		Elapsed: time.Since(searchStart),
		Message: "no valid linearization found",
	})
	return gendriver.Outcome{Failed: true}, nil
}

// publishCaptured republishes the assertion events the search engine
// withheld while exploring: one synthetic test-pass/test-fail-style event
// per captured Event, kept distinct from the repetition-level
// test-pass/test-fail pair above so a failing assertion's own message
// survives into the report.
func publishCaptured[S, M any](r report.Reporter, sr *SearchResult[S, M], runID uuid.UUID) {
	for _, e := range sr.Reports {
		name := report.TestPass
		if e.Kind != EventPass {
			name = report.TestFail
		}
		emit(r, report.Event{Name: name, Time: time.Now(), RunID: runID, Message: e.Message})
	}
}

func threadsToSlice[S, M any](threads map[int][]Operation[S, M]) [][]Operation[S, M] {
	n := 0
	for tid := range threads {
		if tid+1 > n {
			n = tid + 1
		}
	}
	out := make([][]Operation[S, M], n)
	for tid, ops := range threads {
		out[tid] = ops
	}
	return out
}

var errNoInitSystem = &missingOptionError{Field: "InitSystem"}

type missingOptionError struct{ Field string }

func (e *missingOptionError) Error() string {
	return "worldline: Options." + e.Field + " is required"
}

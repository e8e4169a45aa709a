package worldline

import (
	"math/rand"

	"github.com/worldline-dev/worldline/genarg"
	"github.com/worldline-dev/worldline/gendriver"
)

// OpGen is a contextualized operation generator constructor: given the
// trial's context value, it returns a Generator that produces one
// Operation. DefineOp is the usual way to build one of these.
type OpGen[S, M, C any] func(ctx C) genarg.Generator[Operation[S, M]]

// opsPerThreadDefault bounds how many operations a single generated thread
// carries before shrinking; it scales with the generator's size hint when
// one is supplied.
const opsPerThreadDefault = 8

// trialInput is one generated candidate: a context value plus a fixed
// sequence of operations per thread. Repetitions replay the same
// trialInput against fresh systems and models; only a generated failure
// produces a new, shrunk trialInput.
type trialInput[S, M, C any] struct {
	Ctx     C
	Threads map[int][]Operation[S, M]
}

// CheckSystem is the library's entry point: it generates concurrent (or
// linear, when concurrency is 1) operation histories against opGens,
// replays each generated trial for Repetitions iterations against a fresh
// system and model, and searches for a valid linearization of the
// observed results. On the first failing trial it shrinks toward a
// minimal counterexample before returning.
//
// message is carried through to the final pass/fail report only; it plays
// no role in generation or search.
func CheckSystem[S, M, C any](message string, iterOpts gendriver.Config, opGens []OpGen[S, M, C], optFns ...Option[S, M, C]) gendriver.Summary[trialInput[S, M, C]] {
	o := defaultOptions[S, M, C]()
	for _, fn := range optFns {
		fn(&o)
	}
	if iterOpts.NumTests == 0 {
		if o.Concurrency > 1 {
			iterOpts.NumTests = 20
		} else {
			iterOpts.NumTests = 100
		}
	}

	gen := buildInputGenerator(o, opGens)
	return gendriver.Run(iterOpts, gen, func(input trialInput[S, M, C]) gendriver.Outcome {
		return runTrial(input, o, message)
	})
}

// buildInputGenerator produces the trialInput generator: a context value
// followed by one randomly-sized operation sequence per thread, combined
// from opGens (plus a Wait generator when concurrency calls for
// interleaving). Shrinking drops the last operation of whichever thread
// currently has the most.
func buildInputGenerator[S, M, C any](o Options[S, M, C], opGens []OpGen[S, M, C]) genarg.Generator[trialInput[S, M, C]] {
	return genarg.New(func(r *rand.Rand, sz genarg.Size) (trialInput[S, M, C], genarg.Shrink[trialInput[S, M, C]]) {
		ctx, _ := o.ContextGen.Generate(r, sz)
		threads := generateThreads(r, sz, ctx, o, opGens)
		val := trialInput[S, M, C]{Ctx: ctx, Threads: threads}

		shrink := func(acceptedPrev bool) (trialInput[S, M, C], bool) {
			next, ok := shrinkThreads(val.Threads)
			if !ok {
				return val, false
			}
			val.Threads = next
			return val, true
		}
		return val, shrink
	})
}

func generateThreads[S, M, C any](r *rand.Rand, sz genarg.Size, ctx C, o Options[S, M, C], opGens []OpGen[S, M, C]) map[int][]Operation[S, M] {
	combined := combineOpGens(ctx, o, opGens)

	n := o.Concurrency
	if n <= 0 {
		n = 1
	}
	opsPerThread := opsPerThreadDefault
	if sz.N > 0 {
		opsPerThread = sz.N
	}

	threads := make(map[int][]Operation[S, M], n)
	for t := 0; t < n; t++ {
		length := 1 + r.Intn(opsPerThread)
		ops := make([]Operation[S, M], 0, length)
		for i := 0; i < length; i++ {
			op, _ := combined.Generate(r, sz)
			ops = append(ops, op)
		}
		threads[t] = ops
	}
	return threads
}

func combineOpGens[S, M, C any](ctx C, o Options[S, M, C], opGens []OpGen[S, M, C]) genarg.Generator[Operation[S, M]] {
	gens := make([]genarg.Generator[Operation[S, M]], 0, len(opGens)+1)
	for _, g := range opGens {
		gens = append(gens, g(ctx))
	}
	if o.Concurrency > 1 {
		gens = append(gens, waitOpGenerator[S, M]())
	}
	return genarg.OneOf(gens...)
}

func waitOpGenerator[S, M any]() genarg.Generator[Operation[S, M]] {
	return genarg.Map(genarg.IntRange(1, 100), func(ms int) Operation[S, M] {
		return Wait[S, M]{DurationMS: ms}
	})
}

// shrinkThreads drops the last operation from whichever thread currently
// holds the most, reducing total operation count by one. It reports false
// once every thread is down to a single operation.
func shrinkThreads[S, M any](threads map[int][]Operation[S, M]) (map[int][]Operation[S, M], bool) {
	longest := -1
	longestLen := 0
	for tid, ops := range threads {
		if len(ops) > longestLen {
			longest = tid
			longestLen = len(ops)
		}
	}
	if longest == -1 || longestLen <= 1 {
		return nil, false
	}

	next := make(map[int][]Operation[S, M], len(threads))
	for tid, ops := range threads {
		if tid == longest {
			next[tid] = ops[:len(ops)-1]
			continue
		}
		next[tid] = ops
	}
	return next, true
}

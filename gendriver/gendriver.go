// Package gendriver implements the Generative Driver: it wraps an external
// property-based testing library, runs a trial function across
// generated inputs, and on the first failure drives shrinking down to a
// minimal failing input.
//
// The wrapping follows github.com/lucaskalb/rapidx's own ForAll/
// runSequential pattern (other_examples/...rapidx.../prop.go): generate,
// run, and on failure repeatedly ask the generator's shrink continuation
// for a smaller candidate, keeping whichever still fails.
package gendriver

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/worldline-dev/worldline/genarg"
)

// Config mirrors rapidx's own Config: how many examples to run, how hard to
// shrink, and the seed driving both.
type Config struct {
	Seed int64
	NumTests int
	MaxShrink int
}

func (c Config) effectiveSeed() int64 {
	if c.Seed != 0 {
		return c.Seed
	}
	return time.Now().UnixNano()
}

// Outcome is what a trial function reports back for one generated input.
type Outcome struct {
	Failed bool
	Err error
}

// Shrunk describes the result of shrinking a failing input down: depth
// reached, total nodes visited across all shrink attempts, and the
// smallest input that still failed.
type Shrunk[T any] struct {
	Depth int
	TotalNodesVisited int
	Smallest T
	Outcome Outcome
}

// Summary is the Generative Driver's result.
type Summary[T any] struct {
	Result string // "pass" or "fail"
	Seed int64
	NumTests int
	Shrunk *Shrunk[T]
}

// Run generates up to cfg.NumTests inputs from g, running body on each. On
// the first failure it shrinks: it keeps asking g's shrink continuation for
// smaller candidates, re-running body on each, and keeps the smallest one
// that still fails. A shrinking-phase panic is recovered and folded into
// the Shrunk outcome rather than propagated.
func Run[T any](cfg Config, g genarg.Generator[T], body func(T) Outcome) Summary[T] {
	seed := cfg.effectiveSeed()
	r := rand.New(rand.NewSource(seed))

	for i := 0; i < cfg.NumTests; i++ {
		val, shrink := g.Generate(r, genarg.Size{})

		outcome := runBody(body, val)
		if !outcome.Failed {
			continue
		}

		smallest := val
		smallestOutcome := outcome
		depth := 0
		visited := 1
		acceptedPrev := true

		for depth < cfg.MaxShrink {
			next, ok := shrink(acceptedPrev)
			if !ok {
				break
			}
			depth++
			visited++

			nextOutcome := runBody(body, next)
			if nextOutcome.Failed {
				smallest = next
				smallestOutcome = nextOutcome
				acceptedPrev = true
			} else {
				acceptedPrev = false
			}
		}

		return Summary[T]{
			Result: "fail",
			Seed: seed,
			NumTests: i + 1,
			Shrunk: &Shrunk[T]{
				Depth: depth,
				TotalNodesVisited: visited,
				Smallest: smallest,
				Outcome: smallestOutcome,
			},
		}
	}

	return Summary[T]{Result: "pass", Seed: seed, NumTests: cfg.NumTests}
}

func runBody[T any](body func(T) Outcome, val T) (out Outcome) {
	defer func() {
		if rec := recover(); rec != nil {
			out = Outcome{Failed: true, Err: fmt.Errorf("trial panicked: %v", rec)}
		}
	}()
	return body(val)
}

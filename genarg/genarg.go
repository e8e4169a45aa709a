// Package genarg is the seam between worldline's core (which only ever
// consumes already-generated values) and the per-operation random-argument
// generators, treated as an external collaborator whose contract with the
// core is what matters, not its implementation.
//
// The contract mirrors github.com/lucaskalb/rapidx/gen's Generator: produce
// a value together with a shrink continuation that, given whether the
// previous candidate was accepted as a smaller counterexample, offers the
// next smaller candidate. gendriver drives that contract; this package
// supplies the primitive generators worldline's own operation DSL needs
// (picking an element, an int range, a context key) without guessing at
// rapidx's concrete constructor names.
package genarg

import "math/rand"

// Size mirrors the external library's notion of a generation size hint.
// The primitive generators here ignore it; worldline's thread generator
// uses a positive N as the per-thread operation bound.
type Size struct {
	N int
}

// Shrink offers progressively smaller candidates. acceptedPrev reports
// whether the previously offered candidate was kept as the new smallest
// known failing case; Shrink returns the next candidate to try and whether
// one was available at all.
type Shrink[T any] func(acceptedPrev bool) (T, bool)

// Generator produces random values of T with an accompanying shrink
// continuation. This is the exact shape external/property-testing
// generators (rapidx's gen.Generator[T]) are used with in
// other_examples/...rapidx.../prop.go's ForAll.
type Generator[T any] interface {
	Generate(r *rand.Rand, sz Size) (T, Shrink[T])
}

type funcGenerator[T any] struct {
	gen func(r *rand.Rand, sz Size) (T, Shrink[T])
}

func (f funcGenerator[T]) Generate(r *rand.Rand, sz Size) (T, Shrink[T]) {
	return f.gen(r, sz)
}

// New builds a Generator from a plain function, for callers that would
// rather not declare a named type.
func New[T any](gen func(r *rand.Rand, sz Size) (T, Shrink[T])) Generator[T] {
	return funcGenerator[T]{gen: gen}
}

// Const always produces v, with no smaller shrink candidates.
func Const[T any](v T) Generator[T] {
	return New(func(*rand.Rand, Size) (T, Shrink[T]) {
		return v, func(bool) (T, bool) { var zero T; return zero, false }
	})
}

// IntRange produces an int uniformly in [lo, hi], shrinking toward lo.
func IntRange(lo, hi int) Generator[int] {
	if hi < lo {
		lo, hi = hi, lo
	}
	return New(func(r *rand.Rand, _ Size) (int, Shrink[int]) {
		span := hi - lo + 1
		v := lo
		if span > 1 {
			v = lo + r.Intn(span)
		}
		cur := v
		exhausted := cur == lo
		return v, func(acceptedPrev bool) (int, bool) {
			if exhausted {
				return lo, false
			}
			if acceptedPrev {
				cur = lo + (cur-lo)/2
			} else {
				cur--
			}
			if cur <= lo {
				cur = lo
				exhausted = true
			}
			return cur, true
		}
	})
}

// Elements picks uniformly among the given values, shrinking toward the
// first element.
func Elements[T any](values ...T) Generator[T] {
	return New(func(r *rand.Rand, _ Size) (T, Shrink[T]) {
		idx := r.Intn(len(values))
		v := values[idx]
		tried := map[int]bool{idx: true}
		return v, func(acceptedPrev bool) (T, bool) {
			if acceptedPrev {
				idx = 0
			}
			for i := range values {
				if !tried[i] {
					tried[i] = true
					return values[i], true
				}
			}
			var zero T
			return zero, false
		}
	})
}

// Map transforms a Generator[A] into a Generator[B], preserving shrinking.
func Map[A, B any](g Generator[A], f func(A) B) Generator[B] {
	return New(func(r *rand.Rand, sz Size) (B, Shrink[B]) {
		a, shrinkA := g.Generate(r, sz)
		return f(a), func(acceptedPrev bool) (B, bool) {
			na, ok := shrinkA(acceptedPrev)
			if !ok {
				var zero B
				return zero, false
			}
			return f(na), true
		}
	})
}

// OneOf chooses uniformly among several generators each time it runs.
func OneOf[T any](gens ...Generator[T]) Generator[T] {
	return New(func(r *rand.Rand, sz Size) (T, Shrink[T]) {
		g := gens[r.Intn(len(gens))]
		return g.Generate(r, sz)
	})
}

// Slice produces a slice of n values (n itself random in [minLen,maxLen]),
// shrinking by dropping elements.
func Slice[T any](elem Generator[T], minLen, maxLen int) Generator[[]T] {
	return New(func(r *rand.Rand, sz Size) ([]T, Shrink[[]T]) {
		n := minLen
		if maxLen > minLen {
			n += r.Intn(maxLen - minLen + 1)
		}
		out := make([]T, 0, n)
		for i := 0; i < n; i++ {
			v, _ := elem.Generate(r, sz)
			out = append(out, v)
		}
		cur := out
		return out, func(acceptedPrev bool) ([]T, bool) {
			if len(cur) <= minLen {
				return nil, false
			}
			if acceptedPrev {
				half := len(cur) / 2
				if half < minLen {
					half = minLen
				}
				cur = cur[:half]
			} else {
				cur = cur[:len(cur)-1]
			}
			return cur, len(cur) >= minLen
		}
	})
}

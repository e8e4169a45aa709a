package worldline

import (
	"math/big"
	"sort"

	"github.com/worldline-dev/worldline/internal/cas"
)

// HistEntry is one (thread-id, operation) pair consumed on a path through
// the search.
type HistEntry[S, M any] struct {
	ThreadID int
	Op AnnotatedOp[S, M]
}

// Futures is the exact count of distinct remaining linearizations from a
// World: the multinomial coefficient
// (sum ci)! / product(ci!) where ci is thread i's remaining op count.
// Implementers are told to use big-integer arithmetic for exactness and a
// saturating projection for ordering; Futures does both.
type Futures struct {
	exact *big.Int
}

var bigOne = big.NewInt(1)

// IsOne reports whether there is exactly one remaining linearization —
// equivalently, at most one thread still has pending ops.
func (f Futures) IsOne() bool {
	return f.exact.Cmp(bigOne) == 0
}

// Ordinal saturates the exact count to a uint64 for use as a priority-queue
// key; only relative order and the IsOne() case are ever relied upon.
func (f Futures) Ordinal() uint64 {
	if !f.exact.IsUint64() {
		return ^uint64(0)
	}
	return f.exact.Uint64()
}

func (f Futures) String() string { return f.exact.String() }

var factorialCache = []*big.Int{big.NewInt(1)}

func factorial(n int) *big.Int {
	for len(factorialCache) <= n {
		next := new(big.Int).Mul(factorialCache[len(factorialCache)-1], big.NewInt(int64(len(factorialCache))))
		factorialCache = append(factorialCache, next)
	}
	return factorialCache[n]
}

func computeFutures[S, M any](pending map[int][]AnnotatedOp[S, M]) Futures {
	total := 0
	den := new(big.Int).Set(bigOne)
	for _, ops := range pending {
		total += len(ops)
		den.Mul(den, factorial(len(ops)))
	}
	num := factorial(total)
	exact := new(big.Int).Div(num, den)
	return Futures{exact: exact}
}

// World is the immutable search node of : a model snapshot,
// the history consumed to reach it, the per-thread ops still pending, and
// the exact remaining-futures count.
type World[S, M any] struct {
	Model M
	History []HistEntry[S, M]
	Pending map[int][]AnnotatedOp[S, M]
	futures Futures
	interner *cas.Interner[M]
}

// Futures returns the number of distinct remaining linearizations from w.
func (w *World[S, M]) Futures() Futures { return w.futures }

// Initialize builds the root World for a search: empty history, the given
// model, and the given per-thread pending op sequences. Every World
// descended from this one shares its interner, so a step producing a model
// equal (by content hash) to one already seen anywhere in the search
// reuses that earlier value instead of holding its own copy — the
// "deeply-shared immutable model" strategy for large models.
func Initialize[S, M any](model M, pending map[int][]AnnotatedOp[S, M]) *World[S, M] {
	clean := make(map[int][]AnnotatedOp[S, M], len(pending))
	for tid, ops := range pending {
		if len(ops) == 0 {
			continue
		}
		clean[tid] = ops
	}
	in := cas.NewInterner[M]()
	canon, _, err := in.Intern(model)
	if err == nil {
		model = canon
	}
	return &World[S, M]{
		Model: model,
		Pending: clean,
		futures: computeFutures(clean),
		interner: in,
	}
}

// EndOfLine reports whether every thread's pending list has been consumed.
func (w *World[S, M]) EndOfLine() bool { return len(w.Pending) == 0 }

// pendingThreadIDs returns the threads with pending ops, sorted for
// deterministic iteration order (the search's correctness never depends on
// this order, but determinism makes traces reproducible).
func (w *World[S, M]) pendingThreadIDs() []int {
	ids := make([]int, 0, len(w.Pending))
	for tid := range w.Pending {
		ids = append(ids, tid)
	}
	sort.Ints(ids)
	return ids
}

// Step peeks the first pending op of thread threadID (which must exist and
// carry a result annotation — callers only ever pass ids from
// pendingThreadIDs/next_steps), checks it against the current model, and
// either returns the successor World or ok=false if Check rejected it.
// Events is whatever the op's Check recorded, regardless of outcome — the
// caller decides whether/when those are ever published.
func (w *World[S, M]) Step(threadID int) (successor *World[S, M], events []Event, ok bool) {
	ops, exists := w.Pending[threadID]
	if !exists || len(ops) == 0 {
		return nil, nil, false
	}
	op := ops[0]

	rec := &Recorder{}
	if !op.Op.Check(w.Model, op.Result, rec) {
		return nil, rec.Events(), false
	}

	newModel := op.Op.UpdateModel(w.Model)
	if w.interner != nil {
		if canon, _, err := w.interner.Intern(newModel); err == nil {
			newModel = canon
		}
	}

	newPending := make(map[int][]AnnotatedOp[S, M], len(w.Pending))
	for tid, tops := range w.Pending {
		if tid == threadID {
			if len(tops) > 1 {
				newPending[tid] = tops[1:]
			}
			continue
		}
		newPending[tid] = tops
	}

	newHistory := make([]HistEntry[S, M], len(w.History), len(w.History)+1)
	copy(newHistory, w.History)
	newHistory = append(newHistory, HistEntry[S, M]{ThreadID: threadID, Op: op})

	successor = &World[S, M]{
		Model: newModel,
		History: newHistory,
		Pending: newPending,
		futures: computeFutures(newPending),
		interner: w.interner,
	}
	return successor, rec.Events(), true
}

// NextSteps returns every successor reachable from w in one step, one per
// thread whose pending op's Check accepts, in ascending thread-id order.
// Threads whose Check rejects are silently filtered.
func (w *World[S, M]) NextSteps() []*World[S, M] {
	var out []*World[S, M]
	for _, tid := range w.pendingThreadIDs() {
		if succ, _, ok := w.Step(tid); ok {
			out = append(out, succ)
		}
	}
	return out
}

// visitKeyPayload is the canonical, map-order-independent encoding of
// (model, pending) that VisitKey hashes — a model value plus, per thread,
// its remaining ops in program order. Two Worlds that encode identically
// here must have pointwise-equivalent NextSteps, which is exactly the
// soundness property pruning on VisitKey depends on.
type visitKeyPayload struct {
	Model any
	Pending []pendingEntry
}

type pendingEntry struct {
	ThreadID int
	Ops []string
}

// VisitKey returns the (model, pending) identity: two Worlds with equal
// VisitKey must produce equivalent successor
// subtrees, so either may be pruned from the search.
//
// Equality here is via content hash (github.com/dgryski/go-farm over a
// github.com/shamaton/msgpack/v2 encoding) rather than deep structural
// comparison: a 64-bit hash collision is possible in principle and is
// accepted as practically negligible rather than guarded against.
func (w *World[S, M]) VisitKey() (cas.Hash, error) {
	payload := visitKeyPayload{Model: w.Model}
	for _, tid := range w.pendingThreadIDs() {
		ops := w.Pending[tid]
		strs := make([]string, len(ops))
		for i, op := range ops {
			strs[i] = op.Op.String()
		}
		payload.Pending = append(payload.Pending, pendingEntry{ThreadID: tid, Ops: strs})
	}
	return cas.HashOf(payload)
}

// RunLinear is the fast path: callers only invoke it
// when at most one thread has pending ops (or, during search, when
// Futures().IsOne() means there is effectively no branching left), so each
// step is forced rather than chosen. It steps until end-of-line or a Check
// rejects, returning the terminal World on success or nil otherwise.
func (w *World[S, M]) RunLinear() (*World[S, M], []Event, int) {
	cur := w
	visits := 0
	var allEvents []Event
	for !cur.EndOfLine() {
		ids := cur.pendingThreadIDs()
		tid := ids[0]
		visits++
		succ, events, ok := cur.Step(tid)
		allEvents = append(allEvents, events...)
		if !ok {
			return nil, allEvents, visits
		}
		cur = succ
	}
	return cur, allEvents, visits
}

package worldline

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/worldline-dev/worldline/internal/cas"
	"github.com/worldline-dev/worldline/internal/rtlog"
)

// SearchResult is what the Search Engine hands back to the Trial Driver:
// the orchestrator's return value.
type SearchResult[S, M any] struct {
	// World is the valid terminal World found, or nil if the space was
	// exhausted without one (a counterexample).
	World *World[S, M]
	Threads int
	Futures Futures
	Visited int
	Reports []Event
	Elapsed time.Duration
}

// Valid reports whether the search found a linearization.
func (r *SearchResult[S, M]) Valid() bool { return r.World != nil }

// Search is the Search Engine entry point. It fails fast on
// empty thread-results, takes the linear fast path when only one thread has
// pending ops, and otherwise runs the parallel best-first search with
// searchThreads workers.
func Search[S, M any](threadResults map[int][]AnnotatedOp[S, M], model M, searchThreads int) (*SearchResult[S, M], error) {
	if len(threadResults) == 0 {
		return nil, ErrNoWorldlessVoid
	}

	start := time.Now()
	origin := Initialize(model, threadResults)

	if len(origin.Pending) <= 1 {
		term, events, visits := origin.RunLinear()
		return &SearchResult[S, M]{
			World: term,
			Threads: 1,
			Futures: origin.Futures(),
			Visited: visits,
			Reports: events,
			Elapsed: time.Since(start),
		}, nil
	}

	if searchThreads <= 0 {
		searchThreads = 1
	}
	return parallelSearch(origin, searchThreads, start), nil
}

// resultCell is the single-assignment cell the search converges on:
// first-wins, holding either a valid terminal World or the "no world"
// sentinel (nil).
type resultCell[S, M any] struct {
	once sync.Once
	world *World[S, M]
	done chan struct{}
}

func newResultCell[S, M any]() *resultCell[S, M] {
	return &resultCell[S, M]{done: make(chan struct{})}
}

// trySet installs w as the result iff no result has been set yet, and
// reports whether this call was the one that installed it. Only the
// winning call's events may be published — every other explored branch,
// win or lose, is a false path.
func (c *resultCell[S, M]) trySet(w *World[S, M]) bool {
	won := false
	c.once.Do(func() {
		c.world = w
		won = true
		close(c.done)
	})
	return won
}

func (c *resultCell[S, M]) isSet() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// visitedSet is the thread-safe visit-key set the search dedups worlds
// against.
type visitedSet struct {
	mu sync.Mutex
	seen map[cas.Hash]struct{}
}

func newVisitedSet() *visitedSet {
	return &visitedSet{seen: make(map[cas.Hash]struct{})}
}

func (v *visitedSet) contains(h cas.Hash) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	_, ok := v.seen[h]
	return ok
}

// addIfAbsent inserts h and reports true iff it was not already present —
// check-then-insert collapsed into one atomic map operation under a single
// lock, so two workers racing on the same key can't both win.
func (v *visitedSet) addIfAbsent(h cas.Hash) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, ok := v.seen[h]; ok {
		return false
	}
	v.seen[h] = struct{}{}
	return true
}

func (v *visitedSet) len() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.seen)
}

// parallelState is the shared state every search worker touches: the
// queue/visited/result triple, plus the winning path's captured events.
// winningEvents is only ever written by the single worker whose trySet
// call actually wins (resultCell's sync.Once makes that write-once), and
// is only ever read after wg.Wait() in parallelSearch — so it needs no
// lock of its own.
type parallelState[S, M any] struct {
	queue *worldQueue[S, M]
	visited *visitedSet
	cell *resultCell[S, M]
	winningEvents []Event
	inFlight int64 // worlds popped from the queue but not yet fully handled
	visits int64
}

// inFlight tracks worlds a worker has popped but not yet finished handling.
// A poll-timeout observing both an empty queue and zero in-flight worlds is
// what makes "no world" safe to declare: a later spurious insertion is then
// impossible by construction, because every producer of new work is itself
// a consumer that must first pop (and thus register as in-flight) the world
// it expands. Tracking queue emptiness alone races against a worker that
// popped the last item and hasn't pushed its successors yet; this counter
// closes that race the way a remaining-work-item counter does in a
// depth-synchronized model checker.
func parallelSearch[S, M any](origin *World[S, M], threadCount int, start time.Time) *SearchResult[S, M] {
	ps := &parallelState[S, M]{
		queue: newWorldQueue[S, M](),
		visited: newVisitedSet(),
		cell: newResultCell[S, M](),
	}
	ps.queue.Push(origin)

	var wg sync.WaitGroup
	for i := 0; i < threadCount; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			ps.runWorker(workerID)
		}(i)
	}
	wg.Wait()

	// On success, winningEvents holds the events recorded by the RunLinear
	// call that won resultCell's first-wins race — every other explored
	// branch's events, win or lose, were false paths and were never kept.
	// That is only the linear tail of the winning path: the events of the
	// steps that led from origin to the world RunLinear started from are
	// not replayed and are not included. On exhaustion there is no winning path to report, so
	// §6.3's "final re-run" is a single dedicated RunLinear over origin,
	// replayed outside of search so its events are genuine rather than
	// noise skimmed off of rejected candidate orderings.
	reports := ps.winningEvents
	if ps.cell.world == nil {
		_, events, _ := origin.RunLinear()
		reports = events
	}

	return &SearchResult[S, M]{
		World: ps.cell.world,
		Threads: threadCount,
		Futures: origin.Futures(),
		Visited: int(atomic.LoadInt64(&ps.visits)),
		Reports: reports,
		Elapsed: time.Since(start),
	}
}

func (ps *parallelState[S, M]) runWorker(workerID int) {
	for {
		if ps.cell.isSet() {
			return
		}

		w, ok, empty := ps.queue.Poll(100 * time.Millisecond)
		if !ok {
			if empty && atomic.LoadInt64(&ps.inFlight) == 0 {
				ps.cell.trySet(nil)
			}
			continue
		}

		atomic.AddInt64(&ps.inFlight, 1)
		ps.handle(workerID, w)
		atomic.AddInt64(&ps.inFlight, -1)
	}
}

func (ps *parallelState[S, M]) handle(workerID int, w *World[S, M]) {
	key, err := w.VisitKey()
	if err != nil {
		rtlog.Log.Error().Err(err).Int("worker", workerID).Msg("failed to compute visit key")
		return
	}

	if ps.visited.contains(key) {
		return
	}
	if !ps.visited.addIfAbsent(key) {
		return // lost the race to another worker; its subtree covers this one
	}
	atomic.AddInt64(&ps.visits, 1)

	if w.Futures().IsOne() {
		term, events, _ := w.RunLinear()
		if term != nil && ps.cell.trySet(term) {
			ps.winningEvents = events
		}
		return
	}

	for _, succ := range w.NextSteps() {
		if succKey, err := succ.VisitKey(); err == nil && ps.visited.contains(succKey) {
			continue
		}
		ps.queue.Push(succ)
	}
}

package worldline

import (
	"container/heap"
	"sync"
	"time"
)

// worldQueue is the thread-safe, futures-ordered priority queue the search
// pulls from: ascending by remaining Futures (fewer first), ties broken by
// insertion order since the correctness of the search does not depend on
// the tiebreak.
type worldQueue[S, M any] struct {
	mu sync.Mutex
	cond *sync.Cond
	items *worldHeap[S, M]
	seq uint64
}

func newWorldQueue[S, M any]() *worldQueue[S, M] {
	q := &worldQueue[S, M]{items: &worldHeap[S, M]{}}
	q.cond = sync.NewCond(&q.mu)
	heap.Init(q.items)
	return q
}

func (q *worldQueue[S, M]) Push(w *World[S, M]) {
	q.mu.Lock()
	q.seq++
	heap.Push(q.items, &queueEntry[S, M]{world: w, futures: w.Futures().Ordinal(), seq: q.seq})
	q.mu.Unlock()
	q.cond.Signal()
}

// Poll waits up to timeout for an item; it returns ok=false on timeout.
// empty reports whether the queue was observed empty at the moment of
// timing out, which the search engine's termination check relies on.
func (q *worldQueue[S, M]) Poll(timeout time.Duration) (w *World[S, M], ok bool, empty bool) {
	deadline := time.Now().Add(timeout)

	q.mu.Lock()
	defer q.mu.Unlock()

	for q.items.Len() == 0 {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, false, true
		}
		waited := waitWithTimeout(q.cond, remaining)
		if !waited && q.items.Len() == 0 {
			return nil, false, true
		}
	}

	e := heap.Pop(q.items).(*queueEntry[S, M])
	return e.world, true, false
}

// waitWithTimeout wakes cond.Wait after d even without a Signal, by racing
// a timer goroutine against the broadcast. sync.Cond has no native timeout,
// so this is the standard adaptation: a helper goroutine holds the same
// lock protocol by broadcasting once the timer fires.
func waitWithTimeout(cond *sync.Cond, d time.Duration) bool {
	timer := time.AfterFunc(d, cond.Broadcast)
	defer timer.Stop()
	cond.Wait()
	return timer.Stop()
}

type queueEntry[S, M any] struct {
	world *World[S, M]
	futures uint64
	seq uint64
}

// worldHeap implements container/heap.Interface ordered by ascending
// futures, insertion order as tiebreak.
type worldHeap[S, M any] []*queueEntry[S, M]

func (h worldHeap[S, M]) Len() int { return len(h) }
func (h worldHeap[S, M]) Less(i, j int) bool {
	if h[i].futures != h[j].futures {
		return h[i].futures < h[j].futures
	}
	return h[i].seq < h[j].seq
}
func (h worldHeap[S, M]) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *worldHeap[S, M]) Push(x any) {
	*h = append(*h, x.(*queueEntry[S, M]))
}

func (h *worldHeap[S, M]) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

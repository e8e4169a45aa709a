package cas

import "sync"

// Interner hash-conses values of type M by content hash so that equal
// models collapse to a single backing value across many Worlds, per the
// "deeply-shared immutable model" design note: cloning a large model on
// every World.step is wasteful when most steps produce a model equal to one
// already seen elsewhere in the search.
type Interner[M any] struct {
	mu    sync.Mutex
	store *Store
	byKey map[Hash]M
}

// NewInterner creates an empty Interner.
func NewInterner[M any]() *Interner[M] {
	return &Interner[M]{
		store: NewStore(),
		byKey: make(map[Hash]M),
	}
}

// Intern returns the canonical representative for a value equal to m under
// content hashing — the first value with that hash ever passed in — along
// with its hash (usable directly as part of a visit key).
func (in *Interner[M]) Intern(m M) (M, Hash, error) {
	h, err := HashOf(m)
	if err != nil {
		var zero M
		return zero, 0, err
	}
	in.mu.Lock()
	defer in.mu.Unlock()
	if canon, ok := in.byKey[h]; ok {
		return canon, h, nil
	}
	in.byKey[h] = m
	return m, h, nil
}

// Len reports how many distinct models have been interned.
func (in *Interner[M]) Len() int {
	in.mu.Lock()
	defer in.mu.Unlock()
	return len(in.byKey)
}

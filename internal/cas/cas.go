// Package cas implements a tiny content-addressable store used to compute
// visit keys for search Worlds and to hash-cons repeated model values.
//
// Hashing uses farm.Hash64 over a canonical msgpack encoding of the value,
// generalized to hash arbitrary (model, pending) pairs rather than a single
// fixed state shape.
package cas

import (
	"bytes"
	"sync"

	"github.com/dgryski/go-farm"
	"github.com/shamaton/msgpack/v2"
)

// Hash is a content hash of an encoded value. Two values that encode
// identically hash identically; that is the only property callers may rely
// on (collisions are possible and are not treated specially).
type Hash uint64

// Encode canonically encodes v into bytes suitable for hashing or storage.
// Map keys in v must be msgpack-encodable in a stable order; callers that
// hash maps should pass a representation with deterministic key order
// (e.g. a sorted slice of entries) if bit-for-bit stability matters.
func Encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := msgpack.MarshalWrite(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// HashOf encodes v and returns its content hash.
func HashOf(v any) (Hash, error) {
	data, err := Encode(v)
	if err != nil {
		return 0, err
	}
	return Hash(farm.Hash64(data)), nil
}

// Store is a thread-safe content-addressable byte store, keyed by Hash.
type Store struct {
	mu   sync.RWMutex
	data map[Hash][]byte
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{data: make(map[Hash][]byte)}
}

// Put encodes v, stores the bytes under their content hash, and returns the
// hash. Re-putting an equal value is idempotent and cheap (same hash, bytes
// already present).
func (s *Store) Put(v any) (Hash, error) {
	data, err := Encode(v)
	if err != nil {
		return 0, err
	}
	h := Hash(farm.Hash64(data))
	s.mu.Lock()
	if _, ok := s.data[h]; !ok {
		s.data[h] = data
	}
	s.mu.Unlock()
	return h, nil
}

// Has reports whether hash h has been Put.
func (s *Store) Has(h Hash) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.data[h]
	return ok
}

// Len reports the number of distinct values stored.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

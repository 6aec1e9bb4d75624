// Package keylock serialises work per key with a fixed set of striped mutexes.
package keylock

import (
	"sync"

	"github.com/cespare/xxhash/v2"
)

// DefaultStripes is the stripe count used when New is given a non-positive value.
const DefaultStripes = 256

// Striped maps keys onto a fixed pool of mutexes. Two keys may share a
// stripe, which only costs contention, never correctness.
type Striped struct {
	stripes []sync.Mutex
}

// New creates a lock pool with n stripes.
func New(n int) *Striped {
	if n <= 0 {
		n = DefaultStripes
	}
	return &Striped{stripes: make([]sync.Mutex, n)}
}

func (s *Striped) stripe(key string) *sync.Mutex {
	return &s.stripes[xxhash.Sum64String(key)%uint64(len(s.stripes))]
}

// Lock acquires the lock for key and returns its unlock function.
func (s *Striped) Lock(key string) func() {
	m := s.stripe(key)
	m.Lock()
	return m.Unlock
}

// With runs fn while holding the lock for key.
func (s *Striped) With(key string, fn func() error) error {
	unlock := s.Lock(key)
	defer unlock()
	return fn()
}

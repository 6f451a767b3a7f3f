package service

import (
	"sync"
	"time"
)

// Clock abstracts the wall clock so that lifecycle timestamps and the
// invitation sweep are testable with a fake.
type Clock interface {
	Now() time.Time
}

// wallClock is the production clock.
type wallClock struct{}

func (wallClock) Now() time.Time {
	return time.Now()
}

// lockRegistry hands out one mutex per computation id so that racing
// Compute calls on the same computation serialize while different
// computations never block each other.
type lockRegistry struct {
	sync.Mutex
	locks map[string]*sync.Mutex
}

func newLockRegistry() *lockRegistry {
	return &lockRegistry{locks: make(map[string]*sync.Mutex)}
}

// get returns the mutex for the id, creating it on first use.
func (r *lockRegistry) get(id string) *sync.Mutex {
	r.Lock()
	defer r.Unlock()

	l, ok := r.locks[id]
	if !ok {
		l = &sync.Mutex{}
		r.locks[id] = l
	}
	return l
}

// forget drops the mutex of a deleted computation.
func (r *lockRegistry) forget(id string) {
	r.Lock()
	defer r.Unlock()

	delete(r.locks, id)
}

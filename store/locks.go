package store

import (
	"sync"

	"github.com/poiesic/scriptvault/core"
)

// LockRegistry hands out one mutex per namespace. Entries are created on
// first use and never removed.
type LockRegistry struct {
	mu    sync.Mutex
	locks map[core.Namespace]*sync.Mutex
}

// NewLockRegistry creates an empty registry.
func NewLockRegistry() *LockRegistry {
	return &LockRegistry{
		locks: make(map[core.Namespace]*sync.Mutex),
	}
}

// Lock blocks until the namespace lock is held and returns its release func.
func (r *LockRegistry) Lock(ns core.Namespace) (unlock func()) {
	r.mu.Lock()
	l, ok := r.locks[ns]
	if !ok {
		l = &sync.Mutex{}
		r.locks[ns] = l
	}
	r.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// Len returns the number of namespaces that have been locked at least once.
func (r *LockRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.locks)
}

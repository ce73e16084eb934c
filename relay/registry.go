package relay

import (
	"sync"

	"golang.org/x/exp/slices"
)

// Registry is the set of administrator identities. It only grows.
type Registry struct {
	mu     sync.RWMutex
	admins map[int64]struct{}
}

func NewRegistry(ids ...int64) *Registry {
	r := &Registry{admins: make(map[int64]struct{}, len(ids))}
	for _, id := range ids {
		r.admins[id] = struct{}{}
	}
	return r
}

func (r *Registry) IsAdmin(id int64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.admins[id]
	return ok
}

// Add inserts newID on behalf of requester. The membership checks and the
// insert happen under one lock.
func (r *Registry) Add(requester, newID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.admins[requester]; !ok {
		return ErrUnauthorized
	}
	if _, ok := r.admins[newID]; ok {
		return ErrAlreadyExists
	}
	r.admins[newID] = struct{}{}
	return nil
}

// List returns a sorted snapshot of the current admins.
func (r *Registry) List() []int64 {
	r.mu.RLock()
	ids := make([]int64, 0, len(r.admins))
	for id := range r.admins {
		ids = append(ids, id)
	}
	r.mu.RUnlock()

	slices.Sort(ids)
	return ids
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.admins)
}

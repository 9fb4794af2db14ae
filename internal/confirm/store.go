package confirm

import (
	"context"
	"maps"
	"sync"
	"time"
)

// Store holds pending confirmations. Take is the single redemption
// primitive: it must atomically check ownership and delete, so that two
// concurrent redemptions of one id cannot both succeed.
type Store interface {
	// Put inserts p. Returns ErrDuplicate if the id is taken.
	Put(ctx context.Context, p *Pending) error
	// Get returns a copy of the entry, or ErrNotFound.
	Get(ctx context.Context, id string) (*Pending, error)
	// Take removes and returns the entry if owner matches. On owner
	// mismatch it returns ErrForbidden and leaves the entry in place.
	Take(ctx context.Context, id, owner string) (*Pending, error)
	// DeleteExpired removes entries expired at now and reports how many.
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}

// MemoryStore is a process-local Store.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*Pending
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]*Pending)}
}

func (s *MemoryStore) Put(_ context.Context, p *Pending) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[p.ID]; ok {
		return ErrDuplicate
	}
	s.entries[p.ID] = clonePending(p)
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Pending, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.entries[id]
	if !ok {
		return nil, ErrNotFound
	}
	return clonePending(p), nil
}

func (s *MemoryStore) Take(_ context.Context, id, owner string) (*Pending, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.entries[id]
	if !ok {
		return nil, ErrNotFound
	}
	if p.UserID != owner {
		return nil, ErrForbidden
	}
	delete(s.entries, id)
	return p, nil
}

func (s *MemoryStore) DeleteExpired(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, p := range s.entries {
		if p.Expired(now) {
			delete(s.entries, id)
			n++
		}
	}
	return n, nil
}

// Len returns the number of stored entries.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func clonePending(p *Pending) *Pending {
	c := *p
	c.Args = maps.Clone(p.Args)
	return &c
}

package profile

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Store used by tests and local development.
type MemoryStore struct {
	mu   sync.Mutex
	rows map[uuid.UUID]Profile
	now  func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: make(map[uuid.UUID]Profile), now: func() time.Time { return time.Now().UTC() }}
}

func (s *MemoryStore) FindByID(_ context.Context, id uuid.UUID) (*Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(p), nil
}

func (s *MemoryStore) Upsert(_ context.Context, id uuid.UUID, f Fields) (*Profile, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var existing *Profile
	if p, ok := s.rows[id]; ok {
		existing = &p
	}
	p := Merge(existing, id, f, s.now())
	s.rows[id] = p
	return clone(p), existing == nil, nil
}

func (s *MemoryStore) Update(_ context.Context, id uuid.UUID, f Fields) (*Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	p := Merge(&cur, id, f, s.now())
	s.rows[id] = p
	return clone(p), nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func clone(p Profile) *Profile {
	p.AudioURLs = append([]string{}, p.AudioURLs...)
	return &p
}

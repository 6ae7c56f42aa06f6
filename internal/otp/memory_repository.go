package otp

import (
	"context"
	"sync"
	"time"
)

type memoryRepository struct {
	mu       sync.Mutex
	sessions map[string]Session
}

// NewMemoryRepository builds an in-memory session store for tests and local development.
func NewMemoryRepository() Repository {
	return &memoryRepository{sessions: make(map[string]Session)}
}

func (r *memoryRepository) Create(_ context.Context, s Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ID] = s
	return nil
}

func (r *memoryRepository) Latest(_ context.Context, phone string) (Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var (
		latest Session
		found  bool
	)
	for _, s := range r.sessions {
		if s.Phone != phone {
			continue
		}
		if !found || s.CreatedAt.After(latest.CreatedAt) || (s.CreatedAt.Equal(latest.CreatedAt) && s.ID > latest.ID) {
			latest, found = s, true
		}
	}
	if !found {
		return Session{}, ErrNoSession
	}
	return latest, nil
}

func (r *memoryRepository) FindByID(_ context.Context, id string) (Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return Session{}, ErrNoSession
	}
	return s, nil
}

func (r *memoryRepository) RecordFailure(_ context.Context, id string, maxAttempts int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return 0, ErrNoSession
	}
	if s.Verified || s.Attempts >= maxAttempts {
		return 0, ErrStale
	}
	s.Attempts++
	r.sessions[id] = s
	return s.Attempts, nil
}

func (r *memoryRepository) MarkVerified(_ context.Context, id, code string, maxAttempts int, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return ErrNoSession
	}
	if s.Verified || s.Code != code || s.Attempts >= maxAttempts || s.Expired(now) {
		return ErrStale
	}
	s.Verified = true
	r.sessions[id] = s
	return nil
}

func (r *memoryRepository) PurgeExpired(_ context.Context, cutoff time.Time, limit int) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, s := range r.sessions {
		if n >= int64(limit) {
			break
		}
		if s.ExpiresAt.Before(cutoff) {
			delete(r.sessions, id)
			n++
		}
	}
	return n, nil
}

package referral

import (
	"context"
	"sort"
	"sync"
)

type memoryRepository struct {
	mu        sync.RWMutex
	referrals map[string]Referral
}

// NewMemoryRepository constructs an in-memory repository for tests and local development.
func NewMemoryRepository() Repository {
	return &memoryRepository{referrals: make(map[string]Referral)}
}

func (r *memoryRepository) Create(_ context.Context, referral Referral) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.referrals {
		if existing.ID == referral.ID || existing.ReferredUserID == referral.ReferredUserID {
			return ErrDuplicate
		}
	}
	r.referrals[referral.ID] = referral
	return nil
}

func (r *memoryRepository) FindByID(_ context.Context, id string) (Referral, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ref, ok := r.referrals[id]
	if !ok {
		return Referral{}, ErrNotFound
	}
	return ref, nil
}

func (r *memoryRepository) ListByReferrer(_ context.Context, referrerID string) ([]Referral, error) {
	r.mu.RLock()
	var out []Referral
	for _, ref := range r.referrals {
		if ref.ReferrerID == referrerID {
			out = append(out, ref)
		}
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *memoryRepository) CountByReferrer(ctx context.Context, referrerID string) (int, error) {
	refs, err := r.ListByReferrer(ctx, referrerID)
	return len(refs), err
}

func (r *memoryRepository) UpdateStatus(_ context.Context, id string, from, to Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ref, ok := r.referrals[id]
	if !ok {
		return ErrNotFound
	}
	if ref.Status != from {
		return ErrInvalidTransition
	}
	ref.Status = to
	r.referrals[id] = ref
	return nil
}

func (r *memoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.referrals[id]; !ok {
		return ErrNotFound
	}
	delete(r.referrals, id)
	return nil
}

func (r *memoryRepository) Count(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.referrals), nil
}

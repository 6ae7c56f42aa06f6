package rewards

import (
	"context"
	"sort"
	"sync"
)

type memoryRepository struct {
	mu      sync.RWMutex
	rewards map[string]Reward
}

// NewMemoryRepository builds an in-memory reward store for tests and local development.
func NewMemoryRepository() Repository {
	return &memoryRepository{rewards: make(map[string]Reward)}
}

func (r *memoryRepository) Create(_ context.Context, reward Reward) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rewards[reward.ID] = reward
	return nil
}

func (r *memoryRepository) FindByID(_ context.Context, id string) (Reward, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reward, ok := r.rewards[id]
	if !ok {
		return Reward{}, ErrNotFound
	}
	return reward, nil
}

func (r *memoryRepository) ListByUser(_ context.Context, userID string) ([]Reward, error) {
	r.mu.RLock()
	var list []Reward
	for _, reward := range r.rewards {
		if reward.UserID == userID {
			list = append(list, reward)
		}
	}
	r.mu.RUnlock()
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	return list, nil
}

func (r *memoryRepository) UpdateStatus(_ context.Context, id string, from, to Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	reward, ok := r.rewards[id]
	if !ok {
		return ErrNotFound
	}
	if reward.Status != from {
		return ErrInvalidTransition
	}
	reward.Status = to
	r.rewards[id] = reward
	return nil
}

func (r *memoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rewards[id]; !ok {
		return ErrNotFound
	}
	delete(r.rewards, id)
	return nil
}

package orders

import (
	"context"
	"sort"
	"sync"
)

type memoryRepository struct {
	mu     sync.RWMutex
	orders map[string]Order
}

// NewMemoryRepository builds an in-memory order store for tests and local development.
func NewMemoryRepository() Repository {
	return &memoryRepository{orders: make(map[string]Order)}
}

func (r *memoryRepository) Create(_ context.Context, order Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders[order.ID] = order
	return nil
}

func (r *memoryRepository) FindByID(_ context.Context, id string) (Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	order, ok := r.orders[id]
	if !ok {
		return Order{}, ErrNotFound
	}
	return order, nil
}

func (r *memoryRepository) ListByUser(_ context.Context, userID string) ([]Order, error) {
	return r.sorted(func(o Order) bool { return o.UserID == userID }, -1), nil
}

func (r *memoryRepository) UpdateStatus(_ context.Context, id string, from, to Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[id]
	if !ok {
		return ErrNotFound
	}
	if order.Status != from {
		return ErrInvalidTransition
	}
	order.Status = to
	r.orders[id] = order
	return nil
}

func (r *memoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.orders[id]; !ok {
		return ErrNotFound
	}
	delete(r.orders, id)
	return nil
}

func (r *memoryRepository) Count(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.orders), nil
}

func (r *memoryRepository) Revenue(_ context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var sum int64
	for _, order := range r.orders {
		sum += order.Amount
	}
	return sum, nil
}

func (r *memoryRepository) TotalByUser(_ context.Context, userID string) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var sum int64
	for _, order := range r.orders {
		if order.UserID == userID {
			sum += order.Amount
		}
	}
	return sum, nil
}

func (r *memoryRepository) Recent(_ context.Context, limit int) ([]Order, error) {
	return r.sorted(func(Order) bool { return true }, limit), nil
}

func (r *memoryRepository) sorted(match func(Order) bool, limit int) []Order {
	r.mu.RLock()
	var out []Order
	for _, order := range r.orders {
		if match(order) {
			out = append(out, order)
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

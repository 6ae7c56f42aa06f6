package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Service manages orders.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService builds an order service instance.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Create records an in-progress order of amount FCFA for userID.
func (s *Service) Create(ctx context.Context, userID string, amount int64) (Order, error) {
	if amount < 0 {
		return Order{}, ErrInvalidAmount
	}
	order := Order{
		ID:        uuid.NewString(),
		UserID:    userID,
		Amount:    amount,
		Status:    StatusInProgress,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.Create(ctx, order); err != nil {
		return Order{}, err
	}
	return order, nil
}

// ListByUser returns the orders of userID, newest first.
func (s *Service) ListByUser(ctx context.Context, userID string) ([]Order, error) {
	return s.repo.ListByUser(ctx, userID)
}

// TotalByUser returns how much userID has ordered in total.
func (s *Service) TotalByUser(ctx context.Context, userID string) (int64, error) {
	return s.repo.TotalByUser(ctx, userID)
}

// SetStatus delivers or cancels an in-progress order.
func (s *Service) SetStatus(ctx context.Context, id string, to Status) (Order, error) {
	if to != StatusDelivered && to != StatusCancelled {
		return Order{}, ErrInvalidTransition
	}
	if err := s.repo.UpdateStatus(ctx, id, StatusInProgress, to); err != nil {
		return Order{}, err
	}
	return s.repo.FindByID(ctx, id)
}

// Delete removes an order.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// Count returns the number of orders.
func (s *Service) Count(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}

// Revenue returns the sum of all order amounts.
func (s *Service) Revenue(ctx context.Context) (int64, error) {
	return s.repo.Revenue(ctx)
}

// Recent returns the latest orders.
func (s *Service) Recent(ctx context.Context, limit int) ([]Order, error) {
	return s.repo.Recent(ctx, limit)
}

package rewards

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/aumarche/aumarche/internal/validate"
)

// GrantInput describes a reward handed to a user.
type GrantInput struct {
	UserID string `json:"user_id" validate:"required,uuid"`
	Type   Type   `json:"type" validate:"required"`
	Tier   int    `json:"tier" validate:"min=1,max=5"`
	Value  int64  `json:"value"`
}

// Service manages rewards.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService builds a reward service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Grant records an active reward.
func (s *Service) Grant(ctx context.Context, in GrantInput) (Reward, error) {
	if err := validate.Struct(in); err != nil {
		return Reward{}, err
	}
	if !in.Type.Valid() {
		return Reward{}, ErrInvalidType
	}
	if in.Value < 0 {
		return Reward{}, ErrInvalidValue
	}
	reward := Reward{
		ID:        uuid.NewString(),
		UserID:    in.UserID,
		Type:      in.Type,
		Tier:      in.Tier,
		Value:     in.Value,
		Status:    StatusActive,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.Create(ctx, reward); err != nil {
		return Reward{}, err
	}
	return reward, nil
}

// ListByUser returns the rewards of userID, newest first.
func (s *Service) ListByUser(ctx context.Context, userID string) ([]Reward, error) {
	return s.repo.ListByUser(ctx, userID)
}

// SetStatus marks an active reward used or expired.
func (s *Service) SetStatus(ctx context.Context, id string, to Status) (Reward, error) {
	if to != StatusUsed && to != StatusExpired {
		return Reward{}, ErrInvalidTransition
	}
	if err := s.repo.UpdateStatus(ctx, id, StatusActive, to); err != nil {
		return Reward{}, err
	}
	return s.repo.FindByID(ctx, id)
}

// Delete removes a reward.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

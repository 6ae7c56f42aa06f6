package identity

import (
	"context"
	"strings"
	"time"

	"github.com/aumarche/aumarche/internal/apperr"
	"github.com/aumarche/aumarche/internal/validate"
)

// Service manages user profiles once the account exists.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates a new identity service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Get returns the profile of id.
func (s *Service) Get(ctx context.Context, id string) (User, error) {
	return s.repo.FindByID(ctx, id)
}

// Update applies changes to the profile of id. Only admins may change roles;
// callers enforce that before passing a Role change.
func (s *Service) Update(ctx context.Context, id string, changes Changes) (User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	if changes.Name != nil {
		name := strings.TrimSpace(*changes.Name)
		if name == "" {
			return User{}, apperr.New(apperr.KindValidation, "Le nom est requis")
		}
		user.Name = name
	}
	if changes.Phone != nil {
		phone := strings.TrimSpace(*changes.Phone)
		if !validate.Phone(phone) {
			return User{}, apperr.New(apperr.KindValidation, apperr.MsgInvalidPhone)
		}
		user.Phone = phone
	}
	if changes.Role != nil {
		if !changes.Role.Valid() {
			return User{}, ErrInvalidRole
		}
		user.Role = *changes.Role
	}
	user.UpdatedAt = s.now().UTC()
	if err := s.repo.Update(ctx, user); err != nil {
		return User{}, err
	}
	return user, nil
}

// Delete removes the profile of id.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

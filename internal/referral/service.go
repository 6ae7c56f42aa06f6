package referral

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Service manages referral rows.
type Service struct {
	repo    Repository
	baseURL string
	now     func() time.Time
}

// NewService builds a referral service. baseURL is the public site root used
// to build referral links.
func NewService(repo Repository, baseURL string) *Service {
	return &Service{repo: repo, baseURL: baseURL, now: time.Now}
}

// Link records that referrerID brought in referredID using code.
func (s *Service) Link(ctx context.Context, referrerID, referredID, code string) (Referral, error) {
	if referrerID == referredID {
		return Referral{}, ErrSelfReferral
	}
	ref := Referral{
		ID:             uuid.NewString(),
		ReferrerID:     referrerID,
		ReferredUserID: referredID,
		Status:         StatusPending,
		Link:           ReferralURL(s.baseURL, code),
		CreatedAt:      s.now().UTC(),
	}
	if err := s.repo.Create(ctx, ref); err != nil {
		return Referral{}, err
	}
	return ref, nil
}

// ListByReferrer returns the referrals made by referrerID.
func (s *Service) ListByReferrer(ctx context.Context, referrerID string) ([]Referral, error) {
	return s.repo.ListByReferrer(ctx, referrerID)
}

// CountByReferrer returns the number of users referrerID brought in.
func (s *Service) CountByReferrer(ctx context.Context, referrerID string) (int, error) {
	return s.repo.CountByReferrer(ctx, referrerID)
}

// Count returns the platform-wide number of referrals.
func (s *Service) Count(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}

// SetStatus validates or rejects a pending referral. Validated and rejected
// are final.
func (s *Service) SetStatus(ctx context.Context, id string, to Status) (Referral, error) {
	if to != StatusValidated && to != StatusRejected {
		return Referral{}, ErrInvalidTransition
	}
	if err := s.repo.UpdateStatus(ctx, id, StatusPending, to); err != nil {
		return Referral{}, err
	}
	return s.repo.FindByID(ctx, id)
}

// Delete removes a referral.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

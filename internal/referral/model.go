package referral

import (
	"time"

	"github.com/aumarche/aumarche/internal/apperr"
)

// Status is the validation state of a referral.
type Status string

const (
	StatusPending   Status = "pending"
	StatusValidated Status = "validated"
	StatusRejected  Status = "rejected"
)

var (
	// ErrNotFound is returned when no referral matches.
	ErrNotFound = apperr.New(apperr.KindNotFound, "Parrainage introuvable")
	// ErrDuplicate is returned when the referred user already has a referrer.
	ErrDuplicate = apperr.New(apperr.KindDuplicate, "Ce parrainage existe déjà")
	// ErrSelfReferral rejects a user referring themselves.
	ErrSelfReferral = apperr.New(apperr.KindValidation, "Impossible de se parrainer soi-même")
	// ErrInvalidTransition rejects status changes out of a final state.
	ErrInvalidTransition = apperr.New(apperr.KindValidation, "Transition de statut invalide")
	// ErrInvalidCode is returned when a supplied code resolves to nobody.
	ErrInvalidCode = apperr.New(apperr.KindValidation, apperr.MsgInvalidReferral)
)

// Referral links a referrer to the user they brought in. A referred user has
// at most one referral.
type Referral struct {
	ID             string    `json:"id"`
	ReferrerID     string    `json:"referrer_id"`
	ReferredUserID string    `json:"referred_user_id"`
	Status         Status    `json:"status"`
	Link           string    `json:"link"`
	CreatedAt      time.Time `json:"created_at"`
}

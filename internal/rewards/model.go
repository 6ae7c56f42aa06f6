package rewards

import (
	"time"

	"github.com/aumarche/aumarche/internal/apperr"
)

// Type is the kind of benefit a reward grants.
type Type string

const (
	TypeDiscount Type = "discount"
	TypeCashback Type = "cashback"
	TypeBadge    Type = "badge"
	TypePremium  Type = "premium"
)

// Valid reports whether t is a known reward type.
func (t Type) Valid() bool {
	switch t {
	case TypeDiscount, TypeCashback, TypeBadge, TypePremium:
		return true
	default:
		return false
	}
}

// Status is the lifecycle state of a reward.
type Status string

const (
	StatusActive  Status = "active"
	StatusUsed    Status = "used"
	StatusExpired Status = "expired"
)

var (
	ErrNotFound          = apperr.New(apperr.KindNotFound, "Récompense introuvable")
	ErrInvalidType       = apperr.New(apperr.KindValidation, "Type de récompense invalide")
	ErrInvalidValue      = apperr.New(apperr.KindValidation, "Valeur de récompense invalide")
	ErrInvalidTransition = apperr.New(apperr.KindValidation, "Transition de statut invalide")
)

// Reward is a benefit granted to a user for a referral tier.
type Reward struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Type      Type      `json:"type"`
	Tier      int       `json:"tier"`
	Value     int64     `json:"value"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

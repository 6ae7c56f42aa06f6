package identity

import (
	"time"

	"github.com/aumarche/aumarche/internal/apperr"
)

// Role is the stored authorization attribute of a user.
type Role string

const (
	RoleClient   Role = "client"
	RoleReferrer Role = "referrer"
	RoleAdmin    Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleClient, RoleReferrer, RoleAdmin:
		return true
	default:
		return false
	}
}

var (
	// ErrNotFound is returned when no user matches the lookup.
	ErrNotFound = apperr.New(apperr.KindNotFound, "Utilisateur introuvable")
	// ErrDuplicate is returned when the email, phone or referral code is taken.
	ErrDuplicate = apperr.New(apperr.KindDuplicate, apperr.MsgDuplicateAccount)
	// ErrInUse is returned when deleting a user other rows still point to.
	ErrInUse = apperr.New(apperr.KindDuplicate, "Utilisateur encore référencé")
	// ErrInvalidRole rejects unknown roles.
	ErrInvalidRole = apperr.New(apperr.KindValidation, "Rôle invalide")
)

// User is a customer profile. ReferrerID is empty when nobody referred the user.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone"`
	Role         Role      `json:"role"`
	ReferrerID   string    `json:"referrer_id,omitempty"`
	ReferralCode string    `json:"referral_code"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// FirstName returns the first word of the display name.
func (u User) FirstName() string {
	for i, r := range u.Name {
		if r == ' ' {
			return u.Name[:i]
		}
	}
	return u.Name
}

// Changes lists the mutable profile fields; nil fields are left untouched.
type Changes struct {
	Name  *string `json:"name,omitempty"`
	Phone *string `json:"phone,omitempty"`
	Role  *Role   `json:"role,omitempty"`
}

package auth

import (
	"context"

	"github.com/aumarche/aumarche/internal/apperr"
)

// Session is a login session issued by the identity provider.
type Session struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
	UserID      string `json:"user_id"`
}

// NewAccount is what a provider needs to open an account.
type NewAccount struct {
	Email    string
	Phone    string
	Password string
}

// Provider is the external identity provider: it owns credentials and issues
// session tokens. User profiles live in identity.
type Provider interface {
	CreateAccount(ctx context.Context, account NewAccount) (string, error)
	SignIn(ctx context.Context, email, password string) (Session, error)
	SignOut(ctx context.Context, token string) error
	Authenticate(ctx context.Context, token string) (string, error)
	VerifyPhone(ctx context.Context, phone, code string) (Session, error)
	// SendPhoneOTP asks the provider to text its own login code to phone.
	// Providers that leave delivery to the caller do nothing.
	SendPhoneOTP(ctx context.Context, phone string) error
	// IssuesPhoneCodes reports whether the provider generates and checks
	// phone login codes itself.
	IssuesPhoneCodes() bool
}

const tokenTypeBearer = "bearer"

var (
	// ErrInvalidToken is returned for missing, malformed, expired or revoked tokens.
	ErrInvalidToken = apperr.New(apperr.KindUnauthorized, apperr.MsgUnauthorized)
	// ErrBadCredentials is returned when email and password do not match.
	ErrBadCredentials = apperr.New(apperr.KindUnauthorized, apperr.MsgBadCredentials)
	// ErrDuplicate is returned when the provider already knows the email or phone.
	ErrDuplicate = apperr.New(apperr.KindDuplicate, apperr.MsgDuplicateAccount)
	// ErrUnknownPhone is returned when no account owns the verified phone.
	ErrUnknownPhone = apperr.New(apperr.KindNotFound, "Aucun compte associé à ce numéro.")
)

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aumarche/aumarche/internal/apperr"
	"github.com/aumarche/aumarche/internal/identity"
	"github.com/aumarche/aumarche/internal/referral"
	"github.com/aumarche/aumarche/internal/validate"
)

// SignUpInput is the signup form.
type SignUpInput struct {
	Name         string `json:"name" validate:"required,min=2,max=100"`
	Email        string `json:"email" validate:"required,email"`
	Phone        string `json:"phone" validate:"required,phone"`
	Password     string `json:"password" validate:"required,min=8,max=72"`
	ReferralCode string `json:"referral_code"`
}

func (in *SignUpInput) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Phone = strings.TrimSpace(in.Phone)
	in.ReferralCode = strings.ToUpper(strings.TrimSpace(in.ReferralCode))
}

// Gateway wraps the identity provider and keeps user profiles in step with
// provider accounts.
type Gateway struct {
	provider  Provider
	users     identity.Repository
	codes     *referral.Generator
	referrals *referral.Service
	logger    *slog.Logger
	now       func() time.Time
}

// NewGateway builds a Gateway.
func NewGateway(provider Provider, users identity.Repository, codes *referral.Generator, referrals *referral.Service, logger *slog.Logger) *Gateway {
	return &Gateway{
		provider:  provider,
		users:     users,
		codes:     codes,
		referrals: referrals,
		logger:    logger,
		now:       time.Now,
	}
}

// SignUp registers a new user. Steps run in order and each failure aborts
// the rest: validation, duplicate check, referral code check, provider
// account, profile, referral row.
func (g *Gateway) SignUp(ctx context.Context, in SignUpInput) (identity.User, error) {
	in.normalize()
	if err := validate.Struct(in); err != nil {
		return identity.User{}, err
	}

	exists, err := g.users.ExistsByEmailOrPhone(ctx, in.Email, in.Phone)
	if err != nil {
		return identity.User{}, apperr.Upstream(fmt.Errorf("check existing user: %w", err))
	}
	if exists {
		return identity.User{}, identity.ErrDuplicate
	}

	var referrer *identity.User
	if in.ReferralCode != "" {
		found, err := g.ReferralCodeOwner(ctx, in.ReferralCode)
		if err != nil {
			return identity.User{}, err
		}
		referrer = &found
	}

	userID, err := g.provider.CreateAccount(ctx, NewAccount{Email: in.Email, Phone: in.Phone, Password: in.Password})
	if err != nil {
		return identity.User{}, err
	}

	code, err := g.codes.GenerateUniqueCode(ctx, in.Name)
	if err != nil {
		return identity.User{}, apperr.Upstream(fmt.Errorf("generate referral code: %w", err))
	}

	now := g.now().UTC()
	user := identity.User{
		ID:           userID,
		Name:         in.Name,
		Email:        in.Email,
		Phone:        in.Phone,
		Role:         identity.RoleClient,
		ReferralCode: code,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if referrer != nil {
		user.ReferrerID = referrer.ID
	}
	if err := g.users.Create(ctx, user); err != nil {
		if errors.Is(err, identity.ErrDuplicate) {
			return identity.User{}, err
		}
		return identity.User{}, apperr.Upstream(fmt.Errorf("create profile: %w", err))
	}

	if referrer != nil {
		if _, err := g.referrals.Link(ctx, referrer.ID, user.ID, referrer.ReferralCode); err != nil {
			if apperr.KindOf(err) != apperr.KindUpstream {
				return identity.User{}, err
			}
			return identity.User{}, apperr.Upstream(fmt.Errorf("create referral: %w", err))
		}
	}

	if g.logger != nil {
		g.logger.Info("user signed up", slog.String("user_id", user.ID), slog.Bool("referred", referrer != nil))
	}
	return user, nil
}

// ReferralCodeOwner resolves a referral code to its owner.
func (g *Gateway) ReferralCodeOwner(ctx context.Context, code string) (identity.User, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if !referral.ValidCode(code) {
		return identity.User{}, referral.ErrInvalidCode
	}
	user, err := g.users.FindByReferralCode(ctx, code)
	if errors.Is(err, identity.ErrNotFound) {
		return identity.User{}, referral.ErrInvalidCode
	}
	if err != nil {
		return identity.User{}, apperr.Upstream(fmt.Errorf("lookup referral code: %w", err))
	}
	return user, nil
}

// SignIn opens a session with email and password.
func (g *Gateway) SignIn(ctx context.Context, email, password string) (Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return Session{}, ErrBadCredentials
	}
	return g.provider.SignIn(ctx, email, password)
}

// SignOut revokes token.
func (g *Gateway) SignOut(ctx context.Context, token string) error {
	return g.provider.SignOut(ctx, token)
}

// CurrentUser returns the profile behind token.
func (g *Gateway) CurrentUser(ctx context.Context, token string) (identity.User, error) {
	if token == "" {
		return identity.User{}, ErrInvalidToken
	}
	id, err := g.provider.Authenticate(ctx, token)
	if err != nil {
		return identity.User{}, err
	}
	user, err := g.users.FindByID(ctx, id)
	if errors.Is(err, identity.ErrNotFound) {
		return identity.User{}, ErrInvalidToken
	}
	if err != nil {
		return identity.User{}, apperr.Upstream(fmt.Errorf("load profile: %w", err))
	}
	return user, nil
}

// IsAdmin reports whether token belongs to an admin. Any failure answers false.
func (g *Gateway) IsAdmin(ctx context.Context, token string) bool {
	user, err := g.CurrentUser(ctx, token)
	if err != nil {
		return false
	}
	return user.Role == identity.RoleAdmin
}

// SendPhoneOTP asks the provider to text its own code, if it has one.
func (g *Gateway) SendPhoneOTP(ctx context.Context, phone string) error {
	return g.provider.SendPhoneOTP(ctx, phone)
}

// IssuesPhoneCodes reports whether the provider owns phone login codes.
func (g *Gateway) IssuesPhoneCodes() bool {
	return g.provider.IssuesPhoneCodes()
}

// VerifyPhone asks the provider to open a session for a verified phone.
func (g *Gateway) VerifyPhone(ctx context.Context, phone, code string) (Session, error) {
	return g.provider.VerifyPhone(ctx, phone, code)
}

package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/aumarche/aumarche/internal/apperr"
)

// LocalProvider keeps accounts in our own database and issues HS256 tokens.
type LocalProvider struct {
	store  AccountStore
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewLocalProvider builds a LocalProvider signing with secret.
func NewLocalProvider(store AccountStore, secret string, ttl time.Duration) *LocalProvider {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &LocalProvider{store: store, secret: []byte(secret), ttl: ttl, now: time.Now}
}

func newTokenID() string {
	return uuid.NewString()
}

// CreateAccount hashes the password and stores a new account.
func (p *LocalProvider) CreateAccount(ctx context.Context, in NewAccount) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return "", apperr.Upstream(fmt.Errorf("hash password: %w", err))
	}
	account := Account{
		ID:           uuid.NewString(),
		Email:        strings.ToLower(in.Email),
		Phone:        in.Phone,
		PasswordHash: hash,
		CreatedAt:    p.now().UTC(),
	}
	if err := p.store.Create(ctx, account); err != nil {
		if errors.Is(err, ErrDuplicate) {
			return "", ErrDuplicate
		}
		return "", apperr.Upstream(fmt.Errorf("create account: %w", err))
	}
	return account.ID, nil
}

// SignIn checks the password and issues a session.
func (p *LocalProvider) SignIn(ctx context.Context, email, password string) (Session, error) {
	account, err := p.store.FindByEmail(ctx, strings.ToLower(email))
	if errors.Is(err, errAccountNotFound) {
		return Session{}, ErrBadCredentials
	}
	if err != nil {
		return Session{}, apperr.Upstream(fmt.Errorf("load account: %w", err))
	}
	if len(account.PasswordHash) == 0 || bcrypt.CompareHashAndPassword(account.PasswordHash, []byte(password)) != nil {
		return Session{}, ErrBadCredentials
	}
	return p.session(account)
}

// SignOut revokes every token issued to the owner of token.
func (p *LocalProvider) SignOut(ctx context.Context, token string) error {
	id, err := p.Authenticate(ctx, token)
	if err != nil {
		return err
	}
	if err := p.store.BumpTokenVersion(ctx, id); err != nil {
		return apperr.Upstream(fmt.Errorf("revoke tokens: %w", err))
	}
	return nil
}

// Authenticate returns the account id behind a valid, unrevoked token.
func (p *LocalProvider) Authenticate(ctx context.Context, token string) (string, error) {
	claims, err := parseToken(p.secret, token, p.now())
	if err != nil {
		return "", ErrInvalidToken
	}
	account, err := p.store.FindByID(ctx, claims.Subject)
	if errors.Is(err, errAccountNotFound) {
		return "", ErrInvalidToken
	}
	if err != nil {
		return "", apperr.Upstream(fmt.Errorf("load account: %w", err))
	}
	if account.TokenVersion != claims.Version {
		return "", ErrInvalidToken
	}
	return account.ID, nil
}

// SendPhoneOTP does nothing: local codes are texted by the OTP dispatcher.
func (p *LocalProvider) SendPhoneOTP(context.Context, string) error { return nil }

// IssuesPhoneCodes is false: the local OTP session owns the code.
func (p *LocalProvider) IssuesPhoneCodes() bool { return false }

// VerifyPhone issues a session for the account owning phone. The code itself
// has already been checked against the local OTP session.
func (p *LocalProvider) VerifyPhone(ctx context.Context, phone, _ string) (Session, error) {
	account, err := p.store.FindByPhone(ctx, phone)
	if errors.Is(err, errAccountNotFound) {
		return Session{}, ErrUnknownPhone
	}
	if err != nil {
		return Session{}, apperr.Upstream(fmt.Errorf("load account: %w", err))
	}
	return p.session(account)
}

func (p *LocalProvider) session(account Account) (Session, error) {
	token, err := issueToken(p.secret, account, p.ttl, p.now().UTC())
	if err != nil {
		return Session{}, apperr.Upstream(fmt.Errorf("sign token: %w", err))
	}
	return Session{
		AccessToken: token,
		TokenType:   tokenTypeBearer,
		ExpiresIn:   int64(p.ttl.Seconds()),
		UserID:      account.ID,
	}, nil
}

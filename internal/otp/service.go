package otp

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/aumarche/aumarche/internal/apperr"
	"github.com/aumarche/aumarche/internal/auth"
	"github.com/aumarche/aumarche/internal/validate"
)

const (
	unknownIP   = "unknown"
	codeRerolls = 5
)

// Dispatcher delivers a code to a phone, typically by SMS.
type Dispatcher interface {
	DispatchCode(ctx context.Context, phone, code string) error
}

// PhoneVerifier is the identity provider side of phone login. When it issues
// its own codes, it texts them and checks them; the local session then only
// bounds attempts and lifetime. Otherwise it is called once the local session
// accepted the code, and it issues the login session.
type PhoneVerifier interface {
	SendPhoneOTP(ctx context.Context, phone string) error
	VerifyPhone(ctx context.Context, phone, code string) (auth.Session, error)
	IssuesPhoneCodes() bool
}

// Settings bounds session lifetime and brute force attempts.
type Settings struct {
	Window      time.Duration
	MaxAttempts int
}

// Manager issues and checks phone login codes.
type Manager struct {
	repo       Repository
	dispatcher Dispatcher
	verifier   PhoneVerifier
	settings   Settings
	logger     *slog.Logger
	now        func() time.Time
	generate   func() (string, error)
}

// NewManager builds a Manager.
func NewManager(repo Repository, dispatcher Dispatcher, verifier PhoneVerifier, settings Settings, logger *slog.Logger) *Manager {
	if settings.Window <= 0 {
		settings.Window = 5 * time.Minute
	}
	if settings.MaxAttempts <= 0 {
		settings.MaxAttempts = 5
	}
	return &Manager{
		repo:       repo,
		dispatcher: dispatcher,
		verifier:   verifier,
		settings:   settings,
		logger:     logger,
		now:        time.Now,
		generate:   newCode,
	}
}

// Settings returns the effective window and attempt limit.
func (m *Manager) Settings() Settings {
	return m.settings
}

// Send opens a new session for phone and has its code texted, by the
// provider when it issues codes, by the dispatcher otherwise. Nothing is
// written for a malformed phone, and nothing is sent if the session could
// not be stored.
func (m *Manager) Send(ctx context.Context, phone, ip string) (Session, error) {
	phone = strings.TrimSpace(phone)
	if !validate.Phone(phone) {
		return Session{}, ErrInvalidPhone
	}
	if ip == "" {
		ip = unknownIP
	}

	now := m.now().UTC()
	avoid := ""
	if prev, err := m.repo.Latest(ctx, phone); err == nil {
		if !prev.Verified && !prev.Expired(now) {
			avoid = prev.Code
		}
	} else if !errors.Is(err, ErrNoSession) {
		return Session{}, apperr.Upstream(fmt.Errorf("load previous otp session: %w", err))
	}

	code, err := m.freshCode(avoid)
	if err != nil {
		return Session{}, apperr.Upstream(err)
	}

	session := Session{
		ID:        uuid.NewString(),
		Phone:     phone,
		Code:      code,
		CreatedAt: now,
		ExpiresAt: now.Add(m.settings.Window),
		IP:        ip,
	}
	if err := m.repo.Create(ctx, session); err != nil {
		return Session{}, apperr.Upstream(fmt.Errorf("store otp session: %w", err))
	}

	if err := m.verifier.SendPhoneOTP(ctx, phone); err != nil {
		return Session{}, providerError("provider phone otp", err)
	}
	if !m.verifier.IssuesPhoneCodes() {
		if err := m.dispatcher.DispatchCode(ctx, phone, code); err != nil {
			return Session{}, apperr.Upstream(fmt.Errorf("dispatch otp: %w", err))
		}
	}

	if m.logger != nil {
		m.logger.Info("otp sent", slog.String("session_id", session.ID), slog.String("phone", maskPhone(phone)), slog.String("ip", ip))
	}
	return session, nil
}

func (m *Manager) freshCode(avoid string) (string, error) {
	for i := 0; i < codeRerolls; i++ {
		code, err := m.generate()
		if err != nil {
			return "", fmt.Errorf("generate otp: %w", err)
		}
		if code != avoid {
			return code, nil
		}
	}
	return "", fmt.Errorf("generate otp: no distinct code after %d draws", codeRerolls)
}

// Verify checks code against the latest session for phone, or has the
// provider check it when the provider issued it, and returns the provider's
// login session.
func (m *Manager) Verify(ctx context.Context, phone, code string) (auth.Session, error) {
	phone = strings.TrimSpace(phone)
	code = strings.TrimSpace(code)
	if !validate.Phone(phone) {
		return auth.Session{}, ErrInvalidPhone
	}
	if !validate.OTPCode(code) {
		return auth.Session{}, ErrMalformedCode
	}

	session, err := m.repo.Latest(ctx, phone)
	if errors.Is(err, ErrNoSession) {
		return auth.Session{}, ErrSessionNotFound
	}
	if err != nil {
		return auth.Session{}, apperr.Upstream(fmt.Errorf("load otp session: %w", err))
	}

	now := m.now().UTC()
	if err := m.gate(session, now); err != nil {
		return auth.Session{}, err
	}

	if m.verifier.IssuesPhoneCodes() {
		return m.verifyWithProvider(ctx, session, phone, code, now)
	}

	if subtle.ConstantTimeCompare([]byte(code), []byte(session.Code)) != 1 {
		return auth.Session{}, m.recordFailure(ctx, session.ID, now)
	}
	if err := m.markVerified(ctx, session, now); err != nil {
		return auth.Session{}, err
	}

	login, err := m.verifier.VerifyPhone(ctx, phone, code)
	if err != nil {
		return auth.Session{}, providerError("provider phone verification", err)
	}
	m.logVerified(session, login)
	return login, nil
}

// verifyWithProvider checks code with the provider, which sent it. A code
// the provider rejects counts as a failed attempt on the local session.
func (m *Manager) verifyWithProvider(ctx context.Context, session Session, phone, code string, now time.Time) (auth.Session, error) {
	login, err := m.verifier.VerifyPhone(ctx, phone, code)
	if apperr.Has(err, apperr.KindValidation) {
		return auth.Session{}, m.recordFailure(ctx, session.ID, now)
	}
	if err != nil {
		return auth.Session{}, providerError("provider phone verification", err)
	}
	// The stored code is never sent in this mode; it only keys the
	// conditional update.
	if err := m.markVerified(ctx, session, now); err != nil {
		return auth.Session{}, err
	}
	m.logVerified(session, login)
	return login, nil
}

func (m *Manager) recordFailure(ctx context.Context, id string, now time.Time) error {
	attempts, err := m.repo.RecordFailure(ctx, id, m.settings.MaxAttempts)
	if errors.Is(err, ErrStale) {
		return m.reclassify(ctx, id, now)
	}
	if err != nil {
		return apperr.Upstream(fmt.Errorf("record otp failure: %w", err))
	}
	if m.logger != nil {
		m.logger.Warn("otp mismatch", slog.String("session_id", id), slog.Int("attempts", attempts))
	}
	return ErrInvalidCode
}

func (m *Manager) markVerified(ctx context.Context, session Session, now time.Time) error {
	err := m.repo.MarkVerified(ctx, session.ID, session.Code, m.settings.MaxAttempts, now)
	if errors.Is(err, ErrStale) {
		return m.reclassify(ctx, session.ID, now)
	}
	if err != nil {
		return apperr.Upstream(fmt.Errorf("mark otp verified: %w", err))
	}
	return nil
}

func (m *Manager) logVerified(session Session, login auth.Session) {
	if m.logger != nil {
		m.logger.Info("otp verified", slog.String("session_id", session.ID), slog.String("user_id", login.UserID))
	}
}

// providerError keeps classified provider errors and hides the rest.
func providerError(op string, err error) error {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return err
	}
	return apperr.Upstream(fmt.Errorf("%s: %w", op, err))
}

// gate applies the terminal states in order: expired, locked, verified.
func (m *Manager) gate(s Session, now time.Time) error {
	switch {
	case s.Expired(now):
		return ErrExpired
	case s.Attempts >= m.settings.MaxAttempts:
		return ErrAttemptsExceeded
	case s.Verified:
		return ErrAlreadyUsed
	default:
		return nil
	}
}

// reclassify reloads a session that a concurrent request moved to a terminal
// state and reports that state.
func (m *Manager) reclassify(ctx context.Context, id string, now time.Time) error {
	current, err := m.repo.FindByID(ctx, id)
	if err != nil {
		return apperr.Upstream(fmt.Errorf("reload otp session: %w", err))
	}
	if err := m.gate(current, now); err != nil {
		return err
	}
	return ErrInvalidCode
}

func maskPhone(phone string) string {
	if len(phone) <= 4 {
		return "****"
	}
	return strings.Repeat("*", len(phone)-4) + phone[len(phone)-4:]
}

package otp

import (
	"errors"
	"time"

	"github.com/aumarche/aumarche/internal/apperr"
)

// Session is one issued code. A session is final once verified, once its
// attempts reach the limit, or once it expires.
type Session struct {
	ID        string    `json:"id"`
	Phone     string    `json:"phone"`
	Code      string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
	Attempts  int       `json:"attempts"`
	Verified  bool      `json:"verified"`
	IP        string    `json:"ip"`
}

// Expired reports whether the session is past its expiry at now.
func (s Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

var (
	// ErrInvalidPhone rejects malformed phone numbers before any write.
	ErrInvalidPhone = apperr.New(apperr.KindValidation, apperr.MsgInvalidPhone)
	// ErrMalformedCode rejects codes that are not six digits.
	ErrMalformedCode = apperr.New(apperr.KindValidation, apperr.MsgInvalidCode)
	// ErrSessionNotFound is reported with the same message as a wrong code so
	// callers cannot probe which phones have pending sessions.
	ErrSessionNotFound = apperr.New(apperr.KindNotFound, apperr.MsgInvalidCode)
	// ErrInvalidCode is returned on a code mismatch.
	ErrInvalidCode = apperr.New(apperr.KindValidation, apperr.MsgInvalidCode)
	// ErrExpired is returned once the session window has elapsed.
	ErrExpired = apperr.New(apperr.KindExpired, "Le code OTP a expiré.")
	// ErrAlreadyUsed is returned for a session that was already verified.
	ErrAlreadyUsed = apperr.New(apperr.KindExpired, "Ce code OTP a déjà été utilisé.")
	// ErrAttemptsExceeded is returned once the attempt limit is reached.
	ErrAttemptsExceeded = apperr.New(apperr.KindRateLimit, "Nombre maximum de tentatives dépassé.")

	// ErrStale signals that a conditional update found the session in a
	// different state than the caller observed.
	ErrStale = errors.New("otp session changed concurrently")
	// ErrNoSession is returned by repositories when nothing matches.
	ErrNoSession = errors.New("otp session not found")
)

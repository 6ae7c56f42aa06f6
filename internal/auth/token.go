package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	errMalformedToken = errors.New("malformed token")
	errExpiredToken   = errors.New("token expired")
)

// Claims are carried by locally issued access tokens. Version must match the
// account token version, which sign-out bumps.
type Claims struct {
	Version int    `json:"ver"`
	Phone   string `json:"phone,omitempty"`
	jwt.RegisteredClaims
}

// issueToken signs an HS256 access token for account.
func issueToken(secret []byte, account Account, ttl time.Duration, now time.Time) (string, error) {
	claims := Claims{
		Version: account.TokenVersion,
		Phone:   account.Phone,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   account.ID,
			ID:        newTokenID(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// parseToken validates signature and expiry and returns the claims.
func parseToken(secret []byte, raw string, now time.Time) (*Claims, error) {
	token, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errMalformedToken
		}
		return secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return now }))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, errExpiredToken
		}
		return nil, errMalformedToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, errMalformedToken
	}
	return claims, nil
}

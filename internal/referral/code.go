package referral

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aumarche/aumarche/internal/apperr"
)

const (
	prefixLen     = 3
	prefixFiller  = 'X'
	stampLen      = 4
	randomLen     = 2
	base36        = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	maxCodeRounds = 10
)

var codePattern = regexp.MustCompile(`^[A-Z]{3}[A-Z0-9]{6}$`)

// ErrCodeExhausted is returned when every candidate collided with an existing code.
var ErrCodeExhausted = apperr.New(apperr.KindUpstream, "Impossible de générer un code de parrainage")

// ValidCode reports whether code has the shape of a generated referral code.
func ValidCode(code string) bool {
	return codePattern.MatchString(code)
}

// CodeChecker looks up whether a referral code is already assigned.
type CodeChecker interface {
	ReferralCodeExists(ctx context.Context, code string) (bool, error)
}

// Generator mints referral codes: a three letter prefix taken from the
// holder's name, four base36 digits of the current millisecond and two random
// base36 characters.
type Generator struct {
	checker CodeChecker
	now     func() time.Time

	mu   sync.Mutex
	last string
}

// NewGenerator builds a Generator checking candidates against checker.
func NewGenerator(checker CodeChecker) *Generator {
	return &Generator{checker: checker, now: time.Now}
}

// GenerateUniqueCode returns a code not present in the store and different
// from the previous code this generator issued. Store errors are returned as is.
func (g *Generator) GenerateUniqueCode(ctx context.Context, name string) (string, error) {
	prefix := Prefix(name)
	for round := 0; round < maxCodeRounds; round++ {
		suffix, err := randomBase36(randomLen)
		if err != nil {
			return "", apperr.Upstream(fmt.Errorf("referral code entropy: %w", err))
		}
		code := prefix + stamp(g.now()) + suffix

		if g.isLast(code) {
			continue
		}
		exists, err := g.checker.ReferralCodeExists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("check referral code: %w", err)
		}
		if exists {
			continue
		}

		g.mu.Lock()
		g.last = code
		g.mu.Unlock()
		return code, nil
	}
	return "", ErrCodeExhausted
}

func (g *Generator) isLast(code string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.last == code
}

// Prefix returns the first three ASCII letters of name, uppercased and padded
// with X.
func Prefix(name string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(name) {
		if r >= 'A' && r <= 'Z' {
			b.WriteRune(r)
			if b.Len() == prefixLen {
				break
			}
		}
	}
	for b.Len() < prefixLen {
		b.WriteRune(prefixFiller)
	}
	return b.String()
}

func stamp(t time.Time) string {
	s := strings.ToUpper(strconv.FormatInt(t.UnixMilli(), 36))
	if len(s) < stampLen {
		s = strings.Repeat("0", stampLen-len(s)) + s
	}
	return s[len(s)-stampLen:]
}

func randomBase36(n int) (string, error) {
	out := make([]byte, n)
	max := big.NewInt(int64(len(base36)))
	for i := range out {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = base36[idx.Int64()]
	}
	return string(out), nil
}

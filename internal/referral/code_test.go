package referral

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

type fakeChecker struct {
	mu    sync.Mutex
	taken map[string]bool
	calls int
	err   error
}

func (f *fakeChecker) ReferralCodeExists(_ context.Context, code string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return false, f.err
	}
	return f.taken[code], nil
}

func TestPrefix(t *testing.T) {
	cases := map[string]string{
		"Awa Kone":  "AWA",
		"jo":        "JOX",
		"":          "XXX",
		"N'Guessan": "NGU",
		"42 Éric":   "RIC",
	}
	for name, want := range cases {
		if got := Prefix(name); got != want {
			t.Fatalf("Prefix(%q) = %q, want %q", name, got, want)
		}
	}
}

func TestGenerateUniqueCodeShape(t *testing.T) {
	gen := NewGenerator(&fakeChecker{taken: map[string]bool{}})
	code, err := gen.GenerateUniqueCode(context.Background(), "Awa Kone")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !ValidCode(code) {
		t.Fatalf("generated code %q does not match the referral code shape", code)
	}
	if !strings.HasPrefix(code, "AWA") {
		t.Fatalf("expected AWA prefix, got %q", code)
	}
}

func TestGenerateUniqueCodeTwiceDiffers(t *testing.T) {
	gen := NewGenerator(&fakeChecker{taken: map[string]bool{}})
	frozen := time.UnixMilli(1_700_000_000_000)
	gen.now = func() time.Time { return frozen }

	ctx := context.Background()
	seen := map[string]bool{}
	prev := ""
	for i := 0; i < 50; i++ {
		code, err := gen.GenerateUniqueCode(ctx, "Awa")
		if err != nil {
			t.Fatalf("generate %d: %v", i, err)
		}
		if code == prev {
			t.Fatalf("consecutive calls returned the same code %q", code)
		}
		prev = code
		seen[code] = true
	}
}

func TestGenerateUniqueCodeSkipsTakenCodes(t *testing.T) {
	frozen := time.UnixMilli(1_700_000_000_000)
	checker := &fakeChecker{taken: map[string]bool{}}
	gen := NewGenerator(checker)
	gen.now = func() time.Time { return frozen }

	// Reserve every code but one for this prefix and timestamp.
	prefix := Prefix("Awa") + stamp(frozen)
	free := prefix + "ZZ"
	for _, a := range base36 {
		for _, b := range base36 {
			code := prefix + string(a) + string(b)
			if code != free {
				checker.taken[code] = true
			}
		}
	}

	code, err := gen.GenerateUniqueCode(context.Background(), "Awa")
	if err == nil && code != free {
		t.Fatalf("returned a taken code %q", code)
	}
	if err != nil && !errors.Is(err, ErrCodeExhausted) {
		t.Fatalf("expected exhaustion error, got %v", err)
	}
}

func TestGenerateUniqueCodePropagatesStoreErrors(t *testing.T) {
	storeErr := errors.New("connection reset")
	gen := NewGenerator(&fakeChecker{err: storeErr})
	if _, err := gen.GenerateUniqueCode(context.Background(), "Awa"); !errors.Is(err, storeErr) {
		t.Fatalf("expected store error, got %v", err)
	}
}

func TestGenerateUniqueCodeGivesUp(t *testing.T) {
	checker := &alwaysTaken{}
	gen := NewGenerator(checker)
	if _, err := gen.GenerateUniqueCode(context.Background(), "Awa"); !errors.Is(err, ErrCodeExhausted) {
		t.Fatalf("expected exhaustion, got %v", err)
	}
	if checker.calls != maxCodeRounds {
		t.Fatalf("expected %d lookups, got %d", maxCodeRounds, checker.calls)
	}
}

type alwaysTaken struct{ calls int }

func (a *alwaysTaken) ReferralCodeExists(context.Context, string) (bool, error) {
	a.calls++
	return true, nil
}

func TestValidCode(t *testing.T) {
	if !ValidCode("AWA1Z2Y3K") {
		t.Fatalf("expected valid code")
	}
	for _, c := range []string{"ABC123", "awa1z2y3k", "A1A1Z2Y3K", "AWA1Z2Y3K0"} {
		if ValidCode(c) {
			t.Fatalf("expected %q to be invalid", c)
		}
	}
}

func TestReferralURLAndShare(t *testing.T) {
	if got := ReferralURL("https://aumarche.ci/", "AWA1Z2Y3K"); got != "https://aumarche.ci/signup?ref=AWA1Z2Y3K" {
		t.Fatalf("unexpected url %q", got)
	}
	msgs := Share("https://aumarche.ci", "AWA1Z2Y3K")
	if !strings.Contains(msgs.SMS, "AWA1Z2Y3K") || !strings.Contains(msgs.WhatsApp, "/signup?ref=AWA1Z2Y3K") {
		t.Fatalf("share messages must carry the code and link: %+v", msgs)
	}
}

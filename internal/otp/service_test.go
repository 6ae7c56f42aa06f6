package otp

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aumarche/aumarche/internal/apperr"
	"github.com/aumarche/aumarche/internal/auth"
	"github.com/aumarche/aumarche/internal/logging"
)

const testPhone = "+2250700000001"

type recordingDispatcher struct {
	mu    sync.Mutex
	codes []string
	err   error
}

func (d *recordingDispatcher) DispatchCode(_ context.Context, _ string, code string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.codes = append(d.codes, code)
	return nil
}

func (d *recordingDispatcher) last() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.codes) == 0 {
		return ""
	}
	return d.codes[len(d.codes)-1]
}

type stubVerifier struct {
	mu    sync.Mutex
	calls int
}

func (v *stubVerifier) SendPhoneOTP(context.Context, string) error { return nil }

func (v *stubVerifier) IssuesPhoneCodes() bool { return false }

func (v *stubVerifier) VerifyPhone(_ context.Context, phone, _ string) (auth.Session, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.calls++
	return auth.Session{AccessToken: "token", TokenType: "bearer", ExpiresIn: 3600, UserID: "user-" + phone}, nil
}

type failingRepository struct {
	Repository
}

func (failingRepository) Create(context.Context, Session) error {
	return errors.New("connection refused")
}

type harness struct {
	manager    *Manager
	repo       Repository
	dispatcher *recordingDispatcher
	verifier   *stubVerifier
	clock      time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		repo:       NewMemoryRepository(),
		dispatcher: &recordingDispatcher{},
		verifier:   &stubVerifier{},
		clock:      time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	h.manager = NewManager(h.repo, h.dispatcher, h.verifier, Settings{Window: 5 * time.Minute, MaxAttempts: 5}, logging.Discard())
	h.manager.now = func() time.Time { return h.clock }
	return h
}

func (h *harness) send(t *testing.T) Session {
	t.Helper()
	s, err := h.manager.Send(context.Background(), testPhone, "10.0.0.1")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	return s
}

func wrongCode(code string) string {
	if code == "000000" {
		return "000001"
	}
	return "000000"
}

func TestSendCreatesOneSession(t *testing.T) {
	h := newHarness(t)
	s := h.send(t)

	stored, err := h.repo.Latest(context.Background(), testPhone)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if stored.ID != s.ID || stored.Attempts != 0 || stored.Verified || stored.IP != "10.0.0.1" {
		t.Fatalf("unexpected stored session %+v", stored)
	}
	if !stored.ExpiresAt.Equal(h.clock.Add(5 * time.Minute)) {
		t.Fatalf("unexpected expiry %s", stored.ExpiresAt)
	}
	if len(stored.Code) != 6 || h.dispatcher.last() != stored.Code {
		t.Fatalf("dispatched %q, stored %q", h.dispatcher.last(), stored.Code)
	}
}

func TestSendNeverReusesUnexpiredCode(t *testing.T) {
	h := newHarness(t)
	draws := []string{"111111", "111111", "111111", "222222"}
	h.manager.generate = func() (string, error) {
		code := draws[0]
		draws = draws[1:]
		return code, nil
	}

	first := h.send(t)
	h.clock = h.clock.Add(time.Second)
	second := h.send(t)

	if first.Code != "111111" || second.Code != "222222" {
		t.Fatalf("expected re-roll, got %s then %s", first.Code, second.Code)
	}
	if first.ID == second.ID {
		t.Fatalf("expected a new session row")
	}
}

func TestSendRejectsInvalidPhone(t *testing.T) {
	h := newHarness(t)
	for _, phone := range []string{"", "123", "+225 07 00", "abcdefghij"} {
		if _, err := h.manager.Send(context.Background(), phone, ""); !errors.Is(err, ErrInvalidPhone) {
			t.Fatalf("%q: expected invalid phone, got %v", phone, err)
		}
	}
	if _, err := h.repo.Latest(context.Background(), "123"); !errors.Is(err, ErrNoSession) {
		t.Fatalf("nothing must be written")
	}
	if h.dispatcher.last() != "" {
		t.Fatalf("nothing must be dispatched")
	}
}

func TestSendStorageFailureSkipsDispatch(t *testing.T) {
	h := newHarness(t)
	m := NewManager(failingRepository{Repository: h.repo}, h.dispatcher, h.verifier, Settings{}, logging.Discard())

	_, err := m.Send(context.Background(), testPhone, "")
	if apperr.KindOf(err) != apperr.KindUpstream {
		t.Fatalf("expected upstream error, got %v", err)
	}
	if h.dispatcher.last() != "" {
		t.Fatalf("code dispatched despite storage failure")
	}
}

func TestVerifySuccessIsSingleUse(t *testing.T) {
	h := newHarness(t)
	s := h.send(t)

	session, err := h.manager.Verify(context.Background(), testPhone, s.Code)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if session.UserID != "user-"+testPhone {
		t.Fatalf("unexpected session %+v", session)
	}

	if _, err := h.manager.Verify(context.Background(), testPhone, s.Code); !errors.Is(err, ErrAlreadyUsed) {
		t.Fatalf("expected already used, got %v", err)
	}
	if h.verifier.calls != 1 {
		t.Fatalf("provider must be called once, got %d", h.verifier.calls)
	}
}

func TestVerifyWithoutSession(t *testing.T) {
	h := newHarness(t)
	_, err := h.manager.Verify(context.Background(), testPhone, "123456")
	if !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected session not found, got %v", err)
	}
	if err.Error() != ErrInvalidCode.Error() {
		t.Fatalf("missing session must read like an invalid code, got %q", err.Error())
	}
	if apperr.KindOf(err).Status() != 400 {
		t.Fatalf("expected 400")
	}
}

func TestVerifyRejectsMalformedInput(t *testing.T) {
	h := newHarness(t)
	if _, err := h.manager.Verify(context.Background(), "12", "123456"); !errors.Is(err, ErrInvalidPhone) {
		t.Fatalf("expected invalid phone, got %v", err)
	}
	for _, code := range []string{"12345", "abcdef", "1234567"} {
		if _, err := h.manager.Verify(context.Background(), testPhone, code); !errors.Is(err, ErrMalformedCode) {
			t.Fatalf("%q: expected malformed code, got %v", code, err)
		}
	}
}

func TestExpiredSessionNeverVerifies(t *testing.T) {
	h := newHarness(t)
	s := h.send(t)

	h.clock = h.clock.Add(5*time.Minute + time.Nanosecond)
	if _, err := h.manager.Verify(context.Background(), testPhone, s.Code); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected expired, got %v", err)
	}
	if h.verifier.calls != 0 {
		t.Fatalf("provider must not be called")
	}
}

func TestLockedAfterMaxAttempts(t *testing.T) {
	h := newHarness(t)
	s := h.send(t)
	bad := wrongCode(s.Code)

	for i := 0; i < 5; i++ {
		if _, err := h.manager.Verify(context.Background(), testPhone, bad); !errors.Is(err, ErrInvalidCode) {
			t.Fatalf("attempt %d: expected invalid code, got %v", i+1, err)
		}
	}

	_, err := h.manager.Verify(context.Background(), testPhone, s.Code)
	if !errors.Is(err, ErrAttemptsExceeded) {
		t.Fatalf("expected attempts exceeded even with the right code, got %v", err)
	}
	if apperr.KindOf(err).Status() != 429 {
		t.Fatalf("expected 429")
	}

	stored, _ := h.repo.FindByID(context.Background(), s.ID)
	if stored.Attempts != 5 || stored.Verified {
		t.Fatalf("unexpected final state %+v", stored)
	}
}

func TestVerifyUsesLatestSession(t *testing.T) {
	h := newHarness(t)
	first := h.send(t)
	h.clock = h.clock.Add(time.Second)
	second := h.send(t)

	if first.Code != second.Code {
		if _, err := h.manager.Verify(context.Background(), testPhone, first.Code); !errors.Is(err, ErrInvalidCode) {
			t.Fatalf("older code must not verify, got %v", err)
		}
	}
	if _, err := h.manager.Verify(context.Background(), testPhone, second.Code); err != nil {
		t.Fatalf("latest code must verify: %v", err)
	}
}

func TestConcurrentWrongCodesNeverOvercount(t *testing.T) {
	h := newHarness(t)
	s := h.send(t)
	bad := wrongCode(s.Code)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		invalid int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.manager.Verify(context.Background(), testPhone, bad)
			if errors.Is(err, ErrInvalidCode) {
				mu.Lock()
				invalid++
				mu.Unlock()
			} else if !errors.Is(err, ErrAttemptsExceeded) {
				t.Errorf("unexpected error %v", err)
			}
		}()
	}
	wg.Wait()

	stored, _ := h.repo.FindByID(context.Background(), s.ID)
	if stored.Attempts != 5 {
		t.Fatalf("expected exactly 5 attempts, got %d", stored.Attempts)
	}
	if invalid != 5 {
		t.Fatalf("expected 5 invalid-code answers, got %d", invalid)
	}
}

func TestConcurrentCorrectCodeAcceptedOnce(t *testing.T) {
	h := newHarness(t)
	s := h.send(t)

	var (
		wg sync.WaitGroup
		mu sync.Mutex
		ok int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := h.manager.Verify(context.Background(), testPhone, s.Code); err == nil {
				mu.Lock()
				ok++
				mu.Unlock()
			} else if !errors.Is(err, ErrAlreadyUsed) {
				t.Errorf("unexpected error %v", err)
			}
		}()
	}
	wg.Wait()

	if ok != 1 || h.verifier.calls != 1 {
		t.Fatalf("expected exactly one success, got %d (provider calls %d)", ok, h.verifier.calls)
	}
}

func TestNewCodeShape(t *testing.T) {
	for i := 0; i < 200; i++ {
		code, err := newCode()
		if err != nil {
			t.Fatalf("newCode: %v", err)
		}
		if len(code) != 6 {
			t.Fatalf("unexpected code %q", code)
		}
		for _, r := range code {
			if r < '0' || r > '9' {
				t.Fatalf("unexpected code %q", code)
			}
		}
	}
}

func TestMaskPhone(t *testing.T) {
	if got := maskPhone("+2250700000001"); got != "**********0001" {
		t.Fatalf("unexpected mask %q", got)
	}
	if got := maskPhone("12"); got != "****" {
		t.Fatalf("unexpected mask %q", got)
	}
}

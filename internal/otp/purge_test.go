package otp

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aumarche/aumarche/internal/logging"
)

func TestPurgeOnceDeletesOnlyOldExpiredSessions(t *testing.T) {
	repo := NewMemoryRepository()
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()

	seed := func(id string, expiresAt time.Time) {
		if err := repo.Create(ctx, Session{ID: id, Phone: testPhone, Code: "123456", CreatedAt: expiresAt.Add(-5 * time.Minute), ExpiresAt: expiresAt}); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	seed("old-1", now.Add(-48*time.Hour))
	seed("old-2", now.Add(-25*time.Hour))
	seed("recent-expired", now.Add(-time.Hour))
	seed("live", now.Add(time.Minute))

	p := NewPurger(repo, time.Hour, 24*time.Hour, logging.Discard())
	p.now = func() time.Time { return now }
	p.batchSize = 1

	if n := p.PurgeOnce(ctx); n != 2 {
		t.Fatalf("expected 2 purged, got %d", n)
	}
	for _, id := range []string{"old-1", "old-2"} {
		if _, err := repo.FindByID(ctx, id); !errors.Is(err, ErrNoSession) {
			t.Fatalf("%s should be gone", id)
		}
	}
	for _, id := range []string{"recent-expired", "live"} {
		if _, err := repo.FindByID(ctx, id); err != nil {
			t.Fatalf("%s should remain: %v", id, err)
		}
	}
}

func TestPurgerStopsWithContext(t *testing.T) {
	repo := NewMemoryRepository()
	p := NewPurger(repo, time.Millisecond, time.Hour, logging.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("purger did not stop")
	}
}

func TestNewPurgerDefaults(t *testing.T) {
	if NewPurger(nil, 0, 0, nil) != nil {
		t.Fatalf("nil repository must yield a nil purger")
	}
	p := NewPurger(NewMemoryRepository(), 0, 0, nil)
	if p.interval != defaultPurgeInterval || p.retention != defaultRetention {
		t.Fatalf("unexpected defaults %+v", p)
	}
	var nilPurger *Purger
	nilPurger.Start(context.Background())
}

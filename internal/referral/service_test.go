package referral

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestLinkAndList(t *testing.T) {
	svc := NewService(NewMemoryRepository(), "https://aumarche.ci")
	ctx := context.Background()
	referrer := uuid.NewString()

	for i := 0; i < 3; i++ {
		ref, err := svc.Link(ctx, referrer, uuid.NewString(), "AWA1Z2Y3K")
		if err != nil {
			t.Fatalf("link %d: %v", i, err)
		}
		if ref.Status != StatusPending {
			t.Fatalf("new referrals must be pending, got %s", ref.Status)
		}
		if ref.Link != "https://aumarche.ci/signup?ref=AWA1Z2Y3K" {
			t.Fatalf("unexpected link %q", ref.Link)
		}
	}

	n, err := svc.CountByReferrer(ctx, referrer)
	if err != nil || n != 3 {
		t.Fatalf("expected 3 referrals, got %d (%v)", n, err)
	}
	refs, err := svc.ListByReferrer(ctx, referrer)
	if err != nil || len(refs) != 3 {
		t.Fatalf("expected 3 listed referrals, got %d (%v)", len(refs), err)
	}
}

func TestLinkRejectsSecondReferrer(t *testing.T) {
	svc := NewService(NewMemoryRepository(), "https://aumarche.ci")
	ctx := context.Background()
	referred := uuid.NewString()

	if _, err := svc.Link(ctx, uuid.NewString(), referred, "AWA1Z2Y3K"); err != nil {
		t.Fatalf("first link: %v", err)
	}
	if _, err := svc.Link(ctx, uuid.NewString(), referred, "MOU1Z2Y3K"); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected duplicate, got %v", err)
	}
}

func TestLinkRejectsSelfReferral(t *testing.T) {
	svc := NewService(NewMemoryRepository(), "https://aumarche.ci")
	id := uuid.NewString()
	if _, err := svc.Link(context.Background(), id, id, "AWA1Z2Y3K"); !errors.Is(err, ErrSelfReferral) {
		t.Fatalf("expected self referral error, got %v", err)
	}
}

func TestSetStatusTransitions(t *testing.T) {
	svc := NewService(NewMemoryRepository(), "https://aumarche.ci")
	ctx := context.Background()
	ref, err := svc.Link(ctx, uuid.NewString(), uuid.NewString(), "AWA1Z2Y3K")
	if err != nil {
		t.Fatalf("link: %v", err)
	}

	if _, err := svc.SetStatus(ctx, ref.ID, StatusPending); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected invalid transition to pending, got %v", err)
	}

	updated, err := svc.SetStatus(ctx, ref.ID, StatusValidated)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if updated.Status != StatusValidated {
		t.Fatalf("expected validated, got %s", updated.Status)
	}

	if _, err := svc.SetStatus(ctx, ref.ID, StatusRejected); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("validated referrals are final, got %v", err)
	}
	if _, err := svc.SetStatus(ctx, uuid.NewString(), StatusRejected); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

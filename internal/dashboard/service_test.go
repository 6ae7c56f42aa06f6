package dashboard

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/aumarche/aumarche/internal/identity"
	"github.com/aumarche/aumarche/internal/logging"
	"github.com/aumarche/aumarche/internal/orders"
	"github.com/aumarche/aumarche/internal/referral"
	"github.com/aumarche/aumarche/internal/rewards"
)

var now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

type world struct {
	svc       *Service
	users     identity.Repository
	referrals *referral.Service
	orders    *orders.Service
	rewards   *rewards.Service
}

func newWorld(t *testing.T, cache *redis.Client) world {
	t.Helper()
	w := world{
		users:     identity.NewMemoryRepository(),
		referrals: referral.NewService(referral.NewMemoryRepository(), "https://aumarche.ci"),
		orders:    orders.NewService(orders.NewMemoryRepository()),
		rewards:   rewards.NewService(rewards.NewMemoryRepository()),
	}
	w.svc = NewService(w.users, w.referrals, w.orders, w.rewards, Options{
		Cache:    cache,
		CacheTTL: time.Minute,
		BaseURL:  "https://aumarche.ci",
		Logger:   logging.Discard(),
	})
	w.svc.now = func() time.Time { return now }
	return w
}

func (w world) addUser(t *testing.T, name, code string, createdAt time.Time) identity.User {
	t.Helper()
	user := identity.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        code + "@example.ci",
		Phone:        "+225070" + code[3:],
		Role:         identity.RoleClient,
		ReferralCode: code,
		CreatedAt:    createdAt,
		UpdatedAt:    createdAt,
	}
	if err := w.users.Create(context.Background(), user); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

func TestUserDashboard(t *testing.T) {
	w := newWorld(t, nil)
	ctx := context.Background()

	awa := w.addUser(t, "Awa Koné", "AWA000001", now.Add(-30*24*time.Hour))
	for i, code := range []string{"YAO000002", "AMI000003", "KOF000004"} {
		friend := w.addUser(t, "Ami "+code[:3], code, now.Add(-time.Duration(i)*time.Hour))
		if _, err := w.referrals.Link(ctx, awa.ID, friend.ID, awa.ReferralCode); err != nil {
			t.Fatalf("link: %v", err)
		}
	}
	if _, err := w.orders.Create(ctx, awa.ID, 12_500); err != nil {
		t.Fatalf("order: %v", err)
	}
	if _, err := w.orders.Create(ctx, awa.ID, 7_500); err != nil {
		t.Fatalf("order: %v", err)
	}
	if _, err := w.rewards.Grant(ctx, rewards.GrantInput{UserID: awa.ID, Type: rewards.TypeDiscount, Tier: 2, Value: 5}); err != nil {
		t.Fatalf("grant: %v", err)
	}

	view, err := w.svc.User(ctx, awa.ID)
	if err != nil {
		t.Fatalf("user dashboard: %v", err)
	}
	if view.ReferralCount != 3 || view.Standing.Tier != 2 || view.Standing.BonusPercent != 5 {
		t.Fatalf("unexpected standing %+v (count %d)", view.Standing, view.ReferralCount)
	}
	if len(view.AvailableRewards) != 2 {
		t.Fatalf("expected tier 2 catalogue, got %+v", view.AvailableRewards)
	}
	if view.OrderTotal != 20_000 {
		t.Fatalf("expected order total 20000, got %d", view.OrderTotal)
	}
	if view.ReferralLink != "https://aumarche.ci/signup?ref=AWA000001" {
		t.Fatalf("unexpected link %q", view.ReferralLink)
	}
	if len(view.Rewards) != 1 || len(view.Referrals) != 3 {
		t.Fatalf("unexpected lists %+v %+v", view.Rewards, view.Referrals)
	}
	for _, r := range view.Referrals {
		if r.Name == "" {
			t.Fatalf("referred user name missing in %+v", r)
		}
	}

	if _, err := w.svc.User(ctx, uuid.NewString()); !errors.Is(err, identity.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestAdminStats(t *testing.T) {
	w := newWorld(t, nil)
	ctx := context.Background()

	old := w.addUser(t, "Ancien", "ANC000001", now.Add(-10*24*time.Hour))
	fresh := w.addUser(t, "Nouveau", "NOU000002", now.Add(-2*24*time.Hour))
	w.addUser(t, "Récent", "REC000003", now.Add(-time.Hour))
	if _, err := w.referrals.Link(ctx, old.ID, fresh.ID, old.ReferralCode); err != nil {
		t.Fatalf("link: %v", err)
	}
	if _, err := w.orders.Create(ctx, fresh.ID, 4_000); err != nil {
		t.Fatalf("order: %v", err)
	}
	if _, err := w.orders.Create(ctx, old.ID, 6_000); err != nil {
		t.Fatalf("order: %v", err)
	}

	stats, err := w.svc.Admin(ctx)
	if err != nil {
		t.Fatalf("admin stats: %v", err)
	}
	if stats.TotalUsers != 3 || stats.TotalReferrals != 1 || stats.TotalOrders != 2 {
		t.Fatalf("unexpected totals %+v", stats)
	}
	if stats.Revenue != 10_000 || stats.NewUsers7d != 2 {
		t.Fatalf("unexpected revenue/new users %+v", stats)
	}
	if math.Abs(stats.ConversionRate-200.0/3.0) > 1e-9 {
		t.Fatalf("unexpected conversion %f", stats.ConversionRate)
	}
	if len(stats.RecentUsers) != 3 || stats.RecentUsers[0].Name != "Récent" {
		t.Fatalf("unexpected recent users %+v", stats.RecentUsers)
	}
	if len(stats.RecentOrders) != 2 || stats.RecentOrders[0].UserName == "" {
		t.Fatalf("unexpected recent orders %+v", stats.RecentOrders)
	}
}

func TestConversionRate(t *testing.T) {
	if ConversionRate(5, 0) != 0 {
		t.Fatalf("no users must give 0")
	}
	if ConversionRate(1, 4) != 25 {
		t.Fatalf("expected 25")
	}
}

func TestAdminStatsCachedInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer cache.Close()

	w := newWorld(t, cache)
	ctx := context.Background()
	w.addUser(t, "Awa", "AWA000001", now.Add(-time.Hour))

	first, err := w.svc.Admin(ctx)
	if err != nil {
		t.Fatalf("admin stats: %v", err)
	}
	if !mr.Exists(adminSummary) {
		t.Fatalf("expected cached summary")
	}

	w.addUser(t, "Yao", "YAO000002", now.Add(-time.Minute))
	second, _ := w.svc.Admin(ctx)
	if second.TotalUsers != first.TotalUsers {
		t.Fatalf("expected cached answer, got %d users", second.TotalUsers)
	}

	w.svc.Invalidate(ctx)
	third, _ := w.svc.Admin(ctx)
	if third.TotalUsers != 2 {
		t.Fatalf("expected fresh answer after invalidation, got %d", third.TotalUsers)
	}

	mr.FastForward(2 * time.Minute)
	if mr.Exists(adminSummary) {
		t.Fatalf("cache entry must expire")
	}
}

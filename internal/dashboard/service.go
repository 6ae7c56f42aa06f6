package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/aumarche/aumarche/internal/apperr"
	"github.com/aumarche/aumarche/internal/identity"
	"github.com/aumarche/aumarche/internal/orders"
	"github.com/aumarche/aumarche/internal/referral"
	"github.com/aumarche/aumarche/internal/rewards"
)

const (
	recentLimit  = 5
	newUserSpan  = 7 * 24 * time.Hour
	adminSummary = "dashboard:admin:v1"
)

// ReferredUser is a referral row with the referred user's display name.
type ReferredUser struct {
	referral.Referral
	Name string `json:"name"`
}

// UserView is everything the user dashboard shows.
type UserView struct {
	User             identity.User          `json:"user"`
	ReferralLink     string                 `json:"referral_link"`
	ReferralCount    int                    `json:"referral_count"`
	Standing         referral.Standing      `json:"standing"`
	AvailableRewards []referral.Offer       `json:"available_rewards"`
	Referrals        []ReferredUser         `json:"referrals"`
	Rewards          []rewards.Reward       `json:"rewards"`
	OrderTotal       int64                  `json:"order_total"`
	Share            referral.ShareMessages `json:"share"`
}

// RecentOrder is an order with its buyer's name.
type RecentOrder struct {
	orders.Order
	UserName string `json:"user_name"`
}

// AdminStats is the platform summary shown to admins.
type AdminStats struct {
	TotalUsers     int             `json:"total_users"`
	TotalReferrals int             `json:"total_referrals"`
	TotalOrders    int             `json:"total_orders"`
	Revenue        int64           `json:"revenue"`
	NewUsers7d     int             `json:"new_users_7d"`
	ConversionRate float64         `json:"conversion_rate"`
	RecentUsers    []identity.User `json:"recent_users"`
	RecentOrders   []RecentOrder   `json:"recent_orders"`
	GeneratedAt    time.Time       `json:"generated_at"`
}

// Service aggregates the dashboards.
type Service struct {
	users     identity.Repository
	referrals *referral.Service
	orders    *orders.Service
	rewards   *rewards.Service
	cache     *redis.Client
	cacheTTL  time.Duration
	baseURL   string
	logger    *slog.Logger
	now       func() time.Time
}

// Options carries the optional collaborators of a Service.
type Options struct {
	Cache    *redis.Client
	CacheTTL time.Duration
	BaseURL  string
	Logger   *slog.Logger
}

// NewService builds a dashboard Service.
func NewService(users identity.Repository, referrals *referral.Service, orderSvc *orders.Service, rewardSvc *rewards.Service, opts Options) *Service {
	return &Service{
		users:     users,
		referrals: referrals,
		orders:    orderSvc,
		rewards:   rewardSvc,
		cache:     opts.Cache,
		cacheTTL:  opts.CacheTTL,
		baseURL:   opts.BaseURL,
		logger:    opts.Logger,
		now:       time.Now,
	}
}

// User builds the dashboard of userID.
func (s *Service) User(ctx context.Context, userID string) (UserView, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if apperr.KindOf(err) != apperr.KindUpstream {
			return UserView{}, err
		}
		return UserView{}, apperr.Upstream(fmt.Errorf("load user: %w", err))
	}

	refs, err := s.referrals.ListByReferrer(ctx, userID)
	if err != nil {
		return UserView{}, apperr.Upstream(fmt.Errorf("list referrals: %w", err))
	}
	referred, err := s.names(ctx, refs)
	if err != nil {
		return UserView{}, err
	}

	list, err := s.rewards.ListByUser(ctx, userID)
	if err != nil {
		return UserView{}, apperr.Upstream(fmt.Errorf("list rewards: %w", err))
	}
	if list == nil {
		list = []rewards.Reward{}
	}

	total, err := s.orders.TotalByUser(ctx, userID)
	if err != nil {
		return UserView{}, apperr.Upstream(fmt.Errorf("order total: %w", err))
	}

	standing := referral.ComputeTier(len(refs))
	return UserView{
		User:             user,
		ReferralLink:     referral.ReferralURL(s.baseURL, user.ReferralCode),
		ReferralCount:    len(refs),
		Standing:         standing,
		AvailableRewards: referral.AvailableRewards(standing.Tier),
		Referrals:        referred,
		Rewards:          list,
		OrderTotal:       total,
		Share:            referral.Share(s.baseURL, user.ReferralCode),
	}, nil
}

func (s *Service) names(ctx context.Context, refs []referral.Referral) ([]ReferredUser, error) {
	out := make([]ReferredUser, 0, len(refs))
	if len(refs) == 0 {
		return out, nil
	}
	ids := make([]string, 0, len(refs))
	for _, ref := range refs {
		ids = append(ids, ref.ReferredUserID)
	}
	users, err := s.users.ListByIDs(ctx, ids)
	if err != nil {
		return nil, apperr.Upstream(fmt.Errorf("load referred users: %w", err))
	}
	byID := make(map[string]string, len(users))
	for _, u := range users {
		byID[u.ID] = u.Name
	}
	for _, ref := range refs {
		out = append(out, ReferredUser{Referral: ref, Name: byID[ref.ReferredUserID]})
	}
	return out, nil
}

// Admin returns the platform statistics, from cache when fresh.
func (s *Service) Admin(ctx context.Context) (AdminStats, error) {
	if stats, ok := s.cached(ctx); ok {
		return stats, nil
	}
	stats, err := s.computeAdmin(ctx)
	if err != nil {
		return AdminStats{}, err
	}
	s.store(ctx, stats)
	return stats, nil
}

func (s *Service) computeAdmin(ctx context.Context) (AdminStats, error) {
	now := s.now().UTC()
	var (
		stats AdminStats
		err   error
	)
	if stats.TotalUsers, err = s.users.Count(ctx); err != nil {
		return AdminStats{}, apperr.Upstream(fmt.Errorf("count users: %w", err))
	}
	if stats.TotalReferrals, err = s.referrals.Count(ctx); err != nil {
		return AdminStats{}, apperr.Upstream(fmt.Errorf("count referrals: %w", err))
	}
	if stats.TotalOrders, err = s.orders.Count(ctx); err != nil {
		return AdminStats{}, apperr.Upstream(fmt.Errorf("count orders: %w", err))
	}
	if stats.Revenue, err = s.orders.Revenue(ctx); err != nil {
		return AdminStats{}, apperr.Upstream(fmt.Errorf("sum revenue: %w", err))
	}
	if stats.NewUsers7d, err = s.users.CountSince(ctx, now.Add(-newUserSpan)); err != nil {
		return AdminStats{}, apperr.Upstream(fmt.Errorf("count new users: %w", err))
	}
	stats.ConversionRate = ConversionRate(stats.TotalOrders, stats.TotalUsers)

	if stats.RecentUsers, err = s.users.Recent(ctx, recentLimit); err != nil {
		return AdminStats{}, apperr.Upstream(fmt.Errorf("recent users: %w", err))
	}
	if stats.RecentUsers == nil {
		stats.RecentUsers = []identity.User{}
	}

	recent, err := s.orders.Recent(ctx, recentLimit)
	if err != nil {
		return AdminStats{}, apperr.Upstream(fmt.Errorf("recent orders: %w", err))
	}
	if stats.RecentOrders, err = s.buyers(ctx, recent); err != nil {
		return AdminStats{}, err
	}
	stats.GeneratedAt = now
	return stats, nil
}

func (s *Service) buyers(ctx context.Context, list []orders.Order) ([]RecentOrder, error) {
	out := make([]RecentOrder, 0, len(list))
	if len(list) == 0 {
		return out, nil
	}
	ids := make([]string, 0, len(list))
	for _, o := range list {
		ids = append(ids, o.UserID)
	}
	users, err := s.users.ListByIDs(ctx, ids)
	if err != nil {
		return nil, apperr.Upstream(fmt.Errorf("load buyers: %w", err))
	}
	byID := make(map[string]string, len(users))
	for _, u := range users {
		byID[u.ID] = u.Name
	}
	for _, o := range list {
		out = append(out, RecentOrder{Order: o, UserName: byID[o.UserID]})
	}
	return out, nil
}

// ConversionRate is orders per user as a percentage, 0 without users.
func ConversionRate(orderCount, userCount int) float64 {
	if userCount <= 0 {
		return 0
	}
	return float64(orderCount) / float64(userCount) * 100
}

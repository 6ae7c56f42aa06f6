package routes

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/aumarche/aumarche/internal/auth"
	"github.com/aumarche/aumarche/internal/config"
	"github.com/aumarche/aumarche/internal/dashboard"
	"github.com/aumarche/aumarche/internal/identity"
	"github.com/aumarche/aumarche/internal/middleware"
	"github.com/aumarche/aumarche/internal/notification"
	"github.com/aumarche/aumarche/internal/orders"
	"github.com/aumarche/aumarche/internal/otp"
	"github.com/aumarche/aumarche/internal/referral"
	"github.com/aumarche/aumarche/internal/rewards"
)

// Deps aggregates shared dependencies required to wire routes. Ctx bounds
// the background workers started by Setup.
type Deps struct {
	Ctx    context.Context
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
}

type repositories struct {
	users     identity.Repository
	accounts  auth.AccountStore
	referrals referral.Repository
	orders    orders.Repository
	rewards   rewards.Repository
	sessions  otp.Repository
}

func newRepositories(db *pgxpool.Pool) repositories {
	if db == nil {
		return repositories{
			users:     identity.NewMemoryRepository(),
			accounts:  auth.NewMemoryAccountStore(),
			referrals: referral.NewMemoryRepository(),
			orders:    orders.NewMemoryRepository(),
			rewards:   rewards.NewMemoryRepository(),
			sessions:  otp.NewMemoryRepository(),
		}
	}
	return repositories{
		users:     identity.NewPostgresRepository(db),
		accounts:  auth.NewPostgresAccountStore(db),
		referrals: referral.NewPostgresRepository(db),
		orders:    orders.NewPostgresRepository(db),
		rewards:   rewards.NewPostgresRepository(db),
		sessions:  otp.NewPostgresRepository(db),
	}
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	// Enforce DB/Redis presence outside of dev, even though config also checks.
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.Env)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.Env)
		}
	}
	if d.Ctx == nil {
		d.Ctx = context.Background()
	}

	// Middlewares
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))
	app.Use(middleware.Audit(d.Logger))

	// Health
	RegisterHealthRoutes(app, d)

	repos := newRepositories(d.DB)
	provider, err := newProvider(d, repos.accounts)
	if err != nil {
		return err
	}

	referralSvc := referral.NewService(repos.referrals, d.Cfg.PublicBaseURL)
	gateway := auth.NewGateway(provider, repos.users, referral.NewGenerator(repos.users), referralSvc, d.Logger)

	var notifier notification.Notifier = notification.NewLoggerNotifier(d.Logger)
	if d.Cfg.SMSWebhookURL != "" {
		notifier = notification.NewWebhookNotifier(d.Cfg.SMSWebhookURL, d.Logger)
	} else if !d.Cfg.IsDev() {
		d.Logger.Warn("SMS_WEBHOOK_URL not set, OTP codes are only logged")
	}
	otpManager := otp.NewManager(
		repos.sessions,
		notification.NewCodeDispatcher(notifier, d.Cfg.OTPWindow),
		gateway,
		otp.Settings{Window: d.Cfg.OTPWindow, MaxAttempts: d.Cfg.OTPMaxAttempts},
		d.Logger,
	)
	otp.NewPurger(repos.sessions, d.Cfg.OTPPurgeEvery, d.Cfg.OTPRetention, d.Logger).Start(d.Ctx)

	orderSvc := orders.NewService(repos.orders)
	rewardSvc := rewards.NewService(repos.rewards)
	dashboardSvc := dashboard.NewService(repos.users, referralSvc, orderSvc, rewardSvc, dashboard.Options{
		Cache:    d.Cache,
		CacheTTL: d.Cfg.AdminStatsTTL,
		BaseURL:  d.Cfg.PublicBaseURL,
		Logger:   d.Logger,
	})

	api := app.Group("/api")

	RegisterOTPRoutes(api, otp.NewHandler(otpManager), middleware.OTPSendLimit(d.Cache, d.Cfg.OTPSendLimit, d.Logger))
	authHandler := auth.NewHandler(gateway)
	idempotency := middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger)
	bearer := middleware.BearerAuth(gateway)
	RegisterAuthRoutes(api, authHandler, idempotency, bearer)

	profileHandler := auth.NewProfileHandler(identity.NewService(repos.users))
	dashboardHandler := dashboard.NewHandler(dashboardSvc)
	orderHandler := orders.NewHandler(orderSvc)
	rewardHandler := rewards.NewHandler(rewardSvc)

	admin := api.Group("/admin", bearer, middleware.RequireAdmin(gateway))
	RegisterAdminRoutes(admin, adminHandlers{
		dashboard: dashboardHandler,
		profiles:  profileHandler,
		referrals: referralSvc,
		orders:    orderHandler,
		rewards:   rewardHandler,
	})

	protected := api.Group("", bearer)
	RegisterAccountRoutes(protected, accountHandlers{
		auth:        authHandler,
		profiles:    profileHandler,
		dashboard:   dashboardHandler,
		orders:      orderHandler,
		rewards:     rewardHandler,
		idempotency: idempotency,
	})

	return nil
}

func newProvider(d Deps, accounts auth.AccountStore) (auth.Provider, error) {
	switch d.Cfg.AuthProvider {
	case config.ProviderGoTrue:
		return auth.NewGoTrueProvider(auth.GoTrueConfig{
			BaseURL:    d.Cfg.AuthURL,
			AnonKey:    d.Cfg.AuthAnonKey,
			ServiceKey: d.Cfg.AuthServiceKey,
		}, d.Logger), nil
	default:
		secret := d.Cfg.JWTSecret
		if secret == "" {
			buf := make([]byte, 32)
			if _, err := rand.Read(buf); err != nil {
				return nil, fmt.Errorf("generate dev jwt secret: %w", err)
			}
			secret = hex.EncodeToString(buf)
			d.Logger.Warn("JWT_SECRET not set, using an ephemeral secret")
		}
		return auth.NewLocalProvider(accounts, secret, d.Cfg.AccessTokenTTL), nil
	}
}

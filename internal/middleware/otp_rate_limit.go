package middleware

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/aumarche/aumarche/internal/apperr"
	"github.com/aumarche/aumarche/internal/otp"
)

const otpRateLimitPrefix = "rl:otp:"

var (
	errTooManyRequests = apperr.New(apperr.KindRateLimit, apperr.MsgTooManyRequests)
	errForbidden       = apperr.New(apperr.KindForbidden, apperr.MsgForbidden)
)

// OTPSendLimit caps code sends per phone and per client IP within a minute
// using Redis. Verify calls on the combined endpoint are not counted.
func OTPSendLimit(cache *redis.Client, maxPerMin int, logger *slog.Logger) fiber.Handler {
	if maxPerMin <= 0 {
		maxPerMin = 3
	}
	return func(c *fiber.Ctx) error {
		if cache == nil {
			return c.Next()
		}
		var req struct {
			Phone  string `json:"phone"`
			Action string `json:"action"`
		}
		_ = c.BodyParser(&req)
		if req.Action != "" && !strings.EqualFold(strings.TrimSpace(req.Action), "send") {
			return c.Next()
		}

		keys := []string{otpRateLimitPrefix + "ip:" + otp.ClientIP(c)}
		if phone := strings.TrimSpace(req.Phone); phone != "" {
			keys = append(keys, otpRateLimitPrefix+"phone:"+phone)
		}
		for _, key := range keys {
			over, err := exceeded(c.UserContext(), cache, key, int64(maxPerMin))
			if err != nil {
				if logger != nil {
					logger.Warn("otp rate limit unavailable", slog.String("key", key), slog.Any("error", err))
				}
				return c.Next()
			}
			if over {
				return errTooManyRequests
			}
		}
		return c.Next()
	}
}

func exceeded(ctx context.Context, cache *redis.Client, key string, limit int64) (bool, error) {
	cnt, err := cache.Incr(ctx, key).Result()
	if err != nil {
		return false, err
	}
	if cnt == 1 {
		cache.Expire(ctx, key, time.Minute)
	}
	return cnt > limit, nil
}

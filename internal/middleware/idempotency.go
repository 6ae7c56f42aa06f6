package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/aumarche/aumarche/internal/apperr"
	"github.com/aumarche/aumarche/internal/auth"
)

const (
	idempotencyKeyHeader = "Idempotency-Key"
	replayedHeader       = "Idempotent-Replayed"
	idempotencyPrefix    = "idem:v2:"
	inProgressMarker     = "-"
	idempotencyTimeout   = 2 * time.Second
)

type replay struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        string `json:"body"`
}

var errDuplicateRequest = apperr.New(apperr.KindDuplicate, "Requête déjà en cours de traitement")

// Idempotency makes signup and order creation safe to retry. A request
// carrying an Idempotency-Key already answered with a 2xx within ttl gets
// the same response again, and a request whose key is still being handled
// is rejected. Keys are scoped to the route and caller. Requests without the
// header pass through, as do all requests while Redis is absent or failing.
func Idempotency(cache *redis.Client, ttl time.Duration, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := strings.TrimSpace(c.Get(idempotencyKeyHeader))
		if key == "" || cache == nil || c.Method() == fiber.MethodGet {
			return c.Next()
		}
		userID, _ := c.Locals(auth.LocalsUserID).(string)
		cacheKey := idempotencyPrefix + c.Path() + ":" + userID + ":" + key

		ctx, cancel := context.WithTimeout(c.UserContext(), idempotencyTimeout)
		reserved, err := cache.SetNX(ctx, cacheKey, inProgressMarker, ttl).Result()
		cancel()
		if err != nil {
			logger.Warn("idempotency reservation failed, passing through", "error", err)
			return c.Next()
		}
		if !reserved {
			return replayStored(c, cache, cacheKey, logger)
		}

		handlerErr := c.Next()
		status := c.Response().StatusCode()
		if handlerErr != nil || status < http.StatusOK || status >= http.StatusMultipleChoices {
			release(cache, cacheKey, logger)
			return handlerErr
		}

		payload, err := json.Marshal(replay{
			Status:      status,
			ContentType: string(c.Response().Header.ContentType()),
			Body:        string(c.Response().Body()),
		})
		if err != nil {
			release(cache, cacheKey, logger)
			return nil
		}
		ctx, cancel = context.WithTimeout(context.Background(), idempotencyTimeout)
		defer cancel()
		if err := cache.Set(ctx, cacheKey, payload, ttl).Err(); err != nil {
			logger.Warn("store idempotent response", "error", err)
		}
		return nil
	}
}

func replayStored(c *fiber.Ctx, cache *redis.Client, cacheKey string, logger *slog.Logger) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), idempotencyTimeout)
	defer cancel()
	raw, err := cache.Get(ctx, cacheKey).Result()
	if err != nil || raw == inProgressMarker {
		return errDuplicateRequest
	}
	var stored replay
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		logger.Warn("decode idempotent response", "error", err)
		return errDuplicateRequest
	}
	c.Set(replayedHeader, "true")
	if stored.ContentType != "" {
		c.Set(fiber.HeaderContentType, stored.ContentType)
	}
	return c.Status(stored.Status).SendString(stored.Body)
}

func release(cache *redis.Client, cacheKey string, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), idempotencyTimeout)
	defer cancel()
	if err := cache.Del(ctx, cacheKey).Err(); err != nil {
		logger.Warn("release idempotency key", "error", err)
	}
}

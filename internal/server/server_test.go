package server

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/aumarche/aumarche/internal/config"
	"github.com/aumarche/aumarche/internal/logging"
)

func testConfig() config.Config {
	return config.Config{
		AppName:        "aumarche-test",
		Env:            "test",
		AuthProvider:   config.ProviderLocal,
		JWTSecret:      "test-secret",
		AccessTokenTTL: time.Hour,
		OTPWindow:      5 * time.Minute,
		OTPMaxAttempts: 5,
		OTPSendLimit:   2,
		OTPPurgeEvery:  time.Hour,
		OTPRetention:   24 * time.Hour,
		PublicBaseURL:  "https://aumarche.test",
		AdminStatsTTL:  time.Minute,
		IdempotencyTTL: time.Minute,
		ProxyHeader:    "X-Forwarded-For",
	}
}

func TestForgedForwardingHeaderDoesNotResetSendLimit(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer cache.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	srv, err := New(ctx, testConfig(), nil, cache, logging.Discard())
	if err != nil {
		t.Fatalf("new server: %v", err)
	}

	accepted := 0
	for i := 0; i < 10; i++ {
		body := fmt.Sprintf(`{"phone":"+22507000000%02d"}`, i)
		req := httptest.NewRequest(fiber.MethodPost, "/api/send-otp", strings.NewReader(body))
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		req.Header.Set(fiber.HeaderXForwardedFor, fmt.Sprintf("41.202.0.%d", i+1))
		resp, err := srv.App().Test(req, -1)
		if err != nil {
			t.Fatalf("app.Test: %v", err)
		}
		resp.Body.Close()
		switch resp.StatusCode {
		case http.StatusOK:
			accepted++
		case http.StatusTooManyRequests:
		default:
			t.Fatalf("unexpected status %d", resp.StatusCode)
		}
	}
	if accepted != 2 {
		t.Fatalf("expected the per-IP limit of 2 to hold, got %d accepted", accepted)
	}
}

func TestFiberConfigTrustsOnlyConfiguredProxies(t *testing.T) {
	cfg := testConfig()
	if fc := fiberConfig(cfg, logging.Discard()); fc.EnableTrustedProxyCheck || fc.ProxyHeader != "" {
		t.Fatalf("no proxy header without trusted proxies, got %+v", fc)
	}

	cfg.TrustedProxies = []string{"10.0.0.0/8"}
	fc := fiberConfig(cfg, logging.Discard())
	if !fc.EnableTrustedProxyCheck || fc.ProxyHeader != "X-Forwarded-For" || len(fc.TrustedProxies) != 1 {
		t.Fatalf("expected trusted proxy settings, got %+v", fc)
	}
}

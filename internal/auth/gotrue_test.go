package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aumarche/aumarche/internal/apperr"
	"github.com/aumarche/aumarche/internal/logging"
)

func newGoTrueServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/v1/admin/users", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("apikey") != "service" || r.Header.Get("Authorization") != "Bearer service" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["email"] == "taken@example.ci" {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`{"msg":"User already registered"}`))
			return
		}
		_, _ = w.Write([]byte(`{"id":"5b0f8d4e-7c55-4d1b-9d3e-1f2a3b4c5d6e"}`))
	})
	mux.HandleFunc("/auth/v1/token", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if r.URL.Query().Get("grant_type") != "password" || body["password"] != "motdepasse" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		_, _ = w.Write([]byte(`{"access_token":"tok","token_type":"bearer","expires_in":3600,"user":{"id":"u-1"}}`))
	})
	mux.HandleFunc("/auth/v1/user", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"id":"u-1"}`))
	})
	mux.HandleFunc("/auth/v1/verify", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["type"] != "sms" || body["token"] != "123456" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		_, _ = w.Write([]byte(`{"access_token":"tok","expires_in":3600,"user":{"id":"u-1"}}`))
	})
	mux.HandleFunc("/auth/v1/otp", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		switch {
		case body["channel"] != "sms" || body["create_user"] != false:
			w.WriteHeader(http.StatusBadRequest)
		case body["phone"] == "+2250799999999":
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`{"msg":"Signups not allowed for otp"}`))
		case body["phone"] == "+2250788888888":
			w.WriteHeader(http.StatusTooManyRequests)
		default:
			_, _ = w.Write([]byte(`{}`))
		}
	})
	mux.HandleFunc("/auth/v1/logout", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("/auth/v1/boom/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestGoTrueProvider(t *testing.T) {
	srv := newGoTrueServer(t)
	p := NewGoTrueProvider(GoTrueConfig{BaseURL: srv.URL + "/auth/v1/", AnonKey: "anon", ServiceKey: "service"}, logging.Discard())
	ctx := context.Background()

	id, err := p.CreateAccount(ctx, NewAccount{Email: "awa@example.ci", Phone: "+2250700000001", Password: "motdepasse"})
	if err != nil || id == "" {
		t.Fatalf("create account: %q %v", id, err)
	}
	if _, err := p.CreateAccount(ctx, NewAccount{Email: "taken@example.ci", Password: "motdepasse"}); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected duplicate, got %v", err)
	}

	session, err := p.SignIn(ctx, "awa@example.ci", "motdepasse")
	if err != nil || session.AccessToken != "tok" || session.UserID != "u-1" {
		t.Fatalf("sign in: %+v %v", session, err)
	}
	if _, err := p.SignIn(ctx, "awa@example.ci", "wrong"); !errors.Is(err, ErrBadCredentials) {
		t.Fatalf("expected bad credentials, got %v", err)
	}

	if uid, err := p.Authenticate(ctx, "tok"); err != nil || uid != "u-1" {
		t.Fatalf("authenticate: %q %v", uid, err)
	}
	if _, err := p.Authenticate(ctx, "bad"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected invalid token, got %v", err)
	}

	verified, err := p.VerifyPhone(ctx, "+2250700000001", "123456")
	if err != nil || verified.TokenType != "bearer" {
		t.Fatalf("verify phone: %+v %v", verified, err)
	}
	if _, err := p.VerifyPhone(ctx, "+2250700000001", "000000"); !apperr.Has(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	if err := p.SignOut(ctx, "tok"); err != nil {
		t.Fatalf("sign out: %v", err)
	}
}

func TestGoTrueProviderUpstreamFailure(t *testing.T) {
	srv := newGoTrueServer(t)
	p := NewGoTrueProvider(GoTrueConfig{BaseURL: srv.URL + "/auth/v1/boom", AnonKey: "anon", ServiceKey: "service"}, logging.Discard())

	_, err := p.SignIn(context.Background(), "awa@example.ci", "motdepasse")
	if apperr.KindOf(err) != apperr.KindUpstream {
		t.Fatalf("expected upstream error, got %v", err)
	}
}

func TestGoTrueSendPhoneOTP(t *testing.T) {
	srv := newGoTrueServer(t)
	p := NewGoTrueProvider(GoTrueConfig{BaseURL: srv.URL + "/auth/v1", AnonKey: "anon", ServiceKey: "service"}, logging.Discard())
	ctx := context.Background()

	if !p.IssuesPhoneCodes() {
		t.Fatalf("gotrue issues its own phone codes")
	}
	if err := p.SendPhoneOTP(ctx, "+2250700000001"); err != nil {
		t.Fatalf("send phone otp: %v", err)
	}
	if err := p.SendPhoneOTP(ctx, "+2250799999999"); !errors.Is(err, ErrUnknownPhone) {
		t.Fatalf("expected unknown phone, got %v", err)
	}
	if err := p.SendPhoneOTP(ctx, "+2250788888888"); !apperr.Has(err, apperr.KindRateLimit) {
		t.Fatalf("expected rate limit, got %v", err)
	}

	local := NewLocalProvider(NewMemoryAccountStore(), "secret", 0)
	if local.IssuesPhoneCodes() || local.SendPhoneOTP(ctx, "+2250700000001") != nil {
		t.Fatalf("local provider leaves codes to the otp dispatcher")
	}
}

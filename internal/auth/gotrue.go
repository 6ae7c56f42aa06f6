package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aumarche/aumarche/internal/apperr"
)

// GoTrueConfig locates a GoTrue compatible auth API, for example
// https://<project>.supabase.co/auth/v1.
type GoTrueConfig struct {
	BaseURL    string
	AnonKey    string
	ServiceKey string
}

// GoTrueProvider delegates accounts and sessions to a managed auth API. The
// service key is only used for server side admin calls.
type GoTrueProvider struct {
	hc  *http.Client
	cfg GoTrueConfig
	log *slog.Logger
}

// NewGoTrueProvider builds a GoTrueProvider.
func NewGoTrueProvider(cfg GoTrueConfig, logger *slog.Logger) *GoTrueProvider {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &GoTrueProvider{
		hc:  &http.Client{Timeout: 10 * time.Second},
		cfg: cfg,
		log: logger.With(slog.String("module", "gotrue")),
	}
}

type gotrueUser struct {
	ID string `json:"id"`
}

type gotrueSession struct {
	AccessToken string     `json:"access_token"`
	TokenType   string     `json:"token_type"`
	ExpiresIn   int64      `json:"expires_in"`
	User        gotrueUser `json:"user"`
}

func (s gotrueSession) toSession() Session {
	tokenType := s.TokenType
	if tokenType == "" {
		tokenType = tokenTypeBearer
	}
	return Session{AccessToken: s.AccessToken, TokenType: tokenType, ExpiresIn: s.ExpiresIn, UserID: s.User.ID}
}

// apiError is the status and body of a non-2xx answer.
type apiError struct {
	Status int
	Body   string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("gotrue %d: %s", e.Status, e.Body)
}

func statusOf(err error) int {
	var apiErr *apiError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

func isClientError(err error) bool {
	status := statusOf(err)
	return status >= http.StatusBadRequest && status < http.StatusInternalServerError
}

// CreateAccount creates a confirmed user through the admin API.
func (p *GoTrueProvider) CreateAccount(ctx context.Context, in NewAccount) (string, error) {
	payload := map[string]any{
		"email":         strings.ToLower(in.Email),
		"password":      in.Password,
		"phone":         in.Phone,
		"email_confirm": true,
		"phone_confirm": true,
	}
	var user gotrueUser
	err := p.do(ctx, http.MethodPost, "/admin/users", p.cfg.ServiceKey, "", payload, &user)
	if status := statusOf(err); status == http.StatusUnprocessableEntity || status == http.StatusConflict {
		return "", ErrDuplicate
	}
	if err != nil {
		return "", apperr.Upstream(fmt.Errorf("create account: %w", err))
	}
	if user.ID == "" {
		return "", apperr.Upstream(fmt.Errorf("create account: empty user id"))
	}
	return user.ID, nil
}

// SignIn exchanges email and password for a session.
func (p *GoTrueProvider) SignIn(ctx context.Context, email, password string) (Session, error) {
	var out gotrueSession
	err := p.do(ctx, http.MethodPost, "/token?grant_type=password", p.cfg.AnonKey, "",
		map[string]string{"email": strings.ToLower(email), "password": password}, &out)
	if isClientError(err) {
		return Session{}, ErrBadCredentials
	}
	if err != nil {
		return Session{}, apperr.Upstream(fmt.Errorf("sign in: %w", err))
	}
	return out.toSession(), nil
}

// SignOut revokes the session behind token.
func (p *GoTrueProvider) SignOut(ctx context.Context, token string) error {
	err := p.do(ctx, http.MethodPost, "/logout", p.cfg.AnonKey, token, nil, nil)
	if statusOf(err) == http.StatusUnauthorized {
		return ErrInvalidToken
	}
	if err != nil {
		return apperr.Upstream(fmt.Errorf("sign out: %w", err))
	}
	return nil
}

// Authenticate returns the user id behind token.
func (p *GoTrueProvider) Authenticate(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", ErrInvalidToken
	}
	var user gotrueUser
	err := p.do(ctx, http.MethodGet, "/user", p.cfg.AnonKey, token, nil, &user)
	if isClientError(err) {
		return "", ErrInvalidToken
	}
	if err != nil {
		return "", apperr.Upstream(fmt.Errorf("get user: %w", err))
	}
	if user.ID == "" {
		return "", ErrInvalidToken
	}
	return user.ID, nil
}

// VerifyPhone hands phone and code to the provider's own SMS verification,
// which issues the session.
func (p *GoTrueProvider) VerifyPhone(ctx context.Context, phone, code string) (Session, error) {
	var out gotrueSession
	err := p.do(ctx, http.MethodPost, "/verify", p.cfg.AnonKey, "",
		map[string]string{"type": "sms", "phone": phone, "token": code}, &out)
	if isClientError(err) {
		return Session{}, apperr.Wrap(apperr.KindValidation, apperr.MsgInvalidCode, err)
	}
	if err != nil {
		return Session{}, apperr.Upstream(fmt.Errorf("verify phone: %w", err))
	}
	return out.toSession(), nil
}

// SendPhoneOTP asks the provider to text a login code to phone. Only phones
// of existing accounts are accepted.
func (p *GoTrueProvider) SendPhoneOTP(ctx context.Context, phone string) error {
	err := p.do(ctx, http.MethodPost, "/otp", p.cfg.AnonKey, "",
		map[string]any{"phone": phone, "channel": "sms", "create_user": false}, nil)
	switch status := statusOf(err); {
	case err == nil:
		return nil
	case status == http.StatusTooManyRequests:
		return apperr.Wrap(apperr.KindRateLimit, apperr.MsgTooManyRequests, err)
	case status == http.StatusUnprocessableEntity:
		return fmt.Errorf("%w: %w", ErrUnknownPhone, err)
	case isClientError(err):
		return apperr.Wrap(apperr.KindValidation, apperr.MsgInvalidPhone, err)
	default:
		return apperr.Upstream(fmt.Errorf("send phone otp: %w", err))
	}
}

// IssuesPhoneCodes is true: GoTrue generates, sends and checks SMS codes.
func (p *GoTrueProvider) IssuesPhoneCodes() bool { return true }

func (p *GoTrueProvider) do(ctx context.Context, method, path, apiKey, bearer string, payload, out any) error {
	log := p.log.With(slog.String("method", method), slog.String("path", path))
	started := time.Now()

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.cfg.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", apiKey)
	if bearer == "" {
		bearer = apiKey
	}
	req.Header.Set("Authorization", "Bearer "+bearer)

	resp, err := p.hc.Do(req)
	if err != nil {
		log.Error("request failed", slog.String("error", err.Error()))
		return err
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	log.Debug("gotrue request completed", slog.Int("status", resp.StatusCode), slog.Duration("duration", time.Since(started)))
	if resp.StatusCode >= http.StatusMultipleChoices {
		return &apiError{Status: resp.StatusCode, Body: string(raw)}
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, out)
}

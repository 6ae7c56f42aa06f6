package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// WebhookNotifier posts messages as JSON to an SMS gateway.
type WebhookNotifier struct {
	hc     *http.Client
	url    string
	logger *slog.Logger
}

// NewWebhookNotifier builds a notifier posting to url.
func NewWebhookNotifier(url string, logger *slog.Logger) *WebhookNotifier {
	return &WebhookNotifier{
		hc:     &http.Client{Timeout: 10 * time.Second},
		url:    url,
		logger: logger,
	}
}

// Send posts message and fails on any non-2xx answer.
func (n *WebhookNotifier) Send(ctx context.Context, message Message) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	started := time.Now()
	resp, err := n.hc.Do(req)
	if err != nil {
		return fmt.Errorf("sms gateway: %w", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))

	if n.logger != nil {
		n.logger.Debug("sms gateway request completed", slog.String("kind", message.Kind), slog.Int("status", resp.StatusCode), slog.Duration("duration", time.Since(started)))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("sms gateway %s: %s", resp.Status, body)
	}
	return nil
}

package notification

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

const (
	// KindOTPCode is a one-time login code sent by SMS.
	KindOTPCode = "otp_code"
)

// Message describes a notification payload.
type Message struct {
	Kind        string `json:"kind"`
	Destination string `json:"to"`
	Body        string `json:"body"`
}

// Notifier delivers notifications to downstream systems.
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// LoggerNotifier writes notifications to the logger instead of delivering them.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send writes the message to the structured logger.
func (n *LoggerNotifier) Send(_ context.Context, message Message) error {
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.Info("notification", "kind", message.Kind, "destination", message.Destination, "body", message.Body)
	return nil
}

// CodeDispatcher turns login codes into SMS notifications.
type CodeDispatcher struct {
	notifier Notifier
	window   time.Duration
}

// NewCodeDispatcher builds a CodeDispatcher. window is quoted in the message.
func NewCodeDispatcher(notifier Notifier, window time.Duration) *CodeDispatcher {
	return &CodeDispatcher{notifier: notifier, window: window}
}

// DispatchCode sends code to phone.
func (d *CodeDispatcher) DispatchCode(ctx context.Context, phone, code string) error {
	return d.notifier.Send(ctx, Message{
		Kind:        KindOTPCode,
		Destination: phone,
		Body:        CodeMessage(code, d.window),
	})
}

// CodeMessage is the SMS text carrying a login code.
func CodeMessage(code string, window time.Duration) string {
	minutes := int(window.Minutes())
	if minutes < 1 {
		minutes = 1
	}
	return fmt.Sprintf("Aumarché : votre code de connexion est %s. Il expire dans %d minutes. Ne le partagez avec personne.", code, minutes)
}

// Package notify delivers push alerts through FCM. Threshold alerts and
// status-change alerts from the control engine fan out to every registered
// token of the organisation; delivery guarantees are FCM's problem, not ours.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/syedsohail-123/flostat-dashbaord-sub001/internal/infrastructure/config"
)

// TokenSource resolves the push tokens registered for an org.
// Token registration and membership live outside the core.
type TokenSource interface {
	Tokens(ctx context.Context, orgID string) ([]string, error)
}

// Logger is the minimal logging interface the notifier needs.
type Logger interface {
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Warn(string, ...any) {}

// fcmMessage is the request body for one FCM send.
type fcmMessage struct {
	To           string            `json:"to"`
	Notification fcmNotification   `json:"notification"`
	Data         map[string]string `json:"data,omitempty"`
}

type fcmNotification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// FCMNotifier sends push notifications via the FCM HTTP endpoint, one POST
// per recipient token.
type FCMNotifier struct {
	http    *resty.Client
	cfg     config.FCMConfig
	tokens  TokenSource
	logger  Logger
	enabled bool
}

// NewFCMNotifier creates a notifier from configuration. When FCM is disabled
// in config the notifier is a no-op.
func NewFCMNotifier(cfg config.FCMConfig, tokens TokenSource, logger Logger) *FCMNotifier {
	if logger == nil {
		logger = noopLogger{}
	}

	client := resty.New().
		SetBaseURL(cfg.Endpoint).
		SetTimeout(time.Duration(cfg.TimeoutMS) * time.Millisecond).
		SetHeader("Content-Type", "application/json").
		SetHeader("Authorization", "key="+cfg.ServerKey)

	return &FCMNotifier{
		http:    client,
		cfg:     cfg,
		tokens:  tokens,
		logger:  logger,
		enabled: cfg.Enabled,
	}
}

// Notify fans an alert out to every token registered for the org.
//
// Per-token failures are logged and skipped; Notify only returns an error
// when the token list itself cannot be resolved. Callers treat delivery as
// best effort.
func (n *FCMNotifier) Notify(ctx context.Context, orgID, title, body string, data map[string]string) error {
	if !n.enabled {
		return nil
	}

	tokens, err := n.tokens.Tokens(ctx, orgID)
	if err != nil {
		return fmt.Errorf("resolving push tokens for org %s: %w", orgID, err)
	}

	for _, token := range tokens {
		msg := fcmMessage{
			To:           token,
			Notification: fcmNotification{Title: title, Body: body},
			Data:         data,
		}

		resp, err := n.http.R().
			SetContext(ctx).
			SetBody(msg).
			Post("")
		if err != nil {
			n.logger.Warn("fcm send failed", "org_id", orgID, "error", err)
			continue
		}
		if resp.IsError() {
			n.logger.Warn("fcm send rejected",
				"org_id", orgID, "status", resp.StatusCode())
		}
	}
	return nil
}

// StaticTokenSource is a fixed token list, useful for single-tenant
// deployments and tests.
type StaticTokenSource map[string][]string

// Tokens returns the configured tokens for an org.
func (s StaticTokenSource) Tokens(_ context.Context, orgID string) ([]string, error) {
	return s[orgID], nil
}

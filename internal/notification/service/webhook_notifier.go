package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	apperrors "github.com/allisson/esign/internal/errors"
	"github.com/allisson/esign/internal/notification/domain"
)

// WebhookConfig configures the webhook transport.
type WebhookConfig struct {
	URL        string
	Timeout    time.Duration
	MaxRetries int
}

// WebhookNotifier POSTs notifications as JSON to a single endpoint. Connection errors
// and 5xx responses are retried with backoff.
type WebhookNotifier struct {
	url    string
	client *retryablehttp.Client
}

// NewWebhookNotifier creates a WebhookNotifier. Retry attempts are logged through logger.
func NewWebhookNotifier(cfg WebhookConfig, logger *slog.Logger) (*WebhookNotifier, error) {
	if cfg.URL == "" {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "webhook notifier requires a url")
	}

	client := retryablehttp.NewClient()
	client.RetryMax = cfg.MaxRetries
	client.RetryWaitMin = 200 * time.Millisecond
	client.RetryWaitMax = 5 * time.Second
	client.HTTPClient.Timeout = cfg.Timeout
	client.Logger = nil
	if logger != nil {
		client.Logger = logger
	}
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return &WebhookNotifier{url: cfg.URL, client: client}, nil
}

// Notify delivers n. Any non-2xx final response is an error so the worker retries
// the outbox event later.
func (w *WebhookNotifier) Notify(ctx context.Context, n domain.Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal notification")
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return apperrors.Wrap(err, "failed to build webhook request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Event-Type", n.Type)
	req.Header.Set("Idempotency-Key", n.EventID.String())

	resp, err := w.client.Do(req)
	if err != nil {
		return apperrors.Wrap(err, "webhook delivery failed")
	}
	defer resp.Body.Close() //nolint:errcheck
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook responded with status %d", resp.StatusCode)
	}
	return nil
}

// Package service provides the transports that deliver rendered notifications.
package service

import (
	"context"
	"log/slog"

	"github.com/allisson/esign/internal/notification/domain"
)

// LogNotifier writes notification metadata to the log. The body is never logged
// because it may carry a one-time code.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify logs who would receive n.
func (l *LogNotifier) Notify(ctx context.Context, n domain.Notification) error {
	recipients := make([]string, 0, len(n.To))
	for _, a := range n.To {
		recipients = append(recipients, a.Email)
	}

	l.logger.InfoContext(ctx, "notification dispatched",
		slog.String("event_id", n.EventID.String()),
		slog.String("type", n.Type),
		slog.String("envelope_id", n.EnvelopeID.String()),
		slog.Any("to", recipients),
		slog.String("subject", n.Subject),
	)
	return nil
}

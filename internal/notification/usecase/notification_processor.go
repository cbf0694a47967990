package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/allisson/esign/internal/notification/domain"
)

// Notifier delivers a rendered notification.
type Notifier interface {
	Notify(ctx context.Context, n domain.Notification) error
}

// NotificationProcessor renders outbox events into notifications and hands them to a
// Notifier.
type NotificationProcessor struct {
	notifier Notifier
	appName  string
	logger   *slog.Logger
}

// NewNotificationProcessor creates a NotificationProcessor. appName signs the message
// bodies.
func NewNotificationProcessor(notifier Notifier, appName string, logger *slog.Logger) *NotificationProcessor {
	if appName == "" {
		appName = "esign"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &NotificationProcessor{notifier: notifier, appName: appName, logger: logger}
}

// Process dispatches one event. Unknown event types are skipped.
func (p *NotificationProcessor) Process(ctx context.Context, event *domain.OutboxEvent) error {
	notifications, err := p.render(event)
	if err != nil {
		return err
	}
	if notifications == nil {
		p.logger.Warn("unknown outbox event type", slog.String("event_type", event.EventType))
		return nil
	}

	for _, n := range notifications {
		if err := p.notifier.Notify(ctx, n); err != nil {
			return err
		}
	}
	return nil
}

func (p *NotificationProcessor) render(event *domain.OutboxEvent) ([]domain.Notification, error) {
	switch event.EventType {
	case domain.EventSigningInvitation:
		var inv domain.Invitation
		if err := event.Decode(&inv); err != nil {
			return nil, err
		}
		return []domain.Notification{p.invitation(event, inv)}, nil
	case domain.EventSigningOTP:
		var d domain.OTPDelivery
		if err := event.Decode(&d); err != nil {
			return nil, err
		}
		return []domain.Notification{p.otp(event, d)}, nil
	case domain.EventEnvelopeCompleted:
		var c domain.Completion
		if err := event.Decode(&c); err != nil {
			return nil, err
		}
		return p.completion(event, c), nil
	}
	return nil, nil
}

func (p *NotificationProcessor) invitation(event *domain.OutboxEvent, inv domain.Invitation) domain.Notification {
	subject := inv.Subject
	if subject == "" {
		subject = fmt.Sprintf("Signature requested: %s", inv.DocumentName)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s,\n\n", greeting(inv.Name, inv.Email))
	fmt.Fprintf(&b, "You have been asked to sign %q.\n\n", inv.DocumentName)
	if msg := strings.TrimSpace(inv.Message); msg != "" {
		fmt.Fprintf(&b, "%s\n\n", msg)
	}
	fmt.Fprintf(&b, "Open the document: %s\n", inv.SigningLink)
	fmt.Fprintf(&b, "Your verification code is %s. It expires at %s.\n", inv.OTP, formatTime(inv.OTPExpiresAt))
	p.signOff(&b)

	return domain.Notification{
		EventID:    event.ID,
		Type:       event.EventType,
		EnvelopeID: inv.EnvelopeID,
		To:         []domain.Address{{Email: inv.Email, Name: inv.Name}},
		Subject:    subject,
		Body:       b.String(),
		Link:       inv.SigningLink,
	}
}

func (p *NotificationProcessor) otp(event *domain.OutboxEvent, d domain.OTPDelivery) domain.Notification {
	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s,\n\n", greeting(d.Name, d.Email))
	fmt.Fprintf(&b, "Your verification code is %s. It expires at %s.\n", d.OTP, formatTime(d.ExpiresAt))
	fmt.Fprintf(&b, "Continue signing: %s\n", d.SigningLink)
	p.signOff(&b)

	return domain.Notification{
		EventID:    event.ID,
		Type:       event.EventType,
		EnvelopeID: d.EnvelopeID,
		To:         []domain.Address{{Email: d.Email, Name: d.Name}},
		Subject:    "Your signing verification code",
		Body:       b.String(),
		Link:       d.SigningLink,
	}
}

// completion renders one notification per recipient so each gets their own link.
func (p *NotificationProcessor) completion(event *domain.OutboxEvent, c domain.Completion) []domain.Notification {
	out := make([]domain.Notification, 0, len(c.Recipients))
	for _, r := range c.Recipients {
		var b strings.Builder
		fmt.Fprintf(&b, "Hello %s,\n\n", greeting(r.Name, r.Email))
		fmt.Fprintf(&b, "All parties have signed %q.\n", c.DocumentName)
		fmt.Fprintf(&b, "Completed at %s.\n", formatTime(c.CompletedAt))
		fmt.Fprintf(&b, "SHA-256 of the signed document: %s\n", c.ArtifactHash)
		if r.SigningLink != "" {
			fmt.Fprintf(&b, "Download: %s\n", r.SigningLink)
		}
		p.signOff(&b)

		out = append(out, domain.Notification{
			EventID:    event.ID,
			Type:       event.EventType,
			EnvelopeID: c.EnvelopeID,
			To:         []domain.Address{{Email: r.Email, Name: r.Name}},
			Subject:    fmt.Sprintf("Completed: %s", completionSubject(c)),
			Body:       b.String(),
			Link:       r.SigningLink,
		})
	}
	return out
}

func (p *NotificationProcessor) signOff(b *strings.Builder) {
	fmt.Fprintf(b, "\n-- \n%s\n", p.appName)
}

func completionSubject(c domain.Completion) string {
	if c.Subject != "" {
		return c.Subject
	}
	return c.DocumentName
}

func greeting(name, email string) string {
	if strings.TrimSpace(name) != "" {
		return name
	}
	return email
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC1123)
}

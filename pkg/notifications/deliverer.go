package notifications

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dmitrymomot/notifykit/pkg/email"
	"github.com/dmitrymomot/notifykit/pkg/logger"
)

// Deliverer hands a notification to one non-push delivery channel. The engine
// invokes deliverers best-effort: a delivery failure is logged and never fails
// the send, because the persisted in-app record is the durable source of
// truth.
type Deliverer interface {
	// Deliver sends a single notification.
	Deliver(ctx context.Context, notif Notification) error

	// DeliverBatch sends multiple notifications.
	DeliverBatch(ctx context.Context, notifs []Notification) error
}

// NoOpDeliverer is a deliverer that does nothing.
// Useful for testing or when a channel has no sink configured.
type NoOpDeliverer struct{}

func (NoOpDeliverer) Deliver(ctx context.Context, notif Notification) error {
	return nil
}

func (NoOpDeliverer) DeliverBatch(ctx context.Context, notifs []Notification) error {
	return nil
}

// MultiDeliverer fans a notification out to several sinks, continuing past
// individual failures.
type MultiDeliverer struct {
	deliverers []Deliverer
	logger     *slog.Logger
}

// MultiDelivererOption configures a MultiDeliverer.
type MultiDelivererOption func(*MultiDeliverer)

// WithMultiDelivererLogger sets the logger for the MultiDeliverer.
func WithMultiDelivererLogger(log *slog.Logger) MultiDelivererOption {
	return func(m *MultiDeliverer) {
		if log != nil {
			m.logger = log
		}
	}
}

// NewMultiDeliverer creates a deliverer that forwards to all given sinks.
func NewMultiDeliverer(deliverers []Deliverer, opts ...MultiDelivererOption) *MultiDeliverer {
	m := &MultiDeliverer{
		deliverers: deliverers,
		logger:     slog.Default(),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

func (m *MultiDeliverer) Deliver(ctx context.Context, notif Notification) error {
	for i, d := range m.deliverers {
		if err := d.Deliver(ctx, notif); err != nil {
			m.logger.LogAttrs(ctx, slog.LevelError, "failed to deliver notification",
				logger.NotificationID(notif.ID),
				logger.UserID(notif.UserID),
				slog.Int("deliverer_index", i),
				logger.Error(err),
			)
		}
	}
	return nil
}

func (m *MultiDeliverer) DeliverBatch(ctx context.Context, notifs []Notification) error {
	for i, d := range m.deliverers {
		if err := d.DeliverBatch(ctx, notifs); err != nil {
			m.logger.LogAttrs(ctx, slog.LevelError, "failed to deliver notification batch",
				slog.Int("notification_count", len(notifs)),
				slog.Int("deliverer_index", i),
				logger.Error(err),
			)
		}
	}
	return nil
}

// AddressResolver maps a user ID to an email address. User profiles live
// outside this engine, so address lookup is injected.
type AddressResolver func(ctx context.Context, userID string) (string, error)

// EmailDeliverer delivers notifications through the email channel sink.
type EmailDeliverer struct {
	sender  email.EmailSender
	resolve AddressResolver
	logger  *slog.Logger
}

// EmailDelivererOption configures an EmailDeliverer.
type EmailDelivererOption func(*EmailDeliverer)

// WithEmailDelivererLogger sets the logger for the EmailDeliverer.
func WithEmailDelivererLogger(log *slog.Logger) EmailDelivererOption {
	return func(d *EmailDeliverer) {
		if log != nil {
			d.logger = log
		}
	}
}

// NewEmailDeliverer creates an email channel sink over the given sender.
func NewEmailDeliverer(sender email.EmailSender, resolve AddressResolver, opts ...EmailDelivererOption) *EmailDeliverer {
	d := &EmailDeliverer{
		sender:  sender,
		resolve: resolve,
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

func (d *EmailDeliverer) Deliver(ctx context.Context, notif Notification) error {
	address, err := d.resolve(ctx, notif.UserID)
	if err != nil {
		return fmt.Errorf("resolve address for user %s: %w", notif.UserID, err)
	}

	return d.sender.SendEmail(ctx, email.SendEmailParams{
		SendTo:   address,
		Subject:  notif.Title,
		BodyText: notif.Body,
		Tag:      notif.EventKey,
	})
}

func (d *EmailDeliverer) DeliverBatch(ctx context.Context, notifs []Notification) error {
	for _, notif := range notifs {
		if err := d.Deliver(ctx, notif); err != nil {
			// Keep going; one recipient's bounce is not the batch's problem.
			d.logger.LogAttrs(ctx, slog.LevelError, "failed to deliver notification email",
				logger.NotificationID(notif.ID),
				logger.UserID(notif.UserID),
				logger.Error(err),
			)
		}
	}
	return nil
}

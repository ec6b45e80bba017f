package ports

import (
	"context"

	"github.com/maalej-ala/stage2-auth/internal/core/domain"
)

// NotificationKind names the account lifecycle messages sent to users.
type NotificationKind string

const (
	NotifyRegistrationPending NotificationKind = "registration_pending"
	NotifyAccountActivated    NotificationKind = "account_activated"
	NotifyAccountDeactivated  NotificationKind = "account_deactivated"
)

// Notification is a single message addressed to an account holder.
type Notification struct {
	Kind      NotificationKind
	Email     string
	FirstName string
}

// NewNotification builds a Notification for account.
func NewNotification(kind NotificationKind, account *domain.Account) Notification {
	return Notification{Kind: kind, Email: account.Email, FirstName: account.FirstName}
}

// Notifier delivers a notification synchronously.
type Notifier interface {
	Send(ctx context.Context, n Notification) error
}

// NotificationQueue accepts notifications for best-effort background
// delivery. Enqueue must never block the caller.
type NotificationQueue interface {
	Enqueue(n Notification)
}

package notifications

import (
	"context"
	"time"
)

// ListOptions filters and paginates notification listings.
type ListOptions struct {
	OnlyUnread bool       // keep only unread records
	Types      []Type     // keep only these types; empty means all
	EventKey   string     // keep only records for this event key; empty means all
	Since      *time.Time // keep only records created at or after this time
	Limit      int        // page size; 0 means no limit
	Offset     int        // page start
}

// Storage persists in-app notification records.
type Storage interface {
	// Create stores a new notification record.
	Create(ctx context.Context, notif Notification) error

	// Get returns a single record by user and ID, or ErrNotificationNotFound.
	Get(ctx context.Context, userID, notifID string) (*Notification, error)

	// List returns records for a user, newest first, filtered by opts.
	// Expired records are excluded.
	List(ctx context.Context, userID string, opts ListOptions) ([]Notification, error)

	// MarkRead marks the given records as read. Records already read keep
	// their original read timestamp. Unknown IDs are ignored.
	MarkRead(ctx context.Context, userID string, notifIDs ...string) error

	// Delete removes the given records. Unknown IDs are ignored.
	Delete(ctx context.Context, userID string, notifIDs ...string) error

	// CountUnread returns the number of unread, unexpired records for a user.
	CountUnread(ctx context.Context, userID string) (int, error)
}

package notifications

import (
	"fmt"
	"time"
)

// Type classifies a notification for filtering and preference lookups.
type Type string

const (
	TypeInfo    Type = "info"
	TypeSuccess Type = "success"
	TypeWarning Type = "warning"
	TypeError   Type = "error"
	TypeSystem  Type = "system"
	TypeProduct Type = "product"
	TypeOrder   Type = "order"
	TypeUser    Type = "user"
)

// AllTypes returns every known notification type.
func AllTypes() []Type {
	return []Type{
		TypeInfo, TypeSuccess, TypeWarning, TypeError,
		TypeSystem, TypeProduct, TypeOrder, TypeUser,
	}
}

// Valid reports whether t is a known notification type.
func (t Type) Valid() bool {
	switch t {
	case TypeInfo, TypeSuccess, TypeWarning, TypeError,
		TypeSystem, TypeProduct, TypeOrder, TypeUser:
		return true
	}
	return false
}

// Channel is a delivery medium.
type Channel string

const (
	ChannelPush     Channel = "push"
	ChannelEmail    Channel = "email"
	ChannelInApp    Channel = "in_app"
	ChannelSMS      Channel = "sms"
	ChannelTelegram Channel = "telegram"
)

// AllChannels returns every known delivery channel.
func AllChannels() []Channel {
	return []Channel{ChannelPush, ChannelEmail, ChannelInApp, ChannelSMS, ChannelTelegram}
}

// Valid reports whether c is a known delivery channel.
func (c Channel) Valid() bool {
	switch c {
	case ChannelPush, ChannelEmail, ChannelInApp, ChannelSMS, ChannelTelegram:
		return true
	}
	return false
}

// Frequency controls how often a channel may carry notifications of a type.
type Frequency string

const (
	FrequencyImmediate Frequency = "immediate"
	FrequencyHourly    Frequency = "hourly"
	FrequencyDaily     Frequency = "daily"
	FrequencyWeekly    Frequency = "weekly"
	FrequencyNever     Frequency = "never"
)

// Valid reports whether f is a known delivery frequency.
func (f Frequency) Valid() bool {
	switch f {
	case FrequencyImmediate, FrequencyHourly, FrequencyDaily, FrequencyWeekly, FrequencyNever:
		return true
	}
	return false
}

// Notification is the persisted in-app record. It is created once and mutated
// only through MarkAsRead and the sent-at stamp.
type Notification struct {
	ID        string         `json:"id"`
	UserID    string         `json:"user_id"`
	Type      Type           `json:"type"`
	Title     string         `json:"title"`
	Body      string         `json:"body"`
	ActionURL string         `json:"action_url,omitempty"`
	IconURL   string         `json:"icon_url,omitempty"`
	ImageURL  string         `json:"image_url,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
	EventKey  string         `json:"event_key,omitempty"`
	Read      bool           `json:"read"`
	ReadAt    *time.Time     `json:"read_at,omitempty"`
	SentAt    *time.Time     `json:"sent_at,omitempty"`
	ExpiresAt *time.Time     `json:"expires_at,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// Validate checks the fields required for persistence.
func (n Notification) Validate() error {
	if n.UserID == "" {
		return fmt.Errorf("%w: user ID is required", ErrInvalidNotification)
	}
	if n.Title == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidNotification)
	}
	if n.Type != "" && !n.Type.Valid() {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidNotification, n.Type)
	}
	return nil
}

// MarkAsRead marks the notification as read. A second call is a no-op so
// ReadAt always reflects the first read.
func (n *Notification) MarkAsRead() {
	if n.Read {
		return
	}
	n.Read = true
	now := time.Now()
	n.ReadAt = &now
}

// IsExpired returns true if the notification has expired.
func (n *Notification) IsExpired() bool {
	if n.ExpiresAt == nil {
		return false
	}
	return time.Now().After(*n.ExpiresAt)
}

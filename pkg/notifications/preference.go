package notifications

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Preference is one user's delivery setting for a (type, channel) pair.
// Absence of an entry means the channel is enabled: an unconfigured
// preference never blocks a notification.
type Preference struct {
	UserID             string         `json:"user_id"`
	Type               Type           `json:"type"`
	Channel            Channel        `json:"channel"`
	Enabled            bool           `json:"enabled"`
	Frequency          Frequency      `json:"frequency"`
	QuietHoursStart    string         `json:"quiet_hours_start,omitempty"`    // "HH:mm", local to QuietHoursTimezone
	QuietHoursEnd      string         `json:"quiet_hours_end,omitempty"`      // "HH:mm"
	QuietHoursTimezone string         `json:"quiet_hours_timezone,omitempty"` // IANA name; overrides the caller's timezone
	Settings           map[string]any `json:"settings,omitempty"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
}

// Validate checks the entry before persistence. Malformed quiet-hour strings
// are rejected here rather than silently ignored at resolution time.
func (p Preference) Validate() error {
	if p.UserID == "" {
		return fmt.Errorf("%w: user ID is required", ErrInvalidPreference)
	}
	if !p.Type.Valid() {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidPreference, p.Type)
	}
	if !p.Channel.Valid() {
		return fmt.Errorf("%w: unknown channel %q", ErrInvalidPreference, p.Channel)
	}
	if !p.Frequency.Valid() {
		return fmt.Errorf("%w: unknown frequency %q", ErrInvalidPreference, p.Frequency)
	}
	if p.QuietHoursStart != "" {
		if _, err := parseMinuteOfDay(p.QuietHoursStart); err != nil {
			return fmt.Errorf("%w: quiet hours start: %v", ErrInvalidPreference, err)
		}
	}
	if p.QuietHoursEnd != "" {
		if _, err := parseMinuteOfDay(p.QuietHoursEnd); err != nil {
			return fmt.Errorf("%w: quiet hours end: %v", ErrInvalidPreference, err)
		}
	}
	if p.QuietHoursTimezone != "" {
		if _, err := time.LoadLocation(p.QuietHoursTimezone); err != nil {
			return fmt.Errorf("%w: quiet hours timezone: %v", ErrInvalidPreference, err)
		}
	}
	return nil
}

// InQuietHours reports whether now falls inside the entry's quiet-hour
// window. The window is evaluated in the entry's timezone when set, otherwise
// in fallbackTimezone, otherwise UTC. A window with either bound unset is
// never quiet. Both bounds are inclusive; a start after the end means the
// window spans midnight.
func (p Preference) InQuietHours(now time.Time, fallbackTimezone string) bool {
	if p.QuietHoursStart == "" || p.QuietHoursEnd == "" {
		return false
	}

	start, err := parseMinuteOfDay(p.QuietHoursStart)
	if err != nil {
		return false
	}
	end, err := parseMinuteOfDay(p.QuietHoursEnd)
	if err != nil {
		return false
	}

	tz := p.QuietHoursTimezone
	if tz == "" {
		tz = fallbackTimezone
	}
	loc := time.UTC
	if tz != "" {
		if l, err := time.LoadLocation(tz); err == nil {
			loc = l
		}
	}

	local := now.In(loc)
	current := local.Hour()*60 + local.Minute()

	if start <= end {
		return current >= start && current <= end
	}
	return current >= start || current <= end
}

// parseMinuteOfDay converts a strict "HH:mm" string into minutes since
// midnight.
func parseMinuteOfDay(s string) (int, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 || len(parts[0]) != 2 || len(parts[1]) != 2 {
		return 0, fmt.Errorf("%q is not in HH:mm format", s)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, fmt.Errorf("%q has an invalid hour", s)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("%q has an invalid minute", s)
	}
	return hour*60 + minute, nil
}

// PreferenceStore holds per (user, type, channel) delivery settings.
type PreferenceStore interface {
	// Get returns the entry for the unique (user, type, channel) key, or
	// ErrPreferenceNotFound. Callers resolving channels treat absence as
	// enabled.
	Get(ctx context.Context, userID string, t Type, ch Channel) (*Preference, error)

	// Upsert creates or updates the entry by its unique key.
	// The entry must pass Validate.
	Upsert(ctx context.Context, pref Preference) error

	// BulkUpsert applies many entries. Each entry is applied independently;
	// failures are collected and returned joined so no entry fails silently.
	BulkUpsert(ctx context.Context, prefs []Preference) error

	// EnabledChannelsFor returns the channels with an explicit enabled entry
	// for the given (user, type).
	EnabledChannelsFor(ctx context.Context, userID string, t Type) ([]Channel, error)

	// InitializeDefaultsForUser creates an enabled, immediate-frequency entry
	// for every (type, channel) combination the user has no entry for yet.
	InitializeDefaultsForUser(ctx context.Context, userID string) error
}

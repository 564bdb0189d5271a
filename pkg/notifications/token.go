package notifications

import (
	"context"
	"time"
)

// DeviceToken is one push-capable device registration. Tokens are unique per
// (user, token) pair; re-registering an existing token refreshes its
// last-active timestamp.
type DeviceToken struct {
	UserID       string    `json:"user_id"`
	Token        string    `json:"token"`
	Platform     string    `json:"platform,omitempty"` // ios, android, web
	DeviceInfo   string    `json:"device_info,omitempty"`
	LastActiveAt time.Time `json:"last_active_at"`
}

// Validate checks the fields required for registration.
func (t DeviceToken) Validate() error {
	if t.UserID == "" {
		return ErrUserIDRequired
	}
	if t.Token == "" {
		return ErrTokenRequired
	}
	return nil
}

// TokenRegistry tracks which push tokens belong to which user.
//
// Tokens leave the registry two ways: the owning user unregisters the device,
// or the push gateway reports the token permanently invalid and the engine
// prunes it. Pruning is advisory cleanup; registry implementations must treat
// unknown tokens as a no-op.
type TokenRegistry interface {
	// Register upserts a token by (user, token) and refreshes LastActiveAt.
	Register(ctx context.Context, token DeviceToken) error

	// TokensFor returns all tokens registered to a user.
	TokensFor(ctx context.Context, userID string) ([]string, error)

	// RemoveByToken removes a token regardless of owner.
	RemoveByToken(ctx context.Context, token string) error

	// RemoveByUserAndToken removes a token for a specific user.
	RemoveByUserAndToken(ctx context.Context, userID, token string) error

	// PruneInvalid removes tokens reported permanently invalid by the
	// gateway. Unknown tokens are ignored.
	PruneInvalid(ctx context.Context, tokens []string) error
}

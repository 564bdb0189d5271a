package notifications

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ChannelPolicy is the administrative allow-list of channels for one event key.
type ChannelPolicy struct {
	EventKey        string            `json:"event_key"`
	DisplayName     string            `json:"display_name,omitempty"`
	AllowedChannels []Channel         `json:"allowed_channels"`
	IsActive        bool              `json:"is_active"`
	Metadata        map[string]string `json:"metadata,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// Validate checks the policy before persistence. An empty allow-list is
// rejected: a policy that allows nothing should be deactivated instead, so
// suppression is always an explicit decision.
func (p ChannelPolicy) Validate() error {
	if p.EventKey == "" {
		return fmt.Errorf("%w: event key is required", ErrInvalidPolicy)
	}
	if len(p.AllowedChannels) == 0 {
		return fmt.Errorf("%w: allowed channels must not be empty", ErrInvalidPolicy)
	}
	for _, ch := range p.AllowedChannels {
		if !ch.Valid() {
			return fmt.Errorf("%w: unknown channel %q", ErrInvalidPolicy, ch)
		}
	}
	return nil
}

// Allows reports whether the policy permits the given channel.
func (p ChannelPolicy) Allows(ch Channel) bool {
	for _, allowed := range p.AllowedChannels {
		if allowed == ch {
			return true
		}
	}
	return false
}

// DefaultAllowedChannels is the allow-list applied to event keys with no
// configured policy. New event types start conservative: no SMS, no telegram.
func DefaultAllowedChannels() []Channel {
	return []Channel{ChannelPush, ChannelEmail, ChannelInApp}
}

// PolicyStore holds per-event channel allow-lists.
type PolicyStore interface {
	// Get returns the policy for an event key, or ErrPolicyNotFound.
	Get(ctx context.Context, eventKey string) (*ChannelPolicy, error)

	// Upsert creates or replaces the policy keyed by event key.
	// The policy must pass Validate.
	Upsert(ctx context.Context, policy ChannelPolicy) error

	// List returns all stored policies.
	List(ctx context.Context) ([]ChannelPolicy, error)
}

// GetAllowedChannels resolves the allow-list for an event key against a store.
// A missing or deactivated policy falls back to DefaultAllowedChannels; only
// infrastructure failures surface as errors.
func GetAllowedChannels(ctx context.Context, store PolicyStore, eventKey string) ([]Channel, error) {
	policy, err := store.Get(ctx, eventKey)
	if err != nil {
		if errors.Is(err, ErrPolicyNotFound) {
			return DefaultAllowedChannels(), nil
		}
		return nil, err
	}
	if !policy.IsActive {
		return DefaultAllowedChannels(), nil
	}
	return policy.AllowedChannels, nil
}

// InitializeDefaultPolicies idempotently seeds one active policy with the
// default allow-list for every event key that has none yet. Intended for
// startup/bootstrap paths.
func InitializeDefaultPolicies(ctx context.Context, store PolicyStore, eventKeys []string) error {
	for _, key := range eventKeys {
		if _, err := store.Get(ctx, key); err == nil {
			continue
		} else if !errors.Is(err, ErrPolicyNotFound) {
			return err
		}

		if err := store.Upsert(ctx, ChannelPolicy{
			EventKey:        key,
			AllowedChannels: DefaultAllowedChannels(),
			IsActive:        true,
		}); err != nil {
			return err
		}
	}
	return nil
}

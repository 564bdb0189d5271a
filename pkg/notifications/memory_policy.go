package notifications

import (
	"context"
	"sync"
	"time"
)

// MemoryPolicyStore is an in-memory implementation of the PolicyStore interface.
type MemoryPolicyStore struct {
	policies map[string]ChannelPolicy // eventKey -> policy
	mu       sync.RWMutex
}

// NewMemoryPolicyStore creates a new in-memory policy store.
func NewMemoryPolicyStore() *MemoryPolicyStore {
	return &MemoryPolicyStore{
		policies: make(map[string]ChannelPolicy),
	}
}

func (s *MemoryPolicyStore) Get(ctx context.Context, eventKey string) (*ChannelPolicy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	policy, exists := s.policies[eventKey]
	if !exists {
		return nil, ErrPolicyNotFound
	}

	policy.AllowedChannels = append([]Channel(nil), policy.AllowedChannels...)
	return &policy, nil
}

func (s *MemoryPolicyStore) Upsert(ctx context.Context, policy ChannelPolicy) error {
	if err := policy.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if existing, exists := s.policies[policy.EventKey]; exists {
		policy.CreatedAt = existing.CreatedAt
	} else {
		policy.CreatedAt = now
	}
	policy.UpdatedAt = now
	policy.AllowedChannels = append([]Channel(nil), policy.AllowedChannels...)

	s.policies[policy.EventKey] = policy
	return nil
}

func (s *MemoryPolicyStore) List(ctx context.Context) ([]ChannelPolicy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	policies := make([]ChannelPolicy, 0, len(s.policies))
	for _, p := range s.policies {
		p.AllowedChannels = append([]Channel(nil), p.AllowedChannels...)
		policies = append(policies, p)
	}

	return policies, nil
}

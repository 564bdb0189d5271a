package notifications

import (
	"context"
	"sync"
	"time"
)

// MemoryTokenRegistry is an in-memory implementation of the TokenRegistry
// interface.
type MemoryTokenRegistry struct {
	byUser  map[string]map[string]DeviceToken // userID -> token -> registration
	byToken map[string]string                 // token -> userID
	mu      sync.RWMutex
}

// NewMemoryTokenRegistry creates a new in-memory token registry.
func NewMemoryTokenRegistry() *MemoryTokenRegistry {
	return &MemoryTokenRegistry{
		byUser:  make(map[string]map[string]DeviceToken),
		byToken: make(map[string]string),
	}
}

func (r *MemoryTokenRegistry) Register(ctx context.Context, token DeviceToken) error {
	if err := token.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// A token can only belong to one user; a re-register under a different
	// account moves it.
	if owner, exists := r.byToken[token.Token]; exists && owner != token.UserID {
		delete(r.byUser[owner], token.Token)
	}

	if token.LastActiveAt.IsZero() {
		token.LastActiveAt = time.Now()
	}

	if r.byUser[token.UserID] == nil {
		r.byUser[token.UserID] = make(map[string]DeviceToken)
	}
	r.byUser[token.UserID][token.Token] = token
	r.byToken[token.Token] = token.UserID

	return nil
}

func (r *MemoryTokenRegistry) TokensFor(ctx context.Context, userID string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tokens := make([]string, 0, len(r.byUser[userID]))
	for token := range r.byUser[userID] {
		tokens = append(tokens, token)
	}

	return tokens, nil
}

func (r *MemoryTokenRegistry) RemoveByToken(ctx context.Context, token string) error {
	if token == "" {
		return ErrTokenRequired
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.removeLocked(token)
	return nil
}

func (r *MemoryTokenRegistry) RemoveByUserAndToken(ctx context.Context, userID, token string) error {
	if token == "" {
		return ErrTokenRequired
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if owner, exists := r.byToken[token]; !exists || owner != userID {
		return nil
	}
	r.removeLocked(token)
	return nil
}

func (r *MemoryTokenRegistry) PruneInvalid(ctx context.Context, tokens []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, token := range tokens {
		r.removeLocked(token)
	}
	return nil
}

func (r *MemoryTokenRegistry) removeLocked(token string) {
	owner, exists := r.byToken[token]
	if !exists {
		return
	}
	delete(r.byToken, token)
	delete(r.byUser[owner], token)
	if len(r.byUser[owner]) == 0 {
		delete(r.byUser, owner)
	}
}

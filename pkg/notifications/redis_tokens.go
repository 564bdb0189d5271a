package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisTokenRegistry is a Redis-backed implementation of the TokenRegistry
// interface. Each user's tokens live in one hash (token -> registration
// metadata) with a reverse owner index per token so removal by bare token
// stays O(1). Suited to the high-churn token lifecycle where registrations
// are refreshed on every app start.
type RedisTokenRegistry struct {
	client    redis.UniversalClient
	keyPrefix string
}

// RedisTokenRegistryOption configures a RedisTokenRegistry.
type RedisTokenRegistryOption func(*RedisTokenRegistry)

// WithTokenKeyPrefix overrides the default "notifykit:tokens" key prefix.
func WithTokenKeyPrefix(prefix string) RedisTokenRegistryOption {
	return func(r *RedisTokenRegistry) {
		if prefix != "" {
			r.keyPrefix = prefix
		}
	}
}

// NewRedisTokenRegistry creates a Redis-backed token registry.
func NewRedisTokenRegistry(client redis.UniversalClient, opts ...RedisTokenRegistryOption) *RedisTokenRegistry {
	r := &RedisTokenRegistry{
		client:    client,
		keyPrefix: "notifykit:tokens",
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

func (r *RedisTokenRegistry) userKey(userID string) string {
	return fmt.Sprintf("%s:user:%s", r.keyPrefix, userID)
}

func (r *RedisTokenRegistry) ownerKey(token string) string {
	return fmt.Sprintf("%s:owner:%s", r.keyPrefix, token)
}

type redisTokenMeta struct {
	Platform     string    `json:"platform,omitempty"`
	DeviceInfo   string    `json:"device_info,omitempty"`
	LastActiveAt time.Time `json:"last_active_at"`
}

func (r *RedisTokenRegistry) Register(ctx context.Context, token DeviceToken) error {
	if err := token.Validate(); err != nil {
		return err
	}

	if token.LastActiveAt.IsZero() {
		token.LastActiveAt = time.Now()
	}

	meta, err := json.Marshal(redisTokenMeta{
		Platform:     token.Platform,
		DeviceInfo:   token.DeviceInfo,
		LastActiveAt: token.LastActiveAt,
	})
	if err != nil {
		return err
	}

	// A token can only belong to one user; a re-register under a different
	// account moves it.
	owner, err := r.client.Get(ctx, r.ownerKey(token.Token)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}

	pipe := r.client.TxPipeline()
	if owner != "" && owner != token.UserID {
		pipe.HDel(ctx, r.userKey(owner), token.Token)
	}
	pipe.HSet(ctx, r.userKey(token.UserID), token.Token, meta)
	pipe.Set(ctx, r.ownerKey(token.Token), token.UserID, 0)

	_, err = pipe.Exec(ctx)
	return err
}

func (r *RedisTokenRegistry) TokensFor(ctx context.Context, userID string) ([]string, error) {
	tokens, err := r.client.HKeys(ctx, r.userKey(userID)).Result()
	if err != nil {
		return nil, err
	}
	return tokens, nil
}

func (r *RedisTokenRegistry) RemoveByToken(ctx context.Context, token string) error {
	if token == "" {
		return ErrTokenRequired
	}

	owner, err := r.client.Get(ctx, r.ownerKey(token)).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return err
	}

	pipe := r.client.TxPipeline()
	pipe.HDel(ctx, r.userKey(owner), token)
	pipe.Del(ctx, r.ownerKey(token))
	_, err = pipe.Exec(ctx)
	return err
}

func (r *RedisTokenRegistry) RemoveByUserAndToken(ctx context.Context, userID, token string) error {
	if token == "" {
		return ErrTokenRequired
	}

	owner, err := r.client.Get(ctx, r.ownerKey(token)).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return err
	}
	if owner != userID {
		return nil
	}

	pipe := r.client.TxPipeline()
	pipe.HDel(ctx, r.userKey(userID), token)
	pipe.Del(ctx, r.ownerKey(token))
	_, err = pipe.Exec(ctx)
	return err
}

func (r *RedisTokenRegistry) PruneInvalid(ctx context.Context, tokens []string) error {
	var errs []error
	for _, token := range tokens {
		if token == "" {
			continue
		}
		if err := r.RemoveByToken(ctx, token); err != nil {
			errs = append(errs, fmt.Errorf("prune %s: %w", token, err))
		}
	}
	return errors.Join(errs...)
}

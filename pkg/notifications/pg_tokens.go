package notifications

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PGTokenRegistry is a PostgreSQL implementation of the TokenRegistry
// interface backed by the device_tokens table.
type PGTokenRegistry struct {
	pool *pgxpool.Pool
}

// NewPGTokenRegistry creates a Postgres-backed token registry.
func NewPGTokenRegistry(pool *pgxpool.Pool) *PGTokenRegistry {
	return &PGTokenRegistry{pool: pool}
}

func (r *PGTokenRegistry) Register(ctx context.Context, token DeviceToken) error {
	if err := token.Validate(); err != nil {
		return err
	}
	if token.LastActiveAt.IsZero() {
		token.LastActiveAt = time.Now()
	}

	// Token is globally unique; a re-register under a different account
	// moves it to the new owner.
	_, err := r.pool.Exec(ctx, `
		INSERT INTO device_tokens (token, user_id, platform, device_info, last_active_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (token) DO UPDATE SET
			user_id = EXCLUDED.user_id,
			platform = EXCLUDED.platform,
			device_info = EXCLUDED.device_info,
			last_active_at = EXCLUDED.last_active_at`,
		token.Token, token.UserID, token.Platform, token.DeviceInfo, token.LastActiveAt,
	)
	if err != nil {
		return fmt.Errorf("register device token: %w", err)
	}
	return nil
}

func (r *PGTokenRegistry) TokensFor(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT token FROM device_tokens WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("list device tokens: %w", err)
	}
	defer rows.Close()

	tokens := []string{}
	for rows.Next() {
		var token string
		if err := rows.Scan(&token); err != nil {
			return nil, fmt.Errorf("scan device token: %w", err)
		}
		tokens = append(tokens, token)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list device tokens: %w", err)
	}

	return tokens, nil
}

func (r *PGTokenRegistry) RemoveByToken(ctx context.Context, token string) error {
	if token == "" {
		return ErrTokenRequired
	}

	if _, err := r.pool.Exec(ctx,
		`DELETE FROM device_tokens WHERE token = $1`, token); err != nil {
		return fmt.Errorf("remove device token: %w", err)
	}
	return nil
}

func (r *PGTokenRegistry) RemoveByUserAndToken(ctx context.Context, userID, token string) error {
	if token == "" {
		return ErrTokenRequired
	}

	if _, err := r.pool.Exec(ctx,
		`DELETE FROM device_tokens WHERE user_id = $1 AND token = $2`,
		userID, token); err != nil {
		return fmt.Errorf("remove device token: %w", err)
	}
	return nil
}

func (r *PGTokenRegistry) PruneInvalid(ctx context.Context, tokens []string) error {
	if len(tokens) == 0 {
		return nil
	}

	if _, err := r.pool.Exec(ctx,
		`DELETE FROM device_tokens WHERE token = ANY($1)`, tokens); err != nil {
		return fmt.Errorf("prune device tokens: %w", err)
	}
	return nil
}

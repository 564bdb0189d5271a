package notifications

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/notifykit/pkg/pg"
)

// PGPolicyStore is a PostgreSQL implementation of the PolicyStore interface
// backed by the channel_policies table.
type PGPolicyStore struct {
	pool *pgxpool.Pool
}

// NewPGPolicyStore creates a Postgres-backed policy store.
func NewPGPolicyStore(pool *pgxpool.Pool) *PGPolicyStore {
	return &PGPolicyStore{pool: pool}
}

func (s *PGPolicyStore) Get(ctx context.Context, eventKey string) (*ChannelPolicy, error) {
	var p ChannelPolicy
	var channels []string
	err := s.pool.QueryRow(ctx, `
		SELECT event_key, display_name, allowed_channels, is_active, metadata, created_at, updated_at
		FROM channel_policies WHERE event_key = $1`,
		eventKey,
	).Scan(&p.EventKey, &p.DisplayName, &channels, &p.IsActive, &p.Metadata, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, ErrPolicyNotFound
		}
		return nil, fmt.Errorf("get channel policy: %w", err)
	}

	p.AllowedChannels = make([]Channel, len(channels))
	for i, ch := range channels {
		p.AllowedChannels[i] = Channel(ch)
	}
	return &p, nil
}

func (s *PGPolicyStore) Upsert(ctx context.Context, policy ChannelPolicy) error {
	if err := policy.Validate(); err != nil {
		return err
	}

	channels := make([]string, len(policy.AllowedChannels))
	for i, ch := range policy.AllowedChannels {
		channels[i] = string(ch)
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO channel_policies (event_key, display_name, allowed_channels, is_active, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, now(), now())
		ON CONFLICT (event_key) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			allowed_channels = EXCLUDED.allowed_channels,
			is_active = EXCLUDED.is_active,
			metadata = EXCLUDED.metadata,
			updated_at = now()`,
		policy.EventKey, policy.DisplayName, channels, policy.IsActive, policy.Metadata,
	)
	if err != nil {
		return fmt.Errorf("upsert channel policy: %w", err)
	}
	return nil
}

func (s *PGPolicyStore) List(ctx context.Context) ([]ChannelPolicy, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT event_key, display_name, allowed_channels, is_active, metadata, created_at, updated_at
		FROM channel_policies ORDER BY event_key`)
	if err != nil {
		return nil, fmt.Errorf("list channel policies: %w", err)
	}
	defer rows.Close()

	policies := []ChannelPolicy{}
	for rows.Next() {
		var p ChannelPolicy
		var channels []string
		if err := rows.Scan(&p.EventKey, &p.DisplayName, &channels, &p.IsActive, &p.Metadata, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan channel policy: %w", err)
		}
		p.AllowedChannels = make([]Channel, len(channels))
		for i, ch := range channels {
			p.AllowedChannels[i] = Channel(ch)
		}
		policies = append(policies, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list channel policies: %w", err)
	}

	return policies, nil
}

package notifications

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/notifykit/pkg/pg"
)

// PGPreferenceStore is a PostgreSQL implementation of the PreferenceStore
// interface backed by the user_preferences table.
type PGPreferenceStore struct {
	pool *pgxpool.Pool
}

// NewPGPreferenceStore creates a Postgres-backed preference store.
func NewPGPreferenceStore(pool *pgxpool.Pool) *PGPreferenceStore {
	return &PGPreferenceStore{pool: pool}
}

func (s *PGPreferenceStore) Get(ctx context.Context, userID string, t Type, ch Channel) (*Preference, error) {
	var p Preference
	var typ, channel, frequency string
	err := s.pool.QueryRow(ctx, `
		SELECT user_id, type, channel, enabled, frequency,
		       quiet_hours_start, quiet_hours_end, quiet_hours_timezone,
		       settings, created_at, updated_at
		FROM user_preferences
		WHERE user_id = $1 AND type = $2 AND channel = $3`,
		userID, string(t), string(ch),
	).Scan(
		&p.UserID, &typ, &channel, &p.Enabled, &frequency,
		&p.QuietHoursStart, &p.QuietHoursEnd, &p.QuietHoursTimezone,
		&p.Settings, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, ErrPreferenceNotFound
		}
		return nil, fmt.Errorf("get preference: %w", err)
	}

	p.Type = Type(typ)
	p.Channel = Channel(channel)
	p.Frequency = Frequency(frequency)
	return &p, nil
}

const upsertPreferenceSQL = `
	INSERT INTO user_preferences (
		user_id, type, channel, enabled, frequency,
		quiet_hours_start, quiet_hours_end, quiet_hours_timezone,
		settings, created_at, updated_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now(), now())
	ON CONFLICT (user_id, type, channel) DO UPDATE SET
		enabled = EXCLUDED.enabled,
		frequency = EXCLUDED.frequency,
		quiet_hours_start = EXCLUDED.quiet_hours_start,
		quiet_hours_end = EXCLUDED.quiet_hours_end,
		quiet_hours_timezone = EXCLUDED.quiet_hours_timezone,
		settings = EXCLUDED.settings,
		updated_at = now()`

func preferenceArgs(p Preference) []any {
	return []any{
		p.UserID, string(p.Type), string(p.Channel), p.Enabled, string(p.Frequency),
		p.QuietHoursStart, p.QuietHoursEnd, p.QuietHoursTimezone, p.Settings,
	}
}

func (s *PGPreferenceStore) Upsert(ctx context.Context, pref Preference) error {
	if err := pref.Validate(); err != nil {
		return err
	}

	if _, err := s.pool.Exec(ctx, upsertPreferenceSQL, preferenceArgs(pref)...); err != nil {
		return fmt.Errorf("upsert preference: %w", err)
	}
	return nil
}

// BulkUpsert applies each entry independently and reports every failure
// joined, so a bad entry never silently drops its neighbours.
func (s *PGPreferenceStore) BulkUpsert(ctx context.Context, prefs []Preference) error {
	var errs []error
	batch := &pgx.Batch{}
	queued := make([]Preference, 0, len(prefs))

	for _, pref := range prefs {
		if err := pref.Validate(); err != nil {
			errs = append(errs, err)
			continue
		}
		batch.Queue(upsertPreferenceSQL, preferenceArgs(pref)...)
		queued = append(queued, pref)
	}

	if batch.Len() > 0 {
		results := s.pool.SendBatch(ctx, batch)
		for _, pref := range queued {
			if _, err := results.Exec(); err != nil {
				errs = append(errs, fmt.Errorf("upsert preference (%s, %s, %s): %w",
					pref.UserID, pref.Type, pref.Channel, err))
			}
		}
		if err := results.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (s *PGPreferenceStore) EnabledChannelsFor(ctx context.Context, userID string, t Type) ([]Channel, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT channel FROM user_preferences
		WHERE user_id = $1 AND type = $2 AND enabled = true
		ORDER BY channel`,
		userID, string(t),
	)
	if err != nil {
		return nil, fmt.Errorf("enabled channels: %w", err)
	}
	defer rows.Close()

	var channels []Channel
	for rows.Next() {
		var ch string
		if err := rows.Scan(&ch); err != nil {
			return nil, fmt.Errorf("scan channel: %w", err)
		}
		channels = append(channels, Channel(ch))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("enabled channels: %w", err)
	}

	return channels, nil
}

func (s *PGPreferenceStore) InitializeDefaultsForUser(ctx context.Context, userID string) error {
	if userID == "" {
		return ErrUserIDRequired
	}

	batch := &pgx.Batch{}
	for _, t := range AllTypes() {
		for _, ch := range AllChannels() {
			// Existing entries win; seeding must never overwrite a user's
			// explicit choice.
			batch.Queue(`
				INSERT INTO user_preferences (user_id, type, channel, enabled, frequency, created_at, updated_at)
				VALUES ($1, $2, $3, true, $4, now(), now())
				ON CONFLICT (user_id, type, channel) DO NOTHING`,
				userID, string(t), string(ch), string(FrequencyImmediate),
			)
		}
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("initialize defaults for user %s: %w", userID, err)
		}
	}
	return nil
}

package notifications

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/notifykit/pkg/pg"
)

// PGStorage is a PostgreSQL implementation of the Storage interface backed by
// the notifications table (see the migrations package).
type PGStorage struct {
	pool *pgxpool.Pool
}

// NewPGStorage creates a Postgres-backed notification storage.
func NewPGStorage(pool *pgxpool.Pool) *PGStorage {
	return &PGStorage{pool: pool}
}

func (s *PGStorage) Create(ctx context.Context, notif Notification) error {
	if err := notif.Validate(); err != nil {
		return err
	}
	if notif.ID == "" {
		return ErrInvalidNotification
	}
	if notif.CreatedAt.IsZero() {
		notif.CreatedAt = time.Now()
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO notifications (
			id, user_id, type, title, body, action_url, icon_url, image_url,
			data, event_key, read, read_at, sent_at, expires_at, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		notif.ID, notif.UserID, string(notif.Type), notif.Title, notif.Body,
		notif.ActionURL, notif.IconURL, notif.ImageURL,
		notif.Data, notif.EventKey, notif.Read, notif.ReadAt, notif.SentAt,
		notif.ExpiresAt, notif.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

const notificationColumns = `
	id, user_id, type, title, body, action_url, icon_url, image_url,
	data, event_key, read, read_at, sent_at, expires_at, created_at`

func scanNotification(row interface{ Scan(dest ...any) error }) (Notification, error) {
	var n Notification
	var typ string
	err := row.Scan(
		&n.ID, &n.UserID, &typ, &n.Title, &n.Body,
		&n.ActionURL, &n.IconURL, &n.ImageURL,
		&n.Data, &n.EventKey, &n.Read, &n.ReadAt, &n.SentAt,
		&n.ExpiresAt, &n.CreatedAt,
	)
	n.Type = Type(typ)
	return n, err
}

func (s *PGStorage) Get(ctx context.Context, userID, notifID string) (*Notification, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+notificationColumns+` FROM notifications WHERE user_id = $1 AND id = $2`,
		userID, notifID,
	)

	notif, err := scanNotification(row)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, ErrNotificationNotFound
		}
		return nil, fmt.Errorf("get notification: %w", err)
	}
	return &notif, nil
}

func (s *PGStorage) List(ctx context.Context, userID string, opts ListOptions) ([]Notification, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT ` + notificationColumns + ` FROM notifications
		WHERE user_id = $1 AND (expires_at IS NULL OR expires_at > now())`)
	args := []any{userID}

	if opts.OnlyUnread {
		sb.WriteString(` AND read = false`)
	}
	if opts.EventKey != "" {
		args = append(args, opts.EventKey)
		fmt.Fprintf(&sb, ` AND event_key = $%d`, len(args))
	}
	if len(opts.Types) > 0 {
		types := make([]string, len(opts.Types))
		for i, t := range opts.Types {
			types[i] = string(t)
		}
		args = append(args, types)
		fmt.Fprintf(&sb, ` AND type = ANY($%d)`, len(args))
	}
	if opts.Since != nil {
		args = append(args, *opts.Since)
		fmt.Fprintf(&sb, ` AND created_at >= $%d`, len(args))
	}

	sb.WriteString(` ORDER BY created_at DESC`)
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		fmt.Fprintf(&sb, ` LIMIT $%d`, len(args))
	}
	if opts.Offset > 0 {
		args = append(args, opts.Offset)
		fmt.Fprintf(&sb, ` OFFSET $%d`, len(args))
	}

	rows, err := s.pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	notifs := []Notification{}
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		notifs = append(notifs, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}

	return notifs, nil
}

func (s *PGStorage) MarkRead(ctx context.Context, userID string, notifIDs ...string) error {
	if len(notifIDs) == 0 {
		return nil
	}

	// read_at is only stamped on the first transition so re-marking keeps
	// the original read time.
	_, err := s.pool.Exec(ctx, `
		UPDATE notifications
		SET read = true, read_at = COALESCE(read_at, now())
		WHERE user_id = $1 AND id = ANY($2)`,
		userID, notifIDs,
	)
	if err != nil {
		return fmt.Errorf("mark notifications read: %w", err)
	}
	return nil
}

func (s *PGStorage) Delete(ctx context.Context, userID string, notifIDs ...string) error {
	if len(notifIDs) == 0 {
		return nil
	}

	_, err := s.pool.Exec(ctx,
		`DELETE FROM notifications WHERE user_id = $1 AND id = ANY($2)`,
		userID, notifIDs,
	)
	if err != nil {
		return fmt.Errorf("delete notifications: %w", err)
	}
	return nil
}

func (s *PGStorage) CountUnread(ctx context.Context, userID string) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `
		SELECT count(*) FROM notifications
		WHERE user_id = $1 AND read = false
		  AND (expires_at IS NULL OR expires_at > now())`,
		userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return count, nil
}

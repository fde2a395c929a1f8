package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/huddleapp/huddle/internal/models"
)

// PostgresStore implements DataStore on PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a store with a connection pool.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

// Close closes the connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// Ping checks the database connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// InitSchema creates tables if they don't exist.
func (s *PostgresStore) InitSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			first_name TEXT NOT NULL,
			last_name TEXT NOT NULL DEFAULT '',
			email TEXT UNIQUE NOT NULL,
			photo_url TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS notifications (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			type TEXT NOT NULL,
			title TEXT NOT NULL,
			message TEXT NOT NULL,
			recipient_id UUID NOT NULL,
			sender_id UUID,
			link TEXT NOT NULL DEFAULT '',
			resource_id TEXT NOT NULL DEFAULT '',
			resource_type TEXT NOT NULL DEFAULT '',
			is_read BOOLEAN NOT NULL DEFAULT FALSE,
			read_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_notifications_recipient
			ON notifications(recipient_id, is_read, created_at DESC);
	`)
	return err
}

// CreateNotification inserts a mailbox row and fills in the generated id and
// timestamp.
func (s *PostgresStore) CreateNotification(ctx context.Context, n *models.Notification) error {
	var senderID *string
	if n.SenderID != "" {
		senderID = &n.SenderID
	}

	err := s.pool.QueryRow(ctx, `
		INSERT INTO notifications (type, title, message, recipient_id, sender_id, link, resource_id, resource_type)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`, n.Type, n.Title, n.Message, n.RecipientID, senderID, n.Link, n.ResourceID, n.ResourceType).
		Scan(&n.ID, &n.CreatedAt)
	return err
}

// ListNotifications returns the recipient's mailbox, newest first.
func (s *PostgresStore) ListNotifications(ctx context.Context, recipientID string, opts ListOptions) ([]models.Notification, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, type, title, message, recipient_id, COALESCE(sender_id::text, ''),
		       link, resource_id, resource_type, is_read, read_at, created_at
		FROM notifications
		WHERE recipient_id = $1`
	if opts.UnreadOnly {
		query += ` AND is_read = FALSE`
	}
	query += ` ORDER BY created_at DESC LIMIT $2`

	rows, err := s.pool.Query(ctx, query, recipientID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notifications []models.Notification
	for rows.Next() {
		var n models.Notification
		err := rows.Scan(
			&n.ID, &n.Type, &n.Title, &n.Message, &n.RecipientID, &n.SenderID,
			&n.Link, &n.ResourceID, &n.ResourceType, &n.IsRead, &n.ReadAt, &n.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}

	return notifications, rows.Err()
}

// CountUnread counts the recipient's unread rows.
func (s *PostgresStore) CountUnread(ctx context.Context, recipientID string) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM notifications
		WHERE recipient_id = $1 AND is_read = FALSE
	`, recipientID).Scan(&count)
	return count, err
}

// MarkNotificationRead flips is_read on a row owned by recipientID. The
// recipient filter makes a mismatched caller a zero-row update, not an
// error.
func (s *PostgresStore) MarkNotificationRead(ctx context.Context, id, recipientID string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE notifications
		SET is_read = TRUE, read_at = NOW()
		WHERE id = $1 AND recipient_id = $2 AND is_read = FALSE
	`, id, recipientID)
	return err
}

// MarkAllNotificationsRead flips every unread row of the recipient.
func (s *PostgresStore) MarkAllNotificationsRead(ctx context.Context, recipientID string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE notifications
		SET is_read = TRUE, read_at = NOW()
		WHERE recipient_id = $1 AND is_read = FALSE
	`, recipientID)
	return err
}

// DeleteNotification removes a row owned by recipientID.
func (s *PostgresStore) DeleteNotification(ctx context.Context, id, recipientID string) error {
	_, err := s.pool.Exec(ctx, `
		DELETE FROM notifications WHERE id = $1 AND recipient_id = $2
	`, id, recipientID)
	return err
}

// PurgeRead deletes read rows older than cutoff and reports how many went.
func (s *PostgresStore) PurgeRead(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM notifications WHERE is_read = TRUE AND created_at < $1
	`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// ListTeam returns the directory ordered by first name.
func (s *PostgresStore) ListTeam(ctx context.Context) ([]models.User, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, first_name, last_name, email, photo_url, created_at
		FROM users ORDER BY first_name, last_name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var team []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.PhotoURL, &u.CreatedAt); err != nil {
			return nil, err
		}
		team = append(team, u)
	}

	return team, rows.Err()
}

// GetUser retrieves a user by id, (nil, nil) when absent.
func (s *PostgresStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	u := &models.User{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, first_name, last_name, email, photo_url, created_at
		FROM users WHERE id = $1
	`, id).Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.PhotoURL, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return u, nil
}

// FindUserByName matches first name or full display name, case-insensitive.
// Domain events carry assignee display names, not ids, so the ingest
// endpoint resolves recipients this way.
func (s *PostgresStore) FindUserByName(ctx context.Context, name string) (*models.User, error) {
	u := &models.User{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, first_name, last_name, email, photo_url, created_at
		FROM users
		WHERE LOWER(first_name) = LOWER(TRIM($1))
		   OR LOWER(first_name || ' ' || last_name) = LOWER(TRIM($1))
		LIMIT 1
	`, name).Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.PhotoURL, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return u, nil
}

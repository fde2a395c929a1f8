package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/huddleapp/huddle/internal/models"
)

// SQLiteStore implements DataStore on SQLite. Used in development when no
// DATABASE_URL is configured.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
// If dbPath is empty, defaults to "./data/huddle.db".
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		dbPath = "./data/huddle.db"
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}

	if err := store.initSchema(ctx); err != nil {
		return nil, err
	}

	return store, nil
}

// initSchema creates tables if they don't exist.
func (s *SQLiteStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		first_name TEXT NOT NULL,
		last_name TEXT NOT NULL DEFAULT '',
		email TEXT UNIQUE NOT NULL,
		photo_url TEXT NOT NULL DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS notifications (
		id TEXT PRIMARY KEY,
		type TEXT NOT NULL,
		title TEXT NOT NULL,
		message TEXT NOT NULL,
		recipient_id TEXT NOT NULL,
		sender_id TEXT,
		link TEXT NOT NULL DEFAULT '',
		resource_id TEXT NOT NULL DEFAULT '',
		resource_type TEXT NOT NULL DEFAULT '',
		is_read INTEGER NOT NULL DEFAULT 0,
		read_at DATETIME,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_notifications_recipient
		ON notifications(recipient_id, is_read, created_at);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// CreateNotification inserts a mailbox row.
func (s *SQLiteStore) CreateNotification(ctx context.Context, n *models.Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}

	var senderID *string
	if n.SenderID != "" {
		senderID = &n.SenderID
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notifications (id, type, title, message, recipient_id, sender_id, link, resource_id, resource_type, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, n.ID, n.Type, n.Title, n.Message, n.RecipientID, senderID, n.Link, n.ResourceID, n.ResourceType, n.CreatedAt)
	return err
}

// ListNotifications returns the recipient's mailbox, newest first.
func (s *SQLiteStore) ListNotifications(ctx context.Context, recipientID string, opts ListOptions) ([]models.Notification, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, type, title, message, recipient_id, COALESCE(sender_id, ''),
		       link, resource_id, resource_type, is_read, read_at, created_at
		FROM notifications
		WHERE recipient_id = ?`
	if opts.UnreadOnly {
		query += ` AND is_read = 0`
	}
	query += ` ORDER BY created_at DESC LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, recipientID, limit)
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
func (s *SQLiteStore) CountUnread(ctx context.Context, recipientID string) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM notifications
		WHERE recipient_id = ? AND is_read = 0
	`, recipientID).Scan(&count)
	return count, err
}

// MarkNotificationRead flips is_read on a row owned by recipientID.
func (s *SQLiteStore) MarkNotificationRead(ctx context.Context, id, recipientID string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE notifications
		SET is_read = 1, read_at = CURRENT_TIMESTAMP
		WHERE id = ? AND recipient_id = ? AND is_read = 0
	`, id, recipientID)
	return err
}

// MarkAllNotificationsRead flips every unread row of the recipient.
func (s *SQLiteStore) MarkAllNotificationsRead(ctx context.Context, recipientID string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE notifications
		SET is_read = 1, read_at = CURRENT_TIMESTAMP
		WHERE recipient_id = ? AND is_read = 0
	`, recipientID)
	return err
}

// DeleteNotification removes a row owned by recipientID.
func (s *SQLiteStore) DeleteNotification(ctx context.Context, id, recipientID string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM notifications WHERE id = ? AND recipient_id = ?
	`, id, recipientID)
	return err
}

// PurgeRead deletes read rows older than cutoff.
func (s *SQLiteStore) PurgeRead(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM notifications WHERE is_read = 1 AND created_at < ?
	`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ListTeam returns the directory ordered by first name.
func (s *SQLiteStore) ListTeam(ctx context.Context) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx, `
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
func (s *SQLiteStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	u := &models.User{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, first_name, last_name, email, photo_url, created_at
		FROM users WHERE id = ?
	`, id).Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.PhotoURL, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return u, nil
}

// FindUserByName matches first name or full display name, case-insensitive.
func (s *SQLiteStore) FindUserByName(ctx context.Context, name string) (*models.User, error) {
	u := &models.User{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, first_name, last_name, email, photo_url, created_at
		FROM users
		WHERE LOWER(first_name) = LOWER(TRIM(?))
		   OR LOWER(first_name || ' ' || last_name) = LOWER(TRIM(?))
		LIMIT 1
	`, name, name).Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.PhotoURL, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return u, nil
}

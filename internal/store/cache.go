package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/hvu/crmdesk/internal/model"
)

// FeedCache persists the last-known notification feed in a local SQLite
// database so that a restart shows the previous feed and unread count
// before the first poll completes.
type FeedCache struct {
	db *sqlx.DB
}

// NewFeedCache opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewFeedCache(dbPath string) (*FeedCache, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	c := &FeedCache{db: db}
	if err := c.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return c, nil
}

// Close closes the underlying database connection.
func (c *FeedCache) Close() error {
	return c.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (c *FeedCache) runMigrations() error {
	currentVersion := 0

	// Check if schema_version table exists.
	var tableCount int
	err := c.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = c.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := c.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// SaveFeed replaces the cached feed with the given page and unread count
// in a single transaction.
func (c *FeedCache) SaveFeed(
	ctx context.Context,
	ns []model.Notification,
	unread int,
) error {
	tx, err := c.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM notifications"); err != nil {
		return fmt.Errorf("clearing cached notifications: %w", err)
	}

	const query = `
		INSERT INTO notifications (
			id, type, title, message, entity_type, entity_id, read, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	stmt, err := tx.PreparexContext(ctx, query)
	if err != nil {
		return fmt.Errorf("preparing insert statement: %w", err)
	}
	defer stmt.Close()

	for _, n := range ns {
		_, err = stmt.ExecContext(ctx,
			n.ID, string(n.Type), n.Title, n.Message,
			string(n.EntityType), n.EntityID,
			boolToInt(n.IsRead), n.CreatedAt.UTC(),
		)
		if err != nil {
			return fmt.Errorf("caching notification %d: %w", n.ID, err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO feed_state (id, unread_count, fetched_at)
		VALUES (1, ?, ?)`,
		unread, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("caching feed state: %w", err)
	}

	return tx.Commit()
}

// LoadFeed returns the cached notifications, newest first, and the cached
// unread count. An empty cache yields an empty slice and zero.
func (c *FeedCache) LoadFeed(
	ctx context.Context,
) ([]model.Notification, int, error) {
	rows, err := c.db.QueryxContext(ctx,
		"SELECT * FROM notifications ORDER BY created_at DESC",
	)
	if err != nil {
		return nil, 0, fmt.Errorf("querying cached notifications: %w", err)
	}
	defer rows.Close()

	var notifications []model.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, 0, err
		}
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var unread int
	err = c.db.GetContext(ctx, &unread,
		"SELECT unread_count FROM feed_state WHERE id = 1",
	)
	if err != nil {
		// No feed_state row yet; treat as zero rather than failing.
		unread = 0
	}

	return notifications, unread, nil
}

// MarkRead flips a single cached notification to read and decrements the
// cached unread count, floored at zero.
func (c *FeedCache) MarkRead(ctx context.Context, id int64) error {
	res, err := c.db.ExecContext(ctx,
		"UPDATE notifications SET read = 1 WHERE id = ? AND read = 0", id,
	)
	if err != nil {
		return fmt.Errorf("marking cached notification %d read: %w", id, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading rows affected for notification %d: %w", id, err)
	}
	if affected == 0 {
		return nil
	}

	_, err = c.db.ExecContext(ctx, `
		UPDATE feed_state
		SET unread_count = MAX(unread_count - 1, 0)
		WHERE id = 1`,
	)
	if err != nil {
		return fmt.Errorf("updating cached unread count: %w", err)
	}

	return nil
}

// MarkAllRead flips every cached notification to read and zeroes the
// cached unread count.
func (c *FeedCache) MarkAllRead(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx,
		"UPDATE notifications SET read = 1",
	); err != nil {
		return fmt.Errorf("marking cached notifications read: %w", err)
	}

	if _, err := c.db.ExecContext(ctx,
		"UPDATE feed_state SET unread_count = 0 WHERE id = 1",
	); err != nil {
		return fmt.Errorf("zeroing cached unread count: %w", err)
	}

	return nil
}

// scanNotification scans a notification row from a sqlx.Rows result set.
func scanNotification(rows *sqlx.Rows) (model.Notification, error) {
	var (
		n          model.Notification
		nType      string
		entityType string
		readInt    int
		createdAt  time.Time
	)

	err := rows.Scan(
		&n.ID, &nType, &n.Title, &n.Message,
		&entityType, &n.EntityID, &readInt, &createdAt,
	)
	if err != nil {
		return model.Notification{}, fmt.Errorf("scanning notification row: %w", err)
	}

	n.Type = model.NotificationType(nType)
	n.EntityType = model.EntityType(entityType)
	n.IsRead = readInt != 0
	n.CreatedAt = createdAt

	return n, nil
}

// boolToInt converts a boolean to 0 or 1 for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Copyright (c) 2026 NextDash. All rights reserved.

// PostgreSQL implementation of the notification storage contract.
package notification

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nextdash/nextdash/internal/platform/dberr"
	"github.com/nextdash/nextdash/pkg/pagination"
)

const notificationColumns = `
	id, user_id, title, message, type, is_read,
	COALESCE(action_url, ''), COALESCE(action_text, ''),
	read_at, expires_at, created_at`

// liveClause hides expired rows on every read path.
const liveClause = `(expires_at IS NULL OR expires_at > NOW())`

// PostgresRepository implements [Repository] using pgx.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewRepository creates the PostgreSQL notification repository.
func NewRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func scanNotification(row pgx.Row) (*Notification, error) {
	n := &Notification{}
	err := row.Scan(
		&n.ID,
		&n.UserID,
		&n.Title,
		&n.Message,
		&n.Kind,
		&n.IsRead,
		&n.ActionURL,
		&n.ActionText,
		&n.ReadAt,
		&n.ExpiresAt,
		&n.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return n, nil
}

// ListForUser returns the user's live notifications, newest first.
func (repository *PostgresRepository) ListForUser(ctx context.Context, userID int64, filter Filter, page pagination.Params) ([]Notification, int64, error) {
	clauses := []string{"user_id = $1", liveClause}
	args := []any{userID}

	if filter.Unread != nil {
		args = append(args, !*filter.Unread)
		clauses = append(clauses, "is_read = $"+strconv.Itoa(len(args)))
	}
	if filter.Kind != nil {
		args = append(args, *filter.Kind)
		clauses = append(clauses, "type = $"+strconv.Itoa(len(args)))
	}
	where := strings.Join(clauses, " AND ")

	var total int64
	countQuery := `SELECT COUNT(*) FROM notifications WHERE ` + where
	if err := repository.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("notification_repo_count_failed: %w", err)
	}

	listQuery := `
		SELECT` + notificationColumns + `
		FROM notifications
		WHERE ` + where + `
		ORDER BY created_at DESC
		LIMIT $` + strconv.Itoa(len(args)+1) + ` OFFSET $` + strconv.Itoa(len(args)+2)
	args = append(args, page.Limit, page.Offset())

	rows, err := repository.pool.Query(ctx, listQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("notification_repo_list_failed: %w", err)
	}
	defer rows.Close()

	notifications := []Notification{}
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("notification_repo_list_scan_failed: %w", err)
		}
		notifications = append(notifications, *n)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("notification_repo_list_rows_failed: %w", err)
	}

	return notifications, total, nil
}

// CountUnread returns the user's live unread count.
func (repository *PostgresRepository) CountUnread(ctx context.Context, userID int64) (int64, error) {
	query := `
		SELECT COUNT(*) FROM notifications
		WHERE user_id = $1 AND is_read = FALSE AND ` + liveClause

	var count int64
	if err := repository.pool.QueryRow(ctx, query, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("notification_repo_unread_failed: %w", err)
	}
	return count, nil
}

// FindByID retrieves a single live notification.
func (repository *PostgresRepository) FindByID(ctx context.Context, id int64) (*Notification, error) {
	query := `
		SELECT` + notificationColumns + `
		FROM notifications
		WHERE id = $1 AND ` + liveClause

	n, err := scanNotification(repository.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, dberr.Wrap(err, "Notification")
	}
	return n, nil
}

// Create persists a new notification row.
func (repository *PostgresRepository) Create(ctx context.Context, n *Notification) error {
	const query = `
		INSERT INTO notifications (user_id, title, message, type, action_url, action_text, expires_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), $7)
		RETURNING id, created_at`

	err := repository.pool.QueryRow(ctx, query,
		n.UserID,
		n.Title,
		n.Message,
		n.Kind,
		n.ActionURL,
		n.ActionText,
		n.ExpiresAt,
	).Scan(&n.ID, &n.CreatedAt)

	if err != nil {
		return fmt.Errorf("notification_repo_create_failed: %w", err)
	}
	return nil
}

// SetRead flips the read flag. ReadAt follows the flag: stamped when read,
// cleared when marked unread again.
func (repository *PostgresRepository) SetRead(ctx context.Context, id int64, read bool) error {
	const query = `
		UPDATE notifications
		SET is_read = $2, read_at = CASE WHEN $2 THEN NOW() ELSE NULL END
		WHERE id = $1`

	_, err := repository.pool.Exec(ctx, query, id, read)
	if err != nil {
		return fmt.Errorf("notification_repo_set_read_failed: %w", err)
	}
	return nil
}

// MarkAllRead marks every live unread notification of the user as read.
func (repository *PostgresRepository) MarkAllRead(ctx context.Context, userID int64) (int64, error) {
	query := `
		UPDATE notifications
		SET is_read = TRUE, read_at = NOW()
		WHERE user_id = $1 AND is_read = FALSE AND ` + liveClause

	tag, err := repository.pool.Exec(ctx, query, userID)
	if err != nil {
		return 0, fmt.Errorf("notification_repo_mark_all_failed: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Delete removes a notification row.
func (repository *PostgresRepository) Delete(ctx context.Context, id int64) error {
	const query = `DELETE FROM notifications WHERE id = $1`

	_, err := repository.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("notification_repo_delete_failed: %w", err)
	}
	return nil
}

// DeleteExpired removes all rows past their expiry.
func (repository *PostgresRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	const query = `DELETE FROM notifications WHERE expires_at IS NOT NULL AND expires_at <= $1`

	tag, err := repository.pool.Exec(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("notification_repo_delete_expired_failed: %w", err)
	}
	return tag.RowsAffected(), nil
}

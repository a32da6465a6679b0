package repository

import (
	"context"
	"database/sql"
	"fmt"

	"tissuewatch/internal/domain"
)

// PostgresNotificationsRepo 通知仓库 PostgreSQL 实现
// Ownership is resolved transitively: notifications JOIN devices ON added_by.
type PostgresNotificationsRepo struct {
	db *sql.DB
}

func NewPostgresNotificationsRepo(db *sql.DB) *PostgresNotificationsRepo {
	return &PostgresNotificationsRepo{db: db}
}

var _ NotificationsRepository = (*PostgresNotificationsRepo)(nil)

const notificationColumns = "n.id, n.device_id, n.kind, n.title, n.message, n.alert, n.tamper, n.priority, n.is_read, n.created_at"

// scopeClause 返回所有权 WHERE 片段和参数。$1 预留给范围外的前置参数时由调用方控制 argN。
func scopeClause(f OwnerFilter, argN int) (string, []interface{}) {
	if f.All {
		return "TRUE", nil
	}
	return fmt.Sprintf("n.device_id IN (SELECT id FROM devices WHERE added_by = $%d)", argN),
		[]interface{}{f.UserID}
}

func (r *PostgresNotificationsRepo) Create(ctx context.Context, n *domain.Notification) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO notifications (device_id, kind, title, message, alert, tamper, priority, is_read, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, FALSE, NOW())
		 RETURNING id, is_read, created_at`,
		n.DeviceID, n.Kind, n.Title, n.Message, n.Alert, n.Tamper, n.Priority,
	).Scan(&n.ID, &n.IsRead, &n.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

func (r *PostgresNotificationsRepo) List(ctx context.Context, f OwnerFilter) ([]domain.Notification, error) {
	scope, args := scopeClause(f, 1)
	query := fmt.Sprintf(
		`SELECT %s FROM notifications n WHERE %s ORDER BY n.priority DESC, n.created_at DESC`,
		notificationColumns, scope,
	)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	var out []domain.Notification
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(&n.ID, &n.DeviceID, &n.Kind, &n.Title, &n.Message,
			&n.Alert, &n.Tamper, &n.Priority, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (r *PostgresNotificationsRepo) MarkRead(ctx context.Context, id int64, f OwnerFilter) (*domain.Notification, error) {
	scope, args := scopeClause(f, 2)
	query := fmt.Sprintf(
		`UPDATE notifications n SET is_read = TRUE WHERE n.id = $1 AND %s
		 RETURNING %s`, scope, notificationColumns,
	)

	var n domain.Notification
	err := r.db.QueryRowContext(ctx, query, append([]interface{}{id}, args...)...).
		Scan(&n.ID, &n.DeviceID, &n.Kind, &n.Title, &n.Message,
			&n.Alert, &n.Tamper, &n.Priority, &n.IsRead, &n.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to mark notification read: %w", err)
	}
	return &n, nil
}

func (r *PostgresNotificationsRepo) Delete(ctx context.Context, id int64, f OwnerFilter) error {
	scope, args := scopeClause(f, 2)
	query := fmt.Sprintf(`DELETE FROM notifications n WHERE n.id = $1 AND %s`, scope)

	res, err := r.db.ExecContext(ctx, query, append([]interface{}{id}, args...)...)
	if err != nil {
		return fmt.Errorf("failed to delete notification: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresNotificationsRepo) ClearAll(ctx context.Context, f OwnerFilter) (int64, error) {
	scope, args := scopeClause(f, 1)
	query := fmt.Sprintf(`DELETE FROM notifications n WHERE %s`, scope)

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to clear notifications: %w", err)
	}
	return res.RowsAffected()
}

func (r *PostgresNotificationsRepo) UnreadCount(ctx context.Context, f OwnerFilter) (int64, error) {
	scope, args := scopeClause(f, 1)
	query := fmt.Sprintf(`SELECT COUNT(*) FROM notifications n WHERE n.is_read = FALSE AND %s`, scope)

	var count int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}

package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"tissuewatch/internal/domain"
)

// PostgresPushTokensRepo 推送令牌仓库 PostgreSQL 实现
type PostgresPushTokensRepo struct {
	db *sql.DB
}

func NewPostgresPushTokensRepo(db *sql.DB) *PostgresPushTokensRepo {
	return &PostgresPushTokensRepo{db: db}
}

var _ PushTokensRepository = (*PostgresPushTokensRepo)(nil)

func (r *PostgresPushTokensRepo) Upsert(ctx context.Context, userID int64, token string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO push_tokens (user_id, token)
		 VALUES ($1, $2)
		 ON CONFLICT (user_id) DO UPDATE SET token = EXCLUDED.token`,
		userID, token)
	if err != nil {
		return fmt.Errorf("failed to upsert push token: %w", err)
	}
	return nil
}

func (r *PostgresPushTokensRepo) ListByUsers(ctx context.Context, userIDs []int64) ([]domain.PushToken, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}

	placeholders := make([]string, len(userIDs))
	args := make([]interface{}, len(userIDs))
	for i, id := range userIDs {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}

	rows, err := r.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT user_id, token FROM push_tokens WHERE user_id IN (%s)`,
			strings.Join(placeholders, ", ")), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list push tokens: %w", err)
	}
	defer rows.Close()

	var out []domain.PushToken
	for rows.Next() {
		var t domain.PushToken
		if err := rows.Scan(&t.UserID, &t.Token); err != nil {
			return nil, fmt.Errorf("failed to scan push token: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *PostgresPushTokensRepo) Delete(ctx context.Context, userID int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM push_tokens WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("failed to delete push token: %w", err)
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

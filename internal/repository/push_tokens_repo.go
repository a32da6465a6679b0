package repository

import (
	"context"

	"tissuewatch/internal/domain"
)

// PushTokensRepository 推送令牌仓库接口
type PushTokensRepository interface {
	// Upsert 一人一令牌，重复注册覆盖（last-write-wins）
	Upsert(ctx context.Context, userID int64, token string) error
	// ListByUsers 取一组用户已注册的全部令牌（fan-out 用）
	ListByUsers(ctx context.Context, userIDs []int64) ([]domain.PushToken, error)
	Delete(ctx context.Context, userID int64) error
}

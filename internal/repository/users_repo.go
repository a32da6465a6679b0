package repository

import (
	"context"

	"tissuewatch/internal/domain"
)

// UsersRepository 用户仓库接口
type UsersRepository interface {
	Create(ctx context.Context, u *domain.User) error
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	// ListAdminIDs 全部管理员 id（管理员隐式拥有所有设备的通知，fan-out 收件人用）
	ListAdminIDs(ctx context.Context) ([]int64, error)
}

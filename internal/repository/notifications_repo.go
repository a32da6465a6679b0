package repository

import (
	"context"

	"tissuewatch/internal/domain"
)

// NotificationsRepository 通知记录仓库接口
// Every read/mutate operation is scoped by an OwnerFilter; scoping is enforced
// here, server-side, not in handlers.
type NotificationsRepository interface {
	// Create 写入一条通知（分配 id 和服务端时间戳，is_read=false）
	Create(ctx context.Context, n *domain.Notification) error

	// List 按 priority DESC, created_at DESC 排序返回范围内的通知
	List(ctx context.Context, f OwnerFilter) ([]domain.Notification, error)

	// MarkRead 标记已读；id 不存在或不在范围内返回 ErrNotFound
	MarkRead(ctx context.Context, id int64, f OwnerFilter) (*domain.Notification, error)

	// Delete 删除单条；同样的范围规则
	Delete(ctx context.Context, id int64, f OwnerFilter) error

	// ClearAll 批量删除范围内全部通知，返回删除数量
	ClearAll(ctx context.Context, f OwnerFilter) (int64, error)

	// UnreadCount 范围内未读数量
	UnreadCount(ctx context.Context, f OwnerFilter) (int64, error)
}

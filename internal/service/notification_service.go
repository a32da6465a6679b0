package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"tissuewatch/internal/domain"
	"tissuewatch/internal/repository"
)

// NotificationService 通知查询与维护（全部操作按调用者角色做范围裁剪）
type NotificationService struct {
	notifications repository.NotificationsRepository
	tokens        repository.PushTokensRepository
	logger        *zap.Logger
}

func NewNotificationService(
	notifications repository.NotificationsRepository,
	tokens repository.PushTokensRepository,
	logger *zap.Logger,
) *NotificationService {
	return &NotificationService{
		notifications: notifications,
		tokens:        tokens,
		logger:        logger,
	}
}

// scopeFor admin 看全部，其余用户只看自己设备上的通知
func scopeFor(userID int64, role string) repository.OwnerFilter {
	if role == domain.RoleAdmin {
		return repository.AllOwners()
	}
	return repository.OwnedBy(userID)
}

func (s *NotificationService) List(ctx context.Context, userID int64, role string) ([]domain.Notification, error) {
	return s.notifications.List(ctx, scopeFor(userID, role))
}

func (s *NotificationService) MarkRead(ctx context.Context, id, userID int64, role string) (*domain.Notification, error) {
	return s.notifications.MarkRead(ctx, id, scopeFor(userID, role))
}

func (s *NotificationService) Delete(ctx context.Context, id, userID int64, role string) error {
	return s.notifications.Delete(ctx, id, scopeFor(userID, role))
}

func (s *NotificationService) ClearAll(ctx context.Context, userID int64, role string) (int64, error) {
	deleted, err := s.notifications.ClearAll(ctx, scopeFor(userID, role))
	if err != nil {
		return 0, err
	}
	s.logger.Info("Cleared notifications",
		zap.Int64("user_id", userID),
		zap.Int64("deleted", deleted),
	)
	return deleted, nil
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID int64, role string) (int64, error) {
	return s.notifications.UnreadCount(ctx, scopeFor(userID, role))
}

// RegisterPushToken 绑定 Expo 推送令牌，一人一令牌，重复注册覆盖
func (s *NotificationService) RegisterPushToken(ctx context.Context, userID int64, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("push token must not be empty: %w", ErrValidation)
	}
	return s.tokens.Upsert(ctx, userID, token)
}

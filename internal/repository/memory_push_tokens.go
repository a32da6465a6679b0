package repository

import (
	"context"
	"sort"
	"sync"

	"tissuewatch/internal/domain"
)

// MemoryPushTokensRepo 推送令牌仓库内存实现
type MemoryPushTokensRepo struct {
	mu     sync.RWMutex
	tokens map[int64]string
}

func NewMemoryPushTokensRepo() *MemoryPushTokensRepo {
	return &MemoryPushTokensRepo{tokens: map[int64]string{}}
}

var _ PushTokensRepository = (*MemoryPushTokensRepo)(nil)

func (r *MemoryPushTokensRepo) Upsert(_ context.Context, userID int64, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens[userID] = token
	return nil
}

func (r *MemoryPushTokensRepo) ListByUsers(_ context.Context, userIDs []int64) ([]domain.PushToken, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []domain.PushToken
	for _, id := range userIDs {
		if token, ok := r.tokens[id]; ok {
			out = append(out, domain.PushToken{UserID: id, Token: token})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (r *MemoryPushTokensRepo) Delete(_ context.Context, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tokens[userID]; !ok {
		return ErrNotFound
	}
	delete(r.tokens, userID)
	return nil
}

package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"tissuewatch/internal/domain"
)

// DeviceOwnerLookup 解析设备所有者（memory 通知仓库用它做范围判断，
// postgres 实现直接 JOIN devices）
type DeviceOwnerLookup interface {
	OwnerOf(ctx context.Context, deviceID int64) (*int64, error)
}

// MemoryNotificationsRepo 内存实现：DB 未就绪时的本地联测与单元测试用
type MemoryNotificationsRepo struct {
	mu     sync.RWMutex
	nextID int64
	items  map[int64]domain.Notification
	owners DeviceOwnerLookup
}

func NewMemoryNotificationsRepo(owners DeviceOwnerLookup) *MemoryNotificationsRepo {
	return &MemoryNotificationsRepo{
		nextID: 1,
		items:  map[int64]domain.Notification{},
		owners: owners,
	}
}

var _ NotificationsRepository = (*MemoryNotificationsRepo)(nil)

func (r *MemoryNotificationsRepo) inScope(ctx context.Context, n domain.Notification, f OwnerFilter) bool {
	if f.All {
		return true
	}
	owner, err := r.owners.OwnerOf(ctx, n.DeviceID)
	if err != nil {
		return false
	}
	return f.Matches(owner)
}

func (r *MemoryNotificationsRepo) Create(_ context.Context, n *domain.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	n.ID = r.nextID
	r.nextID++
	n.IsRead = false
	n.CreatedAt = time.Now()
	r.items[n.ID] = *n
	return nil
}

func (r *MemoryNotificationsRepo) List(ctx context.Context, f OwnerFilter) ([]domain.Notification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Notification, 0, len(r.items))
	for _, n := range r.items {
		if r.inScope(ctx, n, f) {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		// Equal timestamps are possible in-memory; fall back to insertion order,
		// newest first, to keep list order deterministic.
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (r *MemoryNotificationsRepo) MarkRead(ctx context.Context, id int64, f OwnerFilter) (*domain.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, ok := r.items[id]
	if !ok || !r.inScope(ctx, n, f) {
		return nil, ErrNotFound
	}
	n.IsRead = true
	r.items[id] = n
	return &n, nil
}

func (r *MemoryNotificationsRepo) Delete(ctx context.Context, id int64, f OwnerFilter) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, ok := r.items[id]
	if !ok || !r.inScope(ctx, n, f) {
		return ErrNotFound
	}
	delete(r.items, id)
	return nil
}

func (r *MemoryNotificationsRepo) ClearAll(ctx context.Context, f OwnerFilter) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var deleted int64
	for id, n := range r.items {
		if r.inScope(ctx, n, f) {
			delete(r.items, id)
			deleted++
		}
	}
	return deleted, nil
}

func (r *MemoryNotificationsRepo) UnreadCount(ctx context.Context, f OwnerFilter) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var count int64
	for _, n := range r.items {
		if !n.IsRead && r.inScope(ctx, n, f) {
			count++
		}
	}
	return count, nil
}

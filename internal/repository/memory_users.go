package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"tissuewatch/internal/domain"
)

// MemoryUsersRepo 用户仓库内存实现
type MemoryUsersRepo struct {
	mu     sync.RWMutex
	nextID int64
	items  map[int64]domain.User
}

func NewMemoryUsersRepo() *MemoryUsersRepo {
	return &MemoryUsersRepo{nextID: 1, items: map[int64]domain.User{}}
}

var _ UsersRepository = (*MemoryUsersRepo)(nil)

func (r *MemoryUsersRepo) Create(_ context.Context, u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if u.Role == "" {
		u.Role = domain.RoleUser
	}
	u.ID = r.nextID
	r.nextID++
	u.CreatedAt = time.Now()
	r.items[u.ID] = *u
	return nil
}

func (r *MemoryUsersRepo) GetByID(_ context.Context, id int64) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (r *MemoryUsersRepo) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.items {
		if u.Username == username {
			out := u
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryUsersRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.items {
		if u.Email == email {
			out := u
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryUsersRepo) UpdatePassword(_ context.Context, id int64, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.items[id]
	if !ok {
		return ErrNotFound
	}
	u.PasswordHash = passwordHash
	r.items[id] = u
	return nil
}

func (r *MemoryUsersRepo) ListAdminIDs(_ context.Context) ([]int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []int64
	for _, u := range r.items {
		if u.Role == domain.RoleAdmin {
			out = append(out, u.ID)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"tissuewatch/internal/domain"
)

// MemoryDevicesRepo 设备仓库内存实现（DB 未就绪时的联测与单元测试用）
type MemoryDevicesRepo struct {
	mu     sync.RWMutex
	nextID int64
	items  map[int64]domain.Device
}

func NewMemoryDevicesRepo() *MemoryDevicesRepo {
	return &MemoryDevicesRepo{
		nextID: 1,
		items:  map[int64]domain.Device{},
	}
}

var _ DevicesRepository = (*MemoryDevicesRepo)(nil)

func (r *MemoryDevicesRepo) Create(_ context.Context, d *domain.Device) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if d.RegistrationType == "" {
		d.RegistrationType = "manual"
	}
	d.ID = r.nextID
	r.nextID++
	d.CreatedAt = time.Now()
	r.items[d.ID] = *d
	return nil
}

func (r *MemoryDevicesRepo) GetByID(_ context.Context, id int64) (*domain.Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &d, nil
}

func (r *MemoryDevicesRepo) GetByHardwareID(_ context.Context, hardwareID string) (*domain.Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, d := range r.items {
		if d.HardwareID != nil && *d.HardwareID == hardwareID {
			out := d
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryDevicesRepo) List(_ context.Context, page, size int) ([]domain.Device, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]domain.Device, 0, len(r.items))
	for _, d := range r.items {
		all = append(all, d)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID > all[j].ID
	})

	total := len(all)
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	start := (page - 1) * size
	if start > total {
		start = total
	}
	end := start + size
	if end > total {
		end = total
	}
	return all[start:end], total, nil
}

func (r *MemoryDevicesRepo) Update(_ context.Context, d *domain.Device) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.items[d.ID]
	if !ok {
		return ErrNotFound
	}
	existing.Name = d.Name
	existing.FloorNumber = d.FloorNumber
	existing.RoomNumber = d.RoomNumber
	existing.Metadata = d.Metadata
	r.items[d.ID] = existing
	*d = existing
	return nil
}

func (r *MemoryDevicesRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return ErrNotFound
	}
	delete(r.items, id)
	return nil
}

func (r *MemoryDevicesRepo) OwnerOf(_ context.Context, deviceID int64) (*int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.items[deviceID]
	if !ok {
		return nil, ErrNotFound
	}
	return d.AddedBy, nil
}

package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"tissuewatch/internal/domain"
)

// MemoryReadingsRepo 读数仓库内存实现
type MemoryReadingsRepo struct {
	mu      sync.RWMutex
	nextID  int64
	items   []domain.Reading
	devices *MemoryDevicesRepo
}

func NewMemoryReadingsRepo(devices *MemoryDevicesRepo) *MemoryReadingsRepo {
	return &MemoryReadingsRepo{nextID: 1, devices: devices}
}

var _ ReadingsRepository = (*MemoryReadingsRepo)(nil)

func (r *MemoryReadingsRepo) Create(_ context.Context, rd *domain.Reading) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rd.ID = r.nextID
	r.nextID++
	rd.Timestamp = time.Now()
	r.items = append(r.items, *rd)
	return nil
}

func (r *MemoryReadingsRepo) ListAll(_ context.Context, limit int) ([]domain.Reading, error) {
	if limit <= 0 {
		limit = defaultReadingsLimit
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Reading, len(r.items))
	copy(out, r.items)
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryReadingsRepo) ListByDevice(_ context.Context, deviceID int64) ([]domain.Reading, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []domain.Reading
	for _, rd := range r.items {
		if rd.DeviceID == deviceID {
			out = append(out, rd)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r *MemoryReadingsRepo) StatsByDevice(ctx context.Context) ([]DeviceStats, error) {
	devices, _, err := r.devices.List(ctx, 1, 1<<30)
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	byDevice := map[int64]*DeviceStats{}
	out := make([]DeviceStats, 0, len(devices))
	for _, d := range devices {
		out = append(out, DeviceStats{
			DeviceID:    d.ID,
			Name:        d.Name,
			RoomNumber:  d.RoomNumber,
			FloorNumber: d.FloorNumber,
		})
	}
	for i := range out {
		byDevice[out[i].DeviceID] = &out[i]
	}

	for _, rd := range r.items {
		s, ok := byDevice[rd.DeviceID]
		if !ok {
			continue
		}
		s.TotalEntries++
		if rd.Alert == "LOW" {
			s.LowAlertCount++
		}
		if rd.Alert == "LOW" || rd.Alert == "MEDIUM" || rd.Alert == "HIGH" {
			s.AlertishCount++
		}
		if rd.Tamper == "true" {
			s.TamperCount++
		}
		if s.LastAlertTime == nil || rd.Timestamp.After(*s.LastAlertTime) {
			t := rd.Timestamp
			s.LastAlertTime = &t
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].DeviceID < out[j].DeviceID })
	return out, nil
}

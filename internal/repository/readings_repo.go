package repository

import (
	"context"
	"time"

	"tissuewatch/internal/domain"
)

// DeviceStats 按设备聚合的读数统计（analytics 展示用）
// AlertishCount counts LOW/MEDIUM/HIGH level tokens for display; it is not the
// notification trigger condition.
type DeviceStats struct {
	DeviceID      int64      `json:"device_id"`
	Name          string     `json:"name"`
	RoomNumber    string     `json:"room"`
	FloorNumber   int        `json:"floor"`
	TotalEntries  int64      `json:"total_entries"`
	LowAlertCount int64      `json:"low_alert_count"`
	AlertishCount int64      `json:"alertish_count"`
	TamperCount   int64      `json:"tamper_count"`
	LastAlertTime *time.Time `json:"last_alert_time"`
}

// ReadingsRepository 读数仓库接口。Readings are append-only.
type ReadingsRepository interface {
	Create(ctx context.Context, rd *domain.Reading) error
	// ListAll 按时间倒序返回最近 limit 条（limit<=0 用默认值）
	ListAll(ctx context.Context, limit int) ([]domain.Reading, error)
	ListByDevice(ctx context.Context, deviceID int64) ([]domain.Reading, error)
	// StatsByDevice 每台设备的聚合统计
	StatsByDevice(ctx context.Context) ([]DeviceStats, error)
}

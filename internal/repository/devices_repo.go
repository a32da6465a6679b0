package repository

import (
	"context"

	"tissuewatch/internal/domain"
)

// DevicesRepository 设备仓库接口
type DevicesRepository interface {
	Create(ctx context.Context, d *domain.Device) error
	GetByID(ctx context.Context, id int64) (*domain.Device, error)
	// GetByHardwareID 按硬件标识查找（WiFi 自注册去重用）；未找到返回 ErrNotFound
	GetByHardwareID(ctx context.Context, hardwareID string) (*domain.Device, error)
	// List 按 created_at DESC 分页
	List(ctx context.Context, page, size int) ([]domain.Device, int, error)
	// Update 更新可变字段（name/floor/room/metadata）；identity 字段不动
	Update(ctx context.Context, d *domain.Device) error
	Delete(ctx context.Context, id int64) error
	// OwnerOf 解析设备所有者（通知范围判断用）
	OwnerOf(ctx context.Context, deviceID int64) (*int64, error)
}

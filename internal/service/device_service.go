package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"tissuewatch/internal/domain"
	"tissuewatch/internal/repository"
)

// DeviceInput 手动建档的设备字段
type DeviceInput struct {
	Name        string          `json:"name"`
	FloorNumber int             `json:"floor_number"`
	RoomNumber  string          `json:"room_number"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
}

// WiFiRegistration 设备固件自注册载荷（ESP32 上电后上报）
type WiFiRegistration struct {
	MACAddress      string `json:"mac_address"`
	Model           string `json:"model,omitempty"`
	FirmwareVersion string `json:"firmware_version,omitempty"`
	IPAddress       string `json:"ip_address,omitempty"`
	SignalStrength  int    `json:"signal_strength,omitempty"`
	FloorNumber     int    `json:"floor_number,omitempty"`
	RoomNumber      string `json:"room_number,omitempty"`
}

// DeviceService 设备建档与 WiFi 自注册
type DeviceService struct {
	devices repository.DevicesRepository
	logger  *zap.Logger
}

func NewDeviceService(devices repository.DevicesRepository, logger *zap.Logger) *DeviceService {
	return &DeviceService{devices: devices, logger: logger}
}

// NormalizeHardwareID MAC 地址规范化：去掉 ":"/"-" 分隔符并转大写十六进制。
// "aa:bb:cc:dd:ee:ff" 与 "AA-BB-CC-DD-EE-FF" 指向同一台设备。
func NormalizeHardwareID(mac string) string {
	mac = strings.TrimSpace(mac)
	mac = strings.ReplaceAll(mac, ":", "")
	mac = strings.ReplaceAll(mac, "-", "")
	return strings.ToUpper(mac)
}

func (s *DeviceService) Add(ctx context.Context, in DeviceInput, addedBy int64) (*domain.Device, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, fmt.Errorf("device name must not be empty: %w", ErrValidation)
	}
	if strings.TrimSpace(in.RoomNumber) == "" {
		return nil, fmt.Errorf("room number must not be empty: %w", ErrValidation)
	}

	dev := &domain.Device{
		Name:             in.Name,
		FloorNumber:      in.FloorNumber,
		RoomNumber:       in.RoomNumber,
		RegistrationType: "manual",
		Metadata:         in.Metadata,
		AddedBy:          &addedBy,
	}
	if err := s.devices.Create(ctx, dev); err != nil {
		return nil, fmt.Errorf("failed to create device: %w", err)
	}
	s.logger.Info("Device registered",
		zap.Int64("device_id", dev.ID),
		zap.String("room", dev.RoomNumber),
		zap.Int64("added_by", addedBy),
	)
	return dev, nil
}

func (s *DeviceService) Get(ctx context.Context, id int64) (*domain.Device, error) {
	return s.devices.GetByID(ctx, id)
}

func (s *DeviceService) List(ctx context.Context, page, size int) ([]domain.Device, int, error) {
	return s.devices.List(ctx, page, size)
}

func (s *DeviceService) Update(ctx context.Context, id int64, in DeviceInput) (*domain.Device, error) {
	dev, err := s.devices.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Name != "" {
		dev.Name = in.Name
	}
	if in.FloorNumber != 0 {
		dev.FloorNumber = in.FloorNumber
	}
	if in.RoomNumber != "" {
		dev.RoomNumber = in.RoomNumber
	}
	if in.Metadata != nil {
		dev.Metadata = in.Metadata
	}
	if err := s.devices.Update(ctx, dev); err != nil {
		return nil, err
	}
	return dev, nil
}

func (s *DeviceService) Delete(ctx context.Context, id int64) error {
	return s.devices.Delete(ctx, id)
}

// RegisterViaWiFi 固件自注册。同一 MAC 重复上报是幂等的：更新连接元数据而
// 不是建新档。Returns created=true on first sight of the hardware id.
func (s *DeviceService) RegisterViaWiFi(ctx context.Context, reg WiFiRegistration) (dev *domain.Device, created bool, err error) {
	hwID := NormalizeHardwareID(reg.MACAddress)
	if hwID == "" {
		return nil, false, fmt.Errorf("mac_address must not be empty: %w", ErrValidation)
	}

	meta := map[string]any{
		"mac_address":     hwID,
		"last_connection": time.Now().UTC().Format(time.RFC3339),
	}
	if reg.Model != "" {
		meta["model"] = reg.Model
	}
	if reg.FirmwareVersion != "" {
		meta["firmware_version"] = reg.FirmwareVersion
	}
	if reg.IPAddress != "" {
		meta["ip_address"] = reg.IPAddress
	}
	if reg.SignalStrength != 0 {
		meta["signal_strength"] = reg.SignalStrength
	}

	existing, err := s.devices.GetByHardwareID(ctx, hwID)
	switch {
	case err == nil:
		existing.Metadata, err = mergeMetadata(existing.Metadata, meta)
		if err != nil {
			return nil, false, err
		}
		if reg.FloorNumber != 0 {
			existing.FloorNumber = reg.FloorNumber
		}
		if reg.RoomNumber != "" {
			existing.RoomNumber = reg.RoomNumber
		}
		if err := s.devices.Update(ctx, existing); err != nil {
			return nil, false, err
		}
		s.logger.Info("WiFi device reconnected",
			zap.Int64("device_id", existing.ID),
			zap.String("hardware_id", hwID),
		)
		return existing, false, nil

	case errors.Is(err, repository.ErrNotFound):
		raw, merr := json.Marshal(meta)
		if merr != nil {
			return nil, false, merr
		}
		dev := &domain.Device{
			Name:             "Dispenser " + hwID,
			FloorNumber:      reg.FloorNumber,
			RoomNumber:       reg.RoomNumber,
			HardwareID:       &hwID,
			RegistrationType: "wifi",
			Metadata:         raw,
		}
		if err := s.devices.Create(ctx, dev); err != nil {
			return nil, false, fmt.Errorf("failed to create device: %w", err)
		}
		s.logger.Info("WiFi device self-registered",
			zap.Int64("device_id", dev.ID),
			zap.String("hardware_id", hwID),
		)
		return dev, true, nil

	default:
		return nil, false, err
	}
}

// mergeMetadata 在已有 JSON 元数据上叠加新键，旧的未覆盖键保留
func mergeMetadata(existing json.RawMessage, updates map[string]any) (json.RawMessage, error) {
	merged := map[string]any{}
	if len(existing) > 0 {
		if err := json.Unmarshal(existing, &merged); err != nil {
			// Corrupt stored metadata should not block a reconnect.
			merged = map[string]any{}
		}
	}
	for k, v := range updates {
		merged[k] = v
	}
	return json.Marshal(merged)
}

package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"tissuewatch/internal/alert"
	"tissuewatch/internal/domain"
	"tissuewatch/internal/repository"
)

// Dispatcher 扇出投递面（dispatch.Dispatcher 实现）
type Dispatcher interface {
	Dispatch(ctx context.Context, dev domain.Device, rd domain.Reading, n domain.Notification, recipients []int64)
}

// ReadingInput 设备上报载荷（HTTP 与 MQTT 共用同一形状）。
// Tamper arrives as a string or a bool depending on firmware version.
type ReadingInput struct {
	DeviceID int64  `json:"device_id"`
	Alert    string `json:"alert"`
	Count    int    `json:"count"`
	ReferVal int    `json:"reference_value"`
	Tamper   any    `json:"tamper"`
}

// IngestResult 落库结果。NotificationKind is empty when no alert fired.
type IngestResult struct {
	Reading          domain.Reading       `json:"reading"`
	Notification     *domain.Notification `json:"notification,omitempty"`
	NotificationKind string               `json:"notification_kind,omitempty"`
}

// IngestService 读数接入：分类 → 持久化 → 扇出。
// Per-device ordering follows arrival order; readings from different devices
// are processed fully in parallel.
type IngestService struct {
	devices       repository.DevicesRepository
	readings      repository.ReadingsRepository
	notifications repository.NotificationsRepository
	users         repository.UsersRepository
	dispatcher    Dispatcher
	logger        *zap.Logger
}

func NewIngestService(
	devices repository.DevicesRepository,
	readings repository.ReadingsRepository,
	notifications repository.NotificationsRepository,
	users repository.UsersRepository,
	dispatcher Dispatcher,
	logger *zap.Logger,
) *IngestService {
	return &IngestService{
		devices:       devices,
		readings:      readings,
		notifications: notifications,
		users:         users,
		dispatcher:    dispatcher,
		logger:        logger,
	}
}

// CoerceTamper 把线上的 tamper 值（bool 或任意字符串）规范为小写
// "true"/"false" 字面量，入库和比较都只见规范形式。
func CoerceTamper(v any) string {
	switch t := v.(type) {
	case bool:
		if t {
			return "true"
		}
		return "false"
	case string:
		if strings.ToLower(t) == "true" {
			return "true"
		}
		return "false"
	default:
		return "false"
	}
}

// Ingest 处理一条设备读数。
// Unknown device is a validation error (repository.ErrNotFound), nothing is
// stored and nothing fires. A persistence failure on the notification aborts
// dispatch: delivery payloads reference the stored id.
func (s *IngestService) Ingest(ctx context.Context, in ReadingInput) (*IngestResult, error) {
	dev, err := s.devices.GetByID(ctx, in.DeviceID)
	if err != nil {
		return nil, fmt.Errorf("device %d: %w", in.DeviceID, err)
	}

	tamper := CoerceTamper(in.Tamper)

	rd := domain.Reading{
		DeviceID: dev.ID,
		Alert:    in.Alert,
		Count:    in.Count,
		ReferVal: in.ReferVal,
		Tamper:   tamper,
	}
	if err := s.readings.Create(ctx, &rd); err != nil {
		return nil, fmt.Errorf("failed to store reading: %w", err)
	}

	result := &IngestResult{Reading: rd}

	ev, ok := alert.Classify(alert.Input{
		AlertSignal: in.Alert,
		TamperRaw:   tamper,
		RoomNumber:  dev.RoomNumber,
		FloorNumber: dev.FloorNumber,
	})
	if !ok {
		return result, nil
	}

	n := domain.Notification{
		DeviceID: dev.ID,
		Kind:     ev.Kind,
		Title:    ev.Title,
		Message:  ev.Message,
		Alert:    in.Alert,
		Tamper:   tamper,
		Priority: ev.Priority,
	}
	if err := s.notifications.Create(ctx, &n); err != nil {
		return nil, fmt.Errorf("failed to store notification: %w", err)
	}

	result.Notification = &n
	result.NotificationKind = n.Kind

	recipients := s.recipientsFor(ctx, dev)

	s.logger.Info("Alert notification created",
		zap.Int64("device_id", dev.ID),
		zap.Int64("notification_id", n.ID),
		zap.String("kind", n.Kind),
		zap.Int("priority", n.Priority),
		zap.Int("recipients", len(recipients)),
	)

	// Fire-and-forget relative to the ingestion response. Delivery failures
	// are the dispatcher's to log; ingestion already succeeded.
	go s.dispatcher.Dispatch(context.WithoutCancel(ctx), *dev, rd, n, recipients)

	return result, nil
}

// recipientsFor 收件人 = 设备所有者 + 全部管理员（管理员拥有所有设备）
func (s *IngestService) recipientsFor(ctx context.Context, dev *domain.Device) []int64 {
	var recipients []int64
	if dev.AddedBy != nil {
		recipients = append(recipients, *dev.AddedBy)
	}

	admins, err := s.users.ListAdminIDs(ctx)
	if err != nil {
		s.logger.Warn("Failed to list admin recipients",
			zap.Int64("device_id", dev.ID),
			zap.Error(err),
		)
		return recipients
	}
	return append(recipients, admins...)
}

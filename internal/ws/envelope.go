package ws

import (
	"time"

	"tissuewatch/internal/domain"
)

// 消息类型（单一字段名来源，handler/dispatcher/客户端共用）
const (
	TypeNotification = "notification"
	TypeConnection   = "connection"
	TypePing         = "ping"
	TypePong         = "pong"
)

// Envelope server→client 通知消息。
// The field names here are the wire contract; every call site uses this schema.
type Envelope struct {
	Type      string `json:"type"`
	ID        int64  `json:"id"`
	DeviceID  int64  `json:"device_id"`
	Room      string `json:"room"`
	Floor     int    `json:"floor"`
	Timestamp string `json:"timestamp"`
	Alert     string `json:"alert"`
	Tamper    string `json:"tamper"`
	Kind      string `json:"kind"`
	Title     string `json:"title"`
	Message   string `json:"message"`
	Priority  int    `json:"priority"`
	IsRead    bool   `json:"is_read"`
	CreatedAt string `json:"created_at"`
}

// NewNotificationEnvelope 把一条已持久化的通知包装成推送消息
func NewNotificationEnvelope(dev domain.Device, rd domain.Reading, n domain.Notification) Envelope {
	return Envelope{
		Type:      TypeNotification,
		ID:        n.ID,
		DeviceID:  dev.ID,
		Room:      dev.RoomNumber,
		Floor:     dev.FloorNumber,
		Timestamp: rd.Timestamp.Format(time.RFC3339),
		Alert:     n.Alert,
		Tamper:    n.Tamper,
		Kind:      n.Kind,
		Title:     n.Title,
		Message:   n.Message,
		Priority:  n.Priority,
		IsRead:    n.IsRead,
		CreatedAt: n.CreatedAt.Format(time.RFC3339),
	}
}

// controlFrame 握手确认与心跳帧
type controlFrame struct {
	Type   string `json:"type"`
	Status string `json:"status,omitempty"`
}

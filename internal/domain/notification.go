package domain

import "time"

// Notification kinds，与前端样式约定一致
const (
	NotificationKindCritical = "critical"
	NotificationKindTamper   = "tamper"
	NotificationKindLow      = "low"
)

// 数值优先级（排序用，越大越紧急）
const (
	PriorityCritical = 100
	PriorityTamper   = 95
	PriorityLow      = 80
)

// Notification 持久化的用户可见报警记录（对应 notifications 表）
// Kind and Priority are fixed at creation; only IsRead is ever toggled.
// Ownership is transitive through the device's added_by user.
type Notification struct {
	ID       int64  `db:"id" json:"id"`
	DeviceID int64  `db:"device_id" json:"device_id"`
	Kind     string `db:"kind" json:"kind"`
	Title    string `db:"title" json:"title"`
	Message  string `db:"message" json:"message"`

	// Raw signals captured at classification time, for display.
	Alert  string `db:"alert" json:"alert"`
	Tamper string `db:"tamper" json:"tamper"`

	Priority  int       `db:"priority" json:"priority"`
	IsRead    bool      `db:"is_read" json:"is_read"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

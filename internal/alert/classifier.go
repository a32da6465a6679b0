package alert

import (
	"fmt"
	"strings"

	"tissuewatch/internal/domain"
)

// 信号级别令牌（大小写敏感，设备固件按此发送）
const (
	SignalLow    = "LOW"
	SignalMedium = "MEDIUM"
	SignalHigh   = "HIGH"
)

// Input 分类器输入：一条读数的信号字段加上用于消息模板的设备位置
type Input struct {
	// Raw level token: "LOW" | "MEDIUM" | "HIGH" | anything else means none.
	AlertSignal string
	// Tamper as transmitted; normalized here, never compared raw downstream.
	TamperRaw string

	RoomNumber  string
	FloorNumber int
}

// Event 零或一条派生报警。Derived, never persisted directly.
type Event struct {
	Kind     string
	Title    string
	Message  string
	Priority int
}

// TamperTripped 把线上的 tamper 令牌归一化为布尔值：
// 小写后等于 "true" 才算触发，其余（含缺失）一律为 false。
func TamperTripped(raw string) bool {
	return strings.ToLower(raw) == "true"
}

// Classify 将一条读数分类为零或一条报警事件。
// Pure: no I/O, no state. Exactly one branch fires, evaluated in order:
//  1. LOW + tamper  -> critical (100)
//  2. tamper alone  -> tamper   (95)
//  3. LOW alone     -> low      (80)
//  4. otherwise no event (MEDIUM/HIGH/none alone never notify)
func Classify(in Input) (Event, bool) {
	isLow := in.AlertSignal == SignalLow
	tampered := TamperTripped(in.TamperRaw)

	switch {
	case isLow && tampered:
		return Event{
			Kind:     domain.NotificationKindCritical,
			Title:    "🚨 CRITICAL Alert",
			Message:  fmt.Sprintf("[Room %s, Floor %d] Low tissue AND tampering detected!", in.RoomNumber, in.FloorNumber),
			Priority: domain.PriorityCritical,
		}, true
	case tampered:
		return Event{
			Kind:     domain.NotificationKindTamper,
			Title:    "🔒 Tamper Alert",
			Message:  fmt.Sprintf("[Room %s, Floor %d] Device tampering detected", in.RoomNumber, in.FloorNumber),
			Priority: domain.PriorityTamper,
		}, true
	case isLow:
		return Event{
			Kind:     domain.NotificationKindLow,
			Title:    "⚠️ Low Tissue Alert",
			Message:  fmt.Sprintf("[Room %s, Floor %d] Low tissue detected", in.RoomNumber, in.FloorNumber),
			Priority: domain.PriorityLow,
		}, true
	default:
		return Event{}, false
	}
}

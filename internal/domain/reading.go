package domain

import "time"

// Reading 设备遥测采样（对应 readings 表）
// Append-only: readings are never mutated or deleted once stored.
type Reading struct {
	ID       int64 `db:"id" json:"id"`
	DeviceID int64 `db:"device_id" json:"device_id"`

	// Raw level token as transmitted: "LOW" | "MEDIUM" | "HIGH" | other/empty.
	Alert string `db:"alert" json:"alert"`

	Count    int `db:"count" json:"count"`
	ReferVal int `db:"refer_val" json:"refer_val"`

	// Tamper flag coerced to the literal lowercase token "true"/"false"
	// at the ingestion boundary, regardless of the wire type.
	Tamper string `db:"tamper" json:"tamper"`

	// Server-assigned.
	Timestamp time.Time `db:"timestamp" json:"timestamp"`
}

package domain

import (
	"encoding/json"
	"time"
)

// Device 设备领域模型（对应 devices 表）
// A dispenser unit mounted in one room. Identity fields are immutable after
// registration; metadata/status may be updated by the WiFi re-registration flow.
type Device struct {
	ID          int64  `db:"id" json:"id"`
	Name        string `db:"name" json:"name"`
	FloorNumber int    `db:"floor_number" json:"floor_number"`
	RoomNumber  string `db:"room_number" json:"room_number"`

	// Optional stable hardware identifier reported by the ESP32
	// (MAC address normalized to upper-case hex, no separators).
	HardwareID *string `db:"hardware_id" json:"hardware_id,omitempty"`

	// "manual" | "wifi"
	RegistrationType string `db:"registration_type" json:"registration_type"`

	// WiFi-specific data: model, firmware_version, ip_address,
	// mac_address, signal_strength, last_connection.
	Metadata json.RawMessage `db:"metadata" json:"metadata,omitempty"`

	// Owning user; nil for devices self-registered before adoption.
	AddedBy   *int64    `db:"added_by" json:"added_by,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

package model

import "time"

// TableStatus is the lifecycle state of a billiard table.
type TableStatus string

const (
	TableAvailable   TableStatus = "AVAILABLE"
	TableOccupied    TableStatus = "OCCUPIED"
	TableMaintenance TableStatus = "MAINTENANCE"
)

// Table represents a physical billiard table. HourlyRate is stored in minor
// currency units per hour. A table may be wired to a dedicated controller or
// served by the shared gateway device; RelayChannel/GpioPin describe the
// physical binding on whichever device answers for it.
type Table struct {
	ID           int64       `gorm:"primaryKey" json:"id"`
	Name         string      `gorm:"size:64;not null" json:"name"`
	HourlyRate   int64       `gorm:"not null" json:"hourlyRate"`
	Status       TableStatus `gorm:"size:16;not null;default:AVAILABLE;index" json:"status"`
	IsActive     bool        `gorm:"not null;default:true" json:"isActive"`
	IotDeviceID  *int64      `gorm:"index" json:"iotDeviceId"`
	RelayChannel *int        `json:"relayChannel"`
	GpioPin      *int        `json:"gpioPin"`
	CreatedAt    time.Time   `json:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt"`
}

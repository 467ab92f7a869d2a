package model

import "time"

// CommandType is the instruction carried by an IotCommand.
type CommandType string

const (
	CommandLightOn  CommandType = "LIGHT_ON"
	CommandLightOff CommandType = "LIGHT_OFF"
	CommandBlink3x  CommandType = "BLINK_3X"
)

// CommandStatus is the delivery state of a command. Transitions are strictly
// forward: PENDING -> SENT -> ACK or FAILED. A lost SENT command is never
// re-queued by the server.
type CommandStatus string

const (
	CommandPending CommandStatus = "PENDING"
	CommandSent    CommandStatus = "SENT"
	CommandAck     CommandStatus = "ACK"
	CommandFailed  CommandStatus = "FAILED"
)

// IotCommand is one instruction issued to a device, delivered opportunistically
// when the device next polls. Payload is a JSON document naming the target
// table and its relay wiring.
type IotCommand struct {
	ID        string        `gorm:"primaryKey;size:36" json:"id"`
	DeviceID  int64         `gorm:"index;not null" json:"deviceId"`
	Command   CommandType   `gorm:"size:16;not null" json:"command"`
	Nonce     string        `gorm:"size:36;not null" json:"nonce"`
	Status    CommandStatus `gorm:"size:8;not null;index" json:"status"`
	Payload   string        `gorm:"type:text" json:"payload"`
	CreatedAt time.Time     `gorm:"index" json:"createdAt"`
	SentAt    *time.Time    `json:"sentAt"`
	AckedAt   *time.Time    `json:"ackedAt"`
}

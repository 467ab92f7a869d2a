package model

import "time"

// OnlineWindow is the liveness window for the derived online property.
const OnlineWindow = 5 * time.Minute

// IotDevice is an authenticated relay controller, either dedicated to one
// table or acting as a shared gateway for several. TokenHash stores a keyed
// hash of the device secret; the plaintext token is only shown once at
// registration.
type IotDevice struct {
	ID             int64      `gorm:"primaryKey" json:"id"`
	Name           string     `gorm:"size:64;not null" json:"name"`
	TokenHash      string     `gorm:"size:128;not null" json:"-"`
	IsOnline       bool       `gorm:"not null;default:false" json:"isOnline"`
	LastSeen       *time.Time `json:"lastSeen"`
	SignalStrength *int       `json:"signalStrength"`
	IsActive       bool       `gorm:"not null;default:true" json:"isActive"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// Online derives the effective liveness: the stored flag alone is not
// trusted once the device stops heartbeating.
func (d *IotDevice) Online(now time.Time) bool {
	return d.IsOnline && d.LastSeen != nil && now.Sub(*d.LastSeen) <= OnlineWindow
}

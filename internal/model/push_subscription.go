package model

import "time"

// PushSubscription holds a staff browser push subscription. Subscribed staff
// receive venue-wide notifications (sessions auto-completing or entering the
// expiry warning window).
type PushSubscription struct {
	Endpoint  string    `gorm:"primaryKey"`
	P256DH    string    `gorm:"column:p256dh;not null"`
	Auth      string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
}

package model

import "time"

// RateType selects the pricing policy of a billing session.
type RateType string

const (
	RateHourly    RateType = "HOURLY"
	RateManual    RateType = "MANUAL"
	RateFlexible  RateType = "FLEXIBLE"
	RateOwnerLock RateType = "OWNER_LOCK"
	RatePackage   RateType = "PACKAGE"
)

// SessionStatus is the lifecycle state of a billing session. The only
// transition is ACTIVE -> COMPLETED, taken exactly once.
type SessionStatus string

const (
	SessionActive    SessionStatus = "ACTIVE"
	SessionCompleted SessionStatus = "COMPLETED"
)

// OwnerLockHorizonYears is how far into the future the sentinel end time of
// OWNER_LOCK and FLEXIBLE sessions is placed. Those sessions are exempt from
// duration-based auto-expiry.
const OwnerLockHorizonYears = 100

// BillingSession represents one metered occupancy of a table. Amounts are in
// minor currency units; TotalAmount never decreases while the session is
// ACTIVE and is always replayable from the creation and extension amounts.
type BillingSession struct {
	ID               string        `gorm:"primaryKey;size:36" json:"id"`
	TableID          int64         `gorm:"index;not null" json:"tableId"`
	StartTime        time.Time     `gorm:"not null" json:"startTime"`
	EndTime          time.Time     `gorm:"not null;index" json:"endTime"`
	ActualEndTime    *time.Time    `json:"actualEndTime"`
	DurationMinutes  int           `gorm:"not null" json:"durationMinutes"`
	RateType         RateType      `gorm:"size:16;not null" json:"rateType"`
	RatePerHour      int64         `gorm:"not null" json:"ratePerHour"`
	TotalAmount      int64         `gorm:"not null" json:"totalAmount"`
	Status           SessionStatus `gorm:"size:16;not null;index" json:"status"`
	BlinkCommandSent bool          `gorm:"not null;default:false" json:"blinkCommandSent"`
	AutoCompleted    bool          `gorm:"not null;default:false" json:"autoCompleted"`
	PackageID        *int64        `gorm:"index" json:"packageId"`
	CreatedByID      int64         `gorm:"not null" json:"createdById"`
	ApprovedByID     *int64        `json:"approvedById"`
	CreatedAt        time.Time     `json:"createdAt"`
	UpdatedAt        time.Time     `json:"updatedAt"`
}

// Unbounded reports whether the session has a sentinel end time and is
// therefore excluded from auto-expiry and from extension.
func (s *BillingSession) Unbounded() bool {
	return s.RateType == RateOwnerLock || s.RateType == RateFlexible
}

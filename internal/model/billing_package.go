package model

import "time"

// BillingPackage is a bundled offer: a fixed billing duration and optional
// menu items at a fixed price, overriding per-minute rate computation.
type BillingPackage struct {
	ID              int64     `gorm:"primaryKey" json:"id"`
	Name            string    `gorm:"size:128;not null" json:"name"`
	DurationMinutes int       `gorm:"not null" json:"durationMinutes"`
	Price           int64     `gorm:"not null" json:"price"`
	IsActive        bool      `gorm:"not null;default:true" json:"isActive"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`

	// Associations
	Items []PackageItem `gorm:"foreignKey:PackageID" json:"items"`
}

// PackageItem is one menu line item bundled into a package.
type PackageItem struct {
	ID         int64  `gorm:"primaryKey" json:"id"`
	PackageID  int64  `gorm:"index;not null" json:"packageId"`
	MenuItemID *int64 `gorm:"index" json:"menuItemId"`
	Quantity   int    `gorm:"not null;default:1" json:"quantity"`
}

// PackageUsage records one redemption of a package by a billing session.
type PackageUsage struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	PackageID int64     `gorm:"index;not null" json:"packageId"`
	SessionID string    `gorm:"size:36;index;not null" json:"sessionId"`
	UsedAt    time.Time `gorm:"not null" json:"usedAt"`
}

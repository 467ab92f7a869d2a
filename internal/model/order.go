package model

import "time"

// OrderStatus is the lifecycle state of a food/beverage order. Only DRAFT
// orders are produced by this core (package line items); checkout is an
// external collaborator.
type OrderStatus string

const (
	OrderDraft OrderStatus = "DRAFT"
	OrderPaid  OrderStatus = "PAID"
)

// MenuItem is the minimal menu record this core depends on: package line
// items reference it for pricing and conditional stock decrement.
type MenuItem struct {
	ID         int64     `gorm:"primaryKey" json:"id"`
	Name       string    `gorm:"size:128;not null" json:"name"`
	Price      int64     `gorm:"not null" json:"price"`
	Stock      int       `gorm:"not null;default:0" json:"stock"`
	TrackStock bool      `gorm:"not null;default:false" json:"trackStock"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Order is a food/beverage order, optionally linked to a billing session.
// OrderNo is generated from timestamp plus a random suffix with a bounded
// retry on collision at the persistence layer.
type Order struct {
	ID          int64       `gorm:"primaryKey" json:"id"`
	OrderNo     string      `gorm:"size:32;uniqueIndex;not null" json:"orderNo"`
	SessionID   *string     `gorm:"size:36;index" json:"sessionId"`
	Status      OrderStatus `gorm:"size:8;not null;default:DRAFT" json:"status"`
	TotalAmount int64       `gorm:"not null" json:"totalAmount"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`

	// Associations
	Items []OrderItem `gorm:"foreignKey:OrderID" json:"items"`
}

// OrderItem is one line of an order.
type OrderItem struct {
	ID         int64 `gorm:"primaryKey" json:"id"`
	OrderID    int64 `gorm:"index;not null" json:"orderId"`
	MenuItemID int64 `gorm:"index;not null" json:"menuItemId"`
	Quantity   int   `gorm:"not null" json:"quantity"`
	UnitPrice  int64 `gorm:"not null" json:"unitPrice"`
}

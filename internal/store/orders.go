package store

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"gorm.io/gorm"

	"billiard-venue-backend/internal/model"
)

const orderNoAttempts = 5

func (s *gormStore) GetPackage(ctx context.Context, id int64) (*model.BillingPackage, error) {
	var pkg model.BillingPackage
	err := s.db.WithContext(ctx).Preload("Items").First(&pkg, id).Error
	if err != nil {
		return nil, err
	}
	return &pkg, nil
}

func (s *gormStore) RecordPackageUsage(ctx context.Context, packageID int64, sessionID string, at time.Time) error {
	usage := model.PackageUsage{PackageID: packageID, SessionID: sessionID, UsedAt: at}
	return s.db.WithContext(ctx).Create(&usage).Error
}

// recordPackageRedemption writes the usage record for a redeemed package
// and, when the package bundles menu items, a linked draft order with a
// conditional stock decrement per line.
func recordPackageRedemption(tx *gorm.DB, session *model.BillingSession, pkg *model.BillingPackage) error {
	usage := model.PackageUsage{
		PackageID: pkg.ID,
		SessionID: session.ID,
		UsedAt:    session.StartTime,
	}
	if err := tx.Create(&usage).Error; err != nil {
		return fmt.Errorf("failed to record package usage: %w", err)
	}

	var menuLines []model.PackageItem
	for _, item := range pkg.Items {
		if item.MenuItemID != nil {
			menuLines = append(menuLines, item)
		}
	}
	if len(menuLines) == 0 {
		return nil
	}

	order := model.Order{
		SessionID: &session.ID,
		Status:    model.OrderDraft,
	}
	if err := createOrderWithNumber(tx, &order); err != nil {
		return err
	}

	for _, line := range menuLines {
		var menuItem model.MenuItem
		if err := tx.First(&menuItem, *line.MenuItemID).Error; err != nil {
			return fmt.Errorf("failed to load menu item %d: %w", *line.MenuItemID, err)
		}

		orderItem := model.OrderItem{
			OrderID:    order.ID,
			MenuItemID: menuItem.ID,
			Quantity:   line.Quantity,
			UnitPrice:  menuItem.Price,
		}
		if err := tx.Create(&orderItem).Error; err != nil {
			return fmt.Errorf("failed to create order item: %w", err)
		}

		if menuItem.TrackStock {
			res := tx.Model(&model.MenuItem{}).
				Where("id = ? AND stock >= ?", menuItem.ID, line.Quantity).
				Update("stock", gorm.Expr("stock - ?", line.Quantity))
			if res.Error != nil {
				return fmt.Errorf("failed to decrement stock for menu item %d: %w", menuItem.ID, res.Error)
			}
			if res.RowsAffected == 0 {
				return fmt.Errorf("insufficient stock for menu item %d", menuItem.ID)
			}
		}

		order.TotalAmount += menuItem.Price * int64(line.Quantity)
	}

	return tx.Model(&model.Order{}).
		Where("id = ?", order.ID).
		Update("total_amount", order.TotalAmount).Error
}

// createOrderWithNumber persists the order with a generated order number,
// retrying a bounded number of times when the number collides. The number is
// derived from the wall clock plus a random suffix instead of a process
// counter, so it survives restarts and multiple writers.
func createOrderWithNumber(tx *gorm.DB, order *model.Order) error {
	for attempt := 0; attempt < orderNoAttempts; attempt++ {
		order.OrderNo = newOrderNo()

		var count int64
		if err := tx.Model(&model.Order{}).
			Where("order_no = ?", order.OrderNo).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			continue
		}

		if err := tx.Create(order).Error; err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}
		return nil
	}
	return ErrOrderNumberExhausted
}

func newOrderNo() string {
	return fmt.Sprintf("ORD%s%04d", time.Now().UTC().Format("20060102150405"), rand.Intn(10000))
}

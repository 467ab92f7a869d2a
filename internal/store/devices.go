package store

import (
	"context"
	"fmt"
	"time"

	"billiard-venue-backend/internal/model"
)

func (s *gormStore) GetDevice(ctx context.Context, id int64) (*model.IotDevice, error) {
	var device model.IotDevice
	if err := s.db.WithContext(ctx).First(&device, id).Error; err != nil {
		return nil, err
	}
	return &device, nil
}

func (s *gormStore) FirstActiveDevice(ctx context.Context) (*model.IotDevice, error) {
	var device model.IotDevice
	err := s.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("id").
		First(&device).Error
	if err != nil {
		return nil, err
	}
	return &device, nil
}

func (s *gormStore) ListDevices(ctx context.Context) ([]model.IotDevice, error) {
	var devices []model.IotDevice
	if err := s.db.WithContext(ctx).Order("id").Find(&devices).Error; err != nil {
		return nil, err
	}
	return devices, nil
}

func (s *gormStore) CreateDevice(ctx context.Context, device *model.IotDevice) error {
	return s.db.WithContext(ctx).Create(device).Error
}

func (s *gormStore) UpdateDevice(ctx context.Context, device *model.IotDevice) error {
	return s.db.WithContext(ctx).Save(device).Error
}

// TouchDevice records a successful authenticated contact from the device.
func (s *gormStore) TouchDevice(ctx context.Context, id int64, at time.Time, signalStrength *int) error {
	updates := map[string]any{
		"is_online": true,
		"last_seen": at,
	}
	if signalStrength != nil {
		updates["signal_strength"] = *signalStrength
	}
	err := s.db.WithContext(ctx).
		Model(&model.IotDevice{}).
		Where("id = ?", id).
		Updates(updates).Error
	if err != nil {
		return fmt.Errorf("failed to touch device %d: %w", id, err)
	}
	return nil
}

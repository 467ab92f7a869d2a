package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"billiard-venue-backend/internal/model"
)

func (s *gormStore) CreateCommand(ctx context.Context, cmd *model.IotCommand) error {
	return s.db.WithContext(ctx).Create(cmd).Error
}

func (s *gormStore) GetCommand(ctx context.Context, id string) (*model.IotCommand, error) {
	var cmd model.IotCommand
	if err := s.db.WithContext(ctx).First(&cmd, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &cmd, nil
}

// PullLatestPending hands out at most one command per poll: the most
// recently created PENDING one. The SENT flip is conditional, so a command
// cannot be handed out twice. Returns nil when the queue is empty.
func (s *gormStore) PullLatestPending(ctx context.Context, deviceID int64, at time.Time) (*model.IotCommand, error) {
	var pulled *model.IotCommand
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cmd model.IotCommand
		err := tx.Where("device_id = ? AND status = ?", deviceID, model.CommandPending).
			Order("created_at DESC, id DESC").
			First(&cmd).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		res := tx.Model(&model.IotCommand{}).
			Where("id = ? AND status = ?", cmd.ID, model.CommandPending).
			Updates(map[string]any{
				"status":  model.CommandSent,
				"sent_at": at,
			})
		if res.Error != nil {
			return fmt.Errorf("failed to mark command %s sent: %w", cmd.ID, res.Error)
		}
		if res.RowsAffected == 0 {
			// Lost a race with another poll; treat as empty queue.
			return nil
		}

		cmd.Status = model.CommandSent
		cmd.SentAt = &at
		pulled = &cmd
		return nil
	})
	if err != nil {
		return nil, err
	}
	return pulled, nil
}

// UpdateCommandStatus moves a command strictly forward, conditional on its
// current status.
func (s *gormStore) UpdateCommandStatus(ctx context.Context, id string, from, to model.CommandStatus, at time.Time) (bool, error) {
	updates := map[string]any{"status": to}
	if to == model.CommandAck || to == model.CommandFailed {
		updates["acked_at"] = at
	}
	res := s.db.WithContext(ctx).
		Model(&model.IotCommand{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

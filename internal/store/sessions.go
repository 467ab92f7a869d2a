package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"billiard-venue-backend/internal/model"
)

func (s *gormStore) GetSession(ctx context.Context, id string) (*model.BillingSession, error) {
	var session model.BillingSession
	if err := s.db.WithContext(ctx).First(&session, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *gormStore) ActiveSessionForTable(ctx context.Context, tableID int64) (*model.BillingSession, error) {
	var session model.BillingSession
	err := s.db.WithContext(ctx).
		Where("table_id = ? AND status = ?", tableID, model.SessionActive).
		First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *gormStore) ListActiveSessions(ctx context.Context) ([]model.BillingSession, error) {
	var sessions []model.BillingSession
	err := s.db.WithContext(ctx).
		Where("status = ?", model.SessionActive).
		Order("start_time").
		Find(&sessions).Error
	if err != nil {
		return nil, err
	}
	return sessions, nil
}

func (s *gormStore) ListCompletedSessions(ctx context.Context, limit, offset int) ([]model.BillingSession, error) {
	var sessions []model.BillingSession
	err := s.db.WithContext(ctx).
		Where("status = ?", model.SessionCompleted).
		Order("actual_end_time DESC").
		Limit(limit).Offset(offset).
		Find(&sessions).Error
	if err != nil {
		return nil, err
	}
	return sessions, nil
}

// CreateSessionOccupy claims the table and persists the session in one
// transaction. The table flip is conditional on AVAILABLE, so the second of
// two racing starts loses with ErrTableNotAvailable. When a package is
// attached, the usage record and the draft order for its menu line items are
// written in the same transaction.
func (s *gormStore) CreateSessionOccupy(ctx context.Context, session *model.BillingSession, pkg *model.BillingPackage) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Table{}).
			Where("id = ? AND status = ? AND is_active = ?", session.TableID, model.TableAvailable, true).
			Update("status", model.TableOccupied)
		if res.Error != nil {
			return fmt.Errorf("failed to claim table %d: %w", session.TableID, res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrTableNotAvailable
		}

		// Guard the one-active-session-per-table invariant against rows the
		// status flag has drifted away from.
		var active int64
		if err := tx.Model(&model.BillingSession{}).
			Where("table_id = ? AND status = ?", session.TableID, model.SessionActive).
			Count(&active).Error; err != nil {
			return err
		}
		if active > 0 {
			return ErrTableNotAvailable
		}

		if err := tx.Create(session).Error; err != nil {
			return fmt.Errorf("failed to create session: %w", err)
		}

		if pkg != nil {
			if err := recordPackageRedemption(tx, session, pkg); err != nil {
				return err
			}
		}
		return nil
	})
}

// ExtendSession applies an extension: end time moves forward, the amounts
// accrue, and the blink warning re-arms. Conditional on the session still
// being ACTIVE.
func (s *gormStore) ExtendSession(ctx context.Context, id string, newEnd time.Time, addMinutes int, addAmount int64) (bool, error) {
	res := s.db.WithContext(ctx).
		Model(&model.BillingSession{}).
		Where("id = ? AND status = ?", id, model.SessionActive).
		Updates(map[string]any{
			"end_time":           newEnd,
			"duration_minutes":   gorm.Expr("duration_minutes + ?", addMinutes),
			"total_amount":       gorm.Expr("total_amount + ?", addAmount),
			"blink_command_sent": false,
		})
	if res.Error != nil {
		return false, fmt.Errorf("failed to extend session %s: %w", id, res.Error)
	}
	return res.RowsAffected > 0, nil
}

// CompleteSession takes the terminal transition exactly once: the session
// row flip is conditional on ACTIVE, so a concurrent stop and sweep cannot
// both complete it. The table release is unconditional; freeing the table
// must succeed even if its status has drifted.
func (s *gormStore) CompleteSession(ctx context.Context, id string, tableID int64, endedAt time.Time, finalAmount int64, auto bool) (bool, error) {
	completed := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.BillingSession{}).
			Where("id = ? AND status = ?", id, model.SessionActive).
			Updates(map[string]any{
				"status":          model.SessionCompleted,
				"actual_end_time": endedAt,
				"total_amount":    finalAmount,
				"auto_completed":  auto,
			})
		if res.Error != nil {
			return fmt.Errorf("failed to complete session %s: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrSessionNotActive
		}
		completed = true

		return tx.Model(&model.Table{}).
			Where("id = ?", tableID).
			Update("status", model.TableAvailable).Error
	})
	if err != nil {
		return completed, err
	}
	return completed, nil
}

// MoveSession re-seats a session in one atomic update spanning the session
// row and both tables. The target claim is conditional on AVAILABLE.
func (s *gormStore) MoveSession(ctx context.Context, id string, fromTableID, toTableID int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Table{}).
			Where("id = ? AND status = ? AND is_active = ?", toTableID, model.TableAvailable, true).
			Update("status", model.TableOccupied)
		if res.Error != nil {
			return fmt.Errorf("failed to claim table %d: %w", toTableID, res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrTableNotAvailable
		}

		res = tx.Model(&model.BillingSession{}).
			Where("id = ? AND status = ?", id, model.SessionActive).
			Update("table_id", toTableID)
		if res.Error != nil {
			return fmt.Errorf("failed to move session %s: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrSessionNotActive
		}

		return tx.Model(&model.Table{}).
			Where("id = ?", fromTableID).
			Update("status", model.TableAvailable).Error
	})
}

func (s *gormStore) ListExpiredSessions(ctx context.Context, now time.Time) ([]model.BillingSession, error) {
	var sessions []model.BillingSession
	err := s.db.WithContext(ctx).
		Where("status = ? AND rate_type NOT IN ? AND end_time <= ?",
			model.SessionActive, []model.RateType{model.RateOwnerLock, model.RateFlexible}, now).
		Find(&sessions).Error
	if err != nil {
		return nil, err
	}
	return sessions, nil
}

func (s *gormStore) ListWarningSessions(ctx context.Context, now, until time.Time) ([]model.BillingSession, error) {
	var sessions []model.BillingSession
	err := s.db.WithContext(ctx).
		Where("status = ? AND rate_type NOT IN ? AND blink_command_sent = ? AND end_time > ? AND end_time <= ?",
			model.SessionActive, []model.RateType{model.RateOwnerLock, model.RateFlexible}, false, now, until).
		Find(&sessions).Error
	if err != nil {
		return nil, err
	}
	return sessions, nil
}

// MarkBlinkSent arms the once-per-billed-period latch. Conditional on the
// flag still being clear, so two overlapping sweeps cannot both claim it.
func (s *gormStore) MarkBlinkSent(ctx context.Context, id string) (bool, error) {
	res := s.db.WithContext(ctx).
		Model(&model.BillingSession{}).
		Where("id = ? AND status = ? AND blink_command_sent = ?", id, model.SessionActive, false).
		Update("blink_command_sent", true)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

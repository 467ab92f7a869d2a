// Package tabletest runs timed light tests against a table. A test parks the
// table in MAINTENANCE so no session can start on it, lights it up, and
// auto-reverts when the timer fires.
package tabletest

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"billiard-venue-backend/internal/apperr"
	"billiard-venue-backend/internal/dispatch"
	"billiard-venue-backend/internal/model"
	"billiard-venue-backend/internal/store"
)

type Coordinator struct {
	store    store.Store
	dispatch *dispatch.Dispatcher
	duration time.Duration
	log      *zap.Logger

	mu     sync.Mutex
	timers map[int64]*time.Timer
}

func NewCoordinator(s store.Store, d *dispatch.Dispatcher, duration time.Duration, log *zap.Logger) *Coordinator {
	return &Coordinator{
		store:    s,
		dispatch: d,
		duration: duration,
		log:      log,
		timers:   make(map[int64]*time.Timer),
	}
}

// StartTest flips the table to MAINTENANCE, lights it, and arms the revert
// timer. Starting a test while one is already running restarts the timer.
func (c *Coordinator) StartTest(ctx context.Context, tableID int64) error {
	table, err := c.store.GetTable(ctx, tableID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("table %d not found", tableID)
		}
		return err
	}
	if !table.IsActive {
		return apperr.Validation("table %d is disabled", tableID)
	}

	switch table.Status {
	case model.TableAvailable:
		flipped, err := c.store.UpdateTableStatus(ctx, tableID, model.TableAvailable, model.TableMaintenance)
		if err != nil {
			return err
		}
		if !flipped {
			return apperr.Conflict("table %d is no longer available", tableID)
		}
	case model.TableMaintenance:
		// A test is already running. Fall through and rearm the timer.
	default:
		return apperr.Conflict("table %d is occupied", tableID)
	}

	if err := c.dispatch.SendCommand(ctx, table, model.CommandLightOn); err != nil {
		c.log.Error("failed to queue test light command",
			zap.Int64("table_id", tableID), zap.Error(err))
	}

	c.mu.Lock()
	if t, ok := c.timers[tableID]; ok {
		t.Stop()
	}
	c.timers[tableID] = time.AfterFunc(c.duration, func() {
		c.revert(tableID)
	})
	c.mu.Unlock()

	c.log.Info("table test started",
		zap.Int64("table_id", tableID), zap.Duration("duration", c.duration))
	return nil
}

// StopTest cancels the timer and reverts the table immediately.
func (c *Coordinator) StopTest(ctx context.Context, tableID int64) error {
	if !c.Cancel(tableID) {
		return apperr.State("no test running on table %d", tableID)
	}
	c.revertCtx(ctx, tableID)
	return nil
}

// Cancel stops any pending revert timer without touching table state. Used
// when the table itself is deleted, so a stale callback cannot revert a
// table that no longer exists.
func (c *Coordinator) Cancel(tableID int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.timers[tableID]
	if !ok {
		return false
	}
	t.Stop()
	delete(c.timers, tableID)
	return true
}

func (c *Coordinator) revert(tableID int64) {
	c.mu.Lock()
	delete(c.timers, tableID)
	c.mu.Unlock()
	c.revertCtx(context.Background(), tableID)
}

func (c *Coordinator) revertCtx(ctx context.Context, tableID int64) {
	flipped, err := c.store.UpdateTableStatus(ctx, tableID, model.TableMaintenance, model.TableAvailable)
	if err != nil {
		c.log.Error("failed to revert table after test",
			zap.Int64("table_id", tableID), zap.Error(err))
		return
	}
	if !flipped {
		// The table moved on while the timer was pending. Leave it alone.
		return
	}

	table, err := c.store.GetTable(ctx, tableID)
	if err != nil {
		c.log.Error("failed to load table after test revert",
			zap.Int64("table_id", tableID), zap.Error(err))
		return
	}
	if err := c.dispatch.SendCommand(ctx, table, model.CommandLightOff); err != nil {
		c.log.Error("failed to queue light off after test",
			zap.Int64("table_id", tableID), zap.Error(err))
	}
	c.log.Info("table test finished", zap.Int64("table_id", tableID))
}

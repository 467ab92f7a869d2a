// Package dispatch queues light-control commands for polling relay
// controllers and resolves which physical device answers for a table.
package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"billiard-venue-backend/internal/apperr"
	"billiard-venue-backend/internal/model"
	"billiard-venue-backend/internal/store"
)

// Payload is the JSON document carried by a command: the target table and
// its relay wiring on the resolved device.
type Payload struct {
	TableID      int64 `json:"tableId"`
	RelayChannel *int  `json:"relayChannel,omitempty"`
	GpioPin      *int  `json:"gpioPin,omitempty"`
}

// Dispatcher creates, hands out, and acknowledges device commands.
type Dispatcher struct {
	store           store.Store
	gatewayDeviceID int64
	log             *zap.Logger
	now             func() time.Time
}

func New(s store.Store, gatewayDeviceID int64, log *zap.Logger) *Dispatcher {
	return &Dispatcher{
		store:           s,
		gatewayDeviceID: gatewayDeviceID,
		log:             log,
		now:             time.Now,
	}
}

// ResolveTargetDevice picks the device that answers for a table: a dedicated
// binding wins, then the configured shared gateway, then the first
// registered active device. Mixed per-table and shared-gateway deployments
// work without branching at call sites. Returns nil when nothing resolves.
func (d *Dispatcher) ResolveTargetDevice(ctx context.Context, table *model.Table) (*model.IotDevice, error) {
	if table.IotDeviceID != nil {
		device, err := d.store.GetDevice(ctx, *table.IotDeviceID)
		if err == nil {
			return device, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	if d.gatewayDeviceID != 0 {
		device, err := d.store.GetDevice(ctx, d.gatewayDeviceID)
		if err == nil {
			return device, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	device, err := d.store.FirstActiveDevice(ctx)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return device, nil
}

// SendCommand queues a command for the device resolved for the table. When
// no device resolves, it logs and returns nil: billing logic never fails
// because hardware is unavailable.
func (d *Dispatcher) SendCommand(ctx context.Context, table *model.Table, command model.CommandType) error {
	device, err := d.ResolveTargetDevice(ctx, table)
	if err != nil {
		return err
	}
	if device == nil {
		d.log.Warn("no device resolved for table, skipping command",
			zap.Int64("table_id", table.ID),
			zap.String("command", string(command)))
		return nil
	}

	payload, err := json.Marshal(Payload{
		TableID:      table.ID,
		RelayChannel: table.RelayChannel,
		GpioPin:      table.GpioPin,
	})
	if err != nil {
		return err
	}

	cmd := &model.IotCommand{
		ID:       uuid.NewString(),
		DeviceID: device.ID,
		Command:  command,
		Nonce:    uuid.NewString(),
		Status:   model.CommandPending,
		Payload:  string(payload),
	}
	if err := d.store.CreateCommand(ctx, cmd); err != nil {
		return err
	}

	d.log.Info("command queued",
		zap.String("command_id", cmd.ID),
		zap.Int64("device_id", device.ID),
		zap.Int64("table_id", table.ID),
		zap.String("command", string(command)))
	return nil
}

// Pull hands the device its most recently created PENDING command, if any,
// and records the poll as a liveness signal. Latest-intent delivery is
// deliberate: an older un-pulled command can be superseded by a newer one.
func (d *Dispatcher) Pull(ctx context.Context, device *model.IotDevice) (*model.IotCommand, error) {
	now := d.now()
	cmd, err := d.store.PullLatestPending(ctx, device.ID, now)
	if err != nil {
		return nil, err
	}
	if err := d.store.TouchDevice(ctx, device.ID, now, nil); err != nil {
		d.log.Warn("failed to touch device after pull", zap.Int64("device_id", device.ID), zap.Error(err))
	}
	return cmd, nil
}

// Ack moves a SENT command to ACK or FAILED. The command must belong to the
// acknowledging device, and only SENT commands can be acknowledged.
func (d *Dispatcher) Ack(ctx context.Context, device *model.IotDevice, commandID string, success bool) (*model.IotCommand, error) {
	cmd, err := d.store.GetCommand(ctx, commandID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("command %s not found", commandID)
		}
		return nil, err
	}
	if cmd.DeviceID != device.ID {
		return nil, apperr.Authorization("command does not belong to this device")
	}

	target := model.CommandAck
	if !success {
		target = model.CommandFailed
	}

	now := d.now()
	updated, err := d.store.UpdateCommandStatus(ctx, cmd.ID, model.CommandSent, target, now)
	if err != nil {
		return nil, err
	}
	if !updated {
		return nil, apperr.State("command %s is %s, not SENT", cmd.ID, cmd.Status)
	}

	cmd.Status = target
	cmd.AckedAt = &now
	return cmd, nil
}

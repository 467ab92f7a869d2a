package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"billiard-venue-backend/internal/apperr"
	dbpkg "billiard-venue-backend/internal/db"
	"billiard-venue-backend/internal/model"
	"billiard-venue-backend/internal/store"
)

func newTestStore(t *testing.T) store.Store {
	dsn := fmt.Sprintf("file:dispatch-%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, dbpkg.Migrate(db))
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	})
	return store.NewGormStore(db)
}

func seedDevice(t *testing.T, s store.Store, name string) *model.IotDevice {
	device := &model.IotDevice{Name: name, TokenHash: "irrelevant", IsActive: true}
	require.NoError(t, s.CreateDevice(context.Background(), device))
	return device
}

func TestResolveTargetDevice(t *testing.T) {
	ctx := context.Background()

	t.Run("prefers dedicated device", func(t *testing.T) {
		s := newTestStore(t)
		first := seedDevice(t, s, "first")
		gateway := seedDevice(t, s, "gateway")
		dedicated := seedDevice(t, s, "dedicated")
		_ = first

		d := New(s, gateway.ID, zap.NewNop())
		table := &model.Table{ID: 1, IotDeviceID: &dedicated.ID}

		got, err := d.ResolveTargetDevice(ctx, table)
		require.NoError(t, err)
		assert.Equal(t, dedicated.ID, got.ID)
	})

	t.Run("falls back to configured gateway", func(t *testing.T) {
		s := newTestStore(t)
		seedDevice(t, s, "first")
		gateway := seedDevice(t, s, "gateway")

		d := New(s, gateway.ID, zap.NewNop())
		got, err := d.ResolveTargetDevice(ctx, &model.Table{ID: 1})
		require.NoError(t, err)
		assert.Equal(t, gateway.ID, got.ID)
	})

	t.Run("falls back to first registered device", func(t *testing.T) {
		s := newTestStore(t)
		first := seedDevice(t, s, "first")
		seedDevice(t, s, "second")

		d := New(s, 0, zap.NewNop())
		got, err := d.ResolveTargetDevice(ctx, &model.Table{ID: 1})
		require.NoError(t, err)
		assert.Equal(t, first.ID, got.ID)
	})

	t.Run("resolves nil when no devices exist", func(t *testing.T) {
		s := newTestStore(t)
		d := New(s, 0, zap.NewNop())
		got, err := d.ResolveTargetDevice(ctx, &model.Table{ID: 1})
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}

func TestSendCommand(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	device := seedDevice(t, s, "gateway")
	d := New(s, device.ID, zap.NewNop())

	relay := 3
	table := &model.Table{ID: 7, RelayChannel: &relay}

	require.NoError(t, d.SendCommand(ctx, table, model.CommandLightOn))

	cmd, err := s.PullLatestPending(ctx, device.ID, time.Now())
	require.NoError(t, err)
	require.NotNil(t, cmd)
	assert.Equal(t, model.CommandLightOn, cmd.Command)
	assert.NotEmpty(t, cmd.Nonce)

	var payload Payload
	require.NoError(t, json.Unmarshal([]byte(cmd.Payload), &payload))
	assert.Equal(t, int64(7), payload.TableID)
	require.NotNil(t, payload.RelayChannel)
	assert.Equal(t, 3, *payload.RelayChannel)
}

func TestSendCommand_NoDeviceIsNotAnError(t *testing.T) {
	s := newTestStore(t)
	d := New(s, 0, zap.NewNop())
	assert.NoError(t, d.SendCommand(context.Background(), &model.Table{ID: 1}, model.CommandLightOff))
}

func TestPull_MostRecentFirstOnePerPoll(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	device := seedDevice(t, s, "gateway")
	d := New(s, device.ID, zap.NewNop())

	table := &model.Table{ID: 1}
	require.NoError(t, d.SendCommand(ctx, table, model.CommandLightOn))
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, d.SendCommand(ctx, table, model.CommandLightOff))

	// The newer command wins; exactly one command per poll.
	cmd, err := d.Pull(ctx, device)
	require.NoError(t, err)
	require.NotNil(t, cmd)
	assert.Equal(t, model.CommandLightOff, cmd.Command)
	assert.Equal(t, model.CommandSent, cmd.Status)
	require.NotNil(t, cmd.SentAt)

	cmd2, err := d.Pull(ctx, device)
	require.NoError(t, err)
	require.NotNil(t, cmd2)
	assert.Equal(t, model.CommandLightOn, cmd2.Command)

	cmd3, err := d.Pull(ctx, device)
	require.NoError(t, err)
	assert.Nil(t, cmd3)

	// Pulling marked the device as seen.
	refreshed, err := s.GetDevice(ctx, device.ID)
	require.NoError(t, err)
	assert.True(t, refreshed.IsOnline)
	require.NotNil(t, refreshed.LastSeen)
}

func TestAck(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	device := seedDevice(t, s, "gateway")
	other := seedDevice(t, s, "other")
	d := New(s, device.ID, zap.NewNop())

	require.NoError(t, d.SendCommand(ctx, &model.Table{ID: 1}, model.CommandBlink3x))
	pulled, err := d.Pull(ctx, device)
	require.NoError(t, err)
	require.NotNil(t, pulled)

	t.Run("rejects ack from a different device", func(t *testing.T) {
		_, err := d.Ack(ctx, other, pulled.ID, true)
		require.Error(t, err)
		assert.Equal(t, apperr.CodeAuthorization, apperr.CodeOf(err))
	})

	t.Run("acks a sent command", func(t *testing.T) {
		acked, err := d.Ack(ctx, device, pulled.ID, true)
		require.NoError(t, err)
		assert.Equal(t, model.CommandAck, acked.Status)
		require.NotNil(t, acked.AckedAt)
	})

	t.Run("rejects a second ack", func(t *testing.T) {
		_, err := d.Ack(ctx, device, pulled.ID, false)
		require.Error(t, err)
		assert.Equal(t, apperr.CodeState, apperr.CodeOf(err))
	})

	t.Run("rejects ack of a command never pulled", func(t *testing.T) {
		require.NoError(t, d.SendCommand(ctx, &model.Table{ID: 2}, model.CommandLightOn))

		var pending model.IotCommand
		require.NoError(t, s.DB().
			Where("device_id = ? AND status = ?", device.ID, model.CommandPending).
			First(&pending).Error)

		_, err := d.Ack(ctx, device, pending.ID, true)
		require.Error(t, err)
		assert.Equal(t, apperr.CodeState, apperr.CodeOf(err))
	})

	t.Run("unknown command id", func(t *testing.T) {
		_, err := d.Ack(ctx, device, uuid.NewString(), true)
		require.Error(t, err)
		assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))
	})
}

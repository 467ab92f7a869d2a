package expiry

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"billiard-venue-backend/config"
	dbpkg "billiard-venue-backend/internal/db"
	"billiard-venue-backend/internal/dispatch"
	"billiard-venue-backend/internal/model"
	"billiard-venue-backend/internal/reauth"
	"billiard-venue-backend/internal/session"
	"billiard-venue-backend/internal/store"
)

type fixture struct {
	store   store.Store
	manager *session.Manager
	sweeper *Sweeper
	device  *model.IotDevice
}

func newFixture(t *testing.T) *fixture {
	dsn := fmt.Sprintf("file:expiry-%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, dbpkg.Migrate(db))
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	})

	s := store.NewGormStore(db)

	device := &model.IotDevice{Name: "gateway", TokenHash: "irrelevant", IsActive: true}
	require.NoError(t, s.CreateDevice(context.Background(), device))

	cfg := config.Config{}
	config.ApplyDefaults(&cfg)

	d := dispatch.New(s, device.ID, zap.NewNop())
	r := reauth.NewStore("", time.Minute)
	m := session.NewManager(s, d, r, cfg.Billing, zap.NewNop())

	return &fixture{
		store:   s,
		manager: m,
		sweeper: NewSweeper(s, m, d, nil, cfg.Scheduler, zap.NewNop()),
		device:  device,
	}
}

func (f *fixture) seedTable(t *testing.T, hourlyRate int64) *model.Table {
	table := &model.Table{
		Name:       fmt.Sprintf("Table %s", uuid.NewString()[:8]),
		HourlyRate: hourlyRate,
		Status:     model.TableAvailable,
		IsActive:   true,
	}
	require.NoError(t, f.store.CreateTable(context.Background(), table))
	return table
}

func (f *fixture) startSession(t *testing.T, tableID int64) *model.BillingSession {
	sess, err := f.manager.Create(context.Background(), session.CreateParams{
		TableID:         tableID,
		DurationMinutes: 60,
		RateType:        model.RateHourly,
	}, session.Actor{UserID: 1, Role: session.RoleStaff})
	require.NoError(t, err)
	return sess
}

func (f *fixture) setEndTime(t *testing.T, sessionID string, end time.Time) {
	require.NoError(t, f.store.DB().
		Model(&model.BillingSession{}).
		Where("id = ?", sessionID).
		Update("end_time", end).Error)
}

func (f *fixture) commands(t *testing.T, command model.CommandType) []model.IotCommand {
	var cmds []model.IotCommand
	require.NoError(t, f.store.DB().
		Where("device_id = ? AND command = ?", f.device.ID, command).
		Order("created_at").
		Find(&cmds).Error)
	return cmds
}

// Scenario: a session runs past its end time between sweeps. The next sweep
// completes it, frees the table, and queues LIGHT_OFF.
func TestSweep_AutoCompletesOverdueSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	table := f.seedTable(t, 30000)
	sess := f.startSession(t, table.ID)

	f.setEndTime(t, sess.ID, time.Now().Add(-2*time.Minute))
	f.sweeper.SweepOnce(ctx)

	refreshed, err := f.store.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SessionCompleted, refreshed.Status)
	assert.True(t, refreshed.AutoCompleted)
	require.NotNil(t, refreshed.ActualEndTime)
	assert.Equal(t, int64(30000), refreshed.TotalAmount)

	tbl, err := f.store.GetTable(ctx, table.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TableAvailable, tbl.Status)

	assert.Len(t, f.commands(t, model.CommandLightOff), 1)
}

func TestSweep_CompletesEachOverdueSessionOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	table := f.seedTable(t, 30000)
	sess := f.startSession(t, table.ID)

	f.setEndTime(t, sess.ID, time.Now().Add(-time.Minute))
	f.sweeper.SweepOnce(ctx)
	f.sweeper.SweepOnce(ctx)

	assert.Len(t, f.commands(t, model.CommandLightOff), 1)
}

// Scenario: a session is 3 minutes from its end. The sweep queues one
// BLINK_3X and latches; an immediate re-sweep queues nothing.
func TestSweep_BlinkWarningFiresOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	table := f.seedTable(t, 30000)
	sess := f.startSession(t, table.ID)

	f.setEndTime(t, sess.ID, time.Now().Add(3*time.Minute))
	f.sweeper.SweepOnce(ctx)

	assert.Len(t, f.commands(t, model.CommandBlink3x), 1)

	refreshed, err := f.store.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.True(t, refreshed.BlinkCommandSent)
	assert.Equal(t, model.SessionActive, refreshed.Status)

	f.sweeper.SweepOnce(ctx)
	assert.Len(t, f.commands(t, model.CommandBlink3x), 1)
}

func TestSweep_NoWarningOutsideWindow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	table := f.seedTable(t, 30000)
	f.startSession(t, table.ID)

	// End time is the default one hour out, well past the warning window.
	f.sweeper.SweepOnce(ctx)

	assert.Empty(t, f.commands(t, model.CommandBlink3x))
}

// Extending a warned session resets the latch, so the warning fires again
// as the new end approaches.
func TestSweep_ExtensionRearmsWarning(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	table := f.seedTable(t, 30000)
	sess := f.startSession(t, table.ID)

	f.setEndTime(t, sess.ID, time.Now().Add(3*time.Minute))
	f.sweeper.SweepOnce(ctx)
	require.Len(t, f.commands(t, model.CommandBlink3x), 1)

	_, err := f.manager.Extend(ctx, sess.ID, session.ExtendParams{AdditionalMinutes: 15}, session.Actor{UserID: 1, Role: session.RoleStaff})
	require.NoError(t, err)

	// Pull the extended end back inside the warning window.
	f.setEndTime(t, sess.ID, time.Now().Add(2*time.Minute))
	f.sweeper.SweepOnce(ctx)
	assert.Len(t, f.commands(t, model.CommandBlink3x), 2)
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	f := newFixture(t)
	f.sweeper.cfg.SweepInterval = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		f.sweeper.Run(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after cancel")
	}
}

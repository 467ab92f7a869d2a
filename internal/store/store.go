package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"billiard-venue-backend/internal/model"
)

// Sentinel errors surfaced by conditional updates. Callers map these onto
// the operational error taxonomy.
var (
	ErrTableNotAvailable    = errors.New("table is not available")
	ErrSessionNotActive     = errors.New("session is not active")
	ErrOrderNumberExhausted = errors.New("could not generate a unique order number")
)

// Store defines the interface for all database operations.
type Store interface {
	DB() *gorm.DB

	// Tables
	GetTable(ctx context.Context, id int64) (*model.Table, error)
	ListTables(ctx context.Context) ([]model.Table, error)
	CreateTable(ctx context.Context, table *model.Table) error
	UpdateTable(ctx context.Context, table *model.Table) error
	DeleteTable(ctx context.Context, id int64) error
	// UpdateTableStatus flips a table's status only if it still holds the
	// expected one, and reports whether the flip happened. This is the
	// atomic check-and-set primitive that prevents two concurrent session
	// starts from both claiming the same table.
	UpdateTableStatus(ctx context.Context, id int64, from, to model.TableStatus) (bool, error)

	// Sessions
	GetSession(ctx context.Context, id string) (*model.BillingSession, error)
	ActiveSessionForTable(ctx context.Context, tableID int64) (*model.BillingSession, error)
	ListActiveSessions(ctx context.Context) ([]model.BillingSession, error)
	ListCompletedSessions(ctx context.Context, limit, offset int) ([]model.BillingSession, error)
	CreateSessionOccupy(ctx context.Context, session *model.BillingSession, pkg *model.BillingPackage) error
	ExtendSession(ctx context.Context, id string, newEnd time.Time, addMinutes int, addAmount int64) (bool, error)
	CompleteSession(ctx context.Context, id string, tableID int64, endedAt time.Time, finalAmount int64, auto bool) (bool, error)
	MoveSession(ctx context.Context, id string, fromTableID, toTableID int64) error
	ListExpiredSessions(ctx context.Context, now time.Time) ([]model.BillingSession, error)
	ListWarningSessions(ctx context.Context, now, until time.Time) ([]model.BillingSession, error)
	MarkBlinkSent(ctx context.Context, id string) (bool, error)

	// Devices
	GetDevice(ctx context.Context, id int64) (*model.IotDevice, error)
	FirstActiveDevice(ctx context.Context) (*model.IotDevice, error)
	ListDevices(ctx context.Context) ([]model.IotDevice, error)
	CreateDevice(ctx context.Context, device *model.IotDevice) error
	UpdateDevice(ctx context.Context, device *model.IotDevice) error
	TouchDevice(ctx context.Context, id int64, at time.Time, signalStrength *int) error

	// Commands
	CreateCommand(ctx context.Context, cmd *model.IotCommand) error
	GetCommand(ctx context.Context, id string) (*model.IotCommand, error)
	PullLatestPending(ctx context.Context, deviceID int64, at time.Time) (*model.IotCommand, error)
	UpdateCommandStatus(ctx context.Context, id string, from, to model.CommandStatus, at time.Time) (bool, error)

	// Packages
	GetPackage(ctx context.Context, id int64) (*model.BillingPackage, error)
	RecordPackageUsage(ctx context.Context, packageID int64, sessionID string, at time.Time) error
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) DB() *gorm.DB {
	return s.db
}

package store

import (
	"context"
	"database/sql/driver"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"billiard-venue-backend/internal/model"
)

// A helper function to create a mock database connection.
func newTestDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

// The conditional table flip must carry the expected status in its WHERE
// clause and report the outcome from RowsAffected.
func TestGormStore_UpdateTableStatus(t *testing.T) {
	testCases := []struct {
		name         string
		rowsAffected int64
		wantFlipped  bool
	}{
		{name: "flip succeeds when the status still matches", rowsAffected: 1, wantFlipped: true},
		{name: "flip is lost when another writer won the race", rowsAffected: 0, wantFlipped: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			gormDB, mock := newTestDB(t)
			store := NewGormStore(gormDB)

			mock.ExpectBegin()
			mock.ExpectExec(regexp.QuoteMeta(`UPDATE "tables" SET`)).
				WithArgs(string(model.TableOccupied), Any{}, int64(7), string(model.TableAvailable)).
				WillReturnResult(sqlmock.NewResult(0, tc.rowsAffected))
			mock.ExpectCommit()

			flipped, err := store.UpdateTableStatus(context.Background(), 7, model.TableAvailable, model.TableOccupied)
			assert.NoError(t, err)
			assert.Equal(t, tc.wantFlipped, flipped)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

// Command transitions are strictly forward: the WHERE clause pins the
// expected current status, and the terminal states record acked_at.
func TestGormStore_UpdateCommandStatus(t *testing.T) {
	now := time.Now()

	testCases := []struct {
		name         string
		from, to     model.CommandStatus
		args         []driver.Value
		rowsAffected int64
		wantUpdated  bool
	}{
		{
			name: "pending to sent",
			from: model.CommandPending, to: model.CommandSent,
			args:         []driver.Value{string(model.CommandSent), "cmd-1", string(model.CommandPending)},
			rowsAffected: 1,
			wantUpdated:  true,
		},
		{
			name: "sent to ack records acked_at",
			from: model.CommandSent, to: model.CommandAck,
			args:         []driver.Value{Any{}, string(model.CommandAck), "cmd-1", string(model.CommandSent)},
			rowsAffected: 1,
			wantUpdated:  true,
		},
		{
			name: "double ack does not match",
			from: model.CommandSent, to: model.CommandAck,
			args:         []driver.Value{Any{}, string(model.CommandAck), "cmd-1", string(model.CommandSent)},
			rowsAffected: 0,
			wantUpdated:  false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			gormDB, mock := newTestDB(t)
			store := NewGormStore(gormDB)

			mock.ExpectBegin()
			mock.ExpectExec(regexp.QuoteMeta(`UPDATE "iot_commands" SET`)).
				WithArgs(tc.args...).
				WillReturnResult(sqlmock.NewResult(0, tc.rowsAffected))
			mock.ExpectCommit()

			updated, err := store.UpdateCommandStatus(context.Background(), "cmd-1", tc.from, tc.to, now)
			assert.NoError(t, err)
			assert.Equal(t, tc.wantUpdated, updated)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

// The blink latch can only be claimed while the session is ACTIVE and the
// flag is still clear.
func TestGormStore_MarkBlinkSent(t *testing.T) {
	gormDB, mock := newTestDB(t)
	store := NewGormStore(gormDB)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "billing_sessions" SET`)).
		WithArgs(true, Any{}, "sess-1", string(model.SessionActive), false).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	claimed, err := store.MarkBlinkSent(context.Background(), "sess-1")
	assert.NoError(t, err)
	assert.True(t, claimed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// Any is a helper for sqlmock to match any argument.
type Any struct{}

// Match satisfies the sqlmock.Argument interface
func (a Any) Match(v driver.Value) bool {
	return true
}

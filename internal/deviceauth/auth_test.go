package deviceauth

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

	"billiard-venue-backend/internal/apperr"
	dbpkg "billiard-venue-backend/internal/db"
	"billiard-venue-backend/internal/model"
	"billiard-venue-backend/internal/store"
)

const testSecret = "venue-shared-secret"

func newTestStore(t *testing.T) store.Store {
	dsn := fmt.Sprintf("file:deviceauth-%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, dbpkg.Migrate(db))
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	})
	return store.NewGormStore(db)
}

func newTestAuthenticator(t *testing.T, s store.Store) *Authenticator {
	a := New(s, NewNonceCache(300*time.Second, time.Minute), testSecret, 300*time.Second, zap.NewNop())
	return a
}

func seedDevice(t *testing.T, s store.Store, token string) *model.IotDevice {
	device := &model.IotDevice{
		Name:      "gateway-1",
		TokenHash: HashToken(testSecret, token),
		IsActive:  true,
	}
	require.NoError(t, s.CreateDevice(context.Background(), device))
	return device
}

func signedRequest(deviceID int64, token string, at time.Time, body []byte) Request {
	nonce := uuid.NewString()
	return Request{
		DeviceID:  deviceID,
		Token:     token,
		Timestamp: at.Unix(),
		Nonce:     nonce,
		Signature: Sign(token, deviceID, at.Unix(), nonce, body),
		Body:      body,
	}
}

func TestVerify_Success(t *testing.T) {
	s := newTestStore(t)
	device := seedDevice(t, s, "device-token")
	a := newTestAuthenticator(t, s)

	now := time.Now()
	a.now = func() time.Time { return now }

	got, err := a.Verify(context.Background(), signedRequest(device.ID, "device-token", now, []byte(`{"signal":-61}`)))
	require.NoError(t, err)
	assert.Equal(t, device.ID, got.ID)
}

func TestVerify_UnknownDevice(t *testing.T) {
	s := newTestStore(t)
	a := newTestAuthenticator(t, s)

	_, err := a.Verify(context.Background(), signedRequest(999, "device-token", time.Now(), nil))
	require.Error(t, err)
	assert.Equal(t, apperr.CodeAuthentication, apperr.CodeOf(err))
}

func TestVerify_WrongToken(t *testing.T) {
	s := newTestStore(t)
	device := seedDevice(t, s, "device-token")
	a := newTestAuthenticator(t, s)

	_, err := a.Verify(context.Background(), signedRequest(device.ID, "wrong-token", time.Now(), nil))
	require.Error(t, err)
	assert.Equal(t, apperr.CodeAuthentication, apperr.CodeOf(err))
}

func TestVerify_StaleTimestamp(t *testing.T) {
	s := newTestStore(t)
	device := seedDevice(t, s, "device-token")
	a := newTestAuthenticator(t, s)

	now := time.Now()
	a.now = func() time.Time { return now }

	// 400 seconds stale against a 300 second window: rejected even though
	// the signature itself is valid.
	req := signedRequest(device.ID, "device-token", now.Add(-400*time.Second), nil)
	_, err := a.Verify(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeAuthentication, apperr.CodeOf(err))
}

func TestVerify_NonceReplay(t *testing.T) {
	s := newTestStore(t)
	device := seedDevice(t, s, "device-token")
	a := newTestAuthenticator(t, s)

	now := time.Now()
	a.now = func() time.Time { return now }

	req := signedRequest(device.ID, "device-token", now, nil)
	_, err := a.Verify(context.Background(), req)
	require.NoError(t, err)

	// The exact same signed request is rejected on every subsequent
	// presentation.
	for i := 0; i < 3; i++ {
		_, err = a.Verify(context.Background(), req)
		require.Error(t, err)
		assert.Equal(t, apperr.CodeReplay, apperr.CodeOf(err))
	}

	// A structurally fresh request with a new nonce still succeeds.
	_, err = a.Verify(context.Background(), signedRequest(device.ID, "device-token", now, nil))
	assert.NoError(t, err)
}

func TestVerify_BadSignature(t *testing.T) {
	s := newTestStore(t)
	device := seedDevice(t, s, "device-token")
	a := newTestAuthenticator(t, s)

	now := time.Now()
	a.now = func() time.Time { return now }

	req := signedRequest(device.ID, "device-token", now, []byte(`{"commandId":"x"}`))
	req.Body = []byte(`{"commandId":"tampered"}`)
	_, err := a.Verify(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeAuthentication, apperr.CodeOf(err))

	// A failed signature check must not burn the nonce: the original
	// untampered request is still accepted.
	_, err = a.Verify(context.Background(), Request{
		DeviceID:  req.DeviceID,
		Token:     req.Token,
		Timestamp: req.Timestamp,
		Nonce:     req.Nonce,
		Signature: req.Signature,
		Body:      []byte(`{"commandId":"x"}`),
	})
	assert.NoError(t, err)
}

func TestVerify_InactiveDevice(t *testing.T) {
	s := newTestStore(t)
	device := seedDevice(t, s, "device-token")
	device.IsActive = false
	require.NoError(t, s.UpdateDevice(context.Background(), device))

	a := newTestAuthenticator(t, s)
	_, err := a.Verify(context.Background(), signedRequest(device.ID, "device-token", time.Now(), nil))
	require.Error(t, err)
	assert.Equal(t, apperr.CodeAuthentication, apperr.CodeOf(err))
}

func TestNonceCache_Expiry(t *testing.T) {
	nonces := NewNonceCache(50*time.Millisecond, 10*time.Millisecond)
	nonces.Remember("n1")
	assert.True(t, nonces.Seen("n1"))

	time.Sleep(80 * time.Millisecond)
	assert.False(t, nonces.Seen("n1"))
}

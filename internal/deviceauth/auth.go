// Package deviceauth verifies the identity of polling relay controllers:
// device token, timestamp freshness, nonce anti-replay, and an HMAC-SHA256
// request signature.
package deviceauth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"billiard-venue-backend/internal/apperr"
	"billiard-venue-backend/internal/model"
	"billiard-venue-backend/internal/store"
)

// Request carries the authentication material a device presents on every
// call. Body is the raw request body the signature covers (empty for GETs).
type Request struct {
	DeviceID  int64
	Token     string
	Timestamp int64
	Nonce     string
	Signature string
	Body      []byte
}

// Authenticator gates the three device-facing operations: heartbeat, command
// pull, and command acknowledgement.
type Authenticator struct {
	store  store.Store
	nonces NonceStore
	secret string
	window time.Duration
	log    *zap.Logger
	now    func() time.Time
}

func New(s store.Store, nonces NonceStore, sharedSecret string, window time.Duration, log *zap.Logger) *Authenticator {
	return &Authenticator{
		store:  s,
		nonces: nonces,
		secret: sharedSecret,
		window: window,
		log:    log,
		now:    time.Now,
	}
}

// Verify runs the full check sequence and returns the authenticated device.
// The nonce is recorded only after every other check passes, so a rejected
// request does not burn its nonce.
func (a *Authenticator) Verify(ctx context.Context, req Request) (*model.IotDevice, error) {
	device, err := a.store.GetDevice(ctx, req.DeviceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Authentication("unknown device")
		}
		return nil, err
	}
	if !device.IsActive {
		return nil, apperr.Authentication("device is deactivated")
	}

	if !VerifyToken(a.secret, req.Token, device.TokenHash) {
		return nil, apperr.Authentication("invalid device token")
	}

	skew := a.now().Unix() - req.Timestamp
	if skew < 0 {
		skew = -skew
	}
	if time.Duration(skew)*time.Second > a.window {
		return nil, apperr.Authentication("request timestamp outside freshness window")
	}

	if req.Nonce == "" {
		return nil, apperr.Authentication("missing nonce")
	}
	if a.nonces.Seen(req.Nonce) {
		return nil, apperr.Replay("nonce already used")
	}

	expected := Sign(req.Token, req.DeviceID, req.Timestamp, req.Nonce, req.Body)
	if !hmac.Equal([]byte(expected), []byte(req.Signature)) {
		return nil, apperr.Authentication("invalid signature")
	}

	a.nonces.Remember(req.Nonce)
	return device, nil
}

// Sign computes the hex HMAC-SHA256 of `deviceId:timestamp:nonce:body` keyed
// with the device token. Device firmware implements the same construction.
func Sign(token string, deviceID, timestamp int64, nonce string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(token))
	fmt.Fprintf(mac, "%d:%d:%s:", deviceID, timestamp, nonce)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// HashToken derives the stored form of a device token: HMAC-SHA256 keyed
// with the venue shared secret. The plaintext token never touches the
// database.
func HashToken(sharedSecret, token string) string {
	mac := hmac.New(sha256.New, []byte(sharedSecret))
	mac.Write([]byte(token))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyToken compares a presented token against a stored hash in constant
// time.
func VerifyToken(sharedSecret, token, storedHash string) bool {
	return hmac.Equal([]byte(HashToken(sharedSecret, token)), []byte(storedHash))
}

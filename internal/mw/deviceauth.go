package mw

import (
	"bytes"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"billiard-venue-backend/internal/apperr"
	"billiard-venue-backend/internal/deviceauth"
	"billiard-venue-backend/internal/model"
)

// Auth headers device firmware sends on every call. The signature covers the
// raw request body.
const (
	HeaderDeviceID  = "X-Device-ID"
	HeaderToken     = "X-Device-Token"
	HeaderTimestamp = "X-Timestamp"
	HeaderNonce     = "X-Nonce"
	HeaderSignature = "X-Signature"
)

const deviceKey = "device"

// DeviceAuth verifies the device auth headers and stores the authenticated
// device in the request context. The body is read for signature verification
// and restored for the handler.
func DeviceAuth(auth *deviceauth.Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		deviceID, err := strconv.ParseInt(c.GetHeader(HeaderDeviceID), 10, 64)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or malformed device id"})
			return
		}
		timestamp, err := strconv.ParseInt(c.GetHeader(HeaderTimestamp), 10, 64)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or malformed timestamp"})
			return
		}

		body, err := c.GetRawData()
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		device, err := auth.Verify(c.Request.Context(), deviceauth.Request{
			DeviceID:  deviceID,
			Token:     c.GetHeader(HeaderToken),
			Timestamp: timestamp,
			Nonce:     c.GetHeader(HeaderNonce),
			Signature: c.GetHeader(HeaderSignature),
			Body:      body,
		})
		if err != nil {
			status := http.StatusUnauthorized
			if apperr.IsCode(err, apperr.CodeReplay) {
				status = http.StatusConflict
			}
			c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
			return
		}

		c.Set(deviceKey, device)
		c.Next()
	}
}

// DeviceFrom returns the device authenticated by DeviceAuth.
func DeviceFrom(c *gin.Context) *model.IotDevice {
	if v, ok := c.Get(deviceKey); ok {
		if device, ok := v.(*model.IotDevice); ok {
			return device
		}
	}
	return nil
}

package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"billiard-venue-backend/internal/deviceauth"
	"billiard-venue-backend/internal/model"
	"billiard-venue-backend/internal/mw"
)

type registerDeviceRequest struct {
	Name string `json:"name" binding:"required"`
}

// RegisterDevice handles POST /api/devices. The plaintext token is returned
// exactly once; only its keyed hash is stored.
func (h *Handler) RegisterDevice(c *gin.Context) {
	var req registerDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token := uuid.NewString()
	device := &model.IotDevice{
		Name:      req.Name,
		TokenHash: deviceauth.HashToken(h.cfg.DeviceAuth.SharedSecret, token),
		IsActive:  true,
	}
	if err := h.store.CreateDevice(c.Request.Context(), device); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"device": device, "token": token})
}

type deviceResponse struct {
	model.IotDevice
	Online bool `json:"online"`
}

// ListDevices handles GET /api/devices. Online is derived against the
// liveness window, never read from the stored flag alone.
func (h *Handler) ListDevices(c *gin.Context) {
	devices, err := h.store.ListDevices(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	now := time.Now()
	resp := make([]deviceResponse, len(devices))
	for i, d := range devices {
		resp[i] = deviceResponse{IotDevice: d, Online: d.Online(now)}
	}
	c.JSON(http.StatusOK, resp)
}

type heartbeatRequest struct {
	SignalStrength *int `json:"signalStrength"`
}

// Heartbeat handles POST /devices/heartbeat on the device surface.
func (h *Handler) Heartbeat(c *gin.Context) {
	device := mw.DeviceFrom(c)

	var req heartbeatRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	now := time.Now()
	if err := h.store.TouchDevice(c.Request.Context(), device.ID, now, req.SignalStrength); err != nil {
		respondError(c, err)
		return
	}

	refreshed, err := h.store.GetDevice(c.Request.Context(), device.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, deviceResponse{IotDevice: *refreshed, Online: refreshed.Online(now)})
}

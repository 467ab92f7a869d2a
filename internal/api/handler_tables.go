package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"billiard-venue-backend/internal/apperr"
	"billiard-venue-backend/internal/model"
)

type tableRequest struct {
	Name         string `json:"name" binding:"required"`
	HourlyRate   int64  `json:"hourlyRate" binding:"required"`
	IsActive     *bool  `json:"isActive"`
	IotDeviceID  *int64 `json:"iotDeviceId"`
	RelayChannel *int   `json:"relayChannel"`
	GpioPin      *int   `json:"gpioPin"`
}

// validateWiring checks the relay/GPIO binding against the configured
// hardware ranges and rejects a relay channel already claimed on the same
// device.
func (h *Handler) validateWiring(c *gin.Context, req tableRequest, excludeTableID int64) error {
	hw := h.cfg.Hardware
	if req.RelayChannel != nil && (*req.RelayChannel < hw.RelayChannelMin || *req.RelayChannel > hw.RelayChannelMax) {
		return apperr.Validation("relay channel must be between %d and %d", hw.RelayChannelMin, hw.RelayChannelMax)
	}
	if req.GpioPin != nil && (*req.GpioPin < hw.GpioPinMin || *req.GpioPin > hw.GpioPinMax) {
		return apperr.Validation("gpio pin must be between %d and %d", hw.GpioPinMin, hw.GpioPinMax)
	}

	if req.IotDeviceID != nil {
		if _, err := h.store.GetDevice(c.Request.Context(), *req.IotDeviceID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("device %d not found", *req.IotDeviceID)
			}
			return err
		}
	}

	if req.IotDeviceID != nil && req.RelayChannel != nil {
		var count int64
		q := h.store.DB().WithContext(c.Request.Context()).
			Model(&model.Table{}).
			Where("iot_device_id = ? AND relay_channel = ?", *req.IotDeviceID, *req.RelayChannel)
		if excludeTableID > 0 {
			q = q.Where("id <> ?", excludeTableID)
		}
		if err := q.Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return apperr.Conflict("relay channel %d on device %d is already assigned", *req.RelayChannel, *req.IotDeviceID)
		}
	}
	return nil
}

// CreateTable handles POST /api/tables.
func (h *Handler) CreateTable(c *gin.Context) {
	var req tableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.validateWiring(c, req, 0); err != nil {
		respondError(c, err)
		return
	}

	table := &model.Table{
		Name:         req.Name,
		HourlyRate:   req.HourlyRate,
		Status:       model.TableAvailable,
		IsActive:     true,
		IotDeviceID:  req.IotDeviceID,
		RelayChannel: req.RelayChannel,
		GpioPin:      req.GpioPin,
	}
	if req.IsActive != nil {
		table.IsActive = *req.IsActive
	}
	if err := h.store.CreateTable(c.Request.Context(), table); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, table)
}

// ListTables handles GET /api/tables.
func (h *Handler) ListTables(c *gin.Context) {
	tables, err := h.store.ListTables(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tables)
}

// GetTable handles GET /api/tables/:id.
func (h *Handler) GetTable(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid table id"})
		return
	}
	table, err := h.store.GetTable(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, apperr.NotFound("table %d not found", id))
			return
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, table)
}

func (h *Handler) tableHasActiveSession(ctx context.Context, tableID int64) (bool, error) {
	_, err := h.store.ActiveSessionForTable(ctx, tableID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func wiringChanged(table *model.Table, req tableRequest) bool {
	return !int64PtrEqual(table.IotDeviceID, req.IotDeviceID) ||
		!intPtrEqual(table.RelayChannel, req.RelayChannel) ||
		!intPtrEqual(table.GpioPin, req.GpioPin)
}

func int64PtrEqual(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func intPtrEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// UpdateTable handles PUT /api/tables/:id. Wiring changes are rejected while
// a session is active on the table.
func (h *Handler) UpdateTable(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid table id"})
		return
	}
	var req tableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	table, err := h.store.GetTable(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, apperr.NotFound("table %d not found", id))
			return
		}
		respondError(c, err)
		return
	}

	if wiringChanged(table, req) {
		busy, err := h.tableHasActiveSession(ctx, id)
		if err != nil {
			respondError(c, err)
			return
		}
		if busy {
			respondError(c, apperr.State("cannot rewire table %d while a session is active", id))
			return
		}
	}
	if err := h.validateWiring(c, req, id); err != nil {
		respondError(c, err)
		return
	}

	table.Name = req.Name
	table.HourlyRate = req.HourlyRate
	table.IotDeviceID = req.IotDeviceID
	table.RelayChannel = req.RelayChannel
	table.GpioPin = req.GpioPin
	if req.IsActive != nil {
		table.IsActive = *req.IsActive
	}
	if err := h.store.UpdateTable(ctx, table); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, table)
}

// DeleteTable handles DELETE /api/tables/:id. Deleting a table cancels any
// running light test so the stale revert timer cannot fire.
func (h *Handler) DeleteTable(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid table id"})
		return
	}

	ctx := c.Request.Context()
	busy, err := h.tableHasActiveSession(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	if busy {
		respondError(c, apperr.State("cannot delete table %d while a session is active", id))
		return
	}

	h.tests.Cancel(id)
	if err := h.store.DeleteTable(ctx, id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// StartTableTest handles POST /api/tables/:id/test.
func (h *Handler) StartTableTest(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid table id"})
		return
	}
	if err := h.tests.StartTest(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"durationSeconds": h.cfg.TableTest.DurationSeconds})
}

// StopTableTest handles DELETE /api/tables/:id/test.
func (h *Handler) StopTableTest(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid table id"})
		return
	}
	if err := h.tests.StopTest(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

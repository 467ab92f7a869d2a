package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"billiard-venue-backend/internal/model"
	"billiard-venue-backend/internal/mw"
	"billiard-venue-backend/internal/session"
)

type createSessionRequest struct {
	TableID         int64          `json:"tableId" binding:"required"`
	DurationMinutes int            `json:"durationMinutes"`
	RateType        model.RateType `json:"rateType" binding:"required"`
	RatePerHour     int64          `json:"ratePerHour"`
	PackageID       *int64         `json:"packageId"`
	ReauthToken     string         `json:"reauthToken"`
}

// CreateSession handles POST /api/billing/sessions.
func (h *Handler) CreateSession(c *gin.Context) {
	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sess, err := h.sessions.Create(c.Request.Context(), session.CreateParams{
		TableID:         req.TableID,
		DurationMinutes: req.DurationMinutes,
		RateType:        req.RateType,
		RatePerHour:     req.RatePerHour,
		PackageID:       req.PackageID,
		ReauthToken:     req.ReauthToken,
	}, mw.ActorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sess)
}

type extendSessionRequest struct {
	AdditionalMinutes int    `json:"additionalMinutes"`
	PackageID         *int64 `json:"packageId"`
}

// ExtendSession handles PATCH /api/billing/sessions/:id/extend.
func (h *Handler) ExtendSession(c *gin.Context) {
	var req extendSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sess, err := h.sessions.Extend(c.Request.Context(), c.Param("id"), session.ExtendParams{
		AdditionalMinutes: req.AdditionalMinutes,
		PackageID:         req.PackageID,
	}, mw.ActorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

// StopSession handles PATCH /api/billing/sessions/:id/stop.
func (h *Handler) StopSession(c *gin.Context) {
	sess, err := h.sessions.Stop(c.Request.Context(), c.Param("id"), mw.ActorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

type moveSessionRequest struct {
	TargetTableID int64 `json:"targetTableId" binding:"required"`
}

// MoveSession handles PATCH /api/billing/sessions/:id/move.
func (h *Handler) MoveSession(c *gin.Context) {
	var req moveSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sess, err := h.sessions.Move(c.Request.Context(), c.Param("id"), req.TargetTableID, mw.ActorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

// ListActiveSessions handles GET /api/billing/sessions/active.
func (h *Handler) ListActiveSessions(c *gin.Context) {
	sessions, err := h.sessions.ListActive(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sessions)
}

// ListCompletedSessions handles GET /api/billing/sessions/completed with
// limit/offset paging.
func (h *Handler) ListCompletedSessions(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 || limit > 500 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
		return
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid offset"})
		return
	}

	sessions, err := h.sessions.ListCompleted(c.Request.Context(), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sessions)
}

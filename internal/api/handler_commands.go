package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"billiard-venue-backend/internal/mw"
)

// PullCommand handles GET /devices/commands/pull. At most one command is
// handed out per poll; the response carries null when the queue is empty.
func (h *Handler) PullCommand(c *gin.Context) {
	device := mw.DeviceFrom(c)

	cmd, err := h.dispatch.Pull(c.Request.Context(), device)
	if err != nil {
		respondError(c, err)
		return
	}
	if cmd == nil {
		c.JSON(http.StatusOK, gin.H{"command": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"command": gin.H{
		"id":      cmd.ID,
		"type":    cmd.Command,
		"payload": cmd.Payload,
	}})
}

type ackCommandRequest struct {
	CommandID string `json:"commandId" binding:"required"`
	Success   *bool  `json:"success" binding:"required"`
}

// AckCommand handles POST /devices/commands/ack.
func (h *Handler) AckCommand(c *gin.Context) {
	device := mw.DeviceFrom(c)

	var req ackCommandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cmd, err := h.dispatch.Ack(c.Request.Context(), device, req.CommandID, *req.Success)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cmd)
}

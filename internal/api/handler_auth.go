package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"billiard-venue-backend/internal/mw"
	"billiard-venue-backend/internal/session"
)

type ownerChallengeRequest struct {
	Pin string `json:"pin" binding:"required"`
}

// OwnerChallenge handles POST /api/auth/owner/challenge. A correct PIN buys
// one short-lived, single-use credential for an elevated operation.
func (h *Handler) OwnerChallenge(c *gin.Context) {
	actor := mw.ActorFrom(c)
	if actor.Role != session.RoleOwner {
		c.JSON(http.StatusForbidden, gin.H{"error": "owner role required"})
		return
	}

	var req ownerChallengeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, ok := h.reauth.Challenge(actor.UserID, req.Pin)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid pin"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"reauthToken":    token,
		"expiresSeconds": h.cfg.Billing.OwnerReauthTTLSeconds,
	})
}

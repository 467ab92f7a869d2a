package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"billiard-venue-backend/internal/deviceauth"
	"billiard-venue-backend/internal/mw"
	"billiard-venue-backend/internal/session"
)

// NewRouter wires the two HTTP surfaces: the device-facing poll endpoints
// gated by HMAC device auth, and the staff-facing API gated by bearer tokens.
func NewRouter(h *Handler, auth *deviceauth.Authenticator) *gin.Engine {
	r := gin.Default()

	cfg := h.cfg
	rateLimiter := mw.RateLimiter(rate.Limit(cfg.Server.RateLimitPerSec), cfg.Server.RateLimitBurst)
	deviceLimiter := mw.DeviceRateLimiter(rate.Limit(cfg.Server.RateLimitPerSec), cfg.Server.RateLimitBurst)

	cacheTTL := time.Duration(cfg.Server.CacheTTLSeconds) * time.Second
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Second
	}
	cacheStore := cache.New(cacheTTL, 2*cacheTTL)
	caching := mw.Cache(cacheStore, cacheTTL)

	// Device surface. Authentication covers the raw body; no bearer token.
	devices := r.Group("/devices")
	devices.Use(deviceLimiter, mw.DeviceAuth(auth))
	{
		devices.POST("/heartbeat", h.Heartbeat)
		devices.GET("/commands/pull", h.PullCommand)
		devices.POST("/commands/ack", h.AckCommand)
	}

	// Staff surface.
	api := r.Group("/api")
	api.Use(rateLimiter, mw.Auth(cfg.Server.JWTSecret), mw.Invalidate(cacheStore))
	{
		api.POST("/auth/owner/challenge", h.OwnerChallenge)

		api.POST("/billing/sessions", h.CreateSession)
		api.PATCH("/billing/sessions/:id/extend", h.ExtendSession)
		api.PATCH("/billing/sessions/:id/stop", h.StopSession)
		api.PATCH("/billing/sessions/:id/move", h.MoveSession)
		api.GET("/billing/sessions/active", caching, h.ListActiveSessions)
		api.GET("/billing/sessions/completed", h.ListCompletedSessions)

		api.GET("/tables", caching, h.ListTables)
		api.GET("/tables/:id", h.GetTable)
		api.POST("/tables", h.CreateTable)
		api.PUT("/tables/:id", h.UpdateTable)
		api.DELETE("/tables/:id", h.DeleteTable)
		api.POST("/tables/:id/test", h.StartTableTest)
		api.DELETE("/tables/:id/test", h.StopTableTest)

		api.GET("/devices", h.ListDevices)
		api.POST("/devices", mw.RequireRole(session.RoleOwner), h.RegisterDevice)

		api.GET("/subscriptions", h.GetSubscription)
		api.PUT("/subscriptions", h.PutSubscription)
		api.DELETE("/subscriptions", h.DeleteSubscription)
		api.GET("/vapid_public_key", h.GetVAPIDPublicKey)
	}

	return r
}

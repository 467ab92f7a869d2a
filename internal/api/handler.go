package api

import (
	"github.com/SherClockHolmes/webpush-go"

	"billiard-venue-backend/config"
	"billiard-venue-backend/internal/dispatch"
	"billiard-venue-backend/internal/reauth"
	"billiard-venue-backend/internal/session"
	"billiard-venue-backend/internal/store"
	"billiard-venue-backend/internal/tabletest"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store    store.Store
	sessions *session.Manager
	dispatch *dispatch.Dispatcher
	tests    *tabletest.Coordinator
	reauth   *reauth.Store
	webpush  *webpush.Options
	cfg      *config.Config
}

// NewHandler creates a new API handler.
func NewHandler(s store.Store, sessions *session.Manager, d *dispatch.Dispatcher, tests *tabletest.Coordinator, r *reauth.Store, webpushOptions *webpush.Options, cfg *config.Config) *Handler {
	return &Handler{
		store:    s,
		sessions: sessions,
		dispatch: d,
		tests:    tests,
		reauth:   r,
		webpush:  webpushOptions,
		cfg:      cfg,
	}
}

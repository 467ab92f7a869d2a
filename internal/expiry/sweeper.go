// Package expiry runs the recurring sweep that auto-completes overdue
// sessions and fires the advance blink warning.
package expiry

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"billiard-venue-backend/config"
	"billiard-venue-backend/internal/dispatch"
	"billiard-venue-backend/internal/model"
	"billiard-venue-backend/internal/notification"
	"billiard-venue-backend/internal/session"
	"billiard-venue-backend/internal/store"
)

// Sweeper auto-completes overdue sessions exactly once and sends the blink
// warning at most once per billed period. Per-session failures are isolated:
// one bad record never halts the sweep.
type Sweeper struct {
	store    store.Store
	sessions *session.Manager
	dispatch *dispatch.Dispatcher
	notify   *notification.WorkerPool
	cfg      config.SchedulerConfig
	log      *zap.Logger
	now      func() time.Time
}

func NewSweeper(s store.Store, m *session.Manager, d *dispatch.Dispatcher, n *notification.WorkerPool, cfg config.SchedulerConfig, log *zap.Logger) *Sweeper {
	return &Sweeper{
		store:    s,
		sessions: m,
		dispatch: d,
		notify:   n,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
	}
}

// Run starts the sweep loop. The next tick is armed only after a run
// completes, so runs never overlap.
func (s *Sweeper) Run(ctx context.Context) {
	s.log.Info("starting expiry sweeper", zap.Duration("interval", s.cfg.SweepInterval))

	timer := time.NewTimer(s.cfg.SweepInterval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("expiry sweeper shutting down")
			return
		case <-timer.C:
			s.SweepOnce(ctx)
			timer.Reset(s.cfg.SweepInterval)
		}
	}
}

// SweepOnce performs one full sweep: auto-complete, then warnings.
func (s *Sweeper) SweepOnce(ctx context.Context) {
	now := s.now()
	s.sweepExpired(ctx, now)
	s.sweepWarnings(ctx, now)
}

func (s *Sweeper) sweepExpired(ctx context.Context, now time.Time) {
	expired, err := s.store.ListExpiredSessions(ctx, now)
	if err != nil {
		s.log.Error("failed to list expired sessions", zap.Error(err))
		return
	}

	for i := range expired {
		sess := expired[i]
		if _, err := s.sessions.AutoStop(ctx, &sess); err != nil {
			s.log.Error("failed to auto-complete session",
				zap.String("session_id", sess.ID), zap.Error(err))
			continue
		}
		if s.notify != nil {
			s.notify.Dispatch(fmt.Sprintf("Session on table %d has ended", sess.TableID))
		}
	}
}

func (s *Sweeper) sweepWarnings(ctx context.Context, now time.Time) {
	warnable, err := s.store.ListWarningSessions(ctx, now, now.Add(s.cfg.WarningWindow))
	if err != nil {
		s.log.Error("failed to list sessions for warning", zap.Error(err))
		return
	}

	for i := range warnable {
		sess := warnable[i]

		// Claim the latch before queueing, so the warning fires at most
		// once per billed period.
		claimed, err := s.store.MarkBlinkSent(ctx, sess.ID)
		if err != nil {
			s.log.Error("failed to mark blink sent",
				zap.String("session_id", sess.ID), zap.Error(err))
			continue
		}
		if !claimed {
			continue
		}

		table, err := s.store.GetTable(ctx, sess.TableID)
		if err != nil {
			s.log.Error("failed to load table for blink warning",
				zap.String("session_id", sess.ID), zap.Error(err))
			continue
		}
		if err := s.dispatch.SendCommand(ctx, table, model.CommandBlink3x); err != nil {
			s.log.Error("failed to queue blink command",
				zap.String("session_id", sess.ID), zap.Error(err))
			continue
		}
		if s.notify != nil {
			s.notify.Dispatch(fmt.Sprintf("Session on table %d ends in under %d minutes", sess.TableID, int(s.cfg.WarningWindow.Minutes())))
		}
	}
}

// Package session implements the billing session lifecycle: creation,
// extension, stopping, and moving, with table-availability, authorization,
// and financial invariants enforced at the persistence boundary.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"billiard-venue-backend/config"
	"billiard-venue-backend/internal/apperr"
	"billiard-venue-backend/internal/dispatch"
	"billiard-venue-backend/internal/model"
	"billiard-venue-backend/internal/rate"
	"billiard-venue-backend/internal/reauth"
	"billiard-venue-backend/internal/store"
)

// Roles carried by staff JWTs.
const (
	RoleStaff = "STAFF"
	RoleOwner = "OWNER"
)

// Actor identifies the authenticated human behind an operation.
type Actor struct {
	UserID int64
	Role   string
}

func (a Actor) IsOwner() bool {
	return a.Role == RoleOwner
}

// Manager owns all session state transitions. Physical light control is
// best-effort: a failed command enqueue is logged and never rolls back the
// authoritative state change.
type Manager struct {
	store    store.Store
	dispatch *dispatch.Dispatcher
	reauth   *reauth.Store
	cfg      config.BillingConfig
	log      *zap.Logger
	now      func() time.Time
}

func NewManager(s store.Store, d *dispatch.Dispatcher, r *reauth.Store, cfg config.BillingConfig, log *zap.Logger) *Manager {
	return &Manager{
		store:    s,
		dispatch: d,
		reauth:   r,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
	}
}

// CreateParams describes a session start request.
type CreateParams struct {
	TableID         int64
	DurationMinutes int
	RateType        model.RateType
	RatePerHour     int64 // optional override, MANUAL only
	PackageID       *int64
	ReauthToken     string
}

// Create starts a billing session, flips the table to OCCUPIED, and queues a
// LIGHT_ON command. OWNER_LOCK requires a fresh single-use re-auth
// credential and bypasses duration granularity entirely.
func (m *Manager) Create(ctx context.Context, params CreateParams, actor Actor) (*model.BillingSession, error) {
	table, err := m.store.GetTable(ctx, params.TableID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("table %d not found", params.TableID)
		}
		return nil, err
	}
	if !table.IsActive {
		return nil, apperr.State("table %d is inactive", table.ID)
	}
	if table.Status != model.TableAvailable {
		return nil, apperr.Conflict("table %d is %s", table.ID, table.Status)
	}

	now := m.now()
	session := &model.BillingSession{
		ID:          uuid.NewString(),
		TableID:     table.ID,
		StartTime:   now,
		RateType:    params.RateType,
		RatePerHour: table.HourlyRate,
		Status:      model.SessionActive,
		CreatedByID: actor.UserID,
	}

	var pkg *model.BillingPackage

	switch params.RateType {
	case model.RateOwnerLock:
		if !actor.IsOwner() {
			return nil, apperr.Authorization("owner lock requires the owner role")
		}
		if !m.reauth.Consume(params.ReauthToken, actor.UserID) {
			return nil, apperr.Authorization("owner lock requires a valid re-authentication credential")
		}
		session.EndTime = now.AddDate(model.OwnerLockHorizonYears, 0, 0)
		session.TotalAmount = 0
		session.ApprovedByID = &actor.UserID

	case model.RateFlexible:
		session.EndTime = now.AddDate(model.OwnerLockHorizonYears, 0, 0)
		session.TotalAmount = 0

	case model.RatePackage:
		if params.PackageID == nil {
			return nil, apperr.Validation("package session requires a package id")
		}
		pkg, err = m.store.GetPackage(ctx, *params.PackageID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperr.NotFound("package %d not found", *params.PackageID)
			}
			return nil, err
		}
		if !pkg.IsActive {
			return nil, apperr.State("package %d is inactive", pkg.ID)
		}
		session.PackageID = &pkg.ID
		session.DurationMinutes = pkg.DurationMinutes
		session.EndTime = now.Add(time.Duration(pkg.DurationMinutes) * time.Minute)
		session.TotalAmount = pkg.Price

	case model.RateHourly, model.RateManual:
		if err := rate.ValidateStartDuration(params.DurationMinutes, m.cfg.MinSessionMinutes, m.cfg.SessionStepMinutes); err != nil {
			return nil, err
		}
		if params.RateType == model.RateManual && params.RatePerHour > 0 {
			session.RatePerHour = params.RatePerHour
		}
		session.DurationMinutes = params.DurationMinutes
		session.EndTime = now.Add(time.Duration(params.DurationMinutes) * time.Minute)
		session.TotalAmount = rate.SessionTotal(params.RateType, session.RatePerHour, params.DurationMinutes, nil)

	default:
		return nil, apperr.Validation("unknown rate type %q", params.RateType)
	}

	if err := m.store.CreateSessionOccupy(ctx, session, pkg); err != nil {
		if errors.Is(err, store.ErrTableNotAvailable) {
			return nil, apperr.Conflict("table %d is no longer available", table.ID)
		}
		return nil, err
	}

	m.sendLight(ctx, table, model.CommandLightOn)
	m.log.Info("session created",
		zap.String("session_id", session.ID),
		zap.Int64("table_id", table.ID),
		zap.String("rate_type", string(session.RateType)),
		zap.Int64("total_amount", session.TotalAmount))
	return session, nil
}

// ExtendParams describes an extension request: additional minutes or an
// attached package, not both.
type ExtendParams struct {
	AdditionalMinutes int
	PackageID         *int64
}

// Extend pushes the session end forward and accrues the extension cost. The
// blink warning re-arms so it fires again before the new end.
func (m *Manager) Extend(ctx context.Context, sessionID string, params ExtendParams, actor Actor) (*model.BillingSession, error) {
	session, err := m.getSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != model.SessionActive {
		return nil, apperr.State("session %s is not active", sessionID)
	}
	if session.Unbounded() {
		return nil, apperr.State("%s sessions cannot be extended", session.RateType)
	}

	addMinutes := params.AdditionalMinutes
	var addAmount int64
	var pkg *model.BillingPackage

	if params.PackageID != nil {
		pkg, err = m.store.GetPackage(ctx, *params.PackageID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperr.NotFound("package %d not found", *params.PackageID)
			}
			return nil, err
		}
		if !pkg.IsActive {
			return nil, apperr.State("package %d is inactive", pkg.ID)
		}
		addMinutes = pkg.DurationMinutes
		addAmount = pkg.Price
	} else {
		if err := rate.ValidateExtensionDuration(addMinutes, m.cfg.MinExtensionMinutes, m.cfg.ExtensionStepMinutes); err != nil {
			return nil, err
		}
		addAmount = rate.ExtensionCost(session.RatePerHour, addMinutes, nil)
	}

	newEnd := session.EndTime.Add(time.Duration(addMinutes) * time.Minute)
	ok, err := m.store.ExtendSession(ctx, sessionID, newEnd, addMinutes, addAmount)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.State("session %s is not active", sessionID)
	}

	if pkg != nil {
		if err := m.store.RecordPackageUsage(ctx, pkg.ID, sessionID, m.now()); err != nil {
			m.log.Error("failed to record package usage on extension",
				zap.String("session_id", sessionID), zap.Error(err))
		}
	}

	m.log.Info("session extended",
		zap.String("session_id", sessionID),
		zap.Int("additional_minutes", addMinutes),
		zap.Int64("additional_amount", addAmount))
	return m.getSession(ctx, sessionID)
}

// Stop terminates a session manually.
func (m *Manager) Stop(ctx context.Context, sessionID string, actor Actor) (*model.BillingSession, error) {
	session, err := m.getSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return m.complete(ctx, session, false)
}

// AutoStop terminates an overdue session on behalf of the expiry sweep,
// recording that the stop was automatic.
func (m *Manager) AutoStop(ctx context.Context, session *model.BillingSession) (*model.BillingSession, error) {
	return m.complete(ctx, session, true)
}

// complete takes the ACTIVE -> COMPLETED transition exactly once, releases
// the table, and queues LIGHT_OFF. FLEXIBLE sessions are billed fresh from
// elapsed time here; every other type keeps its accrued total.
func (m *Manager) complete(ctx context.Context, session *model.BillingSession, auto bool) (*model.BillingSession, error) {
	if session.Status != model.SessionActive {
		return nil, apperr.State("session %s is already completed", session.ID)
	}

	now := m.now()
	finalAmount := session.TotalAmount
	if session.RateType == model.RateFlexible {
		finalAmount = rate.FlexibleTotal(session.RatePerHour, session.StartTime, now)
	}

	_, err := m.store.CompleteSession(ctx, session.ID, session.TableID, now, finalAmount, auto)
	if err != nil {
		if errors.Is(err, store.ErrSessionNotActive) {
			return nil, apperr.State("session %s is already completed", session.ID)
		}
		return nil, err
	}

	session.Status = model.SessionCompleted
	session.ActualEndTime = &now
	session.TotalAmount = finalAmount
	session.AutoCompleted = auto

	if table, err := m.store.GetTable(ctx, session.TableID); err == nil {
		m.sendLight(ctx, table, model.CommandLightOff)
	} else {
		m.log.Warn("table lookup failed during stop, skipping light command",
			zap.String("session_id", session.ID), zap.Error(err))
	}

	m.log.Info("session completed",
		zap.String("session_id", session.ID),
		zap.Bool("auto", auto),
		zap.Int64("total_amount", finalAmount))
	return session, nil
}

// Move re-seats an active session onto another table. Bookkeeping is
// authoritative and atomic; the two light commands are best-effort.
func (m *Manager) Move(ctx context.Context, sessionID string, targetTableID int64, actor Actor) (*model.BillingSession, error) {
	session, err := m.getSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != model.SessionActive {
		return nil, apperr.State("session %s is not active", sessionID)
	}

	target, err := m.store.GetTable(ctx, targetTableID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("table %d not found", targetTableID)
		}
		return nil, err
	}
	if !target.IsActive {
		return nil, apperr.State("table %d is inactive", target.ID)
	}
	if target.Status != model.TableAvailable {
		return nil, apperr.Conflict("table %d is %s", target.ID, target.Status)
	}
	if session.RateType != model.RateOwnerLock && !actor.IsOwner() && target.HourlyRate != session.RatePerHour {
		return nil, apperr.Validation("target table rate differs from the session rate")
	}

	sourceTableID := session.TableID
	if err := m.store.MoveSession(ctx, sessionID, sourceTableID, targetTableID); err != nil {
		switch {
		case errors.Is(err, store.ErrTableNotAvailable):
			return nil, apperr.Conflict("table %d is no longer available", targetTableID)
		case errors.Is(err, store.ErrSessionNotActive):
			return nil, apperr.State("session %s is not active", sessionID)
		}
		return nil, err
	}

	if source, err := m.store.GetTable(ctx, sourceTableID); err == nil {
		m.sendLight(ctx, source, model.CommandLightOff)
	}
	m.sendLight(ctx, target, model.CommandLightOn)

	session.TableID = targetTableID
	m.log.Info("session moved",
		zap.String("session_id", sessionID),
		zap.Int64("from_table", sourceTableID),
		zap.Int64("to_table", targetTableID))
	return session, nil
}

// ListActive returns all running sessions.
func (m *Manager) ListActive(ctx context.Context) ([]model.BillingSession, error) {
	return m.store.ListActiveSessions(ctx)
}

// ListCompleted returns finished sessions, newest first.
func (m *Manager) ListCompleted(ctx context.Context, limit, offset int) ([]model.BillingSession, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return m.store.ListCompletedSessions(ctx, limit, offset)
}

func (m *Manager) getSession(ctx context.Context, id string) (*model.BillingSession, error) {
	session, err := m.store.GetSession(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("session %s not found", id)
		}
		return nil, err
	}
	return session, nil
}

func (m *Manager) sendLight(ctx context.Context, table *model.Table, command model.CommandType) {
	if err := m.dispatch.SendCommand(ctx, table, command); err != nil {
		m.log.Error("failed to queue light command",
			zap.Int64("table_id", table.ID),
			zap.String("command", string(command)),
			zap.Error(err))
	}
}

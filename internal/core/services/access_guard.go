package services

import (
	"context"
	"errors"

	"telesignal/internal/core/domain"
	"telesignal/internal/core/ports"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

// AccessGuard validates that a connecting principal is a party to the
// target appointment before any room registration happens. Lookups are
// cached; lifecycle mutations invalidate the entry so the stored room
// token never goes stale. Every authorization hands out a private copy,
// so a caller mutating its result cannot touch the cached object or
// another caller's view of it.
type AccessGuard struct {
	appointments ports.AppointmentRepository
	cache        *lru.Cache[int64, *domain.Appointment]
	tokenCache   *lru.Cache[string, int64]
	logger       *zap.SugaredLogger
}

func NewAccessGuard(appointments ports.AppointmentRepository, cacheSize int, logger *zap.SugaredLogger) (*AccessGuard, error) {
	cache, err := lru.New[int64, *domain.Appointment](cacheSize)
	if err != nil {
		return nil, err
	}
	tokenCache, err := lru.New[string, int64](cacheSize)
	if err != nil {
		return nil, err
	}
	return &AccessGuard{
		appointments: appointments,
		cache:        cache,
		tokenCache:   tokenCache,
		logger:       logger,
	}, nil
}

func (g *AccessGuard) AuthorizeAppointment(ctx context.Context, appointmentID, userID int64) (*domain.Appointment, domain.Role, error) {
	appointment, err := g.lookup(ctx, appointmentID)
	if err != nil {
		return nil, "", err
	}
	return g.admit(appointment, userID)
}

func (g *AccessGuard) AuthorizeRoomToken(ctx context.Context, roomToken string, userID int64) (*domain.Appointment, domain.Role, error) {
	if roomToken == "" {
		return nil, "", domain.ErrAppointmentNotFound
	}

	if id, ok := g.tokenCache.Get(roomToken); ok {
		if appointment, ok := g.cache.Get(id); ok && appointment.VideoCallRoomID == roomToken {
			return g.admit(appointment, userID)
		}
	}

	appointment, err := g.appointments.GetByRoomToken(ctx, roomToken)
	if err != nil {
		if errors.Is(err, domain.ErrAppointmentNotFound) {
			return nil, "", domain.ErrAppointmentNotFound
		}
		return nil, "", err
	}

	g.cache.Add(appointment.ID, appointment)
	g.tokenCache.Add(roomToken, appointment.ID)
	return g.admit(appointment, userID)
}

// Invalidate drops the cached appointment. Called by the call lifecycle
// service after every status mutation.
func (g *AccessGuard) Invalidate(appointmentID int64) {
	if appointment, ok := g.cache.Get(appointmentID); ok && appointment.VideoCallRoomID != "" {
		g.tokenCache.Remove(appointment.VideoCallRoomID)
	}
	g.cache.Remove(appointmentID)
}

func (g *AccessGuard) lookup(ctx context.Context, appointmentID int64) (*domain.Appointment, error) {
	if appointment, ok := g.cache.Get(appointmentID); ok {
		return appointment, nil
	}

	appointment, err := g.appointments.GetByID(ctx, appointmentID)
	if err != nil {
		if errors.Is(err, domain.ErrAppointmentNotFound) {
			return nil, domain.ErrAppointmentNotFound
		}
		return nil, err
	}

	g.cache.Add(appointmentID, appointment)
	if appointment.VideoCallRoomID != "" {
		g.tokenCache.Add(appointment.VideoCallRoomID, appointmentID)
	}
	return appointment, nil
}

func (g *AccessGuard) admit(appointment *domain.Appointment, userID int64) (*domain.Appointment, domain.Role, error) {
	role, ok := appointment.RoleOf(userID)
	if !ok {
		g.logger.Warnw("rejected connection, not a party to appointment",
			"appointment_id", appointment.ID,
			"user_id", userID,
		)
		return nil, "", domain.ErrNotParticipant
	}
	return appointment.Clone(), role, nil
}

package services

import (
	"context"
	"time"

	"telesignal/internal/core/domain"
	"telesignal/internal/core/ports"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CallLifecycleService owns the not_started → waiting → in_progress →
// ended state machine. It runs at the HTTP boundary; the socket relay
// never mutates call status itself.
type CallLifecycleService struct {
	appointments ports.AppointmentRepository
	guard        ports.AccessGuard
	announcer    ports.CallAnnouncer
	publisher    ports.EventPublisher
	logger       *zap.SugaredLogger
	now          func() time.Time
}

func NewCallLifecycleService(
	appointments ports.AppointmentRepository,
	guard ports.AccessGuard,
	announcer ports.CallAnnouncer,
	publisher ports.EventPublisher,
	logger *zap.SugaredLogger,
) *CallLifecycleService {
	return &CallLifecycleService{
		appointments: appointments,
		guard:        guard,
		announcer:    announcer,
		publisher:    publisher,
		logger:       logger,
		now:          time.Now,
	}
}

// StartCall resets the call to waiting and rings the patient through the
// call-invite room. Doctor only.
func (s *CallLifecycleService) StartCall(ctx context.Context, appointmentID, userID int64, senderName string) (*domain.Appointment, error) {
	appointment, role, err := s.authorize(ctx, appointmentID, userID)
	if err != nil {
		return nil, err
	}
	if role != domain.RoleDoctor {
		return nil, domain.ErrNotParticipant
	}

	if appointment.VideoCallRoomID == "" {
		appointment.VideoCallRoomID = uuid.NewString()
	}
	appointment.VideoCallStatus = domain.CallWaiting
	appointment.VideoCallStartedAt = nil
	appointment.VideoCallEndedAt = nil
	appointment.CallDuration = 0

	if err := s.appointments.Update(ctx, appointment); err != nil {
		return nil, err
	}
	s.guard.Invalidate(appointmentID)

	s.emit(ctx, domain.CallEvent{
		Type:          domain.EventCallInvite,
		AppointmentID: appointment.ID,
		RoomID:        appointment.VideoCallRoomID,
		SenderID:      userID,
		SenderRole:    domain.RoleDoctor,
		SenderName:    senderName,
		Timestamp:     s.now(),
	})

	s.logger.Infow("video call started",
		"appointment_id", appointment.ID,
		"room_id", appointment.VideoCallRoomID,
	)
	return appointment, nil
}

// JoinCall validates the entry point into the media room. The doctor
// joining a waiting call moves it to in_progress and stamps the start
// time; a patient may only enter once the call is waiting or running.
func (s *CallLifecycleService) JoinCall(ctx context.Context, appointmentID, userID int64) (*domain.Appointment, error) {
	appointment, role, err := s.authorize(ctx, appointmentID, userID)
	if err != nil {
		return nil, err
	}

	if appointment.VideoCallStatus != domain.CallWaiting && appointment.VideoCallStatus != domain.CallInProgress {
		return nil, domain.ErrInvalidTransition
	}

	if role == domain.RoleDoctor && appointment.VideoCallStatus == domain.CallWaiting {
		now := s.now()
		appointment.VideoCallStatus = domain.CallInProgress
		appointment.VideoCallStartedAt = &now
		if err := s.appointments.Update(ctx, appointment); err != nil {
			return nil, err
		}
		s.guard.Invalidate(appointmentID)
	}

	return appointment, nil
}

// EndCall moves an in_progress call to ended and computes the duration.
// Ending an already-ended call is a no-op, not an error.
func (s *CallLifecycleService) EndCall(ctx context.Context, appointmentID, userID int64, senderName string) (*domain.Appointment, error) {
	appointment, role, err := s.authorize(ctx, appointmentID, userID)
	if err != nil {
		return nil, err
	}

	if appointment.VideoCallStatus == domain.CallInProgress {
		now := s.now()
		appointment.VideoCallStatus = domain.CallEnded
		appointment.VideoCallEndedAt = &now
		if appointment.VideoCallStartedAt != nil {
			appointment.CallDuration = int(now.Sub(*appointment.VideoCallStartedAt).Seconds())
		}
		if err := s.appointments.Update(ctx, appointment); err != nil {
			return nil, err
		}
		s.guard.Invalidate(appointmentID)
	}

	s.emit(ctx, domain.CallEvent{
		Type:          domain.EventCallEnded,
		AppointmentID: appointment.ID,
		RoomID:        appointment.VideoCallRoomID,
		SenderID:      userID,
		SenderRole:    role,
		SenderName:    senderName,
		Timestamp:     s.now(),
	})

	s.logger.Infow("video call ended",
		"appointment_id", appointment.ID,
		"duration_seconds", appointment.CallDuration,
	)
	return appointment, nil
}

func (s *CallLifecycleService) CallStatus(ctx context.Context, appointmentID, userID int64) (*domain.Appointment, error) {
	appointment, _, err := s.authorize(ctx, appointmentID, userID)
	if err != nil {
		return nil, err
	}
	return appointment, nil
}

func (s *CallLifecycleService) authorize(ctx context.Context, appointmentID, userID int64) (*domain.Appointment, domain.Role, error) {
	return s.guard.AuthorizeAppointment(ctx, appointmentID, userID)
}

func (s *CallLifecycleService) emit(ctx context.Context, event domain.CallEvent) {
	if s.announcer != nil {
		s.announcer.AnnounceCallEvent(event.AppointmentID, event)
	}
	if s.publisher != nil {
		if err := s.publisher.PublishCallEvent(ctx, event); err != nil {
			s.logger.Warnw("failed to publish call event",
				"appointment_id", event.AppointmentID,
				"type", event.Type,
				"error", err,
			)
		}
	}
}

package ports

import (
	"context"

	"telesignal/internal/core/domain"
)

// AccessGuard decides whether a principal may join rooms tied to an
// appointment, and which role it holds there.
type AccessGuard interface {
	// AuthorizeAppointment admits or rejects a principal for the
	// call-invite and chat rooms of an appointment.
	AuthorizeAppointment(ctx context.Context, appointmentID, userID int64) (*domain.Appointment, domain.Role, error)
	// AuthorizeRoomToken admits or rejects a principal for the video-call
	// room identified by its opaque token.
	AuthorizeRoomToken(ctx context.Context, roomToken string, userID int64) (*domain.Appointment, domain.Role, error)
	// Invalidate drops a cached appointment after a lifecycle mutation.
	Invalidate(appointmentID int64)
}

// CallService drives the video-call lifecycle state machine at the HTTP
// boundary.
type CallService interface {
	StartCall(ctx context.Context, appointmentID, userID int64, senderName string) (*domain.Appointment, error)
	JoinCall(ctx context.Context, appointmentID, userID int64) (*domain.Appointment, error)
	EndCall(ctx context.Context, appointmentID, userID int64, senderName string) (*domain.Appointment, error)
	CallStatus(ctx context.Context, appointmentID, userID int64) (*domain.Appointment, error)
}

// ChatService persists chat messages and serializes them for relay.
type ChatService interface {
	SaveMessage(ctx context.Context, appointmentID, senderID int64, senderName, text string, attachment *Attachment) (domain.ChatMessagePayload, error)
	History(ctx context.Context, appointmentID int64) ([]domain.ChatMessagePayload, error)
}

// Attachment is metadata for a file already uploaded through the HTTP
// side; the socket path only relays it.
type Attachment struct {
	Name string
	URL  string
	Size int64
}

// EventPublisher is the external fan-out boundary for call lifecycle
// events. Horizontal scale subscribes to this; the in-process registry
// does not consume it.
type EventPublisher interface {
	PublishCallEvent(ctx context.Context, event domain.CallEvent) error
}

// CallAnnouncer pushes a lifecycle event into the live call-invite room,
// reaching every connected member. Implemented by the signaling layer.
type CallAnnouncer interface {
	AnnounceCallEvent(appointmentID int64, event domain.CallEvent)
}

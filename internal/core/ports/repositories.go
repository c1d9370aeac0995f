package ports

import (
	"context"

	"telesignal/internal/core/domain"
)

type AppointmentRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Appointment, error)
	GetByRoomToken(ctx context.Context, token string) (*domain.Appointment, error)
	Update(ctx context.Context, appointment *domain.Appointment) error
}

type ChatMessageRepository interface {
	Create(ctx context.Context, message *domain.ChatMessage) error
	ListByAppointment(ctx context.Context, appointmentID int64) ([]*domain.ChatMessage, error)
}

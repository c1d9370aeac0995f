package memory

import (
	"context"
	"sync"

	"telesignal/internal/core/domain"
	"telesignal/internal/core/ports"
)

type MemoryAppointmentRepository struct {
	appointments map[int64]*domain.Appointment
	mu           sync.RWMutex
}

func NewMemoryAppointmentRepository() *MemoryAppointmentRepository {
	return &MemoryAppointmentRepository{
		appointments: make(map[int64]*domain.Appointment),
	}
}

var _ ports.AppointmentRepository = (*MemoryAppointmentRepository)(nil)

// Seed inserts an appointment directly. Used by tests and the dev setup.
func (r *MemoryAppointmentRepository) Seed(appointment *domain.Appointment) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.appointments[appointment.ID] = appointment.Clone()
}

func (r *MemoryAppointmentRepository) GetByID(ctx context.Context, id int64) (*domain.Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	appointment, exists := r.appointments[id]
	if !exists {
		return nil, domain.ErrAppointmentNotFound
	}
	return appointment.Clone(), nil
}

func (r *MemoryAppointmentRepository) GetByRoomToken(ctx context.Context, token string) (*domain.Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, appointment := range r.appointments {
		if appointment.VideoCallRoomID != "" && appointment.VideoCallRoomID == token {
			return appointment.Clone(), nil
		}
	}
	return nil, domain.ErrAppointmentNotFound
}

func (r *MemoryAppointmentRepository) Update(ctx context.Context, appointment *domain.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.appointments[appointment.ID]; !exists {
		return domain.ErrAppointmentNotFound
	}
	r.appointments[appointment.ID] = appointment.Clone()
	return nil
}

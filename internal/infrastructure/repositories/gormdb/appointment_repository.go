package gormdb

import (
	"context"
	"errors"

	"telesignal/internal/core/domain"
	"telesignal/internal/core/ports"

	"gorm.io/gorm"
)

type GormAppointmentRepository struct {
	db *gorm.DB
}

func NewGormAppointmentRepository(db *gorm.DB) *GormAppointmentRepository {
	return &GormAppointmentRepository{db: db}
}

var _ ports.AppointmentRepository = (*GormAppointmentRepository)(nil)

func (r *GormAppointmentRepository) GetByID(ctx context.Context, id int64) (*domain.Appointment, error) {
	var record appointmentRecord
	err := r.db.WithContext(ctx).First(&record, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrAppointmentNotFound
		}
		return nil, err
	}
	return toDomainAppointment(&record), nil
}

func (r *GormAppointmentRepository) GetByRoomToken(ctx context.Context, token string) (*domain.Appointment, error) {
	var record appointmentRecord
	err := r.db.WithContext(ctx).Where("video_call_room_id = ?", token).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrAppointmentNotFound
		}
		return nil, err
	}
	return toDomainAppointment(&record), nil
}

func (r *GormAppointmentRepository) Update(ctx context.Context, appointment *domain.Appointment) error {
	record := toAppointmentRecord(appointment)
	result := r.db.WithContext(ctx).Model(&appointmentRecord{}).
		Where("id = ?", record.ID).
		Select("video_call_room_id", "video_call_status", "video_call_started_at", "video_call_ended_at", "call_duration").
		Updates(record)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrAppointmentNotFound
	}
	return nil
}

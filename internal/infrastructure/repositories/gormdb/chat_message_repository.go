package gormdb

import (
	"context"

	"telesignal/internal/core/domain"
	"telesignal/internal/core/ports"

	"gorm.io/gorm"
)

type GormChatMessageRepository struct {
	db *gorm.DB
}

func NewGormChatMessageRepository(db *gorm.DB) *GormChatMessageRepository {
	return &GormChatMessageRepository{db: db}
}

var _ ports.ChatMessageRepository = (*GormChatMessageRepository)(nil)

func (r *GormChatMessageRepository) Create(ctx context.Context, message *domain.ChatMessage) error {
	record := toChatMessageRecord(message)
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return err
	}
	message.ID = record.ID
	return nil
}

func (r *GormChatMessageRepository) ListByAppointment(ctx context.Context, appointmentID int64) ([]*domain.ChatMessage, error) {
	var records []chatMessageRecord
	err := r.db.WithContext(ctx).
		Where("appointment_id = ?", appointmentID).
		Order("created_at ASC, id ASC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}

	messages := make([]*domain.ChatMessage, 0, len(records))
	for i := range records {
		messages = append(messages, toDomainChatMessage(&records[i]))
	}
	return messages, nil
}

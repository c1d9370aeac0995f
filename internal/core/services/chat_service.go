package services

import (
	"context"
	"strings"
	"time"

	"telesignal/internal/core/domain"
	"telesignal/internal/core/ports"

	"go.uber.org/zap"
)

// ChatPersistenceService persists chat messages and serializes them for
// relay and history. Persistence happens before any broadcast; a failed
// write means no member sees the message.
type ChatPersistenceService struct {
	messages ports.ChatMessageRepository
	logger   *zap.SugaredLogger
	now      func() time.Time
}

func NewChatPersistenceService(messages ports.ChatMessageRepository, logger *zap.SugaredLogger) *ChatPersistenceService {
	return &ChatPersistenceService{
		messages: messages,
		logger:   logger,
		now:      time.Now,
	}
}

// SaveMessage trims, validates and persists a message, then returns the
// relay payload. Empty text is rejected unless an attachment is present.
func (s *ChatPersistenceService) SaveMessage(ctx context.Context, appointmentID, senderID int64, senderName, text string, attachment *ports.Attachment) (domain.ChatMessagePayload, error) {
	text = strings.TrimSpace(text)
	if text == "" && attachment == nil {
		return domain.ChatMessagePayload{}, domain.ErrEmptyMessage
	}

	message := &domain.ChatMessage{
		AppointmentID: appointmentID,
		SenderID:      senderID,
		Message:       text,
		CreatedAt:     s.now(),
	}
	if attachment != nil {
		message.AttachmentName = attachment.Name
		message.AttachmentURL = attachment.URL
		message.AttachmentSize = attachment.Size
	}

	if err := s.messages.Create(ctx, message); err != nil {
		s.logger.Errorw("failed to persist chat message",
			"appointment_id", appointmentID,
			"sender_id", senderID,
			"error", err,
		)
		return domain.ChatMessagePayload{}, err
	}

	return serializeMessage(message, senderName), nil
}

// History returns the persisted messages of an appointment in creation
// order, serialized the same way the relay path serializes them.
func (s *ChatPersistenceService) History(ctx context.Context, appointmentID int64) ([]domain.ChatMessagePayload, error) {
	messages, err := s.messages.ListByAppointment(ctx, appointmentID)
	if err != nil {
		return nil, err
	}

	payloads := make([]domain.ChatMessagePayload, 0, len(messages))
	for _, message := range messages {
		payloads = append(payloads, serializeMessage(message, ""))
	}
	return payloads, nil
}

func serializeMessage(message *domain.ChatMessage, senderName string) domain.ChatMessagePayload {
	local := message.CreatedAt.Local()
	return domain.ChatMessagePayload{
		Type:             "message",
		ID:               message.ID,
		Message:          message.Message,
		SenderID:         message.SenderID,
		SenderName:       senderName,
		CreatedAt:        local.Format(time.RFC3339),
		CreatedAtDisplay: local.Format("3:04 PM"),
		HasAttachment:    message.HasAttachment(),
		AttachmentURL:    message.AttachmentURL,
		AttachmentName:   message.AttachmentName,
		AttachmentSize:   message.AttachmentSize,
		IsImage:          message.IsImage(),
	}
}

package memory

import (
	"context"
	"sort"
	"sync"

	"telesignal/internal/core/domain"
	"telesignal/internal/core/ports"
)

type MemoryChatMessageRepository struct {
	messages map[int64]*domain.ChatMessage
	nextID   int64
	mu       sync.RWMutex

	// FailCreate forces Create to return this error. Tests use it to
	// exercise the persistence-failure path.
	FailCreate error
}

func NewMemoryChatMessageRepository() *MemoryChatMessageRepository {
	return &MemoryChatMessageRepository{
		messages: make(map[int64]*domain.ChatMessage),
		nextID:   1,
	}
}

var _ ports.ChatMessageRepository = (*MemoryChatMessageRepository)(nil)

func (r *MemoryChatMessageRepository) Create(ctx context.Context, message *domain.ChatMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.FailCreate != nil {
		return r.FailCreate
	}

	message.ID = r.nextID
	r.nextID++

	stored := *message
	r.messages[message.ID] = &stored
	return nil
}

func (r *MemoryChatMessageRepository) ListByAppointment(ctx context.Context, appointmentID int64) ([]*domain.ChatMessage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*domain.ChatMessage
	for _, message := range r.messages {
		if message.AppointmentID == appointmentID {
			copy := *message
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

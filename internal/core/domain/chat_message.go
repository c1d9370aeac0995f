package domain

import (
	"path/filepath"
	"strings"
	"time"
)

// ChatMessage is a persisted appointment chat message. Immutable after
// creation except the read flag, which is flipped outside this service.
type ChatMessage struct {
	ID            int64
	AppointmentID int64
	SenderID      int64
	Message       string

	AttachmentName string
	AttachmentURL  string
	AttachmentSize int64

	CreatedAt time.Time
	IsRead    bool
}

// HasAttachment reports whether the message carries a file.
func (m *ChatMessage) HasAttachment() bool {
	return m.AttachmentName != ""
}

var imageExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".gif":  {},
	".webp": {},
	".bmp":  {},
	".svg":  {},
}

// IsImage reports whether the attachment renders as an inline image,
// decided by file extension.
func (m *ChatMessage) IsImage() bool {
	if !m.HasAttachment() {
		return false
	}
	ext := strings.ToLower(filepath.Ext(m.AttachmentName))
	_, ok := imageExtensions[ext]
	return ok
}

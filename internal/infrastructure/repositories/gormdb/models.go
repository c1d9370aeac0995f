package gormdb

import (
	"time"

	"telesignal/internal/core/domain"
)

// appointmentRecord maps the slice of the appointments table this service
// touches. The scheduling columns live in the owning application.
type appointmentRecord struct {
	ID        int64 `gorm:"primaryKey"`
	PatientID int64 `gorm:"index"`
	DoctorID  int64 `gorm:"index"`

	VideoCallRoomID    string `gorm:"size:64;uniqueIndex"`
	VideoCallStatus    string `gorm:"size:20;default:'not_started'"`
	VideoCallStartedAt *time.Time
	VideoCallEndedAt   *time.Time
	CallDuration       int
}

func (appointmentRecord) TableName() string { return "appointments" }

type chatMessageRecord struct {
	ID            int64 `gorm:"primaryKey;autoIncrement"`
	AppointmentID int64 `gorm:"index"`
	SenderID      int64 `gorm:"index"`
	Message       string `gorm:"type:text"`

	AttachmentName string `gorm:"size:255"`
	AttachmentURL  string `gorm:"size:512"`
	AttachmentSize int64

	CreatedAt time.Time `gorm:"index"`
	IsRead    bool      `gorm:"default:false"`
}

func (chatMessageRecord) TableName() string { return "chat_messages" }

func toDomainAppointment(r *appointmentRecord) *domain.Appointment {
	return &domain.Appointment{
		ID:                 r.ID,
		PatientID:          r.PatientID,
		DoctorID:           r.DoctorID,
		VideoCallRoomID:    r.VideoCallRoomID,
		VideoCallStatus:    domain.CallStatus(r.VideoCallStatus),
		VideoCallStartedAt: r.VideoCallStartedAt,
		VideoCallEndedAt:   r.VideoCallEndedAt,
		CallDuration:       r.CallDuration,
	}
}

func toAppointmentRecord(a *domain.Appointment) *appointmentRecord {
	return &appointmentRecord{
		ID:                 a.ID,
		PatientID:          a.PatientID,
		DoctorID:           a.DoctorID,
		VideoCallRoomID:    a.VideoCallRoomID,
		VideoCallStatus:    string(a.VideoCallStatus),
		VideoCallStartedAt: a.VideoCallStartedAt,
		VideoCallEndedAt:   a.VideoCallEndedAt,
		CallDuration:       a.CallDuration,
	}
}

func toDomainChatMessage(r *chatMessageRecord) *domain.ChatMessage {
	return &domain.ChatMessage{
		ID:             r.ID,
		AppointmentID:  r.AppointmentID,
		SenderID:       r.SenderID,
		Message:        r.Message,
		AttachmentName: r.AttachmentName,
		AttachmentURL:  r.AttachmentURL,
		AttachmentSize: r.AttachmentSize,
		CreatedAt:      r.CreatedAt,
		IsRead:         r.IsRead,
	}
}

func toChatMessageRecord(m *domain.ChatMessage) *chatMessageRecord {
	return &chatMessageRecord{
		ID:             m.ID,
		AppointmentID:  m.AppointmentID,
		SenderID:       m.SenderID,
		Message:        m.Message,
		AttachmentName: m.AttachmentName,
		AttachmentURL:  m.AttachmentURL,
		AttachmentSize: m.AttachmentSize,
		CreatedAt:      m.CreatedAt,
		IsRead:         m.IsRead,
	}
}

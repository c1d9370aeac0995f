package domain

import "time"

// CallStatus tracks the lifecycle of an appointment's video call.
type CallStatus string

const (
	CallNotStarted CallStatus = "not_started"
	CallWaiting    CallStatus = "waiting"
	CallInProgress CallStatus = "in_progress"
	CallEnded      CallStatus = "ended"
)

// Role is a principal's role within an appointment.
type Role string

const (
	RoleDoctor  Role = "doctor"
	RolePatient Role = "patient"
)

// Appointment is the slice of the scheduling record the signaling core
// reads and writes. Scheduling semantics live elsewhere; this service only
// consults party ids and drives the video-call lifecycle fields.
type Appointment struct {
	ID        int64
	PatientID int64
	DoctorID  int64

	VideoCallRoomID    string
	VideoCallStatus    CallStatus
	VideoCallStartedAt *time.Time
	VideoCallEndedAt   *time.Time
	CallDuration       int // seconds
}

// Clone returns a deep copy. The timestamp pointers are duplicated so a
// caller may mutate its copy without touching anyone else's.
func (a *Appointment) Clone() *Appointment {
	clone := *a
	if a.VideoCallStartedAt != nil {
		t := *a.VideoCallStartedAt
		clone.VideoCallStartedAt = &t
	}
	if a.VideoCallEndedAt != nil {
		t := *a.VideoCallEndedAt
		clone.VideoCallEndedAt = &t
	}
	return &clone
}

// RoleOf returns the role the given user holds in this appointment,
// or false if the user is not a party to it.
func (a *Appointment) RoleOf(userID int64) (Role, bool) {
	switch userID {
	case a.DoctorID:
		return RoleDoctor, true
	case a.PatientID:
		return RolePatient, true
	default:
		return "", false
	}
}

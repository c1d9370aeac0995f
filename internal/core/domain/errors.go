package domain

import "errors"

var (
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrNotParticipant      = errors.New("user is not a party to the appointment")
	ErrInvalidTransition   = errors.New("invalid call status transition")
	ErrEmptyMessage        = errors.New("message text is empty")
)

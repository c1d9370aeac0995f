package domain

import "time"

// Call-invite event types. These are the only inbound types the
// call-invite room accepts; everything else is dropped.
const (
	EventCallInvite    = "call_invite"
	EventCallAccepted  = "call_accepted"
	EventCallDeclined  = "call_declined"
	EventCallCancelled = "call_cancelled"
	EventCallEnded     = "call_ended"
)

// CallEvent is a call lifecycle event stamped server-side before relay.
// The same shape travels over the call-invite websocket room and, when
// configured, the redis fan-out channel.
type CallEvent struct {
	Type          string    `json:"type"`
	AppointmentID int64     `json:"appointment_id"`
	RoomID        string    `json:"room_id"`
	SenderID      int64     `json:"sender_id"`
	SenderRole    Role      `json:"sender_role"`
	SenderName    string    `json:"sender_name"`
	Timestamp     time.Time `json:"timestamp"`
}

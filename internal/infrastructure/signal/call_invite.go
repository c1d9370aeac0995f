package signal

import (
	"context"
	"encoding/json"

	"telesignal/internal/core/domain"
)

// callInviteSession is the ring channel for an appointment: the doctor
// invites, the patient accepts or declines, either side cancels or ends.
// Gated types from the wrong role are dropped silently so a misbehaving
// client learns nothing about room membership.
type callInviteSession struct {
	server      *Server
	client      *Client
	appointment *domain.Appointment
}

func (ci *callInviteSession) OnConnect() {}

func (ci *callInviteSession) OnFrame(ctx context.Context, data []byte) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		ci.server.sendError(ci.client, invalidPayloadMessage)
		return
	}

	switch env.Type {
	case domain.EventCallInvite,
		domain.EventCallAccepted,
		domain.EventCallDeclined,
		domain.EventCallCancelled,
		domain.EventCallEnded:
	default:
		return
	}

	if env.Type == domain.EventCallInvite && ci.client.Role != domain.RoleDoctor {
		return
	}
	if (env.Type == domain.EventCallAccepted || env.Type == domain.EventCallDeclined) && ci.client.Role != domain.RolePatient {
		return
	}

	var frame callInviteFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		ci.server.sendError(ci.client, invalidPayloadMessage)
		return
	}

	roomID := frame.RoomID
	if roomID == "" {
		roomID = ci.storedRoomID(ctx)
	}

	event := domain.CallEvent{
		Type:          env.Type,
		AppointmentID: ci.appointment.ID,
		RoomID:        roomID,
		SenderID:      ci.client.UserID,
		SenderRole:    ci.client.Role,
		SenderName:    ci.client.Name,
		Timestamp:     ci.server.now(),
	}

	ci.server.registry.Broadcast(ci.client.Key, ci.client.Handle, event)
	ci.server.metrics.FrameRelayed(string(KindCallInvite), env.Type)
}

func (ci *callInviteSession) OnDisconnect() {
	ci.server.registry.Leave(ci.client)
}

// storedRoomID falls back to the appointment's persisted room token when
// the client omits one. The guard cache is invalidated on every
// lifecycle mutation, so a token generated after this session connected
// is still picked up.
func (ci *callInviteSession) storedRoomID(ctx context.Context) string {
	appointment, _, err := ci.server.guard.AuthorizeAppointment(ctx, ci.appointment.ID, ci.client.UserID)
	if err != nil {
		return ci.appointment.VideoCallRoomID
	}
	ci.appointment = appointment
	return appointment.VideoCallRoomID
}

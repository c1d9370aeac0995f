package signal

import (
	"context"
	"encoding/json"
	"errors"

	"telesignal/internal/core/domain"
	"telesignal/internal/core/ports"
)

// chatSession relays appointment chat with presence tracking. Messages
// are persisted before any member sees them; presence is rebroadcast
// after every join and leave, including abrupt disconnects.
type chatSession struct {
	server      *Server
	client      *Client
	appointment *domain.Appointment

	// Presence list computed while registering, broadcast on connect.
	initialPresence []int64
}

func (cs *chatSession) OnConnect() {
	cs.broadcastPresence(cs.initialPresence)
}

func (cs *chatSession) OnFrame(ctx context.Context, data []byte) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		cs.server.sendError(cs.client, invalidPayloadMessage)
		return
	}

	switch env.Type {
	case "message":
		var frame chatMessageFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			cs.server.sendError(cs.client, invalidPayloadMessage)
			return
		}
		cs.handleMessage(ctx, frame)

	case "typing":
		var frame typingFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			cs.server.sendError(cs.client, invalidPayloadMessage)
			return
		}
		cs.server.registry.Broadcast(cs.client.Key, cs.client.Handle, typingEvent{
			Type:       "typing",
			SenderID:   cs.client.UserID,
			SenderName: cs.client.Name,
			IsTyping:   frame.IsTyping,
		})
		cs.server.metrics.FrameRelayed(string(KindChat), env.Type)

	default:
	}
}

func (cs *chatSession) OnDisconnect() {
	remaining := cs.server.registry.LeavePresence(cs.client)
	cs.broadcastPresence(remaining)
}

func (cs *chatSession) handleMessage(ctx context.Context, frame chatMessageFrame) {
	var attachment *ports.Attachment
	if frame.Attachment != nil {
		attachment = &ports.Attachment{
			Name: frame.Attachment.Name,
			URL:  frame.Attachment.URL,
			Size: frame.Attachment.Size,
		}
	}

	payload, err := cs.server.chat.SaveMessage(
		ctx,
		cs.appointment.ID,
		cs.client.UserID,
		cs.client.Name,
		frame.Message,
		attachment,
	)
	if err != nil {
		if errors.Is(err, domain.ErrEmptyMessage) {
			return
		}
		// Not persisted means not relayed; only the sender hears about it.
		cs.server.sendError(cs.client, "Message could not be saved.")
		return
	}

	cs.server.metrics.MessagePersisted()

	// Everyone gets the message, each with is_self computed against its
	// own user id.
	for _, member := range cs.server.registry.Members(cs.client.Key) {
		if err := member.Send(payload.ForReceiver(member.UserID)); err != nil {
			cs.server.logger.Debugw("failed to relay chat message",
				"room_id", cs.client.Key.ID,
				"user_id", member.UserID,
				"error", err,
			)
		}
	}
	cs.server.metrics.FrameRelayed(string(KindChat), "message")
}

func (cs *chatSession) broadcastPresence(onlineUserIDs []int64) {
	cs.server.registry.Broadcast(cs.client.Key, "", presenceEvent{
		Type:          "presence",
		OnlineUserIDs: onlineUserIDs,
	})
}

package signal

import (
	"context"
	"encoding/json"
	"time"
)

// videoCallSession relays WebRTC signaling inside a media room. The room
// holds no persisted state; everything is pass-through plus the join
// choreography. Every relay excludes the sender except call-ended, which
// both sides use to close their call UI.
type videoCallSession struct {
	server *Server
	client *Client
}

func (v *videoCallSession) OnConnect() {
	// Peers are announced on their join frame, once the declared role is
	// known, not on the raw socket open.
}

func (v *videoCallSession) OnFrame(ctx context.Context, data []byte) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		v.server.sendError(v.client, invalidPayloadMessage)
		return
	}

	switch env.Type {
	case "offer":
		var frame sdpFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			v.server.sendError(v.client, invalidPayloadMessage)
			return
		}
		v.relayToOthers(env.Type, offerEvent{Type: "offer", Offer: frame.Offer})

	case "answer":
		var frame sdpFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			v.server.sendError(v.client, invalidPayloadMessage)
			return
		}
		v.relayToOthers(env.Type, answerEvent{Type: "answer", Answer: frame.Answer})

	case "ice-candidate":
		var frame sdpFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			v.server.sendError(v.client, invalidPayloadMessage)
			return
		}
		v.relayToOthers(env.Type, iceCandidateEvent{Type: "ice-candidate", Candidate: frame.Candidate})

	case "join":
		var frame identityFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			v.server.sendError(v.client, invalidPayloadMessage)
			return
		}
		v.client.DeclaredType = frame.UserType
		v.client.DeclaredName = frame.UserName

		// Generic announcement first, then the role-specific one.
		v.relayToOthers("join", peerJoinedEvent{
			Type:    "peer-joined",
			PeerID:  v.client.Handle,
			Message: "A new peer has joined the room",
		})
		v.relayToOthers("join", identityEvent{
			Type:     "user-joined",
			UserType: frame.UserType,
			UserName: frame.UserName,
		})

	case "leave":
		var frame identityFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			v.server.sendError(v.client, invalidPayloadMessage)
			return
		}
		v.relayToOthers(env.Type, identityEvent{
			Type:     "user-left",
			UserType: frame.UserType,
			UserName: frame.UserName,
		})

	case "call-ended":
		var frame identityFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			v.server.sendError(v.client, invalidPayloadMessage)
			return
		}
		// The one broadcast that includes the sender.
		v.server.registry.Broadcast(v.client.Key, "", identityEvent{
			Type:     "call-ended",
			UserType: frame.UserType,
			UserName: frame.UserName,
		})
		v.server.metrics.FrameRelayed(string(KindVideoCall), env.Type)

	case "chat":
		var frame inCallChatFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			v.server.sendError(v.client, invalidPayloadMessage)
			return
		}
		v.relayToOthers(env.Type, inCallChatEvent{
			Type:      "chat",
			Message:   frame.Message,
			Sender:    frame.Sender,
			Timestamp: v.server.now().Format(time.RFC3339),
		})

	case "screen-share":
		var frame screenShareFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			v.server.sendError(v.client, invalidPayloadMessage)
			return
		}
		v.relayToOthers(env.Type, screenShareEvent{
			Type:      "screen-share",
			IsSharing: frame.IsSharing,
		})

	default:
		// Unknown types are dropped without an error reply.
	}
}

func (v *videoCallSession) OnDisconnect() {
	v.server.registry.Broadcast(v.client.Key, v.client.Handle, peerLeftEvent{
		Type:    "peer-left",
		Message: "A peer has left the room",
	})
	v.server.registry.Leave(v.client)
}

func (v *videoCallSession) relayToOthers(frameType string, payload interface{}) {
	v.server.registry.Broadcast(v.client.Key, v.client.Handle, payload)
	v.server.metrics.FrameRelayed(string(KindVideoCall), frameType)
}

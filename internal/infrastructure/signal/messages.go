package signal

import "encoding/json"

// Inbound frames carry at minimum {"type": ...}; everything else is
// decoded per type. Unknown types are a no-op, undecodable payloads get
// a single error frame back.

type envelope struct {
	Type string `json:"type"`
}

type errorFrame struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func newErrorFrame(message string) errorFrame {
	return errorFrame{Type: "error", Message: message}
}

const invalidPayloadMessage = "Invalid payload."

// --- video-call room ---

type sdpFrame struct {
	Offer     json.RawMessage `json:"offer"`
	Answer    json.RawMessage `json:"answer"`
	Candidate json.RawMessage `json:"candidate"`
}

type identityFrame struct {
	UserType string `json:"user_type"`
	UserName string `json:"user_name"`
}

type inCallChatFrame struct {
	Message string `json:"message"`
	Sender  string `json:"sender"`
}

type screenShareFrame struct {
	IsSharing bool `json:"is_sharing"`
}

type offerEvent struct {
	Type  string          `json:"type"`
	Offer json.RawMessage `json:"offer"`
}

type answerEvent struct {
	Type   string          `json:"type"`
	Answer json.RawMessage `json:"answer"`
}

type iceCandidateEvent struct {
	Type      string          `json:"type"`
	Candidate json.RawMessage `json:"candidate"`
}

type peerJoinedEvent struct {
	Type    string `json:"type"`
	PeerID  string `json:"peer_id"`
	Message string `json:"message"`
}

type peerLeftEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type identityEvent struct {
	Type     string `json:"type"`
	UserType string `json:"user_type"`
	UserName string `json:"user_name"`
}

type inCallChatEvent struct {
	Type      string `json:"type"`
	Message   string `json:"message"`
	Sender    string `json:"sender"`
	Timestamp string `json:"timestamp"`
}

type screenShareEvent struct {
	Type      string `json:"type"`
	IsSharing bool   `json:"is_sharing"`
}

// --- call-invite room ---

type callInviteFrame struct {
	RoomID string `json:"room_id"`
}

// --- chat room ---

type attachmentMeta struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	Size int64  `json:"size"`
}

type chatMessageFrame struct {
	Message    string          `json:"message"`
	Attachment *attachmentMeta `json:"attachment"`
}

type typingFrame struct {
	IsTyping bool `json:"is_typing"`
}

type presenceEvent struct {
	Type          string  `json:"type"`
	OnlineUserIDs []int64 `json:"online_user_ids"`
}

type typingEvent struct {
	Type       string `json:"type"`
	SenderID   int64  `json:"sender_id"`
	SenderName string `json:"sender_name"`
	IsTyping   bool   `json:"is_typing"`
}

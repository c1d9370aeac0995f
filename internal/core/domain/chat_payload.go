package domain

// ChatMessagePayload is the serialized form of a persisted chat message,
// shared by the websocket relay and the chat history endpoint. IsSelf is
// computed per receiver, everything else once at persistence time.
type ChatMessagePayload struct {
	Type             string `json:"type"`
	ID               int64  `json:"id"`
	Message          string `json:"message"`
	SenderID         int64  `json:"sender_id"`
	SenderName       string `json:"sender_name"`
	CreatedAt        string `json:"created_at"`
	CreatedAtDisplay string `json:"created_at_display"`
	HasAttachment    bool   `json:"has_attachment"`
	AttachmentURL    string `json:"attachment_url,omitempty"`
	AttachmentName   string `json:"attachment_name,omitempty"`
	AttachmentSize   int64  `json:"attachment_size"`
	IsImage          bool   `json:"is_image"`
	IsSelf           bool   `json:"is_self"`
}

// ForReceiver returns a copy with IsSelf computed against the receiving
// user's id.
func (p ChatMessagePayload) ForReceiver(userID int64) ChatMessagePayload {
	p.IsSelf = p.SenderID == userID
	return p
}

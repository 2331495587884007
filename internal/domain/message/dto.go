package message

import (
	"time"

	"github.com/google/uuid"
)

// SendMessageRequest is the body for sending a message. Image is a base64
// payload (optionally a data: URI); at least one of text and image must be
// present.
type SendMessageRequest struct {
	Text  string `json:"text" validate:"max=5000"`
	Image string `json:"image"`
}

// MessageResponse is the API and event shape of a message. A message deleted
// for everyone never leaves the server with its content: any flagged row
// goes out redacted.
type MessageResponse struct {
	ID                uuid.UUID `json:"id"`
	SenderID          uuid.UUID `json:"sender_id"`
	ReceiverID        uuid.UUID `json:"receiver_id"`
	Text              string    `json:"text,omitempty"`
	Image             string    `json:"image,omitempty"`
	DeleteForEveryone bool      `json:"delete_for_everyone"`
	CreatedAt         time.Time `json:"created_at"`
}

func toMessageResponse(m *Message) *MessageResponse {
	resp := &MessageResponse{
		ID:         m.ID,
		SenderID:   m.SenderID,
		ReceiverID: m.ReceiverID,
		CreatedAt:  m.CreatedAt,
	}
	if m.DeleteForEveryone {
		resp.DeleteForEveryone = true
		return resp
	}
	resp.Text = m.Text
	resp.Image = m.ImageURL
	return resp
}

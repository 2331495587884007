package message

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Message represents a direct message between two users
type Message struct {
	ID         uuid.UUID `db:"id"`
	SenderID   uuid.UUID `db:"sender_id"`
	ReceiverID uuid.UUID `db:"receiver_id"`
	Text       string    `db:"text"`
	ImageURL   string    `db:"image_url"`
	// DeletedFor holds the ids of participants who deleted the message for
	// themselves only.
	DeletedFor        pq.StringArray `db:"deleted_for"`
	DeleteForEveryone bool           `db:"delete_for_everyone"`
	CreatedAt         time.Time      `db:"created_at"`
}

// IsParticipant reports whether the user is the sender or the receiver.
func (m *Message) IsParticipant(userID uuid.UUID) bool {
	return m.SenderID == userID || m.ReceiverID == userID
}

// HiddenFor reports whether the user deleted the message for themselves.
func (m *Message) HiddenFor(userID uuid.UUID) bool {
	id := userID.String()
	for _, v := range m.DeletedFor {
		if v == id {
			return true
		}
	}
	return false
}

package realtime

import (
	"time"

	"github.com/google/uuid"
)

// EventType names an outbound WebSocket event. The set is closed: every
// event the server pushes is enumerated here with a fixed payload shape.
type EventType string

const (
	EventOnlineUsers           EventType = "getOnlineUsers"
	EventNewMessage            EventType = "newMessage"
	EventMessageDeleted        EventType = "messageDeleted"
	EventUserTyping            EventType = "userTyping"
	EventFriendRequestReceived EventType = "friendRequestReceived"
	EventFriendRequestResponse EventType = "friendRequestResponseReceived"
	EventFriendRemoved         EventType = "friendRemoved"
	EventUserBlocked           EventType = "userBlocked"
)

// Envelope is the wire format for every outbound event.
type Envelope struct {
	Event EventType   `json:"event"`
	Data  interface{} `json:"data,omitempty"`
}

// MessageDeletedPayload is pushed when a message is deleted.
type MessageDeletedPayload struct {
	MessageID         uuid.UUID `json:"message_id"`
	DeleteForEveryone bool      `json:"delete_for_everyone"`
}

// TypingPayload is pushed to the receiver of a typing indicator.
type TypingPayload struct {
	SenderID uuid.UUID `json:"sender_id"`
	IsTyping bool      `json:"is_typing"`
}

// FriendRequestPayload is pushed to the recipient of a new friend request.
type FriendRequestPayload struct {
	RequestID uuid.UUID   `json:"request_id"`
	From      UserPayload `json:"from"`
	Status    string      `json:"status"`
	CreatedAt time.Time   `json:"created_at"`
}

// FriendRequestResponsePayload is pushed to the original sender when the
// recipient accepts or rejects.
type FriendRequestResponsePayload struct {
	RequestID uuid.UUID   `json:"request_id"`
	From      UserPayload `json:"from"`
	Status    string      `json:"status"`
}

// FriendshipChangedPayload is pushed on friend removal and on block.
type FriendshipChangedPayload struct {
	UserID uuid.UUID `json:"user_id"`
}

// UserPayload carries the public profile fields embedded in events.
type UserPayload struct {
	ID         uuid.UUID `json:"id"`
	FullName   string    `json:"full_name"`
	Email      string    `json:"email"`
	ProfilePic string    `json:"profile_pic,omitempty"`
}

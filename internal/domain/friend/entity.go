package friend

import (
	"time"

	"github.com/google/uuid"
)

// RequestStatus is the lifecycle state of a friend request
type RequestStatus string

const (
	StatusPending  RequestStatus = "pending"
	StatusAccepted RequestStatus = "accepted"
	StatusRejected RequestStatus = "rejected"
)

// FriendRequest represents a pending or resolved friend request
type FriendRequest struct {
	ID          uuid.UUID     `db:"id"`
	SenderID    uuid.UUID     `db:"sender_id"`
	RecipientID uuid.UUID     `db:"recipient_id"`
	Status      RequestStatus `db:"status"`
	CreatedAt   time.Time     `db:"created_at"`
	UpdatedAt   time.Time     `db:"updated_at"`
}

// IsPending reports whether the request can still be accepted or rejected.
func (r *FriendRequest) IsPending() bool {
	return r.Status == StatusPending
}

// RequestWithSender is a friend request joined with the sender's profile.
type RequestWithSender struct {
	FriendRequest
	SenderName  string `db:"sender_name"`
	SenderEmail string `db:"sender_email"`
	SenderPic   string `db:"sender_pic"`
}

package friend

import (
	"time"

	"github.com/google/uuid"

	"github.com/pingline/pingline-api/internal/domain/user"
)

// RespondRequest is the body for accepting or rejecting a friend request
type RespondRequest struct {
	Action string `json:"action" validate:"required,request_action"`
}

// SearchResult is a matched user annotated with the viewer's relationship to them
type SearchResult struct {
	User              *user.PublicProfile `json:"user"`
	IsFriend          bool                `json:"is_friend"`
	HasSentRequest    bool                `json:"has_sent_request"`
	HasPendingRequest bool                `json:"has_pending_request"`
}

// RequestResponse is the API shape of a friend request
type RequestResponse struct {
	ID        uuid.UUID           `json:"id"`
	Sender    *user.PublicProfile `json:"sender"`
	Status    RequestStatus       `json:"status"`
	CreatedAt time.Time           `json:"created_at"`
}

func toRequestResponse(req *FriendRequest, sender *user.PublicProfile) *RequestResponse {
	return &RequestResponse{
		ID:        req.ID,
		Sender:    sender,
		Status:    req.Status,
		CreatedAt: req.CreatedAt,
	}
}

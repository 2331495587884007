package friend

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pingline/pingline-api/internal/middleware"
	"github.com/pingline/pingline-api/internal/pkg/response"
	"github.com/pingline/pingline-api/internal/pkg/validator"
)

// Handler handles friend HTTP requests
type Handler struct {
	service Service
}

// NewHandler creates new friend handler
func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// Search handles GET /users/search?email=
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	viewerID := middleware.GetUserID(r.Context())

	email := r.URL.Query().Get("email")
	if email == "" {
		response.BadRequest(w, "email query parameter is required")
		return
	}

	result, err := h.service.Search(r.Context(), viewerID, email)
	if err != nil {
		h.handleError(w, err)
		return
	}

	response.OK(w, result)
}

// SendRequest handles POST /friends/requests/{userId}
func (h *Handler) SendRequest(w http.ResponseWriter, r *http.Request) {
	senderID := middleware.GetUserID(r.Context())

	recipientID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid user ID")
		return
	}

	result, err := h.service.SendRequest(r.Context(), senderID, recipientID)
	if err != nil {
		h.handleError(w, err)
		return
	}

	response.Created(w, result)
}

// RespondToRequest handles PUT /friends/requests/{requestId}
func (h *Handler) RespondToRequest(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	requestID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid request ID")
		return
	}

	var req RespondRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	if errs := validator.Validate(req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	result, err := h.service.RespondToRequest(r.Context(), userID, requestID, req.Action)
	if err != nil {
		h.handleError(w, err)
		return
	}

	response.OK(w, result)
}

// ListPendingRequests handles GET /friends/requests
func (h *Handler) ListPendingRequests(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	requests, err := h.service.ListPendingRequests(r.Context(), userID)
	if err != nil {
		h.handleError(w, err)
		return
	}

	response.OK(w, requests)
}

// RemoveFriend handles DELETE /friends/{userId}
func (h *Handler) RemoveFriend(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	friendID, err := uuid.Parse(chi.URLParam(r, "userId"))
	if err != nil {
		response.BadRequest(w, "Invalid user ID")
		return
	}

	if err := h.service.RemoveFriend(r.Context(), userID, friendID); err != nil {
		h.handleError(w, err)
		return
	}

	response.NoContent(w)
}

// BlockUser handles POST /friends/block/{userId}
func (h *Handler) BlockUser(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	targetID, err := uuid.Parse(chi.URLParam(r, "userId"))
	if err != nil {
		response.BadRequest(w, "Invalid user ID")
		return
	}

	if err := h.service.BlockUser(r.Context(), userID, targetID); err != nil {
		h.handleError(w, err)
		return
	}

	response.NoContent(w)
}

// UnblockUser handles DELETE /friends/block/{userId}
func (h *Handler) UnblockUser(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	targetID, err := uuid.Parse(chi.URLParam(r, "userId"))
	if err != nil {
		response.BadRequest(w, "Invalid user ID")
		return
	}

	if err := h.service.UnblockUser(r.Context(), userID, targetID); err != nil {
		h.handleError(w, err)
		return
	}

	response.NoContent(w)
}

// ListBlocked handles GET /friends/blocked
func (h *Handler) ListBlocked(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	blocked, err := h.service.ListBlocked(r.Context(), userID)
	if err != nil {
		h.handleError(w, err)
		return
	}

	response.OK(w, blocked)
}

func (h *Handler) handleError(w http.ResponseWriter, err error) {
	switch err {
	case ErrUserNotFound:
		response.NotFound(w, "User not found")
	case ErrRequestNotFound:
		response.NotFound(w, "Friend request not found")
	case ErrBlocked:
		response.Forbidden(w, "This action is not allowed between these users")
	case ErrNotRequestRecipient:
		response.Forbidden(w, "Only the recipient can respond to this request")
	case ErrAlreadyFriends:
		response.Conflict(w, "You are already friends with this user")
	case ErrNotFriends:
		response.Conflict(w, "You are not friends with this user")
	case ErrRequestAlreadyPending:
		response.Conflict(w, "A pending friend request already exists")
	case ErrRequestAlreadyHandled:
		response.Conflict(w, "This friend request has already been handled")
	case ErrAlreadyBlocked:
		response.Conflict(w, "You have already blocked this user")
	case ErrNotBlocked:
		response.Conflict(w, "You have not blocked this user")
	case ErrSelfAction:
		response.BadRequest(w, "You cannot perform this action on yourself")
	case ErrInvalidAction:
		response.BadRequest(w, "Action must be accept or reject")
	default:
		response.InternalError(w)
	}
}

package friend

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/pingline/pingline-api/internal/domain/user"
	"github.com/pingline/pingline-api/internal/realtime"
)

// UserDirectory is the subset of the user repository the friend service needs.
type UserDirectory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*user.User, error)
	SearchByEmail(ctx context.Context, pattern string, excludeID uuid.UUID) (*user.User, error)
}

// Service defines friend business logic interface
type Service interface {
	Search(ctx context.Context, viewerID uuid.UUID, email string) (*SearchResult, error)
	SendRequest(ctx context.Context, senderID, recipientID uuid.UUID) (*RequestResponse, error)
	RespondToRequest(ctx context.Context, userID, requestID uuid.UUID, action string) (*RequestResponse, error)
	ListPendingRequests(ctx context.Context, userID uuid.UUID) ([]*RequestResponse, error)
	RemoveFriend(ctx context.Context, userID, friendID uuid.UUID) error
	BlockUser(ctx context.Context, userID, targetID uuid.UUID) error
	UnblockUser(ctx context.Context, userID, targetID uuid.UUID) error
	ListBlocked(ctx context.Context, userID uuid.UUID) ([]*user.PublicProfile, error)
	Relationship(ctx context.Context, viewerID, otherID uuid.UUID) (*Snapshot, error)
	Partners(ctx context.Context, userID uuid.UUID) ([]*user.PublicProfile, error)
}

// service implements Service
type service struct {
	repo  Repository
	users UserDirectory
	hub   *realtime.Hub
}

// NewService creates new friend service
func NewService(repo Repository, users UserDirectory, hub *realtime.Hub) Service {
	return &service{
		repo:  repo,
		users: users,
		hub:   hub,
	}
}

// Search finds a user by email pattern and annotates the result with the
// viewer's relationship to them. A block in either direction refuses the
// lookup instead of leaking the profile.
func (s *service) Search(ctx context.Context, viewerID uuid.UUID, email string) (*SearchResult, error) {
	found, err := s.users.SearchByEmail(ctx, email, viewerID)
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, ErrUserNotFound
	}

	snap, err := s.repo.LoadSnapshot(ctx, viewerID, found.ID)
	if err != nil {
		return nil, err
	}
	if snap.BlockedEitherWay() {
		return nil, ErrBlocked
	}

	return &SearchResult{
		User:              found.Public(),
		IsFriend:          snap.Friends,
		HasSentRequest:    snap.PendingOutgoing,
		HasPendingRequest: snap.PendingIncoming,
	}, nil
}

// SendRequest creates a pending friend request and notifies the recipient.
func (s *service) SendRequest(ctx context.Context, senderID, recipientID uuid.UUID) (*RequestResponse, error) {
	if senderID == recipientID {
		return nil, ErrSelfAction
	}

	recipient, err := s.users.GetByID(ctx, recipientID)
	if err != nil {
		return nil, err
	}
	if recipient == nil {
		return nil, ErrUserNotFound
	}

	snap, err := s.repo.LoadSnapshot(ctx, senderID, recipientID)
	if err != nil {
		return nil, err
	}

	switch {
	case snap.BlockedEitherWay():
		return nil, ErrBlocked
	case snap.Friends:
		return nil, ErrAlreadyFriends
	case snap.HasPendingRequest():
		return nil, ErrRequestAlreadyPending
	}

	req := &FriendRequest{
		ID:          uuid.New(),
		SenderID:    senderID,
		RecipientID: recipientID,
		Status:      StatusPending,
	}
	if err := s.repo.CreateRequest(ctx, req); err != nil {
		return nil, err
	}

	stored, err := s.repo.GetRequestByID(ctx, req.ID)
	if err == nil && stored != nil {
		req = stored
	}

	sender, err := s.users.GetByID(ctx, senderID)
	if err != nil {
		return nil, err
	}

	if s.hub != nil && sender != nil {
		s.hub.Emit(recipientID, realtime.EventFriendRequestReceived, realtime.FriendRequestPayload{
			RequestID: req.ID,
			From:      toUserPayload(sender),
			Status:    string(StatusPending),
			CreatedAt: req.CreatedAt,
		})
	}

	log.Info().
		Str("request_id", req.ID.String()).
		Str("sender_id", senderID.String()).
		Str("recipient_id", recipientID.String()).
		Msg("Friend request sent")

	var senderProfile *user.PublicProfile
	if sender != nil {
		senderProfile = sender.Public()
	}
	return toRequestResponse(req, senderProfile), nil
}

// RespondToRequest accepts or rejects a pending request. Only the recipient
// may respond, a request can be resolved once, and acceptance re-checks
// blocks so a block placed after the request cannot be bypassed.
func (s *service) RespondToRequest(ctx context.Context, userID, requestID uuid.UUID, action string) (*RequestResponse, error) {
	var status RequestStatus
	switch action {
	case "accept":
		status = StatusAccepted
	case "reject":
		status = StatusRejected
	default:
		return nil, ErrInvalidAction
	}

	req, err := s.repo.GetRequestByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, ErrRequestNotFound
	}
	if req.RecipientID != userID {
		return nil, ErrNotRequestRecipient
	}
	if !req.IsPending() {
		return nil, ErrRequestAlreadyHandled
	}

	if status == StatusAccepted {
		snap, err := s.repo.LoadSnapshot(ctx, userID, req.SenderID)
		if err != nil {
			return nil, err
		}
		if snap.BlockedEitherWay() {
			return nil, ErrBlocked
		}

		if err := s.repo.AddFriendship(ctx, req.SenderID, req.RecipientID); err != nil {
			return nil, err
		}
	}

	if err := s.repo.UpdateRequestStatus(ctx, requestID, status); err != nil {
		return nil, err
	}
	req.Status = status

	responder, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if s.hub != nil && responder != nil {
		s.hub.Emit(req.SenderID, realtime.EventFriendRequestResponse, realtime.FriendRequestResponsePayload{
			RequestID: req.ID,
			From:      toUserPayload(responder),
			Status:    string(status),
		})
	}

	log.Info().
		Str("request_id", requestID.String()).
		Str("status", string(status)).
		Msg("Friend request resolved")

	var responderProfile *user.PublicProfile
	if responder != nil {
		responderProfile = responder.Public()
	}
	return toRequestResponse(req, responderProfile), nil
}

// ListPendingRequests returns requests awaiting the user's response.
func (s *service) ListPendingRequests(ctx context.Context, userID uuid.UUID) ([]*RequestResponse, error) {
	rows, err := s.repo.ListPendingForRecipient(ctx, userID)
	if err != nil {
		return nil, err
	}

	result := make([]*RequestResponse, 0, len(rows))
	for _, row := range rows {
		result = append(result, &RequestResponse{
			ID: row.ID,
			Sender: &user.PublicProfile{
				ID:         row.SenderID,
				FullName:   row.SenderName,
				Email:      row.SenderEmail,
				ProfilePic: row.SenderPic,
			},
			Status:    row.Status,
			CreatedAt: row.CreatedAt,
		})
	}

	return result, nil
}

// RemoveFriend severs an existing friendship and notifies the removed user.
func (s *service) RemoveFriend(ctx context.Context, userID, friendID uuid.UUID) error {
	if userID == friendID {
		return ErrSelfAction
	}

	snap, err := s.repo.LoadSnapshot(ctx, userID, friendID)
	if err != nil {
		return err
	}
	if !snap.Friends {
		return ErrNotFriends
	}

	if err := s.repo.RemoveFriendship(ctx, userID, friendID); err != nil {
		return err
	}

	if s.hub != nil {
		s.hub.Emit(friendID, realtime.EventFriendRemoved, realtime.FriendshipChangedPayload{
			UserID: userID,
		})
	}

	return nil
}

// BlockUser blocks the target. Blocking removes any friendship in the same
// operation and drops pending requests in both directions.
func (s *service) BlockUser(ctx context.Context, userID, targetID uuid.UUID) error {
	if userID == targetID {
		return ErrSelfAction
	}

	target, err := s.users.GetByID(ctx, targetID)
	if err != nil {
		return err
	}
	if target == nil {
		return ErrUserNotFound
	}

	snap, err := s.repo.LoadSnapshot(ctx, userID, targetID)
	if err != nil {
		return err
	}
	if snap.ViewerBlocked {
		return ErrAlreadyBlocked
	}

	if snap.Friends {
		if err := s.repo.RemoveFriendship(ctx, userID, targetID); err != nil {
			return err
		}
	}
	if err := s.repo.DeletePendingBetween(ctx, userID, targetID); err != nil {
		return err
	}
	if err := s.repo.CreateBlock(ctx, userID, targetID); err != nil {
		return err
	}

	if s.hub != nil {
		s.hub.Emit(targetID, realtime.EventUserBlocked, realtime.FriendshipChangedPayload{
			UserID: userID,
		})
	}

	log.Info().
		Str("blocker_id", userID.String()).
		Str("blocked_id", targetID.String()).
		Msg("User blocked")

	return nil
}

// UnblockUser removes the user's own block on the target. It does not
// restore friendship.
func (s *service) UnblockUser(ctx context.Context, userID, targetID uuid.UUID) error {
	if userID == targetID {
		return ErrSelfAction
	}

	removed, err := s.repo.DeleteBlock(ctx, userID, targetID)
	if err != nil {
		return err
	}
	if !removed {
		return ErrNotBlocked
	}

	return nil
}

// ListBlocked returns the profiles the user has blocked.
func (s *service) ListBlocked(ctx context.Context, userID uuid.UUID) ([]*user.PublicProfile, error) {
	users, err := s.repo.ListBlocked(ctx, userID)
	if err != nil {
		return nil, err
	}

	return toProfiles(users), nil
}

// Relationship exposes the pair snapshot for other domains gating on it.
func (s *service) Relationship(ctx context.Context, viewerID, otherID uuid.UUID) (*Snapshot, error) {
	return s.repo.LoadSnapshot(ctx, viewerID, otherID)
}

// Partners returns the user's friends excluding anyone blocked in either
// direction; the set of people the user can currently message.
func (s *service) Partners(ctx context.Context, userID uuid.UUID) ([]*user.PublicProfile, error) {
	users, err := s.repo.ListPartners(ctx, userID)
	if err != nil {
		return nil, err
	}

	return toProfiles(users), nil
}

func toProfiles(users []*user.User) []*user.PublicProfile {
	profiles := make([]*user.PublicProfile, 0, len(users))
	for _, u := range users {
		profiles = append(profiles, u.Public())
	}
	return profiles
}

func toUserPayload(u *user.User) realtime.UserPayload {
	return realtime.UserPayload{
		ID:         u.ID,
		FullName:   u.FullName,
		Email:      u.Email,
		ProfilePic: u.ProfilePic,
	}
}

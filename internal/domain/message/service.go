package message

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/pingline/pingline-api/internal/domain/friend"
	"github.com/pingline/pingline-api/internal/domain/user"
	"github.com/pingline/pingline-api/internal/pkg/upload"
	"github.com/pingline/pingline-api/internal/realtime"
)

// FriendGraph is the relationship view the message service gates on.
// Implemented by the friend service.
type FriendGraph interface {
	Relationship(ctx context.Context, viewerID, otherID uuid.UUID) (*friend.Snapshot, error)
	Partners(ctx context.Context, userID uuid.UUID) ([]*user.PublicProfile, error)
}

// UserDirectory is the subset of the user repository the message service needs.
type UserDirectory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*user.User, error)
}

// Uploader stores an image payload and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, ownerID uuid.UUID, payload string, kind upload.Kind) (string, error)
}

// Service defines message business logic interface
type Service interface {
	SendMessage(ctx context.Context, senderID, receiverID uuid.UUID, req *SendMessageRequest) (*MessageResponse, error)
	GetMessages(ctx context.Context, viewerID, otherID uuid.UUID) ([]*MessageResponse, error)
	DeleteMessage(ctx context.Context, userID, messageID uuid.UUID, forEveryone bool) error
	Partners(ctx context.Context, userID uuid.UUID) ([]*user.PublicProfile, error)

	// ForwardMessage relays an ephemeral message over the realtime channel
	// without persisting it. It runs the same gate as SendMessage.
	ForwardMessage(ctx context.Context, senderID, receiverID uuid.UUID, text, image string) error
	// ForwardTyping relays a typing indicator to the receiver.
	ForwardTyping(ctx context.Context, senderID, receiverID uuid.UUID, isTyping bool) error
}

// service implements Service
type service struct {
	repo     Repository
	users    UserDirectory
	friends  FriendGraph
	uploader Uploader
	limiter  *RateLimiter
	hub      *realtime.Hub
}

// NewService creates new message service
func NewService(repo Repository, users UserDirectory, friends FriendGraph, uploader Uploader, limiter *RateLimiter, hub *realtime.Hub) Service {
	return &service{
		repo:     repo,
		users:    users,
		friends:  friends,
		uploader: uploader,
		limiter:  limiter,
		hub:      hub,
	}
}

// checkGate verifies the pair may exchange messages. Blocks in either
// direction take precedence over the friendship check.
func (s *service) checkGate(ctx context.Context, senderID, receiverID uuid.UUID) error {
	snap, err := s.friends.Relationship(ctx, senderID, receiverID)
	if err != nil {
		return err
	}
	if snap.BlockedEitherWay() {
		return ErrBlocked
	}
	if !snap.Friends {
		return ErrNotFriends
	}
	return nil
}

// SendMessage persists a message and routes it to both participants.
func (s *service) SendMessage(ctx context.Context, senderID, receiverID uuid.UUID, req *SendMessageRequest) (*MessageResponse, error) {
	if req.Text == "" && req.Image == "" {
		return nil, ErrEmptyMessage
	}
	if senderID == receiverID {
		return nil, ErrUserNotFound
	}

	receiver, err := s.users.GetByID(ctx, receiverID)
	if err != nil {
		return nil, err
	}
	if receiver == nil {
		return nil, ErrUserNotFound
	}

	if err := s.checkGate(ctx, senderID, receiverID); err != nil {
		return nil, err
	}

	if !s.limiter.Allow(ctx, senderID) {
		return nil, ErrRateLimited
	}

	var imageURL string
	if req.Image != "" {
		imageURL, err = s.uploader.Upload(ctx, senderID, req.Image, upload.KindMessage)
		if err != nil {
			return nil, err
		}
	}

	msg := &Message{
		ID:         uuid.New(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Text:       req.Text,
		ImageURL:   imageURL,
	}
	if err := s.repo.Create(ctx, msg); err != nil {
		return nil, err
	}

	stored, err := s.repo.GetByID(ctx, msg.ID)
	if err == nil && stored != nil {
		msg = stored
	}

	resp := toMessageResponse(msg)
	if s.hub != nil {
		s.hub.EmitToEach(realtime.EventNewMessage, resp, receiverID, senderID)
	}

	log.Debug().
		Str("message_id", msg.ID.String()).
		Str("sender_id", senderID.String()).
		Str("receiver_id", receiverID.String()).
		Msg("Message sent")

	return resp, nil
}

// GetMessages returns the conversation with the other user, oldest first.
// Messages the viewer deleted for themselves are omitted; messages deleted
// for everyone come back redacted with the flag set.
func (s *service) GetMessages(ctx context.Context, viewerID, otherID uuid.UUID) ([]*MessageResponse, error) {
	other, err := s.users.GetByID(ctx, otherID)
	if err != nil {
		return nil, err
	}
	if other == nil {
		return nil, ErrUserNotFound
	}

	if err := s.checkGate(ctx, viewerID, otherID); err != nil {
		return nil, err
	}

	messages, err := s.repo.ListBetween(ctx, viewerID, otherID)
	if err != nil {
		return nil, err
	}

	result := make([]*MessageResponse, 0, len(messages))
	for _, msg := range messages {
		result = append(result, toMessageResponse(msg))
	}

	return result, nil
}

// DeleteMessage deletes a message in one of two scopes. "For me" hides it
// from the caller only and can be done by either participant; "for everyone"
// is sender-only and terminal.
func (s *service) DeleteMessage(ctx context.Context, userID, messageID uuid.UUID, forEveryone bool) error {
	msg, err := s.repo.GetByID(ctx, messageID)
	if err != nil {
		return err
	}
	if msg == nil {
		return ErrMessageNotFound
	}
	if !msg.IsParticipant(userID) {
		return ErrNotParticipant
	}

	if forEveryone {
		if msg.SenderID != userID {
			return ErrNotSender
		}
		if msg.DeleteForEveryone {
			return ErrAlreadyDeleted
		}

		if err := s.repo.MarkDeletedForEveryone(ctx, messageID, msg.SenderID, msg.ReceiverID); err != nil {
			return err
		}

		if s.hub != nil {
			s.hub.EmitToEach(realtime.EventMessageDeleted, realtime.MessageDeletedPayload{
				MessageID:         messageID,
				DeleteForEveryone: true,
			}, msg.SenderID, msg.ReceiverID)
		}

		return nil
	}

	if err := s.repo.AddDeletedFor(ctx, messageID, userID); err != nil {
		return err
	}

	if s.hub != nil {
		s.hub.Emit(userID, realtime.EventMessageDeleted, realtime.MessageDeletedPayload{
			MessageID: messageID,
		})
	}

	return nil
}

// Partners returns the users the caller can currently message.
func (s *service) Partners(ctx context.Context, userID uuid.UUID) ([]*user.PublicProfile, error) {
	return s.friends.Partners(ctx, userID)
}

// ForwardMessage relays a message to the receiver without persisting it.
func (s *service) ForwardMessage(ctx context.Context, senderID, receiverID uuid.UUID, text, image string) error {
	if text == "" && image == "" {
		return ErrEmptyMessage
	}
	if senderID == receiverID {
		return ErrUserNotFound
	}

	if err := s.checkGate(ctx, senderID, receiverID); err != nil {
		return err
	}

	if !s.limiter.Allow(ctx, senderID) {
		return ErrRateLimited
	}

	if s.hub != nil {
		s.hub.Emit(receiverID, realtime.EventNewMessage, &MessageResponse{
			ID:         uuid.New(),
			SenderID:   senderID,
			ReceiverID: receiverID,
			Text:       text,
			Image:      image,
			CreatedAt:  time.Now().UTC(),
		})
	}

	return nil
}

// ForwardTyping relays a typing indicator, gated the same way as messages.
func (s *service) ForwardTyping(ctx context.Context, senderID, receiverID uuid.UUID, isTyping bool) error {
	if senderID == receiverID {
		return ErrUserNotFound
	}

	if err := s.checkGate(ctx, senderID, receiverID); err != nil {
		return err
	}

	if s.hub != nil {
		s.hub.Emit(receiverID, realtime.EventUserTyping, realtime.TypingPayload{
			SenderID: senderID,
			IsTyping: isTyping,
		})
	}

	return nil
}

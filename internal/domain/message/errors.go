package message

import "errors"

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrMessageNotFound = errors.New("message not found")
	ErrBlocked         = errors.New("messaging is not allowed between these users")
	ErrNotFriends      = errors.New("users must be friends to exchange messages")
	ErrNotParticipant  = errors.New("user is not a participant of this message")
	ErrNotSender       = errors.New("only the sender can delete a message for everyone")
	ErrAlreadyDeleted  = errors.New("message already deleted for everyone")
	ErrEmptyMessage    = errors.New("message must contain text or an image")
	ErrRateLimited     = errors.New("message rate limit exceeded")
)

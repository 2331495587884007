package friend

import "errors"

var (
	ErrUserNotFound          = errors.New("user not found")
	ErrSelfAction            = errors.New("cannot perform this action on yourself")
	ErrBlocked               = errors.New("action not allowed between these users")
	ErrAlreadyFriends        = errors.New("users are already friends")
	ErrNotFriends            = errors.New("users are not friends")
	ErrRequestAlreadyPending = errors.New("a pending friend request already exists")
	ErrRequestNotFound       = errors.New("friend request not found")
	ErrRequestAlreadyHandled = errors.New("friend request already handled")
	ErrNotRequestRecipient   = errors.New("only the recipient can respond to a friend request")
	ErrAlreadyBlocked        = errors.New("user is already blocked")
	ErrNotBlocked            = errors.New("user is not blocked")
	ErrInvalidAction         = errors.New("action must be accept or reject")
)

package friend

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/pingline/pingline-api/internal/domain/user"
)

// Repository defines relationship data access interface
type Repository interface {
	// LoadSnapshot reads the full relationship state between viewer and other
	// in a single query.
	LoadSnapshot(ctx context.Context, viewerID, otherID uuid.UUID) (*Snapshot, error)

	AddFriendship(ctx context.Context, a, b uuid.UUID) error
	RemoveFriendship(ctx context.Context, a, b uuid.UUID) error
	ListPartners(ctx context.Context, userID uuid.UUID) ([]*user.User, error)

	CreateBlock(ctx context.Context, blockerID, blockedID uuid.UUID) error
	DeleteBlock(ctx context.Context, blockerID, blockedID uuid.UUID) (bool, error)
	ListBlocked(ctx context.Context, blockerID uuid.UUID) ([]*user.User, error)

	CreateRequest(ctx context.Context, req *FriendRequest) error
	GetRequestByID(ctx context.Context, id uuid.UUID) (*FriendRequest, error)
	UpdateRequestStatus(ctx context.Context, id uuid.UUID, status RequestStatus) error
	ListPendingForRecipient(ctx context.Context, recipientID uuid.UUID) ([]*RequestWithSender, error)
	DeletePendingBetween(ctx context.Context, a, b uuid.UUID) error
}

// repository implements Repository
type repository struct {
	db *sqlx.DB
}

// NewRepository creates new friend repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

// LoadSnapshot reads friendship, both block directions and both pending
// request directions at once
func (r *repository) LoadSnapshot(ctx context.Context, viewerID, otherID uuid.UUID) (*Snapshot, error) {
	query := `
		SELECT
			EXISTS(SELECT 1 FROM friendships WHERE user_id = $1 AND friend_id = $2) AS friends,
			EXISTS(SELECT 1 FROM user_blocks WHERE blocker_user_id = $1 AND blocked_user_id = $2) AS viewer_blocked,
			EXISTS(SELECT 1 FROM user_blocks WHERE blocker_user_id = $2 AND blocked_user_id = $1) AS viewer_is_blocked,
			EXISTS(SELECT 1 FROM friend_requests WHERE sender_id = $1 AND recipient_id = $2 AND status = 'pending') AS pending_outgoing,
			EXISTS(SELECT 1 FROM friend_requests WHERE sender_id = $2 AND recipient_id = $1 AND status = 'pending') AS pending_incoming
	`

	var snap Snapshot
	if err := r.db.GetContext(ctx, &snap, query, viewerID, otherID); err != nil {
		return nil, fmt.Errorf("friend repository load snapshot: %w", err)
	}

	return &snap, nil
}

// AddFriendship inserts both symmetric rows; re-adding an existing
// friendship is a no-op
func (r *repository) AddFriendship(ctx context.Context, a, b uuid.UUID) error {
	query := `
		INSERT INTO friendships (user_id, friend_id)
		VALUES ($1, $2), ($2, $1)
		ON CONFLICT DO NOTHING
	`

	_, err := r.db.ExecContext(ctx, query, a, b)
	if err != nil {
		return fmt.Errorf("friend repository add friendship: %w", err)
	}

	return nil
}

// RemoveFriendship deletes both symmetric rows
func (r *repository) RemoveFriendship(ctx context.Context, a, b uuid.UUID) error {
	query := `
		DELETE FROM friendships
		WHERE (user_id = $1 AND friend_id = $2) OR (user_id = $2 AND friend_id = $1)
	`

	_, err := r.db.ExecContext(ctx, query, a, b)
	if err != nil {
		return fmt.Errorf("friend repository remove friendship: %w", err)
	}

	return nil
}

// ListPartners returns the user's friends excluding anyone blocked in
// either direction
func (r *repository) ListPartners(ctx context.Context, userID uuid.UUID) ([]*user.User, error) {
	query := `
		SELECT u.id, u.full_name, u.email, u.profile_pic, u.created_at
		FROM friendships f
		JOIN users u ON u.id = f.friend_id
		WHERE f.user_id = $1
		  AND NOT EXISTS (
			SELECT 1 FROM user_blocks b
			WHERE (b.blocker_user_id = $1 AND b.blocked_user_id = u.id)
			   OR (b.blocker_user_id = u.id AND b.blocked_user_id = $1)
		  )
		ORDER BY u.full_name
	`

	var users []*user.User
	if err := r.db.SelectContext(ctx, &users, query, userID); err != nil {
		return nil, fmt.Errorf("friend repository list partners: %w", err)
	}

	return users, nil
}

// CreateBlock records a one-directional block
func (r *repository) CreateBlock(ctx context.Context, blockerID, blockedID uuid.UUID) error {
	query := `
		INSERT INTO user_blocks (blocker_user_id, blocked_user_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`

	_, err := r.db.ExecContext(ctx, query, blockerID, blockedID)
	if err != nil {
		return fmt.Errorf("friend repository create block: %w", err)
	}

	return nil
}

// DeleteBlock removes a block; returns false when no block existed
func (r *repository) DeleteBlock(ctx context.Context, blockerID, blockedID uuid.UUID) (bool, error) {
	query := `DELETE FROM user_blocks WHERE blocker_user_id = $1 AND blocked_user_id = $2`

	result, err := r.db.ExecContext(ctx, query, blockerID, blockedID)
	if err != nil {
		return false, fmt.Errorf("friend repository delete block: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return affected > 0, nil
}

// ListBlocked returns the profiles the user has blocked
func (r *repository) ListBlocked(ctx context.Context, blockerID uuid.UUID) ([]*user.User, error) {
	query := `
		SELECT u.id, u.full_name, u.email, u.profile_pic, u.created_at
		FROM user_blocks b
		JOIN users u ON u.id = b.blocked_user_id
		WHERE b.blocker_user_id = $1
		ORDER BY b.created_at DESC
	`

	var users []*user.User
	if err := r.db.SelectContext(ctx, &users, query, blockerID); err != nil {
		return nil, fmt.Errorf("friend repository list blocked: %w", err)
	}

	return users, nil
}

// CreateRequest inserts a new friend request
func (r *repository) CreateRequest(ctx context.Context, req *FriendRequest) error {
	query := `
		INSERT INTO friend_requests (id, sender_id, recipient_id, status)
		VALUES ($1, $2, $3, $4)
	`

	_, err := r.db.ExecContext(ctx, query, req.ID, req.SenderID, req.RecipientID, req.Status)
	if err != nil {
		return fmt.Errorf("friend repository create request: %w", err)
	}

	return nil
}

// GetRequestByID returns a request by ID, nil when absent
func (r *repository) GetRequestByID(ctx context.Context, id uuid.UUID) (*FriendRequest, error) {
	query := `
		SELECT id, sender_id, recipient_id, status, created_at, updated_at
		FROM friend_requests
		WHERE id = $1
	`

	var req FriendRequest
	err := r.db.GetContext(ctx, &req, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &req, nil
}

// UpdateRequestStatus moves a request to a terminal status
func (r *repository) UpdateRequestStatus(ctx context.Context, id uuid.UUID, status RequestStatus) error {
	query := `UPDATE friend_requests SET status = $2, updated_at = NOW() WHERE id = $1`

	_, err := r.db.ExecContext(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("friend repository update request status: %w", err)
	}

	return nil
}

// ListPendingForRecipient returns pending requests addressed to the user,
// newest first, joined with the sender profile
func (r *repository) ListPendingForRecipient(ctx context.Context, recipientID uuid.UUID) ([]*RequestWithSender, error) {
	query := `
		SELECT r.id, r.sender_id, r.recipient_id, r.status, r.created_at, r.updated_at,
		       u.full_name AS sender_name, u.email AS sender_email, u.profile_pic AS sender_pic
		FROM friend_requests r
		JOIN users u ON u.id = r.sender_id
		WHERE r.recipient_id = $1 AND r.status = 'pending'
		ORDER BY r.created_at DESC
	`

	var requests []*RequestWithSender
	if err := r.db.SelectContext(ctx, &requests, query, recipientID); err != nil {
		return nil, fmt.Errorf("friend repository list pending: %w", err)
	}

	return requests, nil
}

// DeletePendingBetween drops pending requests in both directions; used when
// one of the pair blocks the other
func (r *repository) DeletePendingBetween(ctx context.Context, a, b uuid.UUID) error {
	query := `
		DELETE FROM friend_requests
		WHERE status = 'pending'
		  AND ((sender_id = $1 AND recipient_id = $2) OR (sender_id = $2 AND recipient_id = $1))
	`

	_, err := r.db.ExecContext(ctx, query, a, b)
	if err != nil {
		return fmt.Errorf("friend repository delete pending: %w", err)
	}

	return nil
}

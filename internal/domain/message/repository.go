package message

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Repository defines message data access interface
type Repository interface {
	Create(ctx context.Context, msg *Message) error
	GetByID(ctx context.Context, id uuid.UUID) (*Message, error)
	// ListBetween returns the conversation between viewer and other in
	// ascending creation order, excluding messages the viewer deleted for
	// themselves.
	ListBetween(ctx context.Context, viewerID, otherID uuid.UUID) ([]*Message, error)
	// AddDeletedFor appends the user to the message's deleted_for set;
	// repeating the call changes nothing.
	AddDeletedFor(ctx context.Context, id uuid.UUID, userID uuid.UUID) error
	// MarkDeletedForEveryone flags the message and hides it from both
	// participants' future reads.
	MarkDeletedForEveryone(ctx context.Context, id uuid.UUID, senderID, receiverID uuid.UUID) error
}

// repository implements Repository
type repository struct {
	db *sqlx.DB
}

// NewRepository creates new message repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

const messageColumns = `id, sender_id, receiver_id, text, image_url, deleted_for, delete_for_everyone, created_at`

// Create persists a new message
func (r *repository) Create(ctx context.Context, msg *Message) error {
	query := `
		INSERT INTO messages (id, sender_id, receiver_id, text, image_url)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.ExecContext(ctx, query,
		msg.ID,
		msg.SenderID,
		msg.ReceiverID,
		msg.Text,
		msg.ImageURL,
	)
	if err != nil {
		return fmt.Errorf("message repository create: %w", err)
	}

	return nil
}

// GetByID returns a message by ID, nil when absent
func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages WHERE id = $1`

	var msg Message
	err := r.db.GetContext(ctx, &msg, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &msg, nil
}

// ListBetween returns the pair's conversation, oldest first, hiding
// messages the viewer deleted for themselves
func (r *repository) ListBetween(ctx context.Context, viewerID, otherID uuid.UUID) ([]*Message, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE ((sender_id = $1 AND receiver_id = $2) OR (sender_id = $2 AND receiver_id = $1))
		  AND NOT (deleted_for @> ARRAY[$3]::text[])
		ORDER BY created_at ASC
	`

	var messages []*Message
	err := r.db.SelectContext(ctx, &messages, query, viewerID, otherID, viewerID.String())
	if err != nil {
		return nil, fmt.Errorf("message repository list between: %w", err)
	}

	return messages, nil
}

// AddDeletedFor appends the user id to deleted_for unless already present
func (r *repository) AddDeletedFor(ctx context.Context, id uuid.UUID, userID uuid.UUID) error {
	query := `
		UPDATE messages
		SET deleted_for = array_append(deleted_for, $2)
		WHERE id = $1 AND NOT (deleted_for @> ARRAY[$2]::text[])
	`

	_, err := r.db.ExecContext(ctx, query, id, userID.String())
	if err != nil {
		return fmt.Errorf("message repository add deleted for: %w", err)
	}

	return nil
}

// MarkDeletedForEveryone flags the message and adds both participants to
// deleted_for, so neither sees it in subsequent reads. The row itself is
// kept; content redaction happens at the response boundary.
func (r *repository) MarkDeletedForEveryone(ctx context.Context, id uuid.UUID, senderID, receiverID uuid.UUID) error {
	query := `
		UPDATE messages
		SET delete_for_everyone = TRUE,
		    deleted_for = ARRAY(
			SELECT DISTINCT v FROM unnest(deleted_for || ARRAY[$2, $3]::text[]) AS v
		    )
		WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query, id, senderID.String(), receiverID.String())
	if err != nil {
		return fmt.Errorf("message repository mark deleted for everyone: %w", err)
	}

	return nil
}

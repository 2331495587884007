package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Repository defines user data access interface
type Repository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	// SearchByEmail finds a single user whose email matches the pattern
	// (case-insensitive substring), excluding excludeID.
	SearchByEmail(ctx context.Context, pattern string, excludeID uuid.UUID) (*User, error)
	UpdateProfilePic(ctx context.Context, id uuid.UUID, profilePic string) error
}

// repository implements Repository
type repository struct {
	db *sqlx.DB
}

// NewRepository creates new user repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

const userColumns = `id, full_name, email, password_hash, profile_pic, created_at, updated_at`

// Create creates a new user
func (r *repository) Create(ctx context.Context, user *User) error {
	query := `
		INSERT INTO users (id, full_name, email, password_hash, profile_pic)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.ExecContext(ctx, query,
		user.ID,
		user.FullName,
		user.Email,
		user.PasswordHash,
		user.ProfilePic,
	)
	if err != nil {
		return fmt.Errorf("user repository create: %w", err)
	}

	return nil
}

// GetByID returns user by ID, nil when absent
func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	var user User
	err := r.db.GetContext(ctx, &user, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &user, nil
}

// GetByEmail returns user by email, nil when absent
func (r *repository) GetByEmail(ctx context.Context, email string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	var user User
	err := r.db.GetContext(ctx, &user, query, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &user, nil
}

// SearchByEmail finds one user matching the email pattern, excluding self
func (r *repository) SearchByEmail(ctx context.Context, pattern string, excludeID uuid.UUID) (*User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE email ILIKE '%' || $1 || '%' AND id <> $2
		ORDER BY email
		LIMIT 1
	`

	var user User
	err := r.db.GetContext(ctx, &user, query, pattern, excludeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &user, nil
}

// UpdateProfilePic updates the avatar URL
func (r *repository) UpdateProfilePic(ctx context.Context, id uuid.UUID, profilePic string) error {
	query := `UPDATE users SET profile_pic = $2, updated_at = NOW() WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id, profilePic)
	return err
}

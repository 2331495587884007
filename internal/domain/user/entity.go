package user

import (
	"time"

	"github.com/google/uuid"
)

// User represents a user account
type User struct {
	ID           uuid.UUID `db:"id"`
	FullName     string    `db:"full_name"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	ProfilePic   string    `db:"profile_pic"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// PublicProfile is the externally visible subset of a user record.
type PublicProfile struct {
	ID         uuid.UUID `json:"id"`
	FullName   string    `json:"full_name"`
	Email      string    `json:"email"`
	ProfilePic string    `json:"profile_pic,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Public returns the public view of the user.
func (u *User) Public() *PublicProfile {
	return &PublicProfile{
		ID:         u.ID,
		FullName:   u.FullName,
		Email:      u.Email,
		ProfilePic: u.ProfilePic,
		CreatedAt:  u.CreatedAt,
	}
}

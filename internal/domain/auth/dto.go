package auth

import (
	"github.com/pingline/pingline-api/internal/domain/user"
)

// SignupRequest is the body for POST /auth/signup
type SignupRequest struct {
	FullName string `json:"full_name" validate:"required,min=2,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

// LoginRequest is the body for POST /auth/login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest is the body for POST /auth/refresh
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// UpdateProfileRequest is the body for PUT /auth/profile. ProfilePic is a
// base64 image payload, optionally a data: URI.
type UpdateProfileRequest struct {
	ProfilePic string `json:"profile_pic" validate:"required"`
}

// AuthResponse is returned on signup, login and refresh
type AuthResponse struct {
	User         *user.PublicProfile `json:"user"`
	AccessToken  string              `json:"access_token"`
	RefreshToken string              `json:"refresh_token"`
}

package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/pingline/pingline-api/internal/domain/user"
	"github.com/pingline/pingline-api/internal/pkg/jwt"
	"github.com/pingline/pingline-api/internal/pkg/password"
	"github.com/pingline/pingline-api/internal/pkg/upload"
)

// Uploader stores an avatar payload and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, ownerID uuid.UUID, payload string, kind upload.Kind) (string, error)
}

// Service defines auth business logic interface
type Service interface {
	Signup(ctx context.Context, req *SignupRequest) (*AuthResponse, error)
	Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*AuthResponse, error)
	Logout(ctx context.Context, refreshToken string) error
	Me(ctx context.Context, userID uuid.UUID) (*user.PublicProfile, error)
	UpdateProfilePic(ctx context.Context, userID uuid.UUID, payload string) (*user.PublicProfile, error)
}

// service implements Service
type service struct {
	users    user.Repository
	jwt      *jwt.Service
	redis    *redis.Client
	uploader Uploader
}

// NewService creates new auth service. The redis client may be nil; refresh
// tokens then validate statelessly without rotation tracking.
func NewService(users user.Repository, jwtService *jwt.Service, redisClient *redis.Client, uploader Uploader) Service {
	return &service{
		users:    users,
		jwt:      jwtService,
		redis:    redisClient,
		uploader: uploader,
	}
}

// Signup registers a new user and issues a token pair.
func (s *service) Signup(ctx context.Context, req *SignupRequest) (*AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailAlreadyExists
	}

	hash, err := password.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &user.User{
		ID:           uuid.New(),
		FullName:     strings.TrimSpace(req.FullName),
		Email:        email,
		PasswordHash: hash,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}

	log.Info().Str("user_id", u.ID.String()).Msg("User registered")

	return s.issueTokens(ctx, u)
}

// Login verifies credentials and issues a token pair.
func (s *service) Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if u == nil || !password.Verify(req.Password, u.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	return s.issueTokens(ctx, u)
}

// Refresh rotates a refresh token: the presented token is validated against
// the stored hash, revoked, and a fresh pair is issued.
func (s *service) Refresh(ctx context.Context, refreshToken string) (*AuthResponse, error) {
	claims, err := s.jwt.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, ErrInvalidRefreshToken
	}

	if s.redis != nil {
		key := refreshKey(claims.ID)
		stored, err := s.redis.Get(ctx, key).Result()
		if err == redis.Nil || (err == nil && stored != jwt.HashRefreshToken(refreshToken)) {
			return nil, ErrInvalidRefreshToken
		}
		if err != nil && err != redis.Nil {
			return nil, err
		}
		if err := s.redis.Del(ctx, key).Err(); err != nil {
			log.Warn().Err(err).Msg("Failed to revoke refresh token")
		}
	}

	u, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrInvalidRefreshToken
	}

	return s.issueTokens(ctx, u)
}

// Logout revokes the presented refresh token. Unknown tokens are ignored.
func (s *service) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" || s.redis == nil {
		return nil
	}

	claims, err := s.jwt.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil
	}

	if err := s.redis.Del(ctx, refreshKey(claims.ID)).Err(); err != nil {
		log.Warn().Err(err).Msg("Failed to revoke refresh token on logout")
	}

	return nil
}

// Me returns the authenticated user's profile.
func (s *service) Me(ctx context.Context, userID uuid.UUID) (*user.PublicProfile, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrUserNotFound
	}

	return u.Public(), nil
}

// UpdateProfilePic runs the avatar through the upload pipeline and stores
// the resulting URL.
func (s *service) UpdateProfilePic(ctx context.Context, userID uuid.UUID, payload string) (*user.PublicProfile, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrUserNotFound
	}

	url, err := s.uploader.Upload(ctx, userID, payload, upload.KindAvatar)
	if err != nil {
		return nil, err
	}

	if err := s.users.UpdateProfilePic(ctx, userID, url); err != nil {
		return nil, err
	}

	u.ProfilePic = url
	return u.Public(), nil
}

func (s *service) issueTokens(ctx context.Context, u *user.User) (*AuthResponse, error) {
	accessToken, err := s.jwt.GenerateAccessToken(u.ID)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}

	refreshToken, jti, expiresAt, err := s.jwt.GenerateRefreshToken(u.ID)
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}

	if s.redis != nil {
		ttl := time.Until(expiresAt)
		if err := s.redis.Set(ctx, refreshKey(jti), jwt.HashRefreshToken(refreshToken), ttl).Err(); err != nil {
			log.Warn().Err(err).Msg("Failed to store refresh token")
		}
	}

	return &AuthResponse{
		User:         u.Public(),
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

func refreshKey(jti string) string {
	return "refresh:" + jti
}

package auth

import (
	"errors"
	"net/http"
	"time"

	"github.com/pingline/pingline-api/internal/middleware"
	"github.com/pingline/pingline-api/internal/pkg/response"
	"github.com/pingline/pingline-api/internal/pkg/upload"
	"github.com/pingline/pingline-api/internal/pkg/validator"
)

// Handler handles auth HTTP requests
type Handler struct {
	service   Service
	accessTTL time.Duration
	secure    bool
}

// NewHandler creates new auth handler. secure controls the auth cookie's
// Secure flag and should be true in production.
func NewHandler(service Service, accessTTL time.Duration, secure bool) *Handler {
	return &Handler{
		service:   service,
		accessTTL: accessTTL,
		secure:    secure,
	}
}

// Signup handles POST /auth/signup
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	if errs := validator.Validate(req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	result, err := h.service.Signup(r.Context(), &req)
	if err != nil {
		h.handleError(w, err)
		return
	}

	h.setAuthCookie(w, result.AccessToken)
	response.Created(w, result)
}

// Login handles POST /auth/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	if errs := validator.Validate(req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	result, err := h.service.Login(r.Context(), &req)
	if err != nil {
		h.handleError(w, err)
		return
	}

	h.setAuthCookie(w, result.AccessToken)
	response.OK(w, result)
}

// Refresh handles POST /auth/refresh
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	if errs := validator.Validate(req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	result, err := h.service.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		h.handleError(w, err)
		return
	}

	h.setAuthCookie(w, result.AccessToken)
	response.OK(w, result)
}

// Logout handles POST /auth/logout. The refresh token is optional; the auth
// cookie is always cleared.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	_ = response.DecodeJSON(r.Body, &req)

	if err := h.service.Logout(r.Context(), req.RefreshToken); err != nil {
		response.InternalError(w)
		return
	}

	h.clearAuthCookie(w)
	response.NoContent(w)
}

// Me handles GET /auth/me
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	profile, err := h.service.Me(r.Context(), userID)
	if err != nil {
		h.handleError(w, err)
		return
	}

	response.OK(w, profile)
}

// UpdateProfile handles PUT /auth/profile
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req UpdateProfileRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	if errs := validator.Validate(req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	profile, err := h.service.UpdateProfilePic(r.Context(), userID, req.ProfilePic)
	if err != nil {
		h.handleError(w, err)
		return
	}

	response.OK(w, profile)
}

func (h *Handler) setAuthCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AuthCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.accessTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) clearAuthCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AuthCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) handleError(w http.ResponseWriter, err error) {
	if errors.Is(err, upload.ErrUploadFailed) {
		response.Error(w, http.StatusBadGateway, "UPLOAD_FAILED", "Image upload failed")
		return
	}

	switch err {
	case ErrEmailAlreadyExists:
		response.Conflict(w, "This email is already registered")
	case ErrInvalidCredentials:
		response.Unauthorized(w, "Invalid email or password")
	case ErrInvalidRefreshToken:
		response.Unauthorized(w, "Invalid refresh token")
	case ErrUserNotFound:
		response.NotFound(w, "User not found")
	default:
		response.InternalError(w)
	}
}

package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/CampusBridge-2025/access-service/internal/models"
	"github.com/CampusBridge-2025/access-service/internal/services"
	"github.com/CampusBridge-2025/access-service/internal/utils"
)

// AuthHandler exposes the session controller's operations over HTTP. All
// gating decisions belong to the guard; these endpoints only run the
// operations and report their results.
type AuthHandler struct {
	BaseHandler
	auth services.AuthService
}

func NewAuthHandler(auth services.AuthService, logger utils.Logger) *AuthHandler {
	return &AuthHandler{
		BaseHandler: NewBaseHandler(logger),
		auth:        auth,
	}
}

// Login authenticates with email and password.
// @Router /auth/login/{role} [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Invalid login payload", err)
		return
	}

	h.LogRequest(c, "Login attempt", "email", req.Email, "role_page", c.Param("role"))

	session, err := h.auth.Login(c.Request.Context(), &req)
	if err != nil {
		h.handleAuthError(c, err, "Login failed")
		return
	}

	// An unverified user still gets their session back; the guard decides
	// what they may reach and the state carries the verification flag.
	c.JSON(http.StatusOK, gin.H{
		"session": session,
		"state":   h.auth.State(),
	})
}

// Register creates an identity and its profile for the role in the path.
// @Router /auth/register/{role} [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req models.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Invalid signup payload", err)
		return
	}

	pathRole := models.UserRole(c.Param("role"))
	if req.Profile.Role == "" {
		req.Profile.Role = pathRole
	}
	if req.Profile.Role != pathRole {
		h.RespondWithError(c, http.StatusBadRequest, "Role in payload does not match registration page", nil)
		return
	}

	h.LogRequest(c, "Signup attempt", "email", req.Email, "role", req.Profile.Role)

	profile, err := h.auth.Signup(c.Request.Context(), &req)
	if err != nil {
		h.handleAuthError(c, err, "Signup failed")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"profile": profile,
		"state":   h.auth.State(),
	})
}

// Logout invalidates the current session. Safe to call when logged out.
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	h.LogRequest(c, "Logout")

	if err := h.auth.Logout(c.Request.Context()); err != nil {
		h.handleAuthError(c, err, "Logout failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": h.auth.State()})
}

// State returns the controller's current AuthState.
// @Router /auth/state [get]
func (h *AuthHandler) State(c *gin.Context) {
	c.JSON(http.StatusOK, h.auth.State())
}

// RefreshProfile re-reads the profile from storage.
// @Router /auth/profile/refresh [post]
func (h *AuthHandler) RefreshProfile(c *gin.Context) {
	h.LogRequest(c, "Refreshing profile")

	profile, err := h.auth.RefreshProfile(c.Request.Context())
	if err != nil {
		h.handleAuthError(c, err, "Profile refresh failed")
		return
	}

	// A nil profile with a live session is the mid-signup state, reported
	// as-is for the caller to render.
	c.JSON(http.StatusOK, gin.H{
		"profile": profile,
		"state":   h.auth.State(),
	})
}

// UpdateProfile merges partial fields into the stored profile.
// @Router /auth/profile [put]
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	var req models.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Invalid profile payload", err)
		return
	}

	h.LogRequest(c, "Updating profile")

	profile, err := h.auth.UpdateProfile(c.Request.Context(), &req)
	if err != nil {
		h.handleAuthError(c, err, "Profile update failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": profile})
}

// SendVerification dispatches a verification email for the current session.
// @Router /auth/verification [post]
func (h *AuthHandler) SendVerification(c *gin.Context) {
	h.LogRequest(c, "Dispatching verification email")

	if err := h.auth.SendVerificationEmail(c.Request.Context()); err != nil {
		h.handleAuthError(c, err, "Verification dispatch failed")
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "verification email sent"})
}

// ResetPassword dispatches a password-reset email. Works while logged out.
// @Router /auth/password-reset [post]
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req models.ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Invalid reset payload", err)
		return
	}

	h.LogRequest(c, "Dispatching password reset", "email", req.Email)

	if err := h.auth.ResetPassword(c.Request.Context(), req.Email); err != nil {
		h.handleAuthError(c, err, "Password reset dispatch failed")
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "password reset email sent"})
}

// handleAuthError maps the service error taxonomy onto HTTP statuses.
func (h *AuthHandler) handleAuthError(c *gin.Context, err error, msg string) {
	switch {
	case errors.Is(err, services.ErrValidation):
		h.RespondWithError(c, http.StatusBadRequest, msg, err)
	case errors.Is(err, services.ErrInvalidCredentials):
		h.RespondWithError(c, http.StatusUnauthorized, msg, err)
	case errors.Is(err, services.ErrNotAuthenticated):
		h.RespondWithError(c, http.StatusUnauthorized, msg, err)
	case errors.Is(err, services.ErrAccountDisabled):
		h.RespondWithError(c, http.StatusForbidden, msg, err)
	case errors.Is(err, services.ErrEmailAlreadyInUse):
		h.RespondWithError(c, http.StatusConflict, msg, err)
	case errors.Is(err, services.ErrWeakPassword):
		h.RespondWithError(c, http.StatusBadRequest, msg, err)
	case errors.Is(err, services.ErrUnknownRole):
		h.RespondWithError(c, http.StatusBadRequest, msg, err)
	case errors.Is(err, services.ErrProfileNotFound):
		h.RespondWithError(c, http.StatusNotFound, msg, err)
	case errors.Is(err, services.ErrRateLimited):
		c.Header("Retry-After", "60")
		h.RespondWithError(c, http.StatusTooManyRequests, msg, err)
	case errors.Is(err, services.ErrNetwork):
		h.RespondWithError(c, http.StatusBadGateway, msg, err)
	default:
		h.LogError(c, err, "Unexpected auth service error")
		h.RespondWithError(c, http.StatusInternalServerError, msg, err)
	}
}

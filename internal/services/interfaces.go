package services

import (
	"context"

	"github.com/CampusBridge-2025/access-service/internal/events"
	"github.com/CampusBridge-2025/access-service/internal/models"
)

// ===== REQUEST/RESPONSE DTOs =====

type LoginRequest = models.LoginRequest
type SignupRequest = models.SignupRequest
type UpdateProfileRequest = models.UpdateProfileRequest

type AuthStateResponse struct {
	models.AuthState
	// Redirect carries the role dashboard path when the caller should
	// navigate away, filled in by the HTTP layer.
	Redirect string `json:"redirect,omitempty"`
}

// ===== SERVICE INTERFACES =====

// AuthService is the session controller: the single owner of AuthState and
// the only sanctioned mutation surface for session and profile. All resync
// paths recompute from the identity provider, never from cached deltas.
type AuthService interface {
	// State returns a point-in-time copy of the controller's AuthState.
	State() models.AuthState

	// Login checks credentials and installs the resulting session plus its
	// profile. A failed login never clears an already-authenticated state.
	Login(ctx context.Context, req *LoginRequest) (*models.Session, error)

	// Signup creates the identity, dispatches verification, creates the
	// profile and installs both. If the identity already exists without a
	// profile (an earlier signup orphan), profile creation is resumed.
	Signup(ctx context.Context, req *SignupRequest) (*models.Profile, error)

	// Logout invalidates the session and resets AuthState. Idempotent.
	Logout(ctx context.Context) error

	// RefreshProfile re-reads the current session's profile from storage.
	// No session or no stored profile returns (nil, nil); an absent profile
	// is a state, not an error.
	RefreshProfile(ctx context.Context) (*models.Profile, error)

	// UpdateProfile merges the partial fields, persists them, then re-reads
	// the stored profile so AuthState never diverges from storage.
	UpdateProfile(ctx context.Context, req *UpdateProfileRequest) (*models.Profile, error)

	// SendVerificationEmail dispatches a verification email for the
	// current session. Fails with ErrNotAuthenticated when logged out.
	SendVerificationEmail(ctx context.Context) error

	// ResetPassword dispatches a reset email. Callable while logged out.
	ResetPassword(ctx context.Context, email string) error

	// ResolveToken builds a per-request AuthState from a bearer token
	// without touching the controller's own state.
	ResolveToken(ctx context.Context, token string) (models.AuthState, error)

	// Run consumes session-change events until the subscription is
	// cancelled. This is the re-entry point that keeps AuthState consistent
	// with the provider across instances and restarts.
	Run(ctx context.Context, sub events.Subscription)
}

// ===== SERVICE MANAGER =====

type ServiceManager interface {
	Auth() AuthService

	Initialize(ctx context.Context) error
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

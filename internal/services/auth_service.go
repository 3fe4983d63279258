package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/CampusBridge-2025/access-service/internal/events"
	"github.com/CampusBridge-2025/access-service/internal/identity"
	"github.com/CampusBridge-2025/access-service/internal/models"
	"github.com/CampusBridge-2025/access-service/internal/repositories"
	"github.com/CampusBridge-2025/access-service/internal/validator"
)

// authService owns the process-wide AuthState. Session and profile are only
// ever written here; every resync recomputes from the identity provider so
// concurrent writers converge on the same values (last write wins safely).
type authService struct {
	repo      repositories.Repository
	identity  identity.Client
	publisher events.Publisher
	logger    *slog.Logger
	validator *validator.Validator

	mu    sync.RWMutex
	state models.AuthState
}

func NewAuthService(
	repo repositories.Repository,
	identityClient identity.Client,
	publisher events.Publisher,
	logger *slog.Logger,
	v *validator.Validator,
) AuthService {
	return &authService{
		repo:      repo,
		identity:  identityClient,
		publisher: publisher,
		logger:    logger,
		validator: v,
	}
}

// State returns a copy of the current AuthState. The Session and Profile
// values it carries are read-only to callers.
func (s *authService) State() models.AuthState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// ===== CREDENTIAL OPERATIONS =====

func (s *authService) Login(ctx context.Context, req *LoginRequest) (*models.Session, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	session, err := s.identity.SignIn(ctx, req.Email, req.Password)
	if err != nil {
		// A failed login leaves any existing session and profile intact.
		s.recordError(err)
		return nil, err
	}

	s.beginLoading()
	defer s.endLoading()

	s.installSession(session)
	if _, err := s.syncProfile(ctx, session); err != nil {
		return nil, err
	}

	s.emit(ctx, events.SessionSignedIn, session.ID)
	return session, nil
}

func (s *authService) Signup(ctx context.Context, req *SignupRequest) (*models.Profile, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if !req.Profile.Role.CanSelfRegister() {
		return nil, fmt.Errorf("%w: role %q cannot self-register", ErrUnknownRole, req.Profile.Role)
	}

	session, err := s.identity.SignUp(ctx, req.Email, req.Password, req.Profile.FullName, req.Profile.Role)
	resumed := false
	if errors.Is(err, identity.ErrEmailAlreadyInUse) {
		// An earlier signup may have created the identity and then failed
		// before the profile write. If the credentials check out and no
		// profile exists, resume profile creation instead of failing.
		session, err = s.resumeOrphanedSignup(ctx, req)
		if err != nil {
			s.recordError(err)
			return nil, err
		}
		resumed = true
	} else if err != nil {
		s.recordError(err)
		return nil, err
	}

	if !resumed {
		if verr := s.identity.SendVerification(ctx, session); verr != nil {
			// Verification can be re-requested later; the signup proceeds.
			s.logger.Warn("failed to dispatch verification email",
				"user_id", session.ID, "error", verr)
		}
	}

	s.beginLoading()
	defer s.endLoading()
	s.installSession(session)

	profile := &models.Profile{
		ID:            session.ID,
		Role:          req.Profile.Role,
		FullName:      req.Profile.FullName,
		Email:         req.Email,
		EmailVerified: false,
	}
	if len(req.Profile.Payload) > 0 {
		if err := profile.MergePayload(req.Profile.Payload); err != nil {
			s.recordError(err)
			return nil, err
		}
	}

	if err := s.repo.Profile().Create(ctx, profile); err != nil {
		// The identity now exists without a profile. This is the known
		// recoverable inconsistency: it surfaces as an absent profile on
		// the next login and Signup resumes it, so no rollback here.
		err = fmt.Errorf("identity created but profile creation failed: %w", err)
		s.recordError(err)
		return nil, err
	}

	// Read-after-write so AuthState reflects what storage actually holds.
	stored, err := s.syncProfile(ctx, session)
	if err != nil {
		return nil, err
	}

	s.emit(ctx, events.SessionSignedUp, session.ID)
	return stored, nil
}

// resumeOrphanedSignup verifies the caller owns the existing identity and
// that it genuinely has no profile yet.
func (s *authService) resumeOrphanedSignup(ctx context.Context, req *SignupRequest) (*models.Session, error) {
	session, err := s.identity.SignIn(ctx, req.Email, req.Password)
	if err != nil {
		return nil, identity.ErrEmailAlreadyInUse
	}

	exists, err := s.repo.Profile().ExistsByID(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check for existing profile: %w", err)
	}
	if exists {
		return nil, identity.ErrEmailAlreadyInUse
	}

	s.logger.Info("resuming orphaned signup", "user_id", session.ID)
	return session, nil
}

func (s *authService) Logout(ctx context.Context) error {
	s.mu.RLock()
	session := s.state.Session
	s.mu.RUnlock()

	// Already logged out is a no-op success.
	if session == nil {
		return nil
	}

	if err := s.identity.SignOut(ctx, session.ID); err != nil {
		// Local state is cleared regardless; the provider session will
		// expire on its own.
		s.logger.Warn("provider sign-out failed", "user_id", session.ID, "error", err)
	}

	s.mu.Lock()
	s.state = models.AuthState{}
	s.mu.Unlock()

	s.emit(ctx, events.SessionSignedOut, session.ID)
	return nil
}

// ===== PROFILE OPERATIONS =====

func (s *authService) RefreshProfile(ctx context.Context) (*models.Profile, error) {
	s.mu.RLock()
	session := s.state.Session
	s.mu.RUnlock()

	if session == nil {
		return nil, nil
	}
	return s.syncProfile(ctx, session)
}

func (s *authService) UpdateProfile(ctx context.Context, req *UpdateProfileRequest) (*models.Profile, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	s.mu.RLock()
	session := s.state.Session
	s.mu.RUnlock()

	if session == nil {
		return nil, ErrNotAuthenticated
	}

	profile, err := s.repo.Profile().GetByID(ctx, session.ID)
	if err != nil {
		s.recordError(err)
		return nil, err
	}
	if profile == nil {
		return nil, ErrProfileNotFound
	}

	if req.FullName != nil {
		profile.FullName = *req.FullName
	}
	if len(req.Payload) > 0 {
		if err := profile.MergePayload(req.Payload); err != nil {
			return nil, err
		}
	}

	if err := s.repo.Profile().Update(ctx, profile); err != nil {
		s.recordError(err)
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	// Resynchronize from storage rather than trusting the local merge, in
	// case the store applied defaults or rejected part of the write.
	return s.syncProfile(ctx, session)
}

// ===== SIDE-EFFECT OPERATIONS =====

func (s *authService) SendVerificationEmail(ctx context.Context) error {
	s.mu.RLock()
	session := s.state.Session
	s.mu.RUnlock()

	if session == nil {
		return ErrNotAuthenticated
	}
	return s.identity.SendVerification(ctx, session)
}

func (s *authService) ResetPassword(ctx context.Context, email string) error {
	if email == "" {
		return fmt.Errorf("email is required")
	}
	return s.identity.SendPasswordReset(ctx, email)
}

// ===== PER-REQUEST RESOLUTION =====

func (s *authService) ResolveToken(ctx context.Context, token string) (models.AuthState, error) {
	session, err := s.identity.ParseToken(token)
	if err != nil {
		return models.AuthState{}, err
	}

	profile, err := s.repo.Profile().GetByID(ctx, session.ID)
	if err != nil {
		return models.AuthState{}, err
	}

	// A nil profile here is the authenticated-without-profile state; the
	// guard turns it into a waiting outcome, not a denial.
	return models.AuthState{Session: session, Profile: profile}, nil
}

// ===== SESSION-CHANGE RESYNC =====

// Run is the controller's event loop. Each event triggers a full resync
// from the provider, so out-of-order or duplicated events converge on the
// same state.
func (s *authService) Run(ctx context.Context, sub events.Subscription) {
	defer sub.Cancel()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-sub.Events():
			if !ok {
				return
			}
			s.handleSessionEvent(ctx, event)
		}
	}
}

func (s *authService) handleSessionEvent(ctx context.Context, event events.SessionEvent) {
	s.beginLoading()
	defer s.endLoading()

	if event.SignedOut() {
		s.clearIfCurrent(event.UserID)
		return
	}

	session, err := s.identity.Lookup(ctx, event.UserID)
	if err != nil {
		if errors.Is(err, identity.ErrUserNotFound) || errors.Is(err, identity.ErrAccountDisabled) {
			s.clearIfCurrent(event.UserID)
			return
		}
		s.logger.Error("session resync failed", "user_id", event.UserID, "error", err)
		s.recordError(err)
		return
	}

	s.installSession(session)
	if _, err := s.syncProfile(ctx, session); err != nil {
		s.logger.Error("profile resync failed", "user_id", event.UserID, "error", err)
	}
}

// ===== STATE HELPERS =====

// beginLoading and endLoading bracket every resync. endLoading is always
// installed with defer so no code path leaves Loading stuck on.
func (s *authService) beginLoading() {
	s.mu.Lock()
	s.state.Loading = true
	s.mu.Unlock()
}

func (s *authService) endLoading() {
	s.mu.Lock()
	s.state.Loading = false
	s.mu.Unlock()
}

// installSession makes the given session current. Switching identities
// drops the previous profile immediately so it can never be served against
// the new session.
func (s *authService) installSession(session *models.Session) {
	s.mu.Lock()
	if s.state.Session == nil || s.state.Session.ID != session.ID {
		s.state.Profile = nil
	}
	s.state.Session = session
	s.state.Error = ""
	s.mu.Unlock()
}

// syncProfile loads the stored profile for the session and publishes it into
// AuthState if that session is still current. An absent profile is stored as
// nil without error.
func (s *authService) syncProfile(ctx context.Context, session *models.Session) (*models.Profile, error) {
	profile, err := s.repo.Profile().GetByID(ctx, session.ID)
	if err != nil {
		s.recordError(err)
		return nil, err
	}

	s.mu.Lock()
	if s.state.Session != nil && s.state.Session.ID == session.ID {
		s.state.Profile = profile
	}
	s.mu.Unlock()
	return profile, nil
}

func (s *authService) clearIfCurrent(userID string) {
	s.mu.Lock()
	if userID == "" || (s.state.Session != nil && s.state.Session.ID == userID) {
		s.state.Session = nil
		s.state.Profile = nil
		s.state.Error = ""
	}
	s.mu.Unlock()
}

func (s *authService) recordError(err error) {
	s.mu.Lock()
	s.state.Error = err.Error()
	s.mu.Unlock()
}

func (s *authService) emit(ctx context.Context, eventType events.SessionEventType, userID string) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, events.SessionEvent{Type: eventType, UserID: userID}); err != nil {
		s.logger.Warn("failed to publish session event",
			"type", eventType, "user_id", userID, "error", err)
	}
}

package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/CampusBridge-2025/access-service/internal/events"
	"github.com/CampusBridge-2025/access-service/internal/identity"
	"github.com/CampusBridge-2025/access-service/internal/models"
	"github.com/CampusBridge-2025/access-service/internal/repositories"
	"github.com/CampusBridge-2025/access-service/internal/validator"
)

// ===== MOCKS =====

type mockIdentity struct {
	signInFunc           func(ctx context.Context, email, password string) (*models.Session, error)
	signUpFunc           func(ctx context.Context, email, password, fullName string, role models.UserRole) (*models.Session, error)
	signOutFunc          func(ctx context.Context, userID string) error
	lookupFunc           func(ctx context.Context, userID string) (*models.Session, error)
	sendVerificationFunc func(ctx context.Context, session *models.Session) error
	sendResetFunc        func(ctx context.Context, email string) error
	parseTokenFunc       func(token string) (*models.Session, error)

	verificationsSent int
	resetsSent        int
	signOuts          int
}

func (m *mockIdentity) SignIn(ctx context.Context, email, password string) (*models.Session, error) {
	if m.signInFunc != nil {
		return m.signInFunc(ctx, email, password)
	}
	return nil, identity.ErrInvalidCredentials
}

func (m *mockIdentity) SignUp(ctx context.Context, email, password, fullName string, role models.UserRole) (*models.Session, error) {
	if m.signUpFunc != nil {
		return m.signUpFunc(ctx, email, password, fullName, role)
	}
	return &models.Session{ID: "new-user", Email: email, EmailVerified: false}, nil
}

func (m *mockIdentity) SignOut(ctx context.Context, userID string) error {
	m.signOuts++
	if m.signOutFunc != nil {
		return m.signOutFunc(ctx, userID)
	}
	return nil
}

func (m *mockIdentity) Lookup(ctx context.Context, userID string) (*models.Session, error) {
	if m.lookupFunc != nil {
		return m.lookupFunc(ctx, userID)
	}
	return nil, identity.ErrUserNotFound
}

func (m *mockIdentity) SendVerification(ctx context.Context, session *models.Session) error {
	m.verificationsSent++
	if m.sendVerificationFunc != nil {
		return m.sendVerificationFunc(ctx, session)
	}
	return nil
}

func (m *mockIdentity) SendPasswordReset(ctx context.Context, email string) error {
	m.resetsSent++
	if m.sendResetFunc != nil {
		return m.sendResetFunc(ctx, email)
	}
	return nil
}

func (m *mockIdentity) ParseToken(token string) (*models.Session, error) {
	if m.parseTokenFunc != nil {
		return m.parseTokenFunc(token)
	}
	return nil, identity.ErrInvalidToken
}

type memProfileRepo struct {
	profiles map[string]*models.Profile

	getErr    error
	createErr error
	updateErr error
}

func newMemProfileRepo() *memProfileRepo {
	return &memProfileRepo{profiles: make(map[string]*models.Profile)}
}

func (r *memProfileRepo) GetByID(ctx context.Context, id string) (*models.Profile, error) {
	if r.getErr != nil {
		return nil, r.getErr
	}
	p, ok := r.profiles[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (r *memProfileRepo) Create(ctx context.Context, profile *models.Profile) error {
	if r.createErr != nil {
		return r.createErr
	}
	cp := *profile
	r.profiles[profile.ID] = &cp
	return nil
}

func (r *memProfileRepo) Update(ctx context.Context, profile *models.Profile) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	if _, ok := r.profiles[profile.ID]; !ok {
		return fmt.Errorf("profile %s not found", profile.ID)
	}
	cp := *profile
	r.profiles[profile.ID] = &cp
	return nil
}

func (r *memProfileRepo) ExistsByID(ctx context.Context, id string) (bool, error) {
	if r.getErr != nil {
		return false, r.getErr
	}
	_, ok := r.profiles[id]
	return ok, nil
}

func (r *memProfileRepo) ListByRole(ctx context.Context, role models.UserRole, filters repositories.ProfileFilters) ([]*models.Profile, int64, error) {
	var out []*models.Profile
	for _, p := range r.profiles {
		if p.Role == role {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, int64(len(out)), nil
}

type memRepository struct {
	profile *memProfileRepo
}

func (r *memRepository) Profile() repositories.ProfileRepository { return r.profile }
func (r *memRepository) User() repositories.UserRepository       { return nil }
func (r *memRepository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return fn(r)
}
func (r *memRepository) Ping(ctx context.Context) error { return nil }
func (r *memRepository) Close() error                   { return nil }

// ===== HELPERS =====

func newTestService(t *testing.T) (*authService, *mockIdentity, *memProfileRepo, *events.MockEventPublisher) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	idp := &mockIdentity{}
	profiles := newMemProfileRepo()
	publisher := events.NewMockEventPublisher(logger)

	svc := NewAuthService(&memRepository{profile: profiles}, idp, publisher, logger, validator.New())
	return svc.(*authService), idp, profiles, publisher
}

func verifiedSignIn(id, email string) func(context.Context, string, string) (*models.Session, error) {
	return func(ctx context.Context, gotEmail, password string) (*models.Session, error) {
		if gotEmail != email {
			return nil, identity.ErrInvalidCredentials
		}
		return &models.Session{ID: id, Email: email, EmailVerified: true}, nil
	}
}

func seedProfile(repo *memProfileRepo, id string, role models.UserRole) {
	repo.profiles[id] = &models.Profile{
		ID:       id,
		Role:     role,
		FullName: "Seeded User",
		Email:    id + "@example.com",
	}
}

func eventTypes(publisher *events.MockEventPublisher) []events.SessionEventType {
	var out []events.SessionEventType
	for _, e := range publisher.GetPublishedEvents() {
		out = append(out, e.Type)
	}
	return out
}

// ===== LOGIN =====

func TestAuthService_Login(t *testing.T) {
	t.Run("success installs session and profile", func(t *testing.T) {
		svc, idp, profiles, publisher := newTestService(t)
		idp.signInFunc = verifiedSignIn("u1", "u1@example.com")
		seedProfile(profiles, "u1", models.RoleStudent)

		session, err := svc.Login(context.Background(), &LoginRequest{Email: "u1@example.com", Password: "secret1"})
		if err != nil {
			t.Fatalf("Login() error = %v", err)
		}
		if session.ID != "u1" {
			t.Errorf("session ID = %q, want u1", session.ID)
		}

		state := svc.State()
		if state.Loading {
			t.Error("Loading still set after login")
		}
		if state.Session == nil || state.Session.ID != "u1" {
			t.Errorf("state session = %+v, want u1", state.Session)
		}
		if state.Profile == nil || state.Profile.Role != models.RoleStudent {
			t.Errorf("state profile = %+v, want student profile", state.Profile)
		}
		if got := eventTypes(publisher); len(got) != 1 || got[0] != events.SessionSignedIn {
			t.Errorf("published events = %v, want [signed_in]", got)
		}
	})

	t.Run("missing profile installs nil profile without error", func(t *testing.T) {
		svc, idp, _, _ := newTestService(t)
		idp.signInFunc = verifiedSignIn("u1", "u1@example.com")

		if _, err := svc.Login(context.Background(), &LoginRequest{Email: "u1@example.com", Password: "secret1"}); err != nil {
			t.Fatalf("Login() error = %v", err)
		}

		state := svc.State()
		if state.Session == nil {
			t.Fatal("session not installed")
		}
		if state.Profile != nil {
			t.Errorf("profile = %+v, want nil", state.Profile)
		}
	})

	t.Run("invalid payload fails validation", func(t *testing.T) {
		svc, _, _, publisher := newTestService(t)

		_, err := svc.Login(context.Background(), &LoginRequest{Email: "not-an-email", Password: ""})
		if !errors.Is(err, ErrValidation) {
			t.Fatalf("Login() error = %v, want ErrValidation", err)
		}
		if got := eventTypes(publisher); len(got) != 0 {
			t.Errorf("published events = %v, want none", got)
		}
	})

	t.Run("failed login preserves existing state", func(t *testing.T) {
		svc, idp, profiles, publisher := newTestService(t)
		idp.signInFunc = verifiedSignIn("u1", "u1@example.com")
		seedProfile(profiles, "u1", models.RoleInstitute)

		if _, err := svc.Login(context.Background(), &LoginRequest{Email: "u1@example.com", Password: "secret1"}); err != nil {
			t.Fatalf("first Login() error = %v", err)
		}
		publisher.ClearEvents()

		idp.signInFunc = func(ctx context.Context, email, password string) (*models.Session, error) {
			return nil, identity.ErrInvalidCredentials
		}
		_, err := svc.Login(context.Background(), &LoginRequest{Email: "other@example.com", Password: "wrong1"})
		if !errors.Is(err, identity.ErrInvalidCredentials) {
			t.Fatalf("second Login() error = %v, want ErrInvalidCredentials", err)
		}

		state := svc.State()
		if state.Session == nil || state.Session.ID != "u1" {
			t.Errorf("existing session lost after failed login: %+v", state.Session)
		}
		if state.Profile == nil || state.Profile.Role != models.RoleInstitute {
			t.Errorf("existing profile lost after failed login: %+v", state.Profile)
		}
		if state.Error == "" {
			t.Error("failure not surfaced on state.Error")
		}
		if got := eventTypes(publisher); len(got) != 0 {
			t.Errorf("published events = %v, want none", got)
		}
	})

	t.Run("disabled account error passes through", func(t *testing.T) {
		svc, idp, _, _ := newTestService(t)
		idp.signInFunc = func(ctx context.Context, email, password string) (*models.Session, error) {
			return nil, identity.ErrAccountDisabled
		}

		_, err := svc.Login(context.Background(), &LoginRequest{Email: "u1@example.com", Password: "secret1"})
		if !errors.Is(err, identity.ErrAccountDisabled) {
			t.Errorf("Login() error = %v, want ErrAccountDisabled", err)
		}
	})

	t.Run("switching identity drops the previous profile", func(t *testing.T) {
		svc, idp, profiles, _ := newTestService(t)
		idp.signInFunc = verifiedSignIn("u1", "u1@example.com")
		seedProfile(profiles, "u1", models.RoleStudent)
		if _, err := svc.Login(context.Background(), &LoginRequest{Email: "u1@example.com", Password: "secret1"}); err != nil {
			t.Fatalf("first Login() error = %v", err)
		}

		// Second identity has no stored profile; the first user's profile
		// must not be served against it.
		idp.signInFunc = verifiedSignIn("u2", "u2@example.com")
		if _, err := svc.Login(context.Background(), &LoginRequest{Email: "u2@example.com", Password: "secret1"}); err != nil {
			t.Fatalf("second Login() error = %v", err)
		}

		state := svc.State()
		if state.Session == nil || state.Session.ID != "u2" {
			t.Fatalf("session = %+v, want u2", state.Session)
		}
		if state.Profile != nil {
			t.Errorf("stale profile %+v served for new session", state.Profile)
		}
	})
}

// ===== SIGNUP =====

func signupReq(email string, role models.UserRole) *SignupRequest {
	return &SignupRequest{
		Email:    email,
		Password: "secret1",
		Profile: models.ProfileSeed{
			Role:     role,
			FullName: "New User",
		},
	}
}

func TestAuthService_Signup(t *testing.T) {
	t.Run("creates identity then profile", func(t *testing.T) {
		svc, idp, profiles, publisher := newTestService(t)
		idp.signUpFunc = func(ctx context.Context, email, password, fullName string, role models.UserRole) (*models.Session, error) {
			return &models.Session{ID: "s1", Email: email, EmailVerified: false}, nil
		}

		profile, err := svc.Signup(context.Background(), signupReq("s1@example.com", models.RoleStudent))
		if err != nil {
			t.Fatalf("Signup() error = %v", err)
		}
		if profile == nil || profile.Role != models.RoleStudent {
			t.Fatalf("profile = %+v, want student profile", profile)
		}
		if _, ok := profiles.profiles["s1"]; !ok {
			t.Error("profile not persisted")
		}
		if idp.verificationsSent != 1 {
			t.Errorf("verifications sent = %d, want 1", idp.verificationsSent)
		}

		state := svc.State()
		if state.Session == nil || state.Session.ID != "s1" {
			t.Errorf("session = %+v, want s1", state.Session)
		}
		if state.Loading {
			t.Error("Loading still set after signup")
		}
		if got := eventTypes(publisher); len(got) != 1 || got[0] != events.SessionSignedUp {
			t.Errorf("published events = %v, want [signed_up]", got)
		}
	})

	t.Run("admin cannot self-register", func(t *testing.T) {
		svc, _, _, _ := newTestService(t)

		req := signupReq("a1@example.com", models.RoleStudent)
		req.Profile.Role = models.RoleAdmin
		_, err := svc.Signup(context.Background(), req)
		if err == nil {
			t.Fatal("Signup() with admin role succeeded")
		}
	})

	t.Run("verification failure does not block signup", func(t *testing.T) {
		svc, idp, _, _ := newTestService(t)
		idp.signUpFunc = func(ctx context.Context, email, password, fullName string, role models.UserRole) (*models.Session, error) {
			return &models.Session{ID: "s1", Email: email}, nil
		}
		idp.sendVerificationFunc = func(ctx context.Context, session *models.Session) error {
			return identity.ErrNetwork
		}

		if _, err := svc.Signup(context.Background(), signupReq("s1@example.com", models.RoleCompany)); err != nil {
			t.Errorf("Signup() error = %v, want nil", err)
		}
	})

	t.Run("email in use with foreign credentials fails", func(t *testing.T) {
		svc, idp, _, _ := newTestService(t)
		idp.signUpFunc = func(ctx context.Context, email, password, fullName string, role models.UserRole) (*models.Session, error) {
			return nil, identity.ErrEmailAlreadyInUse
		}

		_, err := svc.Signup(context.Background(), signupReq("taken@example.com", models.RoleStudent))
		if !errors.Is(err, identity.ErrEmailAlreadyInUse) {
			t.Errorf("Signup() error = %v, want ErrEmailAlreadyInUse", err)
		}
	})

	t.Run("email in use with existing profile fails", func(t *testing.T) {
		svc, idp, profiles, _ := newTestService(t)
		idp.signUpFunc = func(ctx context.Context, email, password, fullName string, role models.UserRole) (*models.Session, error) {
			return nil, identity.ErrEmailAlreadyInUse
		}
		idp.signInFunc = verifiedSignIn("u1", "taken@example.com")
		seedProfile(profiles, "u1", models.RoleStudent)

		_, err := svc.Signup(context.Background(), signupReq("taken@example.com", models.RoleStudent))
		if !errors.Is(err, identity.ErrEmailAlreadyInUse) {
			t.Errorf("Signup() error = %v, want ErrEmailAlreadyInUse", err)
		}
	})

	t.Run("resumes orphaned signup", func(t *testing.T) {
		// Identity exists from an earlier failed signup, profile does not.
		// Re-running signup with the same credentials finishes the job.
		svc, idp, profiles, publisher := newTestService(t)
		idp.signUpFunc = func(ctx context.Context, email, password, fullName string, role models.UserRole) (*models.Session, error) {
			return nil, identity.ErrEmailAlreadyInUse
		}
		idp.signInFunc = verifiedSignIn("orphan", "orphan@example.com")

		profile, err := svc.Signup(context.Background(), signupReq("orphan@example.com", models.RoleInstitute))
		if err != nil {
			t.Fatalf("Signup() error = %v", err)
		}
		if profile == nil || profile.ID != "orphan" {
			t.Fatalf("profile = %+v, want id orphan", profile)
		}
		if _, ok := profiles.profiles["orphan"]; !ok {
			t.Error("resumed profile not persisted")
		}
		if idp.verificationsSent != 0 {
			t.Errorf("verifications sent = %d, want 0 on resume", idp.verificationsSent)
		}
		if got := eventTypes(publisher); len(got) != 1 || got[0] != events.SessionSignedUp {
			t.Errorf("published events = %v, want [signed_up]", got)
		}
	})

	t.Run("profile creation failure leaves resumable orphan", func(t *testing.T) {
		svc, idp, profiles, publisher := newTestService(t)
		idp.signUpFunc = func(ctx context.Context, email, password, fullName string, role models.UserRole) (*models.Session, error) {
			return &models.Session{ID: "s1", Email: email}, nil
		}
		profiles.createErr = fmt.Errorf("connection reset")

		if _, err := svc.Signup(context.Background(), signupReq("s1@example.com", models.RoleStudent)); err == nil {
			t.Fatal("Signup() succeeded despite profile create failure")
		}
		if got := eventTypes(publisher); len(got) != 0 {
			t.Errorf("published events = %v, want none", got)
		}
		if svc.State().Loading {
			t.Error("Loading still set after failed signup")
		}

		// Retry resumes instead of failing on the existing identity.
		profiles.createErr = nil
		idp.signUpFunc = func(ctx context.Context, email, password, fullName string, role models.UserRole) (*models.Session, error) {
			return nil, identity.ErrEmailAlreadyInUse
		}
		idp.signInFunc = verifiedSignIn("s1", "s1@example.com")

		if _, err := svc.Signup(context.Background(), signupReq("s1@example.com", models.RoleStudent)); err != nil {
			t.Fatalf("retry Signup() error = %v", err)
		}
		if _, ok := profiles.profiles["s1"]; !ok {
			t.Error("profile missing after resumed retry")
		}
	})
}

// ===== LOGOUT =====

func TestAuthService_Logout(t *testing.T) {
	t.Run("clears state and emits once", func(t *testing.T) {
		svc, idp, profiles, publisher := newTestService(t)
		idp.signInFunc = verifiedSignIn("u1", "u1@example.com")
		seedProfile(profiles, "u1", models.RoleStudent)
		if _, err := svc.Login(context.Background(), &LoginRequest{Email: "u1@example.com", Password: "secret1"}); err != nil {
			t.Fatalf("Login() error = %v", err)
		}
		publisher.ClearEvents()

		if err := svc.Logout(context.Background()); err != nil {
			t.Fatalf("Logout() error = %v", err)
		}

		state := svc.State()
		if state.Session != nil || state.Profile != nil {
			t.Errorf("state not cleared: %+v", state)
		}
		if got := eventTypes(publisher); len(got) != 1 || got[0] != events.SessionSignedOut {
			t.Errorf("published events = %v, want [signed_out]", got)
		}
	})

	t.Run("idempotent when logged out", func(t *testing.T) {
		svc, idp, _, publisher := newTestService(t)

		if err := svc.Logout(context.Background()); err != nil {
			t.Fatalf("Logout() error = %v", err)
		}
		if err := svc.Logout(context.Background()); err != nil {
			t.Fatalf("second Logout() error = %v", err)
		}
		if idp.signOuts != 0 {
			t.Errorf("provider sign-outs = %d, want 0", idp.signOuts)
		}
		if got := eventTypes(publisher); len(got) != 0 {
			t.Errorf("published events = %v, want none", got)
		}
	})

	t.Run("provider failure still clears local state", func(t *testing.T) {
		svc, idp, _, _ := newTestService(t)
		idp.signInFunc = verifiedSignIn("u1", "u1@example.com")
		if _, err := svc.Login(context.Background(), &LoginRequest{Email: "u1@example.com", Password: "secret1"}); err != nil {
			t.Fatalf("Login() error = %v", err)
		}
		idp.signOutFunc = func(ctx context.Context, userID string) error {
			return identity.ErrNetwork
		}

		if err := svc.Logout(context.Background()); err != nil {
			t.Fatalf("Logout() error = %v", err)
		}
		if svc.State().Session != nil {
			t.Error("session survived logout")
		}
	})
}

// ===== PROFILE OPERATIONS =====

func TestAuthService_RefreshProfile(t *testing.T) {
	t.Run("no session returns nil nil", func(t *testing.T) {
		svc, _, _, _ := newTestService(t)
		profile, err := svc.RefreshProfile(context.Background())
		if err != nil {
			t.Fatalf("RefreshProfile() error = %v", err)
		}
		if profile != nil {
			t.Errorf("profile = %+v, want nil", profile)
		}
	})

	t.Run("picks up external profile writes", func(t *testing.T) {
		svc, idp, profiles, _ := newTestService(t)
		idp.signInFunc = verifiedSignIn("u1", "u1@example.com")
		if _, err := svc.Login(context.Background(), &LoginRequest{Email: "u1@example.com", Password: "secret1"}); err != nil {
			t.Fatalf("Login() error = %v", err)
		}
		if svc.State().Profile != nil {
			t.Fatal("unexpected profile before refresh")
		}

		seedProfile(profiles, "u1", models.RoleCompany)
		profile, err := svc.RefreshProfile(context.Background())
		if err != nil {
			t.Fatalf("RefreshProfile() error = %v", err)
		}
		if profile == nil || profile.Role != models.RoleCompany {
			t.Fatalf("profile = %+v, want company profile", profile)
		}
		if state := svc.State(); state.Profile == nil || state.Profile.Role != models.RoleCompany {
			t.Errorf("state profile = %+v, want company profile", state.Profile)
		}
	})
}

func TestAuthService_UpdateProfile(t *testing.T) {
	t.Run("requires a session", func(t *testing.T) {
		svc, _, _, _ := newTestService(t)
		name := "Renamed"
		_, err := svc.UpdateProfile(context.Background(), &UpdateProfileRequest{FullName: &name})
		if !errors.Is(err, ErrNotAuthenticated) {
			t.Errorf("UpdateProfile() error = %v, want ErrNotAuthenticated", err)
		}
	})

	t.Run("missing profile is reported", func(t *testing.T) {
		svc, idp, _, _ := newTestService(t)
		idp.signInFunc = verifiedSignIn("u1", "u1@example.com")
		if _, err := svc.Login(context.Background(), &LoginRequest{Email: "u1@example.com", Password: "secret1"}); err != nil {
			t.Fatalf("Login() error = %v", err)
		}

		name := "Renamed"
		_, err := svc.UpdateProfile(context.Background(), &UpdateProfileRequest{FullName: &name})
		if !errors.Is(err, ErrProfileNotFound) {
			t.Errorf("UpdateProfile() error = %v, want ErrProfileNotFound", err)
		}
	})

	t.Run("merges and resyncs from storage", func(t *testing.T) {
		svc, idp, profiles, _ := newTestService(t)
		idp.signInFunc = verifiedSignIn("u1", "u1@example.com")
		seedProfile(profiles, "u1", models.RoleStudent)
		if _, err := svc.Login(context.Background(), &LoginRequest{Email: "u1@example.com", Password: "secret1"}); err != nil {
			t.Fatalf("Login() error = %v", err)
		}

		name := "Renamed"
		profile, err := svc.UpdateProfile(context.Background(), &UpdateProfileRequest{
			FullName: &name,
			Payload:  map[string]any{"university": "Example Tech"},
		})
		if err != nil {
			t.Fatalf("UpdateProfile() error = %v", err)
		}
		if profile.FullName != "Renamed" {
			t.Errorf("FullName = %q, want Renamed", profile.FullName)
		}
		if profile.Role != models.RoleStudent {
			t.Errorf("Role = %q, role must never change on update", profile.Role)
		}
		if stored := profiles.profiles["u1"]; stored.FullName != "Renamed" {
			t.Errorf("stored FullName = %q, want Renamed", stored.FullName)
		}
		if state := svc.State(); state.Profile == nil || state.Profile.FullName != "Renamed" {
			t.Errorf("state profile = %+v, want renamed profile", state.Profile)
		}
	})
}

// ===== SIDE-EFFECT OPERATIONS =====

func TestAuthService_SendVerificationEmail(t *testing.T) {
	svc, idp, _, _ := newTestService(t)

	if err := svc.SendVerificationEmail(context.Background()); !errors.Is(err, ErrNotAuthenticated) {
		t.Errorf("SendVerificationEmail() error = %v, want ErrNotAuthenticated", err)
	}

	idp.signInFunc = verifiedSignIn("u1", "u1@example.com")
	if _, err := svc.Login(context.Background(), &LoginRequest{Email: "u1@example.com", Password: "secret1"}); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if err := svc.SendVerificationEmail(context.Background()); err != nil {
		t.Fatalf("SendVerificationEmail() error = %v", err)
	}
	if idp.verificationsSent != 1 {
		t.Errorf("verifications sent = %d, want 1", idp.verificationsSent)
	}
}

func TestAuthService_ResetPassword(t *testing.T) {
	svc, idp, _, _ := newTestService(t)

	// Works without any session; password resets are a logged-out flow.
	if err := svc.ResetPassword(context.Background(), "forgot@example.com"); err != nil {
		t.Fatalf("ResetPassword() error = %v", err)
	}
	if idp.resetsSent != 1 {
		t.Errorf("resets sent = %d, want 1", idp.resetsSent)
	}

	if err := svc.ResetPassword(context.Background(), ""); err == nil {
		t.Error("ResetPassword() with empty email succeeded")
	}
}

// ===== PER-REQUEST RESOLUTION =====

func TestAuthService_ResolveToken(t *testing.T) {
	svc, idp, profiles, _ := newTestService(t)
	idp.parseTokenFunc = func(token string) (*models.Session, error) {
		if token != "good-token" {
			return nil, identity.ErrInvalidToken
		}
		return &models.Session{ID: "u1", Email: "u1@example.com", EmailVerified: true}, nil
	}
	seedProfile(profiles, "u1", models.RoleStudent)

	state, err := svc.ResolveToken(context.Background(), "good-token")
	if err != nil {
		t.Fatalf("ResolveToken() error = %v", err)
	}
	if state.Session == nil || state.Session.ID != "u1" {
		t.Errorf("resolved session = %+v, want u1", state.Session)
	}
	if state.Profile == nil || state.Profile.Role != models.RoleStudent {
		t.Errorf("resolved profile = %+v, want student profile", state.Profile)
	}

	// Per-request resolution must not touch the controller's own state.
	if owned := svc.State(); owned.Session != nil {
		t.Errorf("controller state mutated by ResolveToken: %+v", owned)
	}

	if _, err := svc.ResolveToken(context.Background(), "bad-token"); !errors.Is(err, identity.ErrInvalidToken) {
		t.Errorf("ResolveToken(bad) error = %v, want ErrInvalidToken", err)
	}
}

// ===== SESSION-CHANGE RESYNC =====

func TestAuthService_HandleSessionEvent(t *testing.T) {
	t.Run("signed out clears the matching session", func(t *testing.T) {
		svc, idp, profiles, _ := newTestService(t)
		idp.signInFunc = verifiedSignIn("u1", "u1@example.com")
		seedProfile(profiles, "u1", models.RoleStudent)
		if _, err := svc.Login(context.Background(), &LoginRequest{Email: "u1@example.com", Password: "secret1"}); err != nil {
			t.Fatalf("Login() error = %v", err)
		}

		svc.handleSessionEvent(context.Background(), events.SessionEvent{
			Type: events.SessionSignedOut, UserID: "u1",
		})

		state := svc.State()
		if state.Session != nil || state.Profile != nil {
			t.Errorf("state not cleared by sign-out event: %+v", state)
		}
		if state.Loading {
			t.Error("Loading still set after event")
		}
	})

	t.Run("signed out for another user is ignored", func(t *testing.T) {
		svc, idp, profiles, _ := newTestService(t)
		idp.signInFunc = verifiedSignIn("u1", "u1@example.com")
		seedProfile(profiles, "u1", models.RoleStudent)
		if _, err := svc.Login(context.Background(), &LoginRequest{Email: "u1@example.com", Password: "secret1"}); err != nil {
			t.Fatalf("Login() error = %v", err)
		}

		svc.handleSessionEvent(context.Background(), events.SessionEvent{
			Type: events.SessionSignedOut, UserID: "someone-else",
		})

		if state := svc.State(); state.Session == nil || state.Session.ID != "u1" {
			t.Errorf("unrelated sign-out cleared the session: %+v", state)
		}
	})

	t.Run("resync recomputes session and profile from provider", func(t *testing.T) {
		svc, idp, profiles, _ := newTestService(t)
		seedProfile(profiles, "u2", models.RoleCompany)
		idp.lookupFunc = func(ctx context.Context, userID string) (*models.Session, error) {
			return &models.Session{ID: userID, Email: userID + "@example.com", EmailVerified: true}, nil
		}

		svc.handleSessionEvent(context.Background(), events.SessionEvent{
			Type: events.SessionSignedIn, UserID: "u2",
		})

		state := svc.State()
		if state.Session == nil || state.Session.ID != "u2" {
			t.Fatalf("session = %+v, want u2", state.Session)
		}
		if !state.Session.EmailVerified {
			t.Error("resync did not pick up provider verification flag")
		}
		if state.Profile == nil || state.Profile.Role != models.RoleCompany {
			t.Errorf("profile = %+v, want company profile", state.Profile)
		}
		if state.Loading {
			t.Error("Loading still set after event")
		}
	})

	t.Run("vanished account clears state", func(t *testing.T) {
		svc, idp, profiles, _ := newTestService(t)
		idp.signInFunc = verifiedSignIn("u1", "u1@example.com")
		seedProfile(profiles, "u1", models.RoleStudent)
		if _, err := svc.Login(context.Background(), &LoginRequest{Email: "u1@example.com", Password: "secret1"}); err != nil {
			t.Fatalf("Login() error = %v", err)
		}
		idp.lookupFunc = func(ctx context.Context, userID string) (*models.Session, error) {
			return nil, identity.ErrUserNotFound
		}

		svc.handleSessionEvent(context.Background(), events.SessionEvent{
			Type: events.SessionTokenRefresh, UserID: "u1",
		})

		if state := svc.State(); state.Session != nil {
			t.Errorf("state kept for vanished account: %+v", state)
		}
	})

	t.Run("transient lookup failure keeps state and releases loading", func(t *testing.T) {
		svc, idp, profiles, _ := newTestService(t)
		idp.signInFunc = verifiedSignIn("u1", "u1@example.com")
		seedProfile(profiles, "u1", models.RoleStudent)
		if _, err := svc.Login(context.Background(), &LoginRequest{Email: "u1@example.com", Password: "secret1"}); err != nil {
			t.Fatalf("Login() error = %v", err)
		}
		idp.lookupFunc = func(ctx context.Context, userID string) (*models.Session, error) {
			return nil, identity.ErrNetwork
		}

		svc.handleSessionEvent(context.Background(), events.SessionEvent{
			Type: events.SessionTokenRefresh, UserID: "u1",
		})

		state := svc.State()
		if state.Session == nil || state.Session.ID != "u1" {
			t.Errorf("session dropped on transient failure: %+v", state.Session)
		}
		if state.Loading {
			t.Error("Loading still set after failed resync")
		}
		if state.Error == "" {
			t.Error("transient failure not surfaced on state.Error")
		}
	})
}

func TestAuthService_Run(t *testing.T) {
	svc, idp, profiles, _ := newTestService(t)
	seedProfile(profiles, "u1", models.RoleStudent)
	idp.lookupFunc = func(ctx context.Context, userID string) (*models.Session, error) {
		return &models.Session{ID: userID, Email: userID + "@example.com", EmailVerified: true}, nil
	}

	ch := make(chan events.SessionEvent)
	sub := &staticSubscription{ch: ch}
	done := make(chan struct{})
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		svc.Run(ctx, sub)
		close(done)
	}()

	ch <- events.SessionEvent{Type: events.SessionSignedIn, UserID: "u1"}
	cancel()
	<-done

	if !sub.cancelled {
		t.Error("Run exited without cancelling the subscription")
	}
	if state := svc.State(); state.Session == nil || state.Session.ID != "u1" {
		t.Errorf("event not applied before shutdown: %+v", state.Session)
	}
}

type staticSubscription struct {
	ch        chan events.SessionEvent
	cancelled bool
}

func (s *staticSubscription) Events() <-chan events.SessionEvent { return s.ch }
func (s *staticSubscription) Cancel()                            { s.cancelled = true }

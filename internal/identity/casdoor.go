package identity

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"
	"github.com/google/uuid"

	"github.com/CampusBridge-2025/access-service/internal/config"
	"github.com/CampusBridge-2025/access-service/internal/models"
)

// CasdoorClient implements Client against a Casdoor deployment.
type CasdoorClient struct {
	client *casdoorsdk.Client
	config config.CasdoorConfig
}

func NewCasdoorClient(cfg config.CasdoorConfig) *CasdoorClient {
	client := casdoorsdk.NewClient(
		cfg.Endpoint,
		cfg.ClientID,
		cfg.ClientSecret,
		cfg.Cert,
		cfg.Application,
		cfg.Organization,
	)

	return &CasdoorClient{
		client: client,
		config: cfg,
	}
}

// SignIn checks credentials against the provider. A missing account and a
// wrong password both map to ErrInvalidCredentials so the response does not
// reveal which one failed.
func (c *CasdoorClient) SignIn(ctx context.Context, email, password string) (*models.Session, error) {
	casdoorUser, err := c.client.GetUserByEmail(email)
	if err != nil {
		return nil, c.mapError(err)
	}
	if casdoorUser == nil {
		return nil, ErrInvalidCredentials
	}
	if casdoorUser.IsForbidden || casdoorUser.IsDeleted {
		return nil, ErrAccountDisabled
	}

	ok, err := c.client.CheckUserPassword(&casdoorsdk.User{
		Owner:    c.config.Organization,
		Name:     casdoorUser.Name,
		Password: password,
	})
	if err != nil {
		return nil, c.mapError(err)
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	return sessionFromCasdoorUser(casdoorUser), nil
}

// SignUp creates a fresh provider identity. The new account starts
// unverified; verification is dispatched separately by the caller.
func (c *CasdoorClient) SignUp(ctx context.Context, email, password, fullName string, role models.UserRole) (*models.Session, error) {
	existing, err := c.client.GetUserByEmail(email)
	if err != nil {
		return nil, c.mapError(err)
	}
	if existing != nil {
		return nil, ErrEmailAlreadyInUse
	}

	now := time.Now().UTC().Format(time.RFC3339)
	casdoorUser := &casdoorsdk.User{
		Owner:             c.config.Organization,
		Name:              nameFromEmail(email),
		Id:                uuid.New().String(),
		CreatedTime:       now,
		Type:              string(role),
		DisplayName:       fullName,
		Email:             email,
		Password:          password,
		EmailVerified:     false,
		SignupApplication: c.config.Application,
	}

	ok, err := c.client.AddUser(casdoorUser)
	if err != nil {
		return nil, c.mapError(err)
	}
	if !ok {
		return nil, fmt.Errorf("provider rejected user creation for %s", email)
	}

	return sessionFromCasdoorUser(casdoorUser), nil
}

// SignOut drops the provider session. Casdoor access tokens are
// self-contained JWTs with no server-side revocation in this flow, so
// sign-out is enforced by clearing local state and broadcasting the
// sign-out event; unknown sessions are a no-op.
func (c *CasdoorClient) SignOut(ctx context.Context, userID string) error {
	return nil
}

// Lookup re-reads session facts for an identity straight from the provider.
func (c *CasdoorClient) Lookup(ctx context.Context, userID string) (*models.Session, error) {
	casdoorUser, err := c.client.GetUserByUserId(userID)
	if err != nil {
		return nil, c.mapError(err)
	}
	if casdoorUser == nil {
		return nil, ErrUserNotFound
	}
	if casdoorUser.IsForbidden || casdoorUser.IsDeleted {
		return nil, ErrAccountDisabled
	}
	return sessionFromCasdoorUser(casdoorUser), nil
}

func (c *CasdoorClient) SendVerification(ctx context.Context, session *models.Session) error {
	title := "Verify your CampusBridge email address"
	content := fmt.Sprintf(
		"Please confirm ownership of %s by following the verification link sent by %s.",
		session.Email, c.config.Endpoint,
	)
	if err := c.client.SendEmail(title, content, "no-reply@campusbridge.dev", session.Email); err != nil {
		return c.mapError(err)
	}
	return nil
}

func (c *CasdoorClient) SendPasswordReset(ctx context.Context, email string) error {
	casdoorUser, err := c.client.GetUserByEmail(email)
	if err != nil {
		return c.mapError(err)
	}
	if casdoorUser == nil {
		// Do not reveal whether the address is registered.
		return nil
	}

	title := "Reset your CampusBridge password"
	content := fmt.Sprintf(
		"A password reset was requested for %s. Follow the reset link from %s to choose a new password.",
		email, c.config.Endpoint,
	)
	if err := c.client.SendEmail(title, content, "no-reply@campusbridge.dev", email); err != nil {
		return c.mapError(err)
	}
	return nil
}

// ParseToken validates a bearer token and extracts the session it carries.
func (c *CasdoorClient) ParseToken(token string) (*models.Session, error) {
	claims, err := c.client.ParseJwtToken(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Id == "" {
		return nil, ErrInvalidToken
	}

	return &models.Session{
		ID:            claims.Id,
		Email:         claims.User.Email,
		EmailVerified: claims.User.EmailVerified,
	}, nil
}

func sessionFromCasdoorUser(u *casdoorsdk.User) *models.Session {
	return &models.Session{
		ID:            u.Id,
		Email:         u.Email,
		EmailVerified: u.EmailVerified,
	}
}

func nameFromEmail(email string) string {
	if at := strings.Index(email, "@"); at > 0 {
		return email[:at]
	}
	return email
}

// mapError folds provider transport failures into the error taxonomy.
// Anything unrecognized is wrapped so the original cause stays visible.
func (c *CasdoorClient) mapError(err error) error {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "too many requests"), strings.Contains(msg, "429"):
		return fmt.Errorf("%w: %v", ErrRateLimited, err)
	case strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "no such host"),
		strings.Contains(msg, "timeout"),
		strings.Contains(msg, "deadline exceeded"):
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	case strings.Contains(msg, "forbidden"):
		return fmt.Errorf("%w: %v", ErrAccountDisabled, err)
	case strings.Contains(msg, "password") && strings.Contains(msg, "weak"):
		return fmt.Errorf("%w: %v", ErrWeakPassword, err)
	}
	return fmt.Errorf("identity provider error: %w", err)
}

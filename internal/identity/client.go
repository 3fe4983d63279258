// Package identity wraps the external identity provider behind a narrow
// client interface. The provider owns credentials, token issuance and email
// dispatch; this service only ever reads session facts back from it.
package identity

import (
	"context"

	"github.com/CampusBridge-2025/access-service/internal/models"
)

// Client is the consumed surface of the identity provider. Every method maps
// provider failures to the sentinel errors in this package.
type Client interface {
	// SignIn checks credentials and returns the provider session.
	SignIn(ctx context.Context, email, password string) (*models.Session, error)

	// SignUp creates a new identity. The returned session is unverified.
	SignUp(ctx context.Context, email, password, fullName string, role models.UserRole) (*models.Session, error)

	// SignOut invalidates the provider session. Unknown sessions are a no-op.
	SignOut(ctx context.Context, userID string) error

	// Lookup re-reads the current session facts for an identity from the
	// provider. This is the source-of-truth read used by every resync path.
	Lookup(ctx context.Context, userID string) (*models.Session, error)

	// SendVerification dispatches a verification email for the session.
	SendVerification(ctx context.Context, session *models.Session) error

	// SendPasswordReset dispatches a password-reset email. Callable without
	// any active session.
	SendPasswordReset(ctx context.Context, email string) error

	// ParseToken validates a bearer token and returns the session it
	// represents. Used by the per-request auth path.
	ParseToken(token string) (*models.Session, error)
}

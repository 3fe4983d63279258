package identity

import "errors"

// Provider failures are mapped 1:1 onto these sentinels at the client
// boundary so callers never match on provider message strings.
var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountDisabled    = errors.New("account is disabled")
	ErrRateLimited        = errors.New("too many attempts, try again later")
	ErrNetwork            = errors.New("identity provider unreachable")
	ErrEmailAlreadyInUse  = errors.New("email is already in use")
	ErrWeakPassword       = errors.New("password does not meet minimum requirements")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

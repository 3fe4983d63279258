package services

import (
	"errors"

	"github.com/CampusBridge-2025/access-service/internal/identity"
)

// Service-level sentinels. Provider-boundary errors are re-exported from the
// identity package so handlers match one taxonomy with errors.Is.
var (
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrValidation       = errors.New("validation failed")
	ErrProfileNotFound  = errors.New("profile not found")
	ErrUnknownRole      = errors.New("unknown role")
	ErrNotFound         = errors.New("resource not found")

	ErrInvalidCredentials = identity.ErrInvalidCredentials
	ErrAccountDisabled    = identity.ErrAccountDisabled
	ErrRateLimited        = identity.ErrRateLimited
	ErrNetwork            = identity.ErrNetwork
	ErrEmailAlreadyInUse  = identity.ErrEmailAlreadyInUse
	ErrWeakPassword       = identity.ErrWeakPassword
	ErrInvalidToken       = identity.ErrInvalidToken
)

// Package guard implements the route-guarding decision procedure: a pure
// function from authentication state and role requirements to a navigation
// outcome. It performs no I/O and holds no state, so every decision is
// reproducible and testable without an HTTP environment.
package guard

import (
	"slices"

	"github.com/CampusBridge-2025/access-service/internal/models"
)

type Outcome int

const (
	// Render lets the request through to the guarded handler.
	Render Outcome = iota
	// ShowLoading means the auth state is still being resolved; callers
	// should retry rather than treat this as a denial.
	ShowLoading
	// RedirectToRoleSelect is the unauthenticated outcome.
	RedirectToRoleSelect
	// RedirectToVerification gates unverified non-admin users.
	RedirectToVerification
	// RedirectToAccessDenied is the role-mismatch outcome.
	RedirectToAccessDenied
	// RedirectToDashboard sends a fully authenticated user off a public
	// page to their role's home.
	RedirectToDashboard
)

func (o Outcome) String() string {
	switch o {
	case Render:
		return "render"
	case ShowLoading:
		return "show_loading"
	case RedirectToRoleSelect:
		return "redirect_role_select"
	case RedirectToVerification:
		return "redirect_verification"
	case RedirectToAccessDenied:
		return "redirect_access_denied"
	case RedirectToDashboard:
		return "redirect_dashboard"
	}
	return "unknown"
}

// Decision is the full result of a guard evaluation. TargetRole is set for
// verification and dashboard redirects; ActualRole and RequiredRoles are set
// for access denials.
type Decision struct {
	Outcome       Outcome
	TargetRole    models.UserRole
	ActualRole    models.UserRole
	RequiredRoles []models.UserRole
}

// Evaluate decides the outcome for a role-restricted route. The checks run
// in a fixed order; each step assumes the previous ones passed.
//
//  1. resync in flight           -> ShowLoading
//  2. no session                 -> RedirectToRoleSelect
//  3. session but no profile yet -> ShowLoading (waiting for profile)
//  4. unverified, non-admin      -> RedirectToVerification
//  5. role not in requiredRoles  -> RedirectToAccessDenied
//  6. otherwise                  -> Render
//
// An empty requiredRoles slice means any authenticated, verified role may
// pass. Admins are exempt from verification gating but are NOT implicitly
// granted other roles' routes.
func Evaluate(state models.AuthState, requiredRoles []models.UserRole) Decision {
	if state.Loading {
		return Decision{Outcome: ShowLoading}
	}
	if state.Session == nil {
		return Decision{Outcome: RedirectToRoleSelect}
	}
	if state.Profile == nil {
		return Decision{Outcome: ShowLoading}
	}
	if !state.Session.EmailVerified && state.Profile.Role != models.RoleAdmin {
		return Decision{
			Outcome:    RedirectToVerification,
			TargetRole: state.Profile.Role,
		}
	}
	if len(requiredRoles) > 0 && !slices.Contains(requiredRoles, state.Profile.Role) {
		return Decision{
			Outcome:       RedirectToAccessDenied,
			ActualRole:    state.Profile.Role,
			RequiredRoles: requiredRoles,
		}
	}
	return Decision{Outcome: Render}
}

// EvaluatePublic decides the outcome for a public route (login, signup,
// role-select). A fully authenticated and verified user (or any admin) is
// bounced to their dashboard; an authenticated but unverified user still
// renders so the verification prompt stays reachable; everyone else renders.
func EvaluatePublic(state models.AuthState) Decision {
	if state.Loading {
		return Decision{Outcome: ShowLoading}
	}
	if state.Session == nil || state.Profile == nil {
		return Decision{Outcome: Render}
	}
	if state.Session.EmailVerified || state.Profile.Role == models.RoleAdmin {
		return Decision{
			Outcome:    RedirectToDashboard,
			TargetRole: state.Profile.Role,
		}
	}
	return Decision{Outcome: Render}
}

// DashboardPath maps a role to its home dashboard path. The mapping is total
// over the valid roles; any other value is reported as unknown and must be
// surfaced to the user, never defaulted.
func DashboardPath(role models.UserRole) (string, bool) {
	switch role {
	case models.RoleAdmin:
		return "/admin/home", true
	case models.RoleInstitute:
		return "/institute/home", true
	case models.RoleStudent:
		return "/student/home", true
	case models.RoleCompany:
		return "/company/home", true
	}
	return "", false
}

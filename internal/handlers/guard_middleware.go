package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/CampusBridge-2025/access-service/internal/guard"
	"github.com/CampusBridge-2025/access-service/internal/models"
	"github.com/CampusBridge-2025/access-service/internal/services"
	"github.com/CampusBridge-2025/access-service/internal/utils"
)

// GuardMiddleware is the HTTP adapter over the pure guard decision. It
// resolves the caller's AuthState (bearer token first, controller state as
// the fallback), evaluates the guard, and translates the outcome into a
// response. No authorization policy lives here.
type GuardMiddleware struct {
	auth   services.AuthService
	logger utils.Logger
}

func NewGuardMiddleware(auth services.AuthService, logger utils.Logger) *GuardMiddleware {
	return &GuardMiddleware{
		auth:   auth,
		logger: logger,
	}
}

// RequireRoles guards a role-restricted subtree. An empty role list admits
// any authenticated, verified user.
func (g *GuardMiddleware) RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		state := g.resolveState(c)
		decision := guard.Evaluate(state, roles)
		g.apply(c, state, decision)
	}
}

// Public guards login/signup pages: fully authenticated users are bounced
// to their dashboard, everyone else renders.
func (g *GuardMiddleware) Public() gin.HandlerFunc {
	return func(c *gin.Context) {
		state := g.resolveState(c)
		decision := guard.EvaluatePublic(state)
		g.apply(c, state, decision)
	}
}

// resolveState builds the AuthState for this request. A bearer token gives
// a stateless per-request view; without one the controller's own state
// applies (the long-lived session flow).
func (g *GuardMiddleware) resolveState(c *gin.Context) models.AuthState {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return g.auth.State()
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return models.AuthState{}
	}

	state, err := g.auth.ResolveToken(c.Request.Context(), parts[1])
	if err != nil {
		utils.LoggerFromContext(c.Request.Context(), g.logger).
			Warn("bearer token rejected", "error", err)
		return models.AuthState{}
	}
	return state
}

func (g *GuardMiddleware) apply(c *gin.Context, state models.AuthState, decision guard.Decision) {
	switch decision.Outcome {
	case guard.Render:
		if state.Session != nil {
			c.Set("user_id", state.Session.ID)
			c.Set("session", state.Session)
		}
		if state.Profile != nil {
			c.Set("user_role", state.Profile.Role)
			c.Set("profile", state.Profile)
		}
		c.Next()

	case guard.ShowLoading:
		c.Header("Retry-After", "1")
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, ErrorResponse{
			Message: "authentication state is still syncing, retry shortly",
		})

	case guard.RedirectToRoleSelect:
		c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
			Message:  "authentication required",
			Redirect: "/roles",
		})

	case guard.RedirectToVerification:
		c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{
			Message:  "email verification required",
			Redirect: fmt.Sprintf("/verify/%s", decision.TargetRole),
		})

	case guard.RedirectToAccessDenied:
		c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{
			Message: fmt.Sprintf("role %q has no access here, required roles: %v",
				decision.ActualRole, decision.RequiredRoles),
			Redirect: "/access-denied",
		})

	case guard.RedirectToDashboard:
		path, ok := guard.DashboardPath(decision.TargetRole)
		if !ok {
			// A role outside the fixed mapping is a fatal condition that
			// must reach the user, never a silent default.
			g.logger.Error("unknown role in dashboard mapping", "role", decision.TargetRole)
			c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{
				Message: fmt.Sprintf("unknown role %q", decision.TargetRole),
			})
			return
		}
		c.AbortWithStatusJSON(http.StatusOK, gin.H{"redirect": path})

	default:
		c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{
			Message: "unhandled guard outcome",
		})
	}
}

// ===== CONTEXT ACCESSORS =====

// GetUserIDFromContext extracts the authenticated user ID set by the guard.
func GetUserIDFromContext(c *gin.Context) (string, error) {
	userID, exists := c.Get("user_id")
	if !exists {
		return "", fmt.Errorf("user ID not found in context")
	}
	id, ok := userID.(string)
	if !ok {
		return "", fmt.Errorf("invalid user ID type in context")
	}
	return id, nil
}

// GetProfileFromContext extracts the resolved profile set by the guard.
func GetProfileFromContext(c *gin.Context) (*models.Profile, error) {
	value, exists := c.Get("profile")
	if !exists {
		return nil, fmt.Errorf("profile not found in context")
	}
	profile, ok := value.(*models.Profile)
	if !ok {
		return nil, fmt.Errorf("invalid profile type in context")
	}
	return profile, nil
}

// GetUserRoleFromContext extracts the resolved role set by the guard.
func GetUserRoleFromContext(c *gin.Context) (models.UserRole, error) {
	value, exists := c.Get("user_role")
	if !exists {
		return "", fmt.Errorf("user role not found in context")
	}
	role, ok := value.(models.UserRole)
	if !ok {
		return "", fmt.Errorf("invalid user role type in context")
	}
	return role, nil
}

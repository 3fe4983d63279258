package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/CampusBridge-2025/access-service/internal/guard"
	"github.com/CampusBridge-2025/access-service/internal/utils"
)

// HomeHandler serves the role home endpoints. Dashboards proper live in
// their own frontends; this returns the profile summary they start from.
type HomeHandler struct {
	BaseHandler
}

func NewHomeHandler(logger utils.Logger) *HomeHandler {
	return &HomeHandler{BaseHandler: NewBaseHandler(logger)}
}

// Home returns the resolved profile and its dashboard path. Only reachable
// through the guard, so the profile is always present here.
func (h *HomeHandler) Home(c *gin.Context) {
	profile, err := GetProfileFromContext(c)
	if err != nil {
		h.LogError(c, err, "Guard let a request through without a profile")
		h.RespondWithError(c, http.StatusInternalServerError, "Profile missing from request", err)
		return
	}

	payload, err := profile.TypedPayload()
	if err != nil {
		h.RespondWithError(c, http.StatusInternalServerError, "Profile payload is corrupt", err)
		return
	}

	path, ok := guard.DashboardPath(profile.Role)
	if !ok {
		h.RespondWithError(c, http.StatusInternalServerError, "Unknown role", nil)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"profile":   profile,
		"payload":   payload,
		"dashboard": path,
	})
}

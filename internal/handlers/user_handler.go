package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/CampusBridge-2025/access-service/internal/models"
	"github.com/CampusBridge-2025/access-service/internal/repositories"
	"github.com/CampusBridge-2025/access-service/internal/utils"
)

// UserHandler serves the admin directory: identity-provider accounts and
// application profiles. Read-only.
type UserHandler struct {
	BaseHandler
	userRepo    repositories.UserRepository
	profileRepo repositories.ProfileRepository
}

func NewUserHandler(userRepo repositories.UserRepository, profileRepo repositories.ProfileRepository, logger utils.Logger) *UserHandler {
	return &UserHandler{
		BaseHandler: NewBaseHandler(logger),
		userRepo:    userRepo,
		profileRepo: profileRepo,
	}
}

// ListUsers lists identity accounts with optional filtering.
// @Router /admin/users [get]
func (h *UserHandler) ListUsers(c *gin.Context) {
	h.LogRequest(c, "Listing users")

	filters := h.parseUserFilters(c)

	users, total, err := h.userRepo.List(c.Request.Context(), filters)
	if err != nil {
		h.LogError(c, err, "Failed to list users")
		h.RespondWithError(c, http.StatusInternalServerError, "Failed to list users", err)
		return
	}

	page := (filters.Offset / max(filters.Limit, 1)) + 1
	c.JSON(http.StatusOK, gin.H{
		"users": users,
		"total": total,
		"page":  page,
		"size":  filters.Limit,
	})
}

// SearchUsers searches identity accounts by name or email.
// @Router /admin/users/search [get]
func (h *UserHandler) SearchUsers(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		h.RespondWithError(c, http.StatusBadRequest, "Search query parameter 'q' is required", nil)
		return
	}

	h.LogRequest(c, "Searching users", "query", query)

	filters := h.parseUserFilters(c)
	users, total, err := h.userRepo.Search(c.Request.Context(), query, filters)
	if err != nil {
		h.LogError(c, err, "Failed to search users")
		h.RespondWithError(c, http.StatusInternalServerError, "Failed to search users", err)
		return
	}

	page := (filters.Offset / max(filters.Limit, 1)) + 1
	c.JSON(http.StatusOK, gin.H{
		"users": users,
		"total": total,
		"page":  page,
		"size":  filters.Limit,
	})
}

// GetUser retrieves one identity account by ID.
// @Router /admin/users/{id} [get]
func (h *UserHandler) GetUser(c *gin.Context) {
	userID := c.Param("id")
	if userID == "" {
		h.RespondWithError(c, http.StatusBadRequest, "User ID is required", nil)
		return
	}

	h.LogRequest(c, "Getting user", "user_id", userID)

	user, err := h.userRepo.GetByID(c.Request.Context(), userID)
	if err != nil {
		h.LogError(c, err, "Failed to get user")
		h.RespondWithError(c, http.StatusNotFound, "User not found", err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// ListProfiles lists application profiles for a role.
// @Router /admin/profiles [get]
func (h *UserHandler) ListProfiles(c *gin.Context) {
	role := models.UserRole(c.Query("role"))
	if !role.Valid() {
		h.RespondWithError(c, http.StatusBadRequest, "Query parameter 'role' must be a valid role", nil)
		return
	}

	h.LogRequest(c, "Listing profiles", "role", role)

	userFilters := h.parseUserFilters(c)
	filters := repositories.ProfileFilters{
		Limit:  userFilters.Limit,
		Offset: userFilters.Offset,
		Query:  userFilters.Query,
	}

	profiles, total, err := h.profileRepo.ListByRole(c.Request.Context(), role, filters)
	if err != nil {
		h.LogError(c, err, "Failed to list profiles")
		h.RespondWithError(c, http.StatusInternalServerError, "Failed to list profiles", err)
		return
	}

	page := (filters.Offset / max(filters.Limit, 1)) + 1
	c.JSON(http.StatusOK, gin.H{
		"profiles": profiles,
		"total":    total,
		"page":     page,
		"size":     filters.Limit,
	})
}

// ===== HELPER METHODS =====

func (h *UserHandler) parseUserFilters(c *gin.Context) repositories.UserFilters {
	page := 1
	size := 10

	if pageStr := c.Query("page"); pageStr != "" {
		if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
			page = p
		}
	}
	if sizeStr := c.Query("size"); sizeStr != "" {
		if s, err := strconv.Atoi(sizeStr); err == nil && s > 0 && s <= 100 {
			size = s
		}
	}

	return repositories.UserFilters{
		Limit:  size,
		Offset: (page - 1) * size,
		Query:  c.Query("q"),
	}
}

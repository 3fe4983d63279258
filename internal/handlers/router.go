package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/CampusBridge-2025/access-service/internal/models"
	"github.com/CampusBridge-2025/access-service/internal/repositories"
	"github.com/CampusBridge-2025/access-service/internal/services"
	"github.com/CampusBridge-2025/access-service/internal/utils"
)

type HandlerManager struct {
	authHandler *AuthHandler
	userHandler *UserHandler
	homeHandler *HomeHandler
	guard       *GuardMiddleware
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	repo repositories.Repository,
	logger utils.Logger,
) *HandlerManager {
	auth := serviceManager.Auth()

	return &HandlerManager{
		authHandler: NewAuthHandler(auth, logger),
		userHandler: NewUserHandler(repo.User(), repo.Profile(), logger),
		homeHandler: NewHomeHandler(logger),
		guard:       NewGuardMiddleware(auth, logger),
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	// Public auth surface. The Public guard bounces fully authenticated
	// users to their dashboard on the page probes; the operation endpoints
	// themselves are unguarded because the controller owns their rules
	// (e.g. a failed re-login must not log anyone out).
	auth := router.Group("/auth")
	{
		auth.GET("/pages/login/:role", hm.guard.Public(), hm.pageProbe)
		auth.GET("/pages/register/:role", hm.guard.Public(), hm.pageProbe)
		auth.GET("/pages/roles", hm.guard.Public(), hm.pageProbe)

		auth.POST("/login/:role", hm.authHandler.Login)
		auth.POST("/register/:role", hm.authHandler.Register)
		auth.POST("/logout", hm.authHandler.Logout)
		auth.POST("/password-reset", hm.authHandler.ResetPassword)

		auth.GET("/state", hm.authHandler.State)
		auth.POST("/verification", hm.authHandler.SendVerification)
		auth.POST("/profile/refresh", hm.authHandler.RefreshProfile)
		auth.PUT("/profile", hm.authHandler.UpdateProfile)
	}

	v1 := router.Group("/api/v1")
	{
		// Any authenticated, verified user.
		v1.GET("/me", hm.guard.RequireRoles(), hm.authHandler.State)

		admin := v1.Group("/admin")
		admin.Use(hm.guard.RequireRoles(models.RoleAdmin))
		{
			admin.GET("/home", hm.homeHandler.Home)
			admin.GET("/users", hm.userHandler.ListUsers)
			admin.GET("/users/search", hm.userHandler.SearchUsers)
			admin.GET("/users/:id", hm.userHandler.GetUser)
			admin.GET("/profiles", hm.userHandler.ListProfiles)
		}

		institute := v1.Group("/institute")
		institute.Use(hm.guard.RequireRoles(models.RoleInstitute))
		{
			institute.GET("/home", hm.homeHandler.Home)
		}

		student := v1.Group("/student")
		student.Use(hm.guard.RequireRoles(models.RoleStudent))
		{
			student.GET("/home", hm.homeHandler.Home)
		}

		company := v1.Group("/company")
		company.Use(hm.guard.RequireRoles(models.RoleCompany))
		{
			company.GET("/home", hm.homeHandler.Home)
		}
	}

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"service": "access-service",
		})
	})
}

// pageProbe answers the public-page guard checks: reaching it means the
// guard chose Render.
func (hm *HandlerManager) pageProbe(c *gin.Context) {
	c.JSON(200, gin.H{
		"render": true,
		"page":   c.Request.URL.Path,
		"role":   c.Param("role"),
	})
}

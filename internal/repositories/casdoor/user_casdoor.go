package casdoor

import (
	"context"
	"fmt"
	"strings"

	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"
	"github.com/redis/go-redis/v9"

	"github.com/CampusBridge-2025/access-service/internal/cache"
	"github.com/CampusBridge-2025/access-service/internal/config"
	"github.com/CampusBridge-2025/access-service/internal/models"
	"github.com/CampusBridge-2025/access-service/internal/repositories"
)

// UserCasdoor serves the read-only user directory straight from the
// identity provider, with a Redis lookaside cache in front.
type UserCasdoor struct {
	client *casdoorsdk.Client
	cache  *cache.CacheHelper
	config config.CasdoorConfig
}

func NewUserCasdoor(cfg config.CasdoorConfig, redisClient *redis.Client) repositories.UserRepository {
	client := casdoorsdk.NewClient(
		cfg.Endpoint,
		cfg.ClientID,
		cfg.ClientSecret,
		cfg.Cert,
		cfg.Application,
		cfg.Organization,
	)

	return &UserCasdoor{
		client: client,
		cache:  cache.NewCacheHelper(redisClient, cache.UserCacheConfig.Prefix),
		config: cfg,
	}
}

// ===== CONVERSION =====

func (u *UserCasdoor) convertCasdoorUserToModel(casdoorUser *casdoorsdk.User) *models.User {
	if casdoorUser == nil {
		return nil
	}

	return &models.User{
		ID:            casdoorUser.Id,
		FullName:      casdoorUser.DisplayName,
		Email:         casdoorUser.Email,
		Role:          u.mapCasdoorRole(casdoorUser),
		AvatarURL:     &casdoorUser.Avatar,
		EmailVerified: casdoorUser.EmailVerified,
	}
}

// mapCasdoorRole resolves the directory role from the provider account. The
// account Type carries the role chosen at signup; explicit admin markers win.
func (u *UserCasdoor) mapCasdoorRole(casdoorUser *casdoorsdk.User) models.UserRole {
	if casdoorUser.IsAdmin {
		return models.RoleAdmin
	}

	switch strings.ToLower(casdoorUser.Type) {
	case "admin", "administrator":
		return models.RoleAdmin
	case "institute", "institution", "college":
		return models.RoleInstitute
	case "company", "employer", "recruiter":
		return models.RoleCompany
	case "student", "learner":
		return models.RoleStudent
	}

	for _, role := range casdoorUser.Roles {
		switch strings.ToLower(role.Name) {
		case "admin":
			return models.RoleAdmin
		case "institute":
			return models.RoleInstitute
		case "company":
			return models.RoleCompany
		case "student":
			return models.RoleStudent
		}
	}

	return models.RoleStudent
}

// ===== READ OPERATIONS =====

func (u *UserCasdoor) GetByID(ctx context.Context, id string) (*models.User, error) {
	cacheKey := fmt.Sprintf("id:%s", id)
	var cached models.User
	if hit, err := u.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
		return &cached, nil
	}

	casdoorUser, err := u.client.GetUserByUserId(id)
	if err != nil {
		return nil, fmt.Errorf("failed to get user from provider: %w", err)
	}
	if casdoorUser == nil {
		return nil, fmt.Errorf("user not found with ID %s", id)
	}

	user := u.convertCasdoorUserToModel(casdoorUser)

	u.cache.Set(ctx, cacheKey, user, cache.UserCacheConfig.TTL)
	u.cache.Set(ctx, fmt.Sprintf("email:%s", user.Email), user, cache.UserCacheConfig.TTL)

	return user, nil
}

func (u *UserCasdoor) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	cacheKey := fmt.Sprintf("email:%s", email)
	var cached models.User
	if hit, err := u.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
		return &cached, nil
	}

	casdoorUser, err := u.client.GetUserByEmail(email)
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email from provider: %w", err)
	}
	if casdoorUser == nil {
		return nil, fmt.Errorf("user not found with email %s", email)
	}

	user := u.convertCasdoorUserToModel(casdoorUser)

	u.cache.Set(ctx, cacheKey, user, cache.UserCacheConfig.TTL)
	u.cache.Set(ctx, fmt.Sprintf("id:%s", user.ID), user, cache.UserCacheConfig.TTL)

	return user, nil
}

func (u *UserCasdoor) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	cacheKey := fmt.Sprintf("exists:email:%s", email)
	var cached bool
	if hit, err := u.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
		return cached, nil
	}

	casdoorUser, err := u.client.GetUserByEmail(email)
	if err != nil {
		return false, fmt.Errorf("failed to check user existence by email: %w", err)
	}

	exists := casdoorUser != nil
	u.cache.Set(ctx, cacheKey, exists, cache.ExistsCacheConfig.TTL)

	return exists, nil
}

// ===== LIST AND SEARCH =====

func (u *UserCasdoor) List(ctx context.Context, filters repositories.UserFilters) ([]*models.User, int64, error) {
	if filters.Limit <= 0 {
		filters.Limit = 10
	}
	if filters.Limit > 100 {
		filters.Limit = 100
	}

	// Casdoor pages are 1-indexed.
	page := (filters.Offset / filters.Limit) + 1
	if page < 1 {
		page = 1
	}

	queryMap := make(map[string]string)
	if filters.Query != "" {
		queryMap["field"] = "email"
		queryMap["value"] = filters.Query
	}

	casdoorUsers, count, err := u.client.GetPaginationUsers(page, filters.Limit, queryMap)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users from provider: %w", err)
	}

	users := make([]*models.User, 0, len(casdoorUsers))
	for _, casdoorUser := range casdoorUsers {
		user := u.convertCasdoorUserToModel(casdoorUser)
		if user == nil {
			continue
		}
		users = append(users, user)
		u.cache.Set(ctx, fmt.Sprintf("id:%s", user.ID), user, cache.UserCacheConfig.TTL)
	}

	return users, int64(count), nil
}

func (u *UserCasdoor) Search(ctx context.Context, query string, filters repositories.UserFilters) ([]*models.User, int64, error) {
	filters.Query = query
	return u.List(ctx, filters)
}

package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-monitor-api/internal/models"
	appErrors "github.com/noah-isme/campus-monitor-api/pkg/errors"
	"github.com/noah-isme/campus-monitor-api/pkg/response"
)

// CategoryParam is the route parameter carrying the category.
const CategoryParam = "category"

// CategoryAccess answers whether a user may see a category's collection view.
type CategoryAccess interface {
	CanPerformAnyCRUD(ctx context.Context, userID string, role models.UserRole, category models.Category) bool
}

// RequireRoles enforces role-based access control for routes.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		claims, ok := CurrentClaims(c)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if _, ok := allowed[claims.Actor().Role]; !ok {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireCategoryAccess rejects callers holding no capability in the route's
// category. Unknown categories answer 404.
func RequireCategoryAccess(access CategoryAccess) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := CurrentClaims(c)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		category := models.ParseCategory(c.Param(CategoryParam))
		if !category.Valid() {
			response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "unknown category"))
			c.Abort()
			return
		}
		actor := claims.Actor()
		if !access.CanPerformAnyCRUD(c.Request.Context(), actor.UserID, actor.Role, category) {
			response.Error(c, appErrors.Clone(appErrors.ErrNotPermitted, "you have no access to this category"))
			c.Abort()
			return
		}
		c.Next()
	}
}

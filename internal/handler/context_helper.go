package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-monitor-api/internal/middleware"
	"github.com/noah-isme/campus-monitor-api/internal/models"
	appErrors "github.com/noah-isme/campus-monitor-api/pkg/errors"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	claims, ok := middleware.CurrentClaims(c)
	if !ok {
		return nil
	}
	return claims
}

func actorFromContext(c *gin.Context) (models.Actor, bool) {
	claims := claimsFromContext(c)
	if claims == nil {
		return models.Actor{}, false
	}
	return claims.Actor(), true
}

func categoryFromPath(c *gin.Context) (models.Category, error) {
	category := models.ParseCategory(c.Param(middleware.CategoryParam))
	if !category.Valid() {
		return "", appErrors.Clone(appErrors.ErrNotFound, "unknown category")
	}
	return category, nil
}

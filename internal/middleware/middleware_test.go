package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-monitor-api/internal/models"
	appErrors "github.com/noah-isme/campus-monitor-api/pkg/errors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type tokenValidatorStub struct {
	claims *models.JWTClaims
	err    error
	seen   string
}

func (s *tokenValidatorStub) ValidateToken(token string) (*models.JWTClaims, error) {
	s.seen = token
	return s.claims, s.err
}

type categoryAccessStub struct {
	allowed map[models.Category]bool
	actor   models.Actor
}

func (s *categoryAccessStub) CanPerformAnyCRUD(ctx context.Context, userID string, role models.UserRole, category models.Category) bool {
	s.actor = models.Actor{UserID: userID, Role: role}
	return s.allowed[category]
}

type observerStub struct {
	path   string
	status int
}

func (o *observerStub) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	o.path = path
	o.status = status
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error.Code
}

func TestJWTMiddleware(t *testing.T) {
	validator := &tokenValidatorStub{claims: &models.JWTClaims{Email: "s@x", Role: models.RoleStaff}}
	router := gin.New()
	router.GET("/me", JWT(validator), func(c *gin.Context) {
		claims, ok := CurrentClaims(c)
		require.True(t, ok)
		c.String(http.StatusOK, claims.Email)
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Token abc")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "bearer abc")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "s@x", rec.Body.String())
	assert.Equal(t, "abc", validator.seen)

	validator.err = appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer abc")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "UNAUTHORIZED", errorCode(t, rec))
}

func withClaims(claims *models.JWTClaims) gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims != nil {
			c.Set(ContextUserKey, claims)
		}
		c.Next()
	}
}

func TestRequireRoles(t *testing.T) {
	cases := []struct {
		name   string
		claims *models.JWTClaims
		status int
	}{
		{"missing", nil, http.StatusUnauthorized},
		{"staff", &models.JWTClaims{Email: "s@x", Role: models.RoleStaff}, http.StatusForbidden},
		{"admin", &models.JWTClaims{Email: "a@x", Role: "Admin"}, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router := gin.New()
			router.GET("/admin", withClaims(tc.claims), RequireRoles(models.RoleAdmin), func(c *gin.Context) {
				c.Status(http.StatusOK)
			})
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin", nil))
			assert.Equal(t, tc.status, rec.Code)
		})
	}
}

func TestRequireCategoryAccess(t *testing.T) {
	access := &categoryAccessStub{allowed: map[models.Category]bool{models.CategoryStaff: true}}
	claims := &models.JWTClaims{Email: " S@X ", Role: models.RoleStaff}
	router := gin.New()
	router.GET("/categories/:category/records", withClaims(claims), RequireCategoryAccess(access), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/categories/Staff/records", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.Actor{UserID: "s@x", Role: models.RoleStaff}, access.actor)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/categories/budget/records", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "UNAUTHORIZED", errorCode(t, rec))

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/categories/library/records", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetricsUsesRouteTemplate(t *testing.T) {
	observer := &observerStub{}
	router := gin.New()
	router.Use(Metrics(observer))
	router.GET("/records/:id", func(c *gin.Context) { c.Status(http.StatusAccepted) })

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/records/abc", nil))
	assert.Equal(t, "/records/:id", observer.path)
	assert.Equal(t, http.StatusAccepted, observer.status)

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, "unmatched", observer.path)
}

func TestResponseMeta(t *testing.T) {
	router := gin.New()
	router.Use(WithResponseMeta())
	router.GET("/summary", func(c *gin.Context) {
		SetCacheHit(c, true)
		c.JSON(http.StatusOK, ExtractMeta(c))
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/summary", nil))
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))
	var meta map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &meta))
	assert.Equal(t, true, meta["cache_hit"])
	assert.Contains(t, meta, "processing_time_ms")
}

package handler

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-monitor-api/internal/middleware"
	"github.com/noah-isme/campus-monitor-api/internal/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type responseEnvelope struct {
	Data       json.RawMessage        `json:"data"`
	Meta       map[string]interface{} `json:"meta"`
	Pagination *models.Pagination     `json:"pagination"`
	Error      *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func newTestContext(method, target, body string, claims *models.JWTClaims, params ...gin.Param) (*gin.Context, *httptest.ResponseRecorder) {
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	c.Request = httptest.NewRequest(method, target, reader)
	if body != "" {
		c.Request.Header.Set("Content-Type", "application/json")
	}
	if claims != nil {
		c.Set(middleware.ContextUserKey, claims)
	}
	c.Params = params
	return c, rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) responseEnvelope {
	t.Helper()
	var env responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func categoryParam(category string) gin.Param {
	return gin.Param{Key: middleware.CategoryParam, Value: category}
}

var (
	adminClaims = &models.JWTClaims{Email: "admin@campus.edu", Role: models.RoleAdmin}
	staffClaims = &models.JWTClaims{Email: "Staff@Campus.edu", Role: "staff"}
)

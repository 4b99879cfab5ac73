package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/longtq2501/Tutor-Pro-sub000/internal/models"
	appErrors "github.com/longtq2501/Tutor-Pro-sub000/pkg/errors"
)

type verifierStub struct {
	tokens map[string]*models.JWTClaims
}

func (v verifierStub) ValidateToken(token string) (*models.JWTClaims, error) {
	if claims, ok := v.tokens[token]; ok {
		return claims, nil
	}
	return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
}

func newAuthRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	verifier := verifierStub{tokens: map[string]*models.JWTClaims{
		"admin": {UserID: "u-1", Role: models.RoleAdmin},
		"tutor": {UserID: "u-2", Role: models.RoleTutor},
	}}
	r := gin.New()
	group := r.Group("/", JWT(verifier))
	group.GET("/sessions", func(c *gin.Context) { c.Status(http.StatusOK) })
	group.DELETE("/sessions/months/:month", RequireRoles(models.RoleAdmin), func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func TestJWTMiddleware(t *testing.T) {
	r := newAuthRouter()
	cases := []struct {
		name   string
		header string
		status int
	}{
		{name: "missing header", status: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic admin", status: http.StatusUnauthorized},
		{name: "empty bearer", header: "Bearer ", status: http.StatusUnauthorized},
		{name: "unknown token", header: "Bearer nope", status: http.StatusUnauthorized},
		{name: "valid token", header: "Bearer tutor", status: http.StatusOK},
		{name: "scheme is case insensitive", header: "bearer admin", status: http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/sessions", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			assert.Equal(t, tc.status, rec.Code)
		})
	}
}

func TestRequireRoles(t *testing.T) {
	r := newAuthRouter()

	for token, status := range map[string]int{"admin": http.StatusOK, "tutor": http.StatusForbidden} {
		req := httptest.NewRequest(http.MethodDelete, "/sessions/months/2025-01", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		assert.Equal(t, status, rec.Code, token)
	}
}

func TestRequireRolesWithoutClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/", RequireRoles(models.RoleAdmin), func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

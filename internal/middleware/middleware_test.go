package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/eventide/backend/internal/auth"
)

func newRouter(jwtSvc *auth.JWTService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Logger(zap.NewNop()), CORS("https://events.example.com"))
	whoami := func(c *gin.Context) {
		id, ok := auth.CurrentUser(c)
		if !ok {
			c.String(http.StatusOK, "anonymous")
			return
		}
		c.String(http.StatusOK, id.Name)
	}
	r.GET("/required", JWT(jwtSvc), whoami)
	r.GET("/optional", OptionalJWT(jwtSvc), whoami)
	r.GET("/organizer", JWT(jwtSvc), RequireOrganizer(), whoami)
	return r
}

func do(r http.Handler, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Origin", "https://events.example.com")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWTMiddleware(t *testing.T) {
	svc := auth.NewJWTService("secret", 1)
	r := newRouter(svc)
	attendee, err := svc.Generate(uuid.New(), "a@example.com", "Alice", false)
	require.NoError(t, err)
	organizer, err := svc.Generate(uuid.New(), "o@example.com", "Olga", true)
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/required", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/required", "garbage").Code)

	w := do(r, http.MethodGet, "/required", attendee)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Alice", w.Body.String())
	assert.NotEmpty(t, w.Header().Get(HeaderRequestID))

	w = do(r, http.MethodGet, "/optional", "")
	assert.Equal(t, "anonymous", w.Body.String())
	assert.Equal(t, "Alice", do(r, http.MethodGet, "/optional", attendee).Body.String())
	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/optional", "garbage").Code)

	assert.Equal(t, http.StatusForbidden, do(r, http.MethodGet, "/organizer", attendee).Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/organizer", organizer).Code)
}

func TestCORS(t *testing.T) {
	r := newRouter(auth.NewJWTService("secret", 1))
	w := do(r, http.MethodOptions, "/required", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://events.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))

	req := httptest.NewRequest(http.MethodOptions, "/required", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

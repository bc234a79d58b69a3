package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/eventide/backend/internal/models"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func setupAuth(t *testing.T) (*gin.Engine, *JWTService) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	bcryptCost = bcrypt.MinCost
	users := NewMemoryStore()
	jwtSvc := NewJWTService("test-secret", 1)
	h := NewHandler(users, NewProvider(users), jwtSvc, zap.NewNop())
	r := gin.New()
	r.POST("/auth/register", h.Register)
	r.POST("/auth/login", h.Login)
	r.GET("/users/:id", h.GetUser)
	return r, jwtSvc
}

func postJSON(r http.Handler, path string, body interface{}) *httptest.ResponseRecorder {
	b, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRegisterLoginAndLookup(t *testing.T) {
	r, jwtSvc := setupAuth(t)

	w := postJSON(r, "/auth/register", map[string]interface{}{
		"name": "Alice", "email": "Alice@Example.com", "password": "secret1", "isOrganizer": true,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	var tok TokenResponse
	require.NoError(t, json.Unmarshal(env.Data, &tok))
	assert.Equal(t, "alice@example.com", tok.User.Email)
	assert.True(t, tok.User.IsOrganizer)
	assert.NotContains(t, w.Body.String(), "secret1")

	claims, err := jwtSvc.Validate(tok.Token)
	require.NoError(t, err)
	assert.Equal(t, tok.User.ID, claims.UserID)
	assert.Equal(t, "Alice", claims.Name)

	w = postJSON(r, "/auth/login", map[string]string{"email": "alice@example.com", "password": "secret1"})
	assert.Equal(t, http.StatusOK, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/users/"+tok.User.ID.String(), nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"name":"Alice"`)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	r, _ := setupAuth(t)
	body := map[string]interface{}{"name": "Bob", "email": "bob@example.com", "password": "secret1"}
	require.Equal(t, http.StatusCreated, postJSON(r, "/auth/register", body).Code)
	w := postJSON(r, "/auth/register", body)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	r, _ := setupAuth(t)
	postJSON(r, "/auth/register", map[string]interface{}{"name": "Bob", "email": "bob@example.com", "password": "secret1"})

	assert.Equal(t, http.StatusUnauthorized, postJSON(r, "/auth/login", map[string]string{"email": "bob@example.com", "password": "wrong!!"}).Code)
	assert.Equal(t, http.StatusUnauthorized, postJSON(r, "/auth/login", map[string]string{"email": "nobody@example.com", "password": "secret1"}).Code)
	assert.Equal(t, http.StatusBadRequest, postJSON(r, "/auth/login", map[string]string{"email": "not-an-email"}).Code)
}

func TestGetUserErrors(t *testing.T) {
	r, _ := setupAuth(t)
	for path, want := range map[string]int{
		"/users/not-a-uuid":          http.StatusBadRequest,
		"/users/" + uuid.NewString(): http.StatusNotFound,
	} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, want, w.Code, path)
	}
}

func TestValidateRejectsTamperedAndExpired(t *testing.T) {
	svc := NewJWTService("s1", 1)
	tok, err := svc.Generate(uuid.New(), "a@b.c", "A", false)
	require.NoError(t, err)

	_, err = NewJWTService("s2", 1).Validate(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)

	svc.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, err := svc.Generate(uuid.New(), "a@b.c", "A", false)
	require.NoError(t, err)
	_, err = svc.Validate(old)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestMemoryStoreRejectsDuplicateEmail(t *testing.T) {
	users := NewMemoryStore()
	ctx := context.Background()
	u, err := users.Create(ctx, "Alice", "alice@example.com", "hash", true)
	require.NoError(t, err)

	_, err = users.Create(ctx, "Other", "alice@example.com", "hash", false)
	assert.ErrorIs(t, err, models.ErrConflict)

	got, err := users.GetByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.True(t, got.IsOrganizer)

	_, err = users.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestPasswordHashing(t *testing.T) {
	bcryptCost = bcrypt.MinCost
	hash, err := hashPassword("s3cret-pass")
	require.NoError(t, err)
	assert.True(t, checkPassword("s3cret-pass", hash))
	assert.False(t, checkPassword("wrong", hash))

	_, err = hashPassword(strings.Repeat("x", 73))
	assert.Error(t, err)
}

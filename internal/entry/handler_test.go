package entry

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/eventide/backend/internal/auth"
	"github.com/eventide/backend/internal/middleware"
)

type outcome struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    Result `json:"data"`
}

func setupRouter(v *Validator) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(v, zap.NewNop())
	r := gin.New()
	r.POST("/validate-entry", h.Validate)
	r.POST("/events/:id/check-in", h.CheckIn)
	r.GET("/events/:id/check-ins", h.CheckIns)
	return r
}

func postEntry(t *testing.T, r http.Handler, path, body string) (int, outcome) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var out outcome
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return w.Code, out
}

func TestHandlerValidate(t *testing.T) {
	v, _, _ := newFixture(false)
	r := setupRouter(v)

	code, out := postEntry(t, r, "/validate-entry", `{"eventID":"E1","userID":"U1"}`)
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, out.Success)
	assert.Equal(t, "Welcome!", out.Message)
	assert.True(t, out.Data.Success)

	code, out = postEntry(t, r, "/validate-entry", `{"eventID":"E1","userID":"U2"}`)
	assert.Equal(t, http.StatusOK, code)
	assert.False(t, out.Success)
	assert.Equal(t, "Not Registered", out.Message)

	code, out = postEntry(t, r, "/validate-entry", `{"eventID":"E404","userID":"U1"}`)
	assert.Equal(t, http.StatusNotFound, code)
	assert.False(t, out.Success)
	assert.Equal(t, "Event not found", out.Message)

	code, out = postEntry(t, r, "/validate-entry", `{"eventID":"E1"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Invalid data", out.Message)

	code, _ = postEntry(t, r, "/validate-entry", `not json`)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestHandlerSingleUse(t *testing.T) {
	v, _, _ := newFixture(true)
	r := setupRouter(v)

	_, out := postEntry(t, r, "/validate-entry", `{"eventID":"E1","userID":"U1"}`)
	assert.True(t, out.Success)
	_, out = postEntry(t, r, "/events/E1/check-in", `{"userID":"U1"}`)
	assert.False(t, out.Success)
	assert.Equal(t, "Already checked in", out.Message)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/events/E1/check-ins", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"userId":"U1"`)
}

func mountedRouter(v *Validator, jwtService *auth.JWTService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	open := r.Group("")
	open.Use(middleware.OptionalJWT(jwtService))
	organizer := r.Group("")
	organizer.Use(middleware.JWT(jwtService), middleware.RequireOrganizer())
	NewHandler(v, zap.NewNop()).Mount(open, organizer)
	return r
}

func postAs(r http.Handler, token, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestMountSingleUseNeedsOrganizer(t *testing.T) {
	jwtService := auth.NewJWTService("test-secret", 1)
	attendee, err := jwtService.Generate(uuid.New(), "a@example.com", "Alice", false)
	require.NoError(t, err)
	organizer, err := jwtService.Generate(uuid.New(), "o@example.com", "Olga", true)
	require.NoError(t, err)

	v, _, _ := newFixture(true)
	r := mountedRouter(v, jwtService)
	const body = `{"eventID":"E1","userID":"U1"}`

	assert.Equal(t, http.StatusUnauthorized, postAs(r, "", "/validate-entry", body).Code)
	assert.Equal(t, http.StatusForbidden, postAs(r, attendee, "/validate-entry", body).Code)

	// Rejected callers must not have spent the entry.
	w := postAs(r, organizer, "/validate-entry", body)
	require.Equal(t, http.StatusOK, w.Code)
	var out outcome
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.True(t, out.Success)
	assert.Equal(t, "Welcome!", out.Message)
}

func TestMountValidateOnlyIsOpen(t *testing.T) {
	jwtService := auth.NewJWTService("test-secret", 1)
	v, _, _ := newFixture(false)
	r := mountedRouter(v, jwtService)

	w := postAs(r, "", "/validate-entry", `{"eventID":"E1","userID":"U1"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, http.StatusUnauthorized, postAs(r, "", "/events/E1/check-in", `{"userID":"U1"}`).Code)
}

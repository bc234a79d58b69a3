package auth

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/eventide/backend/internal/models"
	"github.com/eventide/backend/pkg/response"
)

// RegisterRequest is the body for POST /auth/register.
type RegisterRequest struct {
	Name        string `json:"name" binding:"required"`
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=6"`
	IsOrganizer bool   `json:"isOrganizer"`
}

// LoginRequest is the body for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// TokenResponse is the auth response with JWT.
type TokenResponse struct {
	Token string            `json:"token"`
	User  models.UserPublic `json:"user"`
}

// Handler handles auth HTTP endpoints.
type Handler struct {
	users    UserStore
	identity IdentityProvider
	jwt      *JWTService
	logger   *zap.Logger
}

// NewHandler creates an auth handler.
func NewHandler(users UserStore, identity IdentityProvider, jwt *JWTService, logger *zap.Logger) *Handler {
	return &Handler{users: users, identity: identity, jwt: jwt, logger: logger}
}

// Register handles POST /auth/register.
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	hash, err := hashPassword(req.Password)
	if err != nil {
		response.BadRequest(c, "password is not usable")
		return
	}
	user, err := h.users.Create(c.Request.Context(), strings.TrimSpace(req.Name), email, hash, req.IsOrganizer)
	if err != nil {
		response.ServiceError(c, h.logger, err, "failed to create user")
		return
	}

	token, err := h.jwt.Generate(user.ID, user.Email, user.Name, user.IsOrganizer)
	if err != nil {
		response.Internal(c, "failed to generate token")
		return
	}
	h.logger.Info("user registered", zap.String("user_id", user.ID.String()), zap.Bool("organizer", user.IsOrganizer))
	response.Created(c, TokenResponse{Token: token, User: user.ToPublic()})
}

// Login handles POST /auth/login.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	user, err := h.users.GetByEmail(c.Request.Context(), strings.ToLower(strings.TrimSpace(req.Email)))
	if errors.Is(err, models.ErrNotFound) {
		burnPasswordCheck(req.Password)
		response.Unauthorized(c, "invalid email or password")
		return
	}
	if err != nil {
		h.logger.Error("login lookup failed", zap.Error(err))
		response.Internal(c, "failed to log in")
		return
	}
	if !checkPassword(req.Password, user.Password) {
		response.Unauthorized(c, "invalid email or password")
		return
	}

	token, err := h.jwt.Generate(user.ID, user.Email, user.Name, user.IsOrganizer)
	if err != nil {
		response.Internal(c, "failed to generate token")
		return
	}
	response.OK(c, TokenResponse{Token: token, User: user.ToPublic()})
}

// GetUser handles GET /users/:id.
func (h *Handler) GetUser(c *gin.Context) {
	u, err := h.identity.Lookup(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.ServiceError(c, h.logger, err, "failed to get user")
		return
	}
	response.OK(c, u)
}

// Me handles GET /auth/me.
func (h *Handler) Me(c *gin.Context) {
	id, ok := h.identity.CurrentUser(c)
	if !ok {
		response.Unauthorized(c, "missing user context")
		return
	}
	response.OK(c, id)
}

package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/eventide/backend/internal/models"
)

// ContextIdentity is the gin context key holding the authenticated Identity.
const ContextIdentity = "identity"

// Identity is the authenticated caller as seen by the core services.
type Identity struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	IsOrganizer bool   `json:"isOrganizer"`
}

// IdentityFromClaims converts validated JWT claims to an Identity.
func IdentityFromClaims(c *Claims) Identity {
	return Identity{ID: c.UserID.String(), Name: c.Name, Email: c.Email, IsOrganizer: c.IsOrganizer}
}

// IdentityProvider is the identity capability used by handlers: who is calling,
// and profile lookup by id. The core never depends on a provider's wire format.
type IdentityProvider interface {
	CurrentUser(c *gin.Context) (Identity, bool)
	Lookup(ctx context.Context, id string) (*models.UserPublic, error)
}

// Provider is the IdentityProvider backed by JWT middleware and the users table.
type Provider struct {
	repo UserStore
}

// NewProvider creates the local identity provider.
func NewProvider(repo UserStore) *Provider {
	return &Provider{repo: repo}
}

// CurrentUser returns the identity set by the JWT middleware, if any.
func (p *Provider) CurrentUser(c *gin.Context) (Identity, bool) {
	return CurrentUser(c)
}

// Lookup returns the public profile for a user id.
func (p *Provider) Lookup(ctx context.Context, id string) (*models.UserPublic, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid user id", models.ErrInvalidInput)
	}
	u, err := p.repo.GetByID(ctx, uid)
	if errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("%w: user not found", models.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	pub := u.ToPublic()
	return &pub, nil
}

// CurrentUser reads the identity stored in the gin context.
func CurrentUser(c *gin.Context) (Identity, bool) {
	v, ok := c.Get(ContextIdentity)
	if !ok {
		return Identity{}, false
	}
	id, ok := v.(Identity)
	return id, ok
}

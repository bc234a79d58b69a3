package models

import (
	"time"

	"github.com/google/uuid"
)

// User is a platform account. Organizers may create and scan events.
type User struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Password    string    `json:"-"`
	IsOrganizer bool      `json:"isOrganizer"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// UserPublic is User without sensitive fields for API responses.
type UserPublic struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	IsOrganizer bool      `json:"isOrganizer"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ToPublic converts User to UserPublic.
func (u *User) ToPublic() UserPublic {
	return UserPublic{
		ID:          u.ID,
		Name:        u.Name,
		Email:       u.Email,
		IsOrganizer: u.IsOrganizer,
		CreatedAt:   u.CreatedAt,
	}
}

package models

import "time"

// User is an identity record. Password hashes never leave the service layer.
type User struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	Email            string     `json:"email,omitempty"`
	Phone            string     `json:"phone,omitempty"`
	Role             string     `json:"role"`
	Currency         Currency   `json:"currency,omitempty"`
	IsActive         bool       `json:"isActive"`
	DeletedAt        *time.Time `json:"deletedAt,omitempty"`
	PasswordHash     string     `json:"-"`
	TempPasswordHash string     `json:"-"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

// Deleted reports whether the user has been soft deleted
func (u User) Deleted() bool {
	return u.DeletedAt != nil
}
